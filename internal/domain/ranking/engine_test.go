package ranking_test

import (
	"context"
	"testing"
	"time"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func benchRequest(weight float64, reps int) model.CalculationRequest {
	return model.CalculationRequest{
		RequestID: "req-1",
		UserID:    "u1",
		Source:    model.SourceWorkout,
		Performances: []model.PerformanceInput{
			{ExerciseID: "bench", Weight: weight, Reps: reps, SetID: "set-1"},
		},
	}
}

func TestEngine_Calculate(t *testing.T) {
	Convey("Given an engine with a fixed clock", t, func() {
		ctx := context.Background()
		ref := testReference()
		engine := ranking.NewEngine(ranking.WithClock(func() time.Time { return fixedNow }))
		profile := model.UserProfile{UserID: "u1", Gender: model.GenderMale, Bodyweight: 80}

		Convey("When the profile has no bodyweight", func() {
			res := engine.Calculate(ctx, ref, model.UserProfile{UserID: "u1"}, model.NewUserRanks(), benchRequest(100, 5))

			Convey("Then the result is empty", func() {
				So(res.Skipped, ShouldEqual, ranking.SkipMissingBodyweight)
				So(res.Payload.Empty(), ShouldBeTrue)
				So(res.Events, ShouldBeEmpty)
				So(res.Outcomes, ShouldBeEmpty)
			})
		})

		Convey("When an 80kg free user benches 100kg for 5", func() {
			res := engine.Calculate(ctx, ref, profile, model.NewUserRanks(), benchRequest(100, 5))

			Convey("Then every reachable entity is scored", func() {
				So(res.Skipped, ShouldEqual, ranking.SkipNone)
				So(*res.Scores["bench"].OneRepMax, ShouldAlmostEqual, 116.667, 0.001)
				So(*res.Scores["bench"].SWR, ShouldAlmostEqual, 1.458, 0.001)
				So(res.Scores["bench"].Score, ShouldEqual, 4487)

				So(res.Payload.User.PermanentScore, ShouldEqual, 479)
				So(res.Payload.MuscleGroups, ShouldHaveLength, 1)
				So(res.Payload.MuscleGroups[0].PermanentScore, ShouldEqual, 1197)
				So(res.Payload.Muscles, ShouldHaveLength, 2)
				So(res.Payload.Muscles[0].EntityID, ShouldEqual, "pecs")
				So(res.Payload.Muscles[0].PermanentScore, ShouldEqual, 1496)
				So(res.Payload.Muscles[1].PermanentScore, ShouldEqual, 748)
				So(res.Payload.Exercises[0].PermanentScore, ShouldEqual, 4487)
				So(res.Payload.Exercises[0].BestSet.SetID, ShouldEqual, "set-1")
				So(res.Count(ranking.StatusChanged), ShouldEqual, 5)
			})

			Convey("Then leaderboard never exceeds permanent", func() {
				for _, row := range res.Payload.Rows() {
					So(row.LeaderboardScore, ShouldBeLessThanOrEqualTo, row.PermanentScore)
					So(row.LastCalculatedAt, ShouldEqual, fixedNow)
				}
			})

			Convey("Then only user and exercise rank-ups reach the feed", func() {
				So(res.Events, ShouldHaveLength, 2)
				So(res.Events[0].Kind, ShouldEqual, model.EntityUser)
				So(res.Events[0].NewTier, ShouldEqual, "Bronze")
				So(res.Events[1].DisplayName, ShouldEqual, "Bench Press")
				So(res.Events[1].NewTier, ShouldEqual, "Gold")
			})

			Convey("And running it again from the stored state", func() {
				stored := applyPayload(model.NewUserRanks(), res.Payload)
				again := engine.Calculate(ctx, ref, profile, stored, benchRequest(100, 5))

				Convey("Then nothing changes", func() {
					So(again.Payload.Empty(), ShouldBeTrue)
					So(again.Events, ShouldBeEmpty)
					So(again.Count(ranking.StatusUnchanged), ShouldEqual, 5)
				})
			})

			Convey("And running it again from the same baseline", func() {
				twin := engine.Calculate(ctx, ref, profile, model.NewUserRanks(), benchRequest(100, 5))

				Convey("Then the result is reproduced exactly", func() {
					So(twin.Payload, ShouldResemble, res.Payload)
					So(twin.Events, ShouldResemble, res.Events)
				})
			})

			Convey("And a weaker session follows", func() {
				stored := applyPayload(model.NewUserRanks(), res.Payload)
				weaker := engine.Calculate(ctx, ref, profile, stored, benchRequest(60, 5))
				after := applyPayload(stored, weaker.Payload)

				Convey("Then no permanent score decreases", func() {
					So(weaker.Scores["bench"].Score, ShouldEqual, 4156)
					for _, before := range stored.All() {
						now, ok := after.Get(before.Key())
						So(ok, ShouldBeTrue)
						So(now.PermanentScore, ShouldBeGreaterThanOrEqualTo, before.PermanentScore)
					}
					So(after.Exercises["bench"].BestSet.Weight, ShouldEqual, 100)
				})
			})
		})

		Convey("When the user is premium", func() {
			premium := profile
			premium.Premium = true
			res := engine.Calculate(ctx, ref, premium, model.NewUserRanks(), benchRequest(100, 5))

			Convey("Then muscle and group rank-ups are emitted too", func() {
				So(res.Events, ShouldHaveLength, 5)
				So(res.Events[1].Kind, ShouldEqual, model.EntityMuscleGroup)
				So(res.Events[1].DisplayName, ShouldEqual, "Chest")
			})

			Convey("Then the lock is released", func() {
				So(res.Payload.MuscleGroups[0].Locked, ShouldBeFalse)
			})
		})

		Convey("When a free user's muscle group is already unlocked", func() {
			stored := model.NewUserRanks()
			stored.MuscleGroups["chest"] = model.RankState{
				Kind: model.EntityMuscleGroup, UserID: "u1", EntityID: "chest",
				PermanentScore: 100, PermanentTier: model.TierRef{TierID: 1, SubTierID: 11},
				LeaderboardScore: 100, LeaderboardTier: model.TierRef{TierID: 1, SubTierID: 11},
				Locked: false,
			}
			res := engine.Calculate(ctx, ref, profile, stored, benchRequest(100, 5))

			Convey("Then the group is frozen and not persisted", func() {
				So(res.Count(ranking.StatusFrozen), ShouldEqual, 1)
				So(res.Payload.MuscleGroups, ShouldBeEmpty)
				So(res.Payload.Muscles, ShouldHaveLength, 2)
			})

			Convey("Then the frozen group reports its prior state unchanged", func() {
				for _, o := range res.Outcomes {
					if o.Status != ranking.StatusFrozen {
						continue
					}
					So(o.Before.Kind, ShouldEqual, model.EntityMuscleGroup)
					So(o.After, ShouldResemble, o.Before)
					So(o.After.PermanentScore, ShouldEqual, 100)
				}
				for _, ev := range res.Events {
					So(ev.Kind, ShouldNotEqual, model.EntityMuscleGroup)
				}
			})

			Convey("Then the overall score still uses the freshly aggregated group score", func() {
				// round(1197 * 0.4), not round(100 * 0.4).
				So(res.Payload.User.PermanentScore, ShouldEqual, 479)
			})

			Convey("And an onboarding run updates it", func() {
				req := benchRequest(100, 5)
				req.Source = model.SourceOnboarding
				onboard := engine.Calculate(ctx, ref, profile, stored, req)
				So(onboard.Count(ranking.StatusFrozen), ShouldEqual, 0)
				So(onboard.Payload.MuscleGroups[0].PermanentScore, ShouldEqual, 1197)
				So(onboard.Payload.MuscleGroups[0].Locked, ShouldBeFalse)
			})
		})

		Convey("When stored ranks need a leaderboard sync", func() {
			stored := model.NewUserRanks()
			stored.Exercises["row"] = model.RankState{
				Kind: model.EntityExercise, UserID: "u1", EntityID: "row",
				PermanentScore: 2500, PermanentTier: model.TierRef{TierID: 3, SubTierID: 31},
			}
			res := engine.Calculate(ctx, ref, profile, stored, benchRequest(100, 5))

			Convey("Then the repaired row is persisted even though the batch did not reach it", func() {
				So(res.Count(ranking.StatusSynced), ShouldEqual, 1)
				So(res.Payload.Exercises, ShouldHaveLength, 2)
				So(res.Payload.Exercises[1].EntityID, ShouldEqual, "row")
				So(res.Payload.Exercises[1].LeaderboardScore, ShouldEqual, 2500)
			})

			Convey("Then the stored ranks are left as they were", func() {
				So(stored.Exercises["row"].LeaderboardScore, ShouldEqual, 0)
			})
		})

		Convey("When the batch only has unknown exercises", func() {
			req := model.CalculationRequest{UserID: "u1", Source: model.SourceWorkout,
				Performances: []model.PerformanceInput{{ExerciseID: "nope", Reps: 10}}}
			res := engine.Calculate(ctx, ref, profile, model.NewUserRanks(), req)

			Convey("Then nothing is affected", func() {
				So(res.Outcomes, ShouldBeEmpty)
				So(res.Payload.Empty(), ShouldBeTrue)
			})
		})
	})
}
