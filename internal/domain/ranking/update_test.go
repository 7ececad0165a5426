package ranking_test

import (
	"errors"
	"testing"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/tier"
	. "github.com/smartystreets/goconvey/convey"
)

func TestShouldFreeze(t *testing.T) {
	Convey("Given the locking predicate", t, func() {
		Convey("Then only unlocked muscles and groups of free workout runs freeze", func() {
			So(ranking.ShouldFreeze(model.EntityMuscleGroup, model.SourceWorkout, false, false), ShouldBeTrue)
			So(ranking.ShouldFreeze(model.EntityMuscle, model.SourceWorkout, false, false), ShouldBeTrue)

			So(ranking.ShouldFreeze(model.EntityMuscle, model.SourceWorkout, false, true), ShouldBeFalse)
			So(ranking.ShouldFreeze(model.EntityMuscle, model.SourceWorkout, true, false), ShouldBeFalse)
			So(ranking.ShouldFreeze(model.EntityMuscle, model.SourceOnboarding, false, false), ShouldBeFalse)
			So(ranking.ShouldFreeze(model.EntityMuscleGroup, model.SourceCalculator, false, false), ShouldBeFalse)
			So(ranking.ShouldFreeze(model.EntityUser, model.SourceWorkout, false, false), ShouldBeFalse)
			So(ranking.ShouldFreeze(model.EntityExercise, model.SourceWorkout, false, false), ShouldBeFalse)
		})

		Convey("Then the written lock flag depends on source and plan", func() {
			So(ranking.LockedAfterUpdate(model.SourceWorkout, false), ShouldBeTrue)
			So(ranking.LockedAfterUpdate(model.SourceWorkout, true), ShouldBeFalse)
			So(ranking.LockedAfterUpdate(model.SourceOnboarding, false), ShouldBeFalse)
			So(ranking.LockedAfterUpdate(model.SourceCalculator, true), ShouldBeFalse)
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a tier table", t, func() {
		table := testTable()
		silverI := model.TierRef{TierID: 2, SubTierID: 21}
		goldI := model.TierRef{TierID: 3, SubTierID: 31}

		group := model.RankState{
			Kind: model.EntityMuscleGroup, UserID: "u1", EntityID: "chest",
			PermanentScore: 600, PermanentTier: silverI,
			LeaderboardScore: 600, LeaderboardTier: silverI,
			Locked: true,
		}

		Convey("When a lower score arrives", func() {
			out := ranking.Apply(table, ranking.Update{State: group, Score: 300, Source: model.SourceWorkout, Now: fixedNow})

			Convey("Then the permanent score does not decrease", func() {
				So(out.Status, ShouldEqual, ranking.StatusUnchanged)
				So(out.After, ShouldResemble, group)
			})
		})

		Convey("When an equal score arrives", func() {
			out := ranking.Apply(table, ranking.Update{State: group, Score: 600, Source: model.SourceWorkout, Now: fixedNow})

			Convey("Then it is not a change", func() {
				So(out.Status, ShouldEqual, ranking.StatusUnchanged)
				So(out.After, ShouldResemble, group)
			})
		})

		Convey("When a higher score arrives for a free workout run", func() {
			out := ranking.Apply(table, ranking.Update{State: group, Score: 2100, Source: model.SourceWorkout, Now: fixedNow})

			Convey("Then both tracks move and the tiers are re-resolved", func() {
				So(out.Status, ShouldEqual, ranking.StatusChanged)
				So(out.After.PermanentScore, ShouldEqual, 2100)
				So(out.After.PermanentTier, ShouldResemble, goldI)
				So(out.After.LeaderboardScore, ShouldEqual, 2100)
				So(out.After.LeaderboardTier, ShouldResemble, goldI)
				So(out.After.Locked, ShouldBeTrue)
				So(out.After.LastCalculatedAt, ShouldEqual, fixedNow)
			})

			Convey("And the input state is untouched", func() {
				So(group.PermanentScore, ShouldEqual, 600)
			})
		})

		Convey("When the group is already unlocked on a free workout run", func() {
			unlocked := group
			unlocked.Locked = false
			out := ranking.Apply(table, ranking.Update{State: unlocked, Score: 4000, Source: model.SourceWorkout, Now: fixedNow})

			Convey("Then it is frozen with zero change", func() {
				So(out.Status, ShouldEqual, ranking.StatusFrozen)
				So(out.After, ShouldResemble, unlocked)
			})
		})

		Convey("When a premium workout run raises the group", func() {
			out := ranking.Apply(table, ranking.Update{State: group, Score: 700, Source: model.SourceWorkout, Premium: true, Now: fixedNow})

			Convey("Then the group is unlocked", func() {
				So(out.Status, ShouldEqual, ranking.StatusChanged)
				So(out.After.Locked, ShouldBeFalse)
			})
		})

		Convey("When an onboarding run raises an unlocked group", func() {
			unlocked := group
			unlocked.Locked = false
			out := ranking.Apply(table, ranking.Update{State: unlocked, Score: 700, Source: model.SourceOnboarding, Now: fixedNow})

			Convey("Then it updates and stays unlocked", func() {
				So(out.Status, ShouldEqual, ranking.StatusChanged)
				So(out.After.PermanentScore, ShouldEqual, 700)
				So(out.After.Locked, ShouldBeFalse)
			})
		})

		Convey("When the leaderboard lags but the new score does not beat it", func() {
			lagging := group
			lagging.LeaderboardScore = 800
			lagging.PermanentScore = 900
			lagging.PermanentTier = silverI
			out := ranking.Apply(table, ranking.Update{State: lagging, Score: 700, Source: model.SourceCalculator, Now: fixedNow})

			Convey("Then nothing changes", func() {
				So(out.Status, ShouldEqual, ranking.StatusUnchanged)
				So(out.After.LeaderboardScore, ShouldEqual, 800)
			})
		})

		Convey("When the score resolves to no tier", func() {
			fresh := model.NewRankState("u1", model.EntityMuscle, "pecs")
			out := ranking.Apply(table, ranking.Update{State: fresh, Score: 0, Source: model.SourceWorkout, Now: fixedNow})

			Convey("Then the entity is skipped and left untouched", func() {
				So(out.Status, ShouldEqual, ranking.StatusSkipped)
				So(errors.Is(out.Err, tier.ErrNoTier), ShouldBeTrue)
				So(out.After, ShouldResemble, fresh)
			})
		})

		Convey("When an exercise improves", func() {
			orm := 116.7
			best := &model.BestSet{Weight: 100, Reps: 5, Bodyweight: 80, OneRepMax: &orm}
			ex := model.NewRankState("u1", model.EntityExercise, "bench")
			out := ranking.Apply(table, ranking.Update{State: ex, Score: 1200, Source: model.SourceWorkout, Now: fixedNow, Best: best})

			Convey("Then the best set is stored and the exercise is never locked", func() {
				So(out.Status, ShouldEqual, ranking.StatusChanged)
				So(out.After.BestSet, ShouldEqual, best)
				So(out.After.Locked, ShouldBeFalse)
			})

			Convey("And a later lower set keeps the stored best set", func() {
				other := &model.BestSet{Weight: 60, Reps: 5, Bodyweight: 80}
				next := ranking.Apply(table, ranking.Update{State: out.After, Score: 900, Source: model.SourceWorkout, Now: fixedNow, Best: other})
				So(next.Status, ShouldEqual, ranking.StatusUnchanged)
				So(next.After.BestSet, ShouldEqual, best)
			})
		})
	})
}

func TestSync(t *testing.T) {
	Convey("Given stored ranks with lagging leaderboards", t, func() {
		table := testTable()
		ranks := model.NewUserRanks()
		ranks.User = &model.RankState{Kind: model.EntityUser, UserID: "u1", PermanentScore: 1200, LeaderboardScore: 300}
		ranks.Muscles["pecs"] = model.RankState{Kind: model.EntityMuscle, UserID: "u1", EntityID: "pecs", PermanentScore: 500, LeaderboardScore: 500}
		ranks.Exercises["bench"] = model.RankState{Kind: model.EntityExercise, UserID: "u1", EntityID: "bench", PermanentScore: 3100, LeaderboardScore: 0}
		ranks.MuscleGroups["chest"] = model.RankState{Kind: model.EntityMuscleGroup, UserID: "u1", EntityID: "chest", PermanentScore: 400, LeaderboardScore: 600}

		synced, outcomes := ranking.Sync(table, ranks)

		Convey("Then lagging leaderboards are raised to the permanent score", func() {
			So(synced.User.LeaderboardScore, ShouldEqual, 1200)
			So(synced.User.LeaderboardTier, ShouldResemble, model.TierRef{TierID: 2, SubTierID: 22})
			So(synced.Exercises["bench"].LeaderboardScore, ShouldEqual, 3100)
			So(synced.Exercises["bench"].LeaderboardTier, ShouldResemble, model.TierRef{TierID: 3, SubTierID: 32})
		})

		Convey("Then only repaired entities are reported, in kind order", func() {
			So(outcomes, ShouldHaveLength, 2)
			So(outcomes[0].After.Kind, ShouldEqual, model.EntityUser)
			So(outcomes[1].After.EntityID, ShouldEqual, "bench")
			for _, o := range outcomes {
				So(o.Status, ShouldEqual, ranking.StatusSynced)
			}
		})

		Convey("Then the stored ranks are not modified", func() {
			So(ranks.User.LeaderboardScore, ShouldEqual, 300)
			So(ranks.Exercises["bench"].LeaderboardScore, ShouldEqual, 0)
		})

		Convey("Then other states pass through", func() {
			So(synced.Muscles["pecs"], ShouldResemble, ranks.Muscles["pecs"])
			So(synced.MuscleGroups["chest"].LeaderboardScore, ShouldEqual, 600)
		})
	})
}
