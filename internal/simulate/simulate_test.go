package simulate_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/catalog"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/repository"
	service "github.com/mvanderlyn27/odyssey-backend-sub003/internal/app"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/simulate"
)

func loadReference(t *testing.T) *ranking.Reference {
	t.Helper()
	ref, err := catalog.LoadFile(context.Background(), "../../catalog.yaml")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return ref
}

func smallConfig() simulate.Config {
	cfg := simulate.DefaultConfig()
	cfg.Users = 20
	cfg.Workouts = 3
	cfg.Workers = 4
	cfg.TopN = 5
	return cfg
}

func runOnce(ctx context.Context, ref *ranking.Reference, cfg simulate.Config) (*simulate.Stats, error) {
	store := repository.NewMemoryStore()
	svc := service.New(
		service.WithReference(ref),
		service.WithStore(store),
		service.WithWorkerCount(4),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = svc.Stop(context.Background()) }()
	return simulate.NewRunner(svc, store, ref, nil).Run(ctx, cfg)
}

func TestConfig_Validate(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := simulate.DefaultConfig()

		Convey("Then it is valid", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Then out of range values are rejected", func() {
			for _, mutate := range []func(*simulate.Config){
				func(c *simulate.Config) { c.Users = 0 },
				func(c *simulate.Config) { c.Workouts = 0 },
				func(c *simulate.Config) { c.Workers = 0 },
				func(c *simulate.Config) { c.PremiumRatio = 1.5 },
				func(c *simulate.Config) { c.TopN = 0 },
				func(c *simulate.Config) { c.Timeout = 0 },
			} {
				c := simulate.DefaultConfig()
				mutate(&c)
				So(errors.Is(c.Validate(), simulate.ErrInvalidConfig), ShouldBeTrue)
			}
		})
	})
}

func TestGenerator(t *testing.T) {
	ref := loadReference(t)

	Convey("Given two generators with the same seed", t, func() {
		a := simulate.NewGenerator(7, ref.Exercises)
		b := simulate.NewGenerator(7, ref.Exercises)

		Convey("Then they produce the same athletes and workouts", func() {
			athletesA := a.Athletes(10, 0.5)
			athletesB := b.Athletes(10, 0.5)
			So(athletesA, ShouldResemble, athletesB)
			So(a.Workout(athletesA[0], 0), ShouldResemble, b.Workout(athletesB[0], 0))
		})
	})

	Convey("Given a generated population", t, func() {
		gen := simulate.NewGenerator(1, ref.Exercises)
		athletes := gen.Athletes(50, 0.2)

		Convey("Then every athlete has a uuid and a usable profile", func() {
			seen := make(map[string]bool)
			for _, a := range athletes {
				_, err := uuid.Parse(a.Profile.UserID)
				So(err, ShouldBeNil)
				So(seen[a.Profile.UserID], ShouldBeFalse)
				seen[a.Profile.UserID] = true
				So(a.Profile.HasBodyweight(), ShouldBeTrue)
				So(a.Level, ShouldBeBetweenOrEqual, 0.15, 1.0)
			}
		})

		Convey("Then workouts only use catalog exercises with plausible values", func() {
			for week := range 4 {
				perfs := gen.Workout(athletes[0], week)
				So(perfs, ShouldNotBeEmpty)
				for _, p := range perfs {
					cfg, ok := ref.Exercises[p.ExerciseID]
					So(ok, ShouldBeTrue)
					So(p.Weight, ShouldBeGreaterThanOrEqualTo, 0)
					So(math.Mod(p.Weight, 2.5), ShouldEqual, 0)
					if cfg.Type == model.ExerciseCardio {
						So(p.Duration, ShouldBeGreaterThanOrEqualTo, 0)
					} else {
						So(p.Reps, ShouldBeGreaterThan, 0)
					}
				}
			}
		})
	})
}

func TestRunner_Run(t *testing.T) {
	ref := loadReference(t)

	Convey("Given a small simulation", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cfg := smallConfig()

		Convey("When it runs against an in-memory service", func() {
			stats, err := runOnce(ctx, ref, cfg)
			So(err, ShouldBeNil)

			Convey("Then every workout is calculated", func() {
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Calculations, ShouldEqual, cfg.Users*cfg.Workouts)
				So(stats.Skipped, ShouldEqual, 0)
				So(stats.RowsPersisted, ShouldBeGreaterThan, 0)
			})

			Convey("Then the leaderboard is consistent", func() {
				So(stats.Inconsistencies, ShouldBeEmpty)
				So(len(stats.Leaderboard), ShouldBeBetweenOrEqual, 1, cfg.TopN)
				So(stats.Leaderboard[0].Rank, ShouldEqual, 1)
			})

			Convey("Then the report lists the leaderboard", func() {
				var buf bytes.Buffer
				simulate.WriteReport(&buf, stats)
				So(buf.String(), ShouldContainSubstring, stats.Leaderboard[0].UserID)
				So(buf.String(), ShouldContainSubstring, "leaderboard consistent")
			})
		})

		Convey("When it runs twice with the same seed", func() {
			first, err := runOnce(ctx, ref, cfg)
			So(err, ShouldBeNil)
			second, err := runOnce(ctx, ref, cfg)
			So(err, ShouldBeNil)

			Convey("Then both leaderboards match", func() {
				So(second.Leaderboard, ShouldResemble, first.Leaderboard)
			})
		})
	})

	Convey("Given an invalid config", t, func() {
		cfg := smallConfig()
		cfg.Users = 0

		Convey("Then the run is refused", func() {
			_, err := simulate.NewRunner(nil, nil, ref, nil).Run(context.Background(), cfg)
			So(errors.Is(err, simulate.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
