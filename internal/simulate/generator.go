package simulate

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/google/uuid"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
)

// Generation ranges.
const (
	minBodyweight     = 50.0
	bodyweightSpread  = 50.0
	minExercisesPer   = 2
	maxExercisesPer   = 5
	minSetsPerSession = 1
	maxSetsPerSession = 3
	progressPerWeek   = 0.02
	weightStep        = 2.5
)

// Athlete is a synthetic user with a fixed ability level.
type Athlete struct {
	Profile model.UserProfile
	// Level scales every performance; 1.0 performs at the elite reference.
	Level float64
}

// Generator produces deterministic users and workouts from a seed.
type Generator struct {
	rng       *rand.Rand
	exercises []model.ExerciseConfig
}

// NewGenerator creates a generator over the catalog's exercises.
func NewGenerator(seed int64, exercises map[string]model.ExerciseConfig) *Generator {
	list := make([]model.ExerciseConfig, 0, len(exercises))
	for _, e := range exercises {
		list = append(list, e)
	}
	slices.SortFunc(list, func(a, b model.ExerciseConfig) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return &Generator{rng: rand.New(rand.NewSource(seed)), exercises: list}
}

// Athletes creates n users. Ids are name-based UUIDs so equal seeds give equal ids.
func (g *Generator) Athletes(n int, premiumRatio float64) []Athlete {
	out := make([]Athlete, n)
	for i := range out {
		gender := model.GenderMale
		if g.rng.Intn(2) == 1 {
			gender = model.GenderFemale
		}
		out[i] = Athlete{
			Profile: model.UserProfile{
				UserID:     uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("odyssey-sim-user-%d", i))).String(),
				Gender:     gender,
				Bodyweight: math.Round((minBodyweight+g.rng.Float64()*bodyweightSpread)*10) / 10,
				Premium:    g.rng.Float64() < premiumRatio,
			},
			// Skewed towards beginners, a few near elite.
			Level: 0.15 + 0.85*math.Pow(g.rng.Float64(), 2),
		}
	}
	return out
}

// Workout returns the performances of one session. week grows the athlete's
// level slightly so later sessions tend to set new bests.
func (g *Generator) Workout(a Athlete, week int) []model.PerformanceInput {
	if len(g.exercises) == 0 {
		return nil
	}
	count := minExercisesPer + g.rng.Intn(maxExercisesPer-minExercisesPer+1)
	count = min(count, len(g.exercises))
	level := a.Level * (1 + progressPerWeek*float64(week))

	var out []model.PerformanceInput
	for _, idx := range g.rng.Perm(len(g.exercises))[:count] {
		cfg := g.exercises[idx]
		sets := minSetsPerSession + g.rng.Intn(maxSetsPerSession-minSetsPerSession+1)
		for s := 0; s < sets; s++ {
			in := g.set(cfg, a.Profile, level)
			in.SetID = fmt.Sprintf("w%d-%s-%d", week, cfg.ID, s)
			out = append(out, in)
		}
	}
	return out
}

// set draws one set around the athlete's level of the elite reference.
func (g *Generator) set(cfg model.ExerciseConfig, p model.UserProfile, level float64) model.PerformanceInput {
	jitter := 0.85 + 0.3*g.rng.Float64()
	in := model.PerformanceInput{ExerciseID: cfg.ID}

	switch cfg.Type {
	case model.ExerciseCalisthenics:
		in.Reps = max(1, int(math.Round(cfg.EliteReps.For(p.Gender)*level*jitter)))
	case model.ExerciseCardio:
		in.Duration = math.Round(cfg.EliteDuration.For(p.Gender) * level * jitter)
	case model.ExerciseFreeWeight, model.ExerciseWeightedBodyweight, model.ExerciseAssistedBodyweight:
		reps := 1 + g.rng.Intn(10)
		oneRM := cfg.EliteSWR.For(p.Gender) * p.Bodyweight * level * jitter
		load := oneRM / (1 + float64(reps)/30)
		switch cfg.Type {
		case model.ExerciseWeightedBodyweight:
			load -= p.Bodyweight
		case model.ExerciseAssistedBodyweight:
			load = p.Bodyweight - load
		}
		in.Reps = reps
		in.Weight = max(0, math.Round(load/weightStep)*weightStep)
	}
	return in
}
