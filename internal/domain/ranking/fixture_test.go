package ranking_test

import (
	"time"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/tier"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Sub-tier thresholds: Bronze I 1, Bronze II 250, Silver I 500,
// Silver II 1000, Gold I 2000, Gold II 3000, Elite 4500.
func testTable() *tier.Table {
	t, err := tier.NewTable(
		[]tier.Tier{{ID: 1, Name: "Bronze"}, {ID: 2, Name: "Silver"}, {ID: 3, Name: "Gold"}, {ID: 4, Name: "Elite"}},
		[]tier.SubTier{
			{ID: 11, TierID: 1, Name: "Bronze I", MinScore: 1},
			{ID: 12, TierID: 1, Name: "Bronze II", MinScore: 250},
			{ID: 21, TierID: 2, Name: "Silver I", MinScore: 500},
			{ID: 22, TierID: 2, Name: "Silver II", MinScore: 1000},
			{ID: 31, TierID: 3, Name: "Gold I", MinScore: 2000},
			{ID: 32, TierID: 3, Name: "Gold II", MinScore: 3000},
			{ID: 41, TierID: 4, Name: "Elite", MinScore: 4500},
		},
	)
	if err != nil {
		panic(err)
	}
	return t
}

func testReference() *ranking.Reference {
	return ranking.NewReference(
		[]model.ExerciseConfig{
			{ID: "bench", Name: "Bench Press", Type: model.ExerciseFreeWeight, Alpha: 0.15, EliteSWR: model.EliteRatio{Male: 3.0, Female: 2.0}},
			{ID: "pushups", Name: "Push-ups", Type: model.ExerciseCalisthenics, Alpha: 1, EliteReps: model.EliteRatio{Male: 100, Female: 60}},
			{ID: "row", Name: "Rowing", Type: model.ExerciseCardio, Alpha: 1, EliteDuration: model.EliteRatio{Male: 3600, Female: 3600}},
			{ID: "squat", Name: "Squat", Type: model.ExerciseFreeWeight, Alpha: 1, EliteSWR: model.EliteRatio{Male: 3.0, Female: 2.5}},
			{ID: "curl", Name: "Leg Curl", Type: model.ExerciseFreeWeight, Alpha: 1, EliteSWR: model.EliteRatio{Male: 1.5, Female: 1.2}},
		},
		[]model.Muscle{
			{ID: "pecs", Name: "Pectorals", GroupID: "chest", Weight: 0.6},
			{ID: "triceps", Name: "Triceps", GroupID: "chest", Weight: 0.4},
			{ID: "lats", Name: "Lats", GroupID: "back", Weight: 1.0},
			{ID: "quads", Name: "Quadriceps", GroupID: "legs", Weight: 0.6},
			{ID: "hamstrings", Name: "Hamstrings", GroupID: "legs", Weight: 0.4},
		},
		[]model.MuscleGroup{
			{ID: "chest", Name: "Chest", Weight: 0.4},
			{ID: "back", Name: "Back", Weight: 0.3},
			{ID: "legs", Name: "Legs", Weight: 0.3},
		},
		[]model.ExerciseMuscleLink{
			{ExerciseID: "bench", MuscleID: "pecs", Intensity: model.IntensityPrimary, Weight: 1.0},
			{ExerciseID: "bench", MuscleID: "triceps", Intensity: model.IntensityPrimary, Weight: 0.5},
			{ExerciseID: "pushups", MuscleID: "pecs", Intensity: model.IntensityPrimary, Weight: 0.8},
			{ExerciseID: "pushups", MuscleID: "triceps", Intensity: model.IntensitySecondary, Weight: 0.3},
			{ExerciseID: "row", MuscleID: "lats", Intensity: model.IntensityPrimary, Weight: 1.0},
			{ExerciseID: "squat", MuscleID: "quads", Intensity: model.IntensityPrimary, Weight: 1.0},
			{ExerciseID: "curl", MuscleID: "hamstrings", Intensity: model.IntensityPrimary, Weight: 1.0},
		},
		testTable(),
	)
}

func applyPayload(ranks model.UserRanks, p ranking.Payload) model.UserRanks {
	next := ranks.Clone()
	for _, s := range p.Rows() {
		next.Put(s)
	}
	return next
}
