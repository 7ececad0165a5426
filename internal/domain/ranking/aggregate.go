package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
)

// musclePoolSize is the fixed number of contributions averaged per muscle.
const musclePoolSize = 3

// Aggregate holds the newly aggregated scores of the affected entities.
// An entity absent from a map is not affected by the batch.
type Aggregate struct {
	Exercises       map[string]int
	Muscles         map[string]int
	Groups          map[string]int
	Overall         int
	OverallAffected bool
}

// Aggregate runs the muscle, group and overall passes for a batch of
// exercise scores. ranks supplies the stored permanent scores used for
// entities the batch does not reach.
func (r *Reference) Aggregate(batch map[string]int, ranks model.UserRanks) Aggregate {
	agg := Aggregate{
		Exercises: make(map[string]int, len(batch)),
		Muscles:   make(map[string]int),
		Groups:    make(map[string]int),
	}

	combined := make(map[string]int, len(ranks.Exercises)+len(batch))
	for id, s := range ranks.Exercises {
		combined[id] = s.PermanentScore
	}
	for id, score := range batch {
		combined[id] = score
		agg.Exercises[id] = score
	}

	for id := range batch {
		for _, l := range r.linksByExer[id] {
			if _, done := agg.Muscles[l.MuscleID]; done {
				continue
			}
			agg.Muscles[l.MuscleID] = r.muscleScore(l.MuscleID, combined)
		}
	}

	for id := range agg.Muscles {
		m := r.muscles[id]
		if _, done := agg.Groups[m.GroupID]; done {
			continue
		}
		agg.Groups[m.GroupID] = r.groupScore(m.GroupID, agg.Muscles, ranks)
	}

	if len(agg.Groups) > 0 {
		agg.OverallAffected = true
		agg.Overall = r.overallScore(agg.Groups, ranks)
	}
	return agg
}

// muscleScore averages the top three weighted contributions, padding with
// zeros so the denominator is always three.
func (r *Reference) muscleScore(muscleID string, combined map[string]int) int {
	var contrib []float64
	for _, l := range r.linksByMuscle[muscleID] {
		if score, ok := combined[l.ExerciseID]; ok {
			contrib = append(contrib, float64(score)*l.Weight)
		}
	}
	return TopMean(contrib, musclePoolSize)
}

func (r *Reference) groupScore(groupID string, fresh map[string]int, ranks model.UserRanks) int {
	var sum float64
	for _, m := range r.musclesByGroup[groupID] {
		score, ok := fresh[m.ID]
		if !ok {
			score = ranks.Muscles[m.ID].PermanentScore
		}
		sum += float64(score) * m.Weight
	}
	return int(math.Round(sum))
}

func (r *Reference) overallScore(fresh map[string]int, ranks model.UserRanks) int {
	var sum float64
	for _, id := range r.groupIDs {
		score, ok := fresh[id]
		if !ok {
			score = ranks.MuscleGroups[id].PermanentScore
		}
		sum += float64(score) * r.groups[id].Weight
	}
	return int(math.Round(sum))
}

// TopMean returns the rounded mean of the n largest values, counting
// missing values as zero.
func TopMean(values []float64, n int) int {
	if n <= 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b float64) int { return cmp.Compare(b, a) })
	var sum float64
	for i := 0; i < n && i < len(sorted); i++ {
		sum += sorted[i]
	}
	return int(math.Round(sum / float64(n)))
}
