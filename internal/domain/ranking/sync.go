package ranking

import (
	"cmp"
	"slices"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/tier"
)

// Sync raises every leaderboard score that lags its permanent score and
// re-resolves its leaderboard tier. It returns a new rank set; ranks is not
// modified. States whose permanent score cannot be resolved keep their
// prior values and are reported as skipped.
func Sync(table *tier.Table, ranks model.UserRanks) (model.UserRanks, []Outcome) {
	synced := ranks.Clone()
	var outcomes []Outcome

	for _, s := range sortedStates(ranks.All()) {
		if s.PermanentScore <= s.LeaderboardScore {
			continue
		}
		p, err := table.Resolve(s.PermanentScore)
		if err != nil {
			outcomes = append(outcomes, skipped(Outcome{Before: s, After: s, Score: s.PermanentScore}, "leaderboard", err))
			continue
		}
		next := s
		next.LeaderboardScore = s.PermanentScore
		next.LeaderboardTier = p.Ref()
		synced.Put(next)
		outcomes = append(outcomes, Outcome{Status: StatusSynced, Before: s, After: next, Score: s.PermanentScore})
	}
	return synced, outcomes
}

var kindOrder = map[model.EntityKind]int{
	model.EntityUser:        0,
	model.EntityMuscleGroup: 1,
	model.EntityMuscle:      2,
	model.EntityExercise:    3,
}

// sortedStates orders states user, groups, muscles, exercises, then by id.
func sortedStates(states []model.RankState) []model.RankState {
	slices.SortFunc(states, compareStates)
	return states
}

func compareStates(a, b model.RankState) int {
	if c := cmp.Compare(kindOrder[a.Kind], kindOrder[b.Kind]); c != 0 {
		return c
	}
	return cmp.Compare(a.EntityID, b.EntityID)
}
