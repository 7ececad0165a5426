package ranking

import (
	"fmt"
	"time"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/tier"
)

// Status is the per-entity result of a pass. StatusFrozen is a kind of
// unchanged: the entity keeps its prior state and is neither persisted nor
// turned into an event; it only tells callers the lock was the reason.
type Status string

const (
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusFrozen    Status = "frozen"
	StatusSkipped   Status = "skipped"
	StatusSynced    Status = "synced"
)

// Outcome reports what a pass did to one entity. Err is set for skipped
// entities.
type Outcome struct {
	Status Status
	Before model.RankState
	After  model.RankState
	Score  int
	Err    error
}

// Update is the input of one dual-track update.
type Update struct {
	State   model.RankState
	Score   int
	Source  model.Source
	Premium bool
	Now     time.Time
	// Best is stored on exercise ranks when the permanent score improves.
	Best *model.BestSet
}

// Apply runs one entity through the dual-track update. The permanent track
// becomes max(stored, new) and the leaderboard track only moves when the
// new score beats it. Anything that leaves the permanent score and tier as
// they were passes the prior state through unchanged.
func Apply(table *tier.Table, u Update) Outcome {
	before := u.State
	out := Outcome{Status: StatusUnchanged, Before: before, After: before, Score: u.Score}

	if ShouldFreeze(before.Kind, u.Source, u.Premium, before.Locked) {
		out.Status = StatusFrozen
		return out
	}

	after := before
	after.PermanentScore = max(before.PermanentScore, u.Score)
	perm, err := table.Resolve(after.PermanentScore)
	if err != nil {
		return skipped(out, "permanent", err)
	}
	after.PermanentTier = perm.Ref()

	if u.Score > before.LeaderboardScore {
		lb, err := table.Resolve(u.Score)
		if err != nil {
			return skipped(out, "leaderboard", err)
		}
		after.LeaderboardScore = u.Score
		after.LeaderboardTier = lb.Ref()
	}

	if after.PermanentScore == before.PermanentScore && after.PermanentTier == before.PermanentTier {
		return out
	}

	if before.Kind.Lockable() {
		after.Locked = LockedAfterUpdate(u.Source, u.Premium)
	}
	if before.Kind == model.EntityExercise && after.PermanentScore > before.PermanentScore && u.Best != nil {
		after.BestSet = u.Best
	}
	after.LastCalculatedAt = u.Now

	out.Status = StatusChanged
	out.After = after
	return out
}

func skipped(out Outcome, track string, err error) Outcome {
	out.Status = StatusSkipped
	out.Err = fmt.Errorf("%s track: %w", track, err)
	return out
}
