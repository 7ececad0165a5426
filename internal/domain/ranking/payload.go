package ranking

import (
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
)

// RankUp is a feed event for an entity whose permanent tier went up.
type RankUp struct {
	UserID      string           `json:"user_id"`
	Kind        model.EntityKind `json:"kind"`
	EntityID    string           `json:"entity_id,omitempty"`
	DisplayName string           `json:"display_name,omitempty"`
	OldTier     string           `json:"old_tier,omitempty"`
	NewTier     string           `json:"new_tier"`
	NewSubTier  string           `json:"new_sub_tier"`
}

// Payload is the set of rows to upsert, batched per entity shape.
type Payload struct {
	User         *model.RankState  `json:"user,omitempty"`
	MuscleGroups []model.RankState `json:"muscle_groups,omitempty"`
	Muscles      []model.RankState `json:"muscles,omitempty"`
	Exercises    []model.RankState `json:"exercises,omitempty"`
}

// Len returns the number of rows in the payload.
func (p Payload) Len() int {
	n := len(p.MuscleGroups) + len(p.Muscles) + len(p.Exercises)
	if p.User != nil {
		n++
	}
	return n
}

// Empty reports whether there is nothing to persist.
func (p Payload) Empty() bool { return p.Len() == 0 }

// Rows returns every row: user first, then groups, muscles, exercises.
func (p Payload) Rows() []model.RankState {
	rows := make([]model.RankState, 0, p.Len())
	if p.User != nil {
		rows = append(rows, *p.User)
	}
	rows = append(rows, p.MuscleGroups...)
	rows = append(rows, p.Muscles...)
	return append(rows, p.Exercises...)
}

// BuildPayload collects the rows of synced and changed outcomes. A row
// touched by both keeps its latest state.
func BuildPayload(outcomes []Outcome) Payload {
	latest := make(map[model.EntityKey]model.RankState)
	for _, o := range outcomes {
		if o.Status != StatusChanged && o.Status != StatusSynced {
			continue
		}
		latest[o.After.Key()] = o.After
	}

	rows := make([]model.RankState, 0, len(latest))
	for _, s := range latest {
		rows = append(rows, s)
	}

	var p Payload
	for _, s := range sortedStates(rows) {
		switch s.Kind {
		case model.EntityUser:
			user := s
			p.User = &user
		case model.EntityMuscleGroup:
			p.MuscleGroups = append(p.MuscleGroups, s)
		case model.EntityMuscle:
			p.Muscles = append(p.Muscles, s)
		case model.EntityExercise:
			p.Exercises = append(p.Exercises, s)
		}
	}
	return p
}

// BuildRankUps returns one event per changed entity whose permanent tier
// rose. Muscle and muscle group events are only emitted for premium
// accounts.
func BuildRankUps(ref *Reference, premium bool, outcomes []Outcome) []RankUp {
	var events []RankUp
	for _, o := range outcomes {
		if o.Status != StatusChanged {
			continue
		}
		if o.After.Kind.Lockable() && !premium {
			continue
		}
		if !ref.Tiers.Higher(o.After.PermanentTier.TierID, o.Before.PermanentTier.TierID) {
			continue
		}
		next, ok := ref.Tiers.Lookup(o.After.PermanentTier)
		if !ok {
			continue
		}
		events = append(events, RankUp{
			UserID:      o.After.UserID,
			Kind:        o.After.Kind,
			EntityID:    o.After.EntityID,
			DisplayName: ref.DisplayName(o.After.Kind, o.After.EntityID),
			OldTier:     ref.Tiers.TierName(o.Before.PermanentTier.TierID),
			NewTier:     next.Tier.Name,
			NewSubTier:  next.SubTier.Name,
		})
	}
	return events
}
