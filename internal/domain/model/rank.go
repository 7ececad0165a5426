package model

import "time"

// EntityKind names the four ranked entity shapes.
type EntityKind string

const (
	EntityUser        EntityKind = "user"
	EntityMuscleGroup EntityKind = "muscle_group"
	EntityMuscle      EntityKind = "muscle"
	EntityExercise    EntityKind = "exercise"
)

// Lockable reports whether the locking policy applies to the kind.
func (k EntityKind) Lockable() bool {
	return k == EntityMuscle || k == EntityMuscleGroup
}

// TierRef points into the tier table. The zero value means "no tier".
type TierRef struct {
	TierID    int `json:"tier_id"`
	SubTierID int `json:"sub_tier_id"`
}

// IsZero reports whether the reference is empty.
func (r TierRef) IsZero() bool { return r.TierID == 0 && r.SubTierID == 0 }

// BestSet is the set that produced an exercise's permanent score.
// OneRepMax and SWR are nil for reps- and duration-scored exercises.
type BestSet struct {
	Weight     float64  `json:"weight"`
	Reps       int      `json:"reps"`
	Duration   float64  `json:"duration"`
	Bodyweight float64  `json:"bodyweight"`
	OneRepMax  *float64 `json:"one_rep_max,omitempty"`
	SWR        *float64 `json:"swr,omitempty"`
	SetID      string   `json:"set_id,omitempty"`
}

// RankState is the stored dual-track rank of one (user, entity) pair.
// EntityID is empty for the user-level rank. Values are treated as
// immutable: updates produce a modified copy.
type RankState struct {
	Kind             EntityKind `json:"kind"`
	UserID           string     `json:"user_id"`
	EntityID         string     `json:"entity_id,omitempty"`
	PermanentScore   int        `json:"permanent_score"`
	PermanentTier    TierRef    `json:"permanent_tier"`
	LeaderboardScore int        `json:"leaderboard_score"`
	LeaderboardTier  TierRef    `json:"leaderboard_tier"`
	// Locked is only meaningful for muscles and muscle groups.
	Locked           bool      `json:"locked"`
	LastCalculatedAt time.Time `json:"last_calculated_at"`
	BestSet          *BestSet  `json:"best_set,omitempty"`
}

// Key identifies the state inside one user's rank set.
func (s RankState) Key() EntityKey {
	return EntityKey{Kind: s.Kind, ID: s.EntityID}
}

// EntityKey identifies a ranked entity for one user.
type EntityKey struct {
	Kind EntityKind
	ID   string
}

// NewRankState returns the starting state for an entity with no stored row.
// Fresh lockable rows start locked so a first calculation is never frozen.
func NewRankState(userID string, kind EntityKind, entityID string) RankState {
	return RankState{
		Kind:     kind,
		UserID:   userID,
		EntityID: entityID,
		Locked:   kind.Lockable(),
	}
}

// UserRanks is every stored rank of one user, keyed by entity id.
type UserRanks struct {
	User         *RankState
	MuscleGroups map[string]RankState
	Muscles      map[string]RankState
	Exercises    map[string]RankState
}

// NewUserRanks returns an empty, ready to fill rank set.
func NewUserRanks() UserRanks {
	return UserRanks{
		MuscleGroups: make(map[string]RankState),
		Muscles:      make(map[string]RankState),
		Exercises:    make(map[string]RankState),
	}
}

// Get returns the stored state for key.
func (u UserRanks) Get(key EntityKey) (RankState, bool) {
	switch key.Kind {
	case EntityUser:
		if u.User == nil {
			return RankState{}, false
		}
		return *u.User, true
	case EntityMuscleGroup:
		s, ok := u.MuscleGroups[key.ID]
		return s, ok
	case EntityMuscle:
		s, ok := u.Muscles[key.ID]
		return s, ok
	case EntityExercise:
		s, ok := u.Exercises[key.ID]
		return s, ok
	}
	return RankState{}, false
}

// All returns every stored state: user first, then groups, muscles, exercises.
// Order inside a kind follows map iteration; callers needing determinism sort.
func (u UserRanks) All() []RankState {
	out := make([]RankState, 0, 1+len(u.MuscleGroups)+len(u.Muscles)+len(u.Exercises))
	if u.User != nil {
		out = append(out, *u.User)
	}
	for _, s := range u.MuscleGroups {
		out = append(out, s)
	}
	for _, s := range u.Muscles {
		out = append(out, s)
	}
	for _, s := range u.Exercises {
		out = append(out, s)
	}
	return out
}

// Clone returns a copy whose maps can be modified without touching u.
func (u UserRanks) Clone() UserRanks {
	c := NewUserRanks()
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	for k, v := range u.MuscleGroups {
		c.MuscleGroups[k] = v
	}
	for k, v := range u.Muscles {
		c.Muscles[k] = v
	}
	for k, v := range u.Exercises {
		c.Exercises[k] = v
	}
	return c
}

// With returns a copy of u with s stored under its key.
func (u UserRanks) With(s RankState) UserRanks {
	c := u.Clone()
	c.Put(s)
	return c
}

// Put stores s under its key. The maps must be owned by the caller.
func (u *UserRanks) Put(s RankState) {
	if u.MuscleGroups == nil || u.Muscles == nil || u.Exercises == nil {
		*u = u.Clone()
	}
	switch s.Kind {
	case EntityUser:
		u.User = &s
	case EntityMuscleGroup:
		u.MuscleGroups[s.EntityID] = s
	case EntityMuscle:
		u.Muscles[s.EntityID] = s
	case EntityExercise:
		u.Exercises[s.EntityID] = s
	}
}
