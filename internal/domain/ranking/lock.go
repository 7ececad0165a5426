package ranking

import "github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"

// ShouldFreeze reports whether an entity must be left untouched this pass.
// Only muscles and muscle groups of free accounts freeze, and only on
// workout-sourced runs once their state is unlocked.
func ShouldFreeze(kind model.EntityKind, source model.Source, premium, currentlyLocked bool) bool {
	return kind.Lockable() && source == model.SourceWorkout && !premium && !currentlyLocked
}

// LockedAfterUpdate is the locked flag written by an applied update.
func LockedAfterUpdate(source model.Source, premium bool) bool {
	if source == model.SourceWorkout {
		return !premium
	}
	return false
}
