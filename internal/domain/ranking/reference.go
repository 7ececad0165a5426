// Package ranking converts exercise scores into the user's hierarchical,
// dual-track rank state. Everything here is pure: no I/O and no mutation of
// the states it is given.
package ranking

import (
	"slices"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/tier"
)

// Reference is the read-only reference data of one calculation: exercise
// catalog, muscle hierarchy and tier table. It can be shared by concurrent
// calculations.
type Reference struct {
	Exercises map[string]model.ExerciseConfig
	Tiers     *tier.Table

	muscles        map[string]model.Muscle
	groups         map[string]model.MuscleGroup
	muscleIDs      []string
	groupIDs       []string
	musclesByGroup map[string][]model.Muscle
	linksByExer    map[string][]model.ExerciseMuscleLink
	linksByMuscle  map[string][]model.ExerciseMuscleLink
}

// NewReference indexes reference data. Only primary links are kept; links
// and muscles pointing at unknown ids are ignored.
func NewReference(
	exercises []model.ExerciseConfig,
	muscles []model.Muscle,
	groups []model.MuscleGroup,
	links []model.ExerciseMuscleLink,
	tiers *tier.Table,
) *Reference {
	r := &Reference{
		Exercises:      make(map[string]model.ExerciseConfig, len(exercises)),
		Tiers:          tiers,
		muscles:        make(map[string]model.Muscle, len(muscles)),
		groups:         make(map[string]model.MuscleGroup, len(groups)),
		musclesByGroup: make(map[string][]model.Muscle, len(groups)),
		linksByExer:    make(map[string][]model.ExerciseMuscleLink),
		linksByMuscle:  make(map[string][]model.ExerciseMuscleLink),
	}
	for _, e := range exercises {
		r.Exercises[e.ID] = e
	}
	for _, g := range groups {
		r.groups[g.ID] = g
		r.groupIDs = append(r.groupIDs, g.ID)
	}
	for _, m := range muscles {
		if _, ok := r.groups[m.GroupID]; !ok {
			continue
		}
		r.muscles[m.ID] = m
		r.muscleIDs = append(r.muscleIDs, m.ID)
		r.musclesByGroup[m.GroupID] = append(r.musclesByGroup[m.GroupID], m)
	}
	for _, l := range links {
		if l.Intensity != model.IntensityPrimary {
			continue
		}
		if _, ok := r.Exercises[l.ExerciseID]; !ok {
			continue
		}
		if _, ok := r.muscles[l.MuscleID]; !ok {
			continue
		}
		r.linksByExer[l.ExerciseID] = append(r.linksByExer[l.ExerciseID], l)
		r.linksByMuscle[l.MuscleID] = append(r.linksByMuscle[l.MuscleID], l)
	}
	slices.Sort(r.muscleIDs)
	slices.Sort(r.groupIDs)
	return r
}

// Muscle returns a muscle by id.
func (r *Reference) Muscle(id string) (model.Muscle, bool) {
	m, ok := r.muscles[id]
	return m, ok
}

// Group returns a muscle group by id.
func (r *Reference) Group(id string) (model.MuscleGroup, bool) {
	g, ok := r.groups[id]
	return g, ok
}

// DisplayName returns the human readable name of an entity.
func (r *Reference) DisplayName(kind model.EntityKind, id string) string {
	switch kind {
	case model.EntityExercise:
		return r.Exercises[id].Name
	case model.EntityMuscle:
		return r.muscles[id].Name
	case model.EntityMuscleGroup:
		return r.groups[id].Name
	case model.EntityUser:
		return ""
	}
	return ""
}

// Counts returns the number of exercises, muscles and groups.
func (r *Reference) Counts() (exercises, muscles, groups int) {
	return len(r.Exercises), len(r.muscles), len(r.groups)
}
