// Package catalog loads the read-only reference data of the ranking engine:
// exercises, the muscle hierarchy and the tier table.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/tier"
)

// Catalog is the raw reference data as written in the YAML file.
type Catalog struct {
	Exercises    []model.ExerciseConfig     `koanf:"exercises"`
	MuscleGroups []model.MuscleGroup        `koanf:"muscle_groups"`
	Muscles      []model.Muscle             `koanf:"muscles"`
	Links        []model.ExerciseMuscleLink `koanf:"exercise_muscles"`
	Tiers        []tier.Tier                `koanf:"tiers"`
	SubTiers     []tier.SubTier             `koanf:"sub_tiers"`
}

// LoadFile reads and validates a YAML catalog.
func LoadFile(_ context.Context, path string) (*ranking.Reference, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadCatalog, path, err)
	}
	var c Catalog
	if err := k.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadCatalog, path, err)
	}
	return c.Reference()
}

// Reference validates the catalog and indexes it for the engine.
func (c Catalog) Reference() (*ranking.Reference, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	table, err := tier.NewTable(c.Tiers, c.SubTiers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return ranking.NewReference(c.Exercises, c.Muscles, c.MuscleGroups, c.Links, table), nil
}

// Validate checks ids, references between entities and weights.
func (c Catalog) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidCatalog}, args...)...))
	}

	exercises := make(map[string]bool, len(c.Exercises))
	for _, e := range c.Exercises {
		switch {
		case e.ID == "":
			invalid("exercise without id")
		case exercises[e.ID]:
			invalid("duplicate exercise %s", e.ID)
		case !e.Type.Valid():
			invalid("exercise %s has unknown type %q", e.ID, e.Type)
		}
		exercises[e.ID] = true
	}

	groups := make(map[string]bool, len(c.MuscleGroups))
	for _, g := range c.MuscleGroups {
		if g.ID == "" || groups[g.ID] {
			invalid("missing or duplicate muscle group id %q", g.ID)
		}
		if g.Weight < 0 {
			invalid("muscle group %s has negative weight", g.ID)
		}
		groups[g.ID] = true
	}

	muscles := make(map[string]bool, len(c.Muscles))
	for _, m := range c.Muscles {
		if m.ID == "" || muscles[m.ID] {
			invalid("missing or duplicate muscle id %q", m.ID)
		}
		if !groups[m.GroupID] {
			invalid("muscle %s references unknown group %s", m.ID, m.GroupID)
		}
		if m.Weight < 0 || m.Weight > 1 {
			invalid("muscle %s weight %v outside [0,1]", m.ID, m.Weight)
		}
		muscles[m.ID] = true
	}

	for _, l := range c.Links {
		if !exercises[l.ExerciseID] {
			invalid("link references unknown exercise %s", l.ExerciseID)
		}
		if !muscles[l.MuscleID] {
			invalid("link references unknown muscle %s", l.MuscleID)
		}
		if l.Intensity != model.IntensityPrimary && l.Intensity != model.IntensitySecondary {
			invalid("link %s/%s has unknown intensity %q", l.ExerciseID, l.MuscleID, l.Intensity)
		}
		if l.Weight < 0 {
			invalid("link %s/%s has negative weight", l.ExerciseID, l.MuscleID)
		}
	}

	return errors.Join(errs...)
}
