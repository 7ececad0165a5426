// Package tier resolves scores to rank tiers against a threshold table.
package tier

import (
	"cmp"
	"fmt"
	"slices"
	"sort"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
)

// Tier is a named rank level. IDs must be positive.
type Tier struct {
	ID   int    `koanf:"id" json:"id"`
	Name string `koanf:"name" json:"name"`
}

// SubTier is a finer level inside a Tier, reached at MinScore.
type SubTier struct {
	ID       int    `koanf:"id" json:"id"`
	TierID   int    `koanf:"tier_id" json:"tier_id"`
	Name     string `koanf:"name" json:"name"`
	MinScore int    `koanf:"min_score" json:"min_score"`
}

// Placement is a resolved tier and sub-tier.
type Placement struct {
	Tier    Tier
	SubTier SubTier
}

// Ref converts the placement to a stored tier reference.
func (p Placement) Ref() model.TierRef {
	return model.TierRef{TierID: p.Tier.ID, SubTierID: p.SubTier.ID}
}

// Table is a validated, read-only threshold table. It is safe for
// concurrent use.
type Table struct {
	subtiers []SubTier // ascending by MinScore
	tiers    map[int]Tier
	subByID  map[int]SubTier
	order    map[int]int // tier id -> position, lowest tier is 1
}

// NewTable validates the threshold table. Sub-tier thresholds must be
// strictly increasing across the whole table and each tier's sub-tiers
// must form one contiguous band.
func NewTable(tiers []Tier, subtiers []SubTier) (*Table, error) {
	if len(subtiers) == 0 {
		return nil, fmt.Errorf("%w: no sub-tiers", ErrMalformedTable)
	}

	t := &Table{
		tiers:   make(map[int]Tier, len(tiers)),
		subByID: make(map[int]SubTier, len(subtiers)),
		order:   make(map[int]int, len(tiers)),
	}
	for _, tr := range tiers {
		if tr.ID <= 0 {
			return nil, fmt.Errorf("%w: tier id %d must be positive", ErrMalformedTable, tr.ID)
		}
		if _, dup := t.tiers[tr.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate tier id %d", ErrMalformedTable, tr.ID)
		}
		t.tiers[tr.ID] = tr
	}

	sorted := slices.Clone(subtiers)
	slices.SortFunc(sorted, func(a, b SubTier) int { return cmp.Compare(a.MinScore, b.MinScore) })

	for i, st := range sorted {
		if st.ID <= 0 {
			return nil, fmt.Errorf("%w: sub-tier id %d must be positive", ErrMalformedTable, st.ID)
		}
		if _, dup := t.subByID[st.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate sub-tier id %d", ErrMalformedTable, st.ID)
		}
		if _, ok := t.tiers[st.TierID]; !ok {
			return nil, fmt.Errorf("%w: sub-tier %d references unknown tier %d", ErrMalformedTable, st.ID, st.TierID)
		}
		if i > 0 && st.MinScore == sorted[i-1].MinScore {
			return nil, fmt.Errorf("%w: sub-tiers %d and %d share threshold %d",
				ErrMalformedTable, sorted[i-1].ID, st.ID, st.MinScore)
		}
		if i == 0 || sorted[i-1].TierID != st.TierID {
			if _, seen := t.order[st.TierID]; seen {
				return nil, fmt.Errorf("%w: tier %d overlaps another tier", ErrMalformedTable, st.TierID)
			}
			t.order[st.TierID] = len(t.order) + 1
		}
		t.subByID[st.ID] = st
	}
	for id := range t.tiers {
		if _, ok := t.order[id]; !ok {
			return nil, fmt.Errorf("%w: tier %d has no sub-tiers", ErrMalformedTable, id)
		}
	}
	t.subtiers = sorted

	return t, nil
}

// Resolve returns the highest sub-tier whose threshold is <= score.
// Thresholds are inclusive lower bounds.
func (t *Table) Resolve(score int) (Placement, error) {
	// First sub-tier strictly above score.
	i := sort.Search(len(t.subtiers), func(i int) bool { return t.subtiers[i].MinScore > score })
	if i == 0 {
		return Placement{}, fmt.Errorf("%w: %d", ErrNoTier, score)
	}
	st := t.subtiers[i-1]
	return Placement{Tier: t.tiers[st.TierID], SubTier: st}, nil
}

// Lookup returns the placement a stored reference points at.
func (t *Table) Lookup(ref model.TierRef) (Placement, bool) {
	st, ok := t.subByID[ref.SubTierID]
	if !ok || st.TierID != ref.TierID {
		return Placement{}, false
	}
	return Placement{Tier: t.tiers[st.TierID], SubTier: st}, true
}

// TierName returns the name of a tier, or "" when unknown.
func (t *Table) TierName(id int) string {
	return t.tiers[id].Name
}

// Higher reports whether tier next ranks strictly above tier prev.
// Tier id 0 means "no tier" and ranks below every tier.
func (t *Table) Higher(next, prev int) bool {
	return t.order[next] > t.order[prev]
}

// Len returns the number of sub-tiers.
func (t *Table) Len() int { return len(t.subtiers) }
