// Package equipment implements weapon and armor wear and the merge forge.
// This package is PURE and must NOT import any infrastructure packages.
package equipment

import (
	"errors"
	"math"

	"github.com/google/uuid"
)

// Kind separates weapons from armor. Only items of the same kind merge.
type Kind string

const (
	Weapon Kind = "WEAPON"
	Armor  Kind = "ARMOR"
)

// ErrIncompatibleKinds is returned when merging a weapon with armor.
var ErrIncompatibleKinds = errors.New("equipment: cannot merge different kinds")

// Equipment is one weapon or piece of armor. Power is base damage for
// weapons and defense for armor.
type Equipment struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Kind          Kind    `json:"kind"`
	Material      string  `json:"material"`
	Effect        string  `json:"effect,omitempty"`
	Power         float64 `json:"power"`
	Value         float64 `json:"value"`
	Durability    float64 `json:"durability"`
	MaxDurability float64 `json:"max_durability"`
}

// New creates fresh, fully repaired equipment with a random id.
func New(kind Kind, name, material string, power, value, durability float64) *Equipment {
	e := &Equipment{
		ID:            uuid.NewString(),
		Name:          name,
		Kind:          kind,
		Material:      material,
		Power:         power,
		Value:         value,
		Durability:    durability,
		MaxDurability: durability,
	}
	e.clamp()
	return e
}

// Broken reports whether the item has no durability left.
func (e Equipment) Broken() bool {
	return e.Durability <= 0
}

// Integrity is Durability / MaxDurability in [0, 1].
func (e Equipment) Integrity() float64 {
	if e.MaxDurability <= 0 {
		return 0
	}
	return math.Min(1, e.Durability/e.MaxDurability)
}

// clamp keeps every stat finite and non-negative.
func (e *Equipment) clamp() {
	e.Power = nonNegative(e.Power)
	e.Value = nonNegative(e.Value)
	e.MaxDurability = nonNegative(e.MaxDurability)
	if e.MaxDurability == 0 {
		e.MaxDurability = 1
	}
	e.Durability = math.Min(nonNegative(e.Durability), e.MaxDurability)
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
