package equipment

import "github.com/google/uuid"

// MergeRules tune the forge. A zero Efficiency is treated as 1.
type MergeRules struct {
	// Floor is the fraction of the combined stats kept when both inputs are
	// completely broken.
	Floor float64
	// Efficiency scales every merged stat.
	Efficiency float64
}

// DefaultMergeRules keeps a quarter of the combined stats for broken inputs
// and everything for pristine ones.
func DefaultMergeRules() MergeRules {
	return MergeRules{Floor: 0.25, Efficiency: 1}
}

// Merge forges a and b into a new item of the same kind. The inputs are not
// modified. Stats come from the inputs' current, decayed values:
//
//	integrity = (a.Durability + b.Durability) / (a.MaxDurability + b.MaxDurability)
//	factor    = Efficiency * (Floor + (1 - Floor) * integrity)
//
// Value, Power and MaxDurability are the sums of the inputs scaled by factor,
// and the result is fully repaired. Worn inputs can therefore produce
// something worth less than either of them.
func Merge(a, b Equipment, rules MergeRules) (Equipment, error) {
	if a.Kind != b.Kind {
		return Equipment{}, ErrIncompatibleKinds
	}
	a.clamp()
	b.clamp()

	floor := clamp01(rules.Floor)
	eff := nonNegative(rules.Efficiency)
	if eff == 0 {
		eff = 1
	}

	integrity := (a.Durability + b.Durability) / (a.MaxDurability + b.MaxDurability)
	factor := eff * (floor + (1-floor)*integrity)

	base := a
	if b.Value > a.Value {
		base = b
	}

	out := Equipment{
		ID:            uuid.NewString(),
		Name:          base.Name,
		Kind:          a.Kind,
		Material:      base.Material,
		Effect:        base.Effect,
		Power:         (a.Power + b.Power) * factor,
		Value:         (a.Value + b.Value) * factor,
		MaxDurability: (a.MaxDurability + b.MaxDurability) * factor,
	}
	out.Durability = out.MaxDurability
	out.clamp()
	return out, nil
}

func clamp01(v float64) float64 {
	v = nonNegative(v)
	if v > 1 {
		return 1
	}
	return v
}
