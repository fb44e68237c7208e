package equipment

// DecayCurve describes how one use wears an item down. Curves are catalog
// data; LinearDecay is the default.
type DecayCurve interface {
	Decay(e Equipment) Equipment
}

// LinearDecay removes a fixed amount of durability per use and a fraction of
// the current value. Broken items lose value BrokenMultiplier times faster.
type LinearDecay struct {
	DurabilityPerUse float64
	ValueFraction    float64
	BrokenMultiplier float64
}

// DefaultDecay is used when no curve is configured.
func DefaultDecay() LinearDecay {
	return LinearDecay{DurabilityPerUse: 1, ValueFraction: 0.001, BrokenMultiplier: 10}
}

// Decay implements DecayCurve.
func (d LinearDecay) Decay(e Equipment) Equipment {
	frac := d.ValueFraction
	if e.Broken() && d.BrokenMultiplier > 0 {
		frac *= d.BrokenMultiplier
	}
	if frac > 1 {
		frac = 1
	}
	e.Durability -= d.DurabilityPerUse
	e.Value -= e.Value * frac
	e.clamp()
	return e
}

// Use applies one use of curve to e in place. A nil curve uses DefaultDecay.
func Use(e *Equipment, curve DecayCurve) {
	if curve == nil {
		curve = DefaultDecay()
	}
	*e = curve.Decay(*e)
}
