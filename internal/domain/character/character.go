// Package character holds the player's persistent stats: money, food,
// age and the lifespan and power bought with pills.
// This package is PURE and must NOT import any infrastructure packages.
package character

import "math"

const (
	// MaxAlchemyLifespan caps the lifespan gained from longevity pills (100 years).
	MaxAlchemyLifespan = 36500
	// MaxEmpowerment is the largest bonus the empowerment multiplier approaches.
	MaxEmpowerment = 99
	// DefaultBaseLifespan is a natural lifespan of 70 years.
	DefaultBaseLifespan = 70 * 365
	// StartingAgeDays is the age of a new character (18 years).
	StartingAgeDays = 18 * 365
)

// Character is the persistent state of the player.
type Character struct {
	Money             float64 `json:"money"`
	Food              float64 `json:"food"`
	AgeDays           int64   `json:"age_days"`
	BaseLifespan      float64 `json:"base_lifespan"`
	AlchemyLifespan   float64 `json:"alchemy_lifespan"`
	EmpowermentFactor float64 `json:"empowerment_factor"`
	WeaponID          string  `json:"weapon_id,omitempty"`
	ArmorID           string  `json:"armor_id,omitempty"`
	Starving          bool    `json:"starving"`
}

// New creates a character with the given starting money.
func New(money float64) *Character {
	return &Character{
		Money:             money,
		AgeDays:           StartingAgeDays,
		BaseLifespan:      DefaultBaseLifespan,
		EmpowermentFactor: 1,
	}
}

// Lifespan is the total number of days the character can live.
func (c *Character) Lifespan() float64 {
	return c.BaseLifespan + c.AlchemyLifespan
}

// Expired reports whether the character has outlived its lifespan.
func (c *Character) Expired() bool {
	return float64(c.AgeDays) >= c.Lifespan()
}

// LongevityGain is how many days a longevity pill of the given power would
// actually add, given the cap.
func LongevityGain(power, current float64) float64 {
	return math.Max(0, math.Min(power, MaxAlchemyLifespan-current))
}

// ApplyLongevity adds a longevity pill's lifespan and returns the days gained.
func (c *Character) ApplyLongevity(power float64) float64 {
	gain := LongevityGain(power, c.AlchemyLifespan)
	c.AlchemyLifespan += gain
	return gain
}

// ApplyEmpowerment raises the empowerment factor by power.
func (c *Character) ApplyEmpowerment(power float64) {
	if power > 0 && !math.IsInf(power, 0) {
		c.EmpowermentFactor += power
	}
}

// EmpowermentPills is the number of empowerment pills represented by factor.
func EmpowermentPills(factor float64) float64 {
	return math.Max(0, (factor-1)*100)
}

// EmpowermentMultiplier maps the empowerment factor onto a logistic curve
// that starts at 1 and approaches 1 + MaxEmpowerment.
func EmpowermentMultiplier(factor float64) float64 {
	pills := EmpowermentPills(factor)
	return 1 + MaxEmpowerment*(2/(1+math.Pow(1.02, -pills/3))-1)
}

// Multiplier is the character's current empowerment multiplier.
func (c *Character) Multiplier() float64 {
	return EmpowermentMultiplier(c.EmpowermentFactor)
}

// Day is the outcome of one simulated day for the character.
type Day struct {
	Income float64 `json:"income"`
	Ate    bool    `json:"ate"`
}

// Advance ages the character one day, pays income scaled by the empowerment
// multiplier and eats one unit of food.
func (c *Character) Advance(income float64) Day {
	c.AgeDays++
	d := Day{Income: income * c.Multiplier()}
	if d.Income > 0 {
		c.Money += d.Income
	}
	if c.Food >= 1 {
		c.Food--
		d.Ate = true
	}
	c.Starving = !d.Ate
	c.Clamp()
	return d
}

// AddFood stores harvested food.
func (c *Character) AddFood(amount float64) {
	c.Food += amount
	c.Clamp()
}

// Spend removes cost from the character's money.
func (c *Character) Spend(cost float64) {
	c.Money -= cost
	c.Clamp()
}

// Clamp keeps money and food finite and non-negative so the character can
// always be saved.
func (c *Character) Clamp() {
	c.Money = finite(c.Money)
	c.Food = finite(c.Food)
}

func finite(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsNaN(v), v < 0:
		return 0
	}
	return v
}
