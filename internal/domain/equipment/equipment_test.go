package equipment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sword(value, dur, max float64) Equipment {
	return Equipment{ID: "s", Name: "Sword", Kind: Weapon, Material: "iron", Power: 10, Value: value, Durability: dur, MaxDurability: max}
}

func TestMergePristineSumsStats(t *testing.T) {
	a := sword(100, 50, 50)
	b := sword(60, 30, 30)

	m, err := Merge(a, b, DefaultMergeRules())
	require.NoError(t, err)
	assert.InDelta(t, 160, m.Value, 1e-9)
	assert.InDelta(t, 20, m.Power, 1e-9)
	assert.InDelta(t, 80, m.MaxDurability, 1e-9)
	assert.Equal(t, m.MaxDurability, m.Durability)
	assert.NotEqual(t, a.ID, m.ID)
	assert.NotEmpty(t, m.ID)
}

func TestMergeWornIsNotMonotonic(t *testing.T) {
	a := sword(100, 0, 100)
	b := sword(20, 0, 100)

	m, err := Merge(a, b, DefaultMergeRules())
	require.NoError(t, err)
	// factor 0.25: 120 * 0.25 = 30, below the better input.
	assert.InDelta(t, 30, m.Value, 1e-9)
	assert.Less(t, m.Value, a.Value)
}

func TestMergeTakesDescriptorsFromHigherValue(t *testing.T) {
	a := sword(10, 5, 5)
	b := sword(90, 5, 5)
	b.Name, b.Material, b.Effect = "Jade Blade", "jade", "+5 qi"

	m, err := Merge(a, b, DefaultMergeRules())
	require.NoError(t, err)
	assert.Equal(t, "Jade Blade", m.Name)
	assert.Equal(t, "jade", m.Material)
	assert.Equal(t, "+5 qi", m.Effect)
}

func TestMergeIncompatibleKinds(t *testing.T) {
	a := sword(10, 5, 5)
	b := Equipment{Kind: Armor, Value: 10, Durability: 5, MaxDurability: 5}

	_, err := Merge(a, b, DefaultMergeRules())
	assert.ErrorIs(t, err, ErrIncompatibleKinds)
	assert.Equal(t, 10.0, a.Value)
}

func TestMergeSanitizesInputs(t *testing.T) {
	a := sword(math.NaN(), -4, 10)
	b := sword(math.Inf(1), 10, 10)

	m, err := Merge(a, b, MergeRules{Floor: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Value)
	assert.False(t, math.IsNaN(m.Power))
	assert.GreaterOrEqual(t, m.Durability, 0.0)
	// integrity 0.5, factor 0.5 + 0.5*0.5 = 0.75
	assert.InDelta(t, 15, m.MaxDurability, 1e-9)
}

func TestUseLinearDecay(t *testing.T) {
	e := sword(1000, 2, 2)
	curve := LinearDecay{DurabilityPerUse: 1, ValueFraction: 0.1, BrokenMultiplier: 5}

	Use(&e, curve)
	assert.Equal(t, 1.0, e.Durability)
	assert.InDelta(t, 900, e.Value, 1e-9)

	Use(&e, curve)
	assert.True(t, e.Broken())
	assert.InDelta(t, 810, e.Value, 1e-9)

	// Broken: half the value per use.
	Use(&e, curve)
	assert.Equal(t, 0.0, e.Durability)
	assert.InDelta(t, 405, e.Value, 1e-9)
}

func TestUseDefaultNeverGoesNegative(t *testing.T) {
	e := New(Armor, "Robe", "silk", 3, 1, 1)
	for i := 0; i < 10000; i++ {
		Use(e, nil)
	}
	assert.Equal(t, 0.0, e.Durability)
	assert.GreaterOrEqual(t, e.Value, 0.0)
	assert.Equal(t, 0.0, e.Integrity())
}
