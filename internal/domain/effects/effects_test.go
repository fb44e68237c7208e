package effects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/idlekernel/internal/domain/bignumber"
	"github.com/MRamiBalles/idlekernel/internal/domain/character"
	"github.com/MRamiBalles/idlekernel/internal/domain/equipment"
	"github.com/MRamiBalles/idlekernel/internal/domain/item"
)

func TestFormatDays(t *testing.T) {
	assert.Equal(t, "0 days", FormatDays(0))
	assert.Equal(t, "0 days", FormatDays(-3))
	assert.Equal(t, "1 day", FormatDays(1))
	assert.Equal(t, "30 days", FormatDays(30))
	assert.Equal(t, "1 year", FormatDays(365))
	assert.Equal(t, "1 year 5 days", FormatDays(370))
	assert.Equal(t, "100 years", FormatDays(36500))
}

func TestLongevityCapped(t *testing.T) {
	v := Longevity(365, character.MaxAlchemyLifespan-40)
	assert.Equal(t, 365.0, v.Nominal)
	assert.Equal(t, 40.0, v.Effective)
	assert.Equal(t, "+1 year alchemy lifespan (max 100 years).", v.Lines[0])
	assert.Equal(t, "The effective value of taking this pill will be +40 days.", v.Lines[1])

	v = Longevity(365, character.MaxAlchemyLifespan)
	assert.Equal(t, 0.0, v.Effective)
	assert.Contains(t, v.Lines[1], "+0 days")
}

func TestEmpowerment(t *testing.T) {
	v := Empowerment(1, nil)
	assert.Equal(t, 0.0, v.Pills)
	assert.InDelta(t, 1, v.Multiplier, 1e-12)
	assert.InDelta(t, 0, v.Percent, 1e-9)

	v = Empowerment(1.5, nil)
	assert.InDelta(t, 50, v.Pills, 1e-9)
	assert.Greater(t, v.Percent, 0.0)
	assert.Contains(t, v.Line, "50 empowerment pills")
}

func TestScaleEffectText(t *testing.T) {
	assert.Equal(t, "Restores 5 health", ScaleEffectText("Restores 5 health", 1))
	assert.Equal(t, "Restores 15 health and 6 stamina", ScaleEffectText("Restores 5 health and 2 stamina", 3))
	assert.Equal(t, "Increases daily income by 3.", ScaleEffectText("Increases daily income by 1.5.", 2))
	assert.Equal(t, "+0.3 luck", ScaleEffectText("+0.1 luck", 3))
	assert.Equal(t, "+0.02 animal handling", ScaleEffectText("+0.01 animal handling", 2))
	assert.Equal(t, "+1 charisma", ScaleEffectText("+0.333 charisma", 3))
}

func TestLandQuote(t *testing.T) {
	q := LandQuote(100, 3, 1000, nil)
	assert.Equal(t, 330.0, q.Cost)
	assert.Equal(t, "330", q.CostText)
	// 7 acres cost 910, 8 cost 1080.
	assert.Equal(t, 7, q.Affordable)
	assert.Equal(t, 3, q.HalfAffordable)
}

func TestParseEffects(t *testing.T) {
	got := ParseEffects("Restores 5 health, restores 2 stamina. 10% chance: gain a follower.")
	assert.Equal(t, []string{"Restores 5 health.", "restores 2 stamina.", "10% chance: gain a follower."}, got)
	assert.Empty(t, ParseEffects(""))
}

func TestEquipmentTooltip(t *testing.T) {
	f := bignumber.NewFormatter(16)
	sword := equipment.Equipment{Name: "Iron Sword", Kind: equipment.Weapon, Material: "iron", Power: 12000, Durability: 40, MaxDurability: 50, Value: 1500000}

	lines := EquipmentSummary(sword, f)
	assert.Equal(t, []string{"• Base Damage: 12k", "• Durability: 40", "• Value: 1.5M"}, lines)

	tip := EquipmentTooltip(sword, f)
	assert.True(t, strings.HasPrefix(tip, "Iron Sword\n\nA unique weapon made of iron."))
	assert.True(t, strings.HasSuffix(tip, WearWarning))

	robe := equipment.Equipment{Name: "Robe", Kind: equipment.Armor, Material: "silk", Effect: "wind", Power: 3}
	assert.Contains(t, EquipmentTooltip(robe, f), "A unique piece of armor made of silk and imbued with the power of wind.")
	assert.Equal(t, "• Defense: 3", EquipmentSummary(robe, f)[0])
}

func TestItemTooltip(t *testing.T) {
	pill, ok := item.GetItem("longevity_pill")
	require.True(t, ok)
	tip := ItemTooltip(pill, nil, nil)
	assert.Contains(t, tip, "• Type: Pill")
	assert.Contains(t, tip, "+1 year alchemy lifespan")

	mat, _ := item.GetItem("straw_mat")
	tip = ItemTooltip(mat, nil, nil)
	assert.Contains(t, tip, "• Slot: bed")
	assert.Contains(t, tip, "• Bonus: Restores 5 health")
}
