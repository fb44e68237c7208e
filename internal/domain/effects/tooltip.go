package effects

import (
	"strings"

	"github.com/MRamiBalles/idlekernel/internal/domain/bignumber"
	"github.com/MRamiBalles/idlekernel/internal/domain/character"
	"github.com/MRamiBalles/idlekernel/internal/domain/equipment"
	"github.com/MRamiBalles/idlekernel/internal/domain/item"
)

// WearWarning is appended to every equipment tooltip.
const WearWarning = "The durability and value of equipment degrades with use. " +
	"Be careful when merging powerful items that have seen a lot of wear, " +
	"the product may be even lower quality than the original if the item's value is low."

// EquipmentSummary returns the stat lines for e.
func EquipmentSummary(e equipment.Equipment, f *bignumber.Formatter) []string {
	lines := make([]string, 0, 3)
	if e.Kind == equipment.Weapon {
		lines = append(lines, "• Base Damage: "+format(f, e.Power))
	} else {
		lines = append(lines, "• Defense: "+format(f, e.Power))
	}
	return append(lines,
		"• Durability: "+format(f, e.Durability),
		"• Value: "+format(f, e.Value),
	)
}

// EquipmentTooltip renders the full tooltip for a weapon or piece of armor.
func EquipmentTooltip(e equipment.Equipment, f *bignumber.Formatter) string {
	noun, plural := "weapon", "weapons"
	if e.Kind == equipment.Armor {
		noun, plural = "piece of armor", "armor"
	}
	flavor := "A unique " + noun + " made of " + e.Material
	if e.Effect != "" {
		flavor += " and imbued with the power of " + e.Effect
	}
	flavor += "."

	return strings.Join([]string{
		e.Name,
		flavor,
		strings.Join(EquipmentSummary(e, f), "\n"),
		"Merge onto similar " + plural + " to combine them into something better.",
		WearWarning,
	}, "\n\n")
}

// ItemTooltip renders the tooltip for a catalog item. c may be nil, in which
// case pill effects are shown for a fresh character.
func ItemTooltip(def item.ItemDefinition, c *character.Character, f *bignumber.Formatter) string {
	if c == nil {
		c = character.New(0)
	}
	lines := []string{def.Name, "", def.Description}

	stats := []string{"• Type: " + typeName(def.Type)}
	if def.BaseValue > 0 {
		stats = append(stats, "• Value: "+format(f, def.BaseValue)+" taels")
	}
	if def.Type == item.TypeFurniture {
		stats = append(stats, "• Slot: "+def.Slot)
		if def.Effect != "" {
			stats = append(stats, "• Bonus: "+def.Effect)
		}
	}
	lines = append(lines, "")
	lines = append(lines, stats...)

	switch def.Pill {
	case item.PillLongevity:
		v := Longevity(def.Power, c.AlchemyLifespan)
		lines = append(lines, "", "Effects:", "• "+v.Lines[0], "", v.Lines[1])
	case item.PillEmpowerment:
		v := Empowerment(c.EmpowermentFactor, f)
		lines = append(lines, "", "Effects:", "• Multiplies attribute gains.", "", v.Line)
	}
	return strings.Join(lines, "\n")
}

func typeName(t item.ItemType) string {
	s := strings.ToLower(string(t))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
