// Package item defines the catalog of things the kernel consumes as data:
// crops, pills, furniture and equipment blueprints.
// This package is PURE and must NOT import any infrastructure packages.
package item

// ItemType represents the kind of item.
type ItemType string

const (
	TypeCrop      ItemType = "CROP"
	TypePill      ItemType = "PILL"
	TypeFurniture ItemType = "FURNITURE"
	TypeFood      ItemType = "FOOD"
)

// PillKind selects which effect a pill applies on use.
type PillKind string

const (
	PillLongevity   PillKind = "LONGEVITY"
	PillEmpowerment PillKind = "EMPOWERMENT"
)

// ItemStack represents a quantity of a specific item.
type ItemStack struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// ItemDefinition provides metadata about an inventory item.
type ItemDefinition struct {
	ID          string
	Name        string
	Description string
	Type        ItemType
	BaseValue   float64

	// Pills
	Pill  PillKind
	Power float64 // days of lifespan, or empowerment factor gained

	// Furniture
	Slot   string
	Effect string // display text; numbers scale with duplicate pieces

	// Food
	Nutrition float64
}

// CropDefinition describes what a plowed field grows.
type CropDefinition struct {
	ID            string
	Name          string
	Yield         float64 // food per field at harvest
	DaysToHarvest int
}

// Registry contains all known inventory items.
var Registry = map[string]ItemDefinition{
	"longevity_pill": {
		ID:          "longevity_pill",
		Name:        "Pill of Longevity",
		Description: "Extends alchemical lifespan.",
		Type:        TypePill,
		BaseValue:   1000,
		Pill:        PillLongevity,
		Power:       365,
	},
	"minor_longevity_pill": {
		ID:          "minor_longevity_pill",
		Name:        "Minor Pill of Longevity",
		Description: "Extends alchemical lifespan a little.",
		Type:        TypePill,
		BaseValue:   150,
		Pill:        PillLongevity,
		Power:       30,
	},
	"empowerment_pill": {
		ID:          "empowerment_pill",
		Name:        "Pill of Empowerment",
		Description: "Permanently strengthens body and mind.",
		Type:        TypePill,
		BaseValue:   5000,
		Pill:        PillEmpowerment,
		Power:       0.01,
	},
	"straw_mat": {
		ID:        "straw_mat",
		Name:      "Straw Mat",
		Type:      TypeFurniture,
		BaseValue: 10,
		Slot:      "bed",
		Effect:    "Restores 5 health and 2 stamina each night.",
	},
	"wooden_tub": {
		ID:        "wooden_tub",
		Name:      "Wooden Tub",
		Type:      TypeFurniture,
		BaseValue: 40,
		Slot:      "bath",
		Effect:    "Increases daily income by 1.5.",
	},
	"rice_bowl": {
		ID:        "rice_bowl",
		Name:      "Bowl of Rice",
		Type:      TypeFood,
		BaseValue: 1,
		Nutrition: 1,
	},
}

// Crops contains every plantable crop.
var Crops = map[string]CropDefinition{
	"rice":    {ID: "rice", Name: "Rice", Yield: 1, DaysToHarvest: 180},
	"wheat":   {ID: "wheat", Name: "Wheat", Yield: 1.2, DaysToHarvest: 200},
	"beans":   {ID: "beans", Name: "Beans", Yield: 2, DaysToHarvest: 260},
	"ginseng": {ID: "ginseng", Name: "Ginseng", Yield: 6, DaysToHarvest: 730},
}

// DefaultCrop is planted until the player selects another one.
const DefaultCrop = "rice"

// GetItem returns the definition for an item id.
func GetItem(id string) (ItemDefinition, bool) {
	def, ok := Registry[id]
	return def, ok
}

// GetCrop returns the definition for a crop id.
func GetCrop(id string) (CropDefinition, bool) {
	def, ok := Crops[id]
	return def, ok
}
