// Package home owns the player's land: fallow acres, the planted field
// collection and the furniture placed in the house.
// This package is PURE and must NOT import any infrastructure packages.
package home

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/MRamiBalles/idlekernel/internal/domain/farm"
	"github.com/MRamiBalles/idlekernel/internal/domain/item"
	"github.com/MRamiBalles/idlekernel/internal/domain/quantity"
)

// LandPriceStep is how much the next acre's price rises per acre bought.
const LandPriceStep = 10

var (
	ErrUnknownCrop  = errors.New("home: unknown crop")
	ErrNotFurniture = errors.New("home: item is not furniture")
	ErrSlotMismatch = errors.New("home: furniture does not fit slot")
)

// Options configures a new Home.
type Options struct {
	Land        int
	LandPrice   float64
	DetailLimit int
	AutoReplant bool
}

// Home is the land and house state of one character.
type Home struct {
	Land        int // fallow acres, ready to plow
	LandPrice   float64
	Crop        string
	AutoReplant bool
	Fields      *farm.Fields
	Furniture   map[string]string // slot -> furniture item id
}

// New creates a home with the given starting land and price.
func New(opts Options) *Home {
	if opts.LandPrice <= 0 {
		opts.LandPrice = 100
	}
	if opts.Land < 0 {
		opts.Land = 0
	}
	return &Home{
		Land:        opts.Land,
		LandPrice:   opts.LandPrice,
		Crop:        item.DefaultCrop,
		AutoReplant: opts.AutoReplant,
		Fields:      farm.NewFields(opts.DetailLimit),
		Furniture:   make(map[string]string),
	}
}

// LandCost is the price of count acres starting at price, where every acre
// costs LandPriceStep more than the previous one.
func LandCost(price float64, count int) float64 {
	if count <= 0 {
		return 0
	}
	n := float64(count)
	return price*n + LandPriceStep*(n*(n-1)/2)
}

// AffordableLand returns the largest number of acres whose LandCost fits in money.
func AffordableLand(price, money float64) int {
	if money <= 0 || price <= 0 || math.IsNaN(money) {
		return 0
	}
	if math.IsInf(money, 1) {
		return math.MaxInt32
	}
	// 5n^2 + (price-5)n - money <= 0
	b := price - LandPriceStep/2
	est := math.Floor((-b + math.Sqrt(b*b+2*LandPriceStep*money)) / LandPriceStep)
	if est >= math.MaxInt32 {
		return math.MaxInt32
	}
	n := int(est)
	if n < 0 {
		n = 0
	}
	// The closed form is off by at most a rounding step or two.
	for i := 0; i < 4 && n > 0 && LandCost(price, n) > money; i++ {
		n--
	}
	for i := 0; i < 4 && LandCost(price, n+1) <= money; i++ {
		n++
	}
	return n
}

// BuyLand buys up to requested acres (-1 for as many as money allows).
// It returns the acres bought, what they cost, and whether the request was
// clamped by the budget.
func (h *Home) BuyLand(requested int, money float64) (bought int, cost float64, clamped bool) {
	bought, clamped = quantity.Resolve(requested, AffordableLand(h.LandPrice, money))
	if bought == 0 {
		return 0, 0, clamped
	}
	cost = LandCost(h.LandPrice, bought)
	h.Land += bought
	h.LandPrice += LandPriceStep * float64(bought)
	return bought, cost, clamped
}

// Plow turns fallow acres into fields of the selected crop.
func (h *Home) Plow(requested int) (int, bool) {
	n, clamped := quantity.Resolve(requested, h.Land)
	if n == 0 {
		return 0, clamped
	}
	crop, ok := item.GetCrop(h.Crop)
	if !ok {
		crop, _ = item.GetCrop(item.DefaultCrop)
	}
	h.Fields.Add(n, crop.ID, crop.Yield, crop.DaysToHarvest)
	h.Land -= n
	return n, clamped
}

// Clear removes fields and returns their acres to fallow.
func (h *Home) Clear(requested int) (int, bool) {
	n, clamped := quantity.Resolve(requested, h.Fields.Len())
	if n == 0 {
		return 0, clamped
	}
	removed := h.Fields.Remove(n)
	h.Land += removed
	return removed, clamped
}

// ResetFields clears every field and replants the same number with the
// selected crop.
func (h *Home) ResetFields() int {
	total := h.Fields.Len()
	h.Clear(-1)
	n, _ := h.Plow(total)
	return n
}

// SelectCrop sets the crop used by future plowing.
func (h *Home) SelectCrop(id string) error {
	if _, ok := item.GetCrop(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCrop, id)
	}
	h.Crop = id
	return nil
}

// Advance runs one day of growth. Harvested acres go back to fallow and are
// replanted straight away when AutoReplant is on.
func (h *Home) Advance() farm.Harvest {
	harvest := h.Fields.Advance()
	h.Land += harvest.Fields
	if h.AutoReplant && harvest.Fields > 0 {
		h.Plow(harvest.Fields)
	}
	return harvest
}

// PlaceFurniture puts the furniture item id into slot, replacing what was
// there. It returns the id it replaced, if any.
func (h *Home) PlaceFurniture(slot, id string) (string, error) {
	def, ok := item.GetItem(id)
	if !ok || def.Type != item.TypeFurniture {
		return "", fmt.Errorf("%w: %q", ErrNotFurniture, id)
	}
	if def.Slot != slot {
		return "", fmt.Errorf("%w: %q goes in %q, not %q", ErrSlotMismatch, id, def.Slot, slot)
	}
	prev := h.Furniture[slot]
	h.Furniture[slot] = id
	return prev, nil
}

// FurnitureCounts returns how many pieces of each furniture item are placed,
// sorted by item id.
func (h *Home) FurnitureCounts() []item.ItemStack {
	counts := make(map[string]int)
	for _, id := range h.Furniture {
		counts[id]++
	}
	out := make([]item.ItemStack, 0, len(counts))
	for id, n := range counts {
		out = append(out, item.ItemStack{ID: id, Quantity: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
