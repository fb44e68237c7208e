package engine

import (
	"github.com/MRamiBalles/idlekernel/internal/domain/effects"
	"github.com/MRamiBalles/idlekernel/internal/domain/farm"
	"github.com/MRamiBalles/idlekernel/internal/domain/item"
)

// FarmRow is one aggregated farm line with formatted numbers.
type FarmRow struct {
	farm.DisplayBatch
	CountText string `json:"count_text"`
	FoodText  string `json:"food_text"`
}

// EquipmentRow is one owned item with its tooltip.
type EquipmentRow struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Equipped bool     `json:"equipped"`
	Stats    []string `json:"stats"`
	Tooltip  string   `json:"tooltip"`
}

// StateView is the read-only, formatted projection sent to clients.
type StateView struct {
	Tick        int64                   `json:"tick"`
	Divider     int                     `json:"divider"`
	Paused      bool                    `json:"paused"`
	Unlocks     SpeedUnlocks            `json:"unlocks"`
	Scientific  bool                    `json:"scientific"`
	Money       string                  `json:"money"`
	Food        string                  `json:"food"`
	Age         string                  `json:"age"`
	Lifespan    string                  `json:"lifespan"`
	Starving    bool                    `json:"starving"`
	Empowerment effects.EmpowermentView `json:"empowerment"`
	Land        string                  `json:"land"`
	LandPrice   string                  `json:"land_price"`
	LandQuote   effects.LandQuoteView   `json:"land_quote"`
	Crop        string                  `json:"crop"`
	FieldCount  string                  `json:"field_count"`
	Farm        []FarmRow               `json:"farm"`
	Furniture   []string                `json:"furniture"`
	Equipment   []EquipmentRow          `json:"equipment"`
	Items       map[string]int          `json:"items"`
}

// Aggregate returns the farm display batches.
func (e *Engine) Aggregate() []farm.DisplayBatch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.Home.Fields.Aggregate()
}

// View renders the current state for presentation.
func (e *Engine) View() StateView {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := e.formatter
	w := e.world
	c := w.Character

	v := StateView{
		Tick:        e.clock.TickCount,
		Divider:     e.clock.Divider,
		Paused:      e.clock.Paused,
		Unlocks:     w.Unlocks,
		Scientific:  f.Scientific(),
		Money:       f.Format(c.Money),
		Food:        f.Format(c.Food),
		Age:         effects.FormatDays(float64(c.AgeDays)),
		Lifespan:    effects.FormatDays(c.Lifespan()),
		Starving:    c.Starving,
		Empowerment: effects.Empowerment(c.EmpowermentFactor, f),
		Land:        f.Format(float64(w.Home.Land)),
		LandPrice:   f.Format(w.Home.LandPrice),
		LandQuote:   effects.LandQuote(w.Home.LandPrice, 1, c.Money, f),
		Crop:        w.Home.Crop,
		FieldCount:  f.Format(float64(w.Home.Fields.Len())),
		Items:       make(map[string]int, len(w.Items)),
	}

	for _, b := range w.Home.Fields.Aggregate() {
		v.Farm = append(v.Farm, FarmRow{
			DisplayBatch: b,
			CountText:    f.Format(float64(b.Count)),
			FoodText:     f.Format(b.Yield * float64(b.Count)),
		})
	}
	for _, st := range w.Home.FurnitureCounts() {
		if def, ok := item.GetItem(st.ID); ok {
			v.Furniture = append(v.Furniture, def.Name+": "+effects.ScaleEffectText(def.Effect, st.Quantity))
		}
	}
	for _, eq := range sortedEquipment(w.Equipment) {
		v.Equipment = append(v.Equipment, EquipmentRow{
			ID:       eq.ID,
			Name:     eq.Name,
			Kind:     string(eq.Kind),
			Equipped: eq.ID == c.WeaponID || eq.ID == c.ArmorID,
			Stats:    effects.EquipmentSummary(eq, f),
			Tooltip:  effects.EquipmentTooltip(eq, f),
		})
	}
	for k, n := range w.Items {
		v.Items[k] = n
	}
	return v
}
