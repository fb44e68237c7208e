package engine

import (
	"fmt"

	"github.com/MRamiBalles/idlekernel/internal/domain/equipment"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
)

// MergePayload is attached to EQUIPMENT_MERGED events.
type MergePayload struct {
	InputA equipment.Equipment `json:"input_a"`
	InputB equipment.Equipment `json:"input_b"`
	Result equipment.Equipment `json:"result"`
}

// InventorySystem handles equipment: wear from daily use, equipping and the
// merge forge.
type InventorySystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	rules    equipment.MergeRules
	decay    equipment.DecayCurve
}

func NewInventorySystem(el *events.EventLog, log *logger.Logger, rules equipment.MergeRules, decay equipment.DecayCurve) *InventorySystem {
	return &InventorySystem{eventLog: el, logger: log, rules: rules, decay: decay}
}

// OnTimeTick uses each equipped item once.
func (is *InventorySystem) OnTimeTick(w *World, tick int64) {
	for _, id := range []string{w.Character.WeaponID, w.Character.ArmorID} {
		eq, ok := w.Equipment[id]
		if id == "" || !ok {
			continue
		}
		wasBroken := eq.Broken()
		equipment.Use(eq, is.decay)
		if !wasBroken && eq.Broken() {
			is.logger.Warnf("[INVENTORY] %s broke", eq.Name)
			is.record(events.EventTypeEquipmentBroken, events.ActorSystem, id, *eq, tick)
		}
	}
}

// Equip wears id in the slot matching its kind.
func (is *InventorySystem) Equip(w *World, id string, tick int64) error {
	eq, ok := w.Equipment[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEquipment, id)
	}
	if eq.Kind == equipment.Weapon {
		w.Character.WeaponID = id
	} else {
		w.Character.ArmorID = id
	}
	is.record(events.EventTypeEquipmentEquipped, events.ActorPlayer, id, *eq, tick)
	return nil
}

// Merge replaces a and b with their merged result. If either input was
// equipped, the result takes its place. Nothing changes on error.
func (is *InventorySystem) Merge(w *World, aID, bID string, tick int64) (equipment.Equipment, error) {
	a, ok := w.Equipment[aID]
	if !ok {
		return equipment.Equipment{}, fmt.Errorf("%w: %q", ErrUnknownEquipment, aID)
	}
	b, ok := w.Equipment[bID]
	if !ok || aID == bID {
		return equipment.Equipment{}, fmt.Errorf("%w: %q", ErrUnknownEquipment, bID)
	}

	out, err := equipment.Merge(*a, *b, is.rules)
	if err != nil {
		return equipment.Equipment{}, err
	}

	delete(w.Equipment, aID)
	delete(w.Equipment, bID)
	w.Equipment[out.ID] = &out
	c := w.Character
	if c.WeaponID == aID || c.WeaponID == bID {
		c.WeaponID = out.ID
	}
	if c.ArmorID == aID || c.ArmorID == bID {
		c.ArmorID = out.ID
	}

	is.record(events.EventTypeEquipmentMerged, events.ActorPlayer, out.ID, MergePayload{InputA: *a, InputB: *b, Result: out}, tick)
	is.logger.Info(fmt.Sprintf("[INVENTORY] Merged %s + %s -> %s (value %.2f)", a.Name, b.Name, out.Name, out.Value))
	return out, nil
}

func (is *InventorySystem) record(t events.EventType, actor, target string, payload interface{}, tick int64) {
	if is.eventLog == nil {
		return
	}
	is.eventLog.Append(events.GameEvent{
		Type:     t,
		ActorID:  actor,
		TargetID: target,
		Payload:  payload,
		GameDay:  tick,
	})
}
