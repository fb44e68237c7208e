package engine

import (
	"fmt"

	"github.com/MRamiBalles/idlekernel/internal/domain/farm"
	"github.com/MRamiBalles/idlekernel/internal/domain/item"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
)

// PillResult reports what a consumed pill did.
type PillResult struct {
	ItemID  string        `json:"item_id"`
	Kind    item.PillKind `json:"kind"`
	Power   float64       `json:"power"`
	Gained  float64       `json:"gained"`
	Clamped bool          `json:"clamped"`
}

// CharacterSystem ages the character, pays daily income and applies pills.
type CharacterSystem struct {
	eventLog    *events.EventLog
	logger      *logger.Logger
	dailyIncome float64
}

func NewCharacterSystem(el *events.EventLog, log *logger.Logger, dailyIncome float64) *CharacterSystem {
	return &CharacterSystem{eventLog: el, logger: log, dailyIncome: dailyIncome}
}

// OnTimeTick runs one day for the character and returns the income paid.
func (cs *CharacterSystem) OnTimeTick(w *World, tick int64, _ farm.Harvest, quiet bool) float64 {
	c := w.Character
	wasExpired := c.Expired()
	day := c.Advance(cs.dailyIncome)

	if !wasExpired && c.Expired() {
		cs.logger.Warnf("Lifespan reached at day %d", c.AgeDays)
		if !quiet && cs.eventLog != nil {
			cs.eventLog.Append(events.GameEvent{
				Type:    events.EventTypeLifespanExpired,
				ActorID: events.ActorSystem,
				Payload: map[string]interface{}{"age_days": c.AgeDays, "lifespan": c.Lifespan()},
				GameDay: tick,
			})
		}
	}
	return day.Income
}

// UsePill consumes one pill of itemID.
func (cs *CharacterSystem) UsePill(w *World, itemID string, tick int64) (PillResult, error) {
	if w.Items[itemID] <= 0 {
		return PillResult{}, fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	def, ok := item.GetItem(itemID)
	if !ok || def.Type != item.TypePill {
		return PillResult{}, fmt.Errorf("%w: %q is not a pill", ErrUnknownItem, itemID)
	}

	res := PillResult{ItemID: itemID, Kind: def.Pill, Power: def.Power}
	switch def.Pill {
	case item.PillLongevity:
		res.Gained = w.Character.ApplyLongevity(def.Power)
		res.Clamped = res.Gained < def.Power
	case item.PillEmpowerment:
		w.Character.ApplyEmpowerment(def.Power)
		res.Gained = def.Power
	}

	if w.Items[itemID] <= 1 {
		delete(w.Items, itemID)
	} else {
		w.Items[itemID]--
	}

	if cs.eventLog != nil {
		cs.eventLog.Append(events.GameEvent{
			Type:    events.EventTypePillConsumed,
			ActorID: events.ActorPlayer,
			Payload: res,
			GameDay: tick,
		})
	}
	cs.logger.Info(fmt.Sprintf("[CHARACTER] Consumed %s (+%g)", itemID, res.Gained))
	return res, nil
}
