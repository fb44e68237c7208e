package engine

import (
	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/idlekernel/internal/domain/farm"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
)

// HarvestPayload is attached to HARVEST events.
type HarvestPayload struct {
	Fields int                `json:"fields"`
	Food   float64            `json:"food"`
	ByCrop map[string]float64 `json:"by_crop"`
	Land   int                `json:"fallow_land"`
}

// FarmSystem grows the fields each day and banks the harvest as food.
type FarmSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

func NewFarmSystem(el *events.EventLog, log *logger.Logger) *FarmSystem {
	return &FarmSystem{eventLog: el, logger: log}
}

// OnTimeTick advances the home by one day and returns the harvest.
func (fs *FarmSystem) OnTimeTick(w *World, tick int64, quiet bool) farm.Harvest {
	h := w.Home.Advance()
	if h.Fields == 0 {
		return h
	}
	w.Character.AddFood(h.Yield)

	if quiet || fs.eventLog == nil {
		return h
	}
	fs.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeHarvest,
		ActorID: events.ActorSystem,
		Payload: HarvestPayload{Fields: h.Fields, Food: h.Yield, ByCrop: h.Food, Land: w.Home.Land},
		GameDay: tick,
	})
	if h.Fields >= 1000 {
		fs.logger.Event(string(events.EventTypeHarvest), events.ActorSystem,
			humanize.Comma(int64(h.Fields))+" fields harvested")
	}
	return h
}
