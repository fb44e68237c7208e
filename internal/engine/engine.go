// Package engine contains the simulation loop and the player commands.
//
// ARCHITECTURAL RULE: all game state lives in the World owned by the Engine
// and is only touched while holding the engine lock. A tick applies every
// subsystem before any command or read can observe the state.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MRamiBalles/idlekernel/internal/domain/bignumber"
	"github.com/MRamiBalles/idlekernel/internal/domain/character"
	"github.com/MRamiBalles/idlekernel/internal/domain/equipment"
	"github.com/MRamiBalles/idlekernel/internal/domain/home"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/platform/config"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
	"github.com/MRamiBalles/idlekernel/internal/platform/metrics"
)

var (
	ErrUnknownEquipment = errors.New("engine: unknown equipment")
	ErrUnknownItem      = errors.New("engine: item not in inventory")
	ErrNotPaused        = errors.New("engine: single step requires pause")
)

// World is the complete mutable game state.
type World struct {
	Character *character.Character
	Home      *home.Home
	Equipment map[string]*equipment.Equipment
	Items     map[string]int
	Unlocks   SpeedUnlocks
}

// Options configures an Engine.
type Options struct {
	BaseInterval    time.Duration
	InitialDivider  int
	StartPaused     bool
	DetailLimit     int
	StartingMoney   float64
	StartingLand    int
	LandBasePrice   float64
	DailyIncome     float64
	AutoReplant     bool
	MaxCatchUpTicks int
	MergeRules      equipment.MergeRules
	Decay           equipment.DecayCurve
}

// OptionsFromConfig maps server configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseInterval:    cfg.BaseTickInterval,
		InitialDivider:  cfg.InitialDivider,
		StartPaused:     cfg.StartPaused,
		DetailLimit:     cfg.DetailedFieldLimit,
		StartingMoney:   cfg.StartingMoney,
		StartingLand:    cfg.StartingLand,
		LandBasePrice:   cfg.LandBasePrice,
		DailyIncome:     cfg.DailyIncome,
		AutoReplant:     cfg.AutoReplant,
		MaxCatchUpTicks: cfg.MaxCatchUpTicks,
		MergeRules:      equipment.DefaultMergeRules(),
		Decay:           equipment.DefaultDecay(),
	}
}

// CommandResult reports how much of a bulk request was applied.
type CommandResult struct {
	Requested int  `json:"requested"`
	Applied   int  `json:"applied"`
	Clamped   bool `json:"clamped"`
}

// Engine is the central orchestrator owning the world, the clock and the
// subsystems that advance them.
type Engine struct {
	mu    sync.Mutex
	world *World
	clock SimClock
	opts  Options

	eventLog  *events.EventLog
	logger    *logger.Logger
	metrics   *metrics.Collector
	formatter *bignumber.Formatter

	// Sub-systems
	farmSystem      *FarmSystem
	characterSystem *CharacterSystem
	inventorySystem *InventorySystem

	// quiet suppresses per-tick journal entries during catch-up.
	quiet        bool
	clockChanged chan struct{}
}

// NewEngine initializes a fresh world and the core game systems.
func NewEngine(opts Options, eventLog *events.EventLog, log *logger.Logger, formatter *bignumber.Formatter) *Engine {
	if opts.BaseInterval <= 0 {
		opts.BaseInterval = DefaultBaseInterval
	}
	if !knownTier(opts.InitialDivider) {
		opts.InitialDivider = SpeedTiers[0]
	}
	if opts.MergeRules == (equipment.MergeRules{}) {
		opts.MergeRules = equipment.DefaultMergeRules()
	}
	if opts.Decay == nil {
		opts.Decay = equipment.DefaultDecay()
	}
	if formatter == nil {
		formatter = bignumber.NewFormatter(0)
	}

	e := &Engine{
		opts: opts,
		clock: SimClock{
			BaseInterval: opts.BaseInterval,
			Divider:      opts.InitialDivider,
			Paused:       opts.StartPaused,
		},
		eventLog:     eventLog,
		logger:       log,
		metrics:      metrics.Get(),
		formatter:    formatter,
		clockChanged: make(chan struct{}, 1),

		farmSystem:      NewFarmSystem(eventLog, log),
		characterSystem: NewCharacterSystem(eventLog, log, opts.DailyIncome),
		inventorySystem: NewInventorySystem(eventLog, log, opts.MergeRules, opts.Decay),
	}
	e.world = e.newWorld()
	return e
}

func (e *Engine) newWorld() *World {
	return &World{
		Character: character.New(e.opts.StartingMoney),
		Home: home.New(home.Options{
			Land:        e.opts.StartingLand,
			LandPrice:   e.opts.LandBasePrice,
			DetailLimit: e.opts.DetailLimit,
			AutoReplant: e.opts.AutoReplant,
		}),
		Equipment: make(map[string]*equipment.Equipment),
		Items:     make(map[string]int),
	}
}

// Formatter exposes the number formatter shared with the presentation layer.
func (e *Engine) Formatter() *bignumber.Formatter {
	return e.formatter
}

// EventLog exposes the journal.
func (e *Engine) EventLog() *events.EventLog {
	return e.eventLog
}

// ClockChanged signals whenever pause state or speed changes. The scheduler
// waits on it.
func (e *Engine) ClockChanged() <-chan struct{} {
	return e.clockChanged
}

func (e *Engine) notifyClock() {
	select {
	case e.clockChanged <- struct{}{}:
	default:
	}
}

// Clock returns a copy of the clock.
func (e *Engine) Clock() SimClock {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock
}

// Tick advances the simulation one day. Safe to call concurrently with
// commands; the whole tick is applied atomically.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickLocked()
}

// autoTick is the scheduler's tick: it checks the pause flag under the same
// lock acquisition as the tick, so a Pause that lands first always wins.
func (e *Engine) autoTick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clock.Paused {
		return false
	}
	e.tickLocked()
	return true
}

func (e *Engine) tickLocked() {
	start := time.Now()
	e.clock.TickCount++

	payload := TimeTickPayload{TickNumber: e.clock.TickCount, Divider: e.clock.Divider}
	payload.Harvest = e.farmSystem.OnTimeTick(e.world, e.clock.TickCount, e.quiet)
	payload.Income = e.characterSystem.OnTimeTick(e.world, e.clock.TickCount, payload.Harvest, e.quiet)
	e.inventorySystem.OnTimeTick(e.world, e.clock.TickCount)

	if !e.quiet {
		e.emit(events.EventTypeTimeTick, events.ActorSystem, "", payload)
	}
	e.metrics.RecordTick(time.Since(start))
}

// CatchUp runs the ticks that would have happened during elapsed, capped at
// MaxCatchUpTicks, and returns how many ran.
func (e *Engine) CatchUp(elapsed time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if elapsed <= 0 || e.opts.MaxCatchUpTicks <= 0 {
		return 0
	}
	n := int64(elapsed / e.clock.Interval())
	if n > int64(e.opts.MaxCatchUpTicks) {
		n = int64(e.opts.MaxCatchUpTicks)
	}
	if n == 0 {
		return 0
	}

	e.quiet = true
	for i := int64(0); i < n; i++ {
		e.tickLocked()
	}
	e.quiet = false

	e.emit(events.EventTypeCatchUp, events.ActorSystem, "", map[string]interface{}{
		"ticks":   n,
		"elapsed": elapsed.String(),
	})
	e.logger.Infof("Caught up %d ticks for %s offline", n, elapsed.Round(time.Second))
	return int(n)
}

// Pause stops automatic advancement. Idempotent.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clock.Paused {
		return
	}
	e.clock.Paused = true
	e.emit(events.EventTypePaused, events.ActorPlayer, "", map[string]interface{}{"paused": true})
	e.notifyClock()
}

// Resume unpauses at the given divider. A locked or unknown tier is ignored
// and Resume returns false.
func (e *Engine) Resume(divider int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.world.Unlocks.Unlocked(divider) {
		e.logger.Warnf("Speed tier %d is locked; ignoring", divider)
		return false
	}
	changed := e.clock.Paused || e.clock.Divider != divider
	e.clock.Paused = false
	e.clock.Divider = divider
	if changed {
		e.emit(events.EventTypeSpeedChanged, events.ActorPlayer, "", map[string]interface{}{"divider": divider})
		e.notifyClock()
	}
	return true
}

// TogglePause pauses a running clock or resumes a paused one at its
// current divider.
func (e *Engine) TogglePause() bool {
	if c := e.Clock(); c.Paused {
		return e.Resume(c.Divider)
	}
	e.Pause()
	return true
}

// Step advances exactly one tick while paused.
func (e *Engine) Step() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.clock.Paused {
		return ErrNotPaused
	}
	e.tickLocked()
	e.emit(events.EventTypeStepped, events.ActorPlayer, "", map[string]interface{}{"tick": e.clock.TickCount})
	return nil
}

// SetUnlocks replaces the speed unlock flags.
func (e *Engine) SetUnlocks(u SpeedUnlocks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.world.Unlocks = u
}

// SetNotation switches the formatter between standard and scientific.
func (e *Engine) SetNotation(scientific bool) {
	e.formatter.SetScientific(scientific)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emit(events.EventTypeNotationChanged, events.ActorPlayer, "", map[string]interface{}{"scientific": scientific})
}

// BuyLand buys up to quantity acres (-1 for all affordable).
func (e *Engine) BuyLand(quantity int) CommandResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.world.Character
	bought, cost, clamped := e.world.Home.BuyLand(quantity, c.Money)
	c.Spend(cost)
	res := CommandResult{Requested: quantity, Applied: bought, Clamped: clamped}
	if bought > 0 {
		e.emit(events.EventTypeLandBought, events.ActorPlayer, "", map[string]interface{}{"acres": bought, "cost": cost})
	}
	e.recordCommand(res)
	return res
}

// Plow turns fallow land into fields of the selected crop.
func (e *Engine) Plow(quantity int) CommandResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, clamped := e.world.Home.Plow(quantity)
	res := CommandResult{Requested: quantity, Applied: n, Clamped: clamped}
	if n > 0 {
		e.emit(events.EventTypeFieldsPlowed, events.ActorPlayer, "", map[string]interface{}{"fields": n, "crop": e.world.Home.Crop})
	}
	e.recordCommand(res)
	return res
}

// ClearFields removes fields, returning the land to fallow.
func (e *Engine) ClearFields(quantity int) CommandResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, clamped := e.world.Home.Clear(quantity)
	res := CommandResult{Requested: quantity, Applied: n, Clamped: clamped}
	if n > 0 {
		e.emit(events.EventTypeFieldsCleared, events.ActorPlayer, "", map[string]interface{}{"fields": n})
	}
	e.recordCommand(res)
	return res
}

// ResetFields clears every field and replants the same number.
func (e *Engine) ResetFields() CommandResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := e.world.Home.Fields.Len()
	n := e.world.Home.ResetFields()
	res := CommandResult{Requested: total, Applied: n}
	e.emit(events.EventTypeFieldsReset, events.ActorPlayer, "", map[string]interface{}{"fields": n, "crop": e.world.Home.Crop})
	e.recordCommand(res)
	return res
}

// SelectCrop sets the crop used by future plowing.
func (e *Engine) SelectCrop(cropID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.world.Home.SelectCrop(cropID); err != nil {
		e.metrics.RecordCommand(false, false)
		return err
	}
	e.emit(events.EventTypeCropSelected, events.ActorPlayer, "", map[string]interface{}{"crop": cropID})
	e.metrics.RecordCommand(true, false)
	return nil
}

// PlaceFurniture moves a furniture item from the inventory into slot. Any
// piece already there goes back to the inventory.
func (e *Engine) PlaceFurniture(slot, itemID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.world.Items[itemID] <= 0 {
		e.metrics.RecordCommand(false, false)
		return fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	prev, err := e.world.Home.PlaceFurniture(slot, itemID)
	if err != nil {
		e.metrics.RecordCommand(false, false)
		return err
	}
	e.removeItem(itemID)
	if prev != "" {
		e.world.Items[prev]++
	}
	e.emit(events.EventTypeFurniturePlaced, events.ActorPlayer, "", map[string]interface{}{"slot": slot, "item": itemID, "replaced": prev})
	e.metrics.RecordCommand(true, false)
	return nil
}

// AddItem puts n units of an item into the inventory.
func (e *Engine) AddItem(itemID string, n int) {
	if n <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.world.Items[itemID] += n
}

func (e *Engine) removeItem(itemID string) {
	if e.world.Items[itemID] <= 1 {
		delete(e.world.Items, itemID)
		return
	}
	e.world.Items[itemID]--
}

// AddEquipment puts a piece of equipment into the inventory.
func (e *Engine) AddEquipment(eq equipment.Equipment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.world.Equipment[eq.ID] = &eq
}

// Equipment returns copies of all owned equipment sorted by id.
func (e *Engine) Equipment() []equipment.Equipment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedEquipment(e.world.Equipment)
}

// Merge forges two owned items of the same kind into one.
func (e *Engine) Merge(aID, bID string) (equipment.Equipment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.inventorySystem.Merge(e.world, aID, bID, e.clock.TickCount)
	if err != nil {
		e.metrics.RecordCommand(false, false)
		return equipment.Equipment{}, err
	}
	e.metrics.RecordCommand(true, false)
	e.metrics.RecordMerge()
	return out, nil
}

// Equip wears an owned weapon or piece of armor.
func (e *Engine) Equip(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.inventorySystem.Equip(e.world, id, e.clock.TickCount)
	e.metrics.RecordCommand(err == nil, false)
	return err
}

// UsePill consumes one pill from the inventory.
func (e *Engine) UsePill(itemID string) (PillResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.characterSystem.UsePill(e.world, itemID, e.clock.TickCount)
	e.metrics.RecordCommand(err == nil, res.Clamped)
	return res, err
}

func (e *Engine) recordCommand(res CommandResult) {
	e.metrics.RecordCommand(res.Applied > 0, res.Clamped)
}

// emit appends to the journal; callers hold the lock.
func (e *Engine) emit(t events.EventType, actor, target string, payload interface{}) {
	if e.eventLog == nil {
		return
	}
	e.eventLog.Append(events.GameEvent{
		Type:     t,
		ActorID:  actor,
		TargetID: target,
		Payload:  payload,
		GameDay:  e.clock.TickCount,
	})
}

func sortedEquipment(m map[string]*equipment.Equipment) []equipment.Equipment {
	out := make([]equipment.Equipment, 0, len(m))
	for _, eq := range m {
		out = append(out, *eq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
