// Package test is the headless soak harness. It drives the engine at full
// speed with bulk commands and checks the state invariants after every phase.
package test

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/idlekernel/internal/domain/bignumber"
	"github.com/MRamiBalles/idlekernel/internal/domain/equipment"
	"github.com/MRamiBalles/idlekernel/internal/domain/item"
	"github.com/MRamiBalles/idlekernel/internal/engine"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/platform/config"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
)

// SoakOptions sizes a soak run.
type SoakOptions struct {
	Ticks       int
	Rounds      int
	Seed        int64
	DetailLimit int
	Verbose     bool
}

// DefaultSoakOptions is a run that finishes in a few seconds.
func DefaultSoakOptions() SoakOptions {
	return SoakOptions{Ticks: 2000, Rounds: 20, Seed: 1, DetailLimit: 300}
}

// TestResult captures the outcome of one scenario.
type TestResult struct {
	ScenarioName string
	Passed       bool
	Reason       string
	Duration     time.Duration
}

// SoakTest runs scenarios against a fresh engine each.
type SoakTest struct {
	opts    SoakOptions
	rng     *rand.Rand
	logger  *logger.Logger
	results []TestResult
}

// NewSoakTest creates the soak harness.
func NewSoakTest(opts SoakOptions) *SoakTest {
	log := logger.NewDiscardLogger()
	if opts.Verbose {
		log = logger.NewLogger()
	}
	return &SoakTest{
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		logger: log,
	}
}

func (t *SoakTest) newEngine() *engine.Engine {
	cfg := config.StressTestConfig()
	cfg.DetailedFieldLimit = t.opts.DetailLimit
	cfg.StartPaused = true
	opts := engine.OptionsFromConfig(cfg)
	return engine.NewEngine(opts, events.NewEventLog(nil, 1<<16, 0), t.logger, bignumber.NewFormatter(cfg.FormatCacheSize))
}

// RunAll executes every scenario and returns the results.
func (t *SoakTest) RunAll(ctx context.Context) []TestResult {
	scenarios := []struct {
		name string
		run  func(context.Context) error
	}{
		{"Land rush", t.landRush},
		{"Crop rotation", t.cropRotation},
		{"Forge chain", t.forgeChain},
		{"Save round-trip", t.saveRoundTrip},
		{"Speed gates", t.speedGates},
	}

	for _, s := range scenarios {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		err := s.run(ctx)
		r := TestResult{ScenarioName: s.name, Passed: err == nil, Duration: time.Since(start)}
		if err != nil {
			r.Reason = err.Error()
		}
		t.results = append(t.results, r)
	}
	return t.results
}

// GetResults returns all test results.
func (t *SoakTest) GetResults() []TestResult {
	return t.results
}

// landRush buys and plows in random bulk sizes while time runs.
func (t *SoakTest) landRush(ctx context.Context) error {
	e := t.newEngine()
	sizes := []int{1, 10, 100, -1}
	perRound := t.opts.Ticks / maxInt(t.opts.Rounds, 1)

	for round := 0; round < t.opts.Rounds; round++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.BuyLand(sizes[t.rng.Intn(len(sizes))])
		e.Plow(sizes[t.rng.Intn(len(sizes))])
		if t.rng.Intn(4) == 0 {
			e.ClearFields(sizes[t.rng.Intn(len(sizes))])
		}
		for i := 0; i < perRound; i++ {
			e.Tick()
		}
		if err := checkFarm(e, t.opts.DetailLimit); err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
	}
	t.logger.Infof("Land rush ended with %s fields", e.View().FieldCount)
	return nil
}

// cropRotation replants with every crop and checks harvests keep coming.
func (t *SoakTest) cropRotation(ctx context.Context) error {
	e := t.newEngine()
	e.BuyLand(t.opts.DetailLimit * 2)
	e.Plow(-1)

	for _, crop := range []string{"rice", "wheat", "beans", "ginseng"} {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.SelectCrop(crop); err != nil {
			return err
		}
		before := len(e.EventLog().GetByType(events.EventTypeHarvest))
		res := e.ResetFields()
		if res.Applied != res.Requested {
			return fmt.Errorf("reset replanted %d of %d fields", res.Applied, res.Requested)
		}
		def, _ := item.GetCrop(crop)
		for i := 0; i < def.DaysToHarvest+1; i++ {
			e.Tick()
		}
		if len(e.EventLog().GetByType(events.EventTypeHarvest)) == before {
			return fmt.Errorf("no %s harvest after %d days", crop, def.DaysToHarvest+1)
		}
		if err := checkFarm(e, t.opts.DetailLimit); err != nil {
			return fmt.Errorf("%s: %w", crop, err)
		}
	}
	return nil
}

// forgeChain merges random pairs until one item per kind is left, wearing
// equipped items in between.
func (t *SoakTest) forgeChain(ctx context.Context) error {
	e := t.newEngine()
	ids := map[equipment.Kind][]string{}
	for i := 0; i < t.opts.Rounds*2; i++ {
		kind := equipment.Weapon
		if i%2 == 1 {
			kind = equipment.Armor
		}
		eq := equipment.New(kind, fmt.Sprintf("%s #%d", strings.ToLower(string(kind)), i), "iron",
			1+t.rng.Float64()*100, 1+t.rng.Float64()*1000, 1+t.rng.Float64()*50)
		e.AddEquipment(*eq)
		ids[kind] = append(ids[kind], eq.ID)
	}

	for kind, pool := range ids {
		if len(pool) > 0 {
			if err := e.Equip(pool[0]); err != nil {
				return err
			}
		}
		for len(pool) > 1 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			out, err := e.Merge(pool[0], pool[1])
			if err != nil {
				return fmt.Errorf("merge %s: %w", kind, err)
			}
			pool = append([]string{out.ID}, pool[2:]...)
			for i := 0; i < 50; i++ {
				e.Tick()
			}
		}
	}

	// Mixed kinds must be refused without touching either item.
	all := e.Equipment()
	if len(all) != 2 {
		return fmt.Errorf("expected one weapon and one armor, have %d items", len(all))
	}
	if _, err := e.Merge(all[0].ID, all[1].ID); err == nil {
		return fmt.Errorf("weapon merged with armor")
	}
	for _, eq := range e.Equipment() {
		if eq.Durability < 0 || eq.Value < 0 || eq.Power < 0 || math.IsNaN(eq.Value) {
			return fmt.Errorf("%s has invalid stats %+v", eq.Name, eq)
		}
	}
	return nil
}

// saveRoundTrip checks that a restored engine renders the same view.
func (t *SoakTest) saveRoundTrip(ctx context.Context) error {
	e := t.newEngine()
	e.BuyLand(-1)
	e.Plow(-1)
	e.AddItem("longevity_pill", 2)
	if _, err := e.UsePill("longevity_pill"); err != nil {
		return err
	}
	for i := 0; i < t.opts.Ticks/4; i++ {
		e.Tick()
	}

	data, err := engine.MarshalSnapshot(e.Snapshot())
	if err != nil {
		return err
	}
	snap, err := engine.UnmarshalSnapshot(data)
	if err != nil {
		return err
	}
	restored := t.newEngine()
	if err := restored.Restore(snap); err != nil {
		return err
	}

	a, b := e.View(), restored.View()
	if a.FieldCount != b.FieldCount || a.Money != b.Money || a.Tick != b.Tick || len(a.Farm) != len(b.Farm) {
		return fmt.Errorf("restored view differs: %s/%s fields, %s/%s money", a.FieldCount, b.FieldCount, a.Money, b.Money)
	}
	for i := range a.Farm {
		if a.Farm[i] != b.Farm[i] {
			return fmt.Errorf("farm row %d differs after restore", i)
		}
	}
	t.logger.Infof("Round-tripped %s of save data", humanize.Bytes(uint64(len(data))))
	return nil
}

// speedGates checks locked tiers are refused and step needs a pause.
func (t *SoakTest) speedGates(ctx context.Context) error {
	e := t.newEngine()
	if e.Resume(1) {
		return fmt.Errorf("locked divider 1 accepted")
	}
	if err := e.Step(); err != nil {
		return err
	}
	e.SetUnlocks(engine.SpeedUnlocks{FastSpeed: true, FasterSpeed: true, FastestSpeed: true})
	if !e.Resume(1) {
		return fmt.Errorf("unlocked divider 1 refused")
	}
	if err := e.Step(); err == nil {
		return fmt.Errorf("step allowed while running")
	}
	e.Pause()
	return nil
}

// checkFarm verifies the aggregate agrees with the field count and no batch
// is empty.
func checkFarm(e *engine.Engine, limit int) error {
	snap := e.Snapshot().Home.Fields
	if len(snap.Detailed) > limit {
		return fmt.Errorf("%d detailed fields over limit %d", len(snap.Detailed), limit)
	}
	if len(snap.Batches) > 0 && len(snap.Detailed) < limit {
		return fmt.Errorf("batches present with only %d detailed fields", len(snap.Detailed))
	}
	total := len(snap.Detailed)
	for _, b := range snap.Batches {
		if b.Count <= 0 {
			return fmt.Errorf("batch %s/%d has count %d", b.CropID, b.DaysToHarvest, b.Count)
		}
		total += b.Count
	}
	agg := 0
	for _, row := range e.Aggregate() {
		if row.Count <= 0 {
			return fmt.Errorf("aggregate row with count %d", row.Count)
		}
		agg += row.Count
	}
	if agg != total {
		return fmt.Errorf("aggregate counts %d fields, storage holds %d", agg, total)
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
