package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
	"github.com/MRamiBalles/idlekernel/internal/platform/metrics"
)

// SaveStore persists encoded snapshots by slot.
type SaveStore interface {
	Save(ctx context.Context, slot string, tick int64, data []byte) error
	Load(ctx context.Context, slot string) ([]byte, time.Time, error)
}

// Autosaver periodically writes engine snapshots. The snapshot is taken
// under the engine lock; encoding and I/O happen on the autosaver goroutine.
type Autosaver struct {
	engine   *Engine
	store    SaveStore
	slot     string
	interval time.Duration
	logger   *logger.Logger
	metrics  *metrics.Collector

	// mu serializes writes from the timer and from explicit save commands.
	mu sync.Mutex
}

// NewAutosaver creates an autosaver writing to slot every interval.
func NewAutosaver(e *Engine, store SaveStore, slot string, interval time.Duration, log *logger.Logger) *Autosaver {
	return &Autosaver{
		engine:   e,
		store:    store,
		slot:     slot,
		interval: interval,
		logger:   log,
		metrics:  metrics.Get(),
	}
}

// Run saves every interval until ctx is done, then saves once more.
func (a *Autosaver) Run(ctx context.Context) {
	if a.interval <= 0 {
		<-ctx.Done()
	} else {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				if err := a.SaveNow(ctx); err != nil {
					a.logger.Error("Autosave failed: " + err.Error())
				}
			}
		}
	}

	final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.SaveNow(final); err != nil {
		a.logger.Error("Final save failed: " + err.Error())
		return
	}
	a.logger.Info("Final save written.")
}

// SaveNow writes a snapshot immediately.
func (a *Autosaver) SaveNow(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	snap := a.engine.Snapshot()
	data, err := MarshalSnapshot(snap)
	if err == nil {
		err = a.store.Save(ctx, a.slot, snap.Clock.TickCount, data)
	}
	a.metrics.RecordSave(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save slot %q: %w", a.slot, err)
	}

	if el := a.engine.EventLog(); el != nil {
		el.Append(events.GameEvent{
			Type:    events.EventTypeGameSaved,
			ActorID: events.ActorSystem,
			Payload: map[string]interface{}{"slot": a.slot, "bytes": len(data)},
			GameDay: snap.Clock.TickCount,
		})
	}
	a.logger.Infof("Saved slot %q at tick %s (%s)", a.slot,
		humanize.Comma(snap.Clock.TickCount), humanize.Bytes(uint64(len(data))))
	return nil
}

// Load restores the engine from slot and catches up on the time elapsed
// since the save. It returns false when the slot is empty.
func (a *Autosaver) Load(ctx context.Context) (bool, error) {
	data, savedAt, err := a.store.Load(ctx, a.slot)
	if err != nil {
		return false, fmt.Errorf("load slot %q: %w", a.slot, err)
	}
	if data == nil {
		return false, nil
	}
	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		return false, err
	}
	if err := a.engine.Restore(snap); err != nil {
		return false, err
	}
	if !snap.Clock.Paused {
		a.engine.CatchUp(time.Since(savedAt))
	}
	a.logger.Infof("Restored slot %q at tick %s", a.slot, humanize.Comma(snap.Clock.TickCount))
	return true, nil
}
