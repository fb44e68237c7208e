package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/idlekernel/internal/domain/farm"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
)

// TimeTickPayload is the data attached to each TIME_TICK event.
type TimeTickPayload struct {
	TickNumber int64        `json:"tick_number"`
	Divider    int          `json:"divider"`
	Income     float64      `json:"income"`
	Harvest    farm.Harvest `json:"harvest"`
}

// Scheduler drives Engine.Tick at the clock's current speed. It sleeps while
// the clock is paused and re-arms immediately on speed changes.
type Scheduler struct {
	engine *Engine
	logger *logger.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	ticks    atomic.Int64
}

// NewScheduler creates a scheduler for e.
func NewScheduler(e *Engine, log *logger.Logger) *Scheduler {
	return &Scheduler{
		engine:   e,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Run is the main loop. Call in a goroutine; returns when ctx is done or
// Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)
	s.logger.Info("Scheduler started.")

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer timer.Stop()

	var deadline time.Time
	armed := false

	for {
		clock := s.engine.Clock()
		if clock.Paused {
			stopTimer(timer)
			armed = false
		} else if !armed {
			deadline = time.Now().Add(clock.Interval())
			timer.Reset(time.Until(deadline))
			armed = true
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped by context.")
			return
		case <-s.stopChan:
			s.logger.Info("Scheduler stopped manually.")
			return
		case <-s.engine.ClockChanged():
			// Pause or speed change; re-read the clock and re-arm.
			stopTimer(timer)
			armed = false
		case <-timer.C:
			if !s.engine.autoTick() {
				armed = false
				continue
			}
			s.ticks.Add(1)

			interval := s.engine.Clock().Interval()
			now := time.Now()
			deadline = deadline.Add(interval)
			// Drift correction: if we fell too far behind, restart the cadence
			// instead of bursting ticks to catch up.
			if now.Sub(deadline) > 2*interval {
				deadline = now.Add(interval)
			}
			timer.Reset(time.Until(deadline))
		}
	}
}

// Stop halts the loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Ticks returns how many ticks this scheduler has fired.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

// Running reports whether Run is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
