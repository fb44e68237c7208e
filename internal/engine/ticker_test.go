package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
)

func startScheduler(t *testing.T, e *Engine) *Scheduler {
	t.Helper()
	s := NewScheduler(e, logger.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, s.Running, time.Second, time.Millisecond)
	return s
}

func TestSchedulerIdleWhilePaused(t *testing.T) {
	e := newTestEngine(t)
	s := startScheduler(t, e)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), s.Ticks())
	assert.Equal(t, int64(0), e.Clock().TickCount)
}

func TestAutoTickRespectsPause(t *testing.T) {
	e := newTestEngine(t)
	assert.False(t, e.autoTick())
	assert.Equal(t, int64(0), e.Clock().TickCount)

	require.True(t, e.Resume(40))
	assert.True(t, e.autoTick())
	e.Pause()
	assert.False(t, e.autoTick())
	assert.Equal(t, int64(1), e.Clock().TickCount)
}

func TestNoTickAfterPauseReturns(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.BaseInterval = 50 * time.Microsecond })
	startScheduler(t, e)

	for i := 0; i < 50; i++ {
		require.True(t, e.Resume(40))
		time.Sleep(time.Duration(i%5) * 100 * time.Microsecond)
		e.Pause()
		paused := e.Clock().TickCount
		time.Sleep(time.Millisecond)
		require.Equal(t, paused, e.Clock().TickCount, "round %d", i)
	}
}

func TestSchedulerTicksAfterResume(t *testing.T) {
	e := newTestEngine(t)
	s := startScheduler(t, e)

	require.True(t, e.Resume(10))
	assert.Eventually(t, func() bool { return s.Ticks() >= 5 }, 2*time.Second, 5*time.Millisecond)

	e.Pause()
	// Allow an in-flight tick to land, then expect the count to hold.
	time.Sleep(30 * time.Millisecond)
	held := e.Clock().TickCount
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, held, e.Clock().TickCount)
}

func TestSchedulerSpeedChangeTakesEffect(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.BaseInterval = 5 * time.Millisecond })
	e.SetUnlocks(SpeedUnlocks{FastSpeed: true, FasterSpeed: true, FastestSpeed: true})
	s := startScheduler(t, e)

	// 40 * 5ms = 200ms per tick: nothing within 100ms.
	require.True(t, e.Resume(40))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), s.Ticks())

	// 1 * 5ms per tick.
	require.True(t, e.Resume(1))
	assert.Eventually(t, func() bool { return s.Ticks() >= 10 }, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	s := NewScheduler(e, logger.NewDiscardLogger())
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	require.Eventually(t, s.Running, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, s.Running())
}

func TestSpeedUnlocks(t *testing.T) {
	var u SpeedUnlocks
	assert.True(t, u.Unlocked(40))
	assert.True(t, u.Unlocked(10))
	assert.False(t, u.Unlocked(5))
	assert.False(t, u.Unlocked(3))

	u.FastSpeed = true
	assert.True(t, u.Unlocked(5))
	assert.False(t, u.Unlocked(2))

	c := SimClock{BaseInterval: 25 * time.Millisecond, Divider: 40}
	assert.Equal(t, time.Second, c.Interval())
	c.Divider = 1
	assert.Equal(t, 25*time.Millisecond, c.Interval())
}
