package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu     sync.Mutex
	events []GameEvent
	fail   bool
	block  chan struct{}
}

func (m *memPersister) Append(e GameEvent) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memPersister) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestAppendStampsEvents(t *testing.T) {
	el := NewEventLog(nil, 10, 0)
	e := el.Append(GameEvent{Type: EventTypeHarvest, ActorID: ActorSystem, GameDay: 3})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, int64(1), e.Seq)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, int64(1), el.LastSeq())
	assert.Len(t, el.GetByDay(3), 1)
	assert.Len(t, el.GetByType(EventTypeHarvest), 1)
	assert.Empty(t, el.GetByType(EventTypePaused))
}

func TestCapacityDiscardsOldest(t *testing.T) {
	el := NewEventLog(nil, 3, 0)
	for i := 0; i < 5; i++ {
		el.Append(GameEvent{Type: EventTypeTimeTick, GameDay: int64(i)})
	}
	all := el.Replay()
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].Seq)
	assert.Equal(t, int64(5), all[2].Seq)
	assert.Equal(t, 3, el.Len())
}

func TestRingWrapKeepsOrder(t *testing.T) {
	el := NewEventLog(nil, 4, 0)
	for i := 1; i <= 11; i++ {
		typ := EventTypeTimeTick
		if i%2 == 0 {
			typ = EventTypeHarvest
		}
		el.Append(GameEvent{Type: typ, GameDay: int64(i)})
	}

	seqs := func(events []GameEvent) []int64 {
		out := make([]int64, len(events))
		for i, e := range events {
			out[i] = e.Seq
		}
		return out
	}
	assert.Equal(t, []int64{8, 9, 10, 11}, seqs(el.Replay()))
	assert.Equal(t, []int64{10, 11}, seqs(el.Since(9)))
	assert.Equal(t, []int64{8, 10}, seqs(el.GetByType(EventTypeHarvest)))
	assert.Equal(t, []int64{9}, seqs(el.GetByDay(9)))
	assert.Empty(t, el.GetByDay(7))
	assert.Equal(t, 4, el.Len())
}

func TestSince(t *testing.T) {
	el := NewEventLog(nil, 100, 0)
	for i := 0; i < 10; i++ {
		el.Append(GameEvent{Type: EventTypeTimeTick})
	}
	got := el.Since(7)
	require.Len(t, got, 3)
	assert.Equal(t, int64(8), got[0].Seq)
	assert.Nil(t, el.Since(10))
	assert.Len(t, el.Since(-4), 10)
}

func TestPersisterReceivesEverything(t *testing.T) {
	p := &memPersister{}
	el := NewEventLog(p, 100, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		el.RunPersister(ctx)
		close(done)
	}()

	for i := 0; i < 20; i++ {
		el.Append(GameEvent{Type: EventTypeTimeTick})
	}
	assert.Eventually(t, func() bool { return p.count() == 20 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestPersisterQueueOverflowDrops(t *testing.T) {
	p := &memPersister{block: make(chan struct{})}
	el := NewEventLog(p, 100, 2)

	for i := 0; i < 5; i++ {
		el.Append(GameEvent{Type: EventTypeTimeTick})
	}
	assert.Equal(t, int64(3), el.Dropped())
	assert.Equal(t, 5, el.Len())

	close(p.block)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	el.RunPersister(ctx)
	assert.Equal(t, 2, p.count())
}
