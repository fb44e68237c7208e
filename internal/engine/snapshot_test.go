package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/idlekernel/internal/domain/equipment"
	"github.com/MRamiBalles/idlekernel/internal/domain/farm"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
)

func populated(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t, func(o *Options) { o.StartingMoney = 1e7 })
	e.SetUnlocks(SpeedUnlocks{FastSpeed: true})
	e.BuyLand(60)
	e.Plow(40)
	require.NoError(t, e.SelectCrop("beans"))
	e.Plow(-1)
	e.AddEquipment(*equipment.New(equipment.Weapon, "Sword", "iron", 10, 100, 50))
	e.AddItem("longevity_pill", 3)
	for i := 0; i < 7; i++ {
		e.Tick()
	}
	e.SetNotation(true)
	return e
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := populated(t)
	snap := src.Snapshot()

	data, err := MarshalSnapshot(snap)
	require.NoError(t, err)
	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	dst := newTestEngine(t)
	require.NoError(t, dst.Restore(decoded))

	got := dst.Snapshot()
	got.SavedAt = snap.SavedAt
	assert.Equal(t, snap.Clock.TickCount, got.Clock.TickCount)
	assert.Equal(t, snap.Clock.Divider, got.Clock.Divider)
	assert.Equal(t, snap.Character, got.Character)
	assert.Equal(t, snap.Home, got.Home)
	assert.Equal(t, snap.Equipment, got.Equipment)
	assert.Equal(t, snap.Items, got.Items)
	assert.Equal(t, snap.Unlocks, got.Unlocks)
	assert.True(t, got.Scientific)
	assert.Equal(t, src.Aggregate(), dst.Aggregate())
}

func TestRestoreRejectsInvalid(t *testing.T) {
	e := populated(t)
	before := e.Snapshot()

	_, err := UnmarshalSnapshot([]byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	bad := e.Snapshot()
	bad.Home.Fields.Batches = []farm.FieldBatch{{Count: -1, CropID: "rice", Yield: 1, DaysToHarvest: 3}}
	assert.ErrorIs(t, e.Restore(bad), ErrInvalidSnapshot)

	after := e.Snapshot()
	assert.Equal(t, before.Home, after.Home)
}

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	savedAt time.Time
	fail    error
}

func (m *memStore) Save(_ context.Context, slot string, _ int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[slot] = data
	return nil
}

func (m *memStore) Load(_ context.Context, slot string) ([]byte, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[slot], m.savedAt, nil
}

func TestAutosaverSaveAndLoad(t *testing.T) {
	store := &memStore{}
	src := populated(t)
	a := NewAutosaver(src, store, "main", 0, logger.NewDiscardLogger())
	require.NoError(t, a.SaveNow(context.Background()))

	dst := newTestEngine(t)
	b := NewAutosaver(dst, store, "main", 0, logger.NewDiscardLogger())
	store.savedAt = time.Now()
	ok, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, src.Snapshot().Home, dst.Snapshot().Home)

	empty := NewAutosaver(newTestEngine(t), store, "other", 0, logger.NewDiscardLogger())
	ok, err = empty.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAutosaverLoadCatchesUp(t *testing.T) {
	store := &memStore{}
	src := newTestEngine(t)
	require.True(t, src.Resume(10))
	a := NewAutosaver(src, store, "main", 0, logger.NewDiscardLogger())
	require.NoError(t, a.SaveNow(context.Background()))

	store.savedAt = time.Now().Add(-500 * time.Millisecond)
	dst := newTestEngine(t)
	ok, err := NewAutosaver(dst, store, "main", 0, logger.NewDiscardLogger()).Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	// 10ms per tick at divider 10.
	assert.GreaterOrEqual(t, dst.Clock().TickCount, int64(50))
}

func TestAutosaverRunWritesFinalSave(t *testing.T) {
	store := &memStore{}
	e := newTestEngine(t)
	a := NewAutosaver(e, store, "main", 10*time.Millisecond, logger.NewDiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.data["main"] != nil
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestAutosaverReportsStoreErrors(t *testing.T) {
	store := &memStore{fail: errors.New("disk full")}
	a := NewAutosaver(newTestEngine(t), store, "main", 0, logger.NewDiscardLogger())
	assert.Error(t, a.SaveNow(context.Background()))
}
