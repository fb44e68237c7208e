package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/idlekernel/internal/events"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "nested", "idle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveRepositoryUpsertAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteSaveRepository(openTestDB(t))

	data, savedAt, err := repo.Load(ctx, "main")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.True(t, savedAt.IsZero())

	require.NoError(t, repo.Save(ctx, "main", 10, []byte(`{"v":1}`)))
	require.NoError(t, repo.Save(ctx, "main", 20, []byte(`{"v":2}`)))
	require.NoError(t, repo.Save(ctx, "alt", 5, []byte(`{}`)))

	data, savedAt, err = repo.Load(ctx, "main")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(data))
	assert.WithinDuration(t, time.Now(), savedAt, time.Minute)

	infos, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	require.NoError(t, repo.Delete(ctx, "alt"))
	infos, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(20), infos[0].Tick)
	assert.Equal(t, 7, infos[0].Bytes)
}

func TestJournalPersisterAndQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteJournalRepository(openTestDB(t))
	p := NewJournalPersister(repo, "main")

	el := events.NewEventLog(p, 100, 100)
	el.Append(events.GameEvent{Type: events.EventTypeTimeTick, ActorID: events.ActorSystem, GameDay: 1})
	el.Append(events.GameEvent{Type: events.EventTypeLandBought, ActorID: events.ActorPlayer, GameDay: 1,
		Payload: map[string]interface{}{"acres": 3, "cost": 330.0}})
	el.Append(events.GameEvent{Type: events.EventTypeHarvest, ActorID: events.ActorSystem, GameDay: 2,
		Payload: map[string]interface{}{"fields": 1200, "food": 1440.5}})
	el.Append(events.GameEvent{Type: events.EventTypeEquipmentBroken, ActorID: events.ActorSystem, GameDay: 2})

	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	el.RunPersister(runCtx)

	all, err := repo.GetBySlot(ctx, "main")
	require.NoError(t, err)
	require.Len(t, all, 3, "TIME_TICK is not persisted")
	assert.Equal(t, int64(2), all[0].Seq)

	since, err := repo.GetSince(ctx, "main", 2, 0)
	require.NoError(t, err)
	assert.Len(t, since, 2)

	day2, err := repo.GetByGameDay(ctx, "main", 2)
	require.NoError(t, err)
	assert.Len(t, day2, 2)

	harvests, err := repo.GetByEventType(ctx, "main", "HARVEST")
	require.NoError(t, err)
	require.Len(t, harvests, 1)
	assert.JSONEq(t, `{"fields":1200,"food":1440.5}`, string(harvests[0].Payload))

	counts, err := repo.CountByType(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"LAND_BOUGHT": 1, "HARVEST": 1, "EQUIPMENT_BROKEN": 1}, counts)

	recap, err := NewReconstructor(repo).GenerateRecap(ctx, "main", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, recap.Harvests)
	assert.Equal(t, int64(1200), recap.FieldsReaped)
	assert.InDelta(t, 1440.5, recap.FoodGained, 1e-9)
	assert.Equal(t, int64(3), recap.AcresBought)
	assert.Equal(t, 1, recap.BrokenItems)
	assert.Equal(t, int64(4), recap.LastSeq)
	assert.Equal(t, "Harvested 1,200 fields for 1440.5 food.", recap.Events[1].Summary)
	assert.Equal(t, "NEGATIVE", recap.Events[2].Impact)
}

func TestRetryOp(t *testing.T) {
	cfg := retryConfig{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: 4 * time.Millisecond}

	calls := 0
	err := retryOp(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5)")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryOp(context.Background(), cfg, func() error {
		calls++
		return errors.New("no such table")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = retryOp(context.Background(), cfg, func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	assert.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := retryConfig{maxRetries: 10, baseDelay: 10 * time.Millisecond, maxDelay: 50 * time.Millisecond}
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(cfg, attempt)
		assert.Less(t, d, cfg.maxDelay+cfg.baseDelay)
	}
}
