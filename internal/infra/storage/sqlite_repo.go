package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const journalColumns = `id, slot, seq, timestamp, event_type, actor_id, target_id, payload, game_day`

// SQLiteJournalRepository implements JournalRepository for SQLite.
type SQLiteJournalRepository struct {
	db *sql.DB
}

func NewSQLiteJournalRepository(db *sql.DB) *SQLiteJournalRepository {
	return &SQLiteJournalRepository{db: db}
}

func (r *SQLiteJournalRepository) Append(ctx context.Context, entry JournalEntry) error {
	payload := string(entry.Payload)
	if payload == "" {
		payload = "null"
	}
	query := `INSERT INTO journal (` + journalColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err := retryOp(ctx, defaultRetryConfig, func() error {
		_, err := r.db.ExecContext(ctx, query,
			entry.ID, entry.Slot, entry.Seq, entry.Timestamp.UTC(), entry.EventType,
			entry.ActorID, entry.TargetID, payload, entry.GameDay,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

func (r *SQLiteJournalRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var payload string
		err := rows.Scan(
			&e.ID, &e.Slot, &e.Seq, &e.Timestamp, &e.EventType,
			&e.ActorID, &e.TargetID, &payload, &e.GameDay,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Payload = []byte(payload)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteJournalRepository) GetBySlot(ctx context.Context, slot string) ([]JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal WHERE slot = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, slot)
}

func (r *SQLiteJournalRepository) GetSince(ctx context.Context, slot string, seq int64, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT ` + journalColumns + ` FROM journal WHERE slot = ? AND seq > ? ORDER BY seq ASC LIMIT ?`
	return r.getMany(ctx, query, slot, seq, limit)
}

func (r *SQLiteJournalRepository) GetByGameDay(ctx context.Context, slot string, day int64) ([]JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal WHERE slot = ? AND game_day = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, slot, day)
}

func (r *SQLiteJournalRepository) GetByEventType(ctx context.Context, slot string, eventType string) ([]JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal WHERE slot = ? AND event_type = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, slot, eventType)
}

func (r *SQLiteJournalRepository) CountByType(ctx context.Context, slot string) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT event_type, COUNT(*) FROM journal WHERE slot = ? GROUP BY event_type`, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// ---------------------------------------------------------
// SQLiteSaveRepository
// ---------------------------------------------------------

type SQLiteSaveRepository struct {
	db *sql.DB
}

func NewSQLiteSaveRepository(db *sql.DB) *SQLiteSaveRepository {
	return &SQLiteSaveRepository{db: db}
}

func (r *SQLiteSaveRepository) Save(ctx context.Context, slot string, tick int64, data []byte) error {
	query := `
		INSERT INTO saves (slot, tick, data, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			tick=excluded.tick,
			data=excluded.data,
			saved_at=excluded.saved_at
	`
	err := retryOp(ctx, defaultRetryConfig, func() error {
		_, err := r.db.ExecContext(ctx, query, slot, tick, data, time.Now().UTC())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

func (r *SQLiteSaveRepository) Load(ctx context.Context, slot string) ([]byte, time.Time, error) {
	var data []byte
	var savedAt time.Time
	err := r.db.QueryRowContext(ctx, `SELECT data, saved_at FROM saves WHERE slot = ?`, slot).Scan(&data, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("failed to load slot: %w", err)
	}
	return data, savedAt, nil
}

func (r *SQLiteSaveRepository) List(ctx context.Context) ([]SaveInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slot, tick, length(data), saved_at FROM saves ORDER BY saved_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []SaveInfo
	for rows.Next() {
		var s SaveInfo
		if err := rows.Scan(&s.Slot, &s.Tick, &s.Bytes, &s.SavedAt); err != nil {
			return nil, err
		}
		infos = append(infos, s)
	}
	return infos, rows.Err()
}

func (r *SQLiteSaveRepository) Delete(ctx context.Context, slot string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot)
	return err
}

// Ensure the SQLite repositories implement their interfaces.
var (
	_ JournalRepository = (*SQLiteJournalRepository)(nil)
	_ SaveRepository    = (*SQLiteSaveRepository)(nil)
)
