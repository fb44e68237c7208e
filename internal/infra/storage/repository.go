// Package storage provides the persistence layer for the kernel: save slots
// holding encoded snapshots and the durable copy of the journal.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// JournalEntry mirrors the journal event structure for persistence.
type JournalEntry struct {
	ID        string          `json:"id" db:"id"`
	Slot      string          `json:"slot" db:"slot"`
	Seq       int64           `json:"seq" db:"seq"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	EventType string          `json:"event_type" db:"event_type"`
	ActorID   string          `json:"actor_id" db:"actor_id"`
	TargetID  string          `json:"target_id" db:"target_id"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	GameDay   int64           `json:"game_day" db:"game_day"`
}

// JournalRepository defines the interface for journal persistence.
type JournalRepository interface {
	// Append adds an entry to the immutable ledger.
	Append(ctx context.Context, entry JournalEntry) error

	// GetBySlot retrieves all entries for a save slot, oldest first.
	GetBySlot(ctx context.Context, slot string) ([]JournalEntry, error)

	// GetSince retrieves entries with a sequence number above seq.
	GetSince(ctx context.Context, slot string, seq int64, limit int) ([]JournalEntry, error)

	// GetByGameDay retrieves all entries from one simulated day.
	GetByGameDay(ctx context.Context, slot string, day int64) ([]JournalEntry, error)

	// GetByEventType retrieves all entries of one type.
	GetByEventType(ctx context.Context, slot string, eventType string) ([]JournalEntry, error)

	// CountByType returns the number of entries per event type.
	CountByType(ctx context.Context, slot string) (map[string]int64, error)
}

// SaveInfo describes a stored save slot without its payload.
type SaveInfo struct {
	Slot    string    `json:"slot" db:"slot"`
	Tick    int64     `json:"tick" db:"tick"`
	Bytes   int       `json:"bytes" db:"bytes"`
	SavedAt time.Time `json:"saved_at" db:"saved_at"`
}

// SaveRepository stores encoded snapshots by slot.
type SaveRepository interface {
	// Save upserts the snapshot for slot.
	Save(ctx context.Context, slot string, tick int64, data []byte) error

	// Load returns the snapshot for slot, or nil data if the slot is empty.
	Load(ctx context.Context, slot string) ([]byte, time.Time, error)

	// List returns every slot, most recently saved first.
	List(ctx context.Context) ([]SaveInfo, error)

	// Delete removes a slot.
	Delete(ctx context.Context, slot string) error
}
