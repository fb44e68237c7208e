package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/idlekernel/internal/events"
)

// JournalPersister writes journal events to a JournalRepository. It
// implements events.EventPersister.
type JournalPersister struct {
	repo    JournalRepository
	slot    string
	timeout time.Duration
	skip    map[events.EventType]bool
}

// NewJournalPersister persists events for slot. Per-tick TIME_TICK entries
// are skipped unless listed in keep.
func NewJournalPersister(repo JournalRepository, slot string, keep ...events.EventType) *JournalPersister {
	p := &JournalPersister{
		repo:    repo,
		slot:    slot,
		timeout: 5 * time.Second,
		skip:    map[events.EventType]bool{events.EventTypeTimeTick: true},
	}
	for _, t := range keep {
		delete(p.skip, t)
	}
	return p
}

// Append implements events.EventPersister.
func (p *JournalPersister) Append(e events.GameEvent) error {
	if p.skip[e.Type] {
		return nil
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, JournalEntry{
		ID:        e.ID,
		Slot:      p.slot,
		Seq:       e.Seq,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Payload:   payload,
		GameDay:   e.GameDay,
	})
}

var _ events.EventPersister = (*JournalPersister)(nil)
