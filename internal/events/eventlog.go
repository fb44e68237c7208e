// Package events is the kernel's journal: an in-memory, bounded, append-only
// record of ticks and player commands, optionally written through to durable
// storage by a background persister.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/idlekernel/internal/platform/metrics"
)

// EventType defines the category of a journal event.
type EventType string

const (
	EventTypeTimeTick          EventType = "TIME_TICK"
	EventTypeHarvest           EventType = "HARVEST"
	EventTypeLandBought        EventType = "LAND_BOUGHT"
	EventTypeFieldsPlowed      EventType = "FIELDS_PLOWED"
	EventTypeFieldsCleared     EventType = "FIELDS_CLEARED"
	EventTypeFieldsReset       EventType = "FIELDS_RESET"
	EventTypeCropSelected      EventType = "CROP_SELECTED"
	EventTypeEquipmentMerged   EventType = "EQUIPMENT_MERGED"
	EventTypeEquipmentEquipped EventType = "EQUIPMENT_EQUIPPED"
	EventTypeEquipmentBroken   EventType = "EQUIPMENT_BROKEN"
	EventTypePillConsumed      EventType = "PILL_CONSUMED"
	EventTypeFurniturePlaced   EventType = "FURNITURE_PLACED"
	EventTypeSpeedChanged      EventType = "SPEED_CHANGED"
	EventTypePaused            EventType = "PAUSED"
	EventTypeStepped           EventType = "STEPPED"
	EventTypeNotationChanged   EventType = "NOTATION_CHANGED"
	EventTypeLifespanExpired   EventType = "LIFESPAN_EXPIRED"
	EventTypeGameSaved         EventType = "GAME_SAVED"
	EventTypeGameLoaded        EventType = "GAME_LOADED"
	EventTypeCatchUp           EventType = "CATCH_UP"
)

// ActorSystem marks events produced by the simulation itself.
const ActorSystem = "SYSTEM"

// ActorPlayer marks events produced by player commands.
const ActorPlayer = "PLAYER"

// GameEvent represents an immutable record of something that happened.
type GameEvent struct {
	ID        string      `json:"id"`
	Seq       int64       `json:"seq"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	TargetID  string      `json:"target_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	GameDay   int64       `json:"game_day"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the bounded in-memory journal. When full, the oldest events
// are discarded from memory; the persister still sees every event unless
// its queue overflows.
type EventLog struct {
	mu       sync.RWMutex
	events   []GameEvent // ring once len == capacity; head is the oldest
	head     int
	capacity int
	nextSeq  int64

	persister EventPersister
	queue     chan GameEvent
	dropped   atomic.Int64
	metrics   *metrics.Collector
}

// NewEventLog creates a journal keeping at most capacity events in memory.
// buffer sizes the persister queue; it is ignored without a persister.
func NewEventLog(persister EventPersister, capacity, buffer int) *EventLog {
	if capacity <= 0 {
		capacity = 10000
	}
	el := &EventLog{
		events:    make([]GameEvent, 0, minInt(capacity, 1024)),
		capacity:  capacity,
		persister: persister,
		metrics:   metrics.Get(),
	}
	if persister != nil {
		if buffer <= 0 {
			buffer = 256
		}
		el.queue = make(chan GameEvent, buffer)
	}
	return el
}

// Append stamps and records an event, returning the stored copy. Never blocks.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.nextSeq++
	event.Seq = el.nextSeq
	if len(el.events) < el.capacity {
		el.events = append(el.events, event)
	} else {
		el.events[el.head] = event
		el.head = (el.head + 1) % el.capacity
	}
	el.mu.Unlock()

	if el.queue != nil {
		select {
		case el.queue <- event:
		default:
			el.dropped.Add(1)
			el.metrics.RecordEventDropped()
		}
	}
	return event
}

// RunPersister writes queued events through to the persister until ctx is
// done, then drains what is left. Call in a goroutine.
func (el *EventLog) RunPersister(ctx context.Context) {
	if el.queue == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e := <-el.queue:
					el.persist(e)
				default:
					return
				}
			}
		case e := <-el.queue:
			el.persist(e)
		}
	}
}

func (el *EventLog) persist(e GameEvent) {
	start := time.Now()
	err := el.persister.Append(e)
	el.metrics.RecordEventWrite(time.Since(start), err)
}

// Since returns the events with a sequence number greater than seq that are
// still held in memory.
func (el *EventLog) Since(seq int64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	// Sequence numbers are contiguous, so the offset is direct.
	n := len(el.events)
	if n == 0 {
		return nil
	}
	first := el.at(0).Seq
	start := seq - first + 1
	if start < 0 {
		start = 0
	}
	if start >= int64(n) {
		return nil
	}
	out := make([]GameEvent, 0, n-int(start))
	for i := int(start); i < n; i++ {
		out = append(out, el.at(i))
	}
	return out
}

// at returns the i-th oldest event. Caller holds el.mu.
func (el *EventLog) at(i int) GameEvent {
	return el.events[(el.head+i)%len(el.events)]
}

// GetByType returns the in-memory events of one type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for i := range el.events {
		if e := el.at(i); e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// GetByDay returns all in-memory events that occurred on a game day.
func (el *EventLog) GetByDay(day int64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for i := range el.events {
		if e := el.at(i); e.GameDay == day {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of everything held in memory.
func (el *EventLog) Replay() []GameEvent {
	return el.Since(0)
}

// LastSeq returns the sequence number of the newest event.
func (el *EventLog) LastSeq() int64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.nextSeq
}

// Len returns the number of events held in memory.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Dropped returns how many events never reached the persister.
func (el *EventLog) Dropped() int64 {
	return el.dropped.Load()
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
