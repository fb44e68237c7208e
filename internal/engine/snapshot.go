package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/idlekernel/internal/domain/character"
	"github.com/MRamiBalles/idlekernel/internal/domain/equipment"
	"github.com/MRamiBalles/idlekernel/internal/domain/home"
	"github.com/MRamiBalles/idlekernel/internal/events"
)

// ErrInvalidSnapshot is returned when a save cannot be restored.
var ErrInvalidSnapshot = errors.New("engine: invalid snapshot")

// Snapshot is the complete persisted state of the kernel.
type Snapshot struct {
	SavedAt    time.Time             `json:"saved_at"`
	Clock      SimClock              `json:"clock"`
	Unlocks    SpeedUnlocks          `json:"unlocks"`
	Scientific bool                  `json:"scientific"`
	Character  character.Character   `json:"character"`
	Home       home.Snapshot         `json:"home"`
	Equipment  []equipment.Equipment `json:"equipment"`
	Items      map[string]int        `json:"items"`
}

// Snapshot deep-copies the state under the lock. Serializing and writing the
// copy happen outside it.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := make(map[string]int, len(e.world.Items))
	for k, v := range e.world.Items {
		items[k] = v
	}
	return Snapshot{
		SavedAt:    time.Now(),
		Clock:      e.clock,
		Unlocks:    e.world.Unlocks,
		Scientific: e.formatter.Scientific(),
		Character:  *e.world.Character,
		Home:       e.world.Home.Snapshot(),
		Equipment:  sortedEquipment(e.world.Equipment),
		Items:      items,
	}
}

// Restore replaces the world and clock with s. The base interval stays as
// configured. On error nothing changes.
func (e *Engine) Restore(s Snapshot) error {
	h, err := home.FromSnapshot(s.Home)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if s.Clock.TickCount < 0 {
		return fmt.Errorf("%w: negative tick count", ErrInvalidSnapshot)
	}

	eqs := make(map[string]*equipment.Equipment, len(s.Equipment))
	for i := range s.Equipment {
		eq := s.Equipment[i]
		if eq.ID == "" {
			return fmt.Errorf("%w: equipment without id", ErrInvalidSnapshot)
		}
		eqs[eq.ID] = &eq
	}
	items := make(map[string]int, len(s.Items))
	for k, v := range s.Items {
		if v > 0 {
			items[k] = v
		}
	}
	c := s.Character
	if c.EmpowermentFactor <= 0 {
		c.EmpowermentFactor = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.world = &World{
		Character: &c,
		Home:      h,
		Equipment: eqs,
		Items:     items,
		Unlocks:   s.Unlocks,
	}
	e.clock.TickCount = s.Clock.TickCount
	e.clock.Paused = s.Clock.Paused
	if knownTier(s.Clock.Divider) {
		e.clock.Divider = s.Clock.Divider
	}
	e.formatter.SetScientific(s.Scientific)
	e.emit(events.EventTypeGameLoaded, events.ActorSystem, "", map[string]interface{}{"tick": s.Clock.TickCount})
	e.notifyClock()
	return nil
}

// MarshalSnapshot encodes s as JSON.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot decodes a JSON snapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return s, nil
}
