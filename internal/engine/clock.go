package engine

import "time"

// DefaultBaseInterval is the real time of one simulated day at divider 1.
const DefaultBaseInterval = 25 * time.Millisecond

// SpeedTiers lists the dividers from slowest to fastest.
var SpeedTiers = []int{40, 10, 5, 2, 1}

// SpeedUnlocks gates the faster tiers. Tiers 40 and 10 are always available.
type SpeedUnlocks struct {
	FastSpeed    bool `json:"fast_speed"`    // divider 5
	FasterSpeed  bool `json:"faster_speed"`  // divider 2
	FastestSpeed bool `json:"fastest_speed"` // divider 1
}

// Unlocked reports whether divider is a known tier the player may select.
func (u SpeedUnlocks) Unlocked(divider int) bool {
	switch divider {
	case 40, 10:
		return true
	case 5:
		return u.FastSpeed
	case 2:
		return u.FasterSpeed
	case 1:
		return u.FastestSpeed
	}
	return false
}

// SimClock is the simulation's notion of time. The effective tick interval
// is BaseInterval * Divider, so divider 1 is the fastest speed.
type SimClock struct {
	TickCount    int64         `json:"tick_count"`
	BaseInterval time.Duration `json:"base_interval"`
	Divider      int           `json:"divider"`
	Paused       bool          `json:"paused"`
}

// Interval is the real time between automatic ticks.
func (c SimClock) Interval() time.Duration {
	base := c.BaseInterval
	if base <= 0 {
		base = DefaultBaseInterval
	}
	div := c.Divider
	if div <= 0 {
		div = SpeedTiers[0]
	}
	return base * time.Duration(div)
}

func knownTier(divider int) bool {
	for _, t := range SpeedTiers {
		if t == divider {
			return true
		}
	}
	return false
}
