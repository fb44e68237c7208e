package bignumber

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	value float64
	mode  Mode
}

// Formatter carries the player's notation preference and memoizes renders.
// Safe for concurrent use.
type Formatter struct {
	scientific atomic.Bool
	cache      *lru.Cache[cacheKey, string]
}

// NewFormatter creates a formatter with a cache of the given size.
// A size <= 0 disables caching.
func NewFormatter(cacheSize int) *Formatter {
	f := &Formatter{}
	if cacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		f.cache, _ = lru.New[cacheKey, string](cacheSize)
	}
	return f
}

// SetScientific switches between standard and scientific rendering.
func (f *Formatter) SetScientific(on bool) {
	f.scientific.Store(on)
}

// Scientific reports the current preference.
func (f *Formatter) Scientific() bool {
	return f.scientific.Load()
}

// Mode returns the mode used by Format.
func (f *Formatter) Mode() Mode {
	if f.scientific.Load() {
		return Scientific
	}
	return Standard
}

// Format renders value in the preferred mode.
func (f *Formatter) Format(value float64) string {
	return f.FormatMode(value, f.Mode())
}

// FormatMode renders value in an explicit mode, going through the cache.
func (f *Formatter) FormatMode(value float64, mode Mode) string {
	if f.cache == nil || value != value { // NaN never equals itself as a key
		return Format(value, mode)
	}
	key := cacheKey{value: value, mode: mode}
	if s, ok := f.cache.Get(key); ok {
		return s
	}
	s := Format(value, mode)
	f.cache.Add(key, s)
	return s
}
