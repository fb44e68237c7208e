// Package farm tracks planted fields. The first few hundred fields are kept as
// individual records; everything past that is counted in batches keyed by
// (crop, yield, days to harvest) so the collection stays small no matter how
// much land is under cultivation.
// This package is PURE and must NOT import any infrastructure packages.
package farm

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/MRamiBalles/idlekernel/internal/domain/quantity"
)

// DefaultDetailLimit is how many fields are tracked individually.
const DefaultDetailLimit = 300

// ErrInvalidSnapshot is returned by Restore for inconsistent input.
var ErrInvalidSnapshot = errors.New("farm: invalid snapshot")

// Key identifies a group of interchangeable fields.
type Key struct {
	CropID        string  `json:"crop_id"`
	Yield         float64 `json:"yield"`
	DaysToHarvest int     `json:"days_to_harvest"`
}

// Field is a single individually tracked field.
type Field struct {
	CropID        string  `json:"crop_id"`
	Yield         float64 `json:"yield"`
	DaysToHarvest int     `json:"days_to_harvest"`
}

// Key returns the grouping key of the field.
func (f Field) Key() Key {
	return Key{CropID: f.CropID, Yield: f.Yield, DaysToHarvest: f.DaysToHarvest}
}

// FieldBatch is Count fields sharing one key. Count is always positive.
type FieldBatch struct {
	Count         int     `json:"count"`
	CropID        string  `json:"crop_id"`
	Yield         float64 `json:"yield"`
	DaysToHarvest int     `json:"days_to_harvest"`
}

// DisplayBatch is the read-side view merging individual fields and batches.
type DisplayBatch struct {
	Count         int     `json:"count"`
	CropID        string  `json:"crop_id"`
	Yield         float64 `json:"yield"`
	DaysToHarvest int     `json:"days_to_harvest"`
}

// Harvest summarizes the fields that ripened during one Advance.
type Harvest struct {
	Fields int                `json:"fields"`
	Yield  float64            `json:"yield"`
	ByCrop map[string]int     `json:"by_crop,omitempty"`
	Food   map[string]float64 `json:"food,omitempty"`
}

func (h *Harvest) add(k Key, n int) {
	if h.ByCrop == nil {
		h.ByCrop = make(map[string]int)
		h.Food = make(map[string]float64)
	}
	y := k.Yield * float64(n)
	h.Fields += n
	h.Yield += y
	h.ByCrop[k.CropID] += n
	h.Food[k.CropID] += y
}

// Fields is the batched field collection. Not safe for concurrent use; the
// engine serializes access.
type Fields struct {
	limit    int
	detailed []Field
	batches  map[Key]int
	total    int
}

// NewFields creates an empty collection. limit <= 0 selects DefaultDetailLimit.
func NewFields(limit int) *Fields {
	if limit <= 0 {
		limit = DefaultDetailLimit
	}
	return &Fields{
		limit:    limit,
		detailed: make([]Field, 0, minInt(limit, 64)),
		batches:  make(map[Key]int),
	}
}

// Len returns the total number of fields.
func (fs *Fields) Len() int { return fs.total }

// Limit returns the individual-tracking threshold.
func (fs *Fields) Limit() int { return fs.limit }

// Add plants n fields. Individual slots fill first; the overflow is batched.
// Returns the number of fields added.
func (fs *Fields) Add(n int, cropID string, yield float64, daysToHarvest int) int {
	if n <= 0 {
		return 0
	}
	k := normalize(Key{CropID: cropID, Yield: yield, DaysToHarvest: daysToHarvest})

	room := fs.limit - len(fs.detailed)
	direct := minInt(room, n)
	for i := 0; i < direct; i++ {
		fs.detailed = append(fs.detailed, Field{CropID: k.CropID, Yield: k.Yield, DaysToHarvest: k.DaysToHarvest})
	}
	if rest := n - direct; rest > 0 {
		fs.batches[k] += rest
	}
	fs.total += n
	return n
}

// Remove clears up to n fields; -1 clears all of them. Fields farthest from
// harvest go first. Returns the number removed.
func (fs *Fields) Remove(n int) int {
	n, _ = quantity.Resolve(n, fs.total)
	if n == 0 {
		return 0
	}
	if n == fs.total {
		fs.detailed = fs.detailed[:0]
		fs.batches = make(map[Key]int)
		fs.total = 0
		return n
	}

	perKey := fs.detailedCounts()
	keys := fs.keys(perKey)
	sort.Slice(keys, func(i, j int) bool { return removalLess(keys[i], keys[j]) })

	dropDetailed := make(map[Key]int)
	left := n
	for _, k := range keys {
		if left == 0 {
			break
		}
		if c := fs.batches[k]; c > 0 {
			take := minInt(c, left)
			if take == c {
				delete(fs.batches, k)
			} else {
				fs.batches[k] = c - take
			}
			left -= take
		}
		if c := perKey[k]; c > 0 && left > 0 {
			take := minInt(c, left)
			dropDetailed[k] = take
			left -= take
		}
	}

	if len(dropDetailed) > 0 {
		kept := make([]Field, 0, len(fs.detailed))
		// Walk backwards so the most recently planted matching fields go first.
		for i := len(fs.detailed) - 1; i >= 0; i-- {
			f := fs.detailed[i]
			if d := dropDetailed[f.Key()]; d > 0 {
				dropDetailed[f.Key()] = d - 1
				continue
			}
			kept = append(kept, f)
		}
		reverse(kept)
		fs.detailed = kept
	}

	fs.total -= n
	fs.rebalance()
	return n
}

// Aggregate merges individual fields and batches into display groups sorted
// by days to harvest, then crop, then yield. It does not mutate the collection.
func (fs *Fields) Aggregate() []DisplayBatch {
	counts := fs.detailedCounts()
	for k, c := range fs.batches {
		counts[k] += c
	}
	out := make([]DisplayBatch, 0, len(counts))
	for k, c := range counts {
		out = append(out, DisplayBatch{Count: c, CropID: k.CropID, Yield: k.Yield, DaysToHarvest: k.DaysToHarvest})
	}
	sort.Slice(out, func(i, j int) bool {
		return aggregateLess(
			Key{out[i].CropID, out[i].Yield, out[i].DaysToHarvest},
			Key{out[j].CropID, out[j].Yield, out[j].DaysToHarvest})
	})
	return out
}

// Advance moves every field one day closer to harvest and removes the fields
// that ripen.
func (fs *Fields) Advance() Harvest {
	var h Harvest

	kept := fs.detailed[:0]
	for _, f := range fs.detailed {
		f.DaysToHarvest--
		if f.DaysToHarvest <= 0 {
			h.add(Key{CropID: f.CropID, Yield: f.Yield}, 1)
			continue
		}
		kept = append(kept, f)
	}
	fs.detailed = kept

	keys := make([]Key, 0, len(fs.batches))
	for k := range fs.batches {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return aggregateLess(keys[i], keys[j]) })

	next := make(map[Key]int, len(fs.batches))
	for _, k := range keys {
		c := fs.batches[k]
		k.DaysToHarvest--
		if k.DaysToHarvest <= 0 {
			h.add(k, c)
			continue
		}
		next[k] += c
	}
	fs.batches = next

	fs.total -= h.Fields
	fs.rebalance()
	return h
}

// Detailed returns a copy of the individually tracked fields.
func (fs *Fields) Detailed() []Field {
	out := make([]Field, len(fs.detailed))
	copy(out, fs.detailed)
	return out
}

// Batches returns the batched fields in aggregate order.
func (fs *Fields) Batches() []FieldBatch {
	keys := make([]Key, 0, len(fs.batches))
	for k := range fs.batches {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return aggregateLess(keys[i], keys[j]) })

	out := make([]FieldBatch, 0, len(keys))
	for _, k := range keys {
		out = append(out, FieldBatch{Count: fs.batches[k], CropID: k.CropID, Yield: k.Yield, DaysToHarvest: k.DaysToHarvest})
	}
	return out
}

// rebalance promotes batched fields into free individual slots.
func (fs *Fields) rebalance() {
	room := fs.limit - len(fs.detailed)
	if room <= 0 || len(fs.batches) == 0 {
		return
	}
	for _, b := range fs.Batches() {
		if room == 0 {
			return
		}
		k := Key{CropID: b.CropID, Yield: b.Yield, DaysToHarvest: b.DaysToHarvest}
		move := minInt(room, b.Count)
		for i := 0; i < move; i++ {
			fs.detailed = append(fs.detailed, Field{CropID: k.CropID, Yield: k.Yield, DaysToHarvest: k.DaysToHarvest})
		}
		if move == b.Count {
			delete(fs.batches, k)
		} else {
			fs.batches[k] = b.Count - move
		}
		room -= move
	}
}

func (fs *Fields) detailedCounts() map[Key]int {
	counts := make(map[Key]int, len(fs.batches)+1)
	for _, f := range fs.detailed {
		counts[f.Key()]++
	}
	return counts
}

// keys returns every key present in either representation.
func (fs *Fields) keys(detailed map[Key]int) []Key {
	seen := make(map[Key]struct{}, len(detailed)+len(fs.batches))
	keys := make([]Key, 0, len(seen))
	for k := range detailed {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range fs.batches {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func aggregateLess(a, b Key) bool {
	if a.DaysToHarvest != b.DaysToHarvest {
		return a.DaysToHarvest < b.DaysToHarvest
	}
	if a.CropID != b.CropID {
		return a.CropID < b.CropID
	}
	return a.Yield < b.Yield
}

func removalLess(a, b Key) bool {
	if a.DaysToHarvest != b.DaysToHarvest {
		return a.DaysToHarvest > b.DaysToHarvest
	}
	if a.CropID != b.CropID {
		return a.CropID < b.CropID
	}
	return a.Yield < b.Yield
}

func normalize(k Key) Key {
	if k.DaysToHarvest < 1 {
		k.DaysToHarvest = 1
	}
	if math.IsNaN(k.Yield) || k.Yield < 0 {
		k.Yield = 0
	}
	if math.IsInf(k.Yield, 1) {
		k.Yield = math.MaxFloat64
	}
	return k
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func reverse(fs []Field) {
	for i, j := 0, len(fs)-1; i < j; i, j = i+1, j-1 {
		fs[i], fs[j] = fs[j], fs[i]
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSnapshot, fmt.Sprintf(format, args...))
}
