package farm

// Snapshot is the persisted form of a Fields collection. It keeps both
// representations as they are, not the aggregate.
type Snapshot struct {
	Limit    int          `json:"limit"`
	Detailed []Field      `json:"detailed"`
	Batches  []FieldBatch `json:"batches"`
}

// Snapshot returns a deep copy of the collection.
func (fs *Fields) Snapshot() Snapshot {
	return Snapshot{
		Limit:    fs.limit,
		Detailed: fs.Detailed(),
		Batches:  fs.Batches(),
	}
}

// Restore replaces the collection with the content of s. On error the
// collection is left untouched.
func (fs *Fields) Restore(s Snapshot) error {
	limit := s.Limit
	if limit <= 0 {
		limit = fs.limit
	}
	if len(s.Detailed) > limit {
		return invalid("%d detailed fields exceed limit %d", len(s.Detailed), limit)
	}

	detailed := make([]Field, 0, len(s.Detailed))
	total := 0
	for _, f := range s.Detailed {
		if f.DaysToHarvest < 1 || f.Yield < 0 {
			return invalid("field %+v", f)
		}
		detailed = append(detailed, f)
		total++
	}

	batches := make(map[Key]int, len(s.Batches))
	for _, b := range s.Batches {
		if b.Count <= 0 || b.DaysToHarvest < 1 || b.Yield < 0 {
			return invalid("batch %+v", b)
		}
		batches[Key{CropID: b.CropID, Yield: b.Yield, DaysToHarvest: b.DaysToHarvest}] += b.Count
		total += b.Count
	}

	fs.limit = limit
	fs.detailed = detailed
	fs.batches = batches
	fs.total = total
	fs.rebalance()
	return nil
}

// FromSnapshot builds a new collection from s.
func FromSnapshot(s Snapshot) (*Fields, error) {
	fs := NewFields(s.Limit)
	if err := fs.Restore(s); err != nil {
		return nil, err
	}
	return fs, nil
}
