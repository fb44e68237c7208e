package home

import "github.com/MRamiBalles/idlekernel/internal/domain/farm"

// Snapshot is the persisted form of a Home.
type Snapshot struct {
	Land        int               `json:"land"`
	LandPrice   float64           `json:"land_price"`
	Crop        string            `json:"crop"`
	AutoReplant bool              `json:"auto_replant"`
	Fields      farm.Snapshot     `json:"fields"`
	Furniture   map[string]string `json:"furniture,omitempty"`
}

// Snapshot returns a deep copy of the home.
func (h *Home) Snapshot() Snapshot {
	furniture := make(map[string]string, len(h.Furniture))
	for k, v := range h.Furniture {
		furniture[k] = v
	}
	return Snapshot{
		Land:        h.Land,
		LandPrice:   h.LandPrice,
		Crop:        h.Crop,
		AutoReplant: h.AutoReplant,
		Fields:      h.Fields.Snapshot(),
		Furniture:   furniture,
	}
}

// FromSnapshot rebuilds a home.
func FromSnapshot(s Snapshot) (*Home, error) {
	fields, err := farm.FromSnapshot(s.Fields)
	if err != nil {
		return nil, err
	}
	h := New(Options{Land: s.Land, LandPrice: s.LandPrice, AutoReplant: s.AutoReplant})
	h.Fields = fields
	if s.Crop != "" {
		h.Crop = s.Crop
	}
	for k, v := range s.Furniture {
		h.Furniture[k] = v
	}
	return h, nil
}
