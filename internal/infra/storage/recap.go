package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Reconstructor summarizes the journal for the "while you were away" recap
// shown after a load, and for auditing.
type Reconstructor struct {
	journal JournalRepository
}

// NewReconstructor creates a recap builder over the journal.
func NewReconstructor(journal JournalRepository) *Reconstructor {
	return &Reconstructor{journal: journal}
}

// RecapEvent is a simplified entry for the recap screen.
type RecapEvent struct {
	Seq       int64  `json:"seq"`
	GameDay   int64  `json:"game_day"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"`
	Impact    string `json:"impact"` // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// Recap aggregates what happened after a sequence number.
type Recap struct {
	Events       []RecapEvent `json:"events"`
	Harvests     int          `json:"harvests"`
	FieldsReaped int64        `json:"fields_reaped"`
	FoodGained   float64      `json:"food_gained"`
	AcresBought  int64        `json:"acres_bought"`
	MoneySpent   float64      `json:"money_spent"`
	Merges       int          `json:"merges"`
	BrokenItems  int          `json:"broken_items"`
	LastSeq      int64        `json:"last_seq"`
}

// GenerateRecap builds the recap for slot from entries after sinceSeq.
func (r *Reconstructor) GenerateRecap(ctx context.Context, slot string, sinceSeq int64, limit int) (*Recap, error) {
	entries, err := r.journal.GetSince(ctx, slot, sinceSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	recap := &Recap{LastSeq: sinceSeq}
	for _, e := range entries {
		var p map[string]interface{}
		_ = json.Unmarshal(e.Payload, &p)

		switch e.EventType {
		case "HARVEST":
			recap.Harvests++
			recap.FieldsReaped += int64(number(p, "fields"))
			recap.FoodGained += number(p, "food")
		case "LAND_BOUGHT":
			recap.AcresBought += int64(number(p, "acres"))
			recap.MoneySpent += number(p, "cost")
		case "EQUIPMENT_MERGED":
			recap.Merges++
		case "EQUIPMENT_BROKEN":
			recap.BrokenItems++
		}

		recap.Events = append(recap.Events, RecapEvent{
			Seq:       e.Seq,
			GameDay:   e.GameDay,
			EventType: e.EventType,
			Summary:   summarize(e.EventType, p),
			Impact:    impact(e.EventType),
		})
		recap.LastSeq = e.Seq
	}
	return recap, nil
}

func summarize(eventType string, p map[string]interface{}) string {
	switch eventType {
	case "HARVEST":
		return fmt.Sprintf("Harvested %s fields for %s food.",
			humanize.Comma(int64(number(p, "fields"))), humanize.Ftoa(number(p, "food")))
	case "LAND_BOUGHT":
		return fmt.Sprintf("Bought %s acres.", humanize.Comma(int64(number(p, "acres"))))
	case "FIELDS_PLOWED":
		return fmt.Sprintf("Plowed %s fields.", humanize.Comma(int64(number(p, "fields"))))
	case "FIELDS_CLEARED":
		return fmt.Sprintf("Cleared %s fields.", humanize.Comma(int64(number(p, "fields"))))
	case "EQUIPMENT_MERGED":
		return "Merged two pieces of equipment."
	case "EQUIPMENT_BROKEN":
		return "A piece of equipment broke."
	case "PILL_CONSUMED":
		return "Took a pill."
	case "LIFESPAN_EXPIRED":
		return "Your lifespan ran out."
	case "CATCH_UP":
		return fmt.Sprintf("%s days passed while you were away.", humanize.Comma(int64(number(p, "ticks"))))
	default:
		return "Something happened at home."
	}
}

func impact(eventType string) string {
	switch eventType {
	case "EQUIPMENT_BROKEN", "LIFESPAN_EXPIRED":
		return "NEGATIVE"
	case "HARVEST", "PILL_CONSUMED", "EQUIPMENT_MERGED":
		return "POSITIVE"
	default:
		return "NEUTRAL"
	}
}

func number(p map[string]interface{}, key string) float64 {
	if v, ok := p[key].(float64); ok {
		return v
	}
	return 0
}
