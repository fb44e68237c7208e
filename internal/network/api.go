package network

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/idlekernel/internal/engine"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/infra/storage"
	"github.com/MRamiBalles/idlekernel/internal/platform/config"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
	"github.com/MRamiBalles/idlekernel/internal/platform/metrics"
)

// JournalCounter reports durable journal totals per event type.
type JournalCounter interface {
	CountByType(ctx context.Context, slot string) (map[string]int64, error)
}

// RecapBuilder summarizes the durable journal.
type RecapBuilder interface {
	GenerateRecap(ctx context.Context, slot string, sinceSeq int64, limit int) (*storage.Recap, error)
}

// API serves the read-only HTTP views and the save trigger.
type API struct {
	engine  *engine.Engine
	saver   Saver
	journal JournalCounter
	recaps  RecapBuilder
	slot    string
	logger  *logger.Logger
}

// APIOptions carries the optional collaborators of the API.
type APIOptions struct {
	Saver   Saver
	Journal JournalCounter
	Recaps  RecapBuilder
	Slot    string
}

// NewAPI creates the HTTP handlers.
func NewAPI(e *engine.Engine, opts APIOptions, log *logger.Logger) *API {
	return &API{
		engine:  e,
		saver:   opts.Saver,
		journal: opts.Journal,
		recaps:  opts.Recaps,
		slot:    opts.Slot,
		logger:  log,
	}
}

// RegisterRoutes sets up the API routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", a.HandleState)
	mux.HandleFunc("/api/farm", a.HandleFarm)
	mux.HandleFunc("/api/save", a.HandleSave)
	mux.HandleFunc("/api/recommendations", a.HandleRecommendations)
	mux.HandleFunc("/api/journal", a.HandleJournal)
	mux.HandleFunc("/api/journal/stats", a.HandleJournalStats)
	mux.HandleFunc("/api/recap", a.HandleRecap)
}

// HandleState returns the formatted state view.
// GET /api/state
func (a *API) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonResponse(w, a.engine.View())
}

// HandleFarm returns the raw aggregate rows.
// GET /api/farm
func (a *API) HandleFarm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rows := a.engine.Aggregate()
	total := 0
	for _, row := range rows {
		total += row.Count
	}
	jsonResponse(w, map[string]interface{}{
		"fields":  total,
		"batches": rows,
	})
}

// HandleSave writes the game immediately.
// POST /api/save
func (a *API) HandleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.saver == nil {
		jsonError(w, ErrSavingDisabled.Error(), http.StatusServiceUnavailable)
		return
	}
	if err := a.saver.SaveNow(r.Context()); err != nil {
		a.logger.Errorf("Manual save failed: %v", err)
		jsonError(w, "save failed", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]interface{}{
		"slot":  a.slot,
		"tick":  a.engine.Clock().TickCount,
		"saved": true,
	})
}

// HandleRecommendations returns tuning notes derived from live metrics.
// GET /api/recommendations
func (a *API) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonResponse(w, config.Analyze(metrics.Get().Snapshot()))
}

// HandleJournal returns in-memory journal entries.
// GET /api/journal?since=N&type=HARVEST&day=N
func (a *API) HandleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	el := a.engine.EventLog()
	if el == nil {
		jsonError(w, "journal disabled", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	since, err := queryInt(q.Get("since"))
	if err != nil {
		jsonError(w, "Invalid since", http.StatusBadRequest)
		return
	}
	entries := el.Since(since)

	eventType := q.Get("type")
	dayStr := q.Get("day")
	day, err := queryInt(dayStr)
	if err != nil {
		jsonError(w, "Invalid day", http.StatusBadRequest)
		return
	}
	filtered := make([]events.GameEvent, 0, len(entries))
	for _, e := range entries {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if dayStr != "" && e.GameDay != day {
			continue
		}
		filtered = append(filtered, e)
	}

	jsonResponse(w, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"last_seq":     el.LastSeq(),
		"total_events": len(filtered),
		"events":       filtered,
	})
}

// HandleJournalStats returns entry counts per event type.
// GET /api/journal/stats
func (a *API) HandleJournalStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := make(map[string]int64)
	source := "memory"
	if a.journal != nil {
		counts, err := a.journal.CountByType(r.Context(), a.slot)
		if err != nil {
			a.logger.Errorf("Journal stats failed: %v", err)
			jsonError(w, "journal unavailable", http.StatusInternalServerError)
			return
		}
		stats = counts
		source = "storage"
	} else if el := a.engine.EventLog(); el != nil {
		for _, e := range el.Replay() {
			stats[string(e.Type)]++
		}
	}

	var dropped int64
	if el := a.engine.EventLog(); el != nil {
		dropped = el.Dropped()
	}
	jsonResponse(w, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"source":       source,
		"dropped":      dropped,
		"stats":        stats,
	})
}

// HandleRecap returns the "while you were away" summary.
// GET /api/recap?since=N&limit=N
func (a *API) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.recaps == nil {
		jsonError(w, "journal storage disabled", http.StatusServiceUnavailable)
		return
	}
	since, err := queryInt(r.URL.Query().Get("since"))
	if err != nil {
		jsonError(w, "Invalid since", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r.URL.Query().Get("limit"))
	if err != nil {
		jsonError(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	recap, err := a.recaps.GenerateRecap(r.Context(), a.slot, since, int(limit))
	if err != nil {
		a.logger.Errorf("Recap failed: %v", err)
		jsonError(w, "recap unavailable", http.StatusInternalServerError)
		return
	}
	a.logger.Event("RECAP", events.ActorPlayer, "Events:"+strconv.Itoa(len(recap.Events)))
	jsonResponse(w, recap)
}

func queryInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func jsonResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
