// Package metrics provides observability for the simulation server.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// latency accumulates count, sum and max of a timed operation.
type latency struct {
	count atomic.Int64
	sum   atomic.Int64 // nanoseconds
	max   atomic.Int64
	last  atomic.Int64 // unix nanoseconds of the latest observation
}

func (l *latency) observe(d time.Duration) {
	l.count.Add(1)
	l.sum.Add(int64(d))
	for {
		cur := l.max.Load()
		if int64(d) <= cur || l.max.CompareAndSwap(cur, int64(d)) {
			break
		}
	}
	l.last.Store(time.Now().UnixNano())
}

func (l *latency) avgMillis() float64 {
	n := l.count.Load()
	if n == 0 {
		return 0
	}
	return float64(l.sum.Load()) / float64(n) / 1e6
}

func (l *latency) maxMillis() float64 {
	return float64(l.max.Load()) / 1e6
}

func (l *latency) lastSeen() string {
	ns := l.last.Load()
	if ns == 0 {
		return ""
	}
	return time.Unix(0, ns).Format(time.RFC3339)
}

// Collector gathers performance metrics. All methods are safe for
// concurrent use.
type Collector struct {
	ticks latency

	commandsApplied  atomic.Int64
	commandsRejected atomic.Int64
	commandsClamped  atomic.Int64
	merges           atomic.Int64

	eventWrites   latency
	eventErrors   atomic.Int64
	eventsDropped atomic.Int64

	saves      latency
	saveErrors atomic.Int64

	wsActive      atomic.Int64
	wsIn          atomic.Int64
	wsOut         atomic.Int64
	wsErrors      atomic.Int64
	wsRateLimited atomic.Int64

	startTime time.Time
}

var collector = NewCollector()

// NewCollector returns an empty collector. Tests use their own instance so
// counters do not leak between cases.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Get returns the process-wide collector.
func Get() *Collector {
	return collector
}

// RecordTick records one simulated day and how long it took to apply.
func (c *Collector) RecordTick(d time.Duration) {
	c.ticks.observe(d)
}

// RecordCommand records the outcome of a player command.
func (c *Collector) RecordCommand(applied, clamped bool) {
	switch {
	case !applied:
		c.commandsRejected.Add(1)
	case clamped:
		c.commandsApplied.Add(1)
		c.commandsClamped.Add(1)
	default:
		c.commandsApplied.Add(1)
	}
}

// RecordMerge records a successful equipment merge.
func (c *Collector) RecordMerge() {
	c.merges.Add(1)
}

// RecordEventWrite records a journal write to the database.
func (c *Collector) RecordEventWrite(d time.Duration, err error) {
	c.eventWrites.observe(d)
	if err != nil {
		c.eventErrors.Add(1)
	}
}

// RecordEventDropped records a journal entry that could not be queued for
// persistence.
func (c *Collector) RecordEventDropped() {
	c.eventsDropped.Add(1)
}

// RecordSave records a snapshot write. Failed saves only bump the error count.
func (c *Collector) RecordSave(d time.Duration, err error) {
	if err != nil {
		c.saveErrors.Add(1)
		return
	}
	c.saves.observe(d)
}

func (c *Collector) RecordWSConnection(delta int64) { c.wsActive.Add(delta) }

func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		c.wsIn.Add(1)
		return
	}
	c.wsOut.Add(1)
}

func (c *Collector) RecordWSError() { c.wsErrors.Add(1) }

// RecordWSRateLimited records a command refused by the per-client limiter.
func (c *Collector) RecordWSRateLimited() { c.wsRateLimited.Add(1) }

// Snapshot returns current metrics as nested maps. Counters are int64 and
// latencies float64 milliseconds.
func (c *Collector) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": time.Since(c.startTime).Seconds(),
		"tick": map[string]interface{}{
			"count":          c.ticks.count.Load(),
			"avg_latency_ms": c.ticks.avgMillis(),
			"max_latency_ms": c.ticks.maxMillis(),
			"last_tick":      c.ticks.lastSeen(),
		},
		"commands": map[string]interface{}{
			"applied":  c.commandsApplied.Load(),
			"rejected": c.commandsRejected.Load(),
			"clamped":  c.commandsClamped.Load(),
			"merges":   c.merges.Load(),
		},
		"events": map[string]interface{}{
			"written":          c.eventWrites.count.Load(),
			"avg_write_lat_ms": c.eventWrites.avgMillis(),
			"max_write_lat_ms": c.eventWrites.maxMillis(),
			"errors":           c.eventErrors.Load(),
			"dropped":          c.eventsDropped.Load(),
		},
		"saves": map[string]interface{}{
			"written":        c.saves.count.Load(),
			"errors":         c.saveErrors.Load(),
			"avg_latency_ms": c.saves.avgMillis(),
			"last_save":      c.saves.lastSeen(),
		},
		"websocket": map[string]interface{}{
			"active_connections": c.wsActive.Load(),
			"messages_in":        c.wsIn.Load(),
			"messages_out":       c.wsOut.Load(),
			"errors":             c.wsErrors.Load(),
			"rate_limited":       c.wsRateLimited.Load(),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(collector.Snapshot())
	}
}

// sample is one Prometheus series line.
type sample struct {
	labels string
	value  float64
}

type family struct {
	name, kind, help string
	samples          []sample
}

func (c *Collector) families() []family {
	n := func(v int64) []sample { return []sample{{value: float64(v)}} }
	return []family{
		{"idle_tick_count", "counter", "Total simulated days", n(c.ticks.count.Load())},
		{"idle_tick_latency_max_ms", "gauge", "Maximum tick latency", []sample{{value: c.ticks.maxMillis()}}},
		{"idle_commands_total", "counter", "Player commands by outcome", []sample{
			{`outcome="applied"`, float64(c.commandsApplied.Load())},
			{`outcome="rejected"`, float64(c.commandsRejected.Load())},
			{`outcome="clamped"`, float64(c.commandsClamped.Load())},
		}},
		{"idle_merges_total", "counter", "Equipment merges performed", n(c.merges.Load())},
		{"idle_events_written", "counter", "Journal entries written", n(c.eventWrites.count.Load())},
		{"idle_event_write_errors", "counter", "Journal write errors", n(c.eventErrors.Load())},
		{"idle_events_dropped", "counter", "Journal entries dropped before persistence", n(c.eventsDropped.Load())},
		{"idle_saves_total", "counter", "Snapshot saves by outcome", []sample{
			{`outcome="ok"`, float64(c.saves.count.Load())},
			{`outcome="error"`, float64(c.saveErrors.Load())},
		}},
		{"idle_ws_connections", "gauge", "Active WebSocket connections", n(c.wsActive.Load())},
		{"idle_ws_messages_total", "counter", "WebSocket messages", []sample{
			{`direction="in"`, float64(c.wsIn.Load())},
			{`direction="out"`, float64(c.wsOut.Load())},
		}},
		{"idle_ws_rate_limited", "counter", "Commands refused by the rate limiter", n(c.wsRateLimited.Load())},
	}
}

func (c *Collector) writePrometheus(w io.Writer) {
	for _, f := range c.families() {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)
		for _, s := range f.samples {
			if s.labels == "" {
				fmt.Fprintf(w, "%s %g\n", f.name, s.value)
			} else {
				fmt.Fprintf(w, "%s{%s} %g\n", f.name, s.labels, s.value)
			}
		}
		fmt.Fprintln(w)
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		collector.writePrometheus(w)
	}
}
