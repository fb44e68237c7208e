// Package config holds the tunable parameters of the simulation server and
// presets for production, stress testing and local development.
package config

import (
	"runtime"
	"time"
)

// Config holds tuned parameters for the kernel and its collaborators.
type Config struct {
	// Server
	ListenAddr string
	DBPath     string
	SaveSlot   string

	// Clock
	BaseTickInterval time.Duration // interval at divider 1
	InitialDivider   int
	StartPaused      bool
	MaxCatchUpTicks  int

	// Simulation
	DetailedFieldLimit int
	StartingMoney      float64
	StartingLand       int
	LandBasePrice      float64
	DailyIncome        float64
	AutoReplant        bool

	// Persistence
	AutosaveInterval time.Duration
	JournalCapacity  int

	// Channel buffers
	EventChannelBuffer int
	ClientSendBuffer   int

	// Presentation
	BroadcastInterval time.Duration
	FormatCacheSize   int

	// Rate limiting
	MaxMessagesPerSecond int
	MessageBurst         int
	MaxClients           int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		ListenAddr: ":8080",
		DBPath:     "data/idle.db",
		SaveSlot:   "main",

		BaseTickInterval: 25 * time.Millisecond, // divider 40 = one day per second
		InitialDivider:   40,
		MaxCatchUpTicks:  365 * 24,

		DetailedFieldLimit: 300,
		StartingMoney:      100,
		StartingLand:       0,
		LandBasePrice:      100,
		DailyIncome:        1,
		AutoReplant:        true,

		AutosaveInterval: 10 * time.Second,
		JournalCapacity:  4096,

		EventChannelBuffer: 1024,
		ClientSendBuffer:   64,

		BroadcastInterval: 250 * time.Millisecond,
		FormatCacheSize:   4096,

		MaxMessagesPerSecond: 20,
		MessageBurst:         40,
		MaxClients:           numCPU * 16,
	}
}

// StressTestConfig returns aggressive settings for stress testing.
func StressTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.BaseTickInterval = 5 * time.Millisecond
	cfg.InitialDivider = 1
	cfg.StartingMoney = 1e12
	cfg.AutosaveInterval = 2 * time.Second
	cfg.JournalCapacity = 16384
	cfg.EventChannelBuffer = 4096
	cfg.ClientSendBuffer = 128
	cfg.BroadcastInterval = 100 * time.Millisecond
	cfg.MaxMessagesPerSecond = 500
	cfg.MessageBurst = 1000
	cfg.MaxClients = runtime.NumCPU() * 64
	return cfg
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	cfg := DefaultConfig()
	cfg.DBPath = "idle-dev.db"
	cfg.AutosaveInterval = 30 * time.Second
	cfg.JournalCapacity = 256
	cfg.EventChannelBuffer = 64
	cfg.ClientSendBuffer = 8
	cfg.BroadcastInterval = time.Second
	cfg.FormatCacheSize = 256
	cfg.MaxMessagesPerSecond = 10
	cfg.MessageBurst = 10
	cfg.MaxClients = 8
	return cfg
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	SlowDownBaseTick        bool
	IncreaseEventBuffer     bool
	IncreaseBroadcastBuffer bool
	IncreaseAutosaveSpacing bool
	Notes                   []string
}

// Analyze examines current metrics and returns tuning recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 20 {
			rec.SlowDownBaseTick = true
			rec.Notes = append(rec.Notes, "Tick latency approaches the fastest interval - raise the base tick interval")
		}
	}

	if events, ok := metrics["events"].(map[string]interface{}); ok {
		if dropped, ok := events["dropped"].(int64); ok && dropped > 0 {
			rec.IncreaseEventBuffer = true
			rec.Notes = append(rec.Notes, "Journal entries were dropped - increase the event channel buffer")
		}
	}

	if saves, ok := metrics["saves"].(map[string]interface{}); ok {
		if avg, ok := saves["avg_latency_ms"].(float64); ok && avg > 250 {
			rec.IncreaseAutosaveSpacing = true
			rec.Notes = append(rec.Notes, "Snapshot writes are slow - autosave less often")
		}
	}

	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.SlowDownBaseTick {
		config.BaseTickInterval *= 2
	}
	if rec.IncreaseEventBuffer {
		config.EventChannelBuffer *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseAutosaveSpacing {
		config.AutosaveInterval = time.Duration(float64(config.AutosaveInterval) * 1.5)
	}
	return config
}
