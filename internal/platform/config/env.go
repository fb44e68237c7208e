package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv loads configuration from environment variables.
// Falls back to the preset selected by IDLE_PROFILE, then DefaultConfig.
func FromEnv() *Config {
	var cfg *Config
	switch os.Getenv("IDLE_PROFILE") {
	case "stress":
		cfg = StressTestConfig()
	case "dev":
		cfg = LowResourceConfig()
	default:
		cfg = DefaultConfig()
	}

	if val := os.Getenv("IDLE_LISTEN_ADDR"); val != "" {
		cfg.ListenAddr = val
	}
	if val := os.Getenv("IDLE_DB_PATH"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("IDLE_SAVE_SLOT"); val != "" {
		cfg.SaveSlot = val
	}
	if val := getEnvInt("IDLE_BASE_TICK_MS"); val > 0 {
		cfg.BaseTickInterval = time.Duration(val) * time.Millisecond
	}
	if val := getEnvInt("IDLE_INITIAL_DIVIDER"); val > 0 {
		cfg.InitialDivider = val
	}
	if val := getEnvInt("IDLE_DETAILED_FIELD_LIMIT"); val > 0 {
		cfg.DetailedFieldLimit = val
	}
	if val := getEnvInt("IDLE_MAX_CATCH_UP_TICKS"); val >= 0 {
		cfg.MaxCatchUpTicks = val
	}
	if val := getEnvFloat("IDLE_STARTING_MONEY"); val >= 0 {
		cfg.StartingMoney = val
	}
	if val := getEnvFloat("IDLE_LAND_BASE_PRICE"); val > 0 {
		cfg.LandBasePrice = val
	}
	if val := getEnvFloat("IDLE_DAILY_INCOME"); val >= 0 {
		cfg.DailyIncome = val
	}
	if val := getEnvInt("IDLE_AUTOSAVE_SECONDS"); val > 0 {
		cfg.AutosaveInterval = time.Duration(val) * time.Second
	}
	if val := getEnvInt("IDLE_MAX_MESSAGES_PER_SECOND"); val > 0 {
		cfg.MaxMessagesPerSecond = val
	}
	if val := os.Getenv("IDLE_START_PAUSED"); val != "" {
		cfg.StartPaused = val == "1" || val == "true"
	}
	if val := os.Getenv("IDLE_AUTO_REPLANT"); val != "" {
		cfg.AutoReplant = val == "1" || val == "true"
	}

	return cfg
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return -1
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return -1
	}
	return i
}

func getEnvFloat(key string) float64 {
	val := os.Getenv(key)
	if val == "" {
		return -1
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return -1
	}
	return f
}
