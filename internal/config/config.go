package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/minaret-home/minaret/internal/model"
)

// Prayer time sources.
const (
	SourceQatarMOI = "qatar_moi"
	SourceAladhan  = "aladhan"
)

// Defaults matching the published integration.
const (
	DefaultMethod          = 10 // Qatar
	DefaultSuhoorOffsetMin = 60
)

// Config holds the prayer-domain settings read from environment variables.
type Config struct {
	Source  string
	City    string
	Country string
	Method  int

	// Enabled holds the per-prayer azan toggles. Disabled prayers stay on
	// the board but are excluded from azan playback.
	Enabled [model.EventCount]bool

	SuhoorEnabled     bool
	SuhoorOffset      time.Duration
	SuhoorRamadanOnly bool

	EntityPrefix    string
	AzanURL         string
	FajrAzanURL     string
	AlarmURL        string
	RefreshInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Source:            envOr("PRAYER_SOURCE", SourceQatarMOI),
		City:              envOr("PRAYER_CITY", "Doha"),
		Country:           envOr("PRAYER_COUNTRY", "Qatar"),
		Method:            envInt("PRAYER_METHOD", DefaultMethod),
		SuhoorEnabled:     envBool("SUHOOR_ENABLED", false),
		SuhoorOffset:      time.Duration(envInt("SUHOOR_OFFSET_MINUTES", DefaultSuhoorOffsetMin)) * time.Minute,
		SuhoorRamadanOnly: envBool("SUHOOR_RAMADAN_ONLY", true),
		EntityPrefix:      envOr("ENTITY_PREFIX", "minaret"),
		AzanURL:           os.Getenv("AZAN_URL"),
		FajrAzanURL:       os.Getenv("FAJR_AZAN_URL"),
		AlarmURL:          os.Getenv("ALARM_URL"),
		RefreshInterval:   time.Duration(envInt("REFRESH_INTERVAL_HOURS", 6)) * time.Hour,
	}

	if cfg.Source != SourceQatarMOI && cfg.Source != SourceAladhan {
		return nil, fmt.Errorf("unknown prayer source %q", cfg.Source)
	}

	// sunrise has no azan, so it defaults off; the rest default on
	cfg.Enabled[model.Fajr] = envBool("PRAYER_FAJR", true)
	cfg.Enabled[model.Sunrise] = envBool("PRAYER_SUNRISE", false)
	cfg.Enabled[model.Dhuhr] = envBool("PRAYER_DHUHR", true)
	cfg.Enabled[model.Asr] = envBool("PRAYER_ASR", true)
	cfg.Enabled[model.Maghrib] = envBool("PRAYER_MAGHRIB", true)
	cfg.Enabled[model.Isha] = envBool("PRAYER_ISHA", true)

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
