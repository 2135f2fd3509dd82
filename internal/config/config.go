package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Asset fetching
	AssetDir   string // local directory for uploaded assets
	ProxyBase  string // proxy endpoint prefix for cross-origin assets
	HTTPTimout time.Duration

	// Decode cache
	CacheCapacity int

	// Playback engine
	FadeDuration   time.Duration // gain ramp at clip boundaries
	DriftThreshold time.Duration // element drift tolerated before a hard reseek
	MasterVolume   float64
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("CANVAEDIT_PORT", 8080),

		AssetDir:   envStr("CANVAEDIT_ASSET_DIR", "./assets"),
		ProxyBase:  envStr("CANVAEDIT_PROXY_BASE", ""),
		HTTPTimout: time.Duration(envInt("CANVAEDIT_FETCH_TIMEOUT", 30)) * time.Second,

		CacheCapacity: envInt("CANVAEDIT_CACHE_CAPACITY", 50),

		FadeDuration:   time.Duration(envInt("CANVAEDIT_FADE_MS", 6)) * time.Millisecond,
		DriftThreshold: time.Duration(envInt("CANVAEDIT_DRIFT_MS", 250)) * time.Millisecond,
		MasterVolume:   envFloat("CANVAEDIT_MASTER_VOLUME", 1.0),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
