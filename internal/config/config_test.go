package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"CANVAEDIT_PORT", "CANVAEDIT_ASSET_DIR", "CANVAEDIT_PROXY_BASE",
		"CANVAEDIT_FETCH_TIMEOUT", "CANVAEDIT_CACHE_CAPACITY",
		"CANVAEDIT_FADE_MS", "CANVAEDIT_DRIFT_MS", "CANVAEDIT_MASTER_VOLUME",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.AssetDir != "./assets" {
		t.Errorf("AssetDir = %q, want './assets'", cfg.AssetDir)
	}
	if cfg.ProxyBase != "" {
		t.Errorf("ProxyBase = %q, want empty default", cfg.ProxyBase)
	}
	if cfg.HTTPTimout != 30*time.Second {
		t.Errorf("HTTPTimout = %v, want 30s", cfg.HTTPTimout)
	}
	if cfg.CacheCapacity != 50 {
		t.Errorf("CacheCapacity = %d, want 50", cfg.CacheCapacity)
	}
	if cfg.FadeDuration != 6*time.Millisecond {
		t.Errorf("FadeDuration = %v, want 6ms", cfg.FadeDuration)
	}
	if cfg.DriftThreshold != 250*time.Millisecond {
		t.Errorf("DriftThreshold = %v, want 250ms", cfg.DriftThreshold)
	}
	if cfg.MasterVolume != 1.0 {
		t.Errorf("MasterVolume = %f, want 1.0", cfg.MasterVolume)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CANVAEDIT_PORT", "3000")
	t.Setenv("CANVAEDIT_ASSET_DIR", "/tmp/media")
	t.Setenv("CANVAEDIT_PROXY_BASE", "http://localhost:3000/proxy?url=")
	t.Setenv("CANVAEDIT_FETCH_TIMEOUT", "10")
	t.Setenv("CANVAEDIT_CACHE_CAPACITY", "8")
	t.Setenv("CANVAEDIT_FADE_MS", "12")
	t.Setenv("CANVAEDIT_DRIFT_MS", "100")
	t.Setenv("CANVAEDIT_MASTER_VOLUME", "0.5")

	cfg := Load()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.AssetDir != "/tmp/media" {
		t.Errorf("AssetDir = %q, want '/tmp/media'", cfg.AssetDir)
	}
	if cfg.ProxyBase != "http://localhost:3000/proxy?url=" {
		t.Errorf("ProxyBase = %q", cfg.ProxyBase)
	}
	if cfg.HTTPTimout != 10*time.Second {
		t.Errorf("HTTPTimout = %v, want 10s", cfg.HTTPTimout)
	}
	if cfg.CacheCapacity != 8 {
		t.Errorf("CacheCapacity = %d, want 8", cfg.CacheCapacity)
	}
	if cfg.FadeDuration != 12*time.Millisecond {
		t.Errorf("FadeDuration = %v, want 12ms", cfg.FadeDuration)
	}
	if cfg.DriftThreshold != 100*time.Millisecond {
		t.Errorf("DriftThreshold = %v, want 100ms", cfg.DriftThreshold)
	}
	if cfg.MasterVolume != 0.5 {
		t.Errorf("MasterVolume = %f, want 0.5", cfg.MasterVolume)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("CANVAEDIT_PORT", "not-a-number")
	t.Setenv("CANVAEDIT_MASTER_VOLUME", "loud")

	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want default on malformed env", cfg.Port)
	}
	if cfg.MasterVolume != 1.0 {
		t.Errorf("MasterVolume = %f, want default on malformed env", cfg.MasterVolume)
	}
}
