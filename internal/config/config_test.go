package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func writeConfigFile(t *testing.T, home, body string) {
	t.Helper()
	dir := filepath.Join(home, "convstat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	setConfigHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Cache.Enabled {
		t.Error("default Cache.Enabled = false, want true")
	}
	if cfg.Daemon.Listen != "127.0.0.1:8713" {
		t.Errorf("default Daemon.Listen = %q", cfg.Daemon.Listen)
	}
	if cfg.Appearance.Theme != "flexoki-dark" {
		t.Errorf("default theme = %q", cfg.Appearance.Theme)
	}
	if cfg.Cost.RatePerMTok != 0 {
		t.Errorf("default cost rate = %v, want 0 (disabled)", cfg.Cost.RatePerMTok)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	home := setConfigHome(t)
	writeConfigFile(t, home, `
[general]
data_dir = "/logs"
timezone = "UTC"

[cost]
rate_per_million_tokens = 3.5

[cache]
enabled = false

[[detect.rules]]
name = "terraform"
keywords = ["terraform", "hcl"]
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.DataDir != "/logs" || cfg.General.Timezone != "UTC" {
		t.Errorf("general = %+v", cfg.General)
	}
	if cfg.Cost.RatePerMTok != 3.5 {
		t.Errorf("cost rate = %v, want 3.5", cfg.Cost.RatePerMTok)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false from file")
	}
	if len(cfg.Detect.Rules) != 1 || cfg.Detect.Rules[0].Name != "terraform" {
		t.Errorf("detect rules = %+v", cfg.Detect.Rules)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	home := setConfigHome(t)
	writeConfigFile(t, home, `
[general]
data_dir = "/from/file"
`)
	t.Setenv("CONVSTAT_DATA_DIR", "/from/env")
	t.Setenv("CONVSTAT_NO_CACHE", "true")
	t.Setenv("CONVSTAT_COST_RATE", "2.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.DataDir != "/from/env" {
		t.Errorf("DataDir = %q, want env to win", cfg.General.DataDir)
	}
	if cfg.Cache.Enabled {
		t.Error("CONVSTAT_NO_CACHE should disable the cache")
	}
	if cfg.Cost.RatePerMTok != 2.25 {
		t.Errorf("cost rate = %v, want 2.25", cfg.Cost.RatePerMTok)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	setConfigHome(t)

	want := DefaultConfig()
	want.General.DataDir = "/data"
	want.General.Timezone = "America/New_York"
	want.Cost.RatePerMTok = 1.5
	want.Detect.Rules = []DetectRule{{Name: "go", Keywords: []string{"goroutine"}}}

	if err := Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists = false after Save")
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.General != want.General {
		t.Errorf("General = %+v, want %+v", got.General, want.General)
	}
	if got.Cost != want.Cost {
		t.Errorf("Cost = %+v, want %+v", got.Cost, want.Cost)
	}
	if len(got.Detect.Rules) != 1 || got.Detect.Rules[0].Name != "go" {
		t.Errorf("Detect.Rules = %+v", got.Detect.Rules)
	}
}

func TestLocation(t *testing.T) {
	var cfg Config
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Errorf("empty timezone: loc=%v err=%v, want local", loc, err)
	}

	cfg.General.Timezone = "UTC"
	loc, err = cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("UTC timezone: loc=%v err=%v", loc, err)
	}

	cfg.General.Timezone = "Not/AZone"
	if _, err = cfg.Location(); err == nil {
		t.Error("invalid timezone should error")
	}
}

func TestConfigPathUsesXDG(t *testing.T) {
	home := setConfigHome(t)
	want := filepath.Join(home, "convstat", "config.toml")
	if got := ConfigPath(); got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}
