package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all convstat configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Cost       CostConfig       `toml:"cost"`
	Cache      CacheConfig      `toml:"cache"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Dashboard  DashboardConfig  `toml:"dashboard"`
	Appearance AppearanceConfig `toml:"appearance"`
	Detect     DetectConfig     `toml:"detect"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	// DataDir overrides log auto-discovery when set.
	DataDir string `toml:"data_dir,omitempty"`
	// Timezone is an IANA zone name for hour and day bucketing.
	// Empty means the system's local zone.
	Timezone string `toml:"timezone,omitempty"`
}

// CostConfig holds spend-estimate settings.
type CostConfig struct {
	// RatePerMTok is a flat dollar rate per million tokens. Zero
	// disables cost estimates.
	RatePerMTok float64 `toml:"rate_per_million_tokens"`
}

// CacheConfig holds event-cache settings.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path,omitempty"`
}

// DaemonConfig holds background-service settings.
type DaemonConfig struct {
	Listen string `toml:"listen"`
}

// DashboardConfig holds HTML-export settings.
type DashboardConfig struct {
	Out string `toml:"out,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DetectConfig holds technology-detection settings.
type DetectConfig struct {
	// Rules are user rules checked before the built-in ones.
	Rules []DetectRule `toml:"rules,omitempty"`
}

// DetectRule maps keywords to a technology label.
type DetectRule struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			Enabled: true,
		},
		Daemon: DaemonConfig{
			Listen: "127.0.0.1:8713",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "convstat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "convstat")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// CONVSTAT_* environment variables override what the file says.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envOverrides keeps the environment surface flat and explicit:
// CONVSTAT_DATA_DIR, CONVSTAT_TIMEZONE, CONVSTAT_NO_CACHE,
// CONVSTAT_COST_RATE, CONVSTAT_DAEMON_LISTEN.
type envOverrides struct {
	DataDir      string  `envconfig:"DATA_DIR"`
	Timezone     string  `envconfig:"TIMEZONE"`
	NoCache      bool    `envconfig:"NO_CACHE"`
	CostRate     float64 `envconfig:"COST_RATE"`
	DaemonListen string  `envconfig:"DAEMON_LISTEN"`
}

func applyEnv(cfg *Config) error {
	var ov envOverrides
	if err := envconfig.Process("convstat", &ov); err != nil {
		return fmt.Errorf("reading env overrides: %w", err)
	}
	if ov.DataDir != "" {
		cfg.General.DataDir = ov.DataDir
	}
	if ov.Timezone != "" {
		cfg.General.Timezone = ov.Timezone
	}
	if ov.NoCache {
		cfg.Cache.Enabled = false
	}
	if ov.CostRate > 0 {
		cfg.Cost.RatePerMTok = ov.CostRate
	}
	if ov.DaemonListen != "" {
		cfg.Daemon.Listen = ov.DaemonListen
	}
	return nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Location resolves the configured timezone. Empty means local time.
func (c Config) Location() (*time.Location, error) {
	if c.General.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.General.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.General.Timezone, err)
	}
	return loc, nil
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
