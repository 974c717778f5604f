package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/convstat/internal/config"

	"github.com/charmbracelet/huh"
)

// setupValues backs the first-run huh form. Numeric fields stay strings
// until save so the form can validate them in place.
type setupValues struct {
	dataDir  string
	timezone string
	costRate string
	cache    bool
	theme    string
}

// setupValuesFrom seeds form values from an existing config.
func setupValuesFrom(cfg config.Config) setupValues {
	vals := setupValues{
		dataDir:  cfg.General.DataDir,
		timezone: cfg.General.Timezone,
		cache:    cfg.Cache.Enabled,
		theme:    cfg.Appearance.Theme,
	}
	if cfg.Cost.RatePerMTok > 0 {
		vals.costRate = strconv.FormatFloat(cfg.Cost.RatePerMTok, 'f', -1, 64)
	}
	return vals
}

// newSetupForm builds the configuration form. found is the session count
// from the initial load (negative when unknown); dataDir is the directory
// that load used.
func newSetupForm(found int, dataDir string, vals *setupValues) *huh.Form {
	welcome := "Let's set up convstat."
	switch {
	case found >= 0 && dataDir != "":
		welcome = fmt.Sprintf("Found %d sessions in %s.", found, dataDir)
	case found >= 0:
		welcome = "No conversation logs were found yet; you can point convstat at them below."
	}

	themeOptions := []huh.Option[string]{
		huh.NewOption("Flexoki Dark", "flexoki-dark"),
		huh.NewOption("Catppuccin Mocha", "catppuccin-mocha"),
		huh.NewOption("Tokyo Night", "tokyo-night"),
		huh.NewOption("Terminal (ANSI)", "terminal"),
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("◈ convstat setup").
				Description(welcome),

			huh.NewInput().
				Title("Data directory").
				Description("Directory or file with .jsonl conversation logs. Empty uses auto-discovery.").
				Placeholder(dataDir).
				Value(&vals.dataDir),

			huh.NewInput().
				Title("Timezone").
				Description("IANA zone for hourly and daily buckets, e.g. Europe/Berlin. Empty uses local time.").
				Validate(validateTimezone).
				Value(&vals.timezone),

			huh.NewInput().
				Title("Cost rate").
				Description("Dollars per million tokens for spend estimates. Empty or 0 disables them.").
				Validate(validateRate).
				Value(&vals.costRate),

			huh.NewSelect[string]().
				Title("Theme").
				Options(themeOptions...).
				Value(&vals.theme),

			huh.NewConfirm().
				Title("Cache parsed events?").
				Description("Keeps a local SQLite cache so repeat runs only parse changed files.").
				Affirmative("Yes").
				Negative("No").
				Value(&vals.cache),
		),
	)
}

func validateTimezone(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.LoadLocation(s); err != nil {
		return fmt.Errorf("unknown timezone %q", s)
	}
	return nil
}

func validateRate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	if rate < 0 {
		return fmt.Errorf("rate cannot be negative")
	}
	return nil
}

// applySetup folds validated form values into a config.
func applySetup(cfg *config.Config, vals setupValues) {
	cfg.General.DataDir = strings.TrimSpace(vals.dataDir)
	cfg.General.Timezone = strings.TrimSpace(vals.timezone)
	cfg.Cache.Enabled = vals.cache
	if vals.theme != "" {
		cfg.Appearance.Theme = vals.theme
	}

	cfg.Cost.RatePerMTok = 0
	if rate, err := strconv.ParseFloat(strings.TrimSpace(vals.costRate), 64); err == nil && rate > 0 {
		cfg.Cost.RatePerMTok = rate
	}
}

// saveSetupConfig persists the completed form and applies it to the
// running app.
func (a *App) saveSetupConfig() error {
	cfg := a.cfg
	applySetup(&cfg, a.setupVals)

	if err := config.Save(cfg); err != nil {
		return err
	}

	a.cfg = cfg
	if loc, err := cfg.Location(); err == nil {
		a.loc = loc
	}
	return nil
}

// RunSetup runs the configuration form standalone, outside the dashboard.
// Aborting the form leaves the existing config untouched.
func RunSetup() error {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	vals := setupValuesFrom(cfg)
	form := newSetupForm(-1, "", &vals)

	if err := form.Run(); err != nil {
		return err
	}

	applySetup(&cfg, vals)
	return config.Save(cfg)
}
