// Package tui provides the interactive Bubble Tea dashboard for convstat.
package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/config"
	"github.com/theirongolddev/convstat/internal/detect"
	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/pipeline"
	"github.com/theirongolddev/convstat/internal/source"
	"github.com/theirongolddev/convstat/internal/store"
	"github.com/theirongolddev/convstat/internal/tui/components"
	"github.com/theirongolddev/convstat/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// DataLoadedMsg is sent when the initial load pipeline finishes.
type DataLoadedMsg struct {
	Report   model.Report
	Sessions []*model.Session
	LoadTime time.Duration
	Err      error
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background data refresh completes.
type RefreshDataMsg struct {
	Report   model.Report
	Sessions []*model.Session
	LoadTime time.Duration
	Err      error
}

// App is the root Bubble Tea model.
type App struct {
	cfg      config.Config
	loc      *time.Location
	detector *detect.Detector

	// Data
	report   model.Report
	sessions []*model.Session // most recently active first
	tech     map[string]int64
	cost     pipeline.CostEstimate
	loaded   bool
	loadErr  error
	loadTime time.Duration

	refreshing bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	sessState sessionsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals setupValues
	needSetup bool

	// Loading: channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg // progress + completion messages from loader goroutine
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5 // minimum content area height
)

// Tab indices, matching components.Tabs order.
const (
	tabOverview = iota
	tabActivity
	tabModels
	tabSessions
)

// NewApp creates a new TUI app model.
func NewApp(cfg config.Config) App {
	theme.SetActive(cfg.Appearance.Theme)

	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}

	rules := make([]detect.Rule, 0, len(cfg.Detect.Rules))
	for _, r := range cfg.Detect.Rules {
		rules = append(rules, detect.Rule{Name: r.Name, Keywords: r.Keywords})
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		cfg:       cfg,
		loc:       loc,
		detector:  detect.New(rules...),
		needSetup: !config.Exists(),
		spinner:   sp,
		loadSub:   make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.cfg, a.loc, a.loadSub),
		a.spinner.Tick,
	)
}

func (a *App) recompute() {
	sort.SliceStable(a.sessions, func(i, j int) bool {
		if !a.sessions[i].EndTime.Equal(a.sessions[j].EndTime) {
			return a.sessions[i].EndTime.After(a.sessions[j].EndTime)
		}
		return a.sessions[i].ID < a.sessions[j].ID
	})

	a.tech = a.detector.Count(a.sessions)

	if a.cfg.Cost.RatePerMTok > 0 {
		a.cost = pipeline.EstimateCost(a.report, a.cfg.Cost.RatePerMTok)
	}

	// Clamp sessions cursor to the new list bounds
	if a.sessState.cursor >= len(a.sessions) {
		a.sessState.cursor = len(a.sessions) - 1
	}
	if a.sessState.cursor < 0 {
		a.sessState.cursor = 0
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Forward to setup form if active
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || (a.needSetup && a.setupForm != nil) {
			return a, nil
		}

		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabSessions && a.sessState.cursor > 0 {
				a.sessState.cursor--
			}
			return a, nil

		case tea.MouseButtonWheelDown:
			if a.activeTab == tabSessions && a.sessState.cursor < len(a.sessions)-1 {
				a.sessState.cursor++
			}
			return a, nil

		case tea.MouseButtonLeft:
			// The tab bar occupies the first line
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
			return a, nil
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()

		// Global: quit
		if key == "ctrl+c" {
			return a, tea.Quit
		}

		if !a.loaded {
			return a, nil
		}

		// First-run setup wizard intercepts all keys
		if a.needSetup && a.setupForm != nil {
			return a.updateSetupForm(msg)
		}

		// Help toggle
		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}

		// Dismiss help
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		// Sessions tab list navigation
		if a.activeTab == tabSessions {
			switch key {
			case "j", "down":
				if a.sessState.cursor < len(a.sessions)-1 {
					a.sessState.cursor++
				}
				return a, nil
			case "k", "up":
				if a.sessState.cursor > 0 {
					a.sessState.cursor--
				}
				return a, nil
			case "g":
				a.sessState.cursor = 0
				a.sessState.offset = 0
				return a, nil
			case "G":
				a.sessState.cursor = len(a.sessions) - 1
				if a.sessState.cursor < 0 {
					a.sessState.cursor = 0
				}
				return a, nil
			}
		}

		if key == "q" {
			return a, tea.Quit
		}

		// Manual refresh
		if key == "r" && !a.refreshing {
			a.refreshing = true
			return a, refreshDataCmd(a.cfg, a.loc)
		}

		// Tab navigation
		switch key {
		case "left":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		case "right":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		default:
			if len(key) == 1 {
				if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
					a.activeTab = idx
				}
			}
		}
		return a, nil

	case DataLoadedMsg:
		a.report = msg.Report
		a.sessions = msg.Sessions
		a.loadErr = msg.Err
		a.loaded = true
		a.loadTime = msg.LoadTime
		a.recompute()

		// Activate first-run setup after data loads
		if a.needSetup {
			a.setupVals = setupValuesFrom(a.cfg)
			a.setupForm = newSetupForm(len(a.sessions), resolveDataDir(a.cfg), &a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}

		return a, nil

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case RefreshDataMsg:
		a.refreshing = false
		if msg.Err == nil {
			a.report = msg.Report
			a.sessions = msg.Sessions
			a.loadErr = nil
			a.loadTime = msg.LoadTime
			a.recompute()
		}
		return a, nil
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	if a.setupForm.State == huh.StateCompleted {
		_ = a.saveSetupConfig()
		theme.SetActive(a.cfg.Appearance.Theme)
		a.needSetup = false
		a.setupForm = nil
		// The new timezone or rate may change the report, so reload.
		a.refreshing = true
		return a, refreshDataCmd(a.cfg, a.loc)
	}

	if a.setupForm.State == huh.StateAborted {
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}

	return a, cmd
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}

	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	if !a.loaded {
		return a.viewLoading()
	}

	// First-run setup wizard
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}

	if a.showHelp {
		return a.viewHelp()
	}

	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}

	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  convstat needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active
	w := a.width
	h := a.height

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	spinnerStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface)

	countStyle := lipgloss.NewStyle().
		Foreground(t.TextPrimary).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ convstat"))
	b.WriteString(subtitleStyle.Render(" · Conversation Usage Metrics"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := 40
		if barW > w-30 {
			barW = w - 30
		}
		if barW < 20 {
			barW = 20
		}
		pct := float64(a.progress) / float64(a.progressMax)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Parsing logs\n\n"))
		b.WriteString(components.ProgressBar(pct, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Discovering logs..."))
	}

	card := cardStyle.Render(b.String())

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active
	h := a.height
	w := a.width

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	sectionStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Cyan).
		Background(t.Surface).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	dimStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Navigation"))
	b.WriteString("\n")
	navBindings := []struct{ key, desc string }{
		{"o a m s", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Navigate session list"},
		{"g G", "First / Last session"},
	}
	for _, bind := range navBindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Actions"))
	b.WriteString("\n")
	actionBindings := []struct{ key, desc string }{
		{"r", "Reload data"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	for _, bind := range actionBindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	card := cardStyle.Render(b.String())

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar + data summary row
	header := components.RenderTabBar(a.activeTab, w) + "\n" + a.renderInfoRow(w)

	// 2. Status bar
	loadInfo := fmt.Sprintf("%.1fs", a.loadTime.Seconds())
	statusBar := components.RenderStatusBar(w, loadInfo, a.refreshing)

	// 3. Content zone height
	headerH := lipgloss.Height(header)
	statusH := lipgloss.Height(statusBar)
	contentH := h - headerH - statusH
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	// 4. Tab content
	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabActivity:
		content = a.renderActivityTab(cw)
	case tabModels:
		content = a.renderModelsTab(cw)
	case tabSessions:
		content = a.renderSessionsTab(cw, contentH)
	}

	// 5. Truncate + pad to exactly contentH lines
	content = padHeight(truncateHeight(content, contentH), contentH)

	// 6. Fill each line to full width with background (fixes gaps between cards)
	content = fillLinesWithBackground(content, cw, t.Background)

	// 7. Place content with background fill (handles centering when w > cw)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	// 8. Stack vertically
	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)

	// 9. Fill any remaining terminal area with background
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// renderInfoRow renders the line under the tab bar: data source, totals,
// and the bucketing zone. Load problems replace it with an error note.
func (a App) renderInfoRow(w int) string {
	t := theme.Active

	rowStyle := lipgloss.NewStyle().Background(t.Surface).Width(w)

	if a.loadErr != nil {
		errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
		return rowStyle.Render(errStyle.Render(" " + a.loadErr.Error()))
	}

	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	dir := resolveDataDir(a.cfg)
	if dir == "" {
		dir = "(no data dir)"
	}

	row := dimStyle.Render(" ") + accentStyle.Render(truncStr(dir, w/3)) +
		dimStyle.Render(" │ ") +
		accentStyle.Render(cli.FormatNumber(a.report.TotalEvents)) + dimStyle.Render(" events · ") +
		accentStyle.Render(cli.FormatNumber(a.report.TotalSessions)) + dimStyle.Render(" sessions")
	if n := a.report.Rejected(); n > 0 {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		row += dimStyle.Render(" · ") + warnStyle.Render(fmt.Sprintf("%d rejected", n))
	}
	if a.cfg.General.Timezone != "" {
		row += dimStyle.Render(" │ ") + dimStyle.Render(a.cfg.General.Timezone)
	}

	return rowStyle.Render(row)
}

// ─── Data loading ───────────────────────────────────────────────

// resolveDataDir returns the configured data directory, falling back to
// platform auto-discovery. Empty means nothing usable was found.
func resolveDataDir(cfg config.Config) string {
	if cfg.General.DataDir != "" {
		return cfg.General.DataDir
	}
	if dir, ok := source.DefaultDataDir(); ok {
		return dir
	}
	return ""
}

func cacheFile(cfg config.Config) string {
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path
	}
	return pipeline.CachePath()
}

// loadOnce runs the full pipeline: discover, parse (cached when enabled),
// sessionize, aggregate. The returned report is usable even on error.
func loadOnce(cfg config.Config, loc *time.Location, progressFn pipeline.ProgressFunc) (model.Report, []*model.Session, error) {
	empty := pipeline.Aggregate(nil, nil, nil, loc)

	dir := resolveDataDir(cfg)
	if dir == "" {
		return empty, nil, errors.New("no conversation logs found: set general.data_dir in the config")
	}

	files, err := source.Discover(dir)
	if err != nil {
		return empty, nil, err
	}

	var lr *pipeline.LoadResult
	if cfg.Cache.Enabled {
		if cache, cerr := store.Open(cacheFile(cfg)); cerr == nil {
			cr, lerr := pipeline.LoadWithCache(files, cache, progressFn)
			_ = cache.Close()
			if lerr == nil {
				lr = &cr.LoadResult
			}
		}
	}
	if lr == nil {
		lr, err = pipeline.Load(files, progressFn)
		if err != nil {
			return empty, nil, err
		}
	}

	sessions := pipeline.BuildSessions(lr.Events)
	report := pipeline.Aggregate(lr.Events, sessions, lr.ParseErrors, loc)
	return report, sessions, nil
}

// loadDataCmd starts the data loading pipeline in a background goroutine.
// It streams ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(cfg config.Config, loc *time.Location, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Progress callback: non-blocking send so workers aren't stalled.
			// If the channel is full, we skip this update; the next one catches up.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			report, sessions, err := loadOnce(cfg, loc, progressFn)
			sub <- DataLoadedMsg{
				Report:   report,
				Sessions: sessions,
				LoadTime: time.Since(start),
				Err:      err,
			}
		}()

		// Block until the first message (either ProgressMsg or DataLoadedMsg)
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd reloads session data in the background (no progress UI).
func refreshDataCmd(cfg config.Config, loc *time.Location) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		report, sessions, err := loadOnce(cfg, loc, nil)
		return RefreshDataMsg{
			Report:   report,
			Sessions: sessions,
			LoadTime: time.Since(start),
			Err:      err,
		}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
// This ensures gaps between cards and empty lines have proper background fill.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)

		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
