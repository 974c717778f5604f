package components

import (
	"strings"

	"github.com/theirongolddev/convstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name string
	Key  rune // keyboard shortcut, always the lowercase first letter
}

// Tabs defines all available tabs, in display order.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o'},
	{Name: "Activity", Key: 'a'},
	{Name: "Models", Key: 'm'},
	{Name: "Sessions", Key: 's'},
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}

// renderTab renders one tab with a single column of padding on each side.
// The shortcut letter is highlighted on inactive tabs.
func renderTab(tab Tab, active bool) string {
	t := theme.Active

	if active {
		style := lipgloss.NewStyle().
			Foreground(t.AccentBright).
			Background(t.SurfaceHover).
			Bold(true)
		return style.Render(" " + tab.Name + " ")
	}

	nameStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	return nameStyle.Render(" ") +
		keyStyle.Render(tab.Name[:1]) +
		nameStyle.Render(tab.Name[1:]+" ")
}

// TabVisualWidth returns the rendered width of a tab. Mouse hitboxes are
// derived from this, so it must agree with renderTab exactly.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(renderTab(tab, active))
}

// RenderTabBar renders the single-row tab bar, padded to the full width.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	sep := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	var parts []string
	for i, tab := range Tabs {
		parts = append(parts, renderTab(tab, i == activeIdx))
	}
	row := strings.Join(parts, sep)

	pad := width - lipgloss.Width(row)
	if pad > 0 {
		row += lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", pad))
	}
	return row
}
