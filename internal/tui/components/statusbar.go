package components

import (
	"fmt"

	"github.com/theirongolddev/convstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar: key hints on the left,
// load info on the right.
func RenderStatusBar(width int, loadInfo string, refreshing bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(width)

	left := " [?]help  [r]efresh  [q]uit"
	right := ""
	if refreshing {
		right = "refreshing… "
	} else if loadInfo != "" {
		right = fmt.Sprintf("Loaded in %s ", loadInfo)
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	bar := left
	for i := 0; i < padding; i++ {
		bar += " "
	}
	bar += right

	return style.Render(bar)
}
