package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/tui/components"
	"github.com/theirongolddev/convstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// sessionsState holds the sessions tab state.
type sessionsState struct {
	cursor int
	offset int // scroll offset for the list
}

func (a App) renderSessionsTab(cw, h int) string {
	t := theme.Active

	if len(a.sessions) == 0 {
		return components.ContentCard("Sessions",
			lipgloss.NewStyle().Foreground(t.TextMuted).Render("No sessions found"), cw)
	}

	if a.isCompactLayout() {
		return a.renderSessionList(cw, h, true)
	}

	leftW := cw / 3
	if leftW < 34 {
		leftW = 34
	}
	rightW := cw - leftW

	listCard := a.renderSessionList(leftW, h, false)

	sel := a.sessions[a.sessState.cursor]
	detailCard := components.ContentCard(
		"Session "+cli.ShortenSession(sel.ID, 24),
		a.renderSessionDetail(sel, components.CardInnerWidth(rightW)),
		rightW,
	)

	return components.CardRow([]string{listCard, detailCard})
}

// renderSessionList renders the scrolling list pane. Wide mode adds token
// and event columns that the split layout has no room for.
func (a App) renderSessionList(w, h int, wide bool) string {
	t := theme.Active
	now := time.Now()

	inner := components.CardInnerWidth(w)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)

	visible := h - 7 // borders, card title, column header, footer hint
	if visible < 5 {
		visible = 5
	}

	offset := a.sessState.offset
	if a.sessState.cursor < offset {
		offset = a.sessState.cursor
	}
	if a.sessState.cursor >= offset+visible {
		offset = a.sessState.cursor - visible + 1
	}

	end := offset + visible
	if end > len(a.sessions) {
		end = len(a.sessions)
	}

	var b strings.Builder
	if wide {
		b.WriteString(headerStyle.Render(fmt.Sprintf("  %-26s %-16s %8s %7s %8s",
			"Session", "Last Active", "Duration", "Events", "Tokens")))
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("  %-15s %-11s %8s", "Session", "Last", "Duration")))
	}
	b.WriteString("\n")

	for i := offset; i < end; i++ {
		s := a.sessions[i]

		var line string
		if wide {
			line = fmt.Sprintf("%s %-26s %-16s %8s %7s %8s",
				statusGlyph(s.Status(now)),
				cli.ShortenSession(s.ID, 26),
				cli.FormatTime(s.EndTime, a.loc),
				cli.FormatDuration(s.DurationSecs),
				cli.FormatNumber(int64(len(s.Events))),
				cli.FormatTokens(s.TokenTotal()))
		} else {
			line = fmt.Sprintf("%s %-15s %-11s %8s",
				statusGlyph(s.Status(now)),
				cli.ShortenSession(s.ID, 15),
				s.EndTime.In(a.loc).Format("Jan 02 15:04"),
				cli.FormatDuration(s.DurationSecs))
		}
		line = truncStr(line, inner)

		if i == a.sessState.cursor {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
		b.WriteString("\n")
	}

	title := fmt.Sprintf("Sessions (%d)", len(a.sessions))
	return components.ContentCard(title, b.String(), w)
}

// statusGlyph maps a session status to a themed activity dot.
func statusGlyph(status model.SessionStatus) string {
	t := theme.Active
	switch status {
	case model.StatusActive:
		return lipgloss.NewStyle().Foreground(t.Green).Render("●")
	case model.StatusRecent:
		return lipgloss.NewStyle().Foreground(t.Yellow).Render("◐")
	default:
		return lipgloss.NewStyle().Foreground(t.TextDim).Render("○")
	}
}

// renderSessionDetail generates the full detail pane for one session.
func (a App) renderSessionDetail(sel *model.Session, innerW int) string {
	t := theme.Active
	now := time.Now()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var b strings.Builder
	b.WriteString(mutedStyle.Render(truncStr(sel.ID, innerW)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s %s\n",
		labelStyle.Render("Status:"),
		statusGlyph(sel.Status(now)),
		valueStyle.Render(string(sel.Status(now)))))

	timeStr := cli.FormatTime(sel.StartTime, a.loc)
	if !sel.EndTime.Equal(sel.StartTime) {
		timeStr += " → " + cli.FormatTime(sel.EndTime, a.loc)
	}
	b.WriteString(fmt.Sprintf("%s %s (%s)\n",
		labelStyle.Render("Active:"),
		valueStyle.Render(timeStr),
		mutedStyle.Render(cli.FormatDuration(sel.DurationSecs))))

	b.WriteString(fmt.Sprintf("%s %s    %s %s    %s %s\n",
		labelStyle.Render("Events:"), valueStyle.Render(cli.FormatNumber(int64(len(sel.Events)))),
		labelStyle.Render("User:"), valueStyle.Render(cli.FormatNumber(sel.RoleCounts[model.RoleUser])),
		labelStyle.Render("Assistant:"), valueStyle.Render(cli.FormatNumber(sel.RoleCounts[model.RoleAssistant]))))

	b.WriteString(fmt.Sprintf("%s %s\n\n",
		labelStyle.Render("Topic:"),
		valueStyle.Render(a.detector.ClassifySession(sel))))

	// Token breakdown
	var totals model.TokenTotals
	for _, ev := range sel.Events {
		totals.Add(ev.Tokens)
	}

	b.WriteString(headerStyle.Render("TOKENS"))
	b.WriteString("\n")
	tokenRows := []struct {
		kind   string
		tokens int64
	}{
		{"Input", totals.Input},
		{"Output", totals.Output},
		{"Cache Write", totals.CacheCreation},
		{"Cache Read", totals.CacheRead},
	}
	for _, row := range tokenRows {
		if row.tokens == 0 {
			continue
		}
		b.WriteString(valueStyle.Render(fmt.Sprintf("%-14s %10s", row.kind, cli.FormatTokens(row.tokens))))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(strings.Repeat("─", 25)))
	b.WriteString("\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("%-14s %10s", "Total", cli.FormatTokens(totals.Total()))))
	b.WriteString("\n")

	// Per-model usage
	if len(sel.ModelUsage) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("MODELS"))
		b.WriteString("\n")

		names := make([]string, 0, len(sel.ModelUsage))
		for name := range sel.ModelUsage {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			ti, tj := sel.ModelUsage[names[i]].Total(), sel.ModelUsage[names[j]].Total()
			if ti != tj {
				return ti > tj
			}
			return names[i] < names[j]
		})

		for _, name := range names {
			usage := sel.ModelUsage[name]
			b.WriteString(valueStyle.Render(fmt.Sprintf("%-24s %10s",
				truncStr(name, 24), cli.FormatTokens(usage.Total()))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("[j/k] navigate  [g/G] first/last  [q] quit"))

	return b.String()
}
