package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/detect"
	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/tui/components"
	"github.com/theirongolddev/convstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	r := a.report
	var b strings.Builder

	// Row 1: Metric cards
	rejectedHint := "none rejected"
	if n := r.Rejected(); n > 0 {
		rejectedHint = fmt.Sprintf("%d rejected", n)
	}

	sessionHint := ""
	if avg := avgDuration(r.SessionDurations); avg > 0 {
		sessionHint = "avg " + cli.FormatDuration(avg)
	}

	tokenHint := fmt.Sprintf("in %s · out %s",
		cli.FormatTokens(r.TokenTotals.Input),
		cli.FormatTokens(r.TokenTotals.Output))

	metrics := []components.Metric{
		{Label: "Events", Value: cli.FormatNumber(r.TotalEvents), Hint: rejectedHint},
		{Label: "Sessions", Value: cli.FormatNumber(r.TotalSessions), Hint: sessionHint},
		{Label: "Tokens", Value: cli.FormatTokens(r.TokenTotals.Total()), Hint: tokenHint},
	}
	if a.cfg.Cost.RatePerMTok > 0 {
		metrics = append(metrics, components.Metric{
			Label: "Est. Cost",
			Value: cli.FormatCost(a.cost.TotalCost),
			Hint:  fmt.Sprintf("$%.2f/MTok", a.cost.RatePerMTok),
		})
	} else if hour, count, ok := busiestHour(r.HourlyActivity); ok {
		metrics = append(metrics, components.Metric{
			Label: "Busiest Hour",
			Value: fmt.Sprintf("%02d:00", hour),
			Hint:  cli.FormatNumber(count) + " events",
		})
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	// Row 2: Daily token chart
	if len(r.DailyTokens) > 0 {
		days := sortedDays(r.DailyTokens)
		vals := make([]float64, len(days))
		for i, day := range days {
			vals[i] = float64(r.DailyTokens[day])
		}
		chartH := 10
		if a.isCompactLayout() {
			chartH = 8
		}
		b.WriteString(components.ContentCard(
			"Daily Tokens",
			components.BarChart(vals, dayLabels(days), t.Blue, components.CardInnerWidth(cw), chartH),
			cw,
		))
		b.WriteString("\n")
	}

	// Row 3: Roles + Technologies
	halves := components.LayoutRow(cw, 2)

	roleCard := components.ContentCard("Roles", a.renderRoleBars(components.CardInnerWidth(halves[0])), halves[0])
	techCard := components.ContentCard("Technologies", a.renderTechBars(components.CardInnerWidth(halves[1])), halves[1])

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Roles", a.renderRoleBars(components.CardInnerWidth(cw)), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Technologies", a.renderTechBars(components.CardInnerWidth(cw)), cw))
	} else {
		b.WriteString(components.CardRow([]string{roleCard, techCard}))
	}

	return b.String()
}

// countBar is one row in a label/count/bar/share listing.
type countBar struct {
	label string
	count int64
	color lipgloss.Color
}

// renderRoleBars renders one bar per role plus a remainder row for events
// with an unrecognized role.
func (a App) renderRoleBars(innerW int) string {
	t := theme.Active
	r := a.report

	rows := []countBar{
		{"user", r.RoleCounts[model.RoleUser], t.Blue},
		{"assistant", r.RoleCounts[model.RoleAssistant], t.Accent},
	}
	var known int64
	for _, row := range rows {
		known += row.count
	}
	if other := r.TotalEvents - known; other > 0 {
		rows = append(rows, countBar{"other", other, t.TextDim})
	}

	return renderCountBars(innerW, r.TotalEvents, rows)
}

// renderTechBars renders detected technology labels by session count.
func (a App) renderTechBars(innerW int) string {
	t := theme.Active

	if len(a.tech) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("No sessions")
	}

	rows := make([]countBar, 0, len(a.tech))
	for label, count := range a.tech {
		color := t.Accent
		if label == detect.General {
			color = t.TextDim
		}
		rows = append(rows, countBar{label, count, color})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].label < rows[j].label
	})

	return renderCountBars(innerW, a.report.TotalSessions, rows)
}

// renderCountBars lays out rows of "label count bar pct" with the bars
// scaled to the largest count.
func renderCountBars(innerW int, whole int64, rows []countBar) string {
	t := theme.Active

	labelW := 0
	var maxCount int64
	for _, row := range rows {
		if len(row.label) > labelW {
			labelW = len(row.label)
		}
		if row.count > maxCount {
			maxCount = row.count
		}
	}
	if labelW > 14 {
		labelW = 14
	}

	countW := len(cli.FormatNumber(maxCount))
	barMax := innerW - labelW - countW - 10
	if barMax < 1 {
		barMax = 1
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	countStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	pctStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var b strings.Builder
	for _, row := range rows {
		barLen := 0
		if maxCount > 0 {
			barLen = int(int64(barMax) * row.count / maxCount)
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			labelStyle.Render(fmt.Sprintf("%-*s", labelW, truncStr(row.label, labelW))),
			countStyle.Render(fmt.Sprintf("%*s", countW, cli.FormatNumber(row.count))),
			lipgloss.NewStyle().Foreground(row.color).Render(strings.Repeat("█", barLen)),
			pctStyle.Render(cli.FormatShare(row.count, whole)))
	}
	return b.String()
}

// sortedDays returns the map's date keys in calendar order.
func sortedDays(byDay map[string]int64) []string {
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// dayLabels builds compact X-axis labels for a chronological date series.
// The first label and month boundaries show the month abbreviation;
// everything else shows just the day number.
func dayLabels(days []string) []string {
	labels := make([]string, len(days))
	prevMonth := time.Month(0)
	for i, day := range days {
		dt, err := time.Parse(model.DateLayout, day)
		if err != nil {
			labels[i] = day
			continue
		}
		if i == 0 || dt.Month() != prevMonth {
			labels[i] = dt.Format("Jan")
		} else {
			labels[i] = strconv.Itoa(dt.Day())
		}
		prevMonth = dt.Month()
	}
	return labels
}

func avgDuration(durations []int64) int64 {
	if len(durations) == 0 {
		return 0
	}
	var sum int64
	for _, d := range durations {
		sum += d
	}
	return sum / int64(len(durations))
}

// busiestHour returns the hour with the most events, preferring the earlier
// hour on ties.
func busiestHour(hourly map[int]int64) (int, int64, bool) {
	best := -1
	var bestCount int64
	for hour := 0; hour < 24; hour++ {
		if count, ok := hourly[hour]; ok && count > bestCount {
			best = hour
			bestCount = count
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestCount, true
}
