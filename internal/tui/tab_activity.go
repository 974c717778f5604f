package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/tui/components"
	"github.com/theirongolddev/convstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// recentDayRows bounds the "Recent Days" table.
const recentDayRows = 10

func (a App) renderActivityTab(cw int) string {
	t := theme.Active
	r := a.report
	var b strings.Builder

	// Row 1: Hourly event chart across the full width
	hourVals := make([]float64, 24)
	var total int64
	for hour, count := range r.HourlyActivity {
		if hour >= 0 && hour < 24 {
			hourVals[hour] = float64(count)
			total += count
		}
	}
	chartH := 10
	if a.isCompactLayout() {
		chartH = 8
	}
	title := "Events by Hour"
	if total > 0 {
		title = fmt.Sprintf("Events by Hour (%s total)", cli.FormatNumber(total))
	}
	b.WriteString(components.ContentCard(
		title,
		components.BarChart(hourVals, hourLabels(), t.Blue, components.CardInnerWidth(cw), chartH),
		cw,
	))
	b.WriteString("\n")

	// Row 2: Weekday split + recent days table
	halves := components.LayoutRow(cw, 2)
	weekdayCard := components.ContentCard("By Weekday",
		a.renderWeekdayBars(components.CardInnerWidth(halves[0])), halves[0])
	daysCard := components.ContentCard("Recent Days",
		a.renderRecentDays(components.CardInnerWidth(halves[1])), halves[1])

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("By Weekday",
			a.renderWeekdayBars(components.CardInnerWidth(cw)), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Recent Days",
			a.renderRecentDays(components.CardInnerWidth(cw)), cw))
	} else {
		b.WriteString(components.CardRow([]string{weekdayCard, daysCard}))
	}

	return b.String()
}

// renderWeekdayBars folds daily activity into the seven weekdays.
func (a App) renderWeekdayBars(innerW int) string {
	t := theme.Active

	var weekdays [7]int64
	for day, count := range a.report.DailyActivity {
		dt, err := time.Parse(model.DateLayout, day)
		if err != nil {
			continue
		}
		weekdays[int(dt.Weekday())] += count
	}

	rows := make([]countBar, 0, 7)
	for wd := 0; wd < 7; wd++ {
		color := t.Accent
		if wd == 0 || wd == 6 {
			color = t.Cyan // weekends
		}
		rows = append(rows, countBar{cli.FormatDayOfWeek(wd), weekdays[wd], color})
	}

	return renderCountBars(innerW, a.report.TotalEvents, rows)
}

// renderRecentDays lists the most recent calendar days with their event and
// token volumes, newest first.
func (a App) renderRecentDays(innerW int) string {
	t := theme.Active
	r := a.report

	if len(r.DailyActivity) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("No activity")
	}

	days := sortedDays(r.DailyActivity)
	if len(days) > recentDayRows {
		days = days[len(days)-recentDayRows:]
	}

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-12s %4s %8s %8s", "Date", "Day", "Events", "Tokens")))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", min(innerW, 35))))
	b.WriteString("\n")

	// Newest day on top
	for i := len(days) - 1; i >= 0; i-- {
		day := days[i]
		weekday := ""
		if dt, err := time.Parse(model.DateLayout, day); err == nil {
			weekday = cli.FormatDayOfWeek(int(dt.Weekday()))
		}
		b.WriteString(valueStyle.Render(fmt.Sprintf("%-12s %4s %8s %8s",
			day,
			weekday,
			cli.FormatNumber(r.DailyActivity[day]),
			cli.FormatTokens(r.DailyTokens[day]))))
		b.WriteString("\n")
	}

	return b.String()
}

// hourLabels returns X-axis labels for 24 hourly buckets.
func hourLabels() []string {
	labels := make([]string, 24)
	for i := range labels {
		labels[i] = fmt.Sprintf("%02d", i)
	}
	return labels
}
