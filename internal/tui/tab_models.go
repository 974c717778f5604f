package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/tui/components"
	"github.com/theirongolddev/convstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderModelsTab(cw int) string {
	var b strings.Builder

	// Row 1: per-model table across the full width
	b.WriteString(components.ContentCard("Models",
		a.renderModelTable(components.CardInnerWidth(cw)), cw))
	b.WriteString("\n")

	// Row 2: token kind split + distribution (or cost, when configured)
	halves := components.LayoutRow(cw, 2)
	leftInner := components.CardInnerWidth(halves[0])
	rightInner := components.CardInnerWidth(halves[1])

	var rightTitle, rightBody string
	if a.cfg.Cost.RatePerMTok > 0 {
		rightTitle = "Estimated Cost"
		rightBody = a.renderCostBody(rightInner)
	} else {
		rightTitle = "Per-Event Spread"
		rightBody = a.renderDistribution()
	}

	if a.isCompactLayout() {
		inner := components.CardInnerWidth(cw)
		b.WriteString(components.ContentCard("Token Kinds", a.renderTokenKindBars(inner), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard(rightTitle, rightBody, cw))
		if a.cfg.Cost.RatePerMTok > 0 {
			b.WriteString("\n")
			b.WriteString(components.ContentCard("Per-Event Spread", a.renderDistribution(), cw))
		}
	} else {
		kinds := components.ContentCard("Token Kinds", a.renderTokenKindBars(leftInner), halves[0])
		right := components.ContentCard(rightTitle, rightBody, halves[1])
		b.WriteString(components.CardRow([]string{kinds, right}))
		if a.cfg.Cost.RatePerMTok > 0 {
			b.WriteString("\n")
			b.WriteString(components.ContentCard("Per-Event Spread", a.renderDistribution(), cw))
		}
	}

	return b.String()
}

// modelRow pairs a model name with its report stats for sorting.
type modelRow struct {
	name  string
	stats model.ModelStats
}

// sortedModels returns models heaviest first, names breaking ties.
func sortedModels(breakdown map[string]model.ModelStats) []modelRow {
	rows := make([]modelRow, 0, len(breakdown))
	for name, stats := range breakdown {
		rows = append(rows, modelRow{name, stats})
	}
	sort.Slice(rows, func(i, j int) bool {
		ti, tj := rows[i].stats.Tokens.Total(), rows[j].stats.Tokens.Total()
		if ti != tj {
			return ti > tj
		}
		return rows[i].name < rows[j].name
	})
	return rows
}

func (a App) renderModelTable(innerW int) string {
	t := theme.Active
	r := a.report

	if len(r.ModelBreakdown) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("No model usage recorded")
	}

	rows := sortedModels(r.ModelBreakdown)
	grandTotal := r.TokenTotals.Total()

	nameW := innerW - 54
	if nameW < 14 {
		nameW = 14
	}
	if nameW > 32 {
		nameW = 32
	}

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %7s %8s %8s %8s %8s %6s",
		nameW, "Model", "Events", "Input", "Output", "Cache", "Total", "Share")))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", min(innerW, nameW+50))))
	b.WriteString("\n")

	for _, row := range rows {
		tk := row.stats.Tokens
		b.WriteString(valueStyle.Render(fmt.Sprintf("%-*s %7s %8s %8s %8s %8s %6s",
			nameW, truncStr(row.name, nameW),
			cli.FormatNumber(row.stats.EventCount),
			cli.FormatTokens(tk.Input),
			cli.FormatTokens(tk.Output),
			cli.FormatTokens(tk.CacheCreation+tk.CacheRead),
			cli.FormatTokens(tk.Total()),
			cli.FormatShare(tk.Total(), grandTotal))))
		b.WriteString("\n")
	}

	return b.String()
}

// renderTokenKindBars shows how the corpus splits across token kinds.
func (a App) renderTokenKindBars(innerW int) string {
	t := theme.Active
	tk := a.report.TokenTotals

	rows := []countBar{
		{"input", tk.Input, t.Blue},
		{"output", tk.Output, t.Accent},
		{"cache write", tk.CacheCreation, t.Cyan},
		{"cache read", tk.CacheRead, t.Green},
	}
	return renderCountBars(innerW, tk.Total(), rows)
}

func (a App) renderDistribution() string {
	t := theme.Active
	dist := a.report.TokenDistribution

	if dist.EventsWithTokens == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("No events carried token usage")
	}

	avg := a.report.TokenTotals.Total() / dist.EventsWithTokens

	var b strings.Builder
	b.WriteString(cli.RenderKeyValue("With tokens", cli.FormatNumber(dist.EventsWithTokens)+" events"))
	b.WriteString("\n")
	b.WriteString(cli.RenderKeyValue("Largest event", cli.FormatTokens(dist.MaxEventTokens)))
	b.WriteString("\n")
	b.WriteString(cli.RenderKeyValue("Smallest event", cli.FormatTokens(dist.MinEventTokens)))
	b.WriteString("\n")
	b.WriteString(cli.RenderKeyValue("Mean event", cli.FormatTokens(avg)))
	b.WriteString("\n")
	return b.String()
}

// renderCostBody shows the flat-rate estimate per model.
func (a App) renderCostBody(innerW int) string {
	t := theme.Active
	est := a.cost

	if len(est.ByModel) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("No model usage recorded")
	}

	var maxCost float64
	for _, mc := range est.ByModel {
		if mc.Cost > maxCost {
			maxCost = mc.Cost
		}
	}

	nameW := 18
	barMax := innerW - nameW - 12
	if barMax < 1 {
		barMax = 1
	}

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	costStyle := lipgloss.NewStyle().Foreground(t.Green)
	barStyle := lipgloss.NewStyle().Foreground(t.Accent)

	var b strings.Builder
	for _, mc := range est.ByModel {
		barLen := 0
		if maxCost > 0 {
			barLen = int(mc.Cost / maxCost * float64(barMax))
		}
		fmt.Fprintf(&b, "%s %8s %s\n",
			nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(mc.Model, nameW))),
			costStyle.Render(cli.FormatCost(mc.Cost)),
			barStyle.Render(strings.Repeat("█", barLen)))
	}
	b.WriteString("\n")
	b.WriteString(cli.RenderKeyValue("Total", cli.FormatCost(est.TotalCost)))
	b.WriteString("\n")
	return b.String()
}
