package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/pipeline"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [path]",
	Short: "Usage summary: sessions, tokens, activity (default command)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, args []string) error {
	data, err := loadData(args)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(data.report)
	}

	report := data.report
	if report.TotalEvents == 0 && report.Rejected() == 0 {
		fmt.Println("\n  No conversation events found.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("CONVERSATION USAGE"))
	fmt.Println()

	rows := [][]string{
		{"Sessions", cli.FormatNumber(report.TotalSessions)},
		{"Events", cli.FormatNumber(report.TotalEvents)},
		{"User turns", cli.FormatNumber(report.RoleCounts[model.RoleUser])},
		{"Assistant turns", cli.FormatNumber(report.RoleCounts[model.RoleAssistant])},
		{"---"},
		{"Input tokens", cli.FormatNumber(report.TokenTotals.Input)},
		{"Output tokens", cli.FormatNumber(report.TokenTotals.Output)},
		{"Cache write tokens", cli.FormatNumber(report.TokenTotals.CacheCreation)},
		{"Cache read tokens", cli.FormatNumber(report.TokenTotals.CacheRead)},
		{"Total tokens", cli.FormatNumber(report.TokenTotals.Total())},
	}

	if dist := report.TokenDistribution; dist.EventsWithTokens > 0 {
		rows = append(rows,
			[]string{"---"},
			[]string{"Events with tokens", cli.FormatNumber(dist.EventsWithTokens)},
			[]string{"Largest event", cli.FormatNumber(dist.MaxEventTokens)},
			[]string{"Smallest event", cli.FormatNumber(dist.MinEventTokens)},
			[]string{"Mean per event", cli.FormatNumber(report.TokenTotals.Total() / dist.EventsWithTokens)},
		)
	}

	if hour, count, ok := peakHour(report); ok {
		day, dayCount, _ := busiestDay(report)
		rows = append(rows,
			[]string{"---"},
			[]string{"Peak hour", fmt.Sprintf("%02d:00 (%s events)", hour, cli.FormatNumber(count))},
			[]string{"Busiest day", fmt.Sprintf("%s (%s events)", day, cli.FormatNumber(dayCount))},
		)
	}

	if rate := data.cfg.Cost.RatePerMTok; rate > 0 {
		est := pipeline.EstimateCost(report, rate)
		rows = append(rows,
			[]string{"---"},
			[]string{fmt.Sprintf("Est. cost @ $%.2f/MTok", rate), cli.FormatCost(est.TotalCost)},
		)
	}

	if n := report.Rejected(); n > 0 {
		rows = append(rows,
			[]string{"---"},
			[]string{"Skipped lines", cli.FormatNumber(int64(n))},
		)
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if n := report.Rejected(); n > 0 {
		fmt.Printf("  %s lines skipped (see `convstat errors`)\n", cli.FormatNumber(int64(n)))
	}

	if data.result.FileErrors > 0 {
		fmt.Fprintf(os.Stderr, "\n  %d files could not be read\n", data.result.FileErrors)
	}

	return nil
}

// peakHour returns the hour with the most events, earlier hours winning
// ties so repeated runs print the same line.
func peakHour(report model.Report) (int, int64, bool) {
	best, bestCount, found := 0, int64(0), false
	for hour := 0; hour < 24; hour++ {
		if count := report.HourlyActivity[hour]; count > bestCount {
			best, bestCount, found = hour, count, true
		}
	}
	return best, bestCount, found
}

// busiestDay returns the date with the most events, earlier dates winning
// ties.
func busiestDay(report model.Report) (string, int64, bool) {
	dates := make([]string, 0, len(report.DailyActivity))
	for d := range report.DailyActivity {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	best, bestCount, found := "", int64(0), false
	for _, d := range dates {
		if count := report.DailyActivity[d]; count > bestCount {
			best, bestCount, found = d, count, true
		}
	}
	return best, bestCount, found
}
