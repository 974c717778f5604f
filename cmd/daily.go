package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/model"

	"github.com/spf13/cobra"
)

var dailyCmd = &cobra.Command{
	Use:   "daily [path]",
	Short: "Daily usage table",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

type dailyRow struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Events  int64  `json:"events"`
	Tokens  int64  `json:"tokens"`
}

func runDaily(_ *cobra.Command, args []string) error {
	data, err := loadData(args)
	if err != nil {
		return err
	}

	days := dailyRows(data.report)

	if flagJSON {
		if days == nil {
			days = []dailyRow{}
		}
		return printJSON(days)
	}
	if len(days) == 0 {
		fmt.Println("\n  No conversation events found.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("DAILY USAGE"))
	fmt.Println()

	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date,
			d.Weekday,
			cli.FormatNumber(d.Events),
			cli.FormatTokens(d.Tokens),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Events", "Tokens"},
		Rows:    rows,
	}))

	series := make([]float64, len(days))
	for i, d := range days {
		series[i] = float64(d.Events)
	}
	fmt.Printf("\n  Trend: %s\n\n", cli.RenderSparkline(series))

	return nil
}

// dailyRows expands the report's day buckets into a contiguous date range,
// so idle days show as zero rows instead of disappearing.
func dailyRows(report model.Report) []dailyRow {
	if len(report.DailyActivity) == 0 {
		return nil
	}

	dates := make([]string, 0, len(report.DailyActivity))
	for d := range report.DailyActivity {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	first, err := time.Parse(model.DateLayout, dates[0])
	if err != nil {
		return nil
	}
	last, err := time.Parse(model.DateLayout, dates[len(dates)-1])
	if err != nil {
		return nil
	}

	var rows []dailyRow
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format(model.DateLayout)
		rows = append(rows, dailyRow{
			Date:    key,
			Weekday: cli.FormatDayOfWeek(int(day.Weekday())),
			Events:  report.DailyActivity[key],
			Tokens:  report.DailyTokens[key],
		})
	}
	return rows
}
