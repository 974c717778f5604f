package cmd

import (
	"fmt"

	"github.com/theirongolddev/convstat/internal/cli"

	"github.com/spf13/cobra"
)

var hourlyCmd = &cobra.Command{
	Use:   "hourly [path]",
	Short: "Activity by hour of day",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHourly,
}

func init() {
	rootCmd.AddCommand(hourlyCmd)
}

func runHourly(_ *cobra.Command, args []string) error {
	data, err := loadData(args)
	if err != nil {
		return err
	}
	report := data.report

	if flagJSON {
		return printJSON(report.HourlyActivity)
	}
	if report.TotalEvents == 0 {
		fmt.Println("\n  No conversation events found.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("ACTIVITY BY HOUR  (%s)", data.loc.String())))
	fmt.Println()

	// Find max for bar scaling
	var maxCount int64
	for _, c := range report.HourlyActivity {
		if c > maxCount {
			maxCount = c
		}
	}

	for hour := 0; hour < 24; hour++ {
		fmt.Println(cli.RenderHorizontalBar(fmt.Sprintf("%02d:00", hour), report.HourlyActivity[hour], maxCount, 40))
	}

	if hour, count, ok := peakHour(report); ok {
		fmt.Printf("\n  Peak: %02d:00 (%s events)\n\n", hour, cli.FormatNumber(count))
	}

	return nil
}
