package cmd

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/convstat/internal/cli"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models [path]",
	Short: "Model usage breakdown",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(_ *cobra.Command, args []string) error {
	data, err := loadData(args)
	if err != nil {
		return err
	}
	report := data.report

	if flagJSON {
		return printJSON(report.ModelBreakdown)
	}
	if len(report.ModelBreakdown) == 0 {
		fmt.Println("\n  No model usage recorded.")
		return nil
	}

	names := make([]string, 0, len(report.ModelBreakdown))
	for name := range report.ModelBreakdown {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a := report.ModelBreakdown[names[i]].Tokens.Total()
		b := report.ModelBreakdown[names[j]].Tokens.Total()
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})

	fmt.Println()
	fmt.Println(cli.RenderTitle("MODEL USAGE"))
	fmt.Println()

	totalTokens := report.TokenTotals.Total()

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		ms := report.ModelBreakdown[name]
		rows = append(rows, []string{
			truncate(name, 28),
			cli.FormatNumber(ms.EventCount),
			cli.FormatTokens(ms.Tokens.Input),
			cli.FormatTokens(ms.Tokens.Output),
			cli.FormatTokens(ms.Tokens.CacheCreation + ms.Tokens.CacheRead),
			cli.FormatTokens(ms.Tokens.Total()),
			cli.FormatShare(ms.Tokens.Total(), totalTokens),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Events", "Input", "Output", "Cache", "Total", "Share"},
		Rows:    rows,
	}))

	return nil
}
