package cmd

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/convstat/internal/cli"

	"github.com/spf13/cobra"
)

var techCmd = &cobra.Command{
	Use:   "tech [path]",
	Short: "Technology detection across sessions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTech,
}

func init() {
	rootCmd.AddCommand(techCmd)
}

func runTech(_ *cobra.Command, args []string) error {
	data, err := loadData(args)
	if err != nil {
		return err
	}

	counts := detectorFor(data.cfg).Count(data.sessions)

	if flagJSON {
		return printJSON(counts)
	}
	if len(counts) == 0 {
		fmt.Println("\n  No sessions found.")
		return nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Println()
	fmt.Println(cli.RenderTitle("TECHNOLOGY BREAKDOWN"))
	fmt.Println()

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{
			name,
			cli.FormatNumber(counts[name]),
			cli.FormatShare(counts[name], data.report.TotalSessions),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Technology", "Sessions", "Share"},
		Rows:    rows,
	}))

	return nil
}
