package cmd

import (
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [path]",
	Short: "Emit the full report as JSON",
	Long: "Aggregate the conversation logs and print the complete report as JSON.\n" +
		"The output round-trips: feeding it back through a JSON decoder yields\n" +
		"the same report.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(_ *cobra.Command, args []string) error {
	data, err := loadData(args)
	if err != nil {
		return err
	}
	return printJSON(data.report)
}
