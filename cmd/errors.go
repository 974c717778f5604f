package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/model"

	"github.com/spf13/cobra"
)

var errorsCmd = &cobra.Command{
	Use:   "errors [path]",
	Short: "List rejected input lines",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runErrors,
}

var errorsLimit int

func init() {
	errorsCmd.Flags().IntVarP(&errorsLimit, "limit", "l", 50, "Number of rejections to show (0 = all)")
	rootCmd.AddCommand(errorsCmd)
}

func runErrors(_ *cobra.Command, args []string) error {
	data, err := loadData(args)
	if err != nil {
		return err
	}
	parseErrors := data.report.ParseErrors

	if flagJSON {
		return printJSON(parseErrors)
	}
	if len(parseErrors) == 0 {
		fmt.Println("\n  No rejected lines.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("REJECTED LINES  (%s total)", cli.FormatNumber(int64(len(parseErrors))))))
	fmt.Println()

	shown := parseErrors
	if errorsLimit > 0 && len(shown) > errorsLimit {
		shown = shown[:errorsLimit]
	}

	for _, pe := range shown {
		where := fmt.Sprintf("line %d", pe.Line)
		if pe.File != "" {
			where = fmt.Sprintf("%s:%d", filepath.Base(pe.File), pe.Line)
		}
		detail := pe.Reason
		if pe.Field != "" {
			detail = fmt.Sprintf("%s (%s)", pe.Reason, pe.Field)
		}
		fmt.Printf("  %s\n", cli.ErrorLine(fmt.Sprintf("%-28s %s", where, detail)))
	}

	if len(shown) < len(parseErrors) {
		fmt.Printf("\n  …and %s more (use --limit 0 for all)\n",
			cli.FormatNumber(int64(len(parseErrors)-len(shown))))
	}

	byReason := make(map[string]int64)
	for _, pe := range parseErrors {
		byReason[pe.Reason]++
	}
	fmt.Printf("\n  %s invalid JSON, %s missing required fields\n\n",
		cli.FormatNumber(byReason[model.ReasonInvalidJSON]),
		cli.FormatNumber(byReason[model.ReasonMissingField]))

	return nil
}
