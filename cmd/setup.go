package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/convstat/internal/config"
	"github.com/theirongolddev/convstat/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	if err := tui.RunSetup(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\n  Setup canceled; nothing saved.")
			return nil
		}
		return err
	}

	fmt.Printf("\n  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `convstat setup` anytime to reconfigure.")
	return nil
}
