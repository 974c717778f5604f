// Package cmd implements the convstat CLI commands.
package cmd

import (
	"fmt"

	"github.com/theirongolddev/convstat/internal/config"
	"github.com/theirongolddev/convstat/internal/source"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	if cfg.General.DataDir != "" {
		fmt.Printf("    Data directory: %s\n", cfg.General.DataDir)
	} else if dir, ok := source.DefaultDataDir(); ok {
		fmt.Printf("    Data directory: %s (auto-discovered)\n", dir)
	} else {
		fmt.Println("    Data directory: not set, no default location found")
	}
	if cfg.General.Timezone != "" {
		fmt.Printf("    Timezone:       %s\n", cfg.General.Timezone)
	} else {
		fmt.Println("    Timezone:       system local")
	}
	fmt.Println()

	fmt.Println("  [Cost]")
	if cfg.Cost.RatePerMTok > 0 {
		fmt.Printf("    Rate: $%.2f per million tokens\n", cfg.Cost.RatePerMTok)
	} else {
		fmt.Println("    Rate: not set (estimates off)")
	}
	fmt.Println()

	fmt.Println("  [Cache]")
	fmt.Printf("    Enabled: %v\n", cfg.Cache.Enabled)
	fmt.Printf("    Path:    %s\n", cachePath(cfg))
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Listen: %s\n", cfg.Daemon.Listen)
	fmt.Println()

	fmt.Println("  [Dashboard]")
	if cfg.Dashboard.Out != "" {
		fmt.Printf("    Output: %s\n", cfg.Dashboard.Out)
	} else {
		fmt.Println("    Output: convstat-dashboard.html")
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Detect]")
	if len(cfg.Detect.Rules) > 0 {
		fmt.Printf("    Custom rules: %d\n", len(cfg.Detect.Rules))
	} else {
		fmt.Println("    Custom rules: none (built-in set)")
	}
	fmt.Println()

	fmt.Println("  Run `convstat setup` to reconfigure.")
	return nil
}
