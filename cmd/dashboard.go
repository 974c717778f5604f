package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/theirongolddev/convstat/internal/dashboard"
	"github.com/theirongolddev/convstat/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	dashboardOut  string
	dashboardOpen bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard [path]",
	Short: "Write an HTML dashboard with charts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVarP(&dashboardOut, "out", "o", "", "Output file (default: convstat-dashboard.html)")
	dashboardCmd.Flags().BoolVar(&dashboardOpen, "open", false, "Open the dashboard in a browser")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(_ *cobra.Command, args []string) error {
	data, err := loadData(args)
	if err != nil {
		return err
	}

	out := dashboardOut
	if out == "" {
		out = data.cfg.Dashboard.Out
	}
	if out == "" {
		out = "convstat-dashboard.html"
	}

	opts := dashboard.Options{
		Detector: detectorFor(data.cfg),
		Location: data.loc,
	}
	if rate := data.cfg.Cost.RatePerMTok; rate > 0 {
		est := pipeline.EstimateCost(data.report, rate)
		opts.Cost = &est
	}

	page := dashboard.Build(data.report, data.sessions, opts)
	if err := dashboard.WriteFile(out, page); err != nil {
		return err
	}

	fmt.Printf("  Dashboard written to %s\n", out)

	if dashboardOpen {
		if err := openBrowser(out); err != nil {
			fmt.Fprintf(os.Stderr, "  Could not open browser: %v\n", err)
		}
	}

	return nil
}

// openBrowser launches the platform's default browser on the file.
func openBrowser(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	url := "file://" + abs

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
