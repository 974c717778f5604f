package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/config"
	"github.com/theirongolddev/convstat/internal/daemon"
	"github.com/theirongolddev/convstat/internal/pipeline"

	"github.com/spf13/cobra"
)

// daemonState mirrors the pid file with enough context for `status` to
// find the right endpoint after a restart with different flags.
type daemonState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DataDir   string    `json:"data_dir"`
}

var (
	flagDaemonListen   string
	flagDaemonInterval time.Duration
	flagDaemonPIDFile  string
	flagDaemonLogFile  string
	flagDaemonDetach   bool
	flagDaemonChild    bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Background usage service with HTTP/SSE endpoints",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start [path]",
	Short: "Start the daemon",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

func init() {
	defaultLog := filepath.Join(pipeline.CacheDir(), "daemon.log")

	daemonCmd.PersistentFlags().StringVar(&flagDaemonListen, "listen", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonInterval, "interval", 30*time.Second, "Fallback refresh interval")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", daemon.PIDPath(), "PID file path")

	daemonStartCmd.Flags().StringVar(&flagDaemonLogFile, "log-file", defaultLog, "Log file for detached mode")
	daemonStartCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run the daemon as a background process")
	daemonStartCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonStartCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemonStart(_ *cobra.Command, args []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	if flagDaemonDetach {
		return startDaemonDetached()
	}

	return runDaemonForeground(args)
}

func startDaemonDetached() error {
	if err := ensureDaemonNotRunning(flagDaemonPIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	childArgs := filterDetachArg(os.Args[1:])
	childArgs = append(childArgs, "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, childArgs...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Stdin = nil
	child.Env = os.Environ()

	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	cfg, _ := config.Load()
	addr := resolveListenAddr(cfg)

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagDaemonPIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", addr)
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runDaemonForeground(args []string) error {
	if err := ensureDaemonNotRunning(flagDaemonPIDFile); err != nil {
		return err
	}

	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	addr := resolveListenAddr(cfg)

	pid := os.Getpid()
	if err := daemon.WritePID(flagDaemonPIDFile, pid); err != nil {
		return err
	}
	defer func() { _ = daemon.RemovePID(flagDaemonPIDFile) }()

	state := daemonState{
		PID:       pid,
		Addr:      addr,
		StartedAt: time.Now(),
		DataDir:   cfg.General.DataDir,
	}
	_ = writeDaemonState(daemonStatePath(flagDaemonPIDFile), state)
	defer func() { _ = os.Remove(daemonStatePath(flagDaemonPIDFile)) }()

	svc := daemon.New(daemon.Config{
		DataDir:  cfg.General.DataDir,
		UseCache: cfg.Cache.Enabled,
		CostRate: cfg.Cost.RatePerMTok,
		Location: loc,
		Interval: flagDaemonInterval,
		Addr:     addr,
	})

	fmt.Printf("  convstat daemon listening on http://%s\n", addr)
	fmt.Printf("  Refreshing on log changes, every %s at the latest\n", flagDaemonInterval)
	fmt.Printf("  Stop with: convstat daemon stop\n")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	pid, err := daemon.ReadPID(flagDaemonPIDFile)
	if err != nil {
		fmt.Println("  Daemon: not running (no pid file)")
		return nil
	}

	if !daemon.Alive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	cfg, _ := config.Load()
	addr := resolveListenAddr(cfg)
	if st, err := readDaemonState(daemonStatePath(flagDaemonPIDFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if st.LastRefreshAt.IsZero() {
		fmt.Println("  Last refresh: pending")
	} else {
		fmt.Printf("  Last refresh: %s\n", st.LastRefreshAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Refresh count: %d\n", st.RefreshCount)
	fmt.Printf("  Sessions: %s\n", cli.FormatNumber(st.Summary.Sessions))
	fmt.Printf("  Events: %s\n", cli.FormatNumber(st.Summary.Events))
	fmt.Printf("  Tokens: %s\n", cli.TokenCell(cli.FormatNumber(st.Summary.Tokens)))
	if st.Summary.Rejected > 0 {
		fmt.Printf("  Rejected lines: %s\n", cli.FormatNumber(st.Summary.Rejected))
	}
	if st.Summary.EstimatedCostUSD > 0 {
		fmt.Printf("  Est. cost: %s\n", cli.FormatCost(st.Summary.EstimatedCostUSD))
	}
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pid, err := daemon.ReadPID(flagDaemonPIDFile)
	if err != nil {
		return errors.New("daemon is not running")
	}

	if err := daemon.Stop(pid); err != nil {
		return err
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !daemon.Alive(pid) {
			_ = daemon.RemovePID(flagDaemonPIDFile)
			_ = os.Remove(daemonStatePath(flagDaemonPIDFile))
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

// resolveListenAddr picks the daemon address: flag, then config, then the
// built-in default.
func resolveListenAddr(cfg config.Config) string {
	if flagDaemonListen != "" {
		return flagDaemonListen
	}
	if cfg.Daemon.Listen != "" {
		return cfg.Daemon.Listen
	}
	return "127.0.0.1:8713"
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureDaemonNotRunning(pidFile string) error {
	pid, err := daemon.ReadPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if daemon.Alive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	_ = daemon.RemovePID(pidFile)
	_ = os.Remove(daemonStatePath(pidFile))
	return nil
}

func daemonStatePath(pidFile string) string {
	return pidFile + ".json"
}

func writeDaemonState(path string, st daemonState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readDaemonState(path string) (daemonState, error) {
	var st daemonState
	//nolint:gosec // daemon state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
