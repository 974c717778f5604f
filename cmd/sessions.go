package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/model"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [path]",
	Short: "Session list with durations and status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessions,
}

var (
	sessionsLimit int
	sessionsSort  string
)

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "l", 20, "Number of sessions to show (0 = all)")
	sessionsCmd.Flags().StringVar(&sessionsSort, "sort", "", `Sort order: "duration" for longest first (default keeps first-observed order)`)
	rootCmd.AddCommand(sessionsCmd)
}

type sessionRow struct {
	ID              string    `json:"id"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationSeconds int64     `json:"durationSeconds"`
	Events          int       `json:"events"`
	Tokens          int64     `json:"tokens"`
	Status          string    `json:"status"`
}

func runSessions(_ *cobra.Command, args []string) error {
	data, err := loadData(args)
	if err != nil {
		return err
	}

	sessions := data.sessions
	switch sessionsSort {
	case "":
		// first-observed order, as built
	case "duration":
		ordered := make([]*model.Session, len(sessions))
		copy(ordered, sessions)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].DurationSecs > ordered[j].DurationSecs
		})
		sessions = ordered
	default:
		return fmt.Errorf("unknown sort %q (try \"duration\")", sessionsSort)
	}

	total := len(sessions)
	if sessionsLimit > 0 && len(sessions) > sessionsLimit {
		sessions = sessions[:sessionsLimit]
	}

	now := time.Now()

	if flagJSON {
		out := make([]sessionRow, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, sessionRow{
				ID:              s.ID,
				StartTime:       s.StartTime,
				EndTime:         s.EndTime,
				DurationSeconds: s.DurationSecs,
				Events:          len(s.Events),
				Tokens:          s.TokenTotal(),
				Status:          string(s.Status(now)),
			})
		}
		return printJSON(out)
	}

	if len(sessions) == 0 {
		fmt.Println("\n  No sessions found.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SESSIONS  (showing %d of %d)", len(sessions), total)))
	fmt.Println()

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			cli.ShortenSession(s.ID, 26),
			cli.FormatTime(s.StartTime, data.loc),
			cli.FormatDuration(s.DurationSecs),
			cli.FormatNumber(int64(len(s.Events))),
			cli.FormatTokens(s.TokenTotal()),
			string(s.Status(now)),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Session", "Start", "Duration", "Events", "Tokens", "Status"},
		Rows:    rows,
	}))

	tally := make(map[model.SessionStatus]int)
	for _, s := range data.sessions {
		tally[s.Status(now)]++
	}
	fmt.Print("\n ")
	for _, st := range []model.SessionStatus{model.StatusActive, model.StatusRecent, model.StatusInactive} {
		if tally[st] == 0 {
			continue
		}
		fmt.Printf("  %s %d", cli.StatusBadge(st), tally[st])
	}
	fmt.Print("\n\n")

	return nil
}
