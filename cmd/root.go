package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/config"
	"github.com/theirongolddev/convstat/internal/detect"
	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/pipeline"
	"github.com/theirongolddev/convstat/internal/source"
	"github.com/theirongolddev/convstat/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagData     string
	flagJSON     bool
	flagTimezone string
	flagNoCache  bool
	flagQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "convstat [path]",
	Short: "Conversation usage metrics CLI",
	Long:  "Aggregate AI conversation logs into usage statistics: events, sessions, tokens, and activity patterns.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagData, "data", "d", "", "Conversation log file or directory (default: auto-discover)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit JSON instead of tables")
	rootCmd.PersistentFlags().StringVar(&flagTimezone, "timezone", "", "IANA timezone for hour/day bucketing (default: local)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the SQLite cache, reparse everything")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// resolveConfig loads the config file and folds the flags and the optional
// positional path on top. Flags beat the file; the path argument beats both.
func resolveConfig(args []string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagData != "" {
		cfg.General.DataDir = flagData
	}
	if flagTimezone != "" {
		cfg.General.Timezone = flagTimezone
	}
	if flagNoCache {
		cfg.Cache.Enabled = false
	}
	if len(args) > 0 {
		cfg.General.DataDir = args[0]
	}
	return cfg, nil
}

// loadedData bundles everything the reporting commands render from.
type loadedData struct {
	cfg      config.Config
	loc      *time.Location
	result   *pipeline.LoadResult
	sessions []*model.Session
	report   model.Report
}

// loadData is the shared loading path used by all reporting commands:
// resolve config, discover logs, parse (cache-assisted when enabled),
// build sessions, aggregate. Rejected lines are data, not failures; only
// unreadable input or bad config comes back as an error.
func loadData(args []string) (*loadedData, error) {
	cfg, err := resolveConfig(args)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning conversation logs...\n")
	}

	files, err := source.Discover(cfg.General.DataDir)
	if err != nil {
		return nil, err
	}

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		if current%100 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
		}
	}

	var result *pipeline.LoadResult

	// Try cached load unless disabled
	if cfg.Cache.Enabled {
		cache, err := store.Open(cachePath(cfg))
		if err != nil {
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  Cache unavailable, doing full parse\n")
			}
		} else {
			defer func() { _ = cache.Close() }()

			cr, err := pipeline.LoadWithCache(files, cache, progressFn)
			if err != nil {
				if !flagQuiet {
					fmt.Fprintf(os.Stderr, "\n  Cache error, falling back to full parse\n")
				}
			} else {
				if !flagQuiet && cr.TotalFiles > 0 {
					if cr.Reparsed == 0 {
						fmt.Fprintf(os.Stderr, "\r  Loaded %s events from cache (%d files)    \n",
							cli.FormatNumber(int64(len(cr.Events))), cr.ParsedFiles)
					} else {
						fmt.Fprintf(os.Stderr, "\r  %d cached + %d reparsed (%s events)    \n",
							cr.CacheHits, cr.Reparsed, cli.FormatNumber(int64(len(cr.Events))))
					}
				}
				result = &cr.LoadResult
			}
		}
	}

	// Uncached path
	if result == nil {
		result, err = pipeline.Load(files, progressFn)
		if err != nil {
			return nil, err
		}
		if !flagQuiet && result.TotalFiles > 0 {
			fmt.Fprintf(os.Stderr, "\r  Parsed %s events from %d files    \n",
				cli.FormatNumber(int64(len(result.Events))), result.ParsedFiles)
		}
	}

	sessions := pipeline.BuildSessions(result.Events)
	report := pipeline.Aggregate(result.Events, sessions, result.ParseErrors, loc)

	return &loadedData{
		cfg:      cfg,
		loc:      loc,
		result:   result,
		sessions: sessions,
		report:   report,
	}, nil
}

// cachePath resolves the event-cache location, config override first.
func cachePath(cfg config.Config) string {
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path
	}
	return pipeline.CachePath()
}

// detectorFor builds the technology detector with any user rules from the
// config checked before the built-in set.
func detectorFor(cfg config.Config) *detect.Detector {
	rules := make([]detect.Rule, 0, len(cfg.Detect.Rules))
	for _, r := range cfg.Detect.Rules {
		rules = append(rules, detect.Rule{Name: r.Name, Keywords: r.Keywords})
	}
	return detect.New(rules...)
}

// printJSON writes v as indented JSON to stdout for --json output.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
