// Package dashboard renders the usage report as a standalone HTML page
// with Chart.js visualizations. The page is self-contained except for the
// Chart.js CDN script and opens directly in a browser.
package dashboard

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/theirongolddev/convstat/internal/cli"
	"github.com/theirongolddev/convstat/internal/detect"
	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/pipeline"
)

// SessionRow is one line of the conversations table.
type SessionRow struct {
	ID           string
	Tech         string
	Model        string
	Events       int
	Tokens       string
	LastActivity string
	Status       string
}

// PageData carries everything the template needs. Slice pairs (labels
// and values) are index-aligned.
type PageData struct {
	GeneratedAt string

	TotalSessions string
	TotalEvents   string
	TotalTokens   string
	TechCount     string
	AvgTokens     string

	CostAvailable bool
	CostTotal     string

	DailyLabels []string
	DailyTokens []int64
	DailyEvents []int64

	HourlyLabels []string
	HourlyCounts []int64

	ModelLabels []string
	ModelEvents []int64

	TechLabels []string
	TechValues []int64

	Sessions []SessionRow
}

// Options configures Build beyond the report itself.
type Options struct {
	// Detector labels the session rows and the tech chart. Nil means
	// the default rule set.
	Detector *detect.Detector
	// Cost adds a spend metric when non-nil.
	Cost *pipeline.CostEstimate
	// Location formats timestamps and matches report bucketing.
	Location *time.Location
	// Now anchors session status. Zero means time.Now().
	Now time.Time
}

// Build assembles the chart series and table rows from a report.
func Build(report model.Report, sessions []*model.Session, opts Options) PageData {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	detector := opts.Detector
	if detector == nil {
		detector = detect.New()
	}

	techCounts := detector.Count(sessions)

	data := PageData{
		GeneratedAt:   now.In(loc).Format("2006-01-02 15:04:05"),
		TotalSessions: cli.FormatNumber(report.TotalSessions),
		TotalEvents:   cli.FormatNumber(report.TotalEvents),
		TotalTokens:   cli.FormatTokens(report.TokenTotals.Total()),
		TechCount:     cli.FormatNumber(int64(len(techCounts))),
	}

	if report.TotalSessions > 0 {
		data.AvgTokens = cli.FormatTokens(report.TokenTotals.Total() / report.TotalSessions)
	} else {
		data.AvgTokens = "0"
	}

	if opts.Cost != nil && opts.Cost.RatePerMTok > 0 {
		data.CostAvailable = true
		data.CostTotal = cli.FormatCost(opts.Cost.TotalCost)
	}

	// Daily series, dates ascending.
	data.DailyLabels = lo.Keys(report.DailyActivity)
	sort.Strings(data.DailyLabels)
	data.DailyTokens = lo.Map(data.DailyLabels, func(d string, _ int) int64 {
		return report.DailyTokens[d]
	})
	data.DailyEvents = lo.Map(data.DailyLabels, func(d string, _ int) int64 {
		return report.DailyActivity[d]
	})

	// All 24 hour buckets, zeros included.
	data.HourlyLabels = make([]string, 24)
	data.HourlyCounts = make([]int64, 24)
	for h := 0; h < 24; h++ {
		data.HourlyLabels[h] = fmt.Sprintf("%02d", h)
		data.HourlyCounts[h] = report.HourlyActivity[h]
	}

	// Models, busiest first.
	data.ModelLabels = lo.Keys(report.ModelBreakdown)
	sort.Slice(data.ModelLabels, func(i, j int) bool {
		a, b := data.ModelLabels[i], data.ModelLabels[j]
		if report.ModelBreakdown[a].EventCount != report.ModelBreakdown[b].EventCount {
			return report.ModelBreakdown[a].EventCount > report.ModelBreakdown[b].EventCount
		}
		return a < b
	})
	data.ModelEvents = lo.Map(data.ModelLabels, func(m string, _ int) int64 {
		return report.ModelBreakdown[m].EventCount
	})

	// Tech distribution, biggest first.
	data.TechLabels = lo.Keys(techCounts)
	sort.Slice(data.TechLabels, func(i, j int) bool {
		a, b := data.TechLabels[i], data.TechLabels[j]
		if techCounts[a] != techCounts[b] {
			return techCounts[a] > techCounts[b]
		}
		return a < b
	})
	data.TechValues = lo.Map(data.TechLabels, func(t string, _ int) int64 {
		return techCounts[t]
	})

	// Session table, most recent activity first.
	ordered := make([]*model.Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EndTime.After(ordered[j].EndTime)
	})
	for _, s := range ordered {
		data.Sessions = append(data.Sessions, SessionRow{
			ID:           cli.ShortenSession(s.ID, 13),
			Tech:         detector.ClassifySession(s),
			Model:        dominantModel(s),
			Events:       len(s.Events),
			Tokens:       cli.FormatNumber(s.TokenTotal()),
			LastActivity: cli.FormatTime(s.EndTime, loc),
			Status:       string(s.Status(now)),
		})
	}

	return data
}

// dominantModel picks the session's heaviest model by token count,
// name ascending on ties. Sessions with no model usage show a dash.
func dominantModel(s *model.Session) string {
	best := ""
	var bestTokens int64 = -1
	names := lo.Keys(s.ModelUsage)
	sort.Strings(names)
	for _, name := range names {
		if t := s.ModelUsage[name].Total(); t > bestTokens {
			best = name
			bestTokens = t
		}
	}
	if best == "" {
		return "—"
	}
	runes := []rune(best)
	if len(runes) > 24 {
		return string(runes[:23]) + "…"
	}
	return best
}

// Render writes the dashboard HTML for the page data.
func Render(w io.Writer, data PageData) error {
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	return nil
}

// WriteFile renders the dashboard to a file.
func WriteFile(path string, data PageData) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating dashboard file: %w", err)
	}
	defer f.Close()

	return Render(f, data)
}
