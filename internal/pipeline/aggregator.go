// Package pipeline orchestrates event loading, session building, caching,
// and report aggregation.
package pipeline

import (
	"time"

	"github.com/theirongolddev/convstat/internal/model"
)

// Aggregate computes the run's report from the parsed events, their
// sessions, and the parser's rejections. The same input always yields the
// same report; input order only shows where the contract says it does
// (parse errors, session-duration order, in-session tie breaks). Hour and
// day buckets use loc, falling back to local time when loc is nil.
//
// Maps and slices in the returned report are always non-nil, so an empty
// input produces a zero report that still serializes cleanly.
func Aggregate(events []model.Event, sessions []*model.Session, parseErrors []model.ParseError, loc *time.Location) model.Report {
	if loc == nil {
		loc = time.Local
	}

	report := model.Report{
		RoleCounts:       make(map[model.Role]int64),
		ModelBreakdown:   make(map[string]model.ModelStats),
		HourlyActivity:   make(map[int]int64),
		DailyActivity:    make(map[string]int64),
		DailyTokens:      make(map[string]int64),
		SessionDurations: make([]int64, 0, len(sessions)),
		ParseErrors:      make([]model.ParseError, 0, len(parseErrors)),
	}
	report.ParseErrors = append(report.ParseErrors, parseErrors...)

	var dist model.TokenDistribution
	for _, ev := range events {
		report.TotalEvents++
		report.TokenTotals.Add(ev.Tokens)

		if ev.Role.Known() {
			report.RoleCounts[ev.Role]++
		}

		// Events without a model stay out of the breakdown entirely;
		// only assistant turns carry model attribution.
		if ev.Model != "" {
			ms := report.ModelBreakdown[ev.Model]
			ms.EventCount++
			ms.Tokens.Add(ev.Tokens)
			report.ModelBreakdown[ev.Model] = ms
		}

		local := ev.Timestamp.In(loc)
		day := local.Format(model.DateLayout)
		report.HourlyActivity[local.Hour()]++
		report.DailyActivity[day]++
		report.DailyTokens[day] += ev.Tokens.Total()

		if !ev.Tokens.IsZero() {
			total := ev.Tokens.Total()
			if dist.EventsWithTokens == 0 || total > dist.MaxEventTokens {
				dist.MaxEventTokens = total
			}
			if dist.EventsWithTokens == 0 || total < dist.MinEventTokens {
				dist.MinEventTokens = total
			}
			dist.EventsWithTokens++
		}
	}
	report.TokenDistribution = dist

	report.TotalSessions = int64(len(sessions))
	for _, s := range sessions {
		report.SessionDurations = append(report.SessionDurations, s.DurationSecs)
	}

	return report
}

// Run builds sessions and aggregates in one step. Commands that need the
// sessions themselves call BuildSessions and Aggregate separately.
func Run(events []model.Event, parseErrors []model.ParseError, loc *time.Location) model.Report {
	return Aggregate(events, BuildSessions(events), parseErrors, loc)
}
