package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/convstat/internal/model"
)

// BuildSessions partitions events by sessionId and derives per-session
// timing and composition. Sessions come back in first-observed order of
// their id. Within a session events are sorted by timestamp ascending;
// the sort is stable, so events with identical timestamps keep their
// input order. Only observed ids produce sessions, and every session has
// at least one event.
func BuildSessions(events []model.Event) []*model.Session {
	byID := make(map[string]*model.Session)
	var order []string

	for _, ev := range events {
		s, ok := byID[ev.SessionID]
		if !ok {
			s = &model.Session{
				ID:         ev.SessionID,
				RoleCounts: make(map[model.Role]int64),
				ModelUsage: make(map[string]model.TokenTotals),
			}
			byID[ev.SessionID] = s
			order = append(order, ev.SessionID)
		}
		s.Events = append(s.Events, ev)
	}

	sessions := make([]*model.Session, 0, len(order))
	for _, id := range order {
		s := byID[id]

		sort.SliceStable(s.Events, func(i, j int) bool {
			return s.Events[i].Timestamp.Before(s.Events[j].Timestamp)
		})

		s.StartTime = s.Events[0].Timestamp
		s.EndTime = s.Events[len(s.Events)-1].Timestamp
		// Sub-second remainders truncate; a single-event session is 0.
		s.DurationSecs = int64(s.EndTime.Sub(s.StartTime) / time.Second)

		for _, ev := range s.Events {
			if ev.Role.Known() {
				s.RoleCounts[ev.Role]++
			}
			if ev.Model != "" {
				usage := s.ModelUsage[ev.Model]
				usage.Add(ev.Tokens)
				s.ModelUsage[ev.Model] = usage
			}
		}

		sessions = append(sessions, s)
	}

	return sessions
}
