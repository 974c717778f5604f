package model

import "time"

// SessionStatus classifies how recently a session saw activity.
type SessionStatus string

const (
	StatusActive   SessionStatus = "active" // last event under 5 minutes ago
	StatusRecent   SessionStatus = "recent" // last event under an hour ago
	StatusInactive SessionStatus = "inactive"
)

// Session groups the events sharing one sessionId. Events are ordered by
// timestamp ascending with input order breaking ties; the first and last
// define the session boundaries. A session always has at least one event
// and StartTime never exceeds EndTime.
type Session struct {
	ID           string
	Events       []Event
	StartTime    time.Time
	EndTime      time.Time
	DurationSecs int64
	RoleCounts   map[Role]int64
	ModelUsage   map[string]TokenTotals
}

// Status classifies the session relative to now.
func (s *Session) Status(now time.Time) SessionStatus {
	idle := now.Sub(s.EndTime)
	switch {
	case idle < 5*time.Minute:
		return StatusActive
	case idle < time.Hour:
		return StatusRecent
	default:
		return StatusInactive
	}
}

// TokenTotal returns the tokens contributed by every event in the
// session, including events that carry no model attribution.
func (s *Session) TokenTotal() int64 {
	var total int64
	for _, ev := range s.Events {
		total += ev.Tokens.Total()
	}
	return total
}
