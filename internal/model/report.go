package model

// Rejection reasons recorded in a report's ParseErrors. The strings are
// part of the report contract and must not change.
const (
	ReasonInvalidJSON  = "invalid-json"
	ReasonMissingField = "missing-required-field"
)

// DateLayout is the calendar-date key format used by daily buckets.
const DateLayout = "2006-01-02"

// ParseError records one rejected input line, in input order.
type ParseError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Field  string `json:"field,omitempty"` // set for missing-required-field
	File   string `json:"file,omitempty"`  // stamped when loading from files
}

// ModelStats holds the per-model slice of a report. Events without a model
// never contribute here.
type ModelStats struct {
	EventCount int64       `json:"eventCount"`
	Tokens     TokenTotals `json:"tokens"`
}

// TokenDistribution describes the per-event token spread across events
// that carried any usage data.
type TokenDistribution struct {
	EventsWithTokens int64 `json:"eventsWithTokens"`
	MaxEventTokens   int64 `json:"maxEventTokens"`
	MinEventTokens   int64 `json:"minEventTokens"`
}

// Report is the single immutable output of one aggregation run. Maps and
// slices are always non-nil so a report survives a JSON round trip without
// shape loss. Hour keys are local hours 0-23; day keys use DateLayout.
type Report struct {
	TotalEvents       int64                 `json:"totalEvents"`
	TotalSessions     int64                 `json:"totalSessions"`
	TokenTotals       TokenTotals           `json:"tokenTotals"`
	RoleCounts        map[Role]int64        `json:"roleCounts"`
	ModelBreakdown    map[string]ModelStats `json:"modelBreakdown"`
	HourlyActivity    map[int]int64         `json:"hourlyActivity"`
	DailyActivity     map[string]int64      `json:"dailyActivity"`
	DailyTokens       map[string]int64      `json:"dailyTokens"`
	SessionDurations  []int64               `json:"sessionDurations"`
	TokenDistribution TokenDistribution     `json:"tokenDistribution"`
	ParseErrors       []ParseError          `json:"parseErrors"`
}

// Rejected returns the number of input lines the parser turned away.
func (r *Report) Rejected() int {
	return len(r.ParseErrors)
}
