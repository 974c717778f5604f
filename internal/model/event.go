// Package model defines domain types for convstat events, sessions, and reports.
package model

import "time"

// Role classifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Known reports whether the role is one of the recognized values. Events
// with an unrecognized role are retained but excluded from role rollups.
func (r Role) Known() bool {
	return r == RoleUser || r == RoleAssistant
}

// TokenTotals holds per-kind token counts. All sums are int64; counters
// never accumulate through floats.
type TokenTotals struct {
	Input         int64 `json:"input"`
	Output        int64 `json:"output"`
	CacheCreation int64 `json:"cacheCreation"`
	CacheRead     int64 `json:"cacheRead"`
}

// Add accumulates other into t.
func (t *TokenTotals) Add(other TokenTotals) {
	t.Input += other.Input
	t.Output += other.Output
	t.CacheCreation += other.CacheCreation
	t.CacheRead += other.CacheRead
}

// Total returns the sum across all token kinds.
func (t TokenTotals) Total() int64 {
	return t.Input + t.Output + t.CacheCreation + t.CacheRead
}

// IsZero reports whether no kind carries any tokens.
func (t TokenTotals) IsZero() bool {
	return t == TokenTotals{}
}

// Event is one normalized conversation turn. An Event is immutable once
// constructed and belongs to exactly one session (its SessionID).
type Event struct {
	SessionID  string
	Timestamp  time.Time
	Role       Role
	Model      string
	Tokens     TokenTotals
	TextSample string
	Line       int // 1-based line number within the source file
}
