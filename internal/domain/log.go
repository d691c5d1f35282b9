package domain

import "time"

// DefaultLimit is the number of entries returned when the caller gives no limit
const DefaultLimit = 100

// LogEntry is one decoded journal record
type LogEntry struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Origin   string   `json:"origin"`
	// Timestamp is the wallclock time in microseconds since the epoch (0 if unknown)
	Timestamp int64 `json:"date"`
	// Position is the journal cursor of this record
	Position string `json:"-"`
}

// Time returns the entry timestamp as a time.Time
func (e LogEntry) Time() time.Time {
	return time.UnixMicro(e.Timestamp)
}

// QueryParameters configures a single journal query.
// Nil pointers mean "not given" and fall back to the defaults.
type QueryParameters struct {
	Limit        *int   // Max entries to return (default DefaultLimit)
	MinSeverity  string // Severity name; empty or unknown disables the filter
	SinceSeconds *int64 // Only entries newer than now-SinceSeconds
	Cursor       string // Resume just before this position; empty = tail
}

// EffectiveLimit resolves Limit against DefaultLimit
func (p QueryParameters) EffectiveLimit() int {
	if p.Limit == nil || *p.Limit < 0 {
		return DefaultLimit
	}
	return *p.Limit
}

// Threshold resolves MinSeverity to a cardinality threshold
func (p QueryParameters) Threshold() int {
	if s, ok := ParseSeverityName(p.MinSeverity); ok {
		return s.Cardinality()
	}
	return MaxCardinality
}

// LowerBound resolves SinceSeconds to an absolute microsecond timestamp
// relative to now. Zero means no lower bound.
func (p QueryParameters) LowerBound(now time.Time) int64 {
	if p.SinceSeconds == nil || *p.SinceSeconds < 0 {
		return 0
	}
	secs := *p.SinceSeconds
	nowMicros := now.UnixMicro()
	// windows reaching back past the epoch have no lower bound
	if nowMicros <= 0 || secs >= nowMicros/1_000_000 {
		return 0
	}
	return nowMicros - secs*1_000_000
}

// StopReason records why a traversal ended
type StopReason string

const (
	StopLimit     StopReason = "limit"
	StopExhausted StopReason = "exhausted"
	StopTimeBound StopReason = "time_bound"
	StopReadError StopReason = "read_error"
	StopCancelled StopReason = "cancelled"
)

// QueryResult is the outcome of one query, most recent entry first
type QueryResult struct {
	Entries    []LogEntry `json:"entries"`
	LastCursor string     `json:"last_cursor"`

	Stop    StopReason `json:"-"`
	ReadErr error      `json:"-"`
	Skipped int        `json:"-"` // entries dropped by the severity filter
}
