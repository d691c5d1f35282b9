package domain

import (
	"strconv"
	"strings"
)

// Severity is the normalized severity of a journal entry.
// Ordered from most to least severe: Error < Warning < Info.
type Severity string

const (
	SeverityError   Severity = "Error"
	SeverityWarning Severity = "Warning"
	SeverityInfo    Severity = "Info"
)

// MaxCardinality is the threshold that lets every severity through.
const MaxCardinality = 2

// Cardinality returns the ordinal used for "at most this severe" comparisons
// (Error=0, Warning=1, Info=2). It is unrelated to the raw syslog priority.
func (s Severity) Cardinality() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// String returns the severity name
func (s Severity) String() string {
	return string(s)
}

// ClassifyPriority maps a raw syslog PRIORITY value (0-7) to a Severity.
// Absent or malformed values classify as Info so that a strict filter never
// silently drops entries it cannot read.
func ClassifyPriority(raw string, ok bool) Severity {
	if !ok {
		return SeverityInfo
	}
	p, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return SeverityInfo
	}
	switch {
	case p <= 3:
		return SeverityError
	case p <= 5:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// ParseSeverityName parses "error", "warning" or "info" (any case).
// The boolean is false for anything else.
func ParseSeverityName(name string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	default:
		return "", false
	}
}
