package filter

import (
	"github.com/vburojevic/journalq/internal/domain"
)

// SeverityFilter keeps entries at most as verbose as a threshold
type SeverityFilter struct {
	threshold int
}

// NewSeverityFilter creates a filter from a cardinality threshold
func NewSeverityFilter(threshold int) *SeverityFilter {
	return &SeverityFilter{threshold: threshold}
}

// Match returns true if the entry cardinality is <= the threshold
func (f *SeverityFilter) Match(entry *domain.LogEntry) bool {
	return entry.Severity.Cardinality() <= f.threshold
}
