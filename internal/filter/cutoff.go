package filter

import (
	"github.com/vburojevic/journalq/internal/domain"
)

// Cutoff is a stop condition on a newest-first traversal: once an entry is
// older than the bound, every later entry is too.
type Cutoff struct {
	lowerBound int64
}

// NewCutoff creates a cutoff at a microsecond timestamp; 0 never triggers
func NewCutoff(lowerBound int64) *Cutoff {
	return &Cutoff{lowerBound: lowerBound}
}

// Reached returns true when the entry is older than the bound
func (c *Cutoff) Reached(entry *domain.LogEntry) bool {
	return entry.Timestamp < c.lowerBound
}

// LowerBound returns the bound in microseconds
func (c *Cutoff) LowerBound() int64 {
	return c.lowerBound
}
