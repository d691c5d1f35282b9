package filter

import (
	"github.com/vburojevic/journalq/internal/domain"
)

// Filter decides whether an entry is kept. Entries that fail a Filter are
// skipped and the traversal continues.
type Filter interface {
	// Match returns true if the entry passes the filter
	Match(entry *domain.LogEntry) bool
}

// Chain combines multiple filters (all must pass)
type Chain struct {
	filters []Filter
}

// NewChain creates a filter chain from multiple filters
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Match returns true only if all filters pass
func (c *Chain) Match(entry *domain.LogEntry) bool {
	for _, f := range c.filters {
		if !f.Match(entry) {
			return false
		}
	}
	return true
}

// Add appends a filter to the chain
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}
