// Package compare holds the set of products a shopper picked for side-by-side comparison.
// The selection lives only as long as the shopper's in-memory state.
package compare

import (
	"slices"
	"sync"

	"github.com/sabowaryan/sabowaryantech/internal/platform/metrics"
)

const storeName = "compare"

// Selection is a set of product ids. IDs reports them in the order they were picked.
type Selection struct {
	mu      sync.RWMutex
	ids     []string
	metrics *metrics.Metrics
}

// New creates an empty Selection.
func New(m *metrics.Metrics) *Selection {
	return &Selection{metrics: m}
}

// Toggle adds id when absent and removes it when present. It reports whether
// id is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Mutation(storeName, "toggle")

	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Mutation(storeName, "clear")
	s.ids = nil
}

func (s *Selection) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.ids, id)
}

// IDs returns a copy of the selected ids.
func (s *Selection) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ids)
}

func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
