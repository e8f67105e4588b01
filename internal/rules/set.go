package rules

import (
	"fmt"
	"sync"

	"github.com/samber/lo"
)

// Set is an append-only collection of rules, safe for concurrent use.
// Rules keep their insertion order.
type Set struct {
	mu    sync.RWMutex
	rules []Rule
	index map[string]int
}

// NewSet creates a set holding rules. Duplicate ids are rejected.
func NewSet(rules ...Rule) (*Set, error) {
	s := &Set{index: make(map[string]int)}
	for _, r := range rules {
		if err := s.Add(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add validates r and appends it.
func (s *Set) Add(r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[r.ID]; exists {
		return fmt.Errorf("%w: duplicate rule id %q", ErrMalformedRule, r.ID)
	}
	s.index[r.ID] = len(s.rules)
	s.rules = append(s.rules, r)
	return nil
}

// Get returns the rule with the given id.
func (s *Set) Get(id string) (Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// All returns a snapshot of the rules in insertion order.
func (s *Set) All() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// IDs returns the rule ids in insertion order.
func (s *Set) IDs() []string {
	return lo.Map(s.All(), func(r Rule, _ int) string { return r.ID })
}

// Len returns the number of rules.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}
