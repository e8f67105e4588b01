package learner

import (
	"sync"

	"github.com/hashicorp/go-set/v3"

	"github.com/gnoswap-labs/surgeon/internal/rules"
)

const (
	// archiveLimit bounds the novelty archive.
	archiveLimit = 1000
	// archiveEvict is how many of the oldest patterns are dropped when the
	// archive overflows.
	archiveEvict = 500
)

// Archive remembers the patterns seen by discovery, oldest first.
type Archive struct {
	mu    sync.Mutex
	order []string
	seen  *set.Set[string]
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{seen: set.New[string](archiveLimit)}
}

// IsNovel reports whether p has not been recorded.
func (a *Archive) IsNovel(p rules.Pattern) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.seen.Contains(p.String())
}

// Record adds p. It reports false when p was already present.
func (a *Archive) Record(p rules.Pattern) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := p.String()
	if !a.seen.Insert(key) {
		return false
	}
	a.order = append(a.order, key)
	if len(a.order) > archiveLimit {
		for _, old := range a.order[:archiveEvict] {
			a.seen.Remove(old)
		}
		a.order = append([]string(nil), a.order[archiveEvict:]...)
	}
	return true
}

// Len returns the number of archived patterns.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}
