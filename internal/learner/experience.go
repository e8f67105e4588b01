package learner

import (
	"slices"
	"sync"
	"time"

	"github.com/gnoswap-labs/surgeon/internal/canon"
	"github.com/gnoswap-labs/surgeon/internal/ir"
)

const (
	// experienceLimit triggers compression of the experience buffer.
	experienceLimit = 10_000
	// experienceKeep is the number of most recent experiences kept.
	experienceKeep = 5_000
)

// Experience is one accepted improvement.
type Experience struct {
	Soul        canon.Soul
	Before      ir.Term
	After       ir.Term
	Rules       []string
	Improvement float64
	Timestamp   time.Time
}

// ExperienceDB remembers what worked, keyed by the soul of the input.
// It is safe for concurrent use.
type ExperienceDB struct {
	mu     sync.Mutex
	buffer []Experience
	now    func() time.Time
}

// NewExperienceDB creates an empty database.
func NewExperienceDB() *ExperienceDB {
	return &ExperienceDB{now: time.Now}
}

// Record stores an improvement of before into after.
func (db *ExperienceDB) Record(before, after ir.Term, ruleIDs []string, improvement float64) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.buffer = append(db.buffer, Experience{
		Soul:        canon.SoulOf(before),
		Before:      before,
		After:       after,
		Rules:       slices.Clone(ruleIDs),
		Improvement: improvement,
		Timestamp:   db.now(),
	})
	if len(db.buffer) > experienceLimit {
		db.compress()
	}
}

// compress keeps the most recent experiences.
func (db *ExperienceDB) compress() {
	slices.SortStableFunc(db.buffer, func(a, b Experience) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	db.buffer = slices.Clone(db.buffer[len(db.buffer)-experienceKeep:])
}

// Lookup returns the experiences recorded for inputs with the given soul.
func (db *ExperienceDB) Lookup(soul canon.Soul) []Experience {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []Experience
	for _, e := range db.buffer {
		if e.Soul == soul {
			out = append(out, e)
		}
	}
	return out
}

// Traces returns the most recent experiences as discovery traces, newest
// first.
func (db *ExperienceDB) Traces(limit int) []Trace {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []Trace
	for i := len(db.buffer) - 1; i >= 0 && len(out) < limit; i-- {
		e := db.buffer[i]
		rule := ""
		if len(e.Rules) > 0 {
			rule = e.Rules[0]
		}
		out = append(out, Trace{Before: e.Before, After: e.After, Rule: rule, CostDelta: e.Improvement})
	}
	return out
}

// Len returns the number of stored experiences.
func (db *ExperienceDB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.buffer)
}
