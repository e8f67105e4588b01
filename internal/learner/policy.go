package learner

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/gnoswap-labs/surgeon/internal/rules"
)

// DefaultEpsilon is the probability of picking a rule uniformly at random.
const DefaultEpsilon = 0.1

// Co-activation constants. A synapse links a rule to the rule that fired
// right after it in an accepted rewrite.
const (
	synapseInitial   = 0.5
	synapseRate      = 0.1
	synapseReverse   = 0.7
	resonance        = 0.7
	coactivationGain = 0.25
)

type synapseKey struct{ from, to string }

// arm is the Beta-distributed reward estimate of one rule.
type arm struct {
	successes   float64
	failures    float64
	totalReward float64
	pulls       uint64
	hinted      bool
}

func newArm(hinted bool) *arm {
	a := &arm{successes: 1, failures: 1, hinted: hinted}
	if !hinted {
		// neutral reshapings start with a less optimistic prior
		a.failures = 2
	}
	return a
}

func (a *arm) update(reward float64) {
	a.pulls++
	a.totalReward += reward
	if reward > 0 {
		a.successes++
	} else {
		a.failures++
	}
}

// expected is the Beta mean plus a UCB exploration bonus. Unexplored arms
// score their prior optimism.
func (a *arm) expected() float64 {
	if a.pulls == 0 {
		if a.hinted {
			return 1
		}
		return 0.5
	}
	mean := a.successes / (a.successes + a.failures)
	n := float64(a.pulls)
	return mean + math.Sqrt(2*math.Log(n)/n)
}

// ArmStats is a snapshot of the estimate of one rule.
type ArmStats struct {
	RuleID      string
	Pulls       uint64
	Successes   float64
	Failures    float64
	TotalReward float64
	Expected    float64
}

// Policy chooses which rule to try next. It is an epsilon-greedy bandit:
// with probability epsilon it explores uniformly, otherwise it exploits the
// rule with the highest expected reward. Policy is safe for concurrent use.
type Policy struct {
	mu       sync.Mutex
	arms     map[string]*arm
	synapses map[synapseKey]float64
	epsilon  float64
	rng      *rand.Rand
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithEpsilon sets the exploration probability.
func WithEpsilon(epsilon float64) PolicyOption {
	return func(p *Policy) {
		if epsilon >= 0 && epsilon <= 1 {
			p.epsilon = epsilon
		}
	}
}

// WithSeed makes exploration reproducible.
func WithSeed(seed uint64) PolicyOption {
	return func(p *Policy) {
		p.rng = rand.New(rand.NewPCG(seed, seed+1))
	}
}

// NewPolicy creates a policy with no experience.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{
		arms:     make(map[string]*arm),
		synapses: make(map[synapseKey]float64),
		epsilon:  DefaultEpsilon,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Policy) armFor(r rules.Rule) *arm {
	a, ok := p.arms[r.ID]
	if !ok {
		a = newArm(r.CostHint != nil)
		p.arms[r.ID] = a
	}
	return a
}

// Choose picks one of the candidates. It reports false when there are none.
// Ties are broken by candidate order.
func (p *Policy) Choose(candidates []rules.Rule) (rules.Rule, bool) {
	return p.ChooseAfter(candidates, "")
}

// ChooseAfter is Choose with a bonus for candidates strongly wired to the
// previously fired rule.
func (p *Policy) ChooseAfter(candidates []rules.Rule, previous string) (rules.Rule, bool) {
	if len(candidates) == 0 {
		return rules.Rule{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng.Float64() < p.epsilon {
		return candidates[p.rng.IntN(len(candidates))], true
	}

	best, bestScore := 0, math.Inf(-1)
	for i, r := range candidates {
		s := p.armFor(r).expected()
		if w := p.synapses[synapseKey{previous, r.ID}]; previous != "" && w > resonance {
			s += coactivationGain * w
		}
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return candidates[best], true
}

// Expected returns the current expected reward of r.
func (p *Policy) Expected(r rules.Rule) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.armFor(r).expected()
}

// Update records the realized improvement of a rule. Positive improvements
// count as successes.
func (p *Policy) Update(r rules.Rule, improvement float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armFor(r).update(improvement)
}

// Reinforce wires together rules that fired one after another. Pairs from an
// improving rewrite strengthen, pairs from a fruitless one weaken. The reverse
// direction is created at a reduced correlation the first time a pair fires.
func (p *Policy) Reinforce(fired []string, improvement float64) {
	correlation := -1.0
	if improvement > 0 {
		correlation = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 1; i < len(fired); i++ {
		from, to := fired[i-1], fired[i]
		if from == to {
			continue
		}
		p.wire(synapseKey{from, to}, correlation)
		if _, ok := p.synapses[synapseKey{to, from}]; !ok {
			p.wire(synapseKey{to, from}, correlation*synapseReverse)
		}
	}
}

func (p *Policy) wire(k synapseKey, correlation float64) {
	w, ok := p.synapses[k]
	if !ok {
		w = synapseInitial
	}
	p.synapses[k] = min(1, max(0, w+synapseRate*correlation))
}

// Synapse returns the co-activation weight from one rule to another, or 0 if
// they never fired together.
func (p *Policy) Synapse(from, to string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.synapses[synapseKey{from, to}]
}

// Stats returns a snapshot of every arm, sorted by rule id.
func (p *Policy) Stats() []ArmStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ArmStats, 0, len(p.arms))
	for id, a := range p.arms {
		out = append(out, ArmStats{
			RuleID:      id,
			Pulls:       a.pulls,
			Successes:   a.successes,
			Failures:    a.failures,
			TotalReward: a.totalReward,
			Expected:    a.expected(),
		})
	}
	slices.SortFunc(out, func(a, b ArmStats) int {
		switch {
		case a.RuleID < b.RuleID:
			return -1
		case a.RuleID > b.RuleID:
			return 1
		}
		return 0
	})
	return out
}
