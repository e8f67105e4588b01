// Package surgeon optimizes terms by equality saturation. Each request seeds
// an e-graph with the input, grows it with rewrite rules chosen by a bandit
// policy, extracts the cheapest candidates and returns the first one the
// verifier accepts.
package surgeon

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/surgeon/internal/config"
	"github.com/gnoswap-labs/surgeon/internal/cost"
	"github.com/gnoswap-labs/surgeon/internal/egraph"
	"github.com/gnoswap-labs/surgeon/internal/learner"
	"github.com/gnoswap-labs/surgeon/internal/metrics"
	"github.com/gnoswap-labs/surgeon/internal/proofcache"
	"github.com/gnoswap-labs/surgeon/internal/rules"
	"github.com/gnoswap-labs/surgeon/internal/verify"
)

const (
	// DefaultBudget bounds a request when the caller gives none.
	DefaultBudget = 100 * time.Millisecond
	// DefaultCandidates is the number of terms extracted for verification.
	DefaultCandidates = 3
	// DefaultMaxIterations caps saturation regardless of the budget.
	DefaultMaxIterations = 1000
	// DefaultThreshold stops self-play once a round improves less than this.
	DefaultThreshold = 0.01
	// DefaultConcurrency bounds the workers of OperateBatch.
	DefaultConcurrency = 4
)

// Surgeon runs optimization requests. It is safe for concurrent use; the
// rule set, policy and experience are shared by all requests.
type Surgeon struct {
	logger     *zap.Logger
	tracer     trace.Tracer
	metrics    *metrics.Recorder
	rules      *rules.Set
	model      *cost.Model
	verifier   *verify.Verifier
	policy     *learner.Policy
	discoverer *learner.Discoverer
	experience *learner.ExperienceDB
	cache      *proofcache.Store

	budget        time.Duration
	candidates    int
	maxIterations int
	nodeLimit     int
	threshold     float64
	concurrency   int
}

// Option configures a Surgeon.
type Option func(*Surgeon)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Surgeon) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Surgeon) { s.tracer = tracer }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Surgeon) { s.metrics = m }
}

// WithRules replaces the base rule set.
func WithRules(set *rules.Set) Option {
	return func(s *Surgeon) { s.rules = set }
}

// WithModel sets the cost model.
func WithModel(m *cost.Model) Option {
	return func(s *Surgeon) { s.model = m }
}

// WithVerifier sets the verifier.
func WithVerifier(v *verify.Verifier) Option {
	return func(s *Surgeon) { s.verifier = v }
}

// WithPolicy shares a rule-selection policy between surgeons.
func WithPolicy(p *learner.Policy) Option {
	return func(s *Surgeon) { s.policy = p }
}

// WithDiscoverer shares a discoverer, and with it the novelty archive.
func WithDiscoverer(d *learner.Discoverer) Option {
	return func(s *Surgeon) { s.discoverer = d }
}

// WithCache enables the proof cache.
func WithCache(c *proofcache.Store) Option {
	return func(s *Surgeon) { s.cache = c }
}

// WithBudget sets the budget used when a request gives none.
func WithBudget(d time.Duration) Option {
	return func(s *Surgeon) { s.budget = d }
}

// WithCandidates sets how many extracted terms are verified.
func WithCandidates(k int) Option {
	return func(s *Surgeon) {
		if k > 0 {
			s.candidates = k
		}
	}
}

// WithMaxIterations caps saturation.
func WithMaxIterations(n int) Option {
	return func(s *Surgeon) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// WithNodeLimit bounds the e-graph of each request.
func WithNodeLimit(n int) Option {
	return func(s *Surgeon) { s.nodeLimit = n }
}

// WithThreshold sets the self-play stopping threshold.
func WithThreshold(t float64) Option {
	return func(s *Surgeon) { s.threshold = t }
}

// WithConcurrency bounds the workers of OperateBatch.
func WithConcurrency(n int) Option {
	return func(s *Surgeon) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a surgeon with the base rules and default components.
func New(opts ...Option) *Surgeon {
	s := &Surgeon{
		logger:        zap.NewNop(),
		tracer:        otel.Tracer("github.com/gnoswap-labs/surgeon"),
		budget:        DefaultBudget,
		candidates:    DefaultCandidates,
		maxIterations: DefaultMaxIterations,
		nodeLimit:     egraph.DefaultNodeLimit,
		threshold:     DefaultThreshold,
		concurrency:   DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	if s.rules == nil {
		s.rules = rules.Base()
	}
	if s.model == nil {
		s.model = cost.NewModel(cost.DefaultConfig())
	}
	if s.verifier == nil {
		s.verifier = verify.NewVerifier(verify.DefaultConfig())
	}
	if s.policy == nil {
		s.policy = learner.NewPolicy()
	}
	if s.discoverer == nil {
		s.discoverer = learner.NewDiscoverer()
	}
	s.experience = learner.NewExperienceDB()
	return s
}

// FromConfig builds a surgeon from a configuration file. Rules listed in
// cfg.RulesFile are appended to the base set. The cache, if any, is owned by
// the caller.
func FromConfig(cfg config.Config, opts ...Option) (*Surgeon, error) {
	set := rules.Base()
	if cfg.RulesFile != "" {
		extra, err := rules.Load(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		for _, r := range extra {
			if err := set.Add(r); err != nil {
				return nil, fmt.Errorf("failed to load rules: %w", err)
			}
		}
	}

	base := []Option{
		WithRules(set),
		WithModel(cost.NewModel(cfg.CostConfig())),
		WithVerifier(verify.NewVerifier(cfg.VerifyConfig())),
		WithPolicy(learner.NewPolicy(learner.WithEpsilon(cfg.Epsilon), learner.WithSeed(cfg.Seed))),
		WithBudget(cfg.Budget),
		WithCandidates(cfg.Candidates),
		WithMaxIterations(cfg.MaxIterations),
		WithNodeLimit(cfg.MaxNodes),
		WithThreshold(cfg.SelfPlay.Threshold),
		WithConcurrency(cfg.BatchConcurrency),
	}
	return New(append(base, opts...)...), nil
}

// Rules returns the rule set, including discovered rules.
func (s *Surgeon) Rules() *rules.Set {
	return s.rules
}

// Policy returns the rule-selection policy.
func (s *Surgeon) Policy() *learner.Policy {
	return s.policy
}

// Experience returns the record of accepted improvements.
func (s *Surgeon) Experience() *learner.ExperienceDB {
	return s.experience
}

// Model returns the cost model.
func (s *Surgeon) Model() *cost.Model {
	return s.model
}

// fingerprint identifies the rule set and objective that produced a cached
// certificate.
func (s *Surgeon) fingerprint(model *cost.Model) string {
	var sb strings.Builder
	for _, r := range s.rules.All() {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	w := model.Weights()
	for _, f := range []float64{w.Alpha, w.Beta, w.Gamma, w.Delta} {
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		sb.WriteByte(' ')
	}
	return digest.SHA256.FromString(sb.String()).Encoded()
}
