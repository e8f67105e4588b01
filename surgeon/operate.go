package surgeon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-set/v3"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/surgeon/internal/canon"
	"github.com/gnoswap-labs/surgeon/internal/cost"
	"github.com/gnoswap-labs/surgeon/internal/egraph"
	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/metrics"
	"github.com/gnoswap-labs/surgeon/internal/proofcache"
	"github.com/gnoswap-labs/surgeon/internal/rules"
	"github.com/gnoswap-labs/surgeon/internal/sexpr"
	"github.com/gnoswap-labs/surgeon/internal/verify"
)

// Request is one optimization request.
type Request struct {
	Term ir.Term
	// Budget bounds saturation. Zero skips it; use Operate for the default.
	Budget time.Duration
	// Weights override the model's objective when set.
	Weights *cost.Weights
}

// Operate optimizes term within budget.
func (s *Surgeon) Operate(ctx context.Context, term ir.Term, budget time.Duration) (Result, error) {
	return s.OperateRequest(ctx, Request{Term: term, Budget: budget})
}

// OperateRequest runs one request. Running out of budget or finding no safe
// improvement are not errors; a malformed term or an e-graph overflow is.
func (s *Surgeon) OperateRequest(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "surgeon.Operate",
		trace.WithAttributes(attribute.Int64("budget_us", req.Budget.Microseconds())))
	defer span.End()

	if err := ir.Validate(req.Term); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.Operation(metrics.OutcomeError, time.Since(start))
		return Result{}, err
	}

	model := s.model
	if req.Weights != nil {
		model = model.WithWeights(*req.Weights)
	}
	soul := canon.SoulOf(req.Term)
	span.SetAttributes(attribute.String("soul", soul.Short()))
	logger := s.logger.With(zap.String("soul", soul.Short()))

	initial := model.Compute(req.Term)
	base := Result{
		ID:          uuid.New(),
		Original:    req.Term,
		Transformed: req.Term,
		InitialCost: initial,
		FinalCost:   initial,
		Weights:     model.Weights(),
		Verified:    true,
		Soul:        soul,
	}

	if res, ok := s.fromCache(req.Term, model, base, logger); ok {
		res.Duration = time.Since(start)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		s.metrics.Operation(metrics.OutcomeCached, res.Duration)
		return res, nil
	}

	logger.Debug("operation started",
		zap.Duration("budget", req.Budget),
		zap.Float64("score", base.InitialScore()))

	res, err := s.operate(ctx, req, model, base, start, logger)
	res.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("iterations", res.Iterations))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.Operation(metrics.OutcomeError, res.Duration)
		return Result{}, err
	}

	if res.Changed() {
		s.metrics.Operation(metrics.OutcomeImproved, res.Duration)
		s.metrics.Improvement(res.ImprovementRatio())
	} else {
		s.metrics.Operation(metrics.OutcomeUnchanged, res.Duration)
	}
	logger.Debug("operation finished",
		zap.Int("iterations", res.Iterations),
		zap.Strings("rules", res.RulesApplied),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (s *Surgeon) operate(ctx context.Context, req Request, model *cost.Model, res Result, start time.Time, logger *zap.Logger) (Result, error) {
	g := egraph.New(
		egraph.WithNodeLimit(s.nodeLimit),
		egraph.WithEffectful(model.Effectful),
	)
	root, err := g.Add(req.Term)
	if err != nil {
		return res, err
	}

	deadline := start.Add(req.Budget)
	iterations, err := s.saturate(ctx, g, deadline)
	res.Iterations = iterations
	s.metrics.EGraphSize(g.NodeCount())
	if err != nil {
		return res, fmt.Errorf("saturation failed: %w", err)
	}

	applied := g.Applied()
	initialScore := res.InitialScore()
	for _, c := range g.ExtractMinK(g.Find(root), model, s.candidates) {
		if c.Score >= initialScore {
			s.metrics.Candidate("not-cheaper")
			continue
		}
		report := s.verifier.Check(req.Term, c.Term)
		s.metrics.Candidate(report.Result.String())
		if report.Result != verify.Equivalent {
			logger.Debug("candidate rejected",
				zap.String("candidate", c.Term.String()),
				zap.Stringer("result", report.Result),
				zap.Stringer("reason", report.Reason),
				zap.String("detail", report.Detail))
			continue
		}

		res.Transformed = c.Term
		res.FinalCost = c.Cost
		res.RulesApplied = applied
		improvement := res.Improvement()
		s.reward(applied, improvement)
		s.experience.Record(req.Term, c.Term, applied, improvement)
		s.store(res, model, logger)

		logger.Info("rewrite accepted",
			zap.String("transformed", c.Term.String()),
			zap.Strings("rules", applied),
			zap.Float64("improvement", improvement))
		return res, nil
	}

	s.reward(applied, 0)
	return res, nil
}

// saturate grows g with rules picked by the policy. A rule that leaves the
// graph unchanged is exhausted until some other rule changes it.
func (s *Surgeon) saturate(ctx context.Context, g *egraph.EGraph, deadline time.Time) (int, error) {
	all := s.rules.All()
	exhausted := set.New[string](len(all))

	iterations := 0
	previous := ""
	for iterations < s.maxIterations {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			break
		}
		live := lo.Filter(all, func(r rules.Rule, _ int) bool { return !exhausted.Contains(r.ID) })
		r, ok := s.policy.ChooseAfter(live, previous)
		if !ok {
			break
		}

		changed, stopped := false, false
		for _, m := range g.Search(r) {
			if ctx.Err() != nil || !time.Now().Before(deadline) {
				stopped = true
				break
			}
			ok, err := g.ApplyRule(r, m)
			if err != nil {
				g.Rebuild()
				return iterations, err
			}
			changed = changed || ok
		}
		g.Rebuild()
		iterations++

		if stopped {
			if changed {
				s.metrics.RuleFired(r.ID)
			}
			break
		}
		if !changed {
			exhausted.Insert(r.ID)
			continue
		}
		s.metrics.RuleFired(r.ID)
		previous = r.ID
		exhausted = set.New[string](len(all))
	}
	return iterations, nil
}

func (s *Surgeon) reward(ruleIDs []string, improvement float64) {
	s.policy.Reinforce(ruleIDs, improvement)
	for _, id := range ruleIDs {
		if r, ok := s.rules.Get(id); ok {
			s.policy.Update(r, improvement)
		}
	}
}

func (s *Surgeon) store(res Result, model *cost.Model, logger *zap.Logger) {
	if s.cache == nil {
		return
	}
	err := s.cache.Put(proofcache.Certificate{
		Soul:         res.Soul.String(),
		Original:     res.Original.String(),
		Transformed:  res.Transformed.String(),
		Rules:        res.RulesApplied,
		InitialScore: res.InitialScore(),
		FinalScore:   res.FinalScore(),
		Fingerprint:  s.fingerprint(model),
	})
	if err != nil {
		logger.Warn("failed to store certificate", zap.Error(err))
	}
}

// fromCache answers from a stored certificate. The cached term is checked
// again against this input before it is returned.
func (s *Surgeon) fromCache(term ir.Term, model *cost.Model, res Result, logger *zap.Logger) (Result, bool) {
	if s.cache == nil {
		return res, false
	}
	cert, ok, err := s.cache.Get(res.Soul, s.fingerprint(model))
	if err != nil {
		logger.Warn("proof cache lookup failed", zap.Error(err))
	}
	s.metrics.CacheLookup(ok)
	if !ok {
		return res, false
	}

	transformed, err := sexpr.ParseTerm(cert.Transformed)
	if err != nil {
		logger.Warn("discarding unreadable certificate", zap.Error(err))
		return res, false
	}
	final := model.Compute(transformed)
	if final.Score(model.Weights()) >= res.InitialScore() || !s.verifier.CheckEquivalence(term, transformed) {
		logger.Debug("certificate does not apply to this input")
		return res, false
	}

	res.Transformed = transformed
	res.FinalCost = final
	res.RulesApplied = cert.Rules
	res.CacheHit = true
	return res, true
}
