package surgeon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/learner"
	"github.com/gnoswap-labs/surgeon/internal/rules"
	"github.com/gnoswap-labs/surgeon/internal/verify"
)

// ErrUnsoundRule is returned when a discovered rule fails verification on
// the traces it was derived from.
var ErrUnsoundRule = errors.New("discovered rule is not behavior preserving")

// OperateBatch optimizes independent terms concurrently, dividing total
// evenly between them. There is one result per term, in input order. A term
// that fails only marks its own result through Result.Err; the returned
// error joins those failures.
func (s *Surgeon) OperateBatch(ctx context.Context, terms []ir.Term, total time.Duration) ([]Result, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	budget := total / time.Duration(len(terms))

	results := make([]Result, len(terms))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, term := range terms {
		g.Go(func() error {
			res, err := s.Operate(ctx, term, budget)
			if err != nil {
				res = Result{Original: term, Transformed: term, Err: fmt.Errorf("term %d: %w", i, err)}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return results, errors.Join(errs...)
}

// SelfImprove repeatedly optimizes its own output for at most rounds rounds.
// It stops once a round improves the score by less than the threshold and
// returns the improving rounds only.
func (s *Surgeon) SelfImprove(ctx context.Context, term ir.Term, rounds int) ([]Result, error) {
	var results []Result
	current := term
	for i := 0; i < rounds; i++ {
		if ctx.Err() != nil {
			break
		}
		res, err := s.Operate(ctx, current, s.budget)
		if err != nil {
			return results, err
		}
		if res.Improvement() < s.threshold {
			break
		}
		results = append(results, res)
		current = res.Transformed
	}
	s.logger.Debug("self-play finished", zap.Int("rounds", len(results)))
	return results, nil
}

// DiscoverRule proposes a rule from two before/after traces. The rule is
// applied to both "before" terms and must verify on each before it is added
// to the rule set and its pattern archived.
func (s *Surgeon) DiscoverRule(traces []learner.Trace) (rules.Rule, error) {
	r, err := s.discoverer.Discover(traces)
	if err != nil {
		return rules.Rule{}, err
	}

	pure := rules.PurityCheck(s.model.Effectful)
	for _, tr := range traces[:2] {
		out, applied, err := r.Apply(tr.Before, pure)
		if err != nil {
			return rules.Rule{}, fmt.Errorf("discovered rule %s: %w", r.ID, err)
		}
		if !applied {
			return rules.Rule{}, fmt.Errorf("%w: %s does not apply to %s", ErrUnsoundRule, r.ID, tr.Before)
		}
		if report := s.verifier.Check(tr.Before, out); report.Result != verify.Equivalent {
			return rules.Rule{}, fmt.Errorf("%w: %s: %s", ErrUnsoundRule, r.ID, report.Reason)
		}
	}

	if err := s.rules.Add(r); err != nil {
		return rules.Rule{}, err
	}
	s.discoverer.Accept(r)
	s.metrics.RuleDiscovered()
	s.logger.Info("rule discovered",
		zap.String("rule", r.ID),
		zap.Stringer("pattern", r.Pattern),
		zap.Stringer("rewrite", r.Rewrite))
	return r, nil
}

// DiscoverFromExperience runs discovery on the two most recent accepted
// improvements.
func (s *Surgeon) DiscoverFromExperience() (rules.Rule, error) {
	return s.DiscoverRule(s.experience.Traces(2))
}
