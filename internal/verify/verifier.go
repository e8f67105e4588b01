package verify

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gnoswap-labs/surgeon/internal/canon"
	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// Result is the outcome of an equivalence check.
type Result int

const (
	_ Result = iota
	// Equivalent indicates the terms behave the same.
	Equivalent
	// NotEquivalent indicates a witness of different behavior was found.
	NotEquivalent
	// Unknown indicates the check could not decide. Callers must reject.
	Unknown
)

func (r Result) String() string {
	switch r {
	case Equivalent:
		return "Equivalent"
	case NotEquivalent:
		return "NotEquivalent"
	case Unknown:
		return "Unknown"
	default:
		return "?"
	}
}

// ReasonCode explains a Result.
type ReasonCode int

const (
	ReasonNone ReasonCode = iota
	ReasonCanonicalMatch
	ReasonSameBehavior
	ReasonDifferentValue
	ReasonFreeVariable
	ReasonLawViolated
	ReasonUnsupported
	ReasonFuelExhausted
	ReasonMalformed
	ReasonNoEvidence
)

func (r ReasonCode) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonCanonicalMatch:
		return "identical canonical forms"
	case ReasonSameBehavior:
		return "same result on all samples and laws"
	case ReasonDifferentValue:
		return "different results"
	case ReasonFreeVariable:
		return "rewrite introduces a free variable"
	case ReasonLawViolated:
		return "algebraic law violated"
	case ReasonUnsupported:
		return "construct outside the interpreter"
	case ReasonFuelExhausted:
		return "evaluation did not terminate within fuel"
	case ReasonMalformed:
		return "malformed term"
	case ReasonNoEvidence:
		return "no sampled input evaluates on both terms"
	default:
		return "unknown"
	}
}

// Report is the detailed outcome of Check.
type Report struct {
	Result Result
	Reason ReasonCode
	Detail string
}

// Config parameterizes a Verifier.
type Config struct {
	// Samples is the number of random environments of the behavioral stage.
	Samples int
	// Seed makes sampling reproducible.
	Seed uint64
	// Fuel bounds each evaluation.
	Fuel int
	// MaxListLen bounds sampled list lengths.
	MaxListLen int
}

// DefaultConfig returns the default verifier configuration.
func DefaultConfig() Config {
	return Config{
		Samples:    100,
		Seed:       1,
		Fuel:       DefaultFuel,
		MaxListLen: 8,
	}
}

// Verifier checks behavioral equivalence of terms. It holds no mutable
// state and is safe for concurrent use.
type Verifier struct {
	config Config
}

// NewVerifier creates a verifier. Zero fields fall back to defaults.
func NewVerifier(config Config) *Verifier {
	def := DefaultConfig()
	if config.Samples <= 0 {
		config.Samples = def.Samples
	}
	if config.Fuel <= 0 {
		config.Fuel = def.Fuel
	}
	if config.MaxListLen <= 0 {
		config.MaxListLen = def.MaxListLen
	}
	return &Verifier{config: config}
}

// CheckEquivalence reports whether t2 is a safe replacement for t1.
func (v *Verifier) CheckEquivalence(t1, t2 ir.Term) bool {
	return v.Check(t1, t2).Result == Equivalent
}

// Check compares t1 (the original) with t2 (the candidate).
func (v *Verifier) Check(t1, t2 ir.Term) Report {
	if err := errors.Join(ir.Validate(t1), ir.Validate(t2)); err != nil {
		return Report{Result: Unknown, Reason: ReasonMalformed, Detail: err.Error()}
	}

	if extra := introducedVars(t1, t2); len(extra) > 0 {
		return Report{
			Result: NotEquivalent,
			Reason: ReasonFreeVariable,
			Detail: "free in the candidate only: " + strings.Join(extra, ", "),
		}
	}

	if ir.Equal(canon.Canonicalize(t1), canon.Canonicalize(t2)) {
		return Report{Result: Equivalent, Reason: ReasonCanonicalMatch, Detail: "canonical forms are equal"}
	}

	types := InferTypes(t1, t2)
	sampler := NewSampler(v.config.Seed, v.config.MaxListLen)
	agreed := 0
	for i := 0; i < v.config.Samples; i++ {
		env := sampler.Env(types)
		r, outcome := v.compare(t1, t2, env, identityObservation, identityObservation)
		switch outcome {
		case sampleDecided:
			r.Detail = fmt.Sprintf("sample %d: %s", i, r.Detail)
			return r
		case sampleAgreed:
			agreed++
		}
	}
	if agreed == 0 {
		return Report{
			Result: Unknown,
			Reason: ReasonNoEvidence,
			Detail: fmt.Sprintf("both terms failed on all %d samples", v.config.Samples),
		}
	}

	for _, law := range Laws() {
		for i := 0; i < LawSamples; i++ {
			env := sampler.Env(types)
			if law.derive != nil {
				env = law.derive(sampler, env)
			}
			if r, outcome := v.compare(t1, t2, env, law.left, law.right); outcome == sampleDecided {
				if r.Result == NotEquivalent {
					r.Reason = ReasonLawViolated
				}
				r.Detail = law.Name + ": " + r.Detail
				return r
			}
		}
	}

	return Report{Result: Equivalent, Reason: ReasonSameBehavior, Detail: "no distinguishing input found"}
}

func identityObservation(v Value) (Value, bool, error) { return v, true, nil }

// sampleOutcome is what a single sampled environment tells about a pair.
type sampleOutcome int

const (
	// sampleSkipped means the sample carries no evidence: both terms failed
	// or neither observation applied.
	sampleSkipped sampleOutcome = iota
	// sampleAgreed means both terms evaluated to equal observations.
	sampleAgreed
	// sampleDecided means the sample settles the check; see the report.
	sampleDecided
)

// compare evaluates both terms in env and reports a verdict if the sample
// decides the check.
func (v *Verifier) compare(t1, t2 ir.Term, bindings map[string]Value, left, right func(Value) (Value, bool, error)) (Report, sampleOutcome) {
	env := NewEnv(bindings)
	r1, err1 := NewInterpreter(v.config.Fuel).Eval(t1, env)
	r2, err2 := NewInterpreter(v.config.Fuel).Eval(t2, env)

	for _, err := range []error{err1, err2} {
		switch {
		case errors.Is(err, ErrUnsupported):
			return Report{Result: Unknown, Reason: ReasonUnsupported, Detail: err.Error()}, sampleDecided
		case errors.Is(err, ErrFuelExhausted):
			return Report{Result: Unknown, Reason: ReasonFuelExhausted, Detail: err.Error()}, sampleDecided
		}
	}
	switch {
	case err1 != nil && err2 != nil:
		return Report{}, sampleSkipped
	case err1 != nil || err2 != nil:
		return Report{
			Result: NotEquivalent,
			Reason: ReasonDifferentValue,
			Detail: fmt.Sprintf("only one term fails on %s: %v", describe(bindings), errors.Join(err1, err2)),
		}, sampleDecided
	}

	o1, ok1, err1 := left(r1)
	o2, ok2, err2 := right(r2)
	if err1 != nil || err2 != nil || (!ok1 && !ok2) {
		return Report{}, sampleSkipped
	}
	if ok1 != ok2 || !Equal(o1, o2) {
		return Report{
			Result: NotEquivalent,
			Reason: ReasonDifferentValue,
			Detail: fmt.Sprintf("%s vs %s on %s", r1, r2, describe(bindings)),
		}, sampleDecided
	}
	return Report{}, sampleAgreed
}

func introducedVars(t1, t2 ir.Term) []string {
	before := ir.FreeVars(t1)
	var extra []string
	for name := range ir.FreeVars(t2).Items() {
		if !before.Contains(name) && !IsBuiltin(name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	return extra
}

func describe(env map[string]Value) string {
	if len(env) == 0 {
		return "{}"
	}
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + env[name].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
