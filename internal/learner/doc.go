// Package learner holds the experience that makes the optimizer better over
// time: a bandit policy that picks which rule to try next, a database of
// accepted improvements, and rule discovery by anti-unification gated by a
// novelty archive.
package learner
