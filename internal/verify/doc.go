// Package verify decides whether two lambda terms behave the same.
//
// Verification runs in three stages, each of which may settle the question:
//
//   - structural: terms with equal canonical forms are equivalent
//   - behavioral: both terms are evaluated by a small pure interpreter on
//     randomly sampled inputs and must agree on every sample
//   - laws: a fixed battery of algebraic observations (length preservation,
//     identity, fusion, associativity, commutativity, idempotence) is run
//     wherever the result kind makes it meaningful
//
// Anything the interpreter cannot evaluate is reported as Unknown, and
// callers treat Unknown as a rejection.
package verify
