// Package ir defines the term representation optimized by the surgeon: an
// untyped lambda calculus extended with literals, list primitives
// (cons, map, filter, reduce), combinators (compose, pipe, id, const) and the
// Focus node that fuses a selection with a transformation.
//
// Terms are immutable values. Each node owns its children and there are no
// back-references; sharing between terms only happens inside an e-graph.
//
// Every term has a textual form produced by String:
//
//	(map (filter xs isEven) double)
//	(focus hard xs isEven double drop)
//	(lam x (+ x 1))
package ir
