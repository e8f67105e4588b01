package rules

// Identifiers of the base rules.
const (
	MapID          = "map-id"
	MapFusion      = "map-fusion"
	FilterTrue     = "filter-true"
	FilterFalse    = "filter-false"
	FilterFusion   = "filter-fusion"
	MapFilterFocus = "map-filter-focus"
	ComposeAssoc   = "compose-assoc"
	ComposeIDLeft  = "compose-id-left"
	ComposeIDRight = "compose-id-right"
	AddZeroLeft    = "add-zero-left"
	AddZeroRight   = "add-zero-right"
	MulOneLeft     = "mul-one-left"
	MulOneRight    = "mul-one-right"
	MapNil         = "map-nil"
	FilterNil      = "filter-nil"
	ReduceNil      = "reduce-nil"
	IfSame         = "if-same"
	FocusFusion    = "focus-fusion"
	ReduceMapSink  = "reduce-map-sink"
)

// BaseRules returns the built-in rewrite rules.
func BaseRules() []Rule {
	return []Rule{
		MustNew(MapID, "(map ?xs id)", "?xs",
			WithName("map identity"),
			WithCostHint(CostHint{ReduceAllocs: 10, ReduceCycles: 100})),

		MustNew(MapFusion, "(map (map ?xs ?f) ?g)", "(map ?xs (compose ?g ?f))",
			WithName("map fusion"),
			WithGuards(Pure("f"), Pure("g")),
			WithCostHint(CostHint{ReduceAllocs: 10, ReduceCycles: 100})),

		MustNew(FilterTrue, "(filter ?xs (const true))", "?xs",
			WithName("filter always true"),
			WithCostHint(CostHint{ReduceAllocs: 5, ReduceCycles: 50})),

		MustNew(FilterFalse, "(filter ?xs (const false))", "nil",
			WithName("filter always false"),
			WithCostHint(CostHint{ReduceAllocs: 5, ReduceCycles: 50})),

		MustNew(FilterFusion, "(filter (filter ?xs ?p) ?q)", "(filter ?xs (lam $v (and (app ?p $v) (app ?q $v))))",
			WithName("filter fusion"),
			WithGuards(Pure("p"), Pure("q")),
			WithCostHint(CostHint{ReduceAllocs: 2})),

		MustNew(MapFilterFocus, "(map (filter ?xs ?p) ?f)", "(focus hard ?xs ?p ?f drop)",
			WithName("map after filter to focus"),
			WithGuards(Pure("p"), Pure("f")),
			WithCostHint(CostHint{ReduceAllocs: 5, ReduceBytes: 80})),

		MustNew(ComposeAssoc, "(compose (compose ?f ?g) ?h)", "(compose ?f (compose ?g ?h))",
			WithName("compose associativity")),

		MustNew(ComposeIDLeft, "(compose id ?f)", "?f",
			WithName("compose left identity"),
			WithCostHint(CostHint{ReduceAllocs: 1})),

		MustNew(ComposeIDRight, "(compose ?f id)", "?f",
			WithName("compose right identity"),
			WithCostHint(CostHint{ReduceAllocs: 1})),

		MustNew(AddZeroLeft, "(+ 0 ?x)", "?x",
			WithName("add zero left"),
			WithCostHint(CostHint{ReduceCycles: 2})),

		MustNew(AddZeroRight, "(+ ?x 0)", "?x",
			WithName("add zero right"),
			WithCostHint(CostHint{ReduceCycles: 2})),

		MustNew(MulOneLeft, "(* 1 ?x)", "?x",
			WithName("multiply one left"),
			WithCostHint(CostHint{ReduceCycles: 2})),

		MustNew(MulOneRight, "(* ?x 1)", "?x",
			WithName("multiply one right"),
			WithCostHint(CostHint{ReduceCycles: 2})),

		MustNew(MapNil, "(map nil ?f)", "nil",
			WithName("map over nil"),
			WithCostHint(CostHint{ReduceCycles: 10})),

		MustNew(FilterNil, "(filter nil ?p)", "nil",
			WithName("filter over nil"),
			WithCostHint(CostHint{ReduceCycles: 5})),

		MustNew(ReduceNil, "(reduce nil ?f ?init)", "?init",
			WithName("reduce over nil"),
			WithCostHint(CostHint{ReduceCycles: 10})),

		MustNew(IfSame, "(if ?c ?t ?t)", "?t",
			WithName("if with equal branches"),
			WithCostHint(CostHint{ReduceCycles: 2})),

		MustNew(FocusFusion,
			"(focus hard (focus hard ?xs ?w1 ?f1 drop) ?w2 ?f2 drop)",
			"(focus hard ?xs (lam $v (and (app ?w1 $v) (app ?w2 (app ?f1 $v)))) (compose ?f2 ?f1) drop)",
			WithName("focus fusion"),
			WithGuards(Pure("w1"), Pure("f1"), Pure("w2"), Pure("f2")),
			WithCostHint(CostHint{ReduceAllocs: 5})),

		MustNew(ReduceMapSink,
			"(reduce (map ?xs ?f) ?op ?init)",
			"(reduce ?xs (lam $acc (lam $x (app (app ?op $acc) (app ?f $x)))) ?init)",
			WithName("sink map into fold"),
			WithGuards(Pure("f"), Pure("op")),
			WithCostHint(CostHint{ReduceAllocs: 10})),
	}
}

// Base returns a fresh set holding the base rules.
func Base() *Set {
	s, err := NewSet(BaseRules()...)
	if err != nil {
		panic(err)
	}
	return s
}
