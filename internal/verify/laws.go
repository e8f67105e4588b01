package verify

// Law is an algebraic observation under which two equivalent terms must
// still agree. A law derives an input environment from a sampled one and
// observes each result through its own context; the observations of the
// original and the rewritten term are compared.
type Law struct {
	Name string
	// derive rewrites the sampled environment; nil keeps it.
	derive func(s *Sampler, env map[string]Value) map[string]Value
	// left and right observe the results of the first and second term.
	// They report false when the law does not apply to the value.
	left, right func(Value) (Value, bool, error)
}

// LawSamples is the number of environments each law is checked on.
const LawSamples = 10

var (
	lengthPreservation = Law{
		Name: "length-preservation",
		derive: func(s *Sampler, env map[string]Value) map[string]Value {
			return mapLists(env, func(l ListValue) ListValue {
				n := 20 + s.rng.IntN(21)
				if len(l.Items) > 0 && kindOf(l.Items[0]) == "boolean" {
					return s.BoolList(n)
				}
				return s.List(n)
			})
		},
		left:  listLength,
		right: listLength,
	}

	identityLaw = Law{
		Name: "identity",
		derive: func(_ *Sampler, env map[string]Value) map[string]Value {
			out := mapLists(env, func(ListValue) ListValue { return ListValue{} })
			for name, v := range out {
				if _, ok := v.(NumValue); ok {
					out[name] = NumValue{0}
				}
			}
			return out
		},
		left:  throughIdentity,
		right: throughIdentity,
	}

	fusionLaw = Law{
		Name:  "fusion",
		left:  mapSquare,
		right: mapSquare,
	}

	associativityLaw = Law{
		Name: "associativity",
		left: func(v Value) (Value, bool, error) {
			switch x := v.(type) {
			case NumValue:
				return NumValue{(x.Val + 7) + -3}, true, nil
			case FuncValue:
				return compose(compose(x, prelude["inc"]), prelude["double"]), true, nil
			}
			return nil, false, nil
		},
		right: func(v Value) (Value, bool, error) {
			switch x := v.(type) {
			case NumValue:
				return NumValue{x.Val + (7 + -3)}, true, nil
			case FuncValue:
				return compose(x, compose(prelude["inc"], prelude["double"])), true, nil
			}
			return nil, false, nil
		},
	}

	commutativityLaw = Law{
		Name: "commutativity",
		derive: func(_ *Sampler, env map[string]Value) map[string]Value {
			return mapLists(env, func(l ListValue) ListValue {
				items := make([]Value, len(l.Items))
				for i, item := range l.Items {
					items[len(items)-1-i] = item
				}
				return ListValue{items}
			})
		},
		left: func(v Value) (Value, bool, error) {
			if x, ok := v.(NumValue); ok {
				return NumValue{x.Val + 5}, true, nil
			}
			return nil, false, nil
		},
		right: func(v Value) (Value, bool, error) {
			if x, ok := v.(NumValue); ok {
				return NumValue{5 + x.Val}, true, nil
			}
			return nil, false, nil
		},
	}

	idempotenceLaw = Law{
		Name: "idempotence",
		left: func(v Value) (Value, bool, error) {
			once, ok, err := filterEven(v)
			if !ok || err != nil {
				return nil, ok, err
			}
			return filterEven(once)
		},
		right: filterEven,
	}
)

// Laws returns the law battery in the order it is checked.
func Laws() []Law {
	return []Law{lengthPreservation, identityLaw, fusionLaw, associativityLaw, commutativityLaw, idempotenceLaw}
}

func mapLists(env map[string]Value, fn func(ListValue) ListValue) map[string]Value {
	out := make(map[string]Value, len(env))
	for name, v := range env {
		if l, ok := v.(ListValue); ok {
			out[name] = fn(l)
			continue
		}
		out[name] = v
	}
	return out
}

func listLength(v Value) (Value, bool, error) {
	l, ok := v.(ListValue)
	if !ok {
		return nil, false, nil
	}
	return NumValue{int64(len(l.Items))}, true, nil
}

func throughIdentity(v Value) (Value, bool, error) {
	if f, ok := v.(FuncValue); ok {
		return compose(identity, compose(f, identity)), true, nil
	}
	out, err := Apply(identity, v)
	return out, true, err
}

func mapSquare(v Value) (Value, bool, error) {
	switch x := v.(type) {
	case ListValue:
		out := make([]Value, len(x.Items))
		for i, item := range x.Items {
			sq, err := Apply(prelude["square"], item)
			if err != nil {
				return nil, false, nil
			}
			out[i] = sq
		}
		return ListValue{out}, true, nil
	case FuncValue:
		return compose(prelude["square"], x), true, nil
	}
	return nil, false, nil
}

func filterEven(v Value) (Value, bool, error) {
	l, ok := v.(ListValue)
	if !ok {
		return nil, false, nil
	}
	var out []Value
	for _, item := range l.Items {
		keep, err := applyPredicate(prelude["isEven"], item)
		if err != nil {
			return nil, false, nil
		}
		if keep {
			out = append(out, item)
		}
	}
	return ListValue{out}, true, nil
}

// compose returns f after g.
func compose(f, g Value) FuncValue {
	return FuncValue{Fn: func(arg Value) (Value, error) {
		mid, err := Apply(g, arg)
		if err != nil {
			return nil, err
		}
		return Apply(f, mid)
	}}
}
