package function

import "github.com/corvid-sheets/formulacalc/internal/value"

func registerLogical(r *Registry) {
	r.register(&Func{Name: "AND", Mode: ValueArgs, MinArgs: 1, MaxArgs: -1, ValueFn: andFn})
	r.register(&Func{Name: "OR", Mode: ValueArgs, MinArgs: 1, MaxArgs: -1, ValueFn: orFn})
	// IF and IFERROR both always evaluate both branches, so they are
	// ordinary ValueArgs functions rather than needing lazy/ExprArgs
	// dispatch. Both are ErrorAware: they must see an erroring
	// argument themselves rather than have CallValue short-circuit on
	// it, since suppressing or selecting past an error is their whole
	// point.
	r.register(&Func{Name: "IF", Mode: ValueArgs, MinArgs: 2, MaxArgs: 3, ValueFn: ifFn, ErrorAware: true})
	r.register(&Func{Name: "IFERROR", Mode: ValueArgs, MinArgs: 2, MaxArgs: 2, ValueFn: ifErrorFn, ErrorAware: true})
}

func andFn(args []value.Value) value.Value {
	for _, a := range flattenAll(args) {
		b, err := value.ToBool(a)
		if err != nil {
			return value.Err(value.ErrValue)
		}
		if !b {
			return value.Bool(false)
		}
	}
	return value.Bool(true)
}

func orFn(args []value.Value) value.Value {
	for _, a := range flattenAll(args) {
		b, err := value.ToBool(a)
		if err != nil {
			return value.Err(value.ErrValue)
		}
		if b {
			return value.Bool(true)
		}
	}
	return value.Bool(false)
}

func ifFn(args []value.Value) value.Value {
	if args[0].IsError() {
		return args[0]
	}
	cond, err := value.ToBool(args[0])
	if err != nil {
		return value.Err(value.ErrValue)
	}
	if cond {
		return args[1]
	}
	if len(args) == 3 {
		return args[2]
	}
	return value.Bool(false)
}

// ifErrorFn implements IFERROR(Error(k), x) = x; IFERROR(v, x) = v
// when v is not an error.
func ifErrorFn(args []value.Value) value.Value {
	if args[0].IsError() {
		return args[1]
	}
	return args[0]
}
