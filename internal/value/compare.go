package value

// rank implements the heterogeneous ordering:
// Bool < Text < Num < Date.
func rank(k Kind) int {
	switch k {
	case KindBool:
		return 0
	case KindText:
		return 1
	case KindNum:
		return 2
	case KindDate:
		return 3
	default:
		return 4
	}
}

// Order reports l<r, l==r, l>r as -1/0/1. ok is false when the pair
// is incomparable (e.g. either side is NaN).
func Order(l, r Value) (cmp int, ok bool) {
	l = Unwrap1x1(l)
	r = Unwrap1x1(r)
	if l.Kind == KindNum && l.Num != l.Num {
		return 0, false
	}
	if r.Kind == KindNum && r.Num != r.Num {
		return 0, false
	}
	rl, rr := rank(l.Kind), rank(r.Kind)
	if rl != rr {
		if rl < rr {
			return -1, true
		}
		return 1, true
	}
	switch l.Kind {
	case KindBool:
		return boolCmp(l.Bool, r.Bool), true
	case KindText:
		return stringCmp(l.Text, r.Text), true
	case KindNum:
		return numCmp(l.Num, r.Num), true
	case KindDate:
		if l.Date.Before(r.Date) {
			return -1, true
		}
		if l.Date.After(r.Date) {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func boolCmp(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func stringCmp(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func numCmp(a, b float64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func comparison(op BinaryOp, left, right Value) Value {
	cmp, ok := Order(left, right)
	if !ok {
		// Excel-style: only (in)equality is well-defined for an
		// incomparable pair (e.g. NaN); ordering comparisons fall
		// back to false rather than erroring.
		switch op {
		case OpEq:
			return Bool(false)
		case OpNeq:
			return Bool(true)
		default:
			return Bool(false)
		}
	}
	switch op {
	case OpEq:
		return Bool(cmp == 0)
	case OpNeq:
		return Bool(cmp != 0)
	case OpLt:
		return Bool(cmp < 0)
	case OpLte:
		return Bool(cmp <= 0)
	case OpGt:
		return Bool(cmp > 0)
	case OpGte:
		return Bool(cmp >= 0)
	default:
		return Err(ErrValue)
	}
}
