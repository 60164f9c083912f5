package function

import "github.com/corvid-sheets/formulacalc/internal/value"

// flattenAll flattens every argument (scalar, Array, or Array2 —
// treated identically) into one scalar slice.
func flattenAll(args []value.Value) []value.Value {
	var out []value.Value
	for _, a := range args {
		out = append(out, value.Flatten(a)...)
	}
	return out
}

// numericOnly extracts the numeric-coercible scalars from vs,
// silently skipping Text/Bool/Empty — the convention spec scenario 3
// requires for aggregate functions ("text/bool ignored in array
// aggregates").
func numericOnly(vs []value.Value) []float64 {
	var out []float64
	for _, v := range vs {
		v = value.Unwrap1x1(v)
		if v.Kind == value.KindNum {
			out = append(out, v.Num)
		}
	}
	return out
}

func registerAggregates(r *Registry) {
	r.register(&Func{Name: "SUM", Mode: ValueArgs, MinArgs: 0, MaxArgs: -1, ValueFn: sumFn})
	r.register(&Func{Name: "AVERAGE", Mode: ValueArgs, MinArgs: 1, MaxArgs: -1, ValueFn: averageFn})
	r.register(&Func{Name: "COUNT", Mode: ValueArgs, MinArgs: 0, MaxArgs: -1, ValueFn: countFn})
	r.register(&Func{Name: "COUNTA", Mode: ValueArgs, MinArgs: 0, MaxArgs: -1, ValueFn: countaFn})
	r.register(&Func{Name: "MAX", Mode: ValueArgs, MinArgs: 0, MaxArgs: -1, ValueFn: maxFn})
	r.register(&Func{Name: "MIN", Mode: ValueArgs, MinArgs: 0, MaxArgs: -1, ValueFn: minFn})
	r.register(&Func{Name: "SUMPRODUCT", Mode: ValueArgs, MinArgs: 1, MaxArgs: -1, ValueFn: sumproductFn})
	r.register(&Func{Name: "EXPONENT", Mode: ValueArgs, MinArgs: 2, MaxArgs: 2, ValueFn: exponentFn})
	r.register(&Func{Name: "FLOOR", Mode: ValueArgs, MinArgs: 2, MaxArgs: 2, ValueFn: floorFn})
	r.register(&Func{Name: "ROUNDDOWN", Mode: ValueArgs, MinArgs: 2, MaxArgs: 2, ValueFn: roundDownFn})
	r.register(&Func{Name: "ROUNDUP", Mode: ValueArgs, MinArgs: 2, MaxArgs: 2, ValueFn: roundUpFn})

	r.register(&Func{Name: "SUMIF", Mode: ValueArgs, MinArgs: 2, MaxArgs: 3, ValueFn: sumifFn})
	r.register(&Func{Name: "SUMIFS", Mode: ValueArgs, MinArgs: 3, MaxArgs: -1, ValueFn: sumifsFn})
	r.register(&Func{Name: "AVERAGEIF", Mode: ValueArgs, MinArgs: 2, MaxArgs: 3, ValueFn: averageifFn})
	r.register(&Func{Name: "AVERAGEIFS", Mode: ValueArgs, MinArgs: 3, MaxArgs: -1, ValueFn: averageifsFn})
	r.register(&Func{Name: "COUNTIF", Mode: ValueArgs, MinArgs: 2, MaxArgs: 2, ValueFn: countifFn})
	r.register(&Func{Name: "COUNTIFS", Mode: ValueArgs, MinArgs: 2, MaxArgs: -1, ValueFn: countifsFn})
}

func sumFn(args []value.Value) value.Value {
	total := 0.0
	for _, n := range numericOnly(flattenAll(args)) {
		total += n
	}
	return value.Num(total)
}

func averageFn(args []value.Value) value.Value {
	nums := numericOnly(flattenAll(args))
	if len(nums) == 0 {
		return value.Err(value.ErrDiv)
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return value.Num(total / float64(len(nums)))
}

func countFn(args []value.Value) value.Value {
	return value.Num(float64(len(numericOnly(flattenAll(args)))))
}

func countaFn(args []value.Value) value.Value {
	n := 0
	for _, v := range flattenAll(args) {
		if value.Unwrap1x1(v).Kind != value.KindEmpty {
			n++
		}
	}
	return value.Num(float64(n))
}

func maxFn(args []value.Value) value.Value {
	nums := numericOnly(flattenAll(args))
	if len(nums) == 0 {
		return value.Num(0)
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return value.Num(m)
}

func minFn(args []value.Value) value.Value {
	nums := numericOnly(flattenAll(args))
	if len(nums) == 0 {
		return value.Num(0)
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return value.Num(m)
}

func sumproductFn(args []value.Value) value.Value {
	arrays := make([][]value.Value, len(args))
	length := -1
	for i, a := range args {
		flat := value.Flatten(a)
		arrays[i] = flat
		if length == -1 {
			length = len(flat)
		} else if len(flat) != length {
			return value.Err(value.ErrValue)
		}
	}
	total := 0.0
	for i := 0; i < length; i++ {
		product := 1.0
		for _, arr := range arrays {
			n, err := value.ToNumber(arr[i])
			if err != nil {
				return value.Err(value.ErrValue)
			}
			product *= n
		}
		total += product
	}
	return value.Num(total)
}

func exponentFn(args []value.Value) value.Value {
	base, err1 := value.ToNumber(args[0])
	exp, err2 := value.ToNumber(args[1])
	if err1 != nil || err2 != nil {
		return value.Err(value.ErrValue)
	}
	return value.Binary(value.OpPow, value.Num(base), value.Num(exp))
}

func floorFn(args []value.Value) value.Value {
	n, err1 := value.ToNumber(args[0])
	sig, err2 := value.ToNumber(args[1])
	if err1 != nil || err2 != nil || sig == 0 {
		return value.Err(value.ErrValue)
	}
	q := n / sig
	return value.Num(floorFloat(q) * sig)
}

func floorFloat(f float64) float64 {
	i := float64(int64(f))
	if f < 0 && i != f {
		i--
	}
	return i
}

func ceilFloat(f float64) float64 {
	i := float64(int64(f))
	if f > 0 && i != f {
		i++
	}
	return i
}

func roundDownFn(args []value.Value) value.Value {
	return roundToward(args, floorMagnitude)
}

func roundUpFn(args []value.Value) value.Value {
	return roundToward(args, ceilMagnitude)
}

func roundToward(args []value.Value, f func(float64) float64) value.Value {
	n, err1 := value.ToNumber(args[0])
	digits, err2 := value.ToNumber(args[1])
	if err1 != nil || err2 != nil {
		return value.Err(value.ErrValue)
	}
	scale := pow10(int(digits))
	return value.Num(f(n*scale) / scale)
}

func floorMagnitude(f float64) float64 {
	if f < 0 {
		return ceilFloat(f)
	}
	return floorFloat(f)
}

func ceilMagnitude(f float64) float64 {
	if f < 0 {
		return floorFloat(f)
	}
	return ceilFloat(f)
}

func pow10(n int) float64 {
	scale := 1.0
	if n >= 0 {
		for i := 0; i < n; i++ {
			scale *= 10
		}
		return scale
	}
	for i := 0; i < -n; i++ {
		scale *= 10
	}
	return 1 / scale
}
