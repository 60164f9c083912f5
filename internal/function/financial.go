package function

import (
	"math"

	"github.com/corvid-sheets/formulacalc/internal/value"
)

func registerFinancial(r *Registry) {
	r.register(&Func{Name: "PMT", Mode: ValueArgs, MinArgs: 3, MaxArgs: 5, ValueFn: pmtFn})
	r.register(&Func{Name: "XIRR", Mode: ValueArgs, MinArgs: 2, MaxArgs: 3, ValueFn: xirrFn})
	r.register(&Func{Name: "XNPV", Mode: ValueArgs, MinArgs: 3, MaxArgs: 3, ValueFn: xnpvFn})
}

func pmtFn(args []value.Value) value.Value {
	rate, e1 := value.ToNumber(args[0])
	nper, e2 := value.ToNumber(args[1])
	pv, e3 := value.ToNumber(args[2])
	if e1 != nil || e2 != nil || e3 != nil {
		return value.Err(value.ErrValue)
	}
	fv := 0.0
	if len(args) >= 4 {
		v, err := value.ToNumber(args[3])
		if err != nil {
			return value.Err(value.ErrValue)
		}
		fv = v
	}
	due := 0.0
	if len(args) == 5 {
		v, err := value.ToNumber(args[4])
		if err != nil {
			return value.Err(value.ErrValue)
		}
		due = v
	}
	if rate == 0 {
		return value.Num(-(pv + fv) / nper)
	}
	pow := math.Pow(1+rate, nper)
	pmt := rate * (pv*pow + fv) / ((1 + rate*due) * (pow - 1))
	return value.Num(-pmt)
}

func cashFlowSeries(valuesArg, datesArg value.Value) ([]float64, []float64, error) {
	values := value.Flatten(valuesArg)
	dates := value.Flatten(datesArg)
	if len(values) != len(dates) || len(values) == 0 {
		return nil, nil, errMismatchedSeries
	}
	amounts := make([]float64, len(values))
	days := make([]float64, len(values))
	var first float64
	for i, v := range values {
		n, err := value.ToNumber(v)
		if err != nil {
			return nil, nil, errMismatchedSeries
		}
		amounts[i] = n
		d, ok := asDate(dates[i])
		if !ok {
			return nil, nil, errMismatchedSeries
		}
		t := float64(d.Unix()) / 86400
		if i == 0 {
			first = t
		}
		days[i] = t - first
	}
	return amounts, days, nil
}

type seriesError struct{ msg string }

func (e *seriesError) Error() string { return e.msg }

var errMismatchedSeries = &seriesError{"mismatched or empty cash flow series"}

// xnpvFn implements XNPV(rate, values, dates) using actual day
// spacing from the first cash flow, not the uniform-period NPV
// convention.
func xnpvFn(args []value.Value) value.Value {
	rate, err := value.ToNumber(args[0])
	if err != nil {
		return value.Err(value.ErrValue)
	}
	amounts, days, serr := cashFlowSeries(args[1], args[2])
	if serr != nil {
		return value.Err(value.ErrValue)
	}
	return value.Num(xnpv(rate, amounts, days))
}

func xnpv(rate float64, amounts, days []float64) float64 {
	total := 0.0
	for i, a := range amounts {
		total += a / math.Pow(1+rate, days[i]/365)
	}
	return total
}

// xirrFn implements XIRR via Newton-Raphson: up to 50
// iterations, 1e-7 tolerance, defaulting the initial guess to 0.1.
// Requires at least one positive and one negative cash flow, else
// #NUM!.
func xirrFn(args []value.Value) value.Value {
	amounts, days, serr := cashFlowSeries(args[0], args[1])
	if serr != nil {
		return value.Err(value.ErrValue)
	}
	guess := 0.1
	if len(args) == 3 {
		g, err := value.ToNumber(args[2])
		if err != nil {
			return value.Err(value.ErrValue)
		}
		guess = g
	}

	hasPos, hasNeg := false, false
	for _, a := range amounts {
		if a > 0 {
			hasPos = true
		}
		if a < 0 {
			hasNeg = true
		}
	}
	if !hasPos || !hasNeg {
		return value.Err(value.ErrNum)
	}

	rate := guess
	const tolerance = 1e-7
	const maxIterations = 50
	for i := 0; i < maxIterations; i++ {
		f := xnpv(rate, amounts, days)
		fPrime := xnpvDerivative(rate, amounts, days)
		if fPrime == 0 {
			return value.Err(value.ErrNum)
		}
		next := rate - f/fPrime
		if math.Abs(next-rate) < tolerance {
			return value.Num(next)
		}
		rate = next
	}
	return value.Err(value.ErrNum)
}

func xnpvDerivative(rate float64, amounts, days []float64) float64 {
	total := 0.0
	for i, a := range amounts {
		t := days[i] / 365
		total += -t * a / math.Pow(1+rate, t+1)
	}
	return total
}
