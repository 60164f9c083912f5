package function

import (
	"strings"
	"time"

	"github.com/corvid-sheets/formulacalc/internal/value"
)

func registerDate(r *Registry) {
	r.register(&Func{Name: "DATE", Mode: ValueArgs, MinArgs: 3, MaxArgs: 3, ValueFn: dateFn})
	r.register(&Func{Name: "EOMONTH", Mode: ValueArgs, MinArgs: 2, MaxArgs: 2, ValueFn: eomonthFn})
	r.register(&Func{Name: "YEAR", Mode: ValueArgs, MinArgs: 1, MaxArgs: 1, ValueFn: yearFn})
	r.register(&Func{Name: "MONTH", Mode: ValueArgs, MinArgs: 1, MaxArgs: 1, ValueFn: monthFn})
	r.register(&Func{Name: "YEARFRAC", Mode: ValueArgs, MinArgs: 2, MaxArgs: 3, ValueFn: yearfracFn})
	r.register(&Func{Name: "DATEDIF", Mode: ValueArgs, MinArgs: 3, MaxArgs: 3, ValueFn: datedifFn})
}

func asDate(v value.Value) (time.Time, bool) {
	v = value.Unwrap1x1(v)
	if v.Kind == value.KindDate {
		return v.Date, true
	}
	return time.Time{}, false
}

func dateFn(args []value.Value) value.Value {
	y, err1 := value.ToNumber(args[0])
	m, err2 := value.ToNumber(args[1])
	d, err3 := value.ToNumber(args[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return value.Err(value.ErrValue)
	}
	return value.Date(time.Date(int(y), time.Month(int(m)), int(d), 0, 0, 0, 0, time.UTC))
}

func eomonthFn(args []value.Value) value.Value {
	start, ok := asDate(args[0])
	if !ok {
		return value.Err(value.ErrValue)
	}
	months, err := value.ToNumber(args[1])
	if err != nil {
		return value.Err(value.ErrValue)
	}
	firstOfTarget := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, int(months)+1, 0)
	return value.Date(firstOfTarget.AddDate(0, 0, -1))
}

func yearFn(args []value.Value) value.Value {
	d, ok := asDate(args[0])
	if !ok {
		return value.Err(value.ErrValue)
	}
	return value.Num(float64(d.Year()))
}

func monthFn(args []value.Value) value.Value {
	d, ok := asDate(args[0])
	if !ok {
		return value.Err(value.ErrValue)
	}
	return value.Num(float64(d.Month()))
}

// yearfracFn implements the 360-day (US/NASD) day-count convention
// (basis 0, the only basis this engine supports).
func yearfracFn(args []value.Value) value.Value {
	start, ok1 := asDate(args[0])
	end, ok2 := asDate(args[1])
	if !ok1 || !ok2 {
		return value.Err(value.ErrValue)
	}
	if start.After(end) {
		start, end = end, start
	}
	d1, d2 := start.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}
	days := 360*(end.Year()-start.Year()) + 30*(int(end.Month())-int(start.Month())) + (d2 - d1)
	return value.Num(float64(days) / 360.0)
}

// datedifFn implements DATEDIF's six units; unit is matched case
// insensitively and an unrecognized unit is #NUM!.
func datedifFn(args []value.Value) value.Value {
	start, ok1 := asDate(args[0])
	end, ok2 := asDate(args[1])
	if !ok1 || !ok2 {
		return value.Err(value.ErrValue)
	}
	if start.After(end) {
		return value.Err(value.ErrNum)
	}
	unit := strings.ToUpper(args[2].AsText())
	switch unit {
	case "Y":
		return value.Num(float64(wholeYears(start, end)))
	case "M":
		return value.Num(float64(wholeMonths(start, end)))
	case "D":
		return value.Num(float64(end.Sub(start).Hours() / 24))
	case "MD":
		d := end.Day() - start.Day()
		if d < 0 {
			priorMonth := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
			d = priorMonth.Day() - start.Day() + end.Day()
		}
		return value.Num(float64(d))
	case "YM":
		m := wholeMonths(start, end) % 12
		return value.Num(float64(m))
	case "YD":
		anniversary := time.Date(end.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		if anniversary.After(end) {
			anniversary = anniversary.AddDate(-1, 0, 0)
		}
		return value.Num(float64(end.Sub(anniversary).Hours() / 24))
	default:
		return value.Err(value.ErrNum)
	}
}

func wholeYears(start, end time.Time) int {
	years := end.Year() - start.Year()
	anniversary := start.AddDate(years, 0, 0)
	if anniversary.After(end) {
		years--
	}
	return years
}

func wholeMonths(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	anniversary := start.AddDate(0, months, 0)
	if anniversary.After(end) {
		months--
	}
	return months
}
