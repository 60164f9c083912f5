package function

import (
	"strings"

	"github.com/corvid-sheets/formulacalc/internal/value"
)

func registerText(r *Registry) {
	r.register(&Func{Name: "CONCAT", Mode: ValueArgs, MinArgs: 0, MaxArgs: -1, ValueFn: concatFn})
	r.register(&Func{Name: "CONCATENATE", Mode: ValueArgs, MinArgs: 0, MaxArgs: -1, ValueFn: concatFn})
	r.register(&Func{Name: "SEARCH", Mode: ValueArgs, MinArgs: 2, MaxArgs: 3, ValueFn: searchFn})
	r.register(&Func{Name: "LEN", Mode: ValueArgs, MinArgs: 1, MaxArgs: 1, ValueFn: lenFn})
	r.register(&Func{Name: "UPPER", Mode: ValueArgs, MinArgs: 1, MaxArgs: 1, ValueFn: upperFn})
	r.register(&Func{Name: "LOWER", Mode: ValueArgs, MinArgs: 1, MaxArgs: 1, ValueFn: lowerFn})
	r.register(&Func{Name: "TRIM", Mode: ValueArgs, MinArgs: 1, MaxArgs: 1, ValueFn: trimFn})
}

func concatFn(args []value.Value) value.Value {
	var b strings.Builder
	for _, v := range flattenAll(args) {
		b.WriteString(value.Unwrap1x1(v).AsText())
	}
	return value.Text(b.String())
}

// searchFn implements SEARCH(needle, haystack, [start]) case
// insensitively, 1-indexed, returning #VALUE! when not found.
func searchFn(args []value.Value) value.Value {
	needle := strings.ToLower(args[0].AsText())
	haystack := strings.ToLower(args[1].AsText())
	start := 1
	if len(args) == 3 {
		n, err := value.ToNumber(args[2])
		if err != nil || n < 1 {
			return value.Err(value.ErrValue)
		}
		start = int(n)
	}
	if start > len(haystack)+1 {
		return value.Err(value.ErrValue)
	}
	idx := strings.Index(haystack[start-1:], needle)
	if idx < 0 {
		return value.Err(value.ErrValue)
	}
	return value.Num(float64(start + idx))
}

func lenFn(args []value.Value) value.Value {
	return value.Num(float64(len([]rune(args[0].AsText()))))
}

func upperFn(args []value.Value) value.Value {
	return value.Text(strings.ToUpper(args[0].AsText()))
}

func lowerFn(args []value.Value) value.Value {
	return value.Text(strings.ToLower(args[0].AsText()))
}

// trimFn collapses internal runs of spaces to one and strips leading
// and trailing whitespace, matching the spreadsheet TRIM convention
// (distinct from a plain strings.TrimSpace).
func trimFn(args []value.Value) value.Value {
	fields := strings.Fields(args[0].AsText())
	return value.Text(strings.Join(fields, " "))
}
