package function

import (
	"strconv"
	"strings"

	"github.com/corvid-sheets/formulacalc/internal/value"
)

// comparator is the parsed comparator prefix of a criterion string
// for the *IF(S) family.
type comparator int

const (
	cmpEq comparator = iota
	cmpNeq
	cmpLt
	cmpLte
	cmpGt
	cmpGte
)

// criterion is a parsed "<op><literal>" criterion string, e.g. ">=10"
// or "apples" (implicit "=").
type criterion struct {
	op      comparator
	literal value.Value
}

// parseCriteria parses a criterion string. Wildcards are not
// supported.
func parseCriteria(raw value.Value) criterion {
	text := raw.AsText()
	op, rest := cmpEq, text
	switch {
	case strings.HasPrefix(text, "<>"):
		op, rest = cmpNeq, text[2:]
	case strings.HasPrefix(text, "<="):
		op, rest = cmpLte, text[2:]
	case strings.HasPrefix(text, ">="):
		op, rest = cmpGte, text[2:]
	case strings.HasPrefix(text, "<"):
		op, rest = cmpLt, text[1:]
	case strings.HasPrefix(text, ">"):
		op, rest = cmpGt, text[1:]
	case strings.HasPrefix(text, "="):
		op, rest = cmpEq, text[1:]
	}
	return criterion{op: op, literal: literalFromText(rest)}
}

func literalFromText(s string) value.Value {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Num(f)
	}
	if strings.EqualFold(s, "TRUE") {
		return value.Bool(true)
	}
	if strings.EqualFold(s, "FALSE") {
		return value.Bool(false)
	}
	return value.Text(s)
}

// matches reports whether cell satisfies c. The criterion's own
// literal is the left-hand operand and the cell's text is the
// right-hand operand; the sign of "<"/">" in a criterion like ">10"
// still means "cell > 10", which is what comparator op + this operand
// order yields: `cmpGt` here tests `literal < cellValue`, i.e.
// `10 < cell`, i.e. `cell > 10`.
func (c criterion) matches(cell value.Value) bool {
	cellText := value.Text(cell.AsText())
	lhs := c.literal
	rhs := cellText
	if lhs.Kind == value.KindNum {
		if n, err := value.ToNumber(rhs); err == nil {
			rhs = value.Num(n)
		}
	}
	cmp, ok := value.Order(lhs, rhs)
	if !ok {
		return c.op == cmpNeq
	}
	// cmp is Order(literal, cellValue). A criterion of "<10" means
	// "cell < 10", i.e. 10 > cell, i.e. cmp(literal, cell) > 0 — the
	// comparator's sense is inverted relative to cmp's sign because
	// the literal is the left-hand operand.
	switch c.op {
	case cmpEq:
		return cmp == 0
	case cmpNeq:
		return cmp != 0
	case cmpLt:
		return cmp > 0
	case cmpLte:
		return cmp >= 0
	case cmpGt:
		return cmp < 0
	case cmpGte:
		return cmp <= 0
	default:
		return false
	}
}

func sumifFn(args []value.Value) value.Value {
	rng := value.Flatten(args[0])
	crit := parseCriteria(args[1])
	sumRange := rng
	if len(args) == 3 {
		sumRange = value.Flatten(args[2])
	}
	return sumWhereMatches(rng, crit, sumRange)
}

func sumifsFn(args []value.Value) value.Value {
	sumRange := value.Flatten(args[0])
	pairs := args[1:]
	if len(pairs)%2 != 0 {
		return value.Err(value.ErrValue)
	}
	total := 0.0
	n := len(sumRange)
	for i := 0; i < n; i++ {
		if rowMatchesAllCriteria(pairs, i) {
			if v, err := value.ToNumber(sumRange[i]); err == nil {
				total += v
			}
		}
	}
	return value.Num(total)
}

func averageifFn(args []value.Value) value.Value {
	rng := value.Flatten(args[0])
	crit := parseCriteria(args[1])
	avgRange := rng
	if len(args) == 3 {
		avgRange = value.Flatten(args[2])
	}
	return averageWhereMatches(rng, crit, avgRange)
}

func averageifsFn(args []value.Value) value.Value {
	avgRange := value.Flatten(args[0])
	pairs := args[1:]
	if len(pairs)%2 != 0 {
		return value.Err(value.ErrValue)
	}
	total, count := 0.0, 0
	for i := range avgRange {
		if rowMatchesAllCriteria(pairs, i) {
			if v, err := value.ToNumber(avgRange[i]); err == nil {
				total += v
				count++
			}
		}
	}
	if count == 0 {
		return value.Err(value.ErrDiv)
	}
	return value.Num(total / float64(count))
}

func countifFn(args []value.Value) value.Value {
	rng := value.Flatten(args[0])
	crit := parseCriteria(args[1])
	n := 0
	for _, cell := range rng {
		if crit.matches(cell) {
			n++
		}
	}
	return value.Num(float64(n))
}

func countifsFn(args []value.Value) value.Value {
	if len(args)%2 != 0 {
		return value.Err(value.ErrValue)
	}
	first := value.Flatten(args[0])
	n := 0
	for i := range first {
		if rowMatchesAllCriteria(args, i) {
			n++
		}
	}
	return value.Num(float64(n))
}

func rowMatchesAllCriteria(pairs []value.Value, i int) bool {
	for p := 0; p+1 < len(pairs); p += 2 {
		rng := value.Flatten(pairs[p])
		if i >= len(rng) {
			return false
		}
		crit := parseCriteria(pairs[p+1])
		if !crit.matches(rng[i]) {
			return false
		}
	}
	return true
}

func sumWhereMatches(criteriaRange []value.Value, crit criterion, sumRange []value.Value) value.Value {
	total := 0.0
	for i, cell := range criteriaRange {
		if i >= len(sumRange) {
			break
		}
		if crit.matches(cell) {
			if v, err := value.ToNumber(sumRange[i]); err == nil {
				total += v
			}
		}
	}
	return value.Num(total)
}

func averageWhereMatches(criteriaRange []value.Value, crit criterion, avgRange []value.Value) value.Value {
	total, count := 0.0, 0
	for i, cell := range criteriaRange {
		if i >= len(avgRange) {
			break
		}
		if crit.matches(cell) {
			if v, err := value.ToNumber(avgRange[i]); err == nil {
				total += v
				count++
			}
		}
	}
	if count == 0 {
		return value.Err(value.ErrDiv)
	}
	return value.Num(total / float64(count))
}
