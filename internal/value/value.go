// Package value implements the tagged polymorphic value domain of the
// formula engine: numbers, booleans, text, dates, arrays, ranges,
// references, formulas, errors, and empty cells, with their
// coercion, arithmetic, and ordering rules.
package value

import (
	"fmt"
	"time"

	"github.com/corvid-sheets/formulacalc/internal/refmodel"
)

// Kind discriminates the Value sum type.
type Kind int

const (
	KindEmpty Kind = iota
	KindNum
	KindBool
	KindText
	KindDate
	KindArray
	KindArray2
	KindRange
	KindRef
	KindFormula
	KindError
)

// ErrorKind enumerates the spreadsheet error codes.
type ErrorKind int

const (
	ErrNull ErrorKind = iota
	ErrDiv
	ErrValue
	ErrRef
	ErrName
	ErrNum
	ErrNA
	ErrGettingData
)

var errorLabels = map[ErrorKind]string{
	ErrNull:        "#NULL!",
	ErrDiv:         "#DIV/0!",
	ErrValue:       "#VALUE!",
	ErrRef:         "#REF!",
	ErrName:        "#NAME?",
	ErrNum:         "#NUM!",
	ErrNA:          "#N/A",
	ErrGettingData: "#GETTING_DATA",
}

func (k ErrorKind) String() string { return errorLabels[k] }

// Value is a closed tagged union. Exactly one field is meaningful,
// selected by Kind; downstream code switches on Kind rather than
// relying on an open interface hierarchy.
type Value struct {
	Kind Kind

	Num  float64
	Bool bool
	Text string
	Date time.Time

	Array  []Value   // KindArray: flat 1-D sequence
	Array2 [][]Value // KindArray2: rectangular matrix, Array2[row][col]

	RangeSheet string
	RangeRef   refmodel.Reference
	Cached     *Value // cached materialized value for KindRange, nil until resolved

	RefSheet string
	Ref      refmodel.Reference

	FormulaText string

	ErrorKind   ErrorKind
	ErrorDetail string // optional human-readable detail, never surfaced to the stored cell value
}

func Num(f float64) Value    { return Value{Kind: KindNum, Num: f} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func Text(s string) Value    { return Value{Kind: KindText, Text: s} }
func Date(t time.Time) Value { return Value{Kind: KindDate, Date: t} }
func Empty() Value           { return Value{Kind: KindEmpty} }

func Array(items []Value) Value { return Value{Kind: KindArray, Array: items} }
func Array2D(rows [][]Value) Value {
	return Value{Kind: KindArray2, Array2: rows}
}

func Formula(text string) Value { return Value{Kind: KindFormula, FormulaText: text} }

func Ref(sheet string, ref refmodel.Reference) Value {
	return Value{Kind: KindRef, RefSheet: sheet, Ref: ref}
}

func RangeValue(sheet string, ref refmodel.Reference, cached Value) Value {
	return Value{Kind: KindRange, RangeSheet: sheet, RangeRef: ref, Cached: &cached}
}

func Err(kind ErrorKind) Value { return Value{Kind: KindError, ErrorKind: kind} }

func ErrDetailed(kind ErrorKind, detail string) Value {
	return Value{Kind: KindError, ErrorKind: kind, ErrorDetail: detail}
}

// IsError reports whether v is an error value.
func (v Value) IsError() bool { return v.Kind == KindError }

// AsText renders v for the "&" concatenation operator and text
// coercion. Errors render as their label so that Error&"x" still
// produces a visible (if nonsensical) string rather than panicking;
// callers that need propagation should check IsError first.
func (v Value) AsText() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNum:
		return formatNumber(v.Num)
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindDate:
		return v.Date.Format("2006-01-02")
	case KindEmpty:
		return ""
	case KindError:
		return v.ErrorKind.String()
	case KindRange:
		if v.Cached != nil {
			return v.Cached.AsText()
		}
		return ""
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// Unwrap1x1 collapses a 1x1 Array2/Array or a single-cell Range down
// to its scalar, per the C2 coercion rule. A multi-cell Range comes
// back as its cached Array2; anything else is returned unchanged.
func Unwrap1x1(v Value) Value {
	switch v.Kind {
	case KindArray2:
		if len(v.Array2) == 1 && len(v.Array2[0]) == 1 {
			return v.Array2[0][0]
		}
	case KindArray:
		if len(v.Array) == 1 {
			return v.Array[0]
		}
	case KindRange:
		if v.Cached != nil {
			return Unwrap1x1(*v.Cached)
		}
	}
	return v
}

// Flatten returns every scalar contained in v in row-major order:
// a 1-element slice for scalars, the elements of Array/Array2 as-is,
// and the materialized cells of a Range. It is the shared helper
// behind every aggregate function so that Array and Array2 are
// treated identically.
func Flatten(v Value) []Value {
	switch v.Kind {
	case KindArray:
		return v.Array
	case KindArray2:
		out := make([]Value, 0, len(v.Array2)*len(v.Array2[0]))
		for _, row := range v.Array2 {
			out = append(out, row...)
		}
		return out
	case KindRange:
		if v.Cached != nil {
			return Flatten(*v.Cached)
		}
		return nil
	default:
		return []Value{v}
	}
}
