// Package ast defines the expression tree produced by the parser.
// It is a closed sum of node kinds rather than an open class
// hierarchy: downstream consumers (the dependency graph walker and
// the evaluator) switch on Kind instead of dispatching through
// per-node methods.
package ast

import "github.com/corvid-sheets/formulacalc/internal/value"

// Kind discriminates an Expr.
type Kind int

const (
	KindLiteral Kind = iota
	KindReference
	KindInfix
	KindPrefix
	KindPostfix
	KindFunc
	KindArray
	KindError
)

// InfixOp mirrors value.BinaryOp but is kept distinct so the parser
// package doesn't need to import the value package's arithmetic
// internals just to build a tree node.
type InfixOp = value.BinaryOp

// PrefixOp is a unary prefix operator: "+" or "-".
type PrefixOp int

const (
	PrefixPlus PrefixOp = iota
	PrefixMinus
)

// Expr is an immutable expression tree node, built once at parse
// time and never mutated afterward.
type Expr struct {
	Kind Kind
	Pos  int // byte offset of the token that started this node, for ParseError reporting

	// KindLiteral
	Literal value.Value

	// KindReference
	Sheet      string // "" means "current cell's sheet"
	TextualRef string

	// KindInfix
	Op    InfixOp
	Left  *Expr
	Right *Expr

	// KindPrefix / KindPostfix
	PreOp   PrefixOp
	Operand *Expr

	// KindFunc
	FuncName string
	Args     []*Expr

	// KindArray: Rows is non-nil (even if len==1) when ";" row
	// separators were present in the literal; otherwise it is a flat
	// 1-D list and Rows is nil.
	Rows [][]*Expr
	Flat []*Expr

	// KindError
	ErrorKind value.ErrorKind
}

// Literal builds a literal-value node.
func Literal(v value.Value, pos int) *Expr {
	return &Expr{Kind: KindLiteral, Literal: v, Pos: pos}
}

// Reference builds a reference node.
func Reference(sheet, textual string, pos int) *Expr {
	return &Expr{Kind: KindReference, Sheet: sheet, TextualRef: textual, Pos: pos}
}

// Infix builds a binary-operator node.
func Infix(op InfixOp, left, right *Expr, pos int) *Expr {
	return &Expr{Kind: KindInfix, Op: op, Left: left, Right: right, Pos: pos}
}

// Prefix builds a unary-prefix-operator node.
func Prefix(op PrefixOp, operand *Expr, pos int) *Expr {
	return &Expr{Kind: KindPrefix, PreOp: op, Operand: operand, Pos: pos}
}

// Postfix builds a unary-postfix-operator node ("%" only.4).
func Postfix(operand *Expr, pos int) *Expr {
	return &Expr{Kind: KindPostfix, Operand: operand, Pos: pos}
}

// Func builds a function-call node.
func Func(name string, args []*Expr, pos int) *Expr {
	return &Expr{Kind: KindFunc, FuncName: name, Args: args, Pos: pos}
}

// FlatArray builds a 1-D array-literal node (no ";" row separators).
func FlatArray(items []*Expr, pos int) *Expr {
	return &Expr{Kind: KindArray, Flat: items, Pos: pos}
}

// RowArray builds a 2-D array-literal node (";"-separated rows).
func RowArray(rows [][]*Expr, pos int) *Expr {
	return &Expr{Kind: KindArray, Rows: rows, Pos: pos}
}

// ErrorLiteral builds a node representing a literal error token such
// as #DIV/0! appearing directly in formula text.
func ErrorLiteral(kind value.ErrorKind, pos int) *Expr {
	return &Expr{Kind: KindError, ErrorKind: kind, Pos: pos}
}

// Walk calls fn for e and every descendant, depth-first. It is the
// shared traversal used by both the dependency-graph builder (to
// collect References and detect volatile function calls) and any
// future formula-rewriting pass.
func Walk(e *Expr, fn func(*Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch e.Kind {
	case KindInfix:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case KindPrefix, KindPostfix:
		Walk(e.Operand, fn)
	case KindFunc:
		for _, a := range e.Args {
			Walk(a, fn)
		}
	case KindArray:
		if e.Rows != nil {
			for _, row := range e.Rows {
				for _, item := range row {
					Walk(item, fn)
				}
			}
		} else {
			for _, item := range e.Flat {
				Walk(item, fn)
			}
		}
	}
}

// ToString renders e back to formula text, with every infix node
// wrapped in parentheses. It does not preserve original whitespace or
// "$" markers.
func ToString(e *Expr) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindLiteral:
		return literalString(e.Literal)
	case KindReference:
		if e.Sheet != "" {
			return e.Sheet + "!" + e.TextualRef
		}
		return e.TextualRef
	case KindInfix:
		return "(" + ToString(e.Left) + infixSymbol(e.Op) + ToString(e.Right) + ")"
	case KindPrefix:
		sym := "-"
		if e.PreOp == PrefixPlus {
			sym = "+"
		}
		return sym + ToString(e.Operand)
	case KindPostfix:
		return ToString(e.Operand) + "%"
	case KindFunc:
		s := e.FuncName + "("
		for i, a := range e.Args {
			if i > 0 {
				s += ","
			}
			s += ToString(a)
		}
		return s + ")"
	case KindArray:
		return arrayString(e)
	case KindError:
		return e.ErrorKind.String()
	default:
		return ""
	}
}

func arrayString(e *Expr) string {
	s := "{"
	if e.Rows != nil {
		for i, row := range e.Rows {
			if i > 0 {
				s += ";"
			}
			for j, item := range row {
				if j > 0 {
					s += ","
				}
				s += ToString(item)
			}
		}
	} else {
		for i, item := range e.Flat {
			if i > 0 {
				s += ","
			}
			s += ToString(item)
		}
	}
	return s + "}"
}

func literalString(v value.Value) string {
	switch v.Kind {
	case value.KindText:
		return "\"" + v.Text + "\""
	case value.KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	default:
		return v.AsText()
	}
}

func infixSymbol(op InfixOp) string {
	switch op {
	case value.OpAdd:
		return "+"
	case value.OpSub:
		return "-"
	case value.OpMul:
		return "*"
	case value.OpDiv:
		return "/"
	case value.OpPow:
		return "^"
	case value.OpConcat:
		return "&"
	case value.OpEq:
		return "="
	case value.OpNeq:
		return "<>"
	case value.OpLt:
		return "<"
	case value.OpLte:
		return "<="
	case value.OpGt:
		return ">"
	case value.OpGte:
		return ">="
	default:
		return "?"
	}
}

// IsVolatileFunc reports whether name is one of the functions spec
// §4.5 requires be re-evaluated on every pass and tracked on the
// workbook's offsets worklist.
func IsVolatileFunc(name string) bool {
	switch name {
	case "OFFSET", "INDIRECT":
		return true
	default:
		return false
	}
}
