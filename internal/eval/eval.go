// Package eval implements the expression evaluator: the single
// switch-dispatched visitor over ast.Expr that resolves references
// against a workbook, applies the function registry, and propagates
// errors and broadcasting per the value package's rules.
package eval

import (
	"fmt"

	"github.com/corvid-sheets/formulacalc/internal/ast"
	"github.com/corvid-sheets/formulacalc/internal/depgraph"
	"github.com/corvid-sheets/formulacalc/internal/function"
	"github.com/corvid-sheets/formulacalc/internal/refmodel"
	"github.com/corvid-sheets/formulacalc/internal/sheetmodel"
	"github.com/corvid-sheets/formulacalc/internal/value"
)

// Evaluator walks one formula's expression tree at a time. It
// implements function.Context so ExprArgs functions (INDEX, OFFSET)
// can recurse back into it without this package or the function
// package importing each other's concrete types.
type Evaluator struct {
	wb       *sheetmodel.Workbook
	registry *function.Registry
	graph    *depgraph.Graph
	current  depgraph.CellId
}

// New constructs an Evaluator bound to a workbook, function registry,
// and dependency graph.
func New(wb *sheetmodel.Workbook, registry *function.Registry, graph *depgraph.Graph) *Evaluator {
	return &Evaluator{wb: wb, registry: registry, graph: graph}
}

// EvaluateCell evaluates expr as the formula installed at cell,
// recording cell as the "current" cell so relative references and
// ExprArgs functions (OFFSET) resolve against the right sheet.
func (ev *Evaluator) EvaluateCell(cell depgraph.CellId, expr *ast.Expr) (value.Value, error) {
	ev.current = cell
	return ev.Evaluate(expr)
}

// Evaluate dispatches on expr.Kind. The returned error carries
// function.VolatileSignal or a registry/context fault raised inside a
// function call. An unresolvable sheet name or malformed reference
// text evaluates to #REF!, and ordinary spreadsheet errors (#DIV/0!,
// #VALUE!, ...) are likewise returned as a normal Value with
// IsError() true, not as a Go error.
func (ev *Evaluator) Evaluate(expr *ast.Expr) (value.Value, error) {
	switch expr.Kind {
	case ast.KindLiteral:
		return expr.Literal, nil
	case ast.KindError:
		return value.Err(expr.ErrorKind), nil
	case ast.KindReference:
		return ev.evalReference(expr)
	case ast.KindInfix:
		return ev.evalInfix(expr)
	case ast.KindPrefix:
		return ev.evalPrefix(expr)
	case ast.KindPostfix:
		operand, err := ev.Evaluate(expr.Operand)
		if err != nil {
			return value.Value{}, err
		}
		return value.Percent(operand), nil
	case ast.KindFunc:
		return ev.evalFunc(expr)
	case ast.KindArray:
		return ev.evalArray(expr)
	default:
		return value.Err(value.ErrValue), nil
	}
}

func (ev *Evaluator) evalInfix(expr *ast.Expr) (value.Value, error) {
	left, err := ev.Evaluate(expr.Left)
	if err != nil {
		return value.Value{}, err
	}
	right, err := ev.Evaluate(expr.Right)
	if err != nil {
		return value.Value{}, err
	}
	return value.Binary(expr.Op, left, right), nil
}

func (ev *Evaluator) evalPrefix(expr *ast.Expr) (value.Value, error) {
	operand, err := ev.Evaluate(expr.Operand)
	if err != nil {
		return value.Value{}, err
	}
	if expr.PreOp == ast.PrefixMinus {
		return value.Negate(operand), nil
	}
	return value.UnaryPlus(operand), nil
}

func (ev *Evaluator) evalReference(expr *ast.Expr) (value.Value, error) {
	sheetIdx, err := ev.ResolveSheetName(expr.Sheet)
	if err != nil {
		return value.Err(value.ErrRef), nil
	}
	ref, err := refmodel.Parse(expr.TextualRef)
	if err != nil {
		return value.Err(value.ErrRef), nil
	}
	return ev.materializeReference(sheetIdx, ref), nil
}

// materializeReference reads cell storage directly: by the time a
// dependent's formula runs, topological order already guarantees
// every precedent cell holds its final, calculated Value.
func (ev *Evaluator) materializeReference(sheetIdx int, ref refmodel.Reference) value.Value {
	sheet := ev.wb.Sheet(sheetIdx)
	if sheet == nil {
		return value.Err(value.ErrRef)
	}
	row, col, h, w := ref.Dimensions(sheet.MaxRows, sheet.MaxCols)
	if h == 1 && w == 1 {
		return sheet.Get(row, col)
	}
	rows := make([][]value.Value, h)
	for r := 0; r < h; r++ {
		rows[r] = make([]value.Value, w)
		for c := 0; c < w; c++ {
			rows[r][c] = sheet.Get(row+r, col+c)
		}
	}
	return value.RangeValue(sheet.Name, ref, value.Array2D(rows))
}

func (ev *Evaluator) evalFunc(expr *ast.Expr) (value.Value, error) {
	mode, err := ev.registry.Mode(expr.FuncName)
	if err != nil {
		return value.Err(value.ErrName), nil
	}
	switch mode {
	case function.ExprArgs:
		result, err := ev.registry.CallExpr(expr.FuncName, ev, expr.Args)
		if err != nil {
			return value.Value{}, err
		}
		return result, nil
	default:
		args := make([]value.Value, len(expr.Args))
		for i, a := range expr.Args {
			v, err := ev.Evaluate(a)
			if err != nil {
				return value.Value{}, err
			}
			args[i] = v
		}
		result, err := ev.registry.CallValue(expr.FuncName, args)
		if err != nil {
			return value.Value{}, err
		}
		return result, nil
	}
}

func (ev *Evaluator) evalArray(expr *ast.Expr) (value.Value, error) {
	if expr.Rows != nil {
		rows := make([][]value.Value, len(expr.Rows))
		width := -1
		for r, row := range expr.Rows {
			cells := make([]value.Value, len(row))
			for c, item := range row {
				v, err := ev.Evaluate(item)
				if err != nil {
					return value.Value{}, err
				}
				cells[c] = v
			}
			if width == -1 {
				width = len(cells)
			} else if len(cells) != width {
				return value.Err(value.ErrValue), nil
			}
			rows[r] = cells
		}
		return value.Array2D(rows), nil
	}
	items := make([]value.Value, len(expr.Flat))
	for i, item := range expr.Flat {
		v, err := ev.Evaluate(item)
		if err != nil {
			return value.Value{}, err
		}
		items[i] = v
	}
	return value.Array(items), nil
}

// --- function.Context implementation ---

// Eval implements function.Context.
func (ev *Evaluator) Eval(expr *ast.Expr) (value.Value, error) { return ev.Evaluate(expr) }

// ResolveReference implements function.Context.
func (ev *Evaluator) ResolveReference(sheet string, ref refmodel.Reference) (value.Value, error) {
	sheetIdx, err := ev.ResolveSheetName(sheet)
	if err != nil {
		return value.Value{}, err
	}
	return ev.materializeReference(sheetIdx, ref), nil
}

// CurrentCell implements function.Context.
func (ev *Evaluator) CurrentCell() depgraph.CellId { return ev.current }

// Graph implements function.Context.
func (ev *Evaluator) Graph() *depgraph.Graph { return ev.graph }

// ResolveSheetName implements function.Context.
func (ev *Evaluator) ResolveSheetName(name string) (int, error) {
	idx, err := ev.wb.ResolveSheet(name, ev.current.Sheet)
	if err != nil {
		return 0, fmt.Errorf("resolve sheet %q: %w", name, err)
	}
	return idx, nil
}

// SheetBounds implements function.Context.
func (ev *Evaluator) SheetBounds(sheet int) (rows, cols int) {
	return ev.wb.SheetBounds(sheet)
}
