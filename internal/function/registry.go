// Package function implements the function registry: a name ->
// handler table where most functions receive already-evaluated
// arguments, but two ("INDEX", "OFFSET") are special and receive raw,
// unevaluated expressions plus a handle back into the evaluator.
package function

import (
	"fmt"

	"github.com/corvid-sheets/formulacalc/internal/ast"
	"github.com/corvid-sheets/formulacalc/internal/depgraph"
	"github.com/corvid-sheets/formulacalc/internal/refmodel"
	"github.com/corvid-sheets/formulacalc/internal/value"
)

// ArgMode selects how a function receives its arguments.
type ArgMode int

const (
	// ValueArgs functions receive already-evaluated Values.
	ValueArgs ArgMode = iota
	// ExprArgs functions receive raw expressions and a Context so
	// they can build references without first materializing values
	// (INDEX, OFFSET).
	ExprArgs
)

// Context is the seam between the function registry and the
// evaluator. It lets an ExprArgs function evaluate its own
// sub-expressions and inspect/extend the dependency graph without
// the function package importing the evaluator (which would create
// an import cycle, since the evaluator imports this package).
type Context interface {
	// Eval evaluates a sub-expression in the current cell's context.
	Eval(expr *ast.Expr) (value.Value, error)
	// ResolveReference materializes the value(s) at a reference
	// (sheet defaults to the current cell's sheet when empty).
	ResolveReference(sheet string, ref refmodel.Reference) (value.Value, error)
	// CurrentCell returns the cell currently being evaluated.
	CurrentCell() depgraph.CellId
	// Graph exposes the dependency graph for precedent inspection.
	Graph() *depgraph.Graph
	// ResolveSheetName maps a sheet name (or "" for current) to index.
	ResolveSheetName(name string) (int, error)
	// SheetBounds returns a sheet's current extent.
	SheetBounds(sheet int) (rows, cols int)
}

// VolatileSignal is the ordinary error value used to
// surface a newly-resolved OFFSET target to the
// orchestrator, which wires the precedent edges and retries rather
// than unwinding through any coroutine/exception machinery.
type VolatileSignal struct {
	Host   depgraph.CellId
	Target *ast.Expr // a KindReference expr for the resolved target
}

func (e *VolatileSignal) Error() string {
	return fmt.Sprintf("volatile target pending for %s", e.Host)
}

// UnsupportedFunctionError is raised when Lookup (and so CallValue,
// CallExpr, or Mode) is given a name with no registered handler.
type UnsupportedFunctionError struct {
	Name string
}

func (e *UnsupportedFunctionError) Error() string {
	return fmt.Sprintf("unsupported function %q", e.Name)
}

// Func is one registered function.
type Func struct {
	Name    string
	Mode    ArgMode
	MinArgs int
	MaxArgs int // -1 means unbounded (variadic)

	// ErrorAware functions receive their arguments even when one is an
	// error value, and decide for themselves whether to propagate or
	// suppress it (IF, IFERROR). Every other ValueArgs function gets
	// the ordinary "any error argument short-circuits the call"
	// treatment in CallValue.
	ErrorAware bool

	// ValueFn is used when Mode == ValueArgs.
	ValueFn func(args []value.Value) value.Value
	// ExprFn is used when Mode == ExprArgs.
	ExprFn func(ctx Context, args []*ast.Expr) (value.Value, error)
}

// Registry is the name -> Func table.
type Registry struct {
	funcs map[string]*Func
}

// NewDefaultRegistry builds the registry with every supported
// function.
func NewDefaultRegistry() *Registry {
	r := &Registry{funcs: make(map[string]*Func)}
	registerAggregates(r)
	registerLogical(r)
	registerText(r)
	registerDate(r)
	registerLookup(r)
	registerFinancial(r)
	return r
}

func (r *Registry) register(f *Func) {
	r.funcs[f.Name] = f
}

// Lookup returns the function registered under name, or
// UnsupportedFunctionError.
func (r *Registry) Lookup(name string) (*Func, error) {
	f, ok := r.funcs[name]
	if !ok {
		return nil, &UnsupportedFunctionError{Name: name}
	}
	return f, nil
}

// CallValue invokes a ValueArgs function, validating arity first.
func (r *Registry) CallValue(name string, args []value.Value) (value.Value, error) {
	f, err := r.Lookup(name)
	if err != nil {
		return value.Value{}, err
	}
	if f.Mode != ValueArgs {
		return value.Value{}, fmt.Errorf("%s requires expression arguments", name)
	}
	if err := checkArity(f, len(args)); err != nil {
		return value.Err(value.ErrNA), nil
	}
	if !f.ErrorAware {
		for _, a := range args {
			if a.IsError() {
				return a, nil
			}
		}
	}
	return f.ValueFn(args), nil
}

// CallExpr invokes an ExprArgs function.
func (r *Registry) CallExpr(name string, ctx Context, args []*ast.Expr) (value.Value, error) {
	f, err := r.Lookup(name)
	if err != nil {
		return value.Value{}, err
	}
	if f.Mode != ExprArgs {
		return value.Value{}, fmt.Errorf("%s requires value arguments", name)
	}
	if err := checkArity(f, len(args)); err != nil {
		return value.Err(value.ErrNA), nil
	}
	return f.ExprFn(ctx, args)
}

// Mode reports how name expects its arguments, used by the evaluator
// to decide whether to evaluate arguments before dispatch.
func (r *Registry) Mode(name string) (ArgMode, error) {
	f, err := r.Lookup(name)
	if err != nil {
		return 0, err
	}
	return f.Mode, nil
}

func checkArity(f *Func, n int) error {
	if n < f.MinArgs {
		return fmt.Errorf("%s: too few arguments", f.Name)
	}
	if f.MaxArgs >= 0 && n > f.MaxArgs {
		return fmt.Errorf("%s: too many arguments", f.Name)
	}
	return nil
}
