package function

import (
	"github.com/corvid-sheets/formulacalc/internal/ast"
	"github.com/corvid-sheets/formulacalc/internal/depgraph"
	"github.com/corvid-sheets/formulacalc/internal/refmodel"
	"github.com/corvid-sheets/formulacalc/internal/value"
)

func registerLookup(r *Registry) {
	r.register(&Func{Name: "MATCH", Mode: ValueArgs, MinArgs: 2, MaxArgs: 3, ValueFn: matchFn})
	r.register(&Func{Name: "INDEX", Mode: ExprArgs, MinArgs: 2, MaxArgs: 3, ExprFn: indexFn})
	r.register(&Func{Name: "OFFSET", Mode: ExprArgs, MinArgs: 3, MaxArgs: 5, ExprFn: offsetFn})
}

// matchFn implements MATCH(value, range, [matchType]). matchType 1
// (default) assumes ascending order and returns the last position
// whose value <= lookup; -1 assumes descending and returns the last
// position whose value >= lookup; 0 requires exact match.
func matchFn(args []value.Value) value.Value {
	needle := value.Unwrap1x1(args[0])
	hay := value.Flatten(args[1])
	matchType := 1.0
	if len(args) == 3 {
		mt, err := value.ToNumber(args[2])
		if err != nil {
			return value.Err(value.ErrValue)
		}
		matchType = mt
	}

	switch {
	case matchType == 0:
		for i, cand := range hay {
			if cmp, ok := value.Order(needle, cand); ok && cmp == 0 {
				return value.Num(float64(i + 1))
			}
		}
		return value.Err(value.ErrNA)
	case matchType > 0:
		best := -1
		for i, cand := range hay {
			cmp, ok := value.Order(cand, needle)
			if !ok || cmp > 0 {
				break
			}
			best = i
		}
		if best < 0 {
			return value.Err(value.ErrNA)
		}
		return value.Num(float64(best + 1))
	default:
		best := -1
		for i, cand := range hay {
			cmp, ok := value.Order(cand, needle)
			if !ok || cmp < 0 {
				break
			}
			best = i
		}
		if best < 0 {
			return value.Err(value.ErrNA)
		}
		return value.Num(float64(best + 1))
	}
}

// indexFn implements INDEX(range, row, [col]). It receives the raw
// range expression (ExprArgs) rather than a pre-flattened Value so it
// can preserve the range's 2-D shape for row/column indexing instead
// of only ever seeing a flat list.
func indexFn(ctx Context, args []*ast.Expr) (value.Value, error) {
	rangeVal, err := ctx.Eval(args[0])
	if err != nil {
		return value.Value{}, err
	}
	if rangeVal.IsError() {
		return rangeVal, nil
	}
	rowArg, err := ctx.Eval(args[1])
	if err != nil {
		return value.Value{}, err
	}
	rowNum, cerr := value.ToNumber(rowArg)
	if cerr != nil {
		return value.Err(value.ErrValue), nil
	}
	colNum := 0.0
	if len(args) == 3 {
		colArg, err := ctx.Eval(args[2])
		if err != nil {
			return value.Value{}, err
		}
		colNum, cerr = value.ToNumber(colArg)
		if cerr != nil {
			return value.Err(value.ErrValue), nil
		}
	}

	rows := materializeRows(rangeVal)
	if len(rows) == 0 {
		return value.Err(value.ErrRef), nil
	}
	r, c := int(rowNum), int(colNum)
	if r == 0 && c == 0 {
		if len(rows) == 1 && len(rows[0]) == 1 {
			return rows[0][0], nil
		}
		return value.Err(value.ErrValue), nil
	}
	if r == 0 {
		// whole column: only valid when the column index alone disambiguates
		if c < 1 || c > len(rows[0]) {
			return value.Err(value.ErrRef), nil
		}
		var col []value.Value
		for _, row := range rows {
			col = append(col, row[c-1])
		}
		return value.Array(col), nil
	}
	if c == 0 {
		if r < 1 || r > len(rows) {
			return value.Err(value.ErrRef), nil
		}
		return value.Array(rows[r-1]), nil
	}
	if r < 1 || r > len(rows) || c < 1 || c > len(rows[0]) {
		return value.Err(value.ErrRef), nil
	}
	return rows[r-1][c-1], nil
}

// materializeRows normalizes any range-shaped value into rows of
// scalars so INDEX can index by (row, col).
func materializeRows(v value.Value) [][]value.Value {
	switch v.Kind {
	case value.KindArray2:
		return v.Array2
	case value.KindArray:
		return [][]value.Value{v.Array}
	case value.KindRange:
		if v.Cached != nil {
			return materializeRows(*v.Cached)
		}
		return nil
	default:
		return [][]value.Value{{v}}
	}
}

// offsetFn implements OFFSET(ref, rows, cols, [height], [width]). The
// first time a host cell resolves to a given shifted target, the
// target isn't wired as a precedent yet, so it hands back a
// VolatileSignal for the orchestrator to wire and retry rather than reaching into the graph
// itself. Once wired, later evaluations of the same host/target pair
// read the target directly like any other reference.
func offsetFn(ctx Context, args []*ast.Expr) (value.Value, error) {
	base := args[0]
	if base.Kind != ast.KindReference {
		return value.Err(value.ErrRef), nil
	}
	sheetIdx, err := ctx.ResolveSheetName(base.Sheet)
	if err != nil {
		return value.Err(value.ErrRef), nil
	}
	baseRef, err := refmodel.Parse(base.TextualRef)
	if err != nil {
		return value.Err(value.ErrRef), nil
	}

	dRowVal, err := ctx.Eval(args[1])
	if err != nil {
		return value.Value{}, err
	}
	dColVal, err := ctx.Eval(args[2])
	if err != nil {
		return value.Value{}, err
	}
	dRow, e1 := value.ToNumber(dRowVal)
	dCol, e2 := value.ToNumber(dColVal)
	if e1 != nil || e2 != nil {
		return value.Err(value.ErrValue), nil
	}

	shifted := baseRef.Offset(int(dRow), int(dCol))

	if len(args) >= 4 {
		heightVal, err := ctx.Eval(args[3])
		if err != nil {
			return value.Value{}, err
		}
		h, herr := value.ToNumber(heightVal)
		if herr != nil || h < 1 {
			return value.Err(value.ErrValue), nil
		}
		shifted.End.Row = shifted.Start.Row + int(h) - 1
	}
	if len(args) == 5 {
		widthVal, err := ctx.Eval(args[4])
		if err != nil {
			return value.Value{}, err
		}
		w, werr := value.ToNumber(widthVal)
		if werr != nil || w < 1 {
			return value.Err(value.ErrValue), nil
		}
		shifted.End.Col = shifted.Start.Col + int(w) - 1
	}

	rows, cols := ctx.SheetBounds(sheetIdx)
	if shifted.Start.Row < 0 || shifted.Start.Col < 0 || shifted.Start.Row >= rows || shifted.Start.Col >= cols {
		return value.Err(value.ErrRef), nil
	}

	shiftedRow, shiftedCol, shiftedHeight, shiftedWidth := shifted.Dimensions(rows, cols)
	targetID := depgraph.CellId{Sheet: sheetIdx, Row: shiftedRow, Col: shiftedCol, Height: shiftedHeight, Width: shiftedWidth}
	host := ctx.CurrentCell()
	if !ctx.Graph().HasPrecedent(targetID, host) {
		// First time this host has resolved to this target: signal so
		// the orchestrator can wire the precedent edge and retry once
		// the target is guaranteed to calculate before host.
		target := ast.Reference(base.Sheet, shifted.String(), base.Pos)
		return value.Value{}, &VolatileSignal{Host: host, Target: target}
	}
	return ctx.ResolveReference(base.Sheet, shifted)
}
