// Package workbook implements the calculation orchestrator: the
// Load/Wire/Calculate/Query phases, driving the dependency graph, the
// evaluator, and the volatile replan loop, with structured logging and
// progress pulses threaded through explicitly rather than read off a
// package-level global.
package workbook

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/corvid-sheets/formulacalc/internal/apperr"
	"github.com/corvid-sheets/formulacalc/internal/ast"
	"github.com/corvid-sheets/formulacalc/internal/config"
	"github.com/corvid-sheets/formulacalc/internal/depgraph"
	"github.com/corvid-sheets/formulacalc/internal/eval"
	"github.com/corvid-sheets/formulacalc/internal/function"
	"github.com/corvid-sheets/formulacalc/internal/parser"
	"github.com/corvid-sheets/formulacalc/internal/progress"
	"github.com/corvid-sheets/formulacalc/internal/refmodel"
	"github.com/corvid-sheets/formulacalc/internal/sheetmodel"
	"github.com/corvid-sheets/formulacalc/internal/value"
)

// Orchestrator owns one workbook's calculation lifecycle: Wire builds
// the dependency graph from every sheet's formula cells, Calculate
// evaluates them in topological order (parallelizing within a layer),
// and Query answers point/range reads against the calculated result.
type Orchestrator struct {
	wb        *sheetmodel.Workbook
	registry  *function.Registry
	graph     *depgraph.Graph
	evaluator *eval.Evaluator
	cfg       config.Config
	logger    zerolog.Logger
	reporter  progress.Reporter
}

// New constructs an Orchestrator around an already-loaded workbook.
func New(wb *sheetmodel.Workbook, cfg config.Config, logger zerolog.Logger, reporter progress.Reporter) *Orchestrator {
	registry := function.NewDefaultRegistry()
	graph := depgraph.New()
	if reporter == nil {
		reporter = progress.NoopReporter{}
	}
	return &Orchestrator{
		wb:        wb,
		registry:  registry,
		graph:     graph,
		evaluator: eval.New(wb, registry, graph),
		cfg:       cfg,
		logger:    logger,
		reporter:  reporter,
	}
}

// Wire parses every formula cell across every sheet and registers its
// precedent edges in the dependency graph.
func (o *Orchestrator) Wire() error {
	o.logger.Debug().Msg("wire: begin")
	nodeCount := 0
	for sheetIdx, sheet := range o.wb.Sheets {
		for _, key := range sheet.FormulaCells() {
			text, _ := sheet.Formula(key.Row, key.Col)
			expr, err := parser.Parse(text)
			if err != nil {
				return apperr.Wrap(apperr.InvalidArgument, "parse formula", err)
			}
			cell := depgraph.CellId{Sheet: sheetIdx, Row: key.Row, Col: key.Col, Height: 1, Width: 1}
			if _, err := o.graph.AddFormula(cell, expr, o.wb); err != nil {
				return apperr.Wrap(apperr.InvalidArgument, "wire formula", err)
			}
			nodeCount++
			if nodeCount > o.cfg.MaxGraphNodes {
				return apperr.New(apperr.OutOfRange, "workbook exceeds configured max graph nodes")
			}
		}
	}
	o.logger.Debug().Int("formula_cells", nodeCount).Msg("wire: complete")
	return nil
}

// Calculate evaluates every formula cell in topological order,
// parallelizing independent cells within a layer with errgroup, and
// serializing a layer's evaluation when it contains a volatile
// function. Volatile OFFSET targets that resolve to a
// not-yet-wired precedent trigger a replan: the precedent edge is
// wired and the next pass recomputes only the subgraph reachable from
// the replanned host (via Graph.ReachableFrom), not the whole
// workbook, since nothing outside that subgraph could have changed. A
// second replan for the same cell in one Calculate call is
// UnstableVolatile.
func (o *Orchestrator) Calculate(ctx context.Context) error {
	passID := uuid.NewString()
	logger := o.logger.With().Str("pass_id", passID).Logger()
	o.graph.ResetReplanCounts()

	var only map[depgraph.CellId]struct{} // nil: recompute every cell (first pass)

	for pass := 0; pass < o.cfg.MaxCalculationPasses; pass++ {
		order, err := o.graph.Order()
		if err != nil {
			return apperr.Wrap(apperr.FailedPrecondition, "dependency order", err)
		}
		if only != nil {
			order = restrictOrder(order, only)
		}
		layers := depgraph.Layers(order, o.graph.Precedents())
		logger.Debug().Int("pass", pass).Int("layers", len(layers)).Int("cells", len(order)).Msg("calculate: begin pass")

		replannedHosts, err := o.calculateLayers(ctx, layers, logger)
		if err != nil {
			return err
		}
		if len(replannedHosts) == 0 {
			logger.Debug().Int("pass", pass).Msg("calculate: stable")
			return nil
		}

		only = make(map[depgraph.CellId]struct{})
		for _, host := range replannedHosts {
			for _, id := range o.graph.ReachableFrom(host) {
				only[id] = struct{}{}
			}
		}
	}
	return apperr.New(apperr.FailedPrecondition, "calculation did not stabilize within configured max passes")
}

// restrictOrder filters order down to the cells in only, preserving
// relative order (a subsequence of a topological order is itself a
// valid topological order over the retained nodes).
func restrictOrder(order []depgraph.CellId, only map[depgraph.CellId]struct{}) []depgraph.CellId {
	out := make([]depgraph.CellId, 0, len(only))
	for _, id := range order {
		if _, ok := only[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// calculateLayers evaluates every layer once, returning the cells
// whose evaluation triggered a volatile replan (meaning the caller
// should rebuild the topological order, restricted to their reachable
// subgraph, and run another pass).
func (o *Orchestrator) calculateLayers(ctx context.Context, layers [][]depgraph.CellId, logger zerolog.Logger) (replannedHosts []depgraph.CellId, err error) {
	total := 0
	for _, layer := range layers {
		total += len(layer)
	}
	done := 0

	for _, layer := range layers {
		hasVolatile := false
		for _, cell := range layer {
			if o.graph.IsVolatile(cell) {
				hasVolatile = true
				break
			}
		}

		if hasVolatile {
			// Volatile cells in this layer are evaluated serially so a
			// replan can be wired and retried before any sibling in
			// the same layer observes a half-wired graph).
			for _, cell := range layer {
				r, err := o.calculateCell(cell, logger)
				if err != nil {
					return nil, err
				}
				if r {
					replannedHosts = append(replannedHosts, cell)
				}
				done++
				o.reporter.Pulse("calculate", done, total)
			}
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		results := make([]bool, len(layer))
		for i, cell := range layer {
			i, cell := i, cell
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				r, err := o.calculateCell(cell, logger)
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for i, r := range results {
			if r {
				replannedHosts = append(replannedHosts, layer[i])
			}
		}
		done += len(layer)
		o.reporter.Pulse("calculate", done, total)
	}
	return replannedHosts, nil
}

// calculateCell evaluates one formula cell and stores the result. A
// function.VolatileSignal is caught here: the new precedent edge is
// wired and replanned is true, so Calculate evaluates the cell again
// in its next pass; a second signal for the same cell within one
// Calculate call is UnstableVolatile.
func (o *Orchestrator) calculateCell(cell depgraph.CellId, logger zerolog.Logger) (replanned bool, err error) {
	sheet := o.wb.Sheet(cell.Sheet)
	text, ok := sheet.Formula(cell.Row, cell.Col)
	if !ok {
		o.graph.MarkCalculated(cell, true)
		return false, nil
	}
	expr, err := parser.Parse(text)
	if err != nil {
		return false, apperr.Wrap(apperr.InvalidArgument, "parse formula", err)
	}

	result, evalErr := o.evaluator.EvaluateCell(cell, expr)
	if evalErr != nil {
		signal, ok := evalErr.(*function.VolatileSignal)
		if !ok {
			return false, apperr.Wrap(apperr.Internal, "evaluate cell", evalErr)
		}
		first := o.graph.RegisterVolatileReplan(cell)
		if !first {
			return false, apperr.New(apperr.FailedPrecondition, "unstable volatile target for "+cell.String())
		}
		logger.Debug().Str("cell", cell.String()).Msg("calculate: volatile replan")
		o.wireVolatileTarget(cell, signal)
		return true, nil
	}

	sheet.Set(cell.Row, cell.Col, result)
	o.graph.MarkCalculated(cell, true)
	return false, nil
}

// wireVolatileTarget registers the precedent edge a VolatileSignal
// resolved, so the next pass's topological order accounts for it.
func (o *Orchestrator) wireVolatileTarget(host depgraph.CellId, signal *function.VolatileSignal) {
	sheetIdx, err := o.wb.ResolveSheet(signal.Target.Sheet, host.Sheet)
	if err != nil {
		return
	}
	ref, err := refmodel.Parse(signal.Target.TextualRef)
	if err != nil {
		return
	}
	rows, cols := o.wb.SheetBounds(sheetIdx)
	row, col, h, w := ref.Dimensions(rows, cols)
	target := depgraph.CellId{Sheet: sheetIdx, Row: row, Col: col, Height: h, Width: w}
	o.graph.AddPrecedent(target, host)
}

// Resolve evaluates a standalone textual reference against the
// already-calculated workbook.
func (o *Orchestrator) Resolve(sheetName, textualRef string) (value.Value, error) {
	sheetIdx, err := o.wb.ResolveSheet(sheetName, 0)
	if err != nil {
		return value.Value{}, apperr.Wrap(apperr.NotFound, "resolve sheet", err)
	}
	ref, err := refmodel.Parse(textualRef)
	if err != nil {
		return value.Value{}, apperr.Wrap(apperr.InvalidArgument, "parse reference", err)
	}
	sheet := o.wb.Sheet(sheetIdx)
	row, col, h, w := ref.Dimensions(sheet.MaxRows, sheet.MaxCols)
	if h == 1 && w == 1 {
		return sheet.Get(row, col), nil
	}
	rows := make([][]value.Value, h)
	for r := 0; r < h; r++ {
		rows[r] = make([]value.Value, w)
		for c := 0; c < w; c++ {
			rows[r][c] = sheet.Get(row+r, col+c)
		}
	}
	return value.Array2D(rows), nil
}

// ResolveExpr evaluates an already-parsed expression against the
// calculated workbook, for query-phase callers that already have an
// ast.Expr (e.g. a host re-evaluating an ad-hoc formula string via
// parser.Parse) rather than a bare textual reference.
func (o *Orchestrator) ResolveExpr(sheetName string, expr *ast.Expr) (value.Value, error) {
	sheetIdx, err := o.wb.ResolveSheet(sheetName, 0)
	if err != nil {
		return value.Value{}, apperr.Wrap(apperr.NotFound, "resolve sheet", err)
	}
	result, err := o.evaluator.EvaluateCell(depgraph.CellId{Sheet: sheetIdx}, expr)
	if err != nil {
		return value.Value{}, apperr.Wrap(apperr.Internal, "evaluate expression", err)
	}
	return result, nil
}

// Graph exposes the wired dependency graph, e.g. for the CLI's `deps`/
// `order` subcommands.
func (o *Orchestrator) Graph() *depgraph.Graph { return o.graph }

// Workbook exposes the underlying sheet store, e.g. for the CLI's
// `sheets` subcommand.
func (o *Orchestrator) Workbook() *sheetmodel.Workbook { return o.wb }

// SplitSheetAndRef splits a "Sheet1!A1" style reference into its
// sheet-name and textual-reference parts, used by the CLI to parse
// user-supplied reference arguments before calling Resolve.
func SplitSheetAndRef(raw string) (sheet, ref string) {
	if bang := strings.LastIndex(raw, "!"); bang >= 0 {
		return raw[:bang], raw[bang+1:]
	}
	return "", raw
}
