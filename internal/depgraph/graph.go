// Package depgraph builds and schedules the cross-sheet dependency
// graph: an edge P -> D means "D depends on P", so P must
// be calculated before D. Nodes are CellIds; a range precedent is
// represented both as a single range-shaped node and as one sub-node
// per contained cell, so that change detection can see either
// granularity.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/corvid-sheets/formulacalc/internal/ast"
	"github.com/corvid-sheets/formulacalc/internal/refmodel"
)

// CellId identifies a node: a rectangular region within one sheet.
// Equality is defined over the positional fields only — Calculated
// is mutable bookkeeping and intentionally excluded from the key, so
// it lives on the Node rather than the CellId itself.
type CellId struct {
	Sheet  int
	Row    int
	Col    int
	Height int
	Width  int
}

func (c CellId) String() string {
	return fmt.Sprintf("%d.%d.%d", c.Sheet, c.Row, c.Col)
}

// Less orders CellIds by sheet, then row, then column (row-major).
// Order does not use it: insertion order is what breaks
// topological-sort ties.
func (c CellId) Less(o CellId) bool {
	if c.Sheet != o.Sheet {
		return c.Sheet < o.Sheet
	}
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

// Node carries the mutable calculation state for a CellId.
type Node struct {
	ID         CellId
	Formula    string
	Calculated bool
	insertSeq  int
}

// SheetResolver lets the graph builder turn a (possibly empty) sheet
// name plus a textual reference into a clamped CellId without the
// graph package needing to import the sheet store directly.
type SheetResolver interface {
	// ResolveSheet returns the sheet index for name, or the current
	// sheet when name is "".
	ResolveSheet(name string, currentSheet int) (int, error)
	// SheetBounds returns the max rows/cols of a sheet, used to clamp
	// full-column/full-row references.
	SheetBounds(sheet int) (rows, cols int)
}

// CyclicDependencyError reports the nodes involved in a cycle found
// during Order.
type CyclicDependencyError struct {
	Nodes []CellId
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency across %d cells", len(e.Nodes))
}

// Graph is a directed precedent -> dependent graph over CellIds.
type Graph struct {
	nodes       map[CellId]*Node
	precedents  map[CellId]map[CellId]struct{} // dependent -> its precedents
	dependents  map[CellId]map[CellId]struct{} // precedent -> its dependents
	nextSeq     int
	volatile    map[CellId]struct{}
	replanCount map[CellId]int
}

// New constructs an empty dependency graph.
func New() *Graph {
	return &Graph{
		nodes:       make(map[CellId]*Node),
		precedents:  make(map[CellId]map[CellId]struct{}),
		dependents:  make(map[CellId]map[CellId]struct{}),
		volatile:    make(map[CellId]struct{}),
		replanCount: make(map[CellId]int),
	}
}

// getOrCreateNode inserts a node for id when one is absent, returning
// the existing node otherwise.
func (g *Graph) getOrCreateNode(id CellId) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, insertSeq: g.nextSeq}
	g.nextSeq++
	g.nodes[id] = n
	return n
}

// AddPrecedent records that dependent depends on precedent. It is
// idempotent: adding the same edge twice has no additional effect.
func (g *Graph) AddPrecedent(precedent, dependent CellId) {
	g.getOrCreateNode(precedent)
	g.getOrCreateNode(dependent)
	if g.precedents[dependent] == nil {
		g.precedents[dependent] = make(map[CellId]struct{})
	}
	g.precedents[dependent][precedent] = struct{}{}
	if g.dependents[precedent] == nil {
		g.dependents[precedent] = make(map[CellId]struct{})
	}
	g.dependents[precedent][dependent] = struct{}{}
}

// AddFormula walks cell's already-parsed expression tree and
// registers a precedent edge for every Reference it finds — including
// one edge per contained single-cell sub-node for a multi-cell
// reference, so downstream change detection works at either
// granularity. A volatile function call marks cell as volatile (see
// IsVolatile) and makes volatileHere true.
func (g *Graph) AddFormula(cell CellId, expr *ast.Expr, resolver SheetResolver) (volatileHere bool, err error) {
	node := g.getOrCreateNode(cell)
	node.Calculated = false

	var walkErr error
	ast.Walk(expr, func(e *ast.Expr) {
		if walkErr != nil {
			return
		}
		switch e.Kind {
		case ast.KindReference:
			sheetIdx, rerr := resolver.ResolveSheet(e.Sheet, cell.Sheet)
			if rerr != nil {
				walkErr = rerr
				return
			}
			precedentID, rerr := cellIDFromTextualRef(e.TextualRef, sheetIdx, resolver)
			if rerr != nil {
				walkErr = rerr
				return
			}
			g.AddPrecedent(precedentID, cell)
			if precedentID.Height > 1 || precedentID.Width > 1 {
				for r := 0; r < precedentID.Height; r++ {
					for c := 0; c < precedentID.Width; c++ {
						sub := CellId{Sheet: sheetIdx, Row: precedentID.Row + r, Col: precedentID.Col + c, Height: 1, Width: 1}
						g.AddPrecedent(sub, precedentID)
					}
				}
			}
		case ast.KindFunc:
			if ast.IsVolatileFunc(e.FuncName) {
				volatileHere = true
				g.volatile[cell] = struct{}{}
			}
		}
	})
	return volatileHere, walkErr
}

// Order returns a topological ordering of every node, with ties
// broken by insertion order. It returns CyclicDependencyError if the
// graph is not a DAG.
func (g *Graph) Order() ([]CellId, error) {
	indegree := make(map[CellId]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.precedents[id])
	}

	ready := make([]CellId, 0)
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sortByInsertion := func(ids []CellId) {
		sort.Slice(ids, func(i, j int) bool {
			return g.nodes[ids[i]].insertSeq < g.nodes[ids[j]].insertSeq
		})
	}
	sortByInsertion(ready)

	var order []CellId
	for len(ready) > 0 {
		sortByInsertion(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for dep := range g.dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(g.nodes) {
		var remaining []CellId
		for id, deg := range indegree {
			if deg > 0 {
				remaining = append(remaining, id)
			}
		}
		sortByInsertion(remaining)
		return nil, &CyclicDependencyError{Nodes: remaining}
	}
	return order, nil
}

// Layers groups order into batches where every cell in a batch has
// all its precedents already calculated by an earlier batch — i.e.
// the cells within one layer are mutually independent and safe to
// evaluate concurrently.
func Layers(order []CellId, precedents map[CellId]map[CellId]struct{}) [][]CellId {
	layerOf := make(map[CellId]int, len(order))
	var layers [][]CellId
	for _, id := range order {
		maxPrecLayer := -1
		for p := range precedents[id] {
			if l, ok := layerOf[p]; ok && l > maxPrecLayer {
				maxPrecLayer = l
			}
		}
		layer := maxPrecLayer + 1
		layerOf[id] = layer
		for len(layers) <= layer {
			layers = append(layers, nil)
		}
		layers[layer] = append(layers[layer], id)
	}
	return layers
}

// Precedents exposes the dependent->precedents adjacency for layer
// computation and testing.
func (g *Graph) Precedents() map[CellId]map[CellId]struct{} { return g.precedents }

// Nodes returns every CellId currently in the graph, ordered by
// insertion (the same tiebreak Order uses), for callers that want to
// walk the whole graph.
func (g *Graph) Nodes() []CellId {
	ids := make([]CellId, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return g.nodes[ids[i]].insertSeq < g.nodes[ids[j]].insertSeq
	})
	return ids
}

// HasPrecedent reports whether precedent is already a registered
// precedent of dependent, used by the volatile ExprArgs function
// OFFSET to tell a first-time resolution (which must
// signal so the orchestrator can wire the edge and retry) from a
// retry after the edge already exists (which can just read the
// now-calculated target directly).
func (g *Graph) HasPrecedent(precedent, dependent CellId) bool {
	deps, ok := g.precedents[dependent]
	if !ok {
		return false
	}
	_, ok = deps[precedent]
	return ok
}

// IsVolatile reports whether cell's formula contains a volatile call.
func (g *Graph) IsVolatile(cell CellId) bool {
	_, ok := g.volatile[cell]
	return ok
}

// MarkCalculated sets the Calculated flag on cell's node.
func (g *Graph) MarkCalculated(cell CellId, calculated bool) {
	if n, ok := g.nodes[cell]; ok {
		n.Calculated = calculated
	}
}

// ReachableFrom returns every node reachable by following dependent
// edges from start (inclusive), used to re-plan only the subgraph
// affected by a volatile replan.
func (g *Graph) ReachableFrom(start CellId) []CellId {
	seen := map[CellId]struct{}{start: {}}
	queue := []CellId{start}
	var out []CellId
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		for dep := range g.dependents[id] {
			if _, ok := seen[dep]; !ok {
				seen[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}
	return out
}

// RegisterVolatileReplan records a replan attempt for cell and
// reports whether this is the cell's first replan this pass. A
// second replan for the same cell must raise UnstableVolatile
// — the caller is responsible for raising it; this just
// tracks the count.
func (g *Graph) RegisterVolatileReplan(cell CellId) (firstThisPass bool) {
	g.replanCount[cell]++
	return g.replanCount[cell] == 1
}

// ResetReplanCounts clears per-pass replan bookkeeping; call at the
// start of each Calculate pass.
func (g *Graph) ResetReplanCounts() {
	g.replanCount = make(map[CellId]int)
}

func cellIDFromTextualRef(text string, sheetIdx int, resolver SheetResolver) (CellId, error) {
	ref, err := refmodel.Parse(text)
	if err != nil {
		return CellId{}, err
	}
	rows, cols := resolver.SheetBounds(sheetIdx)
	row, col, h, w := ref.Dimensions(rows, cols)
	return CellId{Sheet: sheetIdx, Row: row, Col: col, Height: h, Width: w}, nil
}
