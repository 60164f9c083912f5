package depgraph

import (
	"testing"

	"github.com/corvid-sheets/formulacalc/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedResolver struct {
	rows, cols int
}

func (f fixedResolver) ResolveSheet(name string, current int) (int, error) {
	if name == "" {
		return current, nil
	}
	return 0, nil
}

func (f fixedResolver) SheetBounds(sheet int) (int, int) { return f.rows, f.cols }

func TestGetOrCreateNodeInsertsWhenAbsent(t *testing.T) {
	g := New()
	id := CellId{Sheet: 0, Row: 0, Col: 0, Height: 1, Width: 1}
	assert.Empty(t, g.nodes)
	n := g.getOrCreateNode(id)
	require.NotNil(t, n)
	assert.Len(t, g.nodes, 1)
	// a second call returns the same node rather than creating another
	n2 := g.getOrCreateNode(id)
	assert.Same(t, n, n2)
}

func TestAddFormulaRegistersPrecedents(t *testing.T) {
	g := New()
	resolver := fixedResolver{rows: 100, cols: 100}
	a2 := CellId{Sheet: 0, Row: 1, Col: 0, Height: 1, Width: 1}
	expr, err := parser.Parse("A1+1")
	require.NoError(t, err)
	_, err = g.AddFormula(a2, expr, resolver)
	require.NoError(t, err)

	a1 := CellId{Sheet: 0, Row: 0, Col: 0, Height: 1, Width: 1}
	assert.Contains(t, g.precedents[a2], a1)
}

func TestOrderTopologicalNoBackwardEdges(t *testing.T) {
	g := New()
	resolver := fixedResolver{rows: 100, cols: 100}

	a1 := CellId{Sheet: 0, Row: 0, Col: 0, Height: 1, Width: 1}
	a2 := CellId{Sheet: 0, Row: 1, Col: 0, Height: 1, Width: 1}
	a3 := CellId{Sheet: 0, Row: 2, Col: 0, Height: 1, Width: 1}
	g.getOrCreateNode(a1)

	expr2, _ := parser.Parse("A1+1")
	_, err := g.AddFormula(a2, expr2, resolver)
	require.NoError(t, err)
	expr3, _ := parser.Parse("A2+A1")
	_, err = g.AddFormula(a3, expr3, resolver)
	require.NoError(t, err)

	order, err := g.Order()
	require.NoError(t, err)

	pos := map[CellId]int{}
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos[a1], pos[a2])
	assert.Less(t, pos[a2], pos[a3])
}

func TestOrderDetectsCycle(t *testing.T) {
	g := New()
	resolver := fixedResolver{rows: 100, cols: 100}
	a1 := CellId{Sheet: 0, Row: 0, Col: 0, Height: 1, Width: 1}
	a2 := CellId{Sheet: 0, Row: 1, Col: 0, Height: 1, Width: 1}

	exprA1, _ := parser.Parse("A2")
	_, err := g.AddFormula(a1, exprA1, resolver)
	require.NoError(t, err)
	exprA2, _ := parser.Parse("A1")
	_, err = g.AddFormula(a2, exprA2, resolver)
	require.NoError(t, err)

	_, err = g.Order()
	require.Error(t, err)
	var cyc *CyclicDependencyError
	assert.ErrorAs(t, err, &cyc)
}

func TestAddPrecedentIdempotent(t *testing.T) {
	g := New()
	p := CellId{Sheet: 0, Row: 0, Col: 0, Height: 1, Width: 1}
	d := CellId{Sheet: 0, Row: 1, Col: 0, Height: 1, Width: 1}
	g.AddPrecedent(p, d)
	g.AddPrecedent(p, d)
	assert.Len(t, g.precedents[d], 1)
}

func TestVolatileFunctionTracked(t *testing.T) {
	g := New()
	resolver := fixedResolver{rows: 100, cols: 100}
	cell := CellId{Sheet: 0, Row: 0, Col: 0, Height: 1, Width: 1}
	expr, _ := parser.Parse("OFFSET(B1,0,0)")
	volatile, err := g.AddFormula(cell, expr, resolver)
	require.NoError(t, err)
	assert.True(t, volatile)
	assert.True(t, g.IsVolatile(cell))
}

func TestLayersGroupIndependentCells(t *testing.T) {
	g := New()
	resolver := fixedResolver{rows: 100, cols: 100}
	a1 := CellId{Sheet: 0, Row: 0, Col: 0, Height: 1, Width: 1}
	a2 := CellId{Sheet: 0, Row: 1, Col: 0, Height: 1, Width: 1}
	a3 := CellId{Sheet: 0, Row: 2, Col: 0, Height: 1, Width: 1}
	g.getOrCreateNode(a1)

	expr2, _ := parser.Parse("A1+1")
	g.AddFormula(a2, expr2, resolver)
	expr3, _ := parser.Parse("A1+2")
	g.AddFormula(a3, expr3, resolver)

	order, err := g.Order()
	require.NoError(t, err)
	layers := Layers(order, g.Precedents())
	require.Len(t, layers, 2)
	assert.Len(t, layers[1], 2) // A2 and A3 are independent siblings
}
