package workbook

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-sheets/formulacalc/internal/apperr"
	"github.com/corvid-sheets/formulacalc/internal/config"
	"github.com/corvid-sheets/formulacalc/internal/parser"
	"github.com/corvid-sheets/formulacalc/internal/sheetmodel"
	"github.com/corvid-sheets/formulacalc/internal/value"
)

func newTestOrchestrator() (*Orchestrator, *sheetmodel.Workbook) {
	wb := sheetmodel.NewWorkbook()
	wb.AddSheet("Sheet1", 100, 100)
	o := New(wb, config.Default(), zerolog.Nop(), nil)
	return o, wb
}

func TestWireAndCalculateSimpleChain(t *testing.T) {
	o, wb := newTestOrchestrator()
	sheet := wb.Sheet(0)
	sheet.Set(0, 0, value.Num(10))
	sheet.SetFormula(1, 0, "A1+1")
	sheet.SetFormula(2, 0, "A2*2")

	require.NoError(t, o.Wire())
	require.NoError(t, o.Calculate(context.Background()))

	assert.Equal(t, value.Num(11), sheet.Get(1, 0))
	assert.Equal(t, value.Num(22), sheet.Get(2, 0))
}

func TestWireAndCalculateSumOverRange(t *testing.T) {
	o, wb := newTestOrchestrator()
	sheet := wb.Sheet(0)
	sheet.Set(0, 0, value.Num(1))
	sheet.Set(1, 0, value.Num(2))
	sheet.Set(2, 0, value.Num(3))
	sheet.SetFormula(3, 0, "SUM(A1:A3)")

	require.NoError(t, o.Wire())
	require.NoError(t, o.Calculate(context.Background()))

	assert.Equal(t, value.Num(6), sheet.Get(3, 0))
}

func TestCalculateDetectsCycle(t *testing.T) {
	o, wb := newTestOrchestrator()
	sheet := wb.Sheet(0)
	sheet.SetFormula(0, 0, "A2")
	sheet.SetFormula(1, 0, "A1")

	require.NoError(t, o.Wire())
	err := o.Calculate(context.Background())
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.FailedPrecondition, appErr.Code)
}

func TestCalculateResolvesVolatileOffsetAcrossPasses(t *testing.T) {
	o, wb := newTestOrchestrator()
	sheet := wb.Sheet(0)
	sheet.Set(1, 0, value.Num(7))                // A2
	sheet.SetFormula(2, 0, "OFFSET(A1,1,0,1,1)") // A3: resolves to A2

	require.NoError(t, o.Wire())
	require.NoError(t, o.Calculate(context.Background()))

	assert.Equal(t, value.Num(7), sheet.Get(2, 0))
}

func TestResolveQueriesCalculatedCell(t *testing.T) {
	o, wb := newTestOrchestrator()
	sheet := wb.Sheet(0)
	sheet.Set(0, 0, value.Num(5))
	sheet.SetFormula(1, 0, "A1*10")
	require.NoError(t, o.Wire())
	require.NoError(t, o.Calculate(context.Background()))

	v, err := o.Resolve("", "A2")
	require.NoError(t, err)
	assert.Equal(t, value.Num(50), v)
}

func TestResolveExprEvaluatesAdHocFormula(t *testing.T) {
	o, wb := newTestOrchestrator()
	sheet := wb.Sheet(0)
	sheet.Set(0, 0, value.Num(5))
	require.NoError(t, o.Wire())
	require.NoError(t, o.Calculate(context.Background()))

	expr, err := parser.Parse("A1*10")
	require.NoError(t, err)
	v, err := o.ResolveExpr("", expr)
	require.NoError(t, err)
	assert.Equal(t, value.Num(50), v)
}

func TestSplitSheetAndRef(t *testing.T) {
	sheet, ref := SplitSheetAndRef("Sheet2!B3")
	assert.Equal(t, "Sheet2", sheet)
	assert.Equal(t, "B3", ref)

	sheet, ref = SplitSheetAndRef("B3")
	assert.Equal(t, "", sheet)
	assert.Equal(t, "B3", ref)
}
