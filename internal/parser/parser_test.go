package parser

import (
	"testing"

	"github.com/corvid-sheets/formulacalc/internal/ast"
	"github.com/corvid-sheets/formulacalc/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArithmeticPrecedence(t *testing.T) {
	expr, err := Parse("1+2*3")
	require.NoError(t, err)
	require.Equal(t, ast.KindInfix, expr.Kind)
	assert.Equal(t, value.OpAdd, expr.Op)
	assert.Equal(t, ast.KindInfix, expr.Right.Kind)
	assert.Equal(t, value.OpMul, expr.Right.Op)
}

func TestParsePowerIsRightAssociative(t *testing.T) {
	expr, err := Parse("2^3^2")
	require.NoError(t, err)
	require.Equal(t, value.OpPow, expr.Op)
	assert.Equal(t, ast.KindLiteral, expr.Left.Kind)
	assert.Equal(t, value.OpPow, expr.Right.Op)
}

func TestParseUnaryMinusBindsLooserThanPercent(t *testing.T) {
	expr, err := Parse("-5%")
	require.NoError(t, err)
	require.Equal(t, ast.KindPrefix, expr.Kind)
	assert.Equal(t, ast.KindPostfix, expr.Operand.Kind)
}

func TestParseFunctionCall(t *testing.T) {
	expr, err := Parse("SUM(1,2,3)")
	require.NoError(t, err)
	require.Equal(t, ast.KindFunc, expr.Kind)
	assert.Equal(t, "SUM", expr.FuncName)
	assert.Len(t, expr.Args, 3)
}

func TestParseFlatArrayLiteral(t *testing.T) {
	expr, err := Parse("{1,2,3}")
	require.NoError(t, err)
	require.Equal(t, ast.KindArray, expr.Kind)
	assert.Nil(t, expr.Rows)
	assert.Len(t, expr.Flat, 3)
}

func TestParseRowArrayLiteral(t *testing.T) {
	expr, err := Parse("{1,2;3,4}")
	require.NoError(t, err)
	require.Equal(t, ast.KindArray, expr.Kind)
	require.Len(t, expr.Rows, 2)
	assert.Len(t, expr.Rows[0], 2)
	assert.Len(t, expr.Rows[1], 2)
}

func TestParseReferenceAndRange(t *testing.T) {
	expr, err := Parse("A1+B2:C3")
	require.NoError(t, err)
	assert.Equal(t, ast.KindReference, expr.Left.Kind)
	assert.Equal(t, ast.KindReference, expr.Right.Kind)
	assert.Equal(t, "B2:C3", expr.Right.TextualRef)
}

func TestParseSheetQualifiedReference(t *testing.T) {
	expr, err := Parse("Sheet2!A1")
	require.NoError(t, err)
	assert.Equal(t, "Sheet2", expr.Sheet)
	assert.Equal(t, "A1", expr.TextualRef)
}

func TestParseComparisonAndConcat(t *testing.T) {
	expr, err := Parse(`"x"&"y"=1`)
	require.NoError(t, err)
	assert.Equal(t, value.OpEq, expr.Op)
	assert.Equal(t, value.OpConcat, expr.Left.Op)
}

func TestParseNestedParens(t *testing.T) {
	expr, err := Parse("(1+2)*3")
	require.NoError(t, err)
	assert.Equal(t, value.OpMul, expr.Op)
	assert.Equal(t, value.OpAdd, expr.Left.Op)
}

func TestParseErrorOnTrailingGarbage(t *testing.T) {
	_, err := Parse("1 2")
	require.Error(t, err)
}

func TestParseErrorOnUnbalancedParen(t *testing.T) {
	_, err := Parse("(1+2")
	require.Error(t, err)
}

func TestParseErrorLiteral(t *testing.T) {
	expr, err := Parse("#DIV/0!")
	require.NoError(t, err)
	require.Equal(t, ast.KindError, expr.Kind)
	assert.Equal(t, value.ErrDiv, expr.ErrorKind)
}

func TestToStringRoundTripsStructure(t *testing.T) {
	expr, err := Parse("SUM(A1,B2)")
	require.NoError(t, err)
	assert.Equal(t, "SUM(A1,B2)", ast.ToString(expr))
}
