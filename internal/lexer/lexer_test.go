package lexer

import (
	"testing"

	"github.com/corvid-sheets/formulacalc/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeSimpleSum(t *testing.T) {
	toks, err := Tokenize("SUM(1,2,3)")
	require.NoError(t, err)
	assert.Equal(t, []TokenType{
		TokenIdentifier, TokenLParen, TokenNumber, TokenComma,
		TokenNumber, TokenComma, TokenNumber, TokenRParen, TokenEOF,
	}, tokenTypes(toks))
}

func TestTokenizeCellReference(t *testing.T) {
	toks, err := Tokenize("A1+B2")
	require.NoError(t, err)
	assert.Equal(t, TokenReference, toks[0].Type)
	assert.Equal(t, "A1", toks[0].Text)
	assert.Equal(t, TokenReference, toks[2].Type)
}

func TestTokenizeRangeIsSingleToken(t *testing.T) {
	toks, err := Tokenize("SUM(A1:B2)")
	require.NoError(t, err)
	assert.Equal(t, TokenReference, toks[2].Type)
	assert.Equal(t, "A1:B2", toks[2].Text)
}

func TestTokenizeFullColumnAndRow(t *testing.T) {
	toks, err := Tokenize("C:C")
	require.NoError(t, err)
	assert.Equal(t, TokenReference, toks[0].Type)
	assert.Equal(t, "C:C", toks[0].Text)

	toks, err = Tokenize("3:3")
	require.NoError(t, err)
	assert.Equal(t, TokenReference, toks[0].Type)
}

func TestTokenizeMultiSheetReference(t *testing.T) {
	toks, err := Tokenize("Sheet1:Sheet3!A1")
	require.NoError(t, err)
	assert.Equal(t, TokenReference, toks[0].Type)
	assert.Equal(t, "Sheet1:Sheet3!A1", toks[0].Text)
}

func TestTokenizeStringWithEscapedQuote(t *testing.T) {
	toks, err := Tokenize(`"he said ""hi"""`)
	require.NoError(t, err)
	assert.Equal(t, TokenText, toks[0].Type)
	assert.Equal(t, `he said "hi"`, toks[0].Text)
}

func TestTokenizeBooleanCaseInsensitive(t *testing.T) {
	toks, err := Tokenize("true")
	require.NoError(t, err)
	assert.Equal(t, TokenBoolean, toks[0].Type)
	assert.True(t, toks[0].Bool)
}

func TestTokenizeErrorLiterals(t *testing.T) {
	for text, kind := range errorLiterals {
		toks, err := Tokenize(text)
		require.NoError(t, err)
		require.Equal(t, TokenErrorLiteral, toks[0].Type)
		assert.Equal(t, kind, toks[0].ErrKind)
	}
}

func TestTokenizeScientificNotation(t *testing.T) {
	toks, err := Tokenize("1.5e3")
	require.NoError(t, err)
	assert.Equal(t, TokenNumber, toks[0].Type)
	assert.InDelta(t, 1500.0, toks[0].Num, 0.0001)
}

func TestTokenizeComparisonOperators(t *testing.T) {
	toks, err := Tokenize("<= >= <> =")
	require.NoError(t, err)
	assert.Equal(t, []TokenType{TokenOpLte, TokenOpGte, TokenOpNeq, TokenOpEq, TokenEOF}, tokenTypes(toks))
}

func TestTokenizeUnterminatedStringErrors(t *testing.T) {
	_, err := Tokenize(`"unterminated`)
	require.Error(t, err)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "#DIV/0!", value.ErrDiv.String())
}
