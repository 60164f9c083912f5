package lexer

import "github.com/corvid-sheets/formulacalc/internal/value"

// TokenType enumerates every token the lexer can emit.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenText
	TokenBoolean
	TokenErrorLiteral
	TokenReference // single cell, range, v-range, h-range, sheet-qualified — always one token
	TokenIdentifier
	TokenOpPlus
	TokenOpMinus
	TokenOpMul
	TokenOpDiv
	TokenOpPow
	TokenOpConcat
	TokenOpEq
	TokenOpLt
	TokenOpGt
	TokenOpLte
	TokenOpGte
	TokenOpNeq
	TokenOpPercent
	TokenComma
	TokenColon
	TokenSemicolon
	TokenBang
	TokenDot
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
)

// Token is one lexical unit with its source position, used for
// ParseError(pos, msg) reporting.
type Token struct {
	Type TokenType
	Text string
	Pos  int

	Num     float64
	Bool    bool
	ErrKind value.ErrorKind
}
