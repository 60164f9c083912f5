// Package parser implements a Pratt/precedence-climbing grammar,
// turning a lexer token stream into an ast.Expr tree.
package parser

import (
	"fmt"

	"github.com/corvid-sheets/formulacalc/internal/ast"
	"github.com/corvid-sheets/formulacalc/internal/lexer"
	"github.com/corvid-sheets/formulacalc/internal/value"
)

// ParseError reports the first ambiguity encountered; the parser is
// deterministic and never backtracks past a committed production.
type ParseError struct {
	Pos      int
	Expected string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: expected %s", e.Pos, e.Expected)
}

// Parser consumes a token slice and builds an ast.Expr.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse parses formula text (without its leading "=", stripped by
// the caller) into an expression tree.
func Parse(text string) (*ast.Expr, error) {
	toks, err := lexer.Tokenize(text)
	if err != nil {
		if pe, ok := err.(*lexer.ParseError); ok {
			return nil, &ParseError{Pos: pe.Pos, Expected: pe.Msg}
		}
		return nil, err
	}
	p := &Parser{tokens: toks}
	expr, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if p.cur().Type != lexer.TokenEOF {
		return nil, &ParseError{Pos: p.cur().Pos, Expected: "end of formula"}
	}
	return expr, nil
}

// precedence levels, low to high.
type precedence int

const (
	precLowest         precedence = iota
	precRangeUnion                // ":"
	precComparison                // < <= > >= = <>
	precConcat                    // &
	precAdditive                  // + -
	precMultiplicative            // * /
	precPower                     // ^ (right-assoc)
	precUnary                     // unary -
	precPostfix                   // %
)

func (p *Parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	t := p.tokens[p.pos]
	if t.Type != lexer.TokenEOF {
		p.pos++
	}
	return t
}

func (p *Parser) expect(tt lexer.TokenType, what string) (lexer.Token, error) {
	if p.cur().Type != tt {
		return lexer.Token{}, &ParseError{Pos: p.cur().Pos, Expected: what}
	}
	return p.advance(), nil
}

func tokenPrecedence(t lexer.Token) precedence {
	switch t.Type {
	case lexer.TokenColon:
		return precRangeUnion
	case lexer.TokenOpLt, lexer.TokenOpLte, lexer.TokenOpGt, lexer.TokenOpGte, lexer.TokenOpEq, lexer.TokenOpNeq:
		return precComparison
	case lexer.TokenOpConcat:
		return precConcat
	case lexer.TokenOpPlus, lexer.TokenOpMinus:
		return precAdditive
	case lexer.TokenOpMul, lexer.TokenOpDiv:
		return precMultiplicative
	case lexer.TokenOpPow:
		return precPower
	case lexer.TokenOpPercent:
		return precPostfix
	default:
		return precLowest
	}
}

func infixOpFor(tt lexer.TokenType) value.BinaryOp {
	switch tt {
	case lexer.TokenOpPlus:
		return value.OpAdd
	case lexer.TokenOpMinus:
		return value.OpSub
	case lexer.TokenOpMul:
		return value.OpMul
	case lexer.TokenOpDiv:
		return value.OpDiv
	case lexer.TokenOpPow:
		return value.OpPow
	case lexer.TokenOpConcat:
		return value.OpConcat
	case lexer.TokenOpEq:
		return value.OpEq
	case lexer.TokenOpNeq:
		return value.OpNeq
	case lexer.TokenOpLt:
		return value.OpLt
	case lexer.TokenOpLte:
		return value.OpLte
	case lexer.TokenOpGt:
		return value.OpGt
	case lexer.TokenOpGte:
		return value.OpGte
	default:
		return -1
	}
}

// parseExpr implements precedence climbing. minPrec is the minimum
// binding power required to continue consuming infix/postfix
// operators at this recursion level.
func (p *Parser) parseExpr(minPrec precedence) (*ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.cur()
		prec := tokenPrecedence(tok)
		if prec < minPrec || prec == precLowest {
			break
		}

		if tok.Type == lexer.TokenOpPercent {
			p.advance()
			left = ast.Postfix(left, tok.Pos)
			continue
		}

		if tok.Type == lexer.TokenColon {
			// range-union: only meaningful directly between two
			// reference-shaped operands; fold it into a combined
			// reference rather than modeling it as a generic infix op.
			p.advance()
			right, err := p.parseExpr(precRangeUnion + 1)
			if err != nil {
				return nil, err
			}
			left, err = combineRangeUnion(left, right, tok.Pos)
			if err != nil {
				return nil, err
			}
			continue
		}

		op := infixOpFor(tok.Type)
		nextMin := prec + 1
		if tok.Type == lexer.TokenOpPow {
			nextMin = prec // right-associative
		}
		p.advance()
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = ast.Infix(op, left, right, tok.Pos)
	}
	return left, nil
}

// combineRangeUnion builds a single Reference expr spanning two
// reference operands joined by ":" (e.g. "A1:OFFSET(...)" would not
// be valid here since both sides must already be references by the
// time expression evaluation resolves them; at parse time we simply
// concatenate the textual forms and let refmodel re-parse).
func combineRangeUnion(left, right *ast.Expr, pos int) (*ast.Expr, error) {
	if left.Kind != ast.KindReference || right.Kind != ast.KindReference {
		return nil, &ParseError{Pos: pos, Expected: "reference on both sides of ':'"}
	}
	sheet := left.Sheet
	if sheet == "" {
		sheet = right.Sheet
	}
	text := left.TextualRef + ":" + right.TextualRef
	return ast.Reference(sheet, text, pos), nil
}

func (p *Parser) parseUnary() (*ast.Expr, error) {
	tok := p.cur()
	if tok.Type == lexer.TokenOpMinus {
		p.advance()
		operand, err := p.parseExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return ast.Prefix(ast.PrefixMinus, operand, tok.Pos), nil
	}
	if tok.Type == lexer.TokenOpPlus {
		p.advance()
		operand, err := p.parseExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return ast.Prefix(ast.PrefixPlus, operand, tok.Pos), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (*ast.Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.TokenNumber:
		p.advance()
		return ast.Literal(value.Num(tok.Num), tok.Pos), nil
	case lexer.TokenText:
		p.advance()
		return ast.Literal(value.Text(tok.Text), tok.Pos), nil
	case lexer.TokenBoolean:
		p.advance()
		return ast.Literal(value.Bool(tok.Bool), tok.Pos), nil
	case lexer.TokenErrorLiteral:
		p.advance()
		return ast.ErrorLiteral(tok.ErrKind, tok.Pos), nil
	case lexer.TokenReference:
		p.advance()
		sheet, ref := splitSheetQualifier(tok.Text)
		return ast.Reference(sheet, ref, tok.Pos), nil
	case lexer.TokenLParen:
		p.advance()
		expr, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.TokenLBrace:
		return p.parseArrayLiteral()
	case lexer.TokenIdentifier:
		return p.parseIdentifierOrCall()
	default:
		return nil, &ParseError{Pos: tok.Pos, Expected: "an expression"}
	}
}

func (p *Parser) parseIdentifierOrCall() (*ast.Expr, error) {
	tok, err := p.expect(lexer.TokenIdentifier, "identifier")
	if err != nil {
		return nil, err
	}
	if p.cur().Type != lexer.TokenLParen {
		// A bare identifier that isn't a function call is not a valid
		// primary on its own; surface it as a parse error here rather
		// than silently accepting garbage.
		return nil, &ParseError{Pos: p.cur().Pos, Expected: "'(' to start a function call"}
	}
	p.advance() // consume '('
	var args []*ast.Expr
	if p.cur().Type != lexer.TokenRParen {
		for {
			arg, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().Type == lexer.TokenComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.TokenRParen, "')'"); err != nil {
		return nil, err
	}
	return ast.Func(tok.Text, args, tok.Pos), nil
}

// parseArrayLiteral parses "{1,2;3,4}"-style array literals. ";"
// separates rows; a literal with no ";" produces a flat 1-D array.
func (p *Parser) parseArrayLiteral() (*ast.Expr, error) {
	startTok, err := p.expect(lexer.TokenLBrace, "'{'")
	if err != nil {
		return nil, err
	}
	var rows [][]*ast.Expr
	var row []*ast.Expr
	sawSemicolon := false

	for {
		item, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		row = append(row, item)
		switch p.cur().Type {
		case lexer.TokenComma:
			p.advance()
			continue
		case lexer.TokenSemicolon:
			p.advance()
			sawSemicolon = true
			rows = append(rows, row)
			row = nil
			continue
		case lexer.TokenRBrace:
			p.advance()
			rows = append(rows, row)
			if sawSemicolon {
				return ast.RowArray(rows, startTok.Pos), nil
			}
			return ast.FlatArray(rows[0], startTok.Pos), nil
		default:
			return nil, &ParseError{Pos: p.cur().Pos, Expected: "',', ';', or '}'"}
		}
	}
}

// splitSheetQualifier separates a reference token's optional leading
// "Sheet!" or "Sheet1:Sheet3!" qualifier from its cell/range part.
func splitSheetQualifier(text string) (sheet, ref string) {
	for i := 0; i < len(text); i++ {
		if text[i] == '!' {
			return text[:i], text[i+1:]
		}
	}
	return "", text
}
