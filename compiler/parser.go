package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for lambda calculus syntax
//
//   expr    := additive
//   additive := multiplicative (("+" | "-") multiplicative)*
//   multiplicative := application (("*" | "/") application)*
//   application := atom atom*
//   atom    := INTEGER | IDENTIFIER | "(" expr ")" | "\" IDENTIFIER "." expr
// ---------------------------------------------------------------------------

// Parser parses lambda calculus source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	err       *SyntaxError
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete program.
func Parse(input string) (Expr, error) {
	return NewParser(input).ParseProgram()
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken)
	return false
}

// errorf records the first parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	p.err = &SyntaxError{Pos: p.curToken.Pos, Msg: fmt.Sprintf(format, args...)}
}

// Err returns the first parse error, if any.
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

// ParseProgram parses one expression spanning the whole input.
func (p *Parser) ParseProgram() (Expr, error) {
	e := p.ParseExpression()
	if p.err == nil && !p.curTokenIs(TokenEOF) {
		p.errorf("unexpected %s after expression", p.curToken)
	}
	if p.err != nil {
		return nil, p.err
	}
	return e, nil
}

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseBinary(1)
}

// parseBinary parses left-associative operators of at least the given
// precedence.
func (p *Parser) parseBinary(minPrec int) Expr {
	if minPrec > 2 {
		return p.parseApplication()
	}
	left := p.parseBinary(minPrec + 1)
	for left != nil {
		op, ok := binaryOperators[p.curToken.Type]
		if !ok || op.precedence() != minPrec {
			break
		}
		p.nextToken()
		right := p.parseBinary(minPrec + 1)
		if right == nil {
			return nil
		}
		left = &BinaryOp{
			SpanVal: MakeSpan(left.Span().Start, right.Span().End),
			Op:      op,
			Left:    left,
			Right:   right,
		}
	}
	return left
}

// parseApplication parses juxtaposition, which associates to the left.
func (p *Parser) parseApplication() Expr {
	fn := p.parseAtom()
	if fn == nil {
		return nil
	}
	for p.startsAtom() {
		arg := p.parseAtom()
		if arg == nil {
			return nil
		}
		fn = &App{
			SpanVal: MakeSpan(fn.Span().Start, arg.Span().End),
			Func:    fn,
			Arg:     arg,
		}
	}
	return fn
}

// startsAtom reports whether the current token can begin an atom.
func (p *Parser) startsAtom() bool {
	switch p.curToken.Type {
	case TokenInteger, TokenIdentifier, TokenLParen, TokenLambda:
		return true
	}
	return false
}

// parseAtom parses a literal, a variable, a parenthesized expression or an
// abstraction.
func (p *Parser) parseAtom() Expr {
	tok := p.curToken
	switch tok.Type {
	case TokenInteger:
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %s", tok.Literal)
			return nil
		}
		p.nextToken()
		return &IntLiteral{SpanVal: MakeSpan(tok.Pos, tok.End), Value: v}

	case TokenIdentifier:
		p.nextToken()
		return &VarRef{SpanVal: MakeSpan(tok.Pos, tok.End), Var: NewVariable(tok.Literal)}

	case TokenLParen:
		p.nextToken()
		e := p.ParseExpression()
		if e == nil {
			return nil
		}
		if !p.expect(TokenRParen) {
			return nil
		}
		return e

	case TokenLambda:
		return p.parseAbs()

	case TokenError:
		p.errorf("%s", tok.Literal)
		return nil

	default:
		p.errorf("unexpected %s", tok)
		return nil
	}
}

// parseAbs parses \x. body; the body extends as far right as possible.
func (p *Parser) parseAbs() Expr {
	start := p.curToken.Pos
	p.nextToken() // consume \
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected parameter name after \\, got %s", p.curToken)
		return nil
	}
	param := NewVariable(p.curToken.Literal)
	p.nextToken()
	if !p.expect(TokenPeriod) {
		return nil
	}
	body := p.ParseExpression()
	if body == nil {
		return nil
	}
	return &Abs{
		SpanVal: MakeSpan(start, body.Span().End),
		Param:   param,
		Body:    body,
	}
}
