// parser.go: recursive-descent parser for zlang.
//
// The parser pulls tokens from the Lexer one at a time and holds exactly one
// piece of mutable state: the current token. Primaries are parsed by plain
// recursive descent; chains of binary operators are folded by precedence
// climbing (parseBinOpRHS), which keeps every listed operator left-associative
// without one grammar rule per precedence level.
//
// There is no backtracking. Every production either commits after a
// successful sub-parse or fails immediately with a *ParseError naming the
// unmet expectation. A failure never kills the session; recovery is the
// dispatcher's job (see session.go).
//
// Grammar:
//
//	toplevel   ::= definition | external | expression | ';'
//	definition ::= 'def' prototype expression
//	external   ::= 'extern' prototype
//	prototype  ::= identifier '(' identifier* ')'
//	expression ::= primary binoprhs
//	binoprhs   ::= (binop primary)*
//	primary    ::= identifierexpr | numberexpr | parenexpr | ifexpr | forexpr
//	identifierexpr ::= identifier | identifier '(' (expression (',' expression)*)? ')'
//	parenexpr  ::= '(' expression ')'
//	ifexpr     ::= 'if' expression 'then' expression 'else' expression
//	forexpr    ::= 'for' identifier '=' expression ',' expression (',' expression)? 'in' expression
package zlang

import (
	"errors"
	"fmt"
	"io"
)

// ParseError is a recoverable per-unit parse failure. Incomplete is set when
// the failure was caused purely by running out of input while the parser was
// in interactive mode; a REPL uses it to prompt for a continuation line
// instead of reporting an error.
type ParseError struct {
	Line       int
	Col        int
	Msg        string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("PARSE ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// IsIncomplete reports whether err is a ParseError caused by truncated
// interactive input.
func IsIncomplete(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Incomplete
}

// ----- precedence table -----

// binopPrecedence is fixed at startup and never mutated while parsing.
// All listed operators are left-associative.
var binopPrecedence = map[byte]int{
	'<': 10,
	'>': 10,
	'+': 20,
	'-': 20,
	'*': 40,
	'/': 40,
}

// tokPrecedence returns the binary-operator precedence of t, or -1 when t is
// not a known operator symbol. -1 sits below every real precedence, so an
// unrecognized token simply terminates a binary chain.
func tokPrecedence(t Token) int {
	if t.Type != SYMBOL {
		return -1
	}
	if prec, ok := binopPrecedence[t.Sym]; ok {
		return prec
	}
	return -1
}

// ----- parser -----

// Parser consumes tokens from a Lexer with one token of lookahead. A Parser
// belongs to exactly one session and is not safe for concurrent use.
type Parser struct {
	lex         *Lexer
	cur         Token
	primed      bool
	interactive bool
}

// NewParser creates a parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{lex: NewLexer(r)}
}

// NewParserInteractive creates a parser whose end-of-input failures are
// flagged Incomplete (see IsIncomplete). Used by REPL continuation probing.
func NewParserInteractive(r io.Reader) *Parser {
	return &Parser{lex: NewLexer(r), interactive: true}
}

// Current returns the token the parser is looking at. The first call pulls
// the first token from the lexer; a lexer error there surfaces on the next
// next() call instead.
func (p *Parser) Current() Token { return p.cur }

// next advances the current token by one.
func (p *Parser) next() error {
	t, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

// prime loads the first token. Productions call it so a Parser can be used
// directly without a priming step.
func (p *Parser) prime() error {
	if p.primed {
		return nil
	}
	p.primed = true
	return p.next()
}

// errf builds a *ParseError at the current token.
func (p *Parser) errf(format string, args ...any) error {
	return &ParseError{
		Line:       p.cur.Line,
		Col:        p.cur.Col,
		Msg:        fmt.Sprintf(format, args...),
		Incomplete: p.interactive && p.cur.Type == EOF,
	}
}

// expect consumes the current token when it has type tt, else fails with msg.
func (p *Parser) expect(tt TokenType, msg string) error {
	if p.cur.Type != tt {
		return p.errf("%s", msg)
	}
	return p.next()
}

// expectSym consumes the current token when it is the symbol ch.
func (p *Parser) expectSym(ch byte, msg string) error {
	if !p.cur.IsSym(ch) {
		return p.errf("%s", msg)
	}
	return p.next()
}

// ----- expressions -----

// parseNumberExpr: the current token is NUMBER.
func (p *Parser) parseNumberExpr() (Expr, error) {
	e := &NumberExpr{Start: p.cur.Pos(), Val: p.cur.Num}
	if err := p.next(); err != nil {
		return nil, err
	}
	return e, nil
}

// parseParenExpr: '(' expression ')'. The parentheses leave no node of their
// own; grouping lives in the tree shape.
func (p *Parser) parseParenExpr() (Expr, error) {
	if err := p.next(); err != nil { // eat '('
		return nil, err
	}
	v, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectSym(')', "expected ')'"); err != nil {
		return nil, err
	}
	return v, nil
}

// parseIdentifierExpr: a bare identifier is a variable reference; an
// identifier followed by '(' is a call with comma-separated full-expression
// arguments, possibly zero of them.
func (p *Parser) parseIdentifierExpr() (Expr, error) {
	name := p.cur.Lexeme
	pos := p.cur.Pos()
	if err := p.next(); err != nil { // eat identifier
		return nil, err
	}

	if !p.cur.IsSym('(') {
		return &VariableExpr{Start: pos, Name: name}, nil
	}

	if err := p.next(); err != nil { // eat '('
		return nil, err
	}
	args := []Expr{}
	if p.cur.IsSym(')') {
		if err := p.next(); err != nil {
			return nil, err
		}
		return &CallExpr{Start: pos, Callee: name, Args: args}, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.cur.IsSym(')') {
			if err := p.next(); err != nil {
				return nil, err
			}
			return &CallExpr{Start: pos, Callee: name, Args: args}, nil
		}
		if !p.cur.IsSym(',') {
			return nil, p.errf("expected ')' or ',' in argument list")
		}
		if err := p.next(); err != nil { // eat ','
			return nil, err
		}
	}
}

// parseIfExpr: 'if' expression 'then' expression 'else' expression.
// Each keyword is mandatory and order-fixed.
func (p *Parser) parseIfExpr() (Expr, error) {
	pos := p.cur.Pos()
	if err := p.next(); err != nil { // eat 'if'
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(THEN, "expected 'then'"); err != nil {
		return nil, err
	}
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(ELSE, "expected 'else'"); err != nil {
		return nil, err
	}
	els, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &IfExpr{Start: pos, Cond: cond, Then: then, Else: els}, nil
}

// parseForExpr: 'for' id '=' expr ',' expr (',' expr)? 'in' expr.
// A missing step clause stays nil in the node; it is not the parser's place
// to substitute the backend's 1.0 default.
func (p *Parser) parseForExpr() (Expr, error) {
	pos := p.cur.Pos()
	if err := p.next(); err != nil { // eat 'for'
		return nil, err
	}
	if p.cur.Type != IDENT {
		return nil, p.errf("expected identifier after 'for'")
	}
	name := p.cur.Lexeme
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expectSym('=', "expected '=' after for loop variable"); err != nil {
		return nil, err
	}
	from, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectSym(',', "expected ',' after for start value"); err != nil {
		return nil, err
	}
	end, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	var step Expr
	if p.cur.IsSym(',') {
		if err := p.next(); err != nil {
			return nil, err
		}
		if step, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(IN, "expected 'in' after 'for'"); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ForExpr{Start: pos, Var: name, From: from, End: end, Step: step, Body: body}, nil
}

// parsePrimary dispatches purely on the current token's kind.
func (p *Parser) parsePrimary() (Expr, error) {
	switch {
	case p.cur.Type == IDENT:
		return p.parseIdentifierExpr()
	case p.cur.Type == NUMBER:
		return p.parseNumberExpr()
	case p.cur.IsSym('('):
		return p.parseParenExpr()
	case p.cur.Type == IF:
		return p.parseIfExpr()
	case p.cur.Type == FOR:
		return p.parseForExpr()
	default:
		return nil, p.errf("unknown token when expecting an expression")
	}
}

// parseBinOpRHS folds "(binop primary)*" into a tree by precedence climbing.
// minPrec is the lowest operator precedence this call is allowed to consume;
// anything below it (including non-operators, which rank -1) hands lhs back
// to the caller unchanged.
func (p *Parser) parseBinOpRHS(minPrec int, lhs Expr) (Expr, error) {
	for {
		prec := tokPrecedence(p.cur)
		if prec < minPrec {
			return lhs, nil
		}

		op := p.cur.Sym
		if err := p.next(); err != nil { // eat binop
			return nil, err
		}
		rhs, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		// If the next operator binds tighter, it owns rhs first. Climbing at
		// prec+1 also makes equal precedence fold to the left.
		if prec < tokPrecedence(p.cur) {
			if rhs, err = p.parseBinOpRHS(prec+1, rhs); err != nil {
				return nil, err
			}
		}
		lhs = &BinaryExpr{Start: lhs.Pos(), Op: op, LHS: lhs, RHS: rhs}
	}
}

// parseExpression: primary binoprhs.
func (p *Parser) parseExpression() (Expr, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parseBinOpRHS(0, lhs)
}

// ----- prototypes & top-level units -----

// parsePrototype: identifier '(' identifier* ')'. Parameter names are not
// comma-separated. Duplicates are accepted; the backend validates them.
func (p *Parser) parsePrototype() (*Prototype, error) {
	if p.cur.Type != IDENT {
		return nil, p.errf("expected function name in prototype")
	}
	name := p.cur.Lexeme
	pos := p.cur.Pos()
	if err := p.next(); err != nil {
		return nil, err
	}

	if !p.cur.IsSym('(') {
		return nil, p.errf("expected '(' in prototype")
	}
	if err := p.next(); err != nil {
		return nil, err
	}

	var params []string
	for p.cur.Type == IDENT {
		params = append(params, p.cur.Lexeme)
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if !p.cur.IsSym(')') {
		return nil, p.errf("expected ')' in prototype")
	}
	if err := p.next(); err != nil { // eat ')'
		return nil, err
	}
	return &Prototype{Start: pos, Name: name, Params: params}, nil
}

// ParseDefinition parses "'def' prototype expression".
func (p *Parser) ParseDefinition() (*Function, error) {
	if err := p.prime(); err != nil {
		return nil, err
	}
	if err := p.expect(DEF, "expected 'def'"); err != nil {
		return nil, err
	}
	proto, err := p.parsePrototype()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Function{Proto: proto, Body: body}, nil
}

// ParseExtern parses "'extern' prototype".
func (p *Parser) ParseExtern() (*Prototype, error) {
	if err := p.prime(); err != nil {
		return nil, err
	}
	if err := p.expect(EXTERN, "expected 'extern'"); err != nil {
		return nil, err
	}
	return p.parsePrototype()
}

// ParseTopLevel parses one bare expression and wraps it in a synthetic
// zero-parameter function named AnonFunction. Every wrapper reuses that one
// reserved name; keeping it unique over time is the backend's retire
// discipline, not parser state.
func (p *Parser) ParseTopLevel() (*Function, error) {
	if err := p.prime(); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	proto := &Prototype{Start: body.Pos(), Name: AnonFunction, Params: nil}
	return &Function{Proto: proto, Body: body}, nil
}

// ParseExpr parses one expression from the stream. Exposed for tools and
// tests that want the raw tree without the anonymous wrapper.
func (p *Parser) ParseExpr() (Expr, error) {
	if err := p.prime(); err != nil {
		return nil, err
	}
	return p.parseExpression()
}
