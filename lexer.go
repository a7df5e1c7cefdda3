// lexer.go: streaming tokenizer for zlang source.
//
// The lexer pulls one byte at a time from an io.Reader and classifies it into
// tokens on demand. It keeps exactly one byte of lookahead between calls, so
// it works the same over a file, a pipe, or an interactive stream. End of
// input is sticky: once seen, NextToken returns EOF forever.
package zlang

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota

	// Keywords
	DEF
	EXTERN
	IF
	THEN
	ELSE
	FOR
	IN

	// Literals & identifiers
	IDENT
	NUMBER

	// Any other single character: operators, parentheses, comma, semicolon.
	SYMBOL
)

func (tt TokenType) String() string {
	switch tt {
	case EOF:
		return "eof"
	case DEF:
		return "def"
	case EXTERN:
		return "extern"
	case IF:
		return "if"
	case THEN:
		return "then"
	case ELSE:
		return "else"
	case FOR:
		return "for"
	case IN:
		return "in"
	case IDENT:
		return "identifier"
	case NUMBER:
		return "number"
	case SYMBOL:
		return "symbol"
	}
	return "unknown"
}

// Position is a 1-based line / column location in the source stream.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Token is a lexical token with its literal payload.
type Token struct {
	Type   TokenType
	Lexeme string  // raw text of the token
	Num    float64 // parsed value when Type == NUMBER
	Sym    byte    // the character when Type == SYMBOL
	Line   int     // 1-based
	Col    int     // 1-based
}

func (t Token) Pos() Position { return Position{Line: t.Line, Col: t.Col} }

// IsSym reports whether t is the single-character symbol ch.
func (t Token) IsSym(ch byte) bool { return t.Type == SYMBOL && t.Sym == ch }

// keywords map
var keywords = map[string]TokenType{
	"def":    DEF,
	"extern": EXTERN,
	"if":     IF,
	"then":   THEN,
	"else":   ELSE,
	"for":    FOR,
	"in":     IN,
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\v' || b == '\f'
}
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// ----- errors -----

// LexError reports a token the lexer could not form. The only case today is a
// malformed numeric literal such as "3.4.5"; every other character is
// classified into some token.
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("LEXICAL ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// ----- lexer -----

// Lexer scans zlang source from a character stream, one token per call.
// A Lexer belongs to exactly one session and is not safe for concurrent use.
type Lexer struct {
	src *bufio.Reader
	ch  byte // one byte of lookahead, persists across NextToken calls
	eof bool

	line int // 1-based line of the lookahead byte
	col  int // 1-based column of the lookahead byte
}

// NewLexer creates a lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	// The lookahead starts as a synthetic space so the first NextToken call
	// falls through the whitespace skip and reads the first real byte.
	return &Lexer{src: bufio.NewReader(r), ch: ' ', line: 1, col: 0}
}

// advance replaces the lookahead byte with the next byte of input.
// On end of input it latches eof; the lookahead byte becomes meaningless.
func (l *Lexer) advance() {
	if l.eof {
		return
	}
	nl := l.ch == '\n'
	b, err := l.src.ReadByte()
	if err != nil {
		l.eof = true
		return
	}
	if nl {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.ch = b
}

// NextToken consumes characters and returns exactly one token. Malformed
// numeric text yields a *LexError; the offending characters are consumed, so
// the caller can keep requesting tokens afterwards.
func (l *Lexer) NextToken() (Token, error) {
	for {
		for !l.eof && isSpace(l.ch) {
			l.advance()
		}
		if l.eof {
			return Token{Type: EOF, Line: l.line, Col: l.col}, nil
		}

		line, col := l.line, l.col

		// identifier / keyword: [A-Za-z][A-Za-z0-9]*
		if isAlpha(l.ch) {
			var b strings.Builder
			for !l.eof && isAlphaNum(l.ch) {
				b.WriteByte(l.ch)
				l.advance()
			}
			word := b.String()
			if tt, ok := keywords[word]; ok {
				return Token{Type: tt, Lexeme: word, Line: line, Col: col}, nil
			}
			return Token{Type: IDENT, Lexeme: word, Line: line, Col: col}, nil
		}

		// number: [0-9.]+ parsed as a decimal float
		if isDigit(l.ch) || l.ch == '.' {
			var b strings.Builder
			for !l.eof && (isDigit(l.ch) || l.ch == '.') {
				b.WriteByte(l.ch)
				l.advance()
			}
			text := b.String()
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return Token{}, &LexError{Line: line, Col: col, Msg: fmt.Sprintf("invalid number literal %q", text)}
			}
			return Token{Type: NUMBER, Lexeme: text, Num: v, Line: line, Col: col}, nil
		}

		// '#' line comment: eat through end of line, then classify again.
		if l.ch == '#' {
			for !l.eof && l.ch != '\n' {
				l.advance()
			}
			continue
		}

		// Anything else is a single-character symbol.
		ch := l.ch
		l.advance()
		return Token{Type: SYMBOL, Lexeme: string(ch), Sym: ch, Line: line, Col: col}, nil
	}
}
