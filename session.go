// session.go: top-level dispatcher and the backend boundary.
//
// A Session runs the driver loop over one source stream: it classifies each
// top-level unit by its leading token, routes it to the right parser
// production, and hands every finished node to the Backend collaborator in
// input order. Parsing a unit and compiling it never overlap; the backend is
// invoked strictly sequentially.
//
// Recovery policy: when a production fails, the session reports exactly one
// diagnostic, consumes exactly one token for forward progress, and loops. The
// malformed unit is dropped whole; a partial tree never reaches the backend.
// The session therefore never hangs and never dies on bad input, at the cost
// of a few extra "unknown token" messages until the stream realigns with a
// keyword boundary.
package zlang

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Backend accepts completed top-level nodes and produces compiled artifacts.
// Compile receives a *Function (a def or the anonymous wrapper) or a bare
// *Prototype (an extern declaration). The session never inspects the handle
// beyond success/failure and evaluate/retire for anonymous wrappers.
type Backend interface {
	Compile(node Node) (Handle, error)
}

// Handle is an opaque reference to one compiled unit.
type Handle interface {
	// Evaluate runs the unit now and returns its value. Only meaningful for
	// the anonymous wrapper around a bare expression.
	Evaluate() (float64, error)

	// Retire unloads the unit. The session retires every anonymous wrapper
	// before parsing the next top-level unit, freeing the reserved name.
	Retire() error
}

// Session drives the parse of top-level units and owns the Backend for their
// lifetime. One Session serves one interactive or batch conversation; it is
// not safe for concurrent use.
type Session struct {
	backend Backend

	// OnError receives every diagnostic (lex, parse, compile, evaluate).
	// Defaults to one line on stderr.
	OnError func(err error)

	// OnNode, when set, receives every successfully parsed node before it is
	// compiled. The REPL uses it to echo definitions.
	OnNode func(node Node)

	// OnValue, when set, receives the result of each evaluated bare
	// expression.
	OnValue func(v float64)
}

// NewSession creates a session compiling into b.
func NewSession(b Backend) *Session {
	return &Session{backend: b}
}

func (s *Session) report(err error) {
	if s.OnError != nil {
		s.OnError(err)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

// skipTok consumes one token for error recovery. Consecutive lexer errors are
// reported and skipped too; the lexer consumes input even when it fails, so
// this always makes forward progress.
func (s *Session) skipTok(p *Parser) {
	for {
		err := p.next()
		if err == nil {
			return
		}
		s.report(err)
	}
}

// Run reads top-level units from r until end of input, compiling each as it
// completes. It returns the number of units that failed to parse or compile.
func (s *Session) Run(r io.Reader) (failures int) {
	p := NewParser(r)
	if err := p.prime(); err != nil {
		s.report(err)
		failures++
		s.skipTok(p)
	}

	for {
		switch {
		case p.cur.Type == EOF:
			return failures

		case p.cur.IsSym(';'):
			// Statement separator: no unit, no AST.
			if err := p.next(); err != nil {
				s.report(err)
				failures++
				s.skipTok(p)
			}

		case p.cur.Type == DEF:
			node, err := p.ParseDefinition()
			if err != nil {
				failures++
				s.report(err)
				s.skipTok(p)
				continue
			}
			failures += s.emit(node, false)

		case p.cur.Type == EXTERN:
			node, err := p.ParseExtern()
			if err != nil {
				failures++
				s.report(err)
				s.skipTok(p)
				continue
			}
			failures += s.emit(node, false)

		default:
			node, err := p.ParseTopLevel()
			if err != nil {
				failures++
				s.report(err)
				s.skipTok(p)
				continue
			}
			failures += s.emit(node, true)
		}
	}
}

// emit hands one finished node to the backend. Anonymous wrappers are
// evaluated and retired immediately, before the next unit is parsed.
func (s *Session) emit(node Node, evaluate bool) (failures int) {
	if s.OnNode != nil {
		s.OnNode(node)
	}
	h, err := s.backend.Compile(node)
	if err != nil {
		s.report(err)
		return 1
	}
	if h == nil || !evaluate {
		return 0
	}
	v, err := h.Evaluate()
	if err != nil {
		s.report(err)
		failures = 1
	} else if s.OnValue != nil {
		s.OnValue(v)
	}
	if err := h.Retire(); err != nil {
		s.report(err)
	}
	return failures
}

// Check parses every top-level unit of src without compiling anything and
// returns the first failure, or nil when src is well-formed. With interactive
// set, a failure caused purely by truncated input is flagged Incomplete; a
// REPL keeps reading continuation lines while IsIncomplete(err) holds.
func Check(src string, interactive bool) error {
	p := NewParser(strings.NewReader(src))
	p.interactive = interactive
	if err := p.prime(); err != nil {
		return err
	}
	for {
		switch {
		case p.cur.Type == EOF:
			return nil
		case p.cur.IsSym(';'):
			if err := p.next(); err != nil {
				return err
			}
		case p.cur.Type == DEF:
			if _, err := p.ParseDefinition(); err != nil {
				return err
			}
		case p.cur.Type == EXTERN:
			if _, err := p.ParseExtern(); err != nil {
				return err
			}
		default:
			if _, err := p.ParseTopLevel(); err != nil {
				return err
			}
		}
	}
}
