// errors.go: user-facing error wrapping and caret-snippet rendering.
//
// This module turns lexer/parser diagnostics into readable error snippets
// with a caret pointing at the offending column:
//
//	PARSE ERROR in fib.zl at 3:12: expected ')' or ',' in argument list
//
//	   2 | def fib(n)
//	   3 |   fib(n - 1 + fib(n - 2)
//	       |            ^
//	   4 | fib(8)
//
// The snippet includes up to one line of context before and after the error,
// numbers the lines, and places a caret under the 1-based column. It needs
// the full source text, so only callers that hold the text (the CLI, the
// REPL) wrap; streaming callers report the plain one-line form.
package zlang

import (
	"fmt"
	"strings"
)

// WrapErrorWithSource returns an error augmented with a caret-annotated
// snippet of the provided source. It recognizes *LexError and *ParseError and
// leaves every other error untouched.
func WrapErrorWithSource(err error, src string) error {
	return WrapErrorWithName(err, "", src)
}

// WrapErrorWithName is WrapErrorWithSource with a source name ("fib.zl",
// "<repl>") in the header.
func WrapErrorWithName(err error, srcName string, src string) error {
	switch e := err.(type) {
	case *LexError:
		return fmt.Errorf("%s", prettyErrorStringLabeled(src, "LEXICAL ERROR", srcName, e.Line, e.Col, e.Msg))
	case *ParseError:
		return fmt.Errorf("%s", prettyErrorStringLabeled(src, "PARSE ERROR", srcName, e.Line, e.Col, e.Msg))
	default:
		return err
	}
}

// prettyErrorStringLabeled builds the snippet with a header and a caret.
// Coordinates are 1-based and clamped to the source bounds so a stale
// position cannot crash rendering.
func prettyErrorStringLabeled(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	caretPad := col - 1
	if caretPad > len(lineTxt) {
		caretPad = len(lineTxt)
	}
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", caretPad))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
