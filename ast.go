// ast.go: the zlang abstract syntax tree.
//
// Nodes form a closed variant set: every expression kind implements Expr via
// an unexported marker method, so a lowering backend can switch over the set
// exhaustively. Nodes are immutable once built and strictly tree-shaped; the
// parser hands each finished tree to the backend and keeps no reference.
package zlang

import (
	"strconv"
	"strings"
)

// AnonFunction is the reserved name given to the synthetic zero-parameter
// wrapper around a bare top-level expression. Every wrapper uses this exact
// name so the backend can recognize and retire each one.
const AnonFunction = "__anon_expr"

// Node is any element of the syntax tree.
type Node interface {
	// Pos returns the source position of the node's first token.
	Pos() Position

	// String renders the node as source-like text.
	String() string
}

// Expr is an expression node. Everything in zlang is an expression.
type Expr interface {
	Node
	exprNode()
}

// NumberExpr is a numeric literal such as 1.0.
type NumberExpr struct {
	Start Position
	Val   float64
}

// VariableExpr references a function parameter or loop induction variable.
// The name is resolved at lowering time, not at parse time.
type VariableExpr struct {
	Start Position
	Name  string
}

// BinaryExpr applies a single-character binary operator. LHS and RHS are
// exclusively owned by the node.
type BinaryExpr struct {
	Start Position
	Op    byte
	LHS   Expr
	RHS   Expr
}

// CallExpr invokes a function by name. Argument order is call-site order and
// is semantically significant.
type CallExpr struct {
	Start  Position
	Callee string
	Args   []Expr
}

// IfExpr is the two-armed conditional. Both branches are mandatory; the
// language has no one-armed form.
type IfExpr struct {
	Start Position
	Cond  Expr
	Then  Expr
	Else  Expr
}

// ForExpr is the counted loop. Step is nil when the source wrote no step
// clause; the backend applies the 1.0 default, never the parser.
type ForExpr struct {
	Start Position
	Var   string
	From  Expr
	End   Expr
	Step  Expr // nil = absent
	Body  Expr
}

func (e *NumberExpr) exprNode()   {}
func (e *VariableExpr) exprNode() {}
func (e *BinaryExpr) exprNode()   {}
func (e *CallExpr) exprNode()     {}
func (e *IfExpr) exprNode()       {}
func (e *ForExpr) exprNode()      {}

func (e *NumberExpr) Pos() Position   { return e.Start }
func (e *VariableExpr) Pos() Position { return e.Start }
func (e *BinaryExpr) Pos() Position   { return e.Start }
func (e *CallExpr) Pos() Position     { return e.Start }
func (e *IfExpr) Pos() Position       { return e.Start }
func (e *ForExpr) Pos() Position      { return e.Start }

func (e *NumberExpr) String() string   { return strconv.FormatFloat(e.Val, 'g', -1, 64) }
func (e *VariableExpr) String() string { return e.Name }

func (e *BinaryExpr) String() string {
	return "(" + e.LHS.String() + " " + string(e.Op) + " " + e.RHS.String() + ")"
}

func (e *CallExpr) String() string {
	var b strings.Builder
	b.WriteString(e.Callee)
	b.WriteByte('(')
	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (e *IfExpr) String() string {
	return "if " + e.Cond.String() + " then " + e.Then.String() + " else " + e.Else.String()
}

func (e *ForExpr) String() string {
	var b strings.Builder
	b.WriteString("for ")
	b.WriteString(e.Var)
	b.WriteString(" = ")
	b.WriteString(e.From.String())
	b.WriteString(", ")
	b.WriteString(e.End.String())
	if e.Step != nil {
		b.WriteString(", ")
		b.WriteString(e.Step.String())
	}
	b.WriteString(" in ")
	b.WriteString(e.Body.String())
	return b.String()
}

// Prototype declares a function's name and parameter names. It carries no
// types; every value is the one numeric scalar. Duplicate parameter names are
// not rejected here; that check belongs to the backend.
type Prototype struct {
	Start  Position
	Name   string
	Params []string
}

func (p *Prototype) Pos() Position { return p.Start }

func (p *Prototype) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte('(')
	b.WriteString(strings.Join(p.Params, " "))
	b.WriteByte(')')
	return b.String()
}

// Function pairs a prototype with a body. It represents either a `def` or the
// implicit anonymous wrapper around a bare top-level expression.
type Function struct {
	Proto *Prototype
	Body  Expr
}

// Anon reports whether f is the synthetic wrapper around a bare expression.
func (f *Function) Anon() bool { return f.Proto.Name == AnonFunction }

func (f *Function) Pos() Position { return f.Proto.Start }

func (f *Function) String() string {
	if f.Anon() {
		return f.Body.String()
	}
	return "def " + f.Proto.String() + " " + f.Body.String()
}
