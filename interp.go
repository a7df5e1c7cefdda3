// interp.go: tree-walking reference backend.
//
// Interp implements the Backend boundary by evaluating the AST directly
// instead of lowering it. Defs land in a function table keyed by prototype
// name; externs resolve against a fixed builtin table (the usual libm-style
// set plus putchard/printd). Anonymous wrappers evaluate their body with an
// empty environment and retire by removing their table entry, so the reserved
// anonymous name is reusable immediately.
//
// Semantics of the scalar language:
//   - '<' and '>' yield 1.0 or 0.0.
//   - 'if' takes the then-branch when the condition is non-zero.
//   - 'for' runs its body at least once, adds the step (default 1.0 when the
//     source wrote none), and keeps going while the end condition is
//     non-zero. A loop evaluates to 0.0.
package zlang

import (
	"fmt"
	"io"
	"math"
	"os"
)

// EvalError is a runtime failure inside the backend: an unknown name, an
// arity mismatch, or an invalid operator.
type EvalError struct {
	Msg string
}

func (e *EvalError) Error() string { return "EVAL ERROR: " + e.Msg }

func evalErrf(format string, args ...any) error {
	return &EvalError{Msg: fmt.Sprintf(format, args...)}
}

// builtin is one extern-able host function with a fixed arity.
type builtin struct {
	arity int
	fn    func(ip *Interp, args []float64) float64
}

// Interp is a Backend that walks the tree. One Interp carries the state of
// one session (its function table); it is not safe for concurrent use.
type Interp struct {
	funcs    map[string]*Function
	builtins map[string]builtin

	// Out receives the output of putchard and printd. Defaults to stdout.
	Out io.Writer
}

// NewInterp creates an evaluator with the standard builtin table.
func NewInterp() *Interp {
	ip := &Interp{
		funcs: make(map[string]*Function),
		Out:   os.Stdout,
	}
	ip.builtins = map[string]builtin{
		"sin":   {1, func(_ *Interp, a []float64) float64 { return math.Sin(a[0]) }},
		"cos":   {1, func(_ *Interp, a []float64) float64 { return math.Cos(a[0]) }},
		"sqrt":  {1, func(_ *Interp, a []float64) float64 { return math.Sqrt(a[0]) }},
		"exp":   {1, func(_ *Interp, a []float64) float64 { return math.Exp(a[0]) }},
		"log":   {1, func(_ *Interp, a []float64) float64 { return math.Log(a[0]) }},
		"floor": {1, func(_ *Interp, a []float64) float64 { return math.Floor(a[0]) }},
		"fabs":  {1, func(_ *Interp, a []float64) float64 { return math.Abs(a[0]) }},
		"pow":   {2, func(_ *Interp, a []float64) float64 { return math.Pow(a[0], a[1]) }},
		"putchard": {1, func(ip *Interp, a []float64) float64 {
			fmt.Fprintf(ip.Out, "%c", byte(a[0]))
			return 0
		}},
		"printd": {1, func(ip *Interp, a []float64) float64 {
			fmt.Fprintf(ip.Out, "%f\n", a[0])
			return 0
		}},
	}
	return ip
}

// artifact is the Handle for one compiled unit.
type artifact struct {
	ip    *Interp
	proto *Prototype
	fn    *Function // nil for an extern declaration
}

func (a *artifact) Evaluate() (float64, error) {
	if a.fn == nil {
		return 0, evalErrf("extern %q has no body to evaluate", a.proto.Name)
	}
	if len(a.proto.Params) > 0 {
		return 0, evalErrf("function %q takes arguments and cannot be evaluated directly", a.proto.Name)
	}
	return a.ip.eval(a.fn.Body, map[string]float64{})
}

func (a *artifact) Retire() error {
	delete(a.ip.funcs, a.proto.Name)
	return nil
}

// Compile registers one finished top-level node. Duplicate parameter names
// are rejected here: the parser accepts them by contract, so the backend is
// the validation point.
func (ip *Interp) Compile(node Node) (Handle, error) {
	switch n := node.(type) {
	case *Function:
		if err := checkParams(n.Proto); err != nil {
			return nil, err
		}
		ip.funcs[n.Proto.Name] = n
		return &artifact{ip: ip, proto: n.Proto, fn: n}, nil

	case *Prototype:
		if err := checkParams(n); err != nil {
			return nil, err
		}
		b, ok := ip.builtins[n.Name]
		if !ok {
			return nil, evalErrf("unknown extern function %q", n.Name)
		}
		if b.arity != len(n.Params) {
			return nil, evalErrf("extern %q declares %d parameters, builtin takes %d",
				n.Name, len(n.Params), b.arity)
		}
		return &artifact{ip: ip, proto: n}, nil

	default:
		return nil, evalErrf("cannot compile %T", node)
	}
}

func checkParams(proto *Prototype) error {
	seen := make(map[string]bool, len(proto.Params))
	for _, name := range proto.Params {
		if seen[name] {
			return evalErrf("duplicate parameter name %q in %q", name, proto.Name)
		}
		seen[name] = true
	}
	return nil
}

// call invokes a defined function or a builtin by name.
func (ip *Interp) call(callee string, args []float64) (float64, error) {
	if fn, ok := ip.funcs[callee]; ok {
		if len(args) != len(fn.Proto.Params) {
			return 0, evalErrf("function %q takes %d arguments, got %d",
				callee, len(fn.Proto.Params), len(args))
		}
		env := make(map[string]float64, len(args))
		for i, name := range fn.Proto.Params {
			env[name] = args[i]
		}
		return ip.eval(fn.Body, env)
	}
	if b, ok := ip.builtins[callee]; ok {
		if len(args) != b.arity {
			return 0, evalErrf("builtin %q takes %d arguments, got %d", callee, b.arity, len(args))
		}
		return b.fn(ip, args), nil
	}
	return 0, evalErrf("unknown function referenced %q", callee)
}

func (ip *Interp) eval(e Expr, env map[string]float64) (float64, error) {
	switch n := e.(type) {
	case *NumberExpr:
		return n.Val, nil

	case *VariableExpr:
		v, ok := env[n.Name]
		if !ok {
			return 0, evalErrf("unknown variable name %q", n.Name)
		}
		return v, nil

	case *BinaryExpr:
		l, err := ip.eval(n.LHS, env)
		if err != nil {
			return 0, err
		}
		r, err := ip.eval(n.RHS, env)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case '+':
			return l + r, nil
		case '-':
			return l - r, nil
		case '*':
			return l * r, nil
		case '/':
			return l / r, nil
		case '<':
			return boolVal(l < r), nil
		case '>':
			return boolVal(l > r), nil
		default:
			return 0, evalErrf("invalid binary operator %q", string(n.Op))
		}

	case *CallExpr:
		args := make([]float64, 0, len(n.Args))
		for _, a := range n.Args {
			v, err := ip.eval(a, env)
			if err != nil {
				return 0, err
			}
			args = append(args, v)
		}
		return ip.call(n.Callee, args)

	case *IfExpr:
		cond, err := ip.eval(n.Cond, env)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return ip.eval(n.Then, env)
		}
		return ip.eval(n.Else, env)

	case *ForExpr:
		v, err := ip.eval(n.From, env)
		if err != nil {
			return 0, err
		}
		step := 1.0
		if n.Step != nil {
			if step, err = ip.eval(n.Step, env); err != nil {
				return 0, err
			}
		}

		// The induction variable shadows any outer binding for the loop's
		// duration.
		old, had := env[n.Var]
		defer func() {
			if had {
				env[n.Var] = old
			} else {
				delete(env, n.Var)
			}
		}()

		for {
			env[n.Var] = v
			if _, err := ip.eval(n.Body, env); err != nil {
				return 0, err
			}
			// The end condition sees the value the body just ran with; the
			// step lands afterwards.
			end, err := ip.eval(n.End, env)
			if err != nil {
				return 0, err
			}
			if end == 0 {
				break
			}
			v += step
		}
		return 0, nil

	default:
		return 0, evalErrf("cannot evaluate %T", e)
	}
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
