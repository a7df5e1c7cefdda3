// session_test.go
package zlang

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recBackend records the boundary calls the session makes, in order.
type recBackend struct {
	nodes  []Node
	events []string // "compile <name>", "evaluate <name>", "retire <name>"
	fail   map[string]error
	value  float64
}

type recHandle struct {
	b    *recBackend
	name string
}

func (h *recHandle) Evaluate() (float64, error) {
	h.b.events = append(h.b.events, "evaluate "+h.name)
	return h.b.value, nil
}

func (h *recHandle) Retire() error {
	h.b.events = append(h.b.events, "retire "+h.name)
	return nil
}

func nodeName(n Node) string {
	switch v := n.(type) {
	case *Function:
		return v.Proto.Name
	case *Prototype:
		return v.Name
	}
	return "?"
}

func (b *recBackend) Compile(n Node) (Handle, error) {
	name := nodeName(n)
	b.events = append(b.events, "compile "+name)
	if err, ok := b.fail[name]; ok {
		return nil, err
	}
	b.nodes = append(b.nodes, n)
	return &recHandle{b: b, name: name}, nil
}

func runSrc(t *testing.T, src string) (*recBackend, []error, int) {
	t.Helper()
	b := &recBackend{}
	var diags []error
	s := NewSession(b)
	s.OnError = func(err error) { diags = append(diags, err) }
	failures := s.Run(strings.NewReader(src))
	return b, diags, failures
}

func Test_Session_RoutesUnitsInOrder(t *testing.T) {
	src := `extern sin(x); def one() 1
one() + 2
`
	b, diags, failures := runSrc(t, src)
	assert.Empty(t, diags)
	assert.Equal(t, 0, failures)

	assert.Len(t, b.nodes, 3)
	_, isProto := b.nodes[0].(*Prototype)
	assert.True(t, isProto, "extern hands a *Prototype to the backend")
	assert.Equal(t, "sin", nodeName(b.nodes[0]))
	assert.Equal(t, "one", nodeName(b.nodes[1]))
	assert.Equal(t, AnonFunction, nodeName(b.nodes[2]))
}

func Test_Session_SeparatorsProduceNoAST(t *testing.T) {
	b, diags, failures := runSrc(t, ";;;;")
	assert.Empty(t, diags)
	assert.Equal(t, 0, failures)
	assert.Empty(t, b.nodes)
	assert.Empty(t, b.events)
}

func Test_Session_AnonEvaluatedAndRetiredBeforeNextUnit(t *testing.T) {
	b, diags, _ := runSrc(t, "1 + 2; 3 * 4")
	assert.Empty(t, diags)
	assert.Equal(t, []string{
		"compile " + AnonFunction,
		"evaluate " + AnonFunction,
		"retire " + AnonFunction,
		"compile " + AnonFunction,
		"evaluate " + AnonFunction,
		"retire " + AnonFunction,
	}, b.events)
}

func Test_Session_DefsAreNotEvaluated(t *testing.T) {
	b, _, _ := runSrc(t, "def f(x) x")
	assert.Equal(t, []string{"compile f"}, b.events)
}

func Test_Session_RecoveryResumesAfterStrayToken(t *testing.T) {
	// The stray ')' costs one diagnostic and exactly one token; the def that
	// follows still lands in the backend.
	b, diags, failures := runSrc(t, ") def foo() 1")
	assert.Len(t, diags, 1)
	assert.Contains(t, diags[0].Error(), "unknown token when expecting an expression")
	assert.Equal(t, 1, failures)

	if assert.Len(t, b.nodes, 1) {
		fn := b.nodes[0].(*Function)
		assert.Equal(t, "foo", fn.Proto.Name)
		assert.Empty(t, fn.Proto.Params)
		num, ok := fn.Body.(*NumberExpr)
		if assert.True(t, ok, "body should be the literal 1") {
			assert.Equal(t, 1.0, num.Val)
		}
	}
}

func Test_Session_NoPartialASTOnFailure(t *testing.T) {
	// The malformed def is dropped whole; only the trailing unit compiles.
	b, diags, _ := runSrc(t, "def broken( 42\n7")
	assert.NotEmpty(t, diags)
	for _, n := range b.nodes {
		assert.Equal(t, AnonFunction, nodeName(n), "no piece of the broken def may reach the backend")
	}
	assert.NotEmpty(t, b.nodes, "the well-formed trailing expression still compiles")
}

func Test_Session_CompileFailureIsReportedNotFatal(t *testing.T) {
	b := &recBackend{fail: map[string]error{"bad": assert.AnError}}
	var diags []error
	s := NewSession(b)
	s.OnError = func(err error) { diags = append(diags, err) }

	failures := s.Run(strings.NewReader("def bad() 1\ndef good() 2"))
	assert.Equal(t, 1, failures)
	assert.Len(t, diags, 1)
	if assert.Len(t, b.nodes, 1) {
		assert.Equal(t, "good", nodeName(b.nodes[0]))
	}
}

func Test_Session_LexErrorRecovered(t *testing.T) {
	b, diags, failures := runSrc(t, "1.2.3\ndef f() 1")
	assert.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Error(), "invalid number literal")
	assert.GreaterOrEqual(t, failures, 1)

	names := make([]string, 0, len(b.nodes))
	for _, n := range b.nodes {
		names = append(names, nodeName(n))
	}
	assert.Contains(t, names, "f")
}

func Test_Session_ValueHookReceivesResults(t *testing.T) {
	b := &recBackend{value: 42}
	var got []float64
	s := NewSession(b)
	s.OnValue = func(v float64) { got = append(got, v) }
	s.Run(strings.NewReader("6 * 7"))
	assert.Equal(t, []float64{42}, got)
}

func Test_Session_AnonNameIsStableAcrossUnits(t *testing.T) {
	b, _, _ := runSrc(t, "1\n2\n3")
	assert.Len(t, b.nodes, 3)
	for _, n := range b.nodes {
		assert.Equal(t, AnonFunction, nodeName(n))
	}
}

func Test_Check_CompleteAndIncomplete(t *testing.T) {
	assert.NoError(t, Check("def f(x) x + 1; f(2)", true))

	err := Check("def f(x) x +", true)
	assert.True(t, IsIncomplete(err), "truncated input should probe as incomplete, got %v", err)

	err = Check("def f(x) x +", false)
	assert.Error(t, err)
	assert.False(t, IsIncomplete(err))

	err = Check(") oops", true)
	assert.Error(t, err)
	assert.False(t, IsIncomplete(err), "a real syntax error is not incomplete")
}
