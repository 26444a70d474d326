package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// evalProgram interprets a hoisted program directly. Closures are tuples
// whose slot 0 holds a FuncDef.
func evalProgram(p *Program) (interface{}, error) {
	return evalSeq(p, p.Main, map[int]interface{}{}, 0)
}

func evalSeq(p *Program, s *Seq, env map[int]interface{}, depth int) (interface{}, error) {
	if depth > 1000 {
		return nil, errors.New("call depth exceeded")
	}
	value := func(v Value) (interface{}, error) {
		switch x := v.(type) {
		case IntValue:
			return x.N, nil
		case LocalValue:
			r, ok := env[x.Var.ID]
			if !ok {
				return nil, fmt.Errorf("unbound %s", x.Var)
			}
			return r, nil
		case GlobalValue:
			fn, ok := p.Func(x.Var)
			if !ok {
				return nil, fmt.Errorf("undefined %s", x)
			}
			return fn, nil
		}
		return nil, fmt.Errorf("bad value %v", v)
	}

	for _, st := range s.Stmts {
		var result interface{}
		switch n := st.(type) {
		case *BinOpStmt:
			l, err := value(n.Left)
			if err != nil {
				return nil, err
			}
			r, err := value(n.Right)
			if err != nil {
				return nil, err
			}
			a, b := l.(int64), r.(int64)
			switch n.Op {
			case OpAdd:
				result = a + b
			case OpSub:
				result = a - b
			case OpMul:
				result = a * b
			case OpDiv:
				result = a / b
			}
		case *TupleStmt:
			tup := make([]interface{}, len(n.Elems))
			for i, e := range n.Elems {
				v, err := value(e)
				if err != nil {
					return nil, err
				}
				tup[i] = v
			}
			result = tup
		case *ProjectStmt:
			result = env[n.Tuple.ID].([]interface{})[n.Index]
		case *AppStmt:
			fn := env[n.Callee.ID].(FuncDef)
			callEnv := map[int]interface{}{}
			for i, a := range n.Args {
				v, err := value(a)
				if err != nil {
					return nil, err
				}
				callEnv[fn.Params[i].ID] = v
			}
			r, err := evalSeq(p, fn.Body, callEnv, depth+1)
			if err != nil {
				return nil, err
			}
			result = r
		default:
			return nil, fmt.Errorf("cannot evaluate %s", st)
		}
		env[st.Bound().ID] = result
	}
	if s.Tail == nil {
		return nil, nil
	}
	return value(s.Tail)
}

func TestCompileEndToEnd(t *testing.T) {
	tests := []struct {
		input string
		typ   string
		want  int64
	}{
		{"42", "Int", 42},
		{"1 + 2 * 3 - 4 / 2", "Int", 5},
		{`(\x. \y. x + y) 2 3`, "Int", 5},
		{`(\f. \x. f x) ((\x. \y. x + y) 2) 3`, "Int", 5},
		{`(\x. x) 7`, "Int", 7},
		{`(\f. f (f 3)) (\x. x * x)`, "Int", 81},
		{`(\x. \y. \z. x * y - z) 4 5 6`, "Int", 14},
		{`(\f. \g. \x. f (g x)) (\x. x + 1) (\x. x * 10) 4`, "Int", 41},
		{`(\a. (\b. (\c. a - b - c) 1) 2) 10`, "Int", 7},
	}

	for _, tc := range tests {
		res, err := Compile(tc.input, DefaultOptions())
		if err != nil {
			t.Errorf("Compile(%q): %v", tc.input, err)
			continue
		}
		if res.Type.String() != tc.typ {
			t.Errorf("Compile(%q): type %s, want %s", tc.input, res.Type, tc.typ)
		}
		if err := Verify(res.Program); err != nil {
			t.Errorf("Compile(%q): %v", tc.input, err)
			continue
		}
		got, err := evalProgram(res.Program)
		if err != nil {
			t.Errorf("eval(%q): %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("eval(%q) = %v, want %d", tc.input, got, tc.want)
		}
	}
}

func TestCompileFunctionValue(t *testing.T) {
	res, err := Compile(`\x. \y. x + y`, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Type.String() != "Int -> Int -> Int" {
		t.Errorf("type = %s", res.Type)
	}
	got, err := evalProgram(res.Program)
	if err != nil {
		t.Fatal(err)
	}
	closure, ok := got.([]interface{})
	if !ok || len(closure) != 1 {
		t.Fatalf("result = %v, want a closure with no captures", got)
	}
	if _, ok := closure[0].(FuncDef); !ok {
		t.Errorf("closure slot 0 = %T, want FuncDef", closure[0])
	}
}

func TestCompileResultStages(t *testing.T) {
	res, err := Compile(`(\x. \y. x + y) 2 3`, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(res.BuildID); err != nil {
		t.Errorf("build id %q: %v", res.BuildID, err)
	}
	if Format(res.Parsed) != `(\x. \y. x + y) 2 3` {
		t.Errorf("parsed = %s", Format(res.Parsed))
	}
	if Format(res.Scoped) != `(\x_0. \y_1. x_0 + y_1) 2 3` {
		t.Errorf("scoped = %s", Format(res.Scoped))
	}
	if err := CheckSingleAssignment(res.ANF); err != nil {
		t.Errorf("ANF: %v", err)
	}
	if err := CheckSingleAssignment(res.Closed); err != nil {
		t.Errorf("closure conversion: %v", err)
	}
	if len(res.Program.Funcs) != 2 {
		t.Errorf("got %d functions, want 2", len(res.Program.Funcs))
	}
	if ty, ok := res.Inferencer.TypeOf(res.Scoped); !ok || ty.String() != "Int" {
		t.Errorf("TypeOf(root) = %v, %t", ty, ok)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		input  string
		target interface{}
		prefix string
	}{
		{"(1 + ", new(*SyntaxError), "syntax error: "},
		{`\x. y`, new(*UnboundVariableError), "alpha conversion: "},
		{"1 2", new(*TypeMismatchError), "type inference: "},
		{`\x. x x`, new(*TypeMismatchError), "type inference: "},
	}

	for _, tc := range tests {
		res, err := Compile(tc.input, DefaultOptions())
		if err == nil {
			t.Errorf("Compile(%q): expected error", tc.input)
			continue
		}
		if res != nil {
			t.Errorf("Compile(%q): partial result returned with error", tc.input)
		}
		if !errors.As(err, tc.target) {
			t.Errorf("Compile(%q): error %v has type %T", tc.input, err, err)
		}
		if !strings.HasPrefix(err.Error(), tc.prefix) {
			t.Errorf("Compile(%q): error %q, want prefix %q", tc.input, err, tc.prefix)
		}
	}
}

func TestCompileWithoutOccursCheck(t *testing.T) {
	opts := Options{OccursCheck: false}
	for _, src := range []string{`\x. x x`, `(\x. x x) (\x. x x)`, `\f. (\x. f (x x)) (\x. f (x x))`} {
		res, err := Compile(src, opts)
		var tm *TypeMismatchError
		if !errors.As(err, &tm) || tm.Reason != "infinite type" {
			t.Errorf("Compile(%q) without occurs check: %v", src, err)
		}
		if res != nil {
			t.Errorf("Compile(%q): partial result returned with error", src)
		}
	}

	res, err := Compile(`(\x. \y. x + y) 2 3`, opts)
	if err != nil {
		t.Fatalf("Compile without occurs check: %v", err)
	}
	if res.Type.String() != "Int" {
		t.Errorf("type = %s, want Int", res.Type)
	}
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	if !opts.OccursCheck {
		t.Error("occurs check disabled by default")
	}
	if opts.Fingerprint() != "occurs=true" {
		t.Errorf("Fingerprint() = %q", opts.Fingerprint())
	}
	if (Options{}).Fingerprint() == opts.Fingerprint() {
		t.Error("different options share a fingerprint")
	}
}
