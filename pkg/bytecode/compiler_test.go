package bytecode

import (
	"strings"
	"testing"

	"github.com/chazu/lamc/compiler"
)

func compileSource(t *testing.T, src string) *Module {
	t.Helper()
	res, err := compiler.Compile(src, compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("compiler.Compile(%q): %v", src, err)
	}
	m, err := Compile(res.Program)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return m
}

func TestCompileAndRun(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"42", 42},
		{"1 + 2 * 3 - 4 / 2", 5},
		{"7 - 10", -3},
		{`(\x. \y. x + y) 2 3`, 5},
		{`(\f. \x. f x) ((\x. \y. x + y) 2) 3`, 5},
		{`(\f. f (f 3)) (\x. x * x)`, 81},
		{`(\x. \y. \z. x * y - z) 4 5 6`, 14},
		{`(\f. \g. \x. f (g x)) (\x. x + 1) (\x. x * 10) 4`, 41},
		{`(\a. (\b. (\c. a - b - c) 1) 2) 10`, 7},
	}

	for _, tc := range tests {
		m := compileSource(t, tc.input)
		got, err := Run(m)
		if err != nil {
			t.Errorf("Run(%q): %v", tc.input, err)
			continue
		}
		if got.Kind != KindInt || got.Int != tc.want {
			t.Errorf("Run(%q) = %s, want %d", tc.input, got, tc.want)
		}
	}
}

func TestCompileLayout(t *testing.T) {
	m := compileSource(t, `(\x. \y. x + y) 2 3`)
	if len(m.Functions) != 3 {
		t.Fatalf("got %d functions, want 3", len(m.Functions))
	}
	if m.Main != 2 || m.Functions[2].Name != "main" {
		t.Errorf("main = %d (%s)", m.Main, m.Functions[m.Main].Name)
	}
	if m.Version != BytecodeVersion {
		t.Errorf("version = %d", m.Version)
	}

	// f_12(env_11, y_1): parameters first, then one slot per statement
	inner := m.Functions[0]
	if inner.Name != "f_12" {
		t.Errorf("function 0 = %s, want f_12", inner.Name)
	}
	if inner.ParamCount != 2 || inner.LocalCount != 4 {
		t.Errorf("f_12: %d params, %d locals", inner.ParamCount, inner.LocalCount)
	}
	wantNames := []string{"env_11", "y_1", "x_13", "z_6"}
	if strings.Join(inner.VarNames, " ") != strings.Join(wantNames, " ") {
		t.Errorf("f_12 slots = %v, want %v", inner.VarNames, wantNames)
	}

	code := inner.Code
	if Opcode(code[len(code)-1]) != OpReturn {
		t.Errorf("f_12 ends with %s", Opcode(code[len(code)-1]))
	}
}

func TestCompileConstantsDeduplicated(t *testing.T) {
	m := compileSource(t, "2 + 2 * 2")
	entry, err := m.MainChunk()
	if err != nil {
		t.Fatal(err)
	}
	if len(entry.Constants) != 1 || entry.Constants[0] != 2 {
		t.Errorf("constants = %v, want [2]", entry.Constants)
	}
}

func TestCompileRejectsUnverifiedProgram(t *testing.T) {
	x := compiler.Variable{Name: "x", ID: 0}
	p := &compiler.Program{Main: &compiler.Seq{Tail: compiler.LocalValue{Var: x}}}
	if _, err := Compile(p); err == nil || !strings.HasPrefix(err.Error(), "bytecode: ") {
		t.Errorf("Compile = %v, want a bytecode error", err)
	}
}
