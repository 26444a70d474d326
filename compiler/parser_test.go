package compiler

import (
	"errors"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"x", "x"},
		{`\x. x`, `\x. x`},
		{"f x y", "f x y"},
		{"f (g x)", "f (g x)"},
		{"1 + 2 * 3", "1 + 2 * 3"},
		{"(1 + 2) * 3", "(1 + 2) * 3"},
		{"1 - 2 - 3", "1 - 2 - 3"},
		{"1 - (2 - 3)", "1 - (2 - 3)"},
		{"f x + g y", "f x + g y"},
		{`(\x. \y. x + y) 2 3`, `(\x. \y. x + y) 2 3`},
		{`\x. x + 1`, `\x. x + 1`},
		{`(\x. x) + 1`, `(\x. x) + 1`},
	}

	for _, tc := range tests {
		e, err := Parse(tc.input)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if got := Format(e); got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseApplicationIsLeftAssociative(t *testing.T) {
	e, err := Parse("f x y")
	if err != nil {
		t.Fatal(err)
	}
	outer, ok := e.(*App)
	if !ok {
		t.Fatalf("expected *App, got %T", e)
	}
	inner, ok := outer.Func.(*App)
	if !ok {
		t.Fatalf("expected callee *App, got %T", outer.Func)
	}
	if v := inner.Func.(*VarRef).Var.Name; v != "f" {
		t.Errorf("innermost callee = %s, want f", v)
	}
	if v := outer.Arg.(*VarRef).Var.Name; v != "y" {
		t.Errorf("outer argument = %s, want y", v)
	}
}

func TestParseAbstractionBodyExtendsRight(t *testing.T) {
	e, err := Parse(`\x. f x + 1`)
	if err != nil {
		t.Fatal(err)
	}
	abs, ok := e.(*Abs)
	if !ok {
		t.Fatalf("expected *Abs, got %T", e)
	}
	if abs.Param.Name != "x" || abs.Param.Resolved() {
		t.Errorf("param = %v, want unresolved x", abs.Param)
	}
	if _, ok := abs.Body.(*BinaryOp); !ok {
		t.Errorf("body = %T, want *BinaryOp", abs.Body)
	}
}

func TestParseSpans(t *testing.T) {
	e, err := Parse("f 12")
	if err != nil {
		t.Fatal(err)
	}
	app := e.(*App)
	if app.Span().Start.Offset != 0 || app.Span().End.Offset != 4 {
		t.Errorf("app span = %d..%d, want 0..4", app.Span().Start.Offset, app.Span().End.Offset)
	}
	arg := app.Arg.(*IntLiteral)
	if arg.Value != 12 || arg.Span().Start.Column != 3 {
		t.Errorf("arg = %d at column %d, want 12 at column 3", arg.Value, arg.Span().Start.Column)
	}
	if n := NodeAt(e, 3); n != arg {
		t.Errorf("NodeAt(3) = %v, want the literal", n)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		line  int
		col   int
	}{
		{"", 1, 1},
		{"(x", 1, 3},
		{`\ . x`, 1, 3},
		{`\x x`, 1, 4},
		{"x )", 1, 3},
		{"1 +", 1, 4},
		{"x $ y", 1, 3},
		{"\n\n  +", 3, 3},
	}

	for _, tc := range tests {
		_, err := Parse(tc.input)
		if err == nil {
			t.Errorf("Parse(%q): expected error", tc.input)
			continue
		}
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("Parse(%q): error %T, want *SyntaxError", tc.input, err)
			continue
		}
		if se.Pos.Line != tc.line || se.Pos.Column != tc.col {
			t.Errorf("Parse(%q): error at %s, want line %d, column %d", tc.input, se.Pos, tc.line, tc.col)
		}
	}
}
