package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func inferSource(t *testing.T, src string, opts InferOptions) (Expr, Type, *Inferencer, error) {
	t.Helper()
	scoped, n, err := AlphaConvert(mustParse(t, src))
	if err != nil {
		t.Fatalf("AlphaConvert(%q): %v", src, err)
	}
	ty, inf, err := InferType(scoped, n, opts)
	return scoped, ty, inf, err
}

func TestUnify(t *testing.T) {
	table := NewTypeTable(1)
	v, _ := table.Env(0)

	if err := table.Unify(Int, Int); err != nil {
		t.Errorf("unify(Int, Int): %v", err)
	}
	if err := table.Unify(Arrow(Int, Int), Arrow(v, Int)); err != nil {
		t.Errorf("unify(Int -> Int, t0 -> Int): %v", err)
	}
	if got := table.Solution(v.(*TypeVar)); got != Int {
		t.Errorf("t0 = %v, want Int", got)
	}
	if err := table.Unify(Int, Arrow(Int, Int)); err == nil {
		t.Error("unify(Int, Int -> Int) succeeded")
	}
	if err := table.Unify(Arrow(Int, Int), Int); err == nil {
		t.Error("unify(Int -> Int, Int) succeeded")
	}
}

func TestUnifySameVariable(t *testing.T) {
	table := NewTypeTable(1)
	v, _ := table.Env(0)
	if err := table.Unify(v, v); err != nil {
		t.Fatal(err)
	}
	if table.Solution(v.(*TypeVar)) != nil {
		t.Error("unifying a variable with itself wrote its slot")
	}
}

func TestUnifyFollowsChains(t *testing.T) {
	table := NewTypeTable(3)
	a, _ := table.Env(0)
	b, _ := table.Env(1)
	c, _ := table.Env(2)

	for _, pair := range [][2]Type{{a, b}, {b, c}, {c, Int}} {
		if err := table.Unify(pair[0], pair[1]); err != nil {
			t.Fatalf("unify(%s, %s): %v", pair[0], pair[1], err)
		}
	}
	if got := table.Simplify(a); got != Int {
		t.Errorf("Simplify(t0) = %v, want Int", got)
	}
	if err := table.Unify(a, Arrow(Int, Int)); err == nil {
		t.Error("unify through a chain ignored the solution")
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	table := NewTypeTable(1)
	table.OccursCheck = true
	v, _ := table.Env(0)

	err := table.Unify(v, Arrow(v, Int))
	var tm *TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("error = %v, want *TypeMismatchError", err)
	}
	if tm.Reason != "infinite type" {
		t.Errorf("reason = %q, want %q", tm.Reason, "infinite type")
	}
	if table.Solution(v.(*TypeVar)) != nil {
		t.Error("failed occurs check still wrote the slot")
	}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "Int"},
		{"1 + 2 * 3", "Int"},
		{`\x. x`, "t0 -> t0"},
		{`\x. x + 1`, "Int -> Int"},
		{`\x. \y. x`, "t0 -> t1 -> t0"},
		{`\f. \x. f x`, "(t1 -> t2) -> t1 -> t2"},
		{`\x. \y. x + y`, "Int -> Int -> Int"},
		{`(\x. \y. x + y) 2`, "Int -> Int"},
		{`(\x. \y. x + y) 2 3`, "Int"},
		{`(\f. \x. f x) ((\x. \y. x + y) 2) 3`, "Int"},
		{`(\x. x) (\y. y)`, "t1 -> t1"},
	}

	for _, tc := range tests {
		_, ty, _, err := inferSource(t, tc.input, InferOptions{OccursCheck: true})
		if err != nil {
			t.Errorf("Infer(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if got := ty.String(); got != tc.want {
			t.Errorf("Infer(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestInferIdentityUsesOneVariable(t *testing.T) {
	_, ty, _, err := inferSource(t, `\x. x`, InferOptions{})
	if err != nil {
		t.Fatal(err)
	}
	arrow, ok := ty.(*ArrowType)
	if !ok {
		t.Fatalf("type = %T, want *ArrowType", ty)
	}
	p, ok1 := arrow.Param.(*TypeVar)
	r, ok2 := arrow.Result.(*TypeVar)
	if !ok1 || !ok2 || p.ID != r.ID {
		t.Errorf("type = %s, want the same variable on both sides", ty)
	}
}

func TestInferAllocatesResultVariables(t *testing.T) {
	_, _, inf, err := inferSource(t, `(\x. \y. x + y) 2 3`, InferOptions{})
	if err != nil {
		t.Fatal(err)
	}
	// two binders, two applications
	if inf.Next() != 4 {
		t.Errorf("Next() = %d, want 4", inf.Next())
	}
}

func TestInferErrors(t *testing.T) {
	tests := []struct {
		input  string
		col    int
		substr string
	}{
		{"1 2", 1, "cannot unify Int with Int -> t0"},
		{`(\x. x) + 1`, 2, "cannot unify t0 -> t0 with Int"},
		{`1 + (\x. x)`, 6, "cannot unify t0 -> t0 with Int"},
		{`(\x. x + 1) (\y. y)`, 2, "cannot unify Int with t1 -> t1"},
		{`\x. x x`, 5, "infinite type"},
	}

	for _, tc := range tests {
		_, _, _, err := inferSource(t, tc.input, InferOptions{OccursCheck: true})
		var tm *TypeMismatchError
		if !errors.As(err, &tm) {
			t.Errorf("Infer(%q): error = %v, want *TypeMismatchError", tc.input, err)
			continue
		}
		if tm.Pos.Column != tc.col {
			t.Errorf("Infer(%q): error at column %d, want %d", tc.input, tm.Pos.Column, tc.col)
		}
		if !strings.Contains(err.Error(), tc.substr) {
			t.Errorf("Infer(%q): error %q does not mention %q", tc.input, err, tc.substr)
		}
	}
}

func TestInferWithoutOccursCheck(t *testing.T) {
	tests := []struct {
		input string
		col   int
	}{
		{`\x. x x`, 5},
		{`\f. \x. f (x x)`, 12},
		{`(\y. 1) (\x. x x)`, 14},
	}
	for _, tc := range tests {
		scoped, n, err := AlphaConvert(mustParse(t, tc.input))
		if err != nil {
			t.Fatal(err)
		}
		inf := NewInferencer(n, InferOptions{OccursCheck: false})
		_, err = inf.Infer(scoped)
		var tm *TypeMismatchError
		if !errors.As(err, &tm) || tm.Reason != "infinite type" {
			t.Errorf("Infer(%q) without occurs check: error = %v, want an infinite type", tc.input, err)
			continue
		}
		if tm.Pos.Column != tc.col {
			t.Errorf("Infer(%q): error at column %d, want %d", tc.input, tm.Pos.Column, tc.col)
		}
	}

	// A well-typed term is unaffected.
	_, ty, _, err := inferSource(t, `\f. \x. f x`, InferOptions{OccursCheck: false})
	if err != nil || ty.String() != "(t1 -> t2) -> t1 -> t2" {
		t.Errorf("Infer without occurs check = %v, %v", ty, err)
	}
}

func TestResolveCycleIsInternalError(t *testing.T) {
	table := NewTypeTable(1)
	v := table.vars[0]
	table.slots[0] = Arrow(v, Int)

	defer func() {
		r := recover()
		if r == nil || !strings.HasPrefix(fmt.Sprint(r), "compiler: internal error") {
			t.Errorf("Resolve on a cycle: recovered %v", r)
		}
	}()
	table.Resolve(v)
}

func TestTypeOf(t *testing.T) {
	scoped, _, inf, err := inferSource(t, `(\x. \y. x + y) 2 3`, InferOptions{OccursCheck: true})
	if err != nil {
		t.Fatal(err)
	}

	outer := scoped.(*App)
	partial := outer.Func.(*App)
	adder := partial.Func.(*Abs)

	tests := []struct {
		node Expr
		want string
	}{
		{outer, "Int"},
		{partial, "Int -> Int"},
		{adder, "Int -> Int -> Int"},
		{adder.Body.(*Abs).Body.(*BinaryOp).Left, "Int"},
	}
	for _, tc := range tests {
		ty, ok := inf.TypeOf(tc.node)
		if !ok {
			t.Errorf("TypeOf(%s): no type", Format(tc.node))
			continue
		}
		if ty.String() != tc.want {
			t.Errorf("TypeOf(%s) = %s, want %s", Format(tc.node), ty, tc.want)
		}
	}
}
