package bytecode

import (
	"errors"
	"testing"
)

func chunk(name string, params uint8, locals uint16, build func(c *Chunk)) *Chunk {
	c := NewChunk(name)
	c.ParamCount = params
	c.LocalCount = locals
	build(c)
	return c
}

func constant(c *Chunk, n int64) {
	idx, err := c.AddConstant(n)
	if err != nil {
		panic(err)
	}
	c.EmitUint16(OpConst, idx)
}

func module(funcs ...*Chunk) *Module {
	return &Module{Version: BytecodeVersion, Functions: funcs, Main: len(funcs) - 1}
}

func TestVMArithmetic(t *testing.T) {
	tests := []struct {
		op   Opcode
		a, b int64
		want int64
	}{
		{OpAdd, 3, 4, 7},
		{OpSub, 3, 4, -1},
		{OpMul, 3, 4, 12},
		{OpDiv, 9, 2, 4},
		{OpDiv, -9, 2, -4},
	}
	for _, tc := range tests {
		m := module(chunk("main", 0, 0, func(c *Chunk) {
			constant(c, tc.a)
			constant(c, tc.b)
			c.Emit(tc.op)
			c.Emit(OpReturn)
		}))
		got, err := Run(m)
		if err != nil {
			t.Errorf("%d %s %d: %v", tc.a, tc.op, tc.b, err)
			continue
		}
		if got.Int != tc.want {
			t.Errorf("%d %s %d = %s, want %d", tc.a, tc.op, tc.b, got, tc.want)
		}
	}
}

func TestVMLocalsAndCall(t *testing.T) {
	// double(x) = x + x; main = double(21)
	double := chunk("double", 1, 2, func(c *Chunk) {
		c.EmitUint16(OpLoadLocal, 0)
		c.EmitUint16(OpLoadLocal, 0)
		c.Emit(OpAdd)
		c.EmitUint16(OpStoreLocal, 1)
		c.EmitUint16(OpLoadLocal, 1)
		c.Emit(OpReturn)
	})
	entry := chunk("main", 0, 1, func(c *Chunk) {
		c.EmitUint16(OpLoadFunc, 0)
		constant(c, 21)
		c.EmitWithOperand(OpCall, 1)
		c.EmitUint16(OpStoreLocal, 0)
		c.EmitUint16(OpLoadLocal, 0)
		c.Emit(OpReturn)
	})
	got, err := Run(module(double, entry))
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindInt || got.Int != 42 {
		t.Errorf("got %s, want 42", got)
	}
}

func TestVMTuples(t *testing.T) {
	m := module(chunk("main", 0, 0, func(c *Chunk) {
		constant(c, 1)
		constant(c, 2)
		constant(c, 3)
		c.EmitWithOperand(OpMakeTuple, 3)
		c.EmitWithOperand(OpProject, 1)
		c.Emit(OpReturn)
	}))
	got, err := Run(m)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int != 2 {
		t.Errorf("got %s, want 2", got)
	}
}

func TestVMReturnUnit(t *testing.T) {
	m := module(chunk("main", 0, 0, func(c *Chunk) {
		c.Emit(OpNop)
		c.Emit(OpReturnUnit)
	}))
	got, err := Run(m)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindUnit || got.String() != "()" {
		t.Errorf("got %s (%s), want unit", got, got.Kind)
	}
}

func TestVMClosureResult(t *testing.T) {
	m := compileSource(t, `\x. \y. x + y`)
	got, err := Run(m)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindTuple || len(got.Tuple) != 1 || got.Tuple[0].Kind != KindFunc {
		t.Errorf("got %s, want a closure with no captures", got)
	}
}

func TestVMRuntimeErrors(t *testing.T) {
	self := chunk("loop", 0, 0, func(c *Chunk) {
		c.EmitUint16(OpLoadFunc, 0)
		c.EmitWithOperand(OpCall, 0)
		c.Emit(OpReturn)
	})
	unary := chunk("unary", 1, 1, func(c *Chunk) {
		c.EmitUint16(OpLoadLocal, 0)
		c.Emit(OpReturn)
	})
	callFirst := chunk("main", 0, 0, func(c *Chunk) {
		c.EmitUint16(OpLoadFunc, 0)
		c.EmitWithOperand(OpCall, 0)
		c.Emit(OpReturn)
	})

	tests := []struct {
		name string
		m    *Module
		want error
	}{
		{
			name: "division by zero",
			m:    compileSource(t, "1 / (2 - 2)"),
			want: ErrDivisionByZero,
		},
		{
			name: "call an integer",
			m: module(chunk("main", 0, 0, func(c *Chunk) {
				constant(c, 1)
				c.EmitWithOperand(OpCall, 0)
				c.Emit(OpReturn)
			})),
			want: ErrTypeMismatch,
		},
		{
			name: "add a tuple",
			m: module(chunk("main", 0, 0, func(c *Chunk) {
				c.EmitWithOperand(OpMakeTuple, 0)
				constant(c, 1)
				c.Emit(OpAdd)
				c.Emit(OpReturn)
			})),
			want: ErrTypeMismatch,
		},
		{
			name: "arity",
			m:    module(unary, callFirst),
			want: ErrArity,
		},
		{
			name: "projection out of range",
			m: module(chunk("main", 0, 0, func(c *Chunk) {
				constant(c, 1)
				c.EmitWithOperand(OpMakeTuple, 1)
				c.EmitWithOperand(OpProject, 3)
				c.Emit(OpReturn)
			})),
			want: ErrBadBytecode,
		},
		{
			name: "stack underflow",
			m: module(chunk("main", 0, 0, func(c *Chunk) {
				c.Emit(OpReturn)
			})),
			want: ErrBadBytecode,
		},
		{
			name: "missing return",
			m: module(chunk("main", 0, 0, func(c *Chunk) {
				constant(c, 1)
			})),
			want: ErrBadBytecode,
		},
		{
			name: "truncated operand",
			m: module(chunk("main", 0, 0, func(c *Chunk) {
				c.Emit(OpLoadLocal)
			})),
			want: ErrBadBytecode,
		},
		{
			name: "unknown opcode",
			m: module(chunk("main", 0, 0, func(c *Chunk) {
				c.Emit(Opcode(0xEE))
			})),
			want: ErrBadBytecode,
		},
		{
			name: "unbounded recursion",
			m:    module(self, callFirst),
			want: ErrCallDepth,
		},
	}

	for _, tc := range tests {
		vm := NewVM()
		vm.MaxDepth = 64
		_, err := vm.Run(tc.m)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
			continue
		}
		var rerr *RuntimeError
		if !errors.As(err, &rerr) {
			t.Errorf("%s: %T is not a *RuntimeError", tc.name, err)
		}
	}
}

func TestVMRuntimeErrorLocation(t *testing.T) {
	m := module(chunk("main", 0, 0, func(c *Chunk) {
		constant(c, 1)
		constant(c, 0)
		c.Emit(OpDiv)
		c.Emit(OpReturn)
	}))
	_, err := Run(m)
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v", err)
	}
	if rerr.Func != "main" || rerr.Offset != 6 {
		t.Errorf("error at %s+%d, want main+6", rerr.Func, rerr.Offset)
	}
	if rerr.Error() != "runtime error in main at 0006: division by zero" {
		t.Errorf("Error() = %q", rerr.Error())
	}
}

func TestVMMainIndex(t *testing.T) {
	m := &Module{Version: BytecodeVersion, Main: 3}
	if _, err := Run(m); err == nil {
		t.Error("expected an error for a missing main")
	}
}

func TestVMReusable(t *testing.T) {
	vm := NewVM()
	for i := 0; i < 3; i++ {
		got, err := vm.Run(compileSource(t, `(\x. x * 2) 5`))
		if err != nil {
			t.Fatal(err)
		}
		if got.Int != 10 {
			t.Errorf("run %d = %s", i, got)
		}
	}
}
