package bytecode

import (
	"fmt"

	"github.com/chazu/lamc/compiler"
)

// Compile translates a hoisted program into a module. The program is
// verified first; bytecode is only generated for flat, closed programs.
func Compile(p *compiler.Program) (*Module, error) {
	if err := compiler.Verify(p); err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}

	funcs := make(map[compiler.Variable]uint16, len(p.Funcs))
	for i, fn := range p.Funcs {
		if i > 0xFFFF {
			return nil, fmt.Errorf("bytecode: too many functions")
		}
		funcs[fn.Name] = uint16(i)
	}

	m := &Module{Version: BytecodeVersion}
	for _, fn := range p.Funcs {
		c, err := compileFunction(fn.Name.String(), fn.Params, fn.Body, funcs)
		if err != nil {
			return nil, err
		}
		m.Functions = append(m.Functions, c)
	}
	entry, err := compileFunction("main", nil, p.Main, funcs)
	if err != nil {
		return nil, err
	}
	m.Main = len(m.Functions)
	m.Functions = append(m.Functions, entry)
	return m, nil
}

// funcCompiler holds the slot assignment for one function.
type funcCompiler struct {
	chunk *Chunk
	slots map[int]uint16
	funcs map[compiler.Variable]uint16
}

func compileFunction(name string, params []compiler.Variable, body *compiler.Seq, funcs map[compiler.Variable]uint16) (*Chunk, error) {
	if len(params) > 0xFF {
		return nil, fmt.Errorf("bytecode: %s has %d parameters, limit is 255", name, len(params))
	}
	if len(params)+len(body.Stmts) > 0xFFFF {
		return nil, fmt.Errorf("bytecode: %s needs more than 65535 slots", name)
	}

	fc := &funcCompiler{
		chunk: NewChunk(name),
		slots: make(map[int]uint16, len(params)+len(body.Stmts)),
		funcs: funcs,
	}
	for _, p := range params {
		fc.bind(p)
	}
	fc.chunk.ParamCount = uint8(len(params))

	for _, st := range body.Stmts {
		if err := fc.stmt(st); err != nil {
			return nil, fmt.Errorf("bytecode: %s: %w", name, err)
		}
	}

	if body.Tail == nil {
		fc.chunk.Emit(OpReturnUnit)
	} else {
		if err := fc.load(body.Tail); err != nil {
			return nil, fmt.Errorf("bytecode: %s: %w", name, err)
		}
		fc.chunk.Emit(OpReturn)
	}
	fc.chunk.LocalCount = uint16(len(fc.slots))
	return fc.chunk, nil
}

// bind allocates the next slot for v.
func (fc *funcCompiler) bind(v compiler.Variable) uint16 {
	slot := uint16(len(fc.slots))
	fc.slots[v.ID] = slot
	fc.chunk.VarNames = append(fc.chunk.VarNames, v.String())
	return slot
}

func (fc *funcCompiler) stmt(st compiler.Stmt) error {
	switch s := st.(type) {
	case *compiler.BinOpStmt:
		if err := fc.load(s.Left); err != nil {
			return err
		}
		if err := fc.load(s.Right); err != nil {
			return err
		}
		fc.chunk.Emit(arithmetic(s.Op))

	case *compiler.TupleStmt:
		if len(s.Elems) > 0xFF {
			return fmt.Errorf("tuple %s has %d fields, limit is 255", s.Result, len(s.Elems))
		}
		for _, e := range s.Elems {
			if err := fc.load(e); err != nil {
				return err
			}
		}
		fc.chunk.EmitWithOperand(OpMakeTuple, byte(len(s.Elems)))

	case *compiler.ProjectStmt:
		if s.Index > 0xFF {
			return fmt.Errorf("projection %s[%d] out of range", s.Tuple, s.Index)
		}
		if err := fc.load(compiler.LocalValue{Var: s.Tuple}); err != nil {
			return err
		}
		fc.chunk.EmitWithOperand(OpProject, byte(s.Index))

	case *compiler.AppStmt:
		if len(s.Args) > 0xFF {
			return fmt.Errorf("call %s has %d arguments, limit is 255", s.Result, len(s.Args))
		}
		if err := fc.load(compiler.LocalValue{Var: s.Callee}); err != nil {
			return err
		}
		for _, a := range s.Args {
			if err := fc.load(a); err != nil {
				return err
			}
		}
		fc.chunk.EmitWithOperand(OpCall, byte(len(s.Args)))

	default:
		return fmt.Errorf("unexpected statement %s", st)
	}

	fc.chunk.EmitUint16(OpStoreLocal, fc.bind(st.Bound()))
	return nil
}

// load pushes a value.
func (fc *funcCompiler) load(v compiler.Value) error {
	switch x := v.(type) {
	case compiler.IntValue:
		idx, err := fc.chunk.AddConstant(x.N)
		if err != nil {
			return err
		}
		fc.chunk.EmitUint16(OpConst, idx)
	case compiler.LocalValue:
		slot, ok := fc.slots[x.Var.ID]
		if !ok {
			return fmt.Errorf("no slot for %s", x.Var)
		}
		fc.chunk.EmitUint16(OpLoadLocal, slot)
	case compiler.GlobalValue:
		idx, ok := fc.funcs[x.Var]
		if !ok {
			return fmt.Errorf("undefined function %s", x)
		}
		fc.chunk.EmitUint16(OpLoadFunc, idx)
	default:
		return fmt.Errorf("unexpected value %v", v)
	}
	return nil
}

func arithmetic(op compiler.Operator) Opcode {
	switch op {
	case compiler.OpSub:
		return OpSub
	case compiler.OpMul:
		return OpMul
	case compiler.OpDiv:
		return OpDiv
	default:
		return OpAdd
	}
}
