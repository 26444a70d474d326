package bytecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lamc.bytecode")

// Kind tags a runtime value.
type Kind uint8

const (
	KindUnit Kind = iota
	KindInt
	KindTuple
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindInt:
		return "int"
	case KindTuple:
		return "tuple"
	case KindFunc:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a VM value. Tuples are shared by reference; they are never
// mutated after MAKE_TUPLE.
type Value struct {
	Kind  Kind
	Int   int64
	Tuple []Value
	Func  int // index into Module.Functions
}

// Unit is the value of a program whose main has no result.
var Unit = Value{Kind: KindUnit}

// IntValue wraps an integer.
func IntValue(n int64) Value {
	return Value{Kind: KindInt, Int: n}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindTuple:
		parts := make([]string, len(v.Tuple))
		for i, e := range v.Tuple {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindFunc:
		return fmt.Sprintf("<function %d>", v.Func)
	default:
		return "()"
	}
}

// Runtime failures. They are wrapped in a *RuntimeError.
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrTypeMismatch   = errors.New("operand has the wrong kind")
	ErrArity          = errors.New("wrong number of arguments")
	ErrCallDepth      = errors.New("call depth exceeded")
	ErrBadBytecode    = errors.New("malformed bytecode")
)

// RuntimeError locates a failure in the module.
type RuntimeError struct {
	Func   string
	Offset int
	Err    error
	Detail string
}

func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("runtime error in %s at %04X: %v", e.Func, e.Offset, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// DefaultMaxDepth bounds the call stack.
const DefaultMaxDepth = 10000

// CallFrame represents an active function invocation.
type CallFrame struct {
	chunk  *Chunk
	ip     int
	locals []Value
}

// VM executes bytecode modules.
type VM struct {
	module *Module
	stack  []Value
	frames []CallFrame

	// MaxDepth limits nested calls.
	MaxDepth int

	// Trace logs every instruction at debug level.
	Trace bool
}

// NewVM creates a new VM instance.
func NewVM() *VM {
	return &VM{
		stack:    make([]Value, 0, 64),
		frames:   make([]CallFrame, 0, 16),
		MaxDepth: DefaultMaxDepth,
	}
}

// Run executes the module's main function and returns its result.
func (vm *VM) Run(m *Module) (Value, error) {
	entry, err := m.MainChunk()
	if err != nil {
		return Unit, err
	}
	if entry.ParamCount != 0 {
		return Unit, fmt.Errorf("bytecode: main takes %d parameters", entry.ParamCount)
	}
	vm.module = m
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.frames = append(vm.frames, CallFrame{chunk: entry, locals: make([]Value, entry.LocalCount)})
	return vm.run()
}

// run is the main execution loop.
func (vm *VM) run() (Value, error) {
	for {
		f := &vm.frames[len(vm.frames)-1]
		code := f.chunk.Code
		if f.ip >= len(code) {
			return Unit, vm.fail(f, f.ip, ErrBadBytecode, "execution ran past the end of the function")
		}

		start := f.ip
		op := Opcode(code[f.ip])
		if f.ip+op.InstructionLen() > len(code) {
			return Unit, vm.fail(f, start, ErrBadBytecode, "truncated instruction "+op.String())
		}
		f.ip++

		if vm.Trace {
			log.Debug("exec", "func", f.chunk.Name, "offset", start, "op", op.String(), "stack", len(vm.stack))
		}

		switch op {
		case OpNop:

		case OpPop:
			if _, err := vm.pop(f, start); err != nil {
				return Unit, err
			}

		// ============ Constants ============
		case OpConst:
			idx := int(f.chunk.readUint16(f.ip))
			f.ip += 2
			if idx >= len(f.chunk.Constants) {
				return Unit, vm.fail(f, start, ErrBadBytecode, fmt.Sprintf("constant %d out of range", idx))
			}
			vm.push(IntValue(f.chunk.Constants[idx]))

		case OpConstUnit:
			vm.push(Unit)

		// ============ Local Slots ============
		case OpLoadLocal:
			slot := int(f.chunk.readUint16(f.ip))
			f.ip += 2
			if slot >= len(f.locals) {
				return Unit, vm.fail(f, start, ErrBadBytecode, fmt.Sprintf("slot %d out of range", slot))
			}
			vm.push(f.locals[slot])

		case OpStoreLocal:
			slot := int(f.chunk.readUint16(f.ip))
			f.ip += 2
			if slot >= len(f.locals) {
				return Unit, vm.fail(f, start, ErrBadBytecode, fmt.Sprintf("slot %d out of range", slot))
			}
			v, err := vm.pop(f, start)
			if err != nil {
				return Unit, err
			}
			f.locals[slot] = v

		case OpLoadFunc:
			idx := int(f.chunk.readUint16(f.ip))
			f.ip += 2
			if idx >= len(vm.module.Functions) {
				return Unit, vm.fail(f, start, ErrBadBytecode, fmt.Sprintf("function %d out of range", idx))
			}
			vm.push(Value{Kind: KindFunc, Func: idx})

		// ============ Arithmetic ============
		case OpAdd, OpSub, OpMul, OpDiv:
			b, err := vm.popKind(f, start, KindInt)
			if err != nil {
				return Unit, err
			}
			a, err := vm.popKind(f, start, KindInt)
			if err != nil {
				return Unit, err
			}
			switch op {
			case OpAdd:
				vm.push(IntValue(a.Int + b.Int))
			case OpSub:
				vm.push(IntValue(a.Int - b.Int))
			case OpMul:
				vm.push(IntValue(a.Int * b.Int))
			case OpDiv:
				if b.Int == 0 {
					return Unit, vm.fail(f, start, ErrDivisionByZero, "")
				}
				vm.push(IntValue(a.Int / b.Int))
			}

		// ============ Tuples ============
		case OpMakeTuple:
			n := int(code[f.ip])
			f.ip++
			if n > len(vm.stack) {
				return Unit, vm.fail(f, start, ErrBadBytecode, "stack underflow")
			}
			elems := make([]Value, n)
			copy(elems, vm.stack[len(vm.stack)-n:])
			vm.stack = vm.stack[:len(vm.stack)-n]
			vm.push(Value{Kind: KindTuple, Tuple: elems})

		case OpProject:
			idx := int(code[f.ip])
			f.ip++
			t, err := vm.popKind(f, start, KindTuple)
			if err != nil {
				return Unit, err
			}
			if idx >= len(t.Tuple) {
				return Unit, vm.fail(f, start, ErrBadBytecode, fmt.Sprintf("field %d of a %d-tuple", idx, len(t.Tuple)))
			}
			vm.push(t.Tuple[idx])

		// ============ Calls ============
		case OpCall:
			argc := int(code[f.ip])
			f.ip++
			if argc+1 > len(vm.stack) {
				return Unit, vm.fail(f, start, ErrBadBytecode, "stack underflow")
			}
			base := len(vm.stack) - argc - 1
			callee := vm.stack[base]
			if callee.Kind != KindFunc {
				return Unit, vm.fail(f, start, ErrTypeMismatch, "called a "+callee.Kind.String())
			}
			target := vm.module.Functions[callee.Func]
			if int(target.ParamCount) != argc {
				return Unit, vm.fail(f, start, ErrArity,
					fmt.Sprintf("%s takes %d, got %d", target.Name, target.ParamCount, argc))
			}
			if len(vm.frames) >= vm.MaxDepth {
				return Unit, vm.fail(f, start, ErrCallDepth, "")
			}
			if int(target.LocalCount) < argc {
				return Unit, vm.fail(f, start, ErrBadBytecode, target.Name+" has fewer slots than parameters")
			}
			locals := make([]Value, target.LocalCount)
			copy(locals, vm.stack[base+1:])
			vm.stack = vm.stack[:base]
			vm.frames = append(vm.frames, CallFrame{chunk: target, locals: locals})

		// ============ Return ============
		case OpReturn, OpReturnUnit:
			result := Unit
			if op == OpReturn {
				v, err := vm.pop(f, start)
				if err != nil {
					return Unit, err
				}
				result = v
			}
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				return result, nil
			}
			vm.push(result)

		default:
			return Unit, vm.fail(f, start, ErrBadBytecode, fmt.Sprintf("unknown opcode 0x%02X", byte(op)))
		}
	}
}

// Stack helpers

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop(f *CallFrame, offset int) (Value, error) {
	if len(vm.stack) == 0 {
		return Unit, vm.fail(f, offset, ErrBadBytecode, "stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) popKind(f *CallFrame, offset int, want Kind) (Value, error) {
	v, err := vm.pop(f, offset)
	if err != nil {
		return Unit, err
	}
	if v.Kind != want {
		return Unit, vm.fail(f, offset, ErrTypeMismatch, fmt.Sprintf("want %s, got %s", want, v.Kind))
	}
	return v, nil
}

func (vm *VM) fail(f *CallFrame, offset int, err error, detail string) error {
	return &RuntimeError{Func: f.chunk.Name, Offset: offset, Err: err, Detail: detail}
}

// Run executes m on a fresh VM.
func Run(m *Module) (Value, error) {
	return NewVM().Run(m)
}
