// Package wat emits a hoisted program as WebAssembly text.
//
// Every value is an i32: integers, table indices of functions and
// addresses of tuples. Tuples are bump-allocated from linear memory through
// the $stack_pointer global and never freed. Calls go through a funcref
// table holding every hoisted function, so a closure's code pointer is
// simply its table index.
package wat

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chazu/lamc/compiler"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lamc.wat")

// EntryPoint is the exported name of main.
const EntryPoint = "_start"

// Emit renders p as a WAT module.
func Emit(p *compiler.Program) (string, error) {
	if err := compiler.Verify(p); err != nil {
		return "", fmt.Errorf("wat: %w", err)
	}

	e := &emitter{table: make(map[compiler.Variable]int, len(p.Funcs))}
	for i, fn := range p.Funcs {
		e.table[fn.Name] = i
	}

	e.line(0, "(module")
	e.line(1, "(memory 1)")
	e.line(1, "(global $stack_pointer (mut i32) (i32.const 0))")
	e.line(1, fmt.Sprintf("(table %d funcref)", len(p.Funcs)))
	if len(p.Funcs) > 0 {
		names := make([]string, len(p.Funcs))
		for i, fn := range p.Funcs {
			names[i] = "$" + fn.Name.String()
		}
		e.line(1, fmt.Sprintf("(elem (i32.const 0) %s)", strings.Join(names, " ")))
	}
	for _, n := range arities(p) {
		e.line(1, fmt.Sprintf("(type %s (func%s (result i32)))", typeName(n), i32Params(n)))
	}

	for _, fn := range p.Funcs {
		if err := e.function(fn.Name.String(), fn.Params, fn.Body); err != nil {
			return "", err
		}
	}
	if err := e.function(EntryPoint, nil, p.Main); err != nil {
		return "", err
	}
	e.line(1, fmt.Sprintf("(export %q (func $%s))", EntryPoint, EntryPoint))
	e.line(0, ")")

	log.Debug("emitted module", "functions", len(p.Funcs), "bytes", e.sb.Len())
	return e.sb.String(), nil
}

type emitter struct {
	sb    strings.Builder
	table map[compiler.Variable]int
}

func (e *emitter) line(indent int, s string) {
	e.sb.WriteString(strings.Repeat("  ", indent))
	e.sb.WriteString(s)
	e.sb.WriteByte('\n')
}

func (e *emitter) function(name string, params []compiler.Variable, body *compiler.Seq) error {
	var header strings.Builder
	header.WriteString("(func $" + name)
	for _, p := range params {
		header.WriteString(fmt.Sprintf(" (param $%s i32)", p))
	}
	header.WriteString(" (result i32)")
	e.line(1, header.String())

	// locals in first-binding order
	if len(body.Stmts) > 0 {
		locals := make([]string, len(body.Stmts))
		for i, st := range body.Stmts {
			locals[i] = fmt.Sprintf("(local $%s i32)", st.Bound())
		}
		e.line(2, strings.Join(locals, " "))
	}

	for _, st := range body.Stmts {
		if err := e.stmt(st); err != nil {
			return fmt.Errorf("wat: %s: %w", name, err)
		}
	}
	if body.Tail == nil {
		e.line(2, "i32.const 0")
	} else if err := e.value(body.Tail); err != nil {
		return fmt.Errorf("wat: %s: %w", name, err)
	}
	e.line(1, ")")
	return nil
}

func (e *emitter) stmt(st compiler.Stmt) error {
	switch s := st.(type) {
	case *compiler.AppStmt:
		for _, a := range s.Args {
			if err := e.value(a); err != nil {
				return err
			}
		}
		e.line(2, fmt.Sprintf("(call_indirect (type %s) (local.get $%s))", typeName(len(s.Args)), s.Callee))

	case *compiler.BinOpStmt:
		if err := e.value(s.Left); err != nil {
			return err
		}
		if err := e.value(s.Right); err != nil {
			return err
		}
		e.line(2, instruction(s.Op))

	case *compiler.TupleStmt:
		for i, v := range s.Elems {
			e.line(2, "global.get $stack_pointer")
			if err := e.value(v); err != nil {
				return err
			}
			e.line(2, fmt.Sprintf("i32.store offset=%d", 4*i))
		}
		e.line(2, "global.get $stack_pointer")
		e.line(2, fmt.Sprintf("local.set $%s", s.Result))
		e.line(2, "global.get $stack_pointer")
		e.line(2, fmt.Sprintf("i32.const %d", 4*len(s.Elems)))
		e.line(2, "i32.add")
		e.line(2, "global.set $stack_pointer")
		return nil

	case *compiler.ProjectStmt:
		e.line(2, fmt.Sprintf("local.get $%s", s.Tuple))
		e.line(2, fmt.Sprintf("i32.load offset=%d", 4*s.Index))

	default:
		return fmt.Errorf("unexpected statement %s", st)
	}

	e.line(2, fmt.Sprintf("local.set $%s", st.Bound()))
	return nil
}

func (e *emitter) value(v compiler.Value) error {
	switch x := v.(type) {
	case compiler.IntValue:
		if x.N < math.MinInt32 || x.N > math.MaxInt32 {
			return fmt.Errorf("integer %d does not fit in i32", x.N)
		}
		e.line(2, fmt.Sprintf("i32.const %d", x.N))
	case compiler.LocalValue:
		e.line(2, fmt.Sprintf("local.get $%s", x.Var))
	case compiler.GlobalValue:
		idx, ok := e.table[x.Var]
		if !ok {
			return fmt.Errorf("undefined function %s", x)
		}
		e.line(2, fmt.Sprintf("i32.const %d", idx))
	default:
		return fmt.Errorf("unexpected value %v", v)
	}
	return nil
}

func instruction(op compiler.Operator) string {
	switch op {
	case compiler.OpSub:
		return "i32.sub"
	case compiler.OpMul:
		return "i32.mul"
	case compiler.OpDiv:
		return "i32.div_s"
	default:
		return "i32.add"
	}
}

// arities lists the distinct call arities of p in ascending order.
func arities(p *compiler.Program) []int {
	seen := make(map[int]bool)
	collect := func(s *compiler.Seq) {
		for _, st := range s.Stmts {
			if app, ok := st.(*compiler.AppStmt); ok {
				seen[len(app.Args)] = true
			}
		}
	}
	for _, fn := range p.Funcs {
		seen[len(fn.Params)] = true
		collect(fn.Body)
	}
	collect(p.Main)

	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func typeName(arity int) string {
	return fmt.Sprintf("$t%d", arity)
}

func i32Params(n int) string {
	if n == 0 {
		return ""
	}
	return " (param" + strings.Repeat(" i32", n) + ")"
}
