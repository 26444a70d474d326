package compiler

// ---------------------------------------------------------------------------
// Hoisting: lift every function definition to the top level
// ---------------------------------------------------------------------------

// Hoist flattens a closure-converted sequence into a program. Definitions
// are listed innermost first, in the order they are met depth-first; every
// other statement keeps its place in its enclosing sequence.
func Hoist(seq *Seq) *Program {
	h := &hoister{}
	main := h.seq(seq, 0)
	return &Program{Funcs: h.funcs, Main: main}
}

type hoister struct {
	funcs []FuncDef
}

// seq returns s without its function statements, recording each of them
// (after their own nested definitions) in h.funcs.
func (h *hoister) seq(s *Seq, level int) *Seq {
	out := &Seq{Level: level, Tail: s.Tail}
	for _, st := range s.Stmts {
		fn, ok := st.(*FunStmt)
		if !ok {
			out.Stmts = append(out.Stmts, st)
			continue
		}
		body := h.seq(fn.Body, 1)
		h.funcs = append(h.funcs, FuncDef{Name: fn.Name, Params: fn.Params, Body: body})
	}
	return out
}
