package compiler

// ---------------------------------------------------------------------------
// Closure conversion: make every function closed
//
// A function literal f with free variables v1..vn becomes
//
//   let f' (env, params...) = let v1' = env[1] ... let vn' = env[n] in body'
//   let f = (@f', v1, ..., vn)
//
// where body' refers to the fresh names vi'. Slot 0 of the tuple holds the
// code pointer, so every call site becomes
//
//   let p = f[0] in let r = p(f, args...)
// ---------------------------------------------------------------------------

// ClosureConverter rewrites ANF sequences into closure-passing style.
type ClosureConverter struct {
	names *NameSupply
}

// NewClosureConverter creates a converter drawing fresh names from names.
func NewClosureConverter(names *NameSupply) *ClosureConverter {
	return &ClosureConverter{names: names}
}

// Convert returns a copy of seq in which every function literal, at any
// depth, is closed and every call goes through a closure tuple.
func (c *ClosureConverter) Convert(seq *Seq) *Seq {
	out := &Seq{Level: seq.Level, Tail: seq.Tail}
	for _, st := range seq.Stmts {
		switch s := st.(type) {
		case *FunStmt:
			env := c.names.Fresh("env")
			lifted := c.names.Fresh(s.Name.Name)
			free := FreeVars(s.Body, s.Params)

			renames := make(map[int]Variable, len(free))
			projections := make([]Stmt, len(free))
			for i, fv := range free {
				local := c.names.Fresh(fv.Name)
				renames[fv.ID] = local
				projections[i] = &ProjectStmt{Result: local, Tuple: env, Index: i + 1}
			}

			body := c.Convert(renameSeq(s.Body, renames))
			body.Stmts = append(projections, body.Stmts...)

			params := make([]Variable, 0, len(s.Params)+1)
			params = append(params, env)
			params = append(params, s.Params...)
			out.Stmts = append(out.Stmts, &FunStmt{Name: lifted, Params: params, Body: body})

			elems := make([]Value, 0, len(free)+1)
			elems = append(elems, GlobalValue{Var: lifted})
			for _, fv := range free {
				elems = append(elems, LocalValue{Var: fv})
			}
			out.Stmts = append(out.Stmts, &TupleStmt{Result: s.Name, Elems: elems})

		case *AppStmt:
			code := c.names.Fresh(s.Callee.Name)
			args := make([]Value, 0, len(s.Args)+1)
			args = append(args, LocalValue{Var: s.Callee})
			args = append(args, s.Args...)
			out.Stmts = append(out.Stmts,
				&ProjectStmt{Result: code, Tuple: s.Callee, Index: 0},
				&AppStmt{Result: s.Result, Callee: code, Args: args},
			)

		default:
			out.Stmts = append(out.Stmts, st)
		}
	}
	return out
}

// FreeVars returns the variables referenced in body that are bound neither
// by params nor by an earlier statement of body (or of a function nested
// in it). Each free variable appears once, in order of first reference.
func FreeVars(body *Seq, params []Variable) []Variable {
	fv := &freeVarCollector{
		bound: make(map[int]bool),
		seen:  make(map[int]bool),
	}
	for _, p := range params {
		fv.bound[p.ID] = true
	}
	fv.seq(body)
	return fv.free
}

type freeVarCollector struct {
	bound map[int]bool
	seen  map[int]bool
	free  []Variable
}

func (fv *freeVarCollector) seq(s *Seq) {
	for _, st := range s.Stmts {
		switch n := st.(type) {
		case *FunStmt:
			fv.bound[n.Name.ID] = true
			for _, p := range n.Params {
				fv.bound[p.ID] = true
			}
			fv.seq(n.Body)
		case *AppStmt:
			fv.ref(n.Callee)
			for _, a := range n.Args {
				fv.value(a)
			}
			fv.bound[n.Result.ID] = true
		case *BinOpStmt:
			fv.value(n.Left)
			fv.value(n.Right)
			fv.bound[n.Result.ID] = true
		default:
			internalError("free variables: %T before closure conversion", st)
		}
	}
	if s.Tail != nil {
		fv.value(s.Tail)
	}
}

func (fv *freeVarCollector) value(v Value) {
	if local, ok := v.(LocalValue); ok {
		fv.ref(local.Var)
	}
}

func (fv *freeVarCollector) ref(v Variable) {
	if fv.bound[v.ID] || fv.seen[v.ID] {
		return
	}
	fv.seen[v.ID] = true
	fv.free = append(fv.free, v)
}

// renameSeq substitutes variable references according to m. Binders are
// left alone; they are unique and never appear in m.
func renameSeq(s *Seq, m map[int]Variable) *Seq {
	if len(m) == 0 {
		return s
	}
	out := &Seq{Level: s.Level, Tail: renameValue(s.Tail, m)}
	out.Stmts = make([]Stmt, len(s.Stmts))
	for i, st := range s.Stmts {
		switch n := st.(type) {
		case *FunStmt:
			out.Stmts[i] = &FunStmt{Name: n.Name, Params: n.Params, Body: renameSeq(n.Body, m)}
		case *AppStmt:
			out.Stmts[i] = &AppStmt{Result: n.Result, Callee: renameVar(n.Callee, m), Args: renameValues(n.Args, m)}
		case *BinOpStmt:
			out.Stmts[i] = &BinOpStmt{Result: n.Result, Op: n.Op, Left: renameValue(n.Left, m), Right: renameValue(n.Right, m)}
		case *TupleStmt:
			out.Stmts[i] = &TupleStmt{Result: n.Result, Elems: renameValues(n.Elems, m)}
		case *ProjectStmt:
			out.Stmts[i] = &ProjectStmt{Result: n.Result, Tuple: renameVar(n.Tuple, m), Index: n.Index}
		default:
			internalError("rename: unexpected statement %T", st)
		}
	}
	return out
}

func renameVar(v Variable, m map[int]Variable) Variable {
	if r, ok := m[v.ID]; ok {
		return r
	}
	return v
}

func renameValue(v Value, m map[int]Variable) Value {
	if local, ok := v.(LocalValue); ok {
		return LocalValue{Var: renameVar(local.Var, m)}
	}
	return v
}

func renameValues(vals []Value, m map[int]Variable) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = renameValue(v, m)
	}
	return out
}
