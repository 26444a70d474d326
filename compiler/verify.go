package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Structural checks on ANF output, used by backends before emitting code
// ---------------------------------------------------------------------------

// CheckSingleAssignment reports an error if any variable in seq (including
// nested function parameters and bodies) is bound more than once.
func CheckSingleAssignment(seq *Seq) error {
	seen := make(map[int]bool)
	return checkSeqBindings(seq, seen)
}

func checkSeqBindings(seq *Seq, seen map[int]bool) error {
	for _, st := range seq.Stmts {
		if err := bindOnce(st.Bound(), seen); err != nil {
			return err
		}
		if fn, ok := st.(*FunStmt); ok {
			for _, p := range fn.Params {
				if err := bindOnce(p, seen); err != nil {
					return err
				}
			}
			if err := checkSeqBindings(fn.Body, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func bindOnce(v Variable, seen map[int]bool) error {
	if seen[v.ID] {
		return fmt.Errorf("variable %s bound more than once", v)
	}
	seen[v.ID] = true
	return nil
}

// Verify checks that p is flat (no function statements), single-assignment,
// closed (every function refers only to its parameters and its own earlier
// results) and that every global refers to a defined function.
func Verify(p *Program) error {
	globals := make(map[Variable]int, len(p.Funcs))
	for _, fn := range p.Funcs {
		globals[fn.Name] = len(fn.Params)
	}

	seen := make(map[int]bool)
	for _, fn := range p.Funcs {
		for _, param := range fn.Params {
			if err := bindOnce(param, seen); err != nil {
				return fmt.Errorf("function %s: %w", fn.Name, err)
			}
		}
		if err := verifyBody(fn.Body, fn.Params, globals, seen); err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}
	if err := verifyBody(p.Main, nil, globals, seen); err != nil {
		return fmt.Errorf("main: %w", err)
	}
	return nil
}

func verifyBody(body *Seq, params []Variable, globals map[Variable]int, seen map[int]bool) error {
	scope := make(map[int]bool, len(params)+len(body.Stmts))
	for _, p := range params {
		scope[p.ID] = true
	}

	use := func(v Value) error {
		switch x := v.(type) {
		case LocalValue:
			if !scope[x.Var.ID] {
				return fmt.Errorf("reference to %s, which is not bound in this function", x.Var)
			}
		case GlobalValue:
			if _, ok := globals[x.Var]; !ok {
				return fmt.Errorf("reference to undefined function %s", x)
			}
		}
		return nil
	}

	for _, st := range body.Stmts {
		var err error
		switch s := st.(type) {
		case *FunStmt:
			return fmt.Errorf("nested function %s was not hoisted", s.Name)
		case *AppStmt:
			err = use(LocalValue{Var: s.Callee})
			for _, a := range s.Args {
				if err == nil {
					err = use(a)
				}
			}
		case *BinOpStmt:
			if err = use(s.Left); err == nil {
				err = use(s.Right)
			}
		case *TupleStmt:
			for _, e := range s.Elems {
				if err == nil {
					err = use(e)
				}
			}
		case *ProjectStmt:
			err = use(LocalValue{Var: s.Tuple})
		}
		if err != nil {
			return err
		}
		if err := bindOnce(st.Bound(), seen); err != nil {
			return err
		}
		scope[st.Bound().ID] = true
	}
	if body.Tail != nil {
		return use(body.Tail)
	}
	return nil
}
