package compiler

import "errors"

// ---------------------------------------------------------------------------
// Type inference: syntax-directed, monomorphic, destructive unification
// ---------------------------------------------------------------------------

// InferOptions configures the inferencer.
type InferOptions struct {
	// OccursCheck rejects self-referential types such as the one \x. x x
	// would need.
	OccursCheck bool
}

// Inferencer assigns types to an alpha-converted tree. A failed inference
// leaves the table partially solved; use a new Inferencer for a new run.
type Inferencer struct {
	table *TypeTable
}

// NewInferencer creates an inferencer for a tree whose alpha conversion
// allocated n identities.
func NewInferencer(n int, opts InferOptions) *Inferencer {
	table := NewTypeTable(n)
	table.OccursCheck = opts.OccursCheck
	return &Inferencer{table: table}
}

// Table returns the underlying type table.
func (inf *Inferencer) Table() *TypeTable {
	return inf.table
}

// Next returns the first identity not used by the type table.
func (inf *Inferencer) Next() int {
	return inf.table.Len()
}

// Infer returns the type of e, simplified at the top level.
func (inf *Inferencer) Infer(e Expr) (Type, error) {
	switch n := e.(type) {
	case *VarRef:
		return inf.env(n.Var), nil

	case *Abs:
		param := inf.env(n.Param)
		body, err := inf.Infer(n.Body)
		if err != nil {
			return nil, err
		}
		return Arrow(param, body), nil

	case *App:
		fn, err := inf.Infer(n.Func)
		if err != nil {
			return nil, err
		}
		arg, err := inf.Infer(n.Arg)
		if err != nil {
			return nil, err
		}
		result := inf.table.Fresh()
		if err := inf.table.Unify(fn, Arrow(arg, result)); err != nil {
			return nil, atPosition(err, n.SpanVal.Start)
		}
		if !inf.table.OccursCheck {
			// Without the occurs check a cycle can only appear here.
			if err := inf.table.checkAcyclic(Arrow(fn, arg)); err != nil {
				return nil, atPosition(err, n.SpanVal.Start)
			}
		}
		return inf.table.Simplify(result), nil

	case *IntLiteral:
		return Int, nil

	case *BinaryOp:
		left, err := inf.Infer(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := inf.Infer(n.Right)
		if err != nil {
			return nil, err
		}
		if err := inf.table.Unify(left, Int); err != nil {
			return nil, atPosition(err, n.Left.Span().Start)
		}
		if err := inf.table.Unify(right, Int); err != nil {
			return nil, atPosition(err, n.Right.Span().Start)
		}
		return Int, nil

	default:
		internalError("type inference: unexpected node %T", e)
		return nil, nil
	}
}

// env returns the type slot of a resolved variable.
func (inf *Inferencer) env(v Variable) Type {
	t, ok := inf.table.Env(v.ID)
	if !ok {
		internalError("type inference: variable %s has no type slot", v)
	}
	return t
}

// TypeOf looks up the type of a node of an already inferred tree, fully
// resolved. It reports false for nodes whose type cannot be determined,
// such as applications of a non-function.
func (inf *Inferencer) TypeOf(e Expr) (Type, bool) {
	switch n := e.(type) {
	case *VarRef:
		t, ok := inf.table.Env(n.Var.ID)
		if !ok {
			return nil, false
		}
		return inf.table.Resolve(t), true
	case *Abs:
		param, ok := inf.table.Env(n.Param.ID)
		if !ok {
			return nil, false
		}
		body, ok := inf.TypeOf(n.Body)
		if !ok {
			return nil, false
		}
		return Arrow(inf.table.Resolve(param), body), true
	case *App:
		fn, ok := inf.TypeOf(n.Func)
		if !ok {
			return nil, false
		}
		arrow, ok := fn.(*ArrowType)
		if !ok {
			return nil, false
		}
		return arrow.Result, true
	case *IntLiteral, *BinaryOp:
		return Int, true
	default:
		return nil, false
	}
}

// Resolve fully substitutes solved type variables in t.
func (inf *Inferencer) Resolve(t Type) Type {
	return inf.table.Resolve(t)
}

// atPosition stamps a type mismatch with the source position of the
// expression being checked.
func atPosition(err error, pos Position) error {
	var tm *TypeMismatchError
	if errors.As(err, &tm) {
		tm.Pos = pos
	}
	return err
}

// InferType runs a fresh inference over a tree whose alpha conversion
// allocated n identities.
func InferType(scoped Expr, n int, opts InferOptions) (Type, *Inferencer, error) {
	inf := NewInferencer(n, opts)
	t, err := inf.Infer(scoped)
	if err != nil {
		return nil, inf, err
	}
	return inf.Resolve(t), inf, nil
}
