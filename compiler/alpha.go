package compiler

// ---------------------------------------------------------------------------
// Alpha conversion: give every binder a unique identity
// ---------------------------------------------------------------------------

// binding associates a source name with the identity of its binder.
type binding struct {
	name string
	id   int
}

// AlphaConverter resolves every variable reference to the unique identity of
// the binder it refers to. Identities come from a single counter that is
// never rewound, so they are unique across the whole tree.
type AlphaConverter struct {
	scopes []binding // innermost binder last
	next   int
}

// NewAlphaConverter creates a converter whose first identity is 0.
func NewAlphaConverter() *AlphaConverter {
	return &AlphaConverter{}
}

// Count returns the number of identities allocated so far.
func (a *AlphaConverter) Count() int {
	return a.next
}

// Convert returns a copy of the tree with every binder and reference
// stamped with its identity.
func (a *AlphaConverter) Convert(e Expr) (Expr, error) {
	switch n := e.(type) {
	case *VarRef:
		id, ok := a.lookup(n.Var.Name)
		if !ok {
			return nil, &UnboundVariableError{Name: n.Var.Name, Pos: n.SpanVal.Start}
		}
		return &VarRef{SpanVal: n.SpanVal, Var: Variable{Name: n.Var.Name, ID: id}}, nil

	case *Abs:
		param := Variable{Name: n.Param.Name, ID: a.fresh()}
		a.push(param)
		body, err := a.Convert(n.Body)
		a.pop()
		if err != nil {
			return nil, err
		}
		return &Abs{SpanVal: n.SpanVal, Param: param, Body: body}, nil

	case *App:
		fn, err := a.Convert(n.Func)
		if err != nil {
			return nil, err
		}
		arg, err := a.Convert(n.Arg)
		if err != nil {
			return nil, err
		}
		return &App{SpanVal: n.SpanVal, Func: fn, Arg: arg}, nil

	case *BinaryOp:
		left, err := a.Convert(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := a.Convert(n.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryOp{SpanVal: n.SpanVal, Op: n.Op, Left: left, Right: right}, nil

	case *IntLiteral:
		return &IntLiteral{SpanVal: n.SpanVal, Value: n.Value}, nil

	default:
		internalError("alpha conversion: unexpected node %T", e)
		return nil, nil
	}
}

// fresh allocates the next identity.
func (a *AlphaConverter) fresh() int {
	id := a.next
	a.next++
	return id
}

func (a *AlphaConverter) push(v Variable) {
	a.scopes = append(a.scopes, binding{name: v.Name, id: v.ID})
}

func (a *AlphaConverter) pop() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

// lookup finds the innermost binder for name.
func (a *AlphaConverter) lookup(name string) (int, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if a.scopes[i].name == name {
			return a.scopes[i].id, true
		}
	}
	return 0, false
}

// AlphaConvert resolves a tree with a fresh converter and returns the tree
// together with the number of identities it allocated.
func AlphaConvert(e Expr) (Expr, int, error) {
	a := NewAlphaConverter()
	scoped, err := a.Convert(e)
	if err != nil {
		return nil, 0, err
	}
	return scoped, a.Count(), nil
}
