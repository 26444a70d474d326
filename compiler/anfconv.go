package compiler

// ---------------------------------------------------------------------------
// ANF conversion: linearize a typed tree into named intermediate results
// ---------------------------------------------------------------------------

// ANFConverter flattens expressions into ANF sequences.
type ANFConverter struct {
	names *NameSupply
}

// NewANFConverter creates a converter drawing fresh names from names.
func NewANFConverter(names *NameSupply) *ANFConverter {
	return &ANFConverter{names: names}
}

// Convert returns the top-level sequence for e.
func (c *ANFConverter) Convert(e Expr) *Seq {
	seq := &Seq{}
	c.convert(e, seq)
	return seq
}

// convert appends the statements computing e to seq and leaves its value in
// seq.Tail. Statements are emitted in evaluation order: callee before
// argument, left operand before right.
func (c *ANFConverter) convert(e Expr, seq *Seq) {
	switch n := e.(type) {
	case *VarRef:
		seq.Tail = LocalValue{Var: n.Var}

	case *IntLiteral:
		seq.Tail = IntValue{N: n.Value}

	case *Abs:
		f := c.names.Fresh("f")
		body := &Seq{Level: seq.Level + 1}
		c.convert(n.Body, body)
		seq.Stmts = append(seq.Stmts, &FunStmt{Name: f, Params: []Variable{n.Param}, Body: body})
		seq.Tail = LocalValue{Var: f}

	case *App:
		c.convert(n.Func, seq)
		fn := seq.Tail
		c.convert(n.Arg, seq)
		arg := seq.Tail
		callee, ok := fn.(LocalValue)
		if !ok {
			internalError("ANF conversion: callee %v is not a named value", fn)
		}
		y := c.names.Fresh("y")
		seq.Stmts = append(seq.Stmts, &AppStmt{Result: y, Callee: callee.Var, Args: []Value{arg}})
		seq.Tail = LocalValue{Var: y}

	case *BinaryOp:
		c.convert(n.Left, seq)
		left := seq.Tail
		c.convert(n.Right, seq)
		right := seq.Tail
		z := c.names.Fresh("z")
		seq.Stmts = append(seq.Stmts, &BinOpStmt{Result: z, Op: n.Op, Left: left, Right: right})
		seq.Tail = LocalValue{Var: z}

	default:
		internalError("ANF conversion: unexpected node %T", e)
	}
}
