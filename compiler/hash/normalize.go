package hash

import (
	"github.com/chazu/lamc/compiler"
)

// ---------------------------------------------------------------------------
// Normalization: compiler AST → frozen hashing AST
//
// Bound variables become de Bruijn indices and binder names disappear, so
// \x. x and \y. y normalize to the same tree.
// ---------------------------------------------------------------------------

// normalizer holds the binder stack for the walk; the innermost binder is
// last.
type normalizer struct {
	binders []compiler.Variable
}

// Normalize transforms a parsed or alpha-converted expression into its
// hashing AST.
func Normalize(expr compiler.Expr) HNode {
	n := &normalizer{}
	return n.normalize(expr)
}

func (n *normalizer) normalize(expr compiler.Expr) HNode {
	switch e := expr.(type) {
	case *compiler.IntLiteral:
		return &HIntLiteral{Value: e.Value}

	case *compiler.VarRef:
		return n.resolve(e.Var)

	case *compiler.Abs:
		n.binders = append(n.binders, e.Param)
		body := n.normalize(e.Body)
		n.binders = n.binders[:len(n.binders)-1]
		return &HAbs{Body: body}

	case *compiler.App:
		return &HApp{Func: n.normalize(e.Func), Arg: n.normalize(e.Arg)}

	case *compiler.BinaryOp:
		return &HBinOp{
			Op:    opByte(e.Op),
			Left:  n.normalize(e.Left),
			Right: n.normalize(e.Right),
		}

	default:
		panic("hash: unexpected node in normalization")
	}
}

// resolve finds the innermost binder of v. Resolved variables match by
// identity, unresolved ones by name.
func (n *normalizer) resolve(v compiler.Variable) HNode {
	for i := len(n.binders) - 1; i >= 0; i-- {
		b := n.binders[i]
		if (v.Resolved() && b.ID == v.ID) || (!v.Resolved() && b.Name == v.Name) {
			return &HBoundVar{Index: uint64(len(n.binders) - 1 - i)}
		}
	}
	return &HFreeVar{Name: v.Name}
}

// opByte maps operators to their frozen encoding.
func opByte(op compiler.Operator) byte {
	switch op {
	case compiler.OpAdd:
		return '+'
	case compiler.OpSub:
		return '-'
	case compiler.OpMul:
		return '*'
	case compiler.OpDiv:
		return '/'
	}
	panic("hash: unknown operator")
}
