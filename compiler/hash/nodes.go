package hash

// ---------------------------------------------------------------------------
// Frozen hashing AST types.
//
// These are stripped-down parallels of compiler/ast.go with no Span/position
// data and de Bruijn indices instead of variable names. Alpha-equivalent
// expressions produce identical hashing ASTs.
// ---------------------------------------------------------------------------

// HNode is the interface implemented by all hashing AST nodes.
type HNode interface {
	hnode() // marker method
}

type HIntLiteral struct{ Value int64 }

// HBoundVar references an enclosing abstraction. Index 0 is the innermost
// binder, 1 the one around it, and so on.
type HBoundVar struct {
	Index uint64
}

// HFreeVar references a name with no enclosing binder. Only trees that
// have not been through alpha conversion can contain one.
type HFreeVar struct {
	Name string
}

// HAbs is an abstraction stripped of its parameter name.
type HAbs struct {
	Body HNode
}

type HApp struct {
	Func HNode
	Arg  HNode
}

type HBinOp struct {
	Op    byte
	Left  HNode
	Right HNode
}

func (*HIntLiteral) hnode() {}
func (*HBoundVar) hnode()   {}
func (*HFreeVar) hnode()    {}
func (*HAbs) hnode()        {}
func (*HApp) hnode()        {}
func (*HBinOp) hnode()      {}
