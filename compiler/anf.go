package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// ANF: administrative normal form
// ---------------------------------------------------------------------------

// Value is an ANF operand. Values have no side effects.
type Value interface {
	String() string
	value() // marker method
}

// IntValue is an integer literal operand.
type IntValue struct {
	N int64
}

// LocalValue refers to a variable bound by a parameter or a statement.
type LocalValue struct {
	Var Variable
}

// GlobalValue refers to a top-level function by name.
type GlobalValue struct {
	Var Variable
}

func (IntValue) value()    {}
func (LocalValue) value()  {}
func (GlobalValue) value() {}

func (v IntValue) String() string    { return strconv.FormatInt(v.N, 10) }
func (v LocalValue) String() string  { return v.Var.String() }
func (v GlobalValue) String() string { return "@" + v.Var.String() }

// Stmt is an ANF statement. Every statement binds exactly one variable.
type Stmt interface {
	Bound() Variable
	String() string
	stmt() // marker method
}

// FunStmt binds a function literal. It only exists before hoisting.
type FunStmt struct {
	Name   Variable
	Params []Variable
	Body   *Seq
}

// AppStmt calls Callee with Args and binds the result.
type AppStmt struct {
	Result Variable
	Callee Variable
	Args   []Value
}

// BinOpStmt binds the result of an arithmetic operation.
type BinOpStmt struct {
	Result Variable
	Op     Operator
	Left   Value
	Right  Value
}

// TupleStmt allocates a fixed-size record.
type TupleStmt struct {
	Result Variable
	Elems  []Value
}

// ProjectStmt reads field Index of a tuple.
type ProjectStmt struct {
	Result Variable
	Tuple  Variable
	Index  int
}

func (s *FunStmt) Bound() Variable     { return s.Name }
func (s *AppStmt) Bound() Variable     { return s.Result }
func (s *BinOpStmt) Bound() Variable   { return s.Result }
func (s *TupleStmt) Bound() Variable   { return s.Result }
func (s *ProjectStmt) Bound() Variable { return s.Result }

func (*FunStmt) stmt()     {}
func (*AppStmt) stmt()     {}
func (*BinOpStmt) stmt()   {}
func (*TupleStmt) stmt()   {}
func (*ProjectStmt) stmt() {}

func (s *FunStmt) String() string {
	return fmt.Sprintf("%s(%s) =%s", s.Name, joinVars(s.Params), bodyString(s.Body))
}

func (s *AppStmt) String() string {
	return fmt.Sprintf("%s = %s(%s)", s.Result, s.Callee, joinValues(s.Args))
}

func (s *BinOpStmt) String() string {
	return fmt.Sprintf("%s = %s %s %s", s.Result, s.Left, s.Op, s.Right)
}

func (s *TupleStmt) String() string {
	return fmt.Sprintf("%s = (%s)", s.Result, joinValues(s.Elems))
}

func (s *ProjectStmt) String() string {
	return fmt.Sprintf("%s = %s[%d]", s.Result, s.Tuple, s.Index)
}

// Seq is a straight-line computation: run Stmts in order, then yield Tail.
// A nil Tail yields unit. Level is the nesting depth used for indentation.
type Seq struct {
	Stmts []Stmt
	Tail  Value
	Level int
}

func (s *Seq) String() string {
	var sb strings.Builder
	indent := strings.Repeat("  ", s.Level)
	if len(s.Stmts) != 0 {
		sb.WriteString("\n")
	}
	for _, st := range s.Stmts {
		sb.WriteString(indent)
		sb.WriteString("let ")
		sb.WriteString(st.String())
		sb.WriteString(" in\n")
	}
	sb.WriteString(indent)
	if s.Tail == nil {
		sb.WriteString("return ()")
	} else {
		sb.WriteString(s.Tail.String())
	}
	return sb.String()
}

// bodyString renders a function body after "=": on the following lines
// when it has statements, otherwise inline.
func bodyString(s *Seq) string {
	if len(s.Stmts) == 0 {
		return " " + strings.TrimLeft(s.String(), " ")
	}
	return s.String()
}

// FuncDef is a top-level, first-order function.
type FuncDef struct {
	Name   Variable
	Params []Variable
	Body   *Seq
}

// Program is the flat result of hoisting.
type Program struct {
	Funcs []FuncDef
	Main  *Seq
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, fn := range p.Funcs {
		fmt.Fprintf(&sb, "let %s(%s) =%s\n\n", fn.Name, joinVars(fn.Params), bodyString(fn.Body))
	}
	fmt.Fprintf(&sb, "let main() =%s", bodyString(p.Main))
	return sb.String()
}

// Func returns the definition with the given name.
func (p *Program) Func(name Variable) (FuncDef, bool) {
	for _, fn := range p.Funcs {
		if fn.Name == name {
			return fn, true
		}
	}
	return FuncDef{}, false
}

func joinVars(vars []Variable) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func joinValues(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// NameSupply hands out fresh variables for the ANF stages. Start it past
// every identity already in use so new names never collide.
type NameSupply struct {
	next int
}

// NewNameSupply creates a supply whose first identity is start.
func NewNameSupply(start int) *NameSupply {
	return &NameSupply{next: start}
}

// Fresh returns a new variable with the given display name.
func (n *NameSupply) Fresh(name string) Variable {
	v := Variable{Name: name, ID: n.next}
	n.next++
	return v
}

// Next returns the identity the next Fresh call will use.
func (n *NameSupply) Next() int {
	return n.next
}
