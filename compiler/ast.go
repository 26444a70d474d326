package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for the lambda calculus
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Unresolved is the ID of a variable that has not been through alpha conversion.
const Unresolved = -1

// Variable is a name, optionally stamped with the unique identity of its binder.
type Variable struct {
	Name string
	ID   int
}

// NewVariable returns an unresolved variable.
func NewVariable(name string) Variable {
	return Variable{Name: name, ID: Unresolved}
}

// Resolved reports whether the variable carries an identity.
func (v Variable) Resolved() bool {
	return v.ID != Unresolved
}

func (v Variable) String() string {
	if !v.Resolved() {
		return v.Name
	}
	return v.Name + "_" + strconv.Itoa(v.ID)
}

// Operator is one of the four binary arithmetic operators.
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
)

func (op Operator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return fmt.Sprintf("Operator(%d)", int(op))
	}
}

// precedence returns the binding strength of the operator.
func (op Operator) precedence() int {
	if op == OpMul || op == OpDiv {
		return 2
	}
	return 1
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// VarRef represents a variable reference.
type VarRef struct {
	SpanVal Span
	Var     Variable
}

func (n *VarRef) Span() Span { return n.SpanVal }
func (n *VarRef) node()      {}
func (n *VarRef) expr()      {}

// Abs represents a lambda abstraction (\x. body).
type Abs struct {
	SpanVal Span
	Param   Variable
	Body    Expr
}

func (n *Abs) Span() Span { return n.SpanVal }
func (n *Abs) node()      {}
func (n *Abs) expr()      {}

// App represents an application (f x).
type App struct {
	SpanVal Span
	Func    Expr
	Arg     Expr
}

func (n *App) Span() Span { return n.SpanVal }
func (n *App) node()      {}
func (n *App) expr()      {}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// BinaryOp represents an arithmetic operation (a + b).
type BinaryOp struct {
	SpanVal Span
	Op      Operator
	Left    Expr
	Right   Expr
}

func (n *BinaryOp) Span() Span { return n.SpanVal }
func (n *BinaryOp) node()      {}
func (n *BinaryOp) expr()      {}

// ---------------------------------------------------------------------------
// Formatting
// ---------------------------------------------------------------------------

// Format renders an expression in surface syntax. Resolved variables are
// printed with their identity suffix.
func Format(e Expr) string {
	var sb strings.Builder
	formatExpr(&sb, e)
	return sb.String()
}

func formatExpr(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *VarRef:
		sb.WriteString(n.Var.String())
	case *IntLiteral:
		sb.WriteString(strconv.FormatInt(n.Value, 10))
	case *Abs:
		sb.WriteString("\\")
		sb.WriteString(n.Param.String())
		sb.WriteString(". ")
		formatExpr(sb, n.Body)
	case *App:
		formatOperand(sb, n.Func, func(e Expr) bool {
			switch e.(type) {
			case *Abs, *BinaryOp:
				return true
			}
			return false
		})
		sb.WriteString(" ")
		formatOperand(sb, n.Arg, func(e Expr) bool {
			switch e.(type) {
			case *Abs, *BinaryOp, *App:
				return true
			}
			return false
		})
	case *BinaryOp:
		formatOperand(sb, n.Left, func(e Expr) bool {
			switch l := e.(type) {
			case *Abs:
				return true
			case *BinaryOp:
				return l.Op.precedence() < n.Op.precedence()
			}
			return false
		})
		sb.WriteString(" ")
		sb.WriteString(n.Op.String())
		sb.WriteString(" ")
		formatOperand(sb, n.Right, func(e Expr) bool {
			switch r := e.(type) {
			case *Abs:
				return true
			case *BinaryOp:
				return r.Op.precedence() <= n.Op.precedence()
			}
			return false
		})
	default:
		fmt.Fprintf(sb, "<%T>", e)
	}
}

func formatOperand(sb *strings.Builder, e Expr, parens func(Expr) bool) {
	if parens(e) {
		sb.WriteString("(")
		formatExpr(sb, e)
		sb.WriteString(")")
		return
	}
	formatExpr(sb, e)
}

// Walk calls fn for every node in pre-order. If fn returns false the
// children of that node are skipped.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Abs:
		Walk(n.Body, fn)
	case *App:
		Walk(n.Func, fn)
		Walk(n.Arg, fn)
	case *BinaryOp:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	}
}

// NodeAt returns the innermost expression whose span contains offset, or nil.
func NodeAt(e Expr, offset int) Expr {
	var found Expr
	Walk(e, func(n Expr) bool {
		if !n.Span().Contains(offset) {
			return false
		}
		found = n
		return true
	})
	return found
}
