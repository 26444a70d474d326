package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Types and the type-variable arena
// ---------------------------------------------------------------------------

// Type is the interface implemented by Int, arrow types and type variables.
type Type interface {
	String() string
	typ() // marker method
}

// IntType is the type of integers.
type IntType struct{}

// ArrowType is the type of functions from Param to Result.
type ArrowType struct {
	Param  Type
	Result Type
}

// TypeVar is a unification variable; its solution lives in the TypeTable
// slot with the same ID.
type TypeVar struct {
	ID int
}

// Int is the shared integer type.
var Int Type = IntType{}

func (IntType) typ()    {}
func (*ArrowType) typ() {}
func (*TypeVar) typ()   {}

func (IntType) String() string { return "Int" }

func (t *ArrowType) String() string {
	if _, ok := t.Param.(*ArrowType); ok {
		return fmt.Sprintf("(%s) -> %s", t.Param, t.Result)
	}
	return fmt.Sprintf("%s -> %s", t.Param, t.Result)
}

func (t *TypeVar) String() string {
	return "t" + strconv.Itoa(t.ID)
}

// Arrow builds a function type.
func Arrow(param, result Type) Type {
	return &ArrowType{Param: param, Result: result}
}

// TypeTable is the arena of type-variable slots, indexed by type variable
// ID. Slots are written at most once and never cleared. The first entries
// correspond one-to-one with the identities allocated by alpha conversion,
// so Env(id) is the type of variable id.
type TypeTable struct {
	slots []Type // nil = unresolved
	vars  []*TypeVar

	// OccursCheck rejects bindings that would make a type contain itself.
	OccursCheck bool
}

// NewTypeTable creates a table pre-populated with n unresolved variables.
func NewTypeTable(n int) *TypeTable {
	t := &TypeTable{
		slots: make([]Type, 0, n),
		vars:  make([]*TypeVar, 0, n),
	}
	for i := 0; i < n; i++ {
		t.Fresh()
	}
	return t
}

// Len returns the number of type variables allocated.
func (t *TypeTable) Len() int {
	return len(t.vars)
}

// Fresh appends a new unresolved type variable.
func (t *TypeTable) Fresh() *TypeVar {
	v := &TypeVar{ID: len(t.vars)}
	t.vars = append(t.vars, v)
	t.slots = append(t.slots, nil)
	return v
}

// Env returns the type variable assigned to variable identity id.
func (t *TypeTable) Env(id int) (Type, bool) {
	if id < 0 || id >= len(t.vars) {
		return nil, false
	}
	return t.vars[id], true
}

// Solution returns the type written into a variable's slot, or nil.
func (t *TypeTable) Solution(v *TypeVar) Type {
	return t.slots[v.ID]
}

// Simplify follows resolved type variables at the top of ty until it
// reaches a constructor or an unresolved variable. Unify simplifies both
// sides before binding, so bind only ever sees unresolved variables.
func (t *TypeTable) Simplify(ty Type) Type {
	for steps := 0; ; steps++ {
		v, ok := ty.(*TypeVar)
		if !ok || t.slots[v.ID] == nil {
			return ty
		}
		if steps > len(t.slots) {
			internalError("cyclic type variable chain at %s", v)
		}
		ty = t.slots[v.ID]
	}
}

// Resolve substitutes every resolved type variable in ty, leaving only
// unresolved ones.
func (t *TypeTable) Resolve(ty Type) Type {
	return t.resolve(ty, make(map[int]bool))
}

func (t *TypeTable) resolve(ty Type, visiting map[int]bool) Type {
	switch n := ty.(type) {
	case *TypeVar:
		sol := t.slots[n.ID]
		if sol == nil {
			return n
		}
		if visiting[n.ID] {
			internalError("cyclic type: %s occurs in its own solution", n)
		}
		visiting[n.ID] = true
		r := t.resolve(sol, visiting)
		delete(visiting, n.ID)
		return r
	case *ArrowType:
		return Arrow(t.resolve(n.Param, visiting), t.resolve(n.Result, visiting))
	default:
		return ty
	}
}

// Unify makes a and b equal by writing unresolved slots. It does not undo
// writes made before a failure.
func (t *TypeTable) Unify(a, b Type) error {
	a = t.Simplify(a)
	b = t.Simplify(b)

	switch x := a.(type) {
	case IntType:
		switch y := b.(type) {
		case IntType:
			return nil
		case *TypeVar:
			return t.bind(y, x)
		}
	case *ArrowType:
		switch y := b.(type) {
		case *ArrowType:
			if err := t.Unify(x.Param, y.Param); err != nil {
				return err
			}
			return t.Unify(x.Result, y.Result)
		case *TypeVar:
			return t.bind(y, x)
		}
	case *TypeVar:
		if y, ok := b.(*TypeVar); ok && y.ID == x.ID {
			return nil
		}
		return t.bind(x, b)
	}
	return &TypeMismatchError{Left: t.safeResolve(a), Right: t.safeResolve(b)}
}

// bind writes ty into v's slot. v is always unresolved since Unify simplifies
// both sides first; a bound v here is a compiler bug.
func (t *TypeTable) bind(v *TypeVar, ty Type) error {
	if t.slots[v.ID] != nil {
		internalError("type variable %s bound twice", v)
	}
	if t.OccursCheck && t.occurs(v.ID, ty) {
		return &TypeMismatchError{Left: v, Right: t.Resolve(ty), Reason: "infinite type"}
	}
	t.slots[v.ID] = ty
	return nil
}

// occurs reports whether variable id appears in ty.
func (t *TypeTable) occurs(id int, ty Type) bool {
	switch n := t.Simplify(ty).(type) {
	case *TypeVar:
		return n.ID == id
	case *ArrowType:
		return t.occurs(id, n.Param) || t.occurs(id, n.Result)
	default:
		return false
	}
}

// checkAcyclic reports an infinite type if some variable reachable from ty
// occurs in its own solution. It is the after-the-fact counterpart of the
// occurs check for tables that run without it.
func (t *TypeTable) checkAcyclic(ty Type) error {
	if v := t.cycle(ty, make(map[int]bool), make(map[int]bool)); v != nil {
		return &TypeMismatchError{Left: v, Right: t.safeResolve(t.slots[v.ID]), Reason: "infinite type"}
	}
	return nil
}

// cycle returns a variable on a cycle reachable from ty, or nil. done
// holds variables already known to be acyclic.
func (t *TypeTable) cycle(ty Type, visiting, done map[int]bool) *TypeVar {
	switch n := ty.(type) {
	case *TypeVar:
		sol := t.slots[n.ID]
		if sol == nil || done[n.ID] {
			return nil
		}
		if visiting[n.ID] {
			return n
		}
		visiting[n.ID] = true
		if v := t.cycle(sol, visiting, done); v != nil {
			return v
		}
		delete(visiting, n.ID)
		done[n.ID] = true
		return nil
	case *ArrowType:
		if v := t.cycle(n.Param, visiting, done); v != nil {
			return v
		}
		return t.cycle(n.Result, visiting, done)
	default:
		return nil
	}
}

// safeResolve resolves ty for error messages, falling back to the
// unresolved form when the table already holds a cycle.
func (t *TypeTable) safeResolve(ty Type) (r Type) {
	defer func() {
		if recover() != nil {
			r = ty
		}
	}()
	return t.Resolve(ty)
}
