package compiler

import "fmt"

// SyntaxError reports malformed source text.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s: %s", e.Pos, e.Msg)
}

// UnboundVariableError reports a reference with no enclosing binder.
type UnboundVariableError struct {
	Name string
	Pos  Position
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("%s: unbound variable '%s'", e.Pos, e.Name)
}

// TypeMismatchError reports a unification failure. Left and Right are the
// two types being unified, resolved as far as the table allowed at the time
// of failure.
type TypeMismatchError struct {
	Left   Type
	Right  Type
	Pos    Position
	Reason string
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("%s: type mismatch: cannot unify %s with %s", e.Pos, e.Left, e.Right)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// internalError aborts on a broken invariant between stages. These are
// compiler bugs, never user errors.
func internalError(format string, args ...interface{}) {
	panic("compiler: internal error: " + fmt.Sprintf(format, args...))
}
