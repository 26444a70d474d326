package compiler

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lamc.compiler")

// Options configures a compilation.
type Options struct {
	// OccursCheck enables the occurs check during unification.
	OccursCheck bool
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{OccursCheck: true}
}

// Fingerprint identifies the options in cache keys.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("occurs=%t", o.OccursCheck)
}

// Result holds the output of every pipeline stage.
type Result struct {
	BuildID string

	Parsed Expr
	Scoped Expr
	Type   Type

	ANF     *Seq
	Closed  *Seq
	Program *Program

	// Inferencer answers type queries about Scoped.
	Inferencer *Inferencer
}

// Compile parses src and runs it through the whole pipeline.
func Compile(src string, opts Options) (*Result, error) {
	parsed, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return CompileExpr(parsed, opts)
}

// CompileExpr runs an already parsed tree through alpha conversion, type
// inference, ANF conversion, closure conversion and hoisting. The first
// failing stage aborts the compilation.
func CompileExpr(parsed Expr, opts Options) (*Result, error) {
	res := &Result{BuildID: uuid.NewString(), Parsed: parsed}

	scoped, count, err := AlphaConvert(parsed)
	if err != nil {
		return nil, fmt.Errorf("alpha conversion: %w", err)
	}
	res.Scoped = scoped
	log.Debug("alpha conversion done", "build", res.BuildID, "identities", count)

	t, inf, err := InferType(scoped, count, InferOptions{OccursCheck: opts.OccursCheck})
	if err != nil {
		return nil, fmt.Errorf("type inference: %w", err)
	}
	res.Type = t
	res.Inferencer = inf
	log.Debug("type inference done", "build", res.BuildID, "type", t.String(), "typevars", inf.Next())

	names := NewNameSupply(inf.Next())
	res.ANF = NewANFConverter(names).Convert(scoped)
	log.Debug("ANF conversion done", "build", res.BuildID, "statements", len(res.ANF.Stmts))

	res.Closed = NewClosureConverter(names).Convert(res.ANF)
	log.Debug("closure conversion done", "build", res.BuildID, "statements", len(res.Closed.Stmts))

	res.Program = Hoist(res.Closed)
	log.Debug("hoisting done", "build", res.BuildID, "functions", len(res.Program.Funcs))

	return res, nil
}
