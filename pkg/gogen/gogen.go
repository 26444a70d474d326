// Package gogen generates Go source from a hoisted program.
//
// Values are interface{}: integers are int64, closures and other tuples are
// []interface{}, and hoisted functions are plain Go functions. A call site
// asserts the code pointer to the function type of its arity.
package gogen

import (
	"bytes"
	"fmt"

	"github.com/chazu/lamc/compiler"
	"github.com/dave/jennifer/jen"
)

// Generate builds a Go file for p in package pkgName. The file declares
// Run, which evaluates main, and Show, which renders a result. In package
// main it also declares a main function that prints Show(Run()).
func Generate(p *compiler.Program, pkgName string) (*jen.File, error) {
	if err := compiler.Verify(p); err != nil {
		return nil, fmt.Errorf("gogen: %w", err)
	}

	f := jen.NewFile(pkgName)
	f.HeaderComment("Code generated by lamc. DO NOT EDIT.")

	f.Type().Id("value").Op("=").Interface()
	f.Type().Id("tuple").Op("=").Index().Id("value")
	f.Line()

	for _, fn := range p.Funcs {
		params := make([]jen.Code, len(fn.Params))
		for i, param := range fn.Params {
			params[i] = jen.Id(param.String()).Id("value")
		}
		body, err := block(fn.Body)
		if err != nil {
			return nil, fmt.Errorf("gogen: %s: %w", fn.Name, err)
		}
		f.Func().Id(fn.Name.String()).Params(params...).Id("value").Block(body...)
		f.Line()
	}

	body, err := block(p.Main)
	if err != nil {
		return nil, fmt.Errorf("gogen: main: %w", err)
	}
	f.Comment("Run evaluates the program.")
	f.Func().Id("Run").Params().Id("value").Block(body...)
	f.Line()

	generateShow(f)

	if pkgName == "main" {
		f.Line()
		f.Func().Id("main").Params().Block(
			jen.Qual("fmt", "Println").Call(jen.Id("Show").Call(jen.Id("Run").Call())),
		)
	}
	return f, nil
}

// Source renders Generate's output as formatted Go source.
func Source(p *compiler.Program, pkgName string) (string, error) {
	f, err := Generate(p, pkgName)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", fmt.Errorf("gogen: render: %w", err)
	}
	return buf.String(), nil
}

func generateShow(f *jen.File) {
	f.Comment("Show renders a result: integers in decimal, closures opaquely.")
	f.Func().Id("Show").Params(jen.Id("v").Id("value")).String().Block(
		jen.Switch(jen.Id("x").Op(":=").Id("v").Assert(jen.Type())).Block(
			jen.Case(jen.Int64()).Block(
				jen.Return(jen.Qual("strconv", "FormatInt").Call(jen.Id("x"), jen.Lit(10))),
			),
			jen.Case(jen.Nil()).Block(jen.Return(jen.Lit("()"))),
			jen.Default().Block(jen.Return(jen.Lit("<closure>"))),
		),
	)
}

// block translates a sequence into statements ending in a return.
func block(s *compiler.Seq) ([]jen.Code, error) {
	used := uses(s)
	var out []jen.Code
	for _, st := range s.Stmts {
		expr, err := stmt(st)
		if err != nil {
			return nil, err
		}
		name := st.Bound().String()
		out = append(out, jen.Var().Id(name).Id("value").Op("=").Add(expr))
		if !used[st.Bound().ID] {
			out = append(out, jen.Id("_").Op("=").Id(name))
		}
	}
	if s.Tail == nil {
		return append(out, jen.Return(jen.Nil())), nil
	}
	return append(out, jen.Return(operand(s.Tail))), nil
}

func stmt(st compiler.Stmt) (*jen.Statement, error) {
	switch s := st.(type) {
	case *compiler.AppStmt:
		params := make([]jen.Code, len(s.Args))
		args := make([]jen.Code, len(s.Args))
		for i, a := range s.Args {
			params[i] = jen.Id("value")
			args[i] = operand(a)
		}
		return jen.Id(s.Callee.String()).
			Assert(jen.Func().Params(params...).Id("value")).
			Call(args...), nil

	case *compiler.BinOpStmt:
		return arith(s.Left).Op(s.Op.String()).Add(arith(s.Right)), nil

	case *compiler.TupleStmt:
		elems := make([]jen.Code, len(s.Elems))
		for i, e := range s.Elems {
			elems[i] = operand(e)
		}
		return jen.Id("tuple").Values(elems...), nil

	case *compiler.ProjectStmt:
		return jen.Id(s.Tuple.String()).Assert(jen.Id("tuple")).Index(jen.Lit(s.Index)), nil

	default:
		return nil, fmt.Errorf("unexpected statement %s", st)
	}
}

// operand renders a value where an interface{} is expected.
func operand(v compiler.Value) *jen.Statement {
	switch x := v.(type) {
	case compiler.IntValue:
		return jen.Lit(x.N)
	case compiler.LocalValue:
		return jen.Id(x.Var.String())
	case compiler.GlobalValue:
		return jen.Id(x.Var.String())
	default:
		panic(fmt.Sprintf("gogen: unexpected value %v", v))
	}
}

// arith renders a value where an int64 is expected.
func arith(v compiler.Value) *jen.Statement {
	if x, ok := v.(compiler.IntValue); ok {
		return jen.Lit(x.N)
	}
	return operand(v).Assert(jen.Int64())
}

// uses collects the identities a sequence reads.
func uses(s *compiler.Seq) map[int]bool {
	used := make(map[int]bool)
	read := func(v compiler.Value) {
		if l, ok := v.(compiler.LocalValue); ok {
			used[l.Var.ID] = true
		}
	}
	for _, st := range s.Stmts {
		switch n := st.(type) {
		case *compiler.AppStmt:
			used[n.Callee.ID] = true
			for _, a := range n.Args {
				read(a)
			}
		case *compiler.BinOpStmt:
			read(n.Left)
			read(n.Right)
		case *compiler.TupleStmt:
			for _, e := range n.Elems {
				read(e)
			}
		case *compiler.ProjectStmt:
			used[n.Tuple.ID] = true
		}
	}
	if s.Tail != nil {
		read(s.Tail)
	}
	return used
}
