package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/lamc/cache"
	"github.com/chazu/lamc/compiler"
	"github.com/chazu/lamc/pkg/bytecode"
	"github.com/chazu/lamc/pkg/gogen"
	"github.com/chazu/lamc/pkg/wat"
)

// settings is the resolved configuration of one lamc invocation.
type settings struct {
	opts    compiler.Options
	backend string

	printType    bool
	printANF     bool
	printClosure bool
	printHoisted bool
	printIR      bool

	run bool
}

// unit is one program to compile: a file or an -e expression.
type unit struct {
	name string
	src  string
}

// output is everything a build produced for one unit.
type output struct {
	text     string // printed report
	artifact []byte // backend output written by -o
}

// builder compiles units, consulting the cache when it can.
type builder struct {
	cfg   settings
	cache *cache.Cache // nil when caching is off
}

// needsPipeline reports whether the output depends on this source's own
// names, so a cached module from an alpha-equivalent source cannot serve it.
func (b *builder) needsPipeline() bool {
	return b.cfg.printANF || b.cfg.printClosure || b.cfg.printHoisted || b.cfg.printIR || b.cfg.backend != "vm"
}

// build compiles a single unit and renders its report.
func (b *builder) build(u unit) (*output, error) {
	parsed, err := compiler.Parse(u.src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u.name, err)
	}

	var key string
	if b.cache != nil && !b.needsPipeline() {
		key = cache.Key(parsed, b.cfg.opts)
		entry, ok, err := b.cache.Get(key)
		if err != nil {
			log.Warning("cache lookup failed", "unit", u.name, "error", err.Error())
		} else if ok {
			log.Debug("cache hit", "unit", u.name, "build", entry.BuildID)
			return b.render(u, entry.Type, nil, entry.Module)
		}
	}

	res, err := compiler.CompileExpr(parsed, b.cfg.opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u.name, err)
	}
	if err := compiler.Verify(res.Program); err != nil {
		return nil, fmt.Errorf("%s: %w", u.name, err)
	}

	var mod *bytecode.Module
	if b.cfg.backend == "vm" || b.cfg.run {
		mod, err = bytecode.Compile(res.Program)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.name, err)
		}
		if key != "" {
			entry := &cache.Entry{BuildID: res.BuildID, Type: res.Type.String(), Module: mod}
			if err := b.cache.Put(key, entry); err != nil {
				log.Warning("cache store failed", "unit", u.name, "error", err.Error())
			}
		}
	}

	return b.render(u, res.Type.String(), res, mod)
}

// render assembles the report for a unit. res is nil when the module came
// from the cache.
func (b *builder) render(u unit, typ string, res *compiler.Result, mod *bytecode.Module) (*output, error) {
	var sb strings.Builder
	out := &output{}

	if b.cfg.printType {
		fmt.Fprintf(&sb, "type: %s\n", typ)
	}
	if res != nil {
		if b.cfg.printANF {
			fmt.Fprintf(&sb, "anf:\n%s\n", res.ANF)
		}
		if b.cfg.printClosure {
			fmt.Fprintf(&sb, "closure:\n%s\n", res.Closed)
		}
		if b.cfg.printHoisted {
			fmt.Fprintf(&sb, "hoisted:\n%s\n", res.Program)
		}
	}

	switch b.cfg.backend {
	case "vm":
		if b.cfg.printIR {
			sb.WriteString(mod.Disassemble())
		}
		data, err := bytecode.MarshalModule(mod)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.name, err)
		}
		out.artifact = data
	case "wat":
		text, err := wat.Emit(res.Program)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.name, err)
		}
		if b.cfg.printIR {
			sb.WriteString(text)
		}
		out.artifact = []byte(text)
	case "go":
		src, err := gogen.Source(res.Program, "main")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.name, err)
		}
		if b.cfg.printIR {
			sb.WriteString(src)
		}
		out.artifact = []byte(src)
	default:
		return nil, fmt.Errorf("unknown backend %q", b.cfg.backend)
	}

	if b.cfg.run {
		v, err := bytecode.NewVM().Run(mod)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.name, err)
		}
		fmt.Fprintf(&sb, "result: %s\n", v)
	}

	out.text = sb.String()
	return out, nil
}

// buildAll compiles units concurrently. Results come back in input order;
// the first failure cancels the rest.
func (b *builder) buildAll(ctx context.Context, units []unit) ([]*output, error) {
	outs := make([]*output, len(units))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := b.build(u)
			if err != nil {
				return err
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// readUnits loads each path as a unit.
func readUnits(paths []string) ([]unit, error) {
	units := make([]unit, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		units = append(units, unit{name: path, src: string(data)})
	}
	return units, nil
}
