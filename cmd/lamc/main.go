// lamc CLI - compiles lambda-calculus programs to bytecode, WAT or Go
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/lamc/cache"
	"github.com/chazu/lamc/compiler"
	"github.com/chazu/lamc/manifest"
	"github.com/chazu/lamc/server"
)

var log = commonlog.GetLogger("lamc.cli")

func main() {
	expr := flag.String("e", "", "Compile an inline expression")
	printType := flag.Bool("type", false, "Print the inferred type")
	printANF := flag.Bool("anf", false, "Print the ANF sequence")
	printClosure := flag.Bool("closure", false, "Print the closure-converted sequence")
	printHoisted := flag.Bool("hoisted", false, "Print the hoisted program")
	printIR := flag.Bool("ir", false, "Print the backend output (disassembly, WAT or Go)")
	backend := flag.String("backend", "", "Backend: vm, wat or go (default from lamc.toml)")
	run := flag.Bool("run", false, "Execute the program with the bytecode VM")
	outPath := flag.String("o", "", "Write the backend output to a file")
	watch := flag.Bool("watch", false, "Recompile files when they change")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	verbosity := flag.Int("v", -1, "Log verbosity (default from lamc.toml)")
	noCache := flag.Bool("no-cache", false, "Do not read or write the compile cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lamc [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles lambda-calculus programs through ANF and closure conversion.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lamc -e '(\\x. \\y. x + y) 2 3' -run     # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  lamc -hoisted -ir prog.lam              # Show the program and its bytecode\n")
		fmt.Fprintf(os.Stderr, "  lamc -backend wat -o prog.wat prog.lam  # Emit WebAssembly text\n")
		fmt.Fprintf(os.Stderr, "  lamc -watch -run a.lam b.lam            # Rebuild on save\n")
		fmt.Fprintf(os.Stderr, "  lamc -lsp                               # Language server\n")
	}
	flag.Parse()

	m, err := loadManifest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		m.Compiler.Backend = *backend
	}
	if *verbosity >= 0 {
		m.Log.Verbosity = *verbosity
	}
	if err := m.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	commonlog.Configure(m.Log.Verbosity, nil)

	opts := compiler.Options{OccursCheck: m.Compiler.OccursCheck}

	if *lspMode {
		if err := server.NewLSP(opts).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	b := &builder{cfg: settings{
		opts:         opts,
		backend:      m.Compiler.Backend,
		printType:    *printType || m.Print.Type,
		printANF:     *printANF || m.Print.ANF,
		printClosure: *printClosure || m.Print.Closure,
		printHoisted: *printHoisted || m.Print.Hoisted,
		printIR:      *printIR || m.Print.IR,
		run:          *run,
	}}

	if m.Cache.Enabled && !*noCache {
		c, err := cache.Open(m.CachePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: compile cache disabled: %v\n", err)
		} else {
			defer c.Close()
			b.cache = c
		}
	}

	var units []unit
	if *expr != "" {
		units = append(units, unit{name: "<expr>", src: *expr})
	}
	files, err := readUnits(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	units = append(units, files...)

	if *interactive || len(units) == 0 {
		runREPL(b)
		return
	}

	if *outPath != "" && len(units) != 1 {
		fmt.Fprintf(os.Stderr, "Error: -o needs exactly one input, got %d\n", len(units))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *watch {
		if len(files) == 0 {
			fmt.Fprintf(os.Stderr, "Error: -watch needs at least one file\n")
			os.Exit(1)
		}
		if err := watchFiles(ctx, b, flag.Args(), *outPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := buildAndReport(ctx, b, units, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadManifest finds lamc.toml above the working directory, falling back to
// the defaults (with environment overrides) when there is none.
func loadManifest() (*manifest.Manifest, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
		m.ApplyEnv()
	}
	return m, nil
}

// buildAndReport compiles units, prints their reports in input order and
// writes the artifact when outPath is set.
func buildAndReport(ctx context.Context, b *builder, units []unit, outPath string) error {
	outs, err := b.buildAll(ctx, units)
	if err != nil {
		return err
	}
	for i, out := range outs {
		if len(units) > 1 {
			fmt.Printf("== %s ==\n", units[i].name)
		}
		fmt.Print(out.text)
	}
	if outPath != "" {
		if err := os.WriteFile(outPath, outs[0].artifact, 0644); err != nil {
			return err
		}
		log.Info("wrote output", "path", outPath, "bytes", len(outs[0].artifact))
	}
	return nil
}

// runREPL reads one expression per line, compiling and running each.
func runREPL(b *builder) {
	fmt.Println("lamc REPL (type 'exit' to quit, ':help' for commands)")
	fmt.Println()

	b.cfg.run = true
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(">> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if strings.HasPrefix(line, ":") {
			handleREPLCommand(b, line)
			continue
		}

		out, err := b.build(unit{name: "<repl>", src: line})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Print(out.text)
	}
}

// handleREPLCommand toggles printing of intermediate forms.
func handleREPLCommand(b *builder, line string) {
	switch line {
	case ":help":
		fmt.Println("Commands:")
		fmt.Println("  :type     toggle printing the type")
		fmt.Println("  :anf      toggle printing the ANF sequence")
		fmt.Println("  :closure  toggle printing the closure-converted sequence")
		fmt.Println("  :hoisted  toggle printing the hoisted program")
		fmt.Println("  :ir       toggle printing the backend output")
	case ":type":
		b.cfg.printType = !b.cfg.printType
	case ":anf":
		b.cfg.printANF = !b.cfg.printANF
	case ":closure":
		b.cfg.printClosure = !b.cfg.printClosure
	case ":hoisted":
		b.cfg.printHoisted = !b.cfg.printHoisted
	case ":ir":
		b.cfg.printIR = !b.cfg.printIR
	default:
		fmt.Printf("Unknown command %s (try :help)\n", line)
	}
}
