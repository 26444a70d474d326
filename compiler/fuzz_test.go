package compiler

import (
	"testing"
)

var fuzzSeeds = []string{
	// Literals and variables
	`42`, `0`, `x`, `foo`,
	// Abstraction and application
	`\x. x`, `\x. \y. x`, `f x y`, `(\x. x) 1`,
	// Arithmetic
	`1 + 2`, `1 + 2 * 3`, `(1 + 2) * 3`, `8 / 2 - 1`,
	// Closures
	`(\x. \y. x + y) 2 3`,
	`(\f. \x. f x) ((\x. \y. x + y) 2) 3`,
	`\f. \g. \x. f (g x)`,
	// Errors
	`\x. x x`, `1 2`, `\x. z`, `(`, `)`, `\`, `\x`, `\x.`, `1 +`,
	// Edge cases
	``, `   `, "\t\n\r", `99999999999999999999`, `+-*/\.()`, `café`,
}

// ---------------------------------------------------------------------------
// FuzzLexer: ensure the lexer never panics and always terminates.
// ---------------------------------------------------------------------------

func FuzzLexer(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("lexer panicked on input %q: %v", data, r)
			}
		}()

		l := NewLexer(data)
		for i := 0; i < len(data)+2; i++ {
			if l.NextToken().Type == TokenEOF {
				return
			}
		}
		t.Fatalf("lexer did not reach EOF on input %q", data)
	})
}

// ---------------------------------------------------------------------------
// FuzzParser: parse errors are acceptable; panics are not.
// ---------------------------------------------------------------------------

func FuzzParser(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("parser panicked on input %q: %v", data, r)
			}
		}()

		e, err := Parse(data)
		if err != nil {
			return
		}
		// printing and reparsing yields the same tree
		again, err := Parse(Format(e))
		if err != nil {
			t.Fatalf("reparse of %q failed: %v", Format(e), err)
		}
		if Format(again) != Format(e) {
			t.Fatalf("reparse changed %q into %q", Format(e), Format(again))
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzCompile: any input that gets past type inference must come out of the
// back half of the pipeline as a valid flat program.
// ---------------------------------------------------------------------------

func FuzzCompile(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Compile panicked on input %q: %v", data, r)
			}
		}()

		res, err := Compile(data, DefaultOptions())
		if err != nil {
			return
		}
		if err := CheckSingleAssignment(res.ANF); err != nil {
			t.Fatalf("ANF of %q: %v", data, err)
		}
		if err := Verify(res.Program); err != nil {
			t.Fatalf("program for %q: %v", data, err)
		}
	})
}
