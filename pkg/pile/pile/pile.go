// Package pile provides a public API for embedding the pile
// interpreter: run a file or a source string to completion, or stop
// after tokenizing, parsing, or binding for diagnostic tooling.
package pile

import (
	"io"

	"github.com/pilelang/pile/pkg/pile/ast"
	"github.com/pilelang/pile/pkg/pile/binder"
	"github.com/pilelang/pile/pkg/pile/errors"
	"github.com/pilelang/pile/pkg/pile/evaluator"
	"github.com/pilelang/pile/pkg/pile/lexer"
	"github.com/pilelang/pile/pkg/pile/parser"
)

// Options configures a run. The zero value runs with the process's
// stdin/stdout/stderr, no extra import search paths, and the default
// recursion limit.
type Options struct {
	Logger      Logger    // program output (print, println); nil = stdout
	ErrLogger   Logger    // error output (eprint, eprintln, trace); nil = stderr
	Stdin       io.Reader // input/inputln source; nil = process stdin
	SearchPaths []string  // tried after the importing file's directory
	MaxDepth    int       // procedure call depth limit; 0 = default
}

// RunFile reads, binds, and executes a pile source file. The returned
// status is the program's exit status: 0 for a clean run, the argument
// of `exit` when the program called it, 1 when errors stopped it.
func RunFile(filename string, opts *Options) (int, []*errors.PileError) {
	b := binder.New(searchPaths(opts))
	bound := b.BindFile(filename)
	if errs := b.Errors(); len(errs) != 0 {
		return 1, errs
	}
	return run(bound, opts)
}

// RunSource binds and executes source text. The display name stands in
// for a filename in error positions; imports resolve against the
// current directory.
func RunSource(source, displayName string, opts *Options) (int, []*errors.PileError) {
	program, errs := ParseSource(source, displayName)
	if len(errs) != 0 {
		return 1, errs
	}

	b := binder.New(searchPaths(opts))
	bound := b.Bind(program, displayName)
	if errs := b.Errors(); len(errs) != 0 {
		return 1, errs
	}
	return run(bound, opts)
}

func run(bound *binder.Bound, opts *Options) (int, []*errors.PileError) {
	env := newEnvironment(bound, opts)

	result := evaluator.Eval(bound.Main.Program, env)
	if result, ok := result.(*evaluator.Error); ok {
		if result.Err.IsExit() {
			return result.Err.ExitStatus(), nil
		}
		return result.Err.ExitStatus(), []*errors.PileError{result.Err}
	}
	return 0, nil
}

// newEnvironment builds an evaluator environment holding every bound
// unit, so imports execute from the already-parsed programs.
func newEnvironment(bound *binder.Bound, opts *Options) *evaluator.Environment {
	env := evaluator.NewEnvironment()
	env.Filename = bound.Main.Path
	env.Imported[bound.Main.Path] = true
	for path, unit := range bound.Units {
		env.Units[path] = unit.Program
	}

	if opts == nil {
		return env
	}
	if opts.Logger != nil {
		env.Logger = opts.Logger
	}
	if opts.ErrLogger != nil {
		env.ErrLogger = opts.ErrLogger
	}
	if opts.Stdin != nil {
		env.SetStdin(opts.Stdin)
	}
	if opts.MaxDepth > 0 {
		env.MaxDepth = opts.MaxDepth
	}
	return env
}

func searchPaths(opts *Options) []string {
	if opts == nil {
		return nil
	}
	return opts.SearchPaths
}

// TokenizeSource returns the token stream for source text, stopping
// after the first illegal token.
func TokenizeSource(source, displayName string) []lexer.Token {
	return lexer.NewWithFilename(source, displayName).Tokenize()
}

// ParseSource parses source text into a program tree.
func ParseSource(source, displayName string) (*ast.Program, []*errors.PileError) {
	p := parser.New(lexer.NewWithFilename(source, displayName))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) != 0 {
		return nil, errs
	}
	return program, nil
}

// CheckSource parses and binds source text without executing it,
// returning every diagnostic found.
func CheckSource(source, displayName string, searchPaths []string) []*errors.PileError {
	program, errs := ParseSource(source, displayName)
	if len(errs) != 0 {
		return errs
	}
	b := binder.New(searchPaths)
	b.Bind(program, displayName)
	return b.Errors()
}

// CheckFile parses and binds a file without executing it.
func CheckFile(filename string, searchPaths []string) []*errors.PileError {
	b := binder.New(searchPaths)
	b.BindFile(filename)
	return b.Errors()
}
