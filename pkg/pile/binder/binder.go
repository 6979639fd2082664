// Package binder resolves a parsed program into a runnable whole.
//
// Binding loads every transitively imported file, parses it, and then
// checks the complete program: imports must not form a cycle, no proc
// or def may be defined twice, every name must resolve to something
// in scope, and break/continue must sit lexically inside a loop.
// A file imported along several paths is loaded once.
package binder

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pilelang/pile/pkg/pile/ast"
	"github.com/pilelang/pile/pkg/pile/errors"
	"github.com/pilelang/pile/pkg/pile/evaluator"
	"github.com/pilelang/pile/pkg/pile/lexer"
	"github.com/pilelang/pile/pkg/pile/parser"
)

// Unit is one bound source file.
type Unit struct {
	Path    string // cleaned absolute path, or the display name for non-file input
	Program *ast.Program
}

// Bound is a fully resolved program: the entry unit plus every unit
// it transitively imports, keyed by resolved path.
type Bound struct {
	Main  *Unit
	Units map[string]*Unit
}

// Binder holds the state of one binding pass.
type Binder struct {
	searchPaths []string

	units    map[string]*Unit // resolved path -> loaded unit
	loading  []string         // import chain for cycle reporting
	inFlight map[string]bool

	errors []*errors.PileError
}

// New creates a binder. searchPaths are tried, in order, after the
// importing file's own directory.
func New(searchPaths []string) *Binder {
	return &Binder{
		searchPaths: searchPaths,
		units:       make(map[string]*Unit),
		inFlight:    make(map[string]bool),
	}
}

// Errors returns every error the binding pass recorded.
func (b *Binder) Errors() []*errors.PileError {
	return b.errors
}

func (b *Binder) addError(err *errors.PileError) {
	b.errors = append(b.errors, err)
}

// Bind resolves a program parsed from the named file. The filename is
// used for import resolution and error reporting; for non-file input
// (a REPL line, -e text) pass a display name like "<input>" and
// imports resolve against the current directory.
func (b *Binder) Bind(program *ast.Program, filename string) *Bound {
	main := &Unit{Path: canonical(filename), Program: program}
	b.units[main.Path] = main
	b.inFlight[main.Path] = true
	b.loading = append(b.loading, filename)

	b.resolveImports(main)

	b.loading = b.loading[:len(b.loading)-1]
	delete(b.inFlight, main.Path)

	bound := &Bound{Main: main, Units: b.units}
	b.check(bound)
	return bound
}

// BindFile reads, parses, and binds the named file.
func (b *Binder) BindFile(filename string) *Bound {
	source, err := os.ReadFile(filename)
	if err != nil {
		b.addError(errors.New("BIND-0005", map[string]any{
			"Path":    filename,
			"GoError": err.Error(),
		}))
		return nil
	}

	p := parser.New(lexer.NewWithFilename(string(source), filename))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) > 0 {
		b.errors = append(b.errors, errs...)
		return nil
	}

	return b.Bind(program, filename)
}

// canonical returns the map key for a filename. Non-file display
// names like "<input>" are kept as-is.
func canonical(filename string) string {
	if strings.HasPrefix(filename, "<") {
		return filename
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		return filepath.Clean(filename)
	}
	return abs
}

// resolveImports loads every import of a unit, depth-first.
func (b *Binder) resolveImports(unit *Unit) {
	dir := filepath.Dir(unit.Path)
	if strings.HasPrefix(unit.Path, "<") {
		dir = "."
	}
	b.walkImports(unit.Program.Instructions, dir)
}

func (b *Binder) walkImports(instrs []ast.Instruction, dir string) {
	for _, instr := range instrs {
		switch node := instr.(type) {
		case *ast.ImportDirective:
			b.loadImport(node, dir)
		case *ast.IfBlock:
			b.walkImports(node.Consequence, dir)
			b.walkImports(node.Alternative, dir)
		case *ast.LoopBlock:
			b.walkImports(node.Body, dir)
		case *ast.ProcDefinition:
			b.walkImports(node.Body, dir)
		case *ast.DefDefinition:
			b.walkImports(node.Body, dir)
		case *ast.AsLetBlock:
			b.walkImports(node.Body, dir)
		case *ast.ArrayBlock:
			b.walkImports(node.Body, dir)
		}
	}
}

func (b *Binder) loadImport(node *ast.ImportDirective, dir string) {
	line, column := node.Pos()

	path, err := b.findImport(node.Path, dir)
	if err != nil {
		b.addError(errors.NewWithPosition("BIND-0005", line, column, map[string]any{
			"Path":    node.Path,
			"GoError": err.Error(),
		}))
		return
	}
	node.Resolved = path

	// Already fully loaded: a diamond import, nothing more to do.
	if _, ok := b.units[path]; ok && !b.inFlight[path] {
		return
	}

	// Still being loaded further up the chain: a cycle.
	if b.inFlight[path] {
		chain := append(append([]string{}, b.loading...), node.Path)
		b.addError(errors.NewWithPosition("BIND-0002", line, column, map[string]any{
			"Chain": strings.Join(chain, " -> "),
		}))
		return
	}

	source, err := os.ReadFile(path)
	if err != nil {
		b.addError(errors.NewWithPosition("BIND-0005", line, column, map[string]any{
			"Path":    node.Path,
			"GoError": err.Error(),
		}))
		return
	}

	p := parser.New(lexer.NewWithFilename(string(source), path))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) > 0 {
		b.errors = append(b.errors, errs...)
		return
	}

	unit := &Unit{Path: path, Program: program}
	b.units[path] = unit
	b.inFlight[path] = true
	b.loading = append(b.loading, node.Path)

	b.resolveImports(unit)

	b.loading = b.loading[:len(b.loading)-1]
	delete(b.inFlight, path)
}

// findImport resolves an import path against the importing file's
// directory, then each search path in order.
func (b *Binder) findImport(path, dir string) (string, error) {
	candidates := append([]string{dir}, b.searchPaths...)

	var firstErr error
	for _, base := range candidates {
		candidate := filepath.Join(base, path)
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = os.ErrNotExist
	}
	return "", firstErr
}

// ============================================================================
// Whole-program checks
// ============================================================================

// scope is one lexical level of let/as bindings during name checking.
type scope struct {
	names  map[string]bool
	parent *scope
}

func (s *scope) lookup(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.names[name] {
			return true
		}
	}
	return false
}

func (s *scope) child() *scope {
	return &scope{names: make(map[string]bool), parent: s}
}

// check runs the whole-program validations over every unit.
func (b *Binder) check(bound *Bound) {
	globals, lets, asNames := b.collectDefinitions(bound)
	for name := range lets {
		globals[name] = true
	}

	builtins := make(map[string]bool)
	for _, name := range evaluator.BuiltinNames() {
		builtins[name] = true
	}

	chk := &checker{binder: b, globals: globals, builtins: builtins, asNames: asNames}
	for _, unit := range bound.Units {
		root := &scope{names: make(map[string]bool)}
		chk.instructions(unit, unit.Program.Instructions, root, 0, false)
	}
}

// collectDefinitions gathers every proc and def name across all units
// and reports the ones defined twice. Let names are collected
// separately: a let binds a program-wide slot and may be rebound, so
// it is exempt from the duplicate check. As-names are collected too,
// because a proc body may legally read a frame its caller opened.
func (b *Binder) collectDefinitions(bound *Bound) (globals, lets, asNames map[string]bool) {
	globals = make(map[string]bool)
	lets = make(map[string]bool)
	asNames = make(map[string]bool)

	var walk func(unit *Unit, instrs []ast.Instruction)
	walk = func(unit *Unit, instrs []ast.Instruction) {
		for _, instr := range instrs {
			var name string
			var body []ast.Instruction

			switch node := instr.(type) {
			case *ast.ProcDefinition:
				name, body = node.Name, node.Body
			case *ast.DefDefinition:
				name, body = node.Name, node.Body
			case *ast.LetBinding:
				lets[node.Name] = true
				continue
			case *ast.IfBlock:
				walk(unit, node.Consequence)
				walk(unit, node.Alternative)
				continue
			case *ast.LoopBlock:
				walk(unit, node.Body)
				continue
			case *ast.AsLetBlock:
				for _, nameTok := range node.Names {
					asNames[nameTok.Literal] = true
				}
				walk(unit, node.Body)
				continue
			case *ast.ArrayBlock:
				walk(unit, node.Body)
				continue
			default:
				continue
			}

			if globals[name] {
				line, column := instr.Pos()
				b.addError(errors.NewWithPosition("BIND-0001", line, column, map[string]any{
					"Name": name,
				}).WithFile(unit.Path))
			}
			globals[name] = true
			walk(unit, body)
		}
	}

	for _, unit := range bound.Units {
		walk(unit, unit.Program.Instructions)
	}
	return globals, lets, asNames
}

// checker holds the name sets one check pass validates against.
type checker struct {
	binder   *Binder
	globals  map[string]bool
	builtins map[string]bool
	asNames  map[string]bool
}

// instructions validates name references and break/continue placement
// inside one instruction sequence. loopDepth counts how many loops
// lexically enclose the current position; a proc or def body starts
// back at zero. inBody marks proc and def bodies: they execute under
// whatever frames their caller has open, so a reference to any
// as-name in the program cannot be rejected here and is left to the
// runtime lookup.
func (c *checker) instructions(unit *Unit, instrs []ast.Instruction, sc *scope, loopDepth int, inBody bool) {
	for _, instr := range instrs {
		switch node := instr.(type) {
		case *ast.Symbol:
			if sc.lookup(node.Name) || c.globals[node.Name] || c.builtins[node.Name] {
				continue
			}
			if inBody && c.asNames[node.Name] {
				continue
			}
			line, column := node.Pos()
			err := errors.NewUndefinedName(node.Name, c.candidates(sc))
			c.binder.addError(err.WithPosition(line, column).WithFile(unit.Path))

		case *ast.AsLetBlock:
			inner := sc.child()
			for _, nameTok := range node.Names {
				inner.names[nameTok.Literal] = true
			}
			c.instructions(unit, node.Body, inner, loopDepth, inBody)

		// if, loop, and array blocks do not open a binding frame:
		// a let inside them is visible after the block.
		case *ast.IfBlock:
			c.instructions(unit, node.Consequence, sc, loopDepth, inBody)
			c.instructions(unit, node.Alternative, sc, loopDepth, inBody)

		case *ast.LoopBlock:
			c.instructions(unit, node.Body, sc, loopDepth+1, inBody)

		case *ast.ArrayBlock:
			c.instructions(unit, node.Body, sc, loopDepth, inBody)

		case *ast.ProcDefinition:
			c.instructions(unit, node.Body, sc.child(), 0, true)

		case *ast.DefDefinition:
			c.instructions(unit, node.Body, sc.child(), 0, true)

		case *ast.BreakStatement:
			if loopDepth == 0 {
				line, column := node.Pos()
				c.binder.addError(errors.NewWithPosition("BIND-0004", line, column, map[string]any{
					"Word": "break",
				}).WithFile(unit.Path))
			}

		case *ast.ContinueStatement:
			if loopDepth == 0 {
				line, column := node.Pos()
				c.binder.addError(errors.NewWithPosition("BIND-0004", line, column, map[string]any{
					"Word": "continue",
				}).WithFile(unit.Path))
			}
		}
	}
}

// candidates lists every name in scope, for "Did you mean" hints.
func (c *checker) candidates(sc *scope) []string {
	var names []string
	for cur := sc; cur != nil; cur = cur.parent {
		for name := range cur.names {
			names = append(names, name)
		}
	}
	for name := range c.globals {
		names = append(names, name)
	}
	for name := range c.builtins {
		names = append(names, name)
	}
	return names
}
