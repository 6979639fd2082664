// Package evaluator executes a bound pile program against one shared
// evaluation stack.
//
// Execution is a tree walk over the instruction sequence. Values are
// Objects; control transfers (break, continue, return, exit) and
// runtime errors travel through the walk as signal Objects that each
// construct either consumes or passes up.
package evaluator

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pilelang/pile/pkg/pile/ast"
	perrors "github.com/pilelang/pile/pkg/pile/errors"
	"github.com/pilelang/pile/pkg/pile/lexer"
)

// ObjectType represents the type of objects in the language
type ObjectType string

const (
	NUMBER_OBJ   = "NUMBER"
	STRING_OBJ   = "STRING"
	BOOLEAN_OBJ  = "BOOLEAN"
	NIL_OBJ      = "NIL"
	ARRAY_OBJ    = "ARRAY"
	ERROR_OBJ    = "ERROR"
	BREAK_OBJ    = "BREAK"
	CONTINUE_OBJ = "CONTINUE"
	RETURN_OBJ   = "RETURN"
)

// Object represents all values in the language
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Number represents numeric objects. All arithmetic, integral or not,
// runs through one float64 representation.
type Number struct {
	Value float64
}

func (n *Number) Inspect() string  { return strconv.FormatFloat(n.Value, 'f', -1, 64) }
func (n *Number) Type() ObjectType { return NUMBER_OBJ }

// String represents string objects
type String struct {
	Value string
}

func (s *String) Inspect() string  { return s.Value }
func (s *String) Type() ObjectType { return STRING_OBJ }

// Boolean represents boolean objects
type Boolean struct {
	Value bool
}

func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }

// Nil represents the nil object
type Nil struct{}

func (n *Nil) Inspect() string  { return "nil" }
func (n *Nil) Type() ObjectType { return NIL_OBJ }

// Array represents array objects. Arrays are heap-shared: dup and
// variable bindings copy the reference, not the elements.
type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	parts := make([]string, len(a.Elements))
	for i, el := range a.Elements {
		parts[i] = el.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

var (
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
	NIL   = &Nil{}
)

func nativeBool(value bool) *Boolean {
	if value {
		return TRUE
	}
	return FALSE
}

// Error is the signal object carrying a runtime error up the walk.
type Error struct {
	Err *perrors.PileError
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return "ERROR: " + e.Err.Message }

// Break, Continue, and Return are the loop and call transfer signals.
type Break struct{}

func (b *Break) Type() ObjectType { return BREAK_OBJ }
func (b *Break) Inspect() string  { return "break" }

type Continue struct{}

func (c *Continue) Type() ObjectType { return CONTINUE_OBJ }
func (c *Continue) Inspect() string  { return "continue" }

type Return struct{}

func (r *Return) Type() ObjectType { return RETURN_OBJ }
func (r *Return) Inspect() string  { return "return" }

// TypeName returns the name typeof reports for an object.
func TypeName(obj Object) string {
	switch obj.Type() {
	case NUMBER_OBJ:
		return "number"
	case STRING_OBJ:
		return "string"
	case BOOLEAN_OBJ:
		return "bool"
	case NIL_OBJ:
		return "nil"
	case ARRAY_OBJ:
		return "array"
	}
	return strings.ToLower(string(obj.Type()))
}

// isSignal reports whether an Eval result must stop the current
// instruction sequence.
func isSignal(obj Object) bool {
	return obj != nil
}

// Logger interface for program output
type Logger interface {
	Log(values ...interface{})
	LogLine(values ...interface{})
}

// defaultStdoutLogger writes to stdout
type defaultStdoutLogger struct{}

func (l *defaultStdoutLogger) Log(values ...interface{}) {
	for _, v := range values {
		fmt.Print(v)
	}
}

func (l *defaultStdoutLogger) LogLine(values ...interface{}) {
	for _, v := range values {
		fmt.Print(v)
	}
	fmt.Println()
}

// defaultStderrLogger writes to stderr
type defaultStderrLogger struct{}

func (l *defaultStderrLogger) Log(values ...interface{}) {
	for _, v := range values {
		fmt.Fprint(os.Stderr, v)
	}
}

func (l *defaultStderrLogger) LogLine(values ...interface{}) {
	for _, v := range values {
		fmt.Fprint(os.Stderr, v)
	}
	fmt.Fprintln(os.Stderr)
}

// DefaultLogger is the default stdout logger
var DefaultLogger Logger = &defaultStdoutLogger{}

// DefaultErrLogger is the default stderr logger
var DefaultErrLogger Logger = &defaultStderrLogger{}

// DefaultMaxDepth bounds nested procedure calls so runaway recursion
// surfaces as a reported error instead of a host stack overflow.
const DefaultMaxDepth = 10000

// Stack is the shared evaluation stack.
type Stack struct {
	items []Object
}

func NewStack() *Stack {
	return &Stack{}
}

func (s *Stack) Push(obj Object) {
	s.items = append(s.items, obj)
}

// Pop removes and returns the top value; ok is false when empty.
func (s *Stack) Pop() (Object, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, true
}

// Peek returns the top value without removing it.
func (s *Stack) Peek() (Object, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack) Len() int {
	return len(s.items)
}

// Items returns the stack bottom to top. The slice is shared; callers
// must not keep it across pushes.
func (s *Stack) Items() []Object {
	return s.items
}

// Truncate drops every value above depth n.
func (s *Stack) Truncate(n int) {
	if n < len(s.items) {
		s.items = s.items[:n]
	}
}

// String renders the stack bottom to top.
func (s *Stack) String() string {
	parts := make([]string, len(s.items))
	for i, obj := range s.items {
		parts[i] = obj.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Environment holds everything one running program operates on: the
// stack, the binding tables, the loaded units, and the injected I/O.
type Environment struct {
	Stack *Stack

	procs     map[string][]ast.Instruction
	defBodies map[string][]ast.Instruction
	defCache  map[string]Object
	defActive map[string]bool
	globals   map[string]Object // let slots
	letNames  map[string]bool   // every declared let name, set or not
	frames    []map[string]Object

	// Units maps resolved import paths to their parsed programs.
	// Imported holds the set already executed, so a diamond import
	// runs each unit's top level exactly once.
	Units    map[string]*ast.Program
	Imported map[string]bool

	Filename string

	Logger    Logger
	ErrLogger Logger
	Stdin     *bufio.Reader

	MaxDepth int
	depth    int
}

// NewEnvironment creates an environment wired to the process's own
// stdin, stdout, and stderr.
func NewEnvironment() *Environment {
	return &Environment{
		Stack:     NewStack(),
		procs:     make(map[string][]ast.Instruction),
		defBodies: make(map[string][]ast.Instruction),
		defCache:  make(map[string]Object),
		defActive: make(map[string]bool),
		globals:   make(map[string]Object),
		letNames:  make(map[string]bool),
		Units:     make(map[string]*ast.Program),
		Imported:  make(map[string]bool),
		Logger:    DefaultLogger,
		ErrLogger: DefaultErrLogger,
		Stdin:     bufio.NewReader(os.Stdin),
		MaxDepth:  DefaultMaxDepth,
	}
}

// SetStdin replaces the program's input stream.
func (e *Environment) SetStdin(r io.Reader) {
	e.Stdin = bufio.NewReader(r)
}

func (e *Environment) pushFrame(frame map[string]Object) {
	e.frames = append(e.frames, frame)
}

func (e *Environment) popFrame() {
	e.frames = e.frames[:len(e.frames)-1]
}

// lookupLocal finds an as..let binding, innermost frame first.
func (e *Environment) lookupLocal(name string) (Object, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if value, ok := e.frames[i][name]; ok {
			return value, true
		}
	}
	return nil, false
}

// newError builds a runtime error signal positioned at a token.
func newError(code string, tok lexer.Token, file string, data map[string]any) *Error {
	err := perrors.NewWithPosition(code, tok.Line, tok.Column, data)
	err.File = file
	return &Error{Err: err}
}

// Eval executes one instruction tree node against the environment.
// The return value is nil for ordinary instructions and a signal
// object (Error, Break, Continue, Return) when control must leave the
// current sequence. A deliberate exit travels as an Error whose
// PileError answers IsExit.
func Eval(node ast.Instruction, env *Environment) Object {
	switch node := node.(type) {

	case *ast.Program:
		registerDefinitions(node.Instructions, env)
		result := evalInstructions(node.Instructions, env)
		if _, ok := result.(*Return); ok {
			// return at top level ends the unit normally
			return nil
		}
		return result

	case *ast.NumberLiteral:
		env.Stack.Push(&Number{Value: node.Value})
		return nil

	case *ast.StringLiteral:
		env.Stack.Push(&String{Value: node.Value})
		return nil

	case *ast.BoolLiteral:
		env.Stack.Push(nativeBool(node.Value))
		return nil

	case *ast.NilLiteral:
		env.Stack.Push(NIL)
		return nil

	case *ast.Operation:
		return evalOperation(node, env)

	case *ast.Symbol:
		return evalSymbol(node, env)

	case *ast.IfBlock:
		return evalIf(node, env)

	case *ast.LoopBlock:
		return evalLoop(node, env)

	case *ast.BreakStatement:
		return &Break{}

	case *ast.ContinueStatement:
		return &Continue{}

	case *ast.ReturnStatement:
		return &Return{}

	case *ast.ProcDefinition:
		// The body was registered when the unit started; the
		// definition node itself is a no-op at run time.
		return nil

	case *ast.DefDefinition:
		// Bound here, evaluated exactly once.
		return forceDef(node.Name, node.Token, env)

	case *ast.LetBinding:
		return evalLet(node, env)

	case *ast.AsLetBlock:
		return evalAsLet(node, env)

	case *ast.ArrayBlock:
		return evalArray(node, env)

	case *ast.ImportDirective:
		return evalImport(node, env)
	}

	return nil
}

func evalInstructions(instrs []ast.Instruction, env *Environment) Object {
	for _, instr := range instrs {
		if result := Eval(instr, env); isSignal(result) {
			return result
		}
	}
	return nil
}

// registerDefinitions records every proc and def body in a unit
// before its top level runs, so calls may precede the definition in
// source order.
func registerDefinitions(instrs []ast.Instruction, env *Environment) {
	for _, instr := range instrs {
		switch node := instr.(type) {
		case *ast.ProcDefinition:
			env.procs[node.Name] = node.Body
			registerDefinitions(node.Body, env)
		case *ast.DefDefinition:
			env.defBodies[node.Name] = node.Body
			registerDefinitions(node.Body, env)
		case *ast.LetBinding:
			env.letNames[node.Name] = true
		case *ast.IfBlock:
			registerDefinitions(node.Consequence, env)
			registerDefinitions(node.Alternative, env)
		case *ast.LoopBlock:
			registerDefinitions(node.Body, env)
		case *ast.AsLetBlock:
			registerDefinitions(node.Body, env)
		case *ast.ArrayBlock:
			registerDefinitions(node.Body, env)
		}
	}
}

// evalSymbol resolves a name reference. as..let frames shadow
// everything; then defs, procs, let slots, and builtins. A declared
// but not yet assigned let slot reads as nil; a name nothing declares
// fails here, for callers that run without a bind pass.
func evalSymbol(node *ast.Symbol, env *Environment) Object {
	if value, ok := env.lookupLocal(node.Name); ok {
		env.Stack.Push(value)
		return nil
	}

	if _, ok := env.defBodies[node.Name]; ok {
		if result := forceDef(node.Name, node.Token, env); isSignal(result) {
			return result
		}
		if value, ok := env.defCache[node.Name]; ok {
			env.Stack.Push(value)
		}
		return nil
	}

	if body, ok := env.procs[node.Name]; ok {
		return callProc(node, body, env)
	}

	if value, ok := env.globals[node.Name]; ok {
		env.Stack.Push(value)
		return nil
	}

	if builtin, ok := builtins[node.Name]; ok {
		return builtin(node.Token, env)
	}

	if env.letNames[node.Name] {
		env.Stack.Push(NIL)
		return nil
	}

	err := perrors.NewUndefinedName(node.Name, env.knownNames())
	return &Error{Err: err.WithPosition(node.Token.Line, node.Token.Column).WithFile(env.Filename)}
}

// knownNames lists everything currently resolvable, for "Did you
// mean" hints.
func (e *Environment) knownNames() []string {
	var names []string
	for i := len(e.frames) - 1; i >= 0; i-- {
		for name := range e.frames[i] {
			names = append(names, name)
		}
	}
	for name := range e.defBodies {
		names = append(names, name)
	}
	for name := range e.procs {
		names = append(names, name)
	}
	for name := range e.letNames {
		names = append(names, name)
	}
	return append(names, BuiltinNames()...)
}

// callProc executes a stored procedure body. Procedures have no
// frame of their own: they see the caller's bindings and operate on
// the shared stack. A return in the body unwinds to here.
func callProc(node *ast.Symbol, body []ast.Instruction, env *Environment) Object {
	if env.depth >= env.MaxDepth {
		return newError("RUN-0006", node.Token, env.Filename, map[string]any{
			"Limit": env.MaxDepth,
		})
	}
	env.depth++
	result := evalInstructions(body, env)
	env.depth--

	if _, ok := result.(*Return); ok {
		return nil
	}
	return result
}

// forceDef evaluates a def body once and caches its single residual
// value. Later references and re-executions of the definition reuse
// the cache. A body that reaches its own name again cannot be given a
// value, so that is an error rather than an infinite regress.
func forceDef(name string, tok lexer.Token, env *Environment) Object {
	if _, ok := env.defCache[name]; ok {
		return nil
	}
	if env.defActive[name] {
		return newError("RUN-0009", tok, env.Filename, map[string]any{
			"Name": name,
		})
	}
	body := env.defBodies[name]

	env.defActive[name] = true
	defer delete(env.defActive, name)

	before := env.Stack.Len()
	if result := evalInstructions(body, env); isSignal(result) {
		if _, isReturn := result.(*Return); !isReturn {
			return result
		}
	}

	left := env.Stack.Len() - before
	if left != 1 {
		env.Stack.Truncate(before)
		return newError("RUN-0008", tok, env.Filename, map[string]any{
			"Name": name,
			"Got":  left,
		})
	}

	value, _ := env.Stack.Pop()
	env.defCache[name] = value
	return nil
}

func evalIf(node *ast.IfBlock, env *Environment) Object {
	condition, ok := env.Stack.Pop()
	if !ok {
		return newError("RUN-0001", node.Token, env.Filename, map[string]any{
			"Op":   "if",
			"Want": 1,
			"Got":  0,
		})
	}

	boolean, ok := condition.(*Boolean)
	if !ok {
		return newError("RUN-0002", node.Token, env.Filename, map[string]any{
			"Op":  "if",
			"Got": TypeName(condition),
		})
	}

	if boolean.Value {
		return evalInstructions(node.Consequence, env)
	}
	if node.Alternative != nil {
		return evalInstructions(node.Alternative, env)
	}
	return nil
}

func evalLoop(node *ast.LoopBlock, env *Environment) Object {
	for {
		result := evalInstructions(node.Body, env)
		switch result.(type) {
		case nil:
		case *Break:
			return nil
		case *Continue:
		default:
			return result
		}
	}
}

func evalLet(node *ast.LetBinding, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return newError("RUN-0001", node.Token, env.Filename, map[string]any{
			"Op":   "let " + node.Name,
			"Want": 1,
			"Got":  0,
		})
	}
	env.globals[node.Name] = value
	return nil
}

// evalAsLet pops one value per declared name, the last-declared name
// taking the topmost value, runs the body in a fresh frame, and tears
// the frame down on every exit path.
func evalAsLet(node *ast.AsLetBlock, env *Environment) Object {
	want := len(node.Names)
	if env.Stack.Len() < want {
		return newError("RUN-0001", node.Token, env.Filename, map[string]any{
			"Op":   "as",
			"Want": want,
			"Got":  env.Stack.Len(),
		})
	}

	frame := make(map[string]Object, want)
	for i := want - 1; i >= 0; i-- {
		value, _ := env.Stack.Pop()
		frame[node.Names[i].Literal] = value
	}

	env.pushFrame(frame)
	defer env.popFrame()

	return evalInstructions(node.Body, env)
}

// evalArray runs the block body and collects everything it left on
// the stack, in push order, into one new array.
func evalArray(node *ast.ArrayBlock, env *Environment) Object {
	mark := env.Stack.Len()

	if result := evalInstructions(node.Body, env); isSignal(result) {
		return result
	}

	items := env.Stack.Items()
	elements := make([]Object, len(items)-mark)
	copy(elements, items[mark:])
	env.Stack.Truncate(mark)
	env.Stack.Push(&Array{Elements: elements})
	return nil
}

// evalImport runs an imported unit's top level, once per resolved
// path no matter how many import directives name it.
func evalImport(node *ast.ImportDirective, env *Environment) Object {
	path := node.Resolved
	if path == "" || env.Imported[path] {
		return nil
	}
	program, ok := env.Units[path]
	if !ok {
		return nil
	}
	env.Imported[path] = true

	saved := env.Filename
	env.Filename = path
	result := Eval(program, env)
	env.Filename = saved
	return result
}
