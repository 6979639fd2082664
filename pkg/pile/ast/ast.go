// Package ast defines the instruction tree produced by the parser.
//
// A pile program is a flat sequence of instructions; compound
// constructs (if, loop, proc, def, as..let, array) are instructions
// that own a nested body. Every node keeps the token that introduced
// it so diagnostics can point back into the source.
package ast

import (
	"fmt"
	"strings"

	"github.com/pilelang/pile/pkg/pile/lexer"
)

// Instruction is the interface all tree nodes implement.
type Instruction interface {
	TokenLiteral() string
	Pos() (line, column int)
	String() string
}

// Program is one compilation unit: the top-level instruction sequence
// of a single source file.
type Program struct {
	Instructions []Instruction
}

func (p *Program) TokenLiteral() string {
	if len(p.Instructions) > 0 {
		return p.Instructions[0].TokenLiteral()
	}
	return ""
}

func (p *Program) Pos() (int, int) {
	if len(p.Instructions) > 0 {
		return p.Instructions[0].Pos()
	}
	return 0, 0
}

func (p *Program) String() string {
	return joinInstructions(p.Instructions)
}

// OpKind identifies an operator or stack-manipulation instruction.
type OpKind int

const (
	OpAdd OpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpExp
	OpGt
	OpLt
	OpEq
	OpGe
	OpLe
	OpNe
	OpShl
	OpShr
	OpBor
	OpBand
	OpBnot
	OpIsNil
	OpIndex
	OpAssignAtIndex
	OpDup
	OpDrop
	OpSwap
	OpOver
	OpRot
	OpTrace
)

var opNames = map[OpKind]string{
	OpAdd:           "+",
	OpSub:           "-",
	OpMul:           "*",
	OpDiv:           "/",
	OpMod:           "%",
	OpExp:           "**",
	OpGt:            ">",
	OpLt:            "<",
	OpEq:            "=",
	OpGe:            ">=",
	OpLe:            "<=",
	OpNe:            "!=",
	OpShl:           "<<",
	OpShr:           ">>",
	OpBor:           "|",
	OpBand:          "&",
	OpBnot:          "~",
	OpIsNil:         "?",
	OpIndex:         "@",
	OpAssignAtIndex: "!",
	OpDup:           "dup",
	OpDrop:          "drop",
	OpSwap:          "swap",
	OpOver:          "over",
	OpRot:           "rot",
	OpTrace:         "trace",
}

// String returns the source spelling of the operator.
func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// LookupOp maps a word to its OpKind, if the word is an operator.
func LookupOp(word string) (OpKind, bool) {
	for k, name := range opNames {
		if name == word {
			return k, true
		}
	}
	return 0, false
}

// NumberLiteral pushes a number onto the stack.
type NumberLiteral struct {
	Token lexer.Token
	Value float64
}

func (n *NumberLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NumberLiteral) Pos() (int, int)      { return n.Token.Line, n.Token.Column }
func (n *NumberLiteral) String() string       { return n.Token.Literal }

// StringLiteral pushes a string onto the stack.
type StringLiteral struct {
	Token lexer.Token
	Value string
}

func (s *StringLiteral) TokenLiteral() string { return s.Token.Literal }
func (s *StringLiteral) Pos() (int, int)      { return s.Token.Line, s.Token.Column }
func (s *StringLiteral) String() string       { return fmt.Sprintf("%q", s.Value) }

// BoolLiteral pushes true or false.
type BoolLiteral struct {
	Token lexer.Token
	Value bool
}

func (b *BoolLiteral) TokenLiteral() string { return b.Token.Literal }
func (b *BoolLiteral) Pos() (int, int)      { return b.Token.Line, b.Token.Column }
func (b *BoolLiteral) String() string       { return b.Token.Literal }

// NilLiteral pushes nil.
type NilLiteral struct {
	Token lexer.Token
}

func (n *NilLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NilLiteral) Pos() (int, int)      { return n.Token.Line, n.Token.Column }
func (n *NilLiteral) String() string       { return "nil" }

// Operation is an operator or stack-manipulation instruction.
type Operation struct {
	Token lexer.Token
	Op    OpKind
}

func (o *Operation) TokenLiteral() string { return o.Token.Literal }
func (o *Operation) Pos() (int, int)      { return o.Token.Line, o.Token.Column }
func (o *Operation) String() string       { return o.Op.String() }

// Symbol is a name reference: a procedure call, a cached definition,
// or a variable binding. Which one is decided at bind/run time.
type Symbol struct {
	Token lexer.Token
	Name  string
}

func (s *Symbol) TokenLiteral() string { return s.Token.Literal }
func (s *Symbol) Pos() (int, int)      { return s.Token.Line, s.Token.Column }
func (s *Symbol) String() string       { return s.Name }

// IfBlock pops a boolean and runs Consequence when true, Alternative
// (which may be nil) when false.
type IfBlock struct {
	Token       lexer.Token
	Consequence []Instruction
	Alternative []Instruction
}

func (i *IfBlock) TokenLiteral() string { return i.Token.Literal }
func (i *IfBlock) Pos() (int, int)      { return i.Token.Line, i.Token.Column }
func (i *IfBlock) String() string {
	var sb strings.Builder
	sb.WriteString("if ")
	sb.WriteString(joinInstructions(i.Consequence))
	if i.Alternative != nil {
		sb.WriteString(" else ")
		sb.WriteString(joinInstructions(i.Alternative))
	}
	sb.WriteString(" end")
	return sb.String()
}

// LoopBlock repeats Body until a break transfers control past end.
type LoopBlock struct {
	Token lexer.Token
	Body  []Instruction
}

func (l *LoopBlock) TokenLiteral() string { return l.Token.Literal }
func (l *LoopBlock) Pos() (int, int)      { return l.Token.Line, l.Token.Column }
func (l *LoopBlock) String() string {
	return "loop " + joinInstructions(l.Body) + " end"
}

// BreakStatement leaves the innermost loop.
type BreakStatement struct {
	Token lexer.Token
}

func (b *BreakStatement) TokenLiteral() string { return b.Token.Literal }
func (b *BreakStatement) Pos() (int, int)      { return b.Token.Line, b.Token.Column }
func (b *BreakStatement) String() string       { return "break" }

// ContinueStatement restarts the innermost loop body.
type ContinueStatement struct {
	Token lexer.Token
}

func (c *ContinueStatement) TokenLiteral() string { return c.Token.Literal }
func (c *ContinueStatement) Pos() (int, int)      { return c.Token.Line, c.Token.Column }
func (c *ContinueStatement) String() string       { return "continue" }

// ReturnStatement unwinds to the caller of the current procedure.
type ReturnStatement struct {
	Token lexer.Token
}

func (r *ReturnStatement) TokenLiteral() string { return r.Token.Literal }
func (r *ReturnStatement) Pos() (int, int)      { return r.Token.Line, r.Token.Column }
func (r *ReturnStatement) String() string       { return "return" }

// ProcDefinition binds a name to a reusable instruction sequence,
// re-executed on every call.
type ProcDefinition struct {
	Token lexer.Token
	Name  string
	Body  []Instruction
}

func (p *ProcDefinition) TokenLiteral() string { return p.Token.Literal }
func (p *ProcDefinition) Pos() (int, int)      { return p.Token.Line, p.Token.Column }
func (p *ProcDefinition) String() string {
	return "proc " + p.Name + " " + joinInstructions(p.Body) + " end"
}

// DefDefinition binds a name to a value computed once and cached.
type DefDefinition struct {
	Token lexer.Token
	Name  string
	Body  []Instruction
}

func (d *DefDefinition) TokenLiteral() string { return d.Token.Literal }
func (d *DefDefinition) Pos() (int, int)      { return d.Token.Line, d.Token.Column }
func (d *DefDefinition) String() string {
	return "def " + d.Name + " " + joinInstructions(d.Body) + " end"
}

// LetBinding pops one value into the named slot, rebinding it if the
// name was already bound.
type LetBinding struct {
	Token lexer.Token
	Name  string
}

func (l *LetBinding) TokenLiteral() string { return l.Token.Literal }
func (l *LetBinding) Pos() (int, int)      { return l.Token.Line, l.Token.Column }
func (l *LetBinding) String() string       { return "let " + l.Name }

// AsLetBlock pops one value per name, binds them in a fresh local
// frame, runs Body, then discards the frame.
type AsLetBlock struct {
	Token lexer.Token
	Names []lexer.Token
	Body  []Instruction
}

func (a *AsLetBlock) TokenLiteral() string { return a.Token.Literal }
func (a *AsLetBlock) Pos() (int, int)      { return a.Token.Line, a.Token.Column }
func (a *AsLetBlock) String() string {
	var sb strings.Builder
	sb.WriteString("as")
	for _, n := range a.Names {
		sb.WriteString(" ")
		sb.WriteString(n.Literal)
	}
	sb.WriteString(" let ")
	sb.WriteString(joinInstructions(a.Body))
	sb.WriteString(" end")
	return sb.String()
}

// ArrayBlock runs Body and collects every value it leaves on the stack
// into a new array, pushed as the single result.
type ArrayBlock struct {
	Token lexer.Token
	Body  []Instruction
}

func (a *ArrayBlock) TokenLiteral() string { return a.Token.Literal }
func (a *ArrayBlock) Pos() (int, int)      { return a.Token.Line, a.Token.Column }
func (a *ArrayBlock) String() string {
	return "array " + joinInstructions(a.Body) + " end"
}

// ImportDirective loads another unit and merges its definitions.
// Resolved is filled in by the binder with the cleaned absolute path
// of the imported file.
type ImportDirective struct {
	Token    lexer.Token
	Path     string
	Resolved string
}

func (i *ImportDirective) TokenLiteral() string { return i.Token.Literal }
func (i *ImportDirective) Pos() (int, int)      { return i.Token.Line, i.Token.Column }
func (i *ImportDirective) String() string       { return fmt.Sprintf("import %q", i.Path) }

func joinInstructions(instrs []Instruction) string {
	parts := make([]string, len(instrs))
	for i, instr := range instrs {
		parts[i] = instr.String()
	}
	return strings.Join(parts, " ")
}
