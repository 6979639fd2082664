// Package parser turns a token stream into an instruction tree.
//
// pile has no expression grammar: a program is a flat sequence of
// instructions, and the only structure is the block keywords
// (if/else, loop, proc, def, as..let, array) which must each be
// closed by a matching end. The parser checks that structure, maps
// operator words to their opcodes, and validates names at their
// definition sites. It records every error it finds and keeps going,
// so one pass reports as much as possible.
package parser

import (
	"strconv"
	"strings"

	"github.com/pilelang/pile/pkg/pile/ast"
	"github.com/pilelang/pile/pkg/pile/errors"
	"github.com/pilelang/pile/pkg/pile/lexer"
)

// reserved words cannot be used as proc/def/let/as names.
var reserved = map[string]bool{
	"if": true, "else": true, "loop": true, "end": true,
	"proc": true, "def": true, "let": true, "as": true,
	"array": true, "import": true, "break": true, "continue": true,
	"return": true, "true": true, "false": true, "nil": true,
}

// Parser holds the state for a single parse.
type Parser struct {
	l *lexer.Lexer

	curToken lexer.Token
	done     bool

	errors []*errors.PileError
}

// New creates a parser reading from the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	return p
}

// Errors returns parse error messages as plain strings.
func (p *Parser) Errors() []string {
	msgs := make([]string, len(p.errors))
	for i, e := range p.errors {
		msgs[i] = e.String()
	}
	return msgs
}

// StructuredErrors returns the full error values with positions.
func (p *Parser) StructuredErrors() []*errors.PileError {
	return p.errors
}

func (p *Parser) addError(err *errors.PileError) {
	p.errors = append(p.errors, err.WithFile(p.l.Filename()))
}

func (p *Parser) nextToken() {
	if p.done {
		return
	}
	p.curToken = p.l.NextToken()

	// A lex error poisons the rest of the stream: report it once and
	// treat everything after it as EOF.
	if p.curToken.Type == lexer.ILLEGAL {
		p.addError(lexError(p.curToken))
		p.curToken = lexer.Token{Type: lexer.EOF, Line: p.curToken.Line, Column: p.curToken.Column}
		p.done = true
	}
	if p.curToken.Type == lexer.EOF {
		p.done = true
	}
}

// lexError wraps an ILLEGAL token, whose literal is already a rendered
// message, in a cataloged error value.
func lexError(tok lexer.Token) *errors.PileError {
	code := "LEX-0001"
	switch {
	case strings.Contains(tok.Literal, "closing quotation mark"):
		code = "LEX-0002"
	case strings.Contains(tok.Literal, "escape character"):
		code = "LEX-0003"
	case strings.Contains(tok.Literal, "number literal"):
		code = "LEX-0004"
	}
	def := errors.ErrorCatalog[code]
	return &errors.PileError{
		Class:   def.Class,
		Code:    code,
		Message: tok.Literal,
		Line:    tok.Line,
		Column:  tok.Column,
	}
}

func (p *Parser) curWordIs(word string) bool {
	return p.curToken.Type == lexer.WORD && p.curToken.Literal == word
}

// ParseProgram parses the whole input and returns the instruction
// tree. Call StructuredErrors afterwards; a program with recorded
// errors must not be executed.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Instructions = p.parseSequence(nil)

	// Anything that stopped the top-level sequence is a stray closer.
	for p.curToken.Type != lexer.EOF {
		if p.curWordIs("end") {
			p.addError(errors.NewWithPosition("PARSE-0002", p.curToken.Line, p.curToken.Column, nil))
		} else if p.curWordIs("else") {
			p.addError(errors.NewWithPosition("PARSE-0004", p.curToken.Line, p.curToken.Column, nil))
		}
		p.nextToken()
		program.Instructions = append(program.Instructions, p.parseSequence(nil)...)
	}

	return program
}

// parseSequence parses instructions until EOF, 'end', or 'else',
// leaving the terminator as the current token.
func (p *Parser) parseSequence(into []ast.Instruction) []ast.Instruction {
	for p.curToken.Type != lexer.EOF {
		if p.curWordIs("end") || p.curWordIs("else") {
			return into
		}
		if instr := p.parseInstruction(); instr != nil {
			into = append(into, instr)
		}
	}
	return into
}

// parseInstruction parses one instruction and advances past it.
// Returns nil when the token was consumed as part of error recovery.
func (p *Parser) parseInstruction() ast.Instruction {
	tok := p.curToken

	switch tok.Type {
	case lexer.NUMBER:
		return p.parseNumber(tok)
	case lexer.STRING:
		p.nextToken()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal}
	}

	// Everything else is a word.
	if op, ok := ast.LookupOp(tok.Literal); ok {
		p.nextToken()
		return &ast.Operation{Token: tok, Op: op}
	}

	switch tok.Literal {
	case "true", "false":
		p.nextToken()
		return &ast.BoolLiteral{Token: tok, Value: tok.Literal == "true"}
	case "nil":
		p.nextToken()
		return &ast.NilLiteral{Token: tok}
	case "if":
		return p.parseIf(tok)
	case "loop":
		return p.parseLoop(tok)
	case "proc":
		return p.parseProc(tok)
	case "def":
		return p.parseDef(tok)
	case "let":
		return p.parseLet(tok)
	case "as":
		return p.parseAsLet(tok)
	case "array":
		return p.parseArray(tok)
	case "import":
		return p.parseImport(tok)
	case "break":
		p.nextToken()
		return &ast.BreakStatement{Token: tok}
	case "continue":
		p.nextToken()
		return &ast.ContinueStatement{Token: tok}
	case "return":
		p.nextToken()
		return &ast.ReturnStatement{Token: tok}
	}

	p.nextToken()
	return &ast.Symbol{Token: tok, Name: tok.Literal}
}

func (p *Parser) parseNumber(tok lexer.Token) ast.Instruction {
	value, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.addError(errors.NewWithPosition("LEX-0004", tok.Line, tok.Column, map[string]any{
			"Literal": tok.Literal,
			"Detail":  "does not parse as a number",
		}))
		p.nextToken()
		return nil
	}
	p.nextToken()
	return &ast.NumberLiteral{Token: tok, Value: value}
}

func (p *Parser) parseIf(tok lexer.Token) ast.Instruction {
	p.nextToken()
	block := &ast.IfBlock{Token: tok}
	block.Consequence = p.parseSequence(nil)

	if p.curWordIs("else") {
		p.nextToken()
		alternative := p.parseSequence([]ast.Instruction{})

		// A second else rejoins the same alternative after an error.
		for p.curWordIs("else") {
			p.addError(errors.NewWithPosition("PARSE-0008", p.curToken.Line, p.curToken.Column, nil))
			p.nextToken()
			alternative = p.parseSequence(alternative)
		}
		block.Alternative = alternative
	}

	if p.curWordIs("end") {
		p.nextToken()
	} else {
		p.unterminated(tok, "if")
	}
	return block
}

func (p *Parser) parseLoop(tok lexer.Token) ast.Instruction {
	p.nextToken()
	block := &ast.LoopBlock{Token: tok}
	block.Body = p.parseSequence(nil)
	p.expectEnd(tok, "loop")
	return block
}

func (p *Parser) parseProc(tok lexer.Token) ast.Instruction {
	p.nextToken()
	name, ok := p.parseName()
	block := &ast.ProcDefinition{Token: tok, Name: name}
	block.Body = p.parseSequence(nil)
	p.expectEnd(tok, "proc")
	if !ok {
		return nil
	}
	return block
}

func (p *Parser) parseDef(tok lexer.Token) ast.Instruction {
	p.nextToken()
	name, ok := p.parseName()
	block := &ast.DefDefinition{Token: tok, Name: name}
	block.Body = p.parseSequence(nil)
	p.expectEnd(tok, "def")
	if !ok {
		return nil
	}
	return block
}

func (p *Parser) parseLet(tok lexer.Token) ast.Instruction {
	p.nextToken()
	name, ok := p.parseName()
	if !ok {
		return nil
	}
	return &ast.LetBinding{Token: tok, Name: name}
}

func (p *Parser) parseAsLet(tok lexer.Token) ast.Instruction {
	p.nextToken()
	block := &ast.AsLetBlock{Token: tok}

	for p.curToken.Type != lexer.EOF && !p.curWordIs("let") {
		nameTok := p.curToken
		if _, ok := p.parseName(); ok {
			block.Names = append(block.Names, nameTok)
		}
	}

	if len(block.Names) == 0 {
		p.addError(errors.NewWithPosition("PARSE-0006", tok.Line, tok.Column, nil))
	}

	if p.curWordIs("let") {
		p.nextToken()
	} else {
		p.unterminated(tok, "as")
		return block
	}

	block.Body = p.parseSequence(nil)
	p.expectEnd(tok, "as")
	return block
}

func (p *Parser) parseArray(tok lexer.Token) ast.Instruction {
	p.nextToken()
	block := &ast.ArrayBlock{Token: tok}
	block.Body = p.parseSequence(nil)
	p.expectEnd(tok, "array")
	return block
}

func (p *Parser) parseImport(tok lexer.Token) ast.Instruction {
	p.nextToken()
	if p.curToken.Type != lexer.STRING {
		p.addError(errors.NewWithPosition("PARSE-0007", p.curToken.Line, p.curToken.Column, map[string]any{
			"Got": p.curToken.Literal,
		}))
		p.nextToken()
		return nil
	}
	path := p.curToken.Literal
	p.nextToken()
	return &ast.ImportDirective{Token: tok, Path: path}
}

// parseName consumes the current token as a definition-site name.
// Reserved words, operators, and non-word tokens are rejected.
func (p *Parser) parseName() (string, bool) {
	tok := p.curToken

	if tok.Type != lexer.WORD {
		p.addError(errors.NewWithPosition("PARSE-0001", tok.Line, tok.Column, map[string]any{
			"Expected": "a name",
			"Got":      tok.Literal,
		}))
		p.nextToken()
		return "", false
	}

	if _, isOp := ast.LookupOp(tok.Literal); isOp || reserved[tok.Literal] {
		p.addError(errors.NewWithPosition("PARSE-0005", tok.Line, tok.Column, map[string]any{
			"Name": tok.Literal,
		}))
		p.nextToken()
		return "", false
	}

	p.nextToken()
	return tok.Literal, true
}

// expectEnd consumes the closing end of a block, or records an
// unterminated-block error at the opener when the input ran out.
func (p *Parser) expectEnd(opener lexer.Token, blockName string) {
	if p.curWordIs("end") {
		p.nextToken()
		return
	}
	if p.curWordIs("else") {
		p.addError(errors.NewWithPosition("PARSE-0004", p.curToken.Line, p.curToken.Column, nil))
		p.nextToken()
		p.parseSequence(nil)
		p.expectEnd(opener, blockName)
		return
	}
	p.unterminated(opener, blockName)
}

func (p *Parser) unterminated(opener lexer.Token, blockName string) {
	p.addError(errors.NewWithPosition("PARSE-0003", opener.Line, opener.Column, map[string]any{
		"Block": blockName,
	}))
}
