package parser

import (
	"testing"

	"github.com/pilelang/pile/pkg/pile/ast"
	"github.com/pilelang/pile/pkg/pile/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) != 0 {
		t.Fatalf("parser had %d error(s), first: %s", len(errs), errs[0])
	}
	return program
}

func parseWithErrors(t *testing.T, input string) []string {
	t.Helper()
	p := New(lexer.New(input))
	p.ParseProgram()
	var codes []string
	for _, e := range p.StructuredErrors() {
		codes = append(codes, e.Code)
	}
	return codes
}

func TestParseLiterals(t *testing.T) {
	program := parse(t, `1 2.5 -3 "hi" true false nil`)

	if len(program.Instructions) != 7 {
		t.Fatalf("len(Instructions) = %d, want 7", len(program.Instructions))
	}

	num, ok := program.Instructions[0].(*ast.NumberLiteral)
	if !ok || num.Value != 1 {
		t.Errorf("Instructions[0] = %v, want NumberLiteral(1)", program.Instructions[0])
	}
	if num, _ := program.Instructions[1].(*ast.NumberLiteral); num == nil || num.Value != 2.5 {
		t.Errorf("Instructions[1] = %v, want NumberLiteral(2.5)", program.Instructions[1])
	}
	if num, _ := program.Instructions[2].(*ast.NumberLiteral); num == nil || num.Value != -3 {
		t.Errorf("Instructions[2] = %v, want NumberLiteral(-3)", program.Instructions[2])
	}
	if str, _ := program.Instructions[3].(*ast.StringLiteral); str == nil || str.Value != "hi" {
		t.Errorf("Instructions[3] = %v, want StringLiteral(hi)", program.Instructions[3])
	}
	if b, _ := program.Instructions[4].(*ast.BoolLiteral); b == nil || b.Value != true {
		t.Errorf("Instructions[4] = %v, want BoolLiteral(true)", program.Instructions[4])
	}
	if b, _ := program.Instructions[5].(*ast.BoolLiteral); b == nil || b.Value != false {
		t.Errorf("Instructions[5] = %v, want BoolLiteral(false)", program.Instructions[5])
	}
	if _, ok := program.Instructions[6].(*ast.NilLiteral); !ok {
		t.Errorf("Instructions[6] = %v, want NilLiteral", program.Instructions[6])
	}
}

func TestParseOperations(t *testing.T) {
	tests := []struct {
		word string
		op   ast.OpKind
	}{
		{"+", ast.OpAdd},
		{"-", ast.OpSub},
		{"*", ast.OpMul},
		{"/", ast.OpDiv},
		{"%", ast.OpMod},
		{"**", ast.OpExp},
		{">", ast.OpGt},
		{"<", ast.OpLt},
		{"=", ast.OpEq},
		{">=", ast.OpGe},
		{"<=", ast.OpLe},
		{"!=", ast.OpNe},
		{"<<", ast.OpShl},
		{">>", ast.OpShr},
		{"|", ast.OpBor},
		{"&", ast.OpBand},
		{"~", ast.OpBnot},
		{"?", ast.OpIsNil},
		{"@", ast.OpIndex},
		{"!", ast.OpAssignAtIndex},
		{"dup", ast.OpDup},
		{"drop", ast.OpDrop},
		{"swap", ast.OpSwap},
		{"over", ast.OpOver},
		{"rot", ast.OpRot},
		{"trace", ast.OpTrace},
	}

	for _, tt := range tests {
		program := parse(t, tt.word)
		if len(program.Instructions) != 1 {
			t.Fatalf("%q: len(Instructions) = %d, want 1", tt.word, len(program.Instructions))
		}
		op, ok := program.Instructions[0].(*ast.Operation)
		if !ok {
			t.Fatalf("%q: got %T, want *ast.Operation", tt.word, program.Instructions[0])
		}
		if op.Op != tt.op {
			t.Errorf("%q: Op = %v, want %v", tt.word, op.Op, tt.op)
		}
	}
}

func TestParseSymbol(t *testing.T) {
	program := parse(t, `5 double println`)

	sym, ok := program.Instructions[1].(*ast.Symbol)
	if !ok {
		t.Fatalf("Instructions[1] = %T, want *ast.Symbol", program.Instructions[1])
	}
	if sym.Name != "double" {
		t.Errorf("Name = %q, want %q", sym.Name, "double")
	}
}

func TestParseIf(t *testing.T) {
	program := parse(t, `5 3 > if "yes" print end`)

	block, ok := program.Instructions[3].(*ast.IfBlock)
	if !ok {
		t.Fatalf("Instructions[3] = %T, want *ast.IfBlock", program.Instructions[3])
	}
	if len(block.Consequence) != 2 {
		t.Errorf("len(Consequence) = %d, want 2", len(block.Consequence))
	}
	if block.Alternative != nil {
		t.Errorf("Alternative = %v, want nil", block.Alternative)
	}
}

func TestParseIfElse(t *testing.T) {
	program := parse(t, `true if 1 else 2 3 end`)

	block, ok := program.Instructions[1].(*ast.IfBlock)
	if !ok {
		t.Fatalf("Instructions[1] = %T, want *ast.IfBlock", program.Instructions[1])
	}
	if len(block.Consequence) != 1 {
		t.Errorf("len(Consequence) = %d, want 1", len(block.Consequence))
	}
	if len(block.Alternative) != 2 {
		t.Errorf("len(Alternative) = %d, want 2", len(block.Alternative))
	}
}

func TestParseIfElse_EmptyAlternative(t *testing.T) {
	program := parse(t, `true if 1 else end`)

	block := program.Instructions[1].(*ast.IfBlock)
	if block.Alternative == nil {
		t.Error("Alternative = nil, want empty (else was present)")
	}
	if len(block.Alternative) != 0 {
		t.Errorf("len(Alternative) = %d, want 0", len(block.Alternative))
	}
}

func TestParseNestedBlocks(t *testing.T) {
	program := parse(t, `loop
  dup 10 < if
    break
  end
  1 +
end`)

	loop, ok := program.Instructions[0].(*ast.LoopBlock)
	if !ok {
		t.Fatalf("Instructions[0] = %T, want *ast.LoopBlock", program.Instructions[0])
	}
	if len(loop.Body) != 6 {
		t.Fatalf("len(Body) = %d, want 6", len(loop.Body))
	}

	inner, ok := loop.Body[3].(*ast.IfBlock)
	if !ok {
		t.Fatalf("Body[3] = %T, want *ast.IfBlock", loop.Body[3])
	}
	if _, ok := inner.Consequence[0].(*ast.BreakStatement); !ok {
		t.Errorf("Consequence[0] = %T, want *ast.BreakStatement", inner.Consequence[0])
	}
}

func TestParseProc(t *testing.T) {
	program := parse(t, `proc double
  2 *
end`)

	proc, ok := program.Instructions[0].(*ast.ProcDefinition)
	if !ok {
		t.Fatalf("Instructions[0] = %T, want *ast.ProcDefinition", program.Instructions[0])
	}
	if proc.Name != "double" {
		t.Errorf("Name = %q, want %q", proc.Name, "double")
	}
	if len(proc.Body) != 2 {
		t.Errorf("len(Body) = %d, want 2", len(proc.Body))
	}
}

func TestParseDef(t *testing.T) {
	program := parse(t, `def answer 6 7 * end`)

	def, ok := program.Instructions[0].(*ast.DefDefinition)
	if !ok {
		t.Fatalf("Instructions[0] = %T, want *ast.DefDefinition", program.Instructions[0])
	}
	if def.Name != "answer" {
		t.Errorf("Name = %q, want %q", def.Name, "answer")
	}
	if len(def.Body) != 3 {
		t.Errorf("len(Body) = %d, want 3", len(def.Body))
	}
}

func TestParseLet(t *testing.T) {
	program := parse(t, `42 let x x println`)

	binding, ok := program.Instructions[1].(*ast.LetBinding)
	if !ok {
		t.Fatalf("Instructions[1] = %T, want *ast.LetBinding", program.Instructions[1])
	}
	if binding.Name != "x" {
		t.Errorf("Name = %q, want %q", binding.Name, "x")
	}
}

func TestParseAsLet(t *testing.T) {
	program := parse(t, `1 2 as x y let x y + end`)

	block, ok := program.Instructions[2].(*ast.AsLetBlock)
	if !ok {
		t.Fatalf("Instructions[2] = %T, want *ast.AsLetBlock", program.Instructions[2])
	}
	if len(block.Names) != 2 {
		t.Fatalf("len(Names) = %d, want 2", len(block.Names))
	}
	if block.Names[0].Literal != "x" || block.Names[1].Literal != "y" {
		t.Errorf("Names = [%q, %q], want [x, y]", block.Names[0].Literal, block.Names[1].Literal)
	}
	if len(block.Body) != 3 {
		t.Errorf("len(Body) = %d, want 3", len(block.Body))
	}
}

func TestParseArray(t *testing.T) {
	program := parse(t, `array 1 2 3 end`)

	block, ok := program.Instructions[0].(*ast.ArrayBlock)
	if !ok {
		t.Fatalf("Instructions[0] = %T, want *ast.ArrayBlock", program.Instructions[0])
	}
	if len(block.Body) != 3 {
		t.Errorf("len(Body) = %d, want 3", len(block.Body))
	}
}

func TestParseImport(t *testing.T) {
	program := parse(t, `import "lib/stats.pile"`)

	imp, ok := program.Instructions[0].(*ast.ImportDirective)
	if !ok {
		t.Fatalf("Instructions[0] = %T, want *ast.ImportDirective", program.Instructions[0])
	}
	if imp.Path != "lib/stats.pile" {
		t.Errorf("Path = %q, want %q", imp.Path, "lib/stats.pile")
	}
}

func TestParsePositions(t *testing.T) {
	program := parse(t, "1\n  swap")

	line, col := program.Instructions[0].Pos()
	if line != 1 || col != 1 {
		t.Errorf("Instructions[0].Pos() = (%d, %d), want (1, 1)", line, col)
	}
	line, col = program.Instructions[1].Pos()
	if line != 2 || col != 3 {
		t.Errorf("Instructions[1].Pos() = (%d, %d), want (2, 3)", line, col)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode string
	}{
		{"stray end", `1 2 end`, "PARSE-0002"},
		{"stray else", `1 else 2`, "PARSE-0004"},
		{"unterminated loop", `loop 1 2`, "PARSE-0003"},
		{"unterminated if", `true if 1`, "PARSE-0003"},
		{"unterminated proc", `proc f 1 +`, "PARSE-0003"},
		{"as without names", `1 as let drop end`, "PARSE-0006"},
		{"as without let", `1 2 as x y`, "PARSE-0003"},
		{"reserved proc name", `proc loop 1 end`, "PARSE-0005"},
		{"operator as let name", `1 let +`, "PARSE-0005"},
		{"number as proc name", `proc 99 1 end`, "PARSE-0001"},
		{"import without string", `import 42`, "PARSE-0007"},
		{"duplicate else", `true if 1 else 2 else 3 end`, "PARSE-0008"},
		{"unterminated string", `"oops`, "LEX-0002"},
		{"bad number", `1.2.3`, "LEX-0004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := parseWithErrors(t, tt.input)
			if len(codes) == 0 {
				t.Fatalf("expected errors for %q, got none", tt.input)
			}
			found := false
			for _, code := range codes {
				if code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("error codes = %v, want to include %q", codes, tt.wantCode)
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	p := New(lexer.New("1 2\nloop 3 4"))
	p.ParseProgram()

	errs := p.StructuredErrors()
	if len(errs) != 1 {
		t.Fatalf("len(errors) = %d, want 1", len(errs))
	}
	if errs[0].Line != 2 || errs[0].Column != 1 {
		t.Errorf("error position = (%d, %d), want (2, 1) at the loop opener",
			errs[0].Line, errs[0].Column)
	}
}

func TestProgramString(t *testing.T) {
	program := parse(t, `proc double 2 * end 5 double println`)

	want := "proc double 2 * end 5 double println"
	if got := program.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
