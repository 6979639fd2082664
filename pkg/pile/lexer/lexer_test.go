package lexer

import (
	"strings"
	"testing"
)

func TestNextToken_Words(t *testing.T) {
	input := `1 2 + print`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{NUMBER, "1"},
		{NUMBER, "2"},
		{WORD, "+"},
		{WORD, "print"},
		{EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken_Numbers(t *testing.T) {
	tests := []struct {
		input           string
		expectedType    TokenType
		expectedLiteral string
	}{
		{"42", NUMBER, "42"},
		{"-3", NUMBER, "-3"},
		{"1.5", NUMBER, "1.5"},
		{"-0.25", NUMBER, "-0.25"},
		{".5", NUMBER, ".5"},
		{"-", WORD, "-"},     // bare minus is the operator
		{"-x", WORD, "-x"},   // minus followed by a letter is a word
		{"3dup", ILLEGAL, ""}, // digit-led word is a lex error
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] (%q) - tokentype wrong. expected=%q, got=%q",
				i, tt.input, tt.expectedType, tok.Type)
		}
		if tt.expectedType != ILLEGAL && tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] (%q) - literal wrong. expected=%q, got=%q",
				i, tt.input, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken_NumberErrors(t *testing.T) {
	tests := []struct {
		input       string
		wantMessage string
	}{
		{"1.2.3", "more than one decimal point"},
		{"12x", "invalid character"},
		{"-3q", "invalid character"},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()

		if tok.Type != ILLEGAL {
			t.Fatalf("tests[%d] (%q) - expected ILLEGAL, got %q (%q)",
				i, tt.input, tok.Type, tok.Literal)
		}
		if !strings.Contains(tok.Literal, tt.wantMessage) {
			t.Errorf("tests[%d] (%q) - message %q should contain %q",
				i, tt.input, tok.Literal, tt.wantMessage)
		}
	}
}

func TestNextToken_Strings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`""`, ""},
		{`"with space"`, "with space"},
		{`"line\n"`, "line\n"},
		{`"tab\there"`, "tab\there"},
		{`"quote\"inside"`, `quote"inside`},
		{`"back\\slash"`, `back\slash`},
		{`"nul\0"`, "nul\x00"},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()

		if tok.Type != STRING {
			t.Fatalf("tests[%d] (%q) - expected STRING, got %q (%q)",
				i, tt.input, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expected {
			t.Errorf("tests[%d] (%q) - literal = %q, want %q",
				i, tt.input, tok.Literal, tt.expected)
		}
	}
}

func TestNextToken_StringErrors(t *testing.T) {
	tests := []struct {
		input       string
		wantMessage string
	}{
		{`"unterminated`, "expected closing quotation mark"},
		{`"bad\q"`, "invalid escape character"},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()

		if tok.Type != ILLEGAL {
			t.Fatalf("tests[%d] (%q) - expected ILLEGAL, got %q (%q)",
				i, tt.input, tok.Type, tok.Literal)
		}
		if !strings.Contains(tok.Literal, tt.wantMessage) {
			t.Errorf("tests[%d] (%q) - message %q should contain %q",
				i, tt.input, tok.Literal, tt.wantMessage)
		}
	}
}

func TestNextToken_CharLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`'a'`, "97"},
		{`'A'`, "65"},
		{`'0'`, "48"},
		{`'\n'`, "10"},
		{`'\t'`, "9"},
		{`'\0'`, "0"},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()

		if tok.Type != NUMBER {
			t.Fatalf("tests[%d] (%q) - expected NUMBER, got %q (%q)",
				i, tt.input, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expected {
			t.Errorf("tests[%d] (%q) - literal = %q, want %q",
				i, tt.input, tok.Literal, tt.expected)
		}
	}
}

func TestNextToken_Comments(t *testing.T) {
	input := `1 # this whole line is ignored
# so is this one
2`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
		expectedLine    int
	}{
		{NUMBER, "1", 1},
		{NUMBER, "2", 3},
		{EOF, "", 3},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
		if tok.Line != tt.expectedLine {
			t.Errorf("tests[%d] - line = %d, want %d", i, tok.Line, tt.expectedLine)
		}
	}
}

func TestNextToken_Positions(t *testing.T) {
	input := "10 20\nswap +"

	tests := []struct {
		literal string
		line    int
		column  int
	}{
		{"10", 1, 1},
		{"20", 1, 4},
		{"swap", 2, 1},
		{"+", 2, 6},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Literal != tt.literal {
			t.Fatalf("tests[%d] - literal = %q, want %q", i, tok.Literal, tt.literal)
		}
		if tok.Line != tt.line || tok.Column != tt.column {
			t.Errorf("tests[%d] (%q) - position = (%d, %d), want (%d, %d)",
				i, tt.literal, tok.Line, tok.Column, tt.line, tt.column)
		}
	}
}

func TestTokenize(t *testing.T) {
	input := `proc double
  2 *
end
5 double println`

	l := New(input)
	tokens := l.Tokenize()

	wantLiterals := []string{"proc", "double", "2", "*", "end", "5", "double", "println"}
	if len(tokens) != len(wantLiterals) {
		t.Fatalf("len(tokens) = %d, want %d", len(tokens), len(wantLiterals))
	}
	for i, want := range wantLiterals {
		if tokens[i].Literal != want {
			t.Errorf("tokens[%d].Literal = %q, want %q", i, tokens[i].Literal, want)
		}
	}
}

func TestTokenize_StopsAtIllegal(t *testing.T) {
	l := New(`1 2 "unterminated`)
	tokens := l.Tokenize()

	if len(tokens) != 3 {
		t.Fatalf("len(tokens) = %d, want 3", len(tokens))
	}
	if tokens[2].Type != ILLEGAL {
		t.Errorf("last token type = %q, want ILLEGAL", tokens[2].Type)
	}
}

func TestTokenType_String(t *testing.T) {
	tests := []struct {
		tt   TokenType
		want string
	}{
		{ILLEGAL, "ILLEGAL"},
		{EOF, "EOF"},
		{NUMBER, "NUMBER"},
		{STRING, "STRING"},
		{WORD, "WORD"},
	}

	for _, tt := range tests {
		if got := tt.tt.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
