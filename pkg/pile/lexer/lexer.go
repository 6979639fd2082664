package lexer

import "fmt"

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Literals and words
	NUMBER // 42, -3, 1.5
	STRING // "hello"
	WORD   // dup, proc, +, fib, ...
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case WORD:
		return "WORD"
	default:
		return "UNKNOWN"
	}
}

// escapeChar maps the character after a backslash to its escaped form.
func escapeChar(c byte) (byte, bool) {
	switch c {
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case '"':
		return '"', true
	case '\\':
		return '\\', true
	case '0':
		return 0, true
	}
	return 0, false
}

// Lexer represents the lexical analyzer
type Lexer struct {
	filename     string
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "<input>")
}

// NewWithFilename creates a new lexer instance with a specific filename
func NewWithFilename(input string, filename string) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    input,
		line:     1,
		column:   0,
	}
	l.readChar()
	return l
}

// Filename returns the name attached to the input being lexed.
func (l *Lexer) Filename() string {
	return l.filename
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII NUL represents EOF
		l.position = l.readPosition
		return
	}

	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipTrivia consumes whitespace and # comments
func (l *Lexer) skipTrivia() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isWordBreak(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == 0 || ch == '#'
}

// isNumberStart reports whether the current character begins a number
// token. A leading '-' counts only when a digit or '.' follows, so the
// bare word '-' still lexes as the subtraction operator.
func (l *Lexer) isNumberStart() bool {
	if isDigit(l.ch) {
		return true
	}
	if l.ch == '-' {
		next := l.peekChar()
		return isDigit(next) || next == '.'
	}
	if l.ch == '.' {
		return isDigit(l.peekChar())
	}
	return false
}

// NextToken scans the input and returns the next token
func (l *Lexer) NextToken() Token {
	l.skipTrivia()

	line := l.line
	column := l.column

	switch {
	case l.ch == 0:
		return Token{Type: EOF, Literal: "", Line: line, Column: column}
	case l.ch == '"':
		return l.readString(line, column)
	case l.ch == '\'':
		return l.readCharLiteral(line, column)
	case l.isNumberStart():
		return l.readNumber(line, column)
	default:
		return l.readWord(line, column)
	}
}

// Tokenize scans the whole input and returns every token up to EOF.
// The EOF token itself is not included. Scanning stops at the first
// ILLEGAL token, which is returned as the last element.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			return tokens
		}
		tokens = append(tokens, tok)
		if tok.Type == ILLEGAL {
			return tokens
		}
	}
}

// readString reads a double-quoted string literal with escape support.
// An unterminated string or an unknown escape yields an ILLEGAL token.
func (l *Lexer) readString(line, column int) Token {
	var result []byte
	l.readChar() // skip opening quote

	for l.ch != '"' {
		if l.ch == 0 {
			return Token{
				Type:    ILLEGAL,
				Literal: fmt.Sprintf("expected closing quotation mark (\") for string literal %q", truncate(string(result), 20)),
				Line:    line,
				Column:  column,
			}
		}
		if l.ch == '\\' {
			l.readChar() // consume backslash
			esc, ok := escapeChar(l.ch)
			if !ok {
				return Token{
					Type:    ILLEGAL,
					Literal: fmt.Sprintf("invalid escape character `\\%c` in string literal", l.ch),
					Line:    l.line,
					Column:  l.column,
				}
			}
			result = append(result, esc)
		} else {
			result = append(result, l.ch)
		}
		l.readChar()
	}
	l.readChar() // skip closing quote

	return Token{Type: STRING, Literal: string(result), Line: line, Column: column}
}

// readCharLiteral reads 'c' and produces a NUMBER token holding the
// code point, the same shorthand the language uses for character math.
func (l *Lexer) readCharLiteral(line, column int) Token {
	l.readChar() // skip opening quote
	if l.ch == 0 {
		return Token{
			Type:    ILLEGAL,
			Literal: "expected a character after ' in char literal",
			Line:    line,
			Column:  column,
		}
	}

	ch := l.ch
	if ch == '\\' {
		l.readChar()
		esc, ok := escapeChar(l.ch)
		if !ok {
			return Token{
				Type:    ILLEGAL,
				Literal: fmt.Sprintf("invalid escape character `\\%c` in char literal", l.ch),
				Line:    l.line,
				Column:  l.column,
			}
		}
		ch = esc
	}
	l.readChar()
	if l.ch == '\'' {
		l.readChar() // closing quote is optional whitespace-wise but consumed when present
	}

	return Token{Type: NUMBER, Literal: fmt.Sprintf("%d", ch), Line: line, Column: column}
}

// readNumber reads an integer or float literal. At most one '.' is
// allowed; a second one, or any non-digit before the next word break,
// is a lex error.
func (l *Lexer) readNumber(line, column int) Token {
	position := l.position
	sawDot := false

	if l.ch == '-' {
		l.readChar()
	}
	for !isWordBreak(l.ch) {
		switch {
		case isDigit(l.ch):
		case l.ch == '.' && !sawDot:
			sawDot = true
		case l.ch == '.':
			return Token{
				Type:    ILLEGAL,
				Literal: fmt.Sprintf("invalid number literal `%s.`: more than one decimal point", l.input[position:l.position]),
				Line:    line,
				Column:  column,
			}
		default:
			return Token{
				Type:    ILLEGAL,
				Literal: fmt.Sprintf("invalid character `%c` found in number literal", l.ch),
				Line:    l.line,
				Column:  l.column,
			}
		}
		l.readChar()
	}

	return Token{Type: NUMBER, Literal: l.input[position:l.position], Line: line, Column: column}
}

// readWord reads everything up to the next word break. Operators,
// keywords, and identifiers are all words; the parser tells them apart.
func (l *Lexer) readWord(line, column int) Token {
	position := l.position
	for !isWordBreak(l.ch) {
		l.readChar()
	}
	return Token{Type: WORD, Literal: l.input[position:l.position], Line: line, Column: column}
}

// truncate returns the first n characters of a string, adding "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
