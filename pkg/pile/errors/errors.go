// Package errors provides structured error types for the pile language.
//
// This package defines PileError, a unified error type that represents
// lex, parse, bind, and runtime errors with rich metadata for display
// and programmatic handling. Every error carries a 1-based source
// position and a catalog code such as "RUN-0004".
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassLex       ErrorClass = "lex"       // Tokenization failures
	ClassParse     ErrorClass = "parse"     // Block structure / syntax errors
	ClassBind      ErrorClass = "bind"      // Name resolution and import errors
	ClassUnderflow ErrorClass = "underflow" // Stack underflow
	ClassType      ErrorClass = "type"      // Operand type mismatches
	ClassIndex     ErrorClass = "index"     // Out-of-range access
	ClassOperator  ErrorClass = "operator"  // Invalid operations (division by zero)
	ClassIO        ErrorClass = "io"        // File operations
	ClassLimit     ErrorClass = "limit"     // Resource limits (recursion depth)
	ClassExit      ErrorClass = "exit"      // Deliberate termination via exit
)

// PileError represents any error from tokenizing, parsing, binding,
// or evaluation.
type PileError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "RUN-0004")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 1-based column (0 if unknown)
	File    string         `json:"file,omitempty"`  // File path (if known)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
}

// Error implements the error interface.
func (e *PileError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *PileError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *PileError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassLex:
		sb.WriteString("Lex error")
	case ClassParse:
		sb.WriteString("Parse error")
	case ClassBind:
		sb.WriteString("Bind error")
	default:
		sb.WriteString("Runtime error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Use: ")
		} else {
			sb.WriteString(" or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *PileError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *PileError) WithFile(file string) *PileError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *PileError) WithPosition(line, column int) *PileError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsLexError returns true if this is a tokenization error.
func (e *PileError) IsLexError() bool {
	return e.Class == ClassLex
}

// IsParseError returns true if this is a syntax error.
func (e *PileError) IsParseError() bool {
	return e.Class == ClassParse
}

// IsBindError returns true if this is a name-resolution or import error.
func (e *PileError) IsBindError() bool {
	return e.Class == ClassBind
}

// IsRuntimeError returns true if this error arose during evaluation.
func (e *PileError) IsRuntimeError() bool {
	switch e.Class {
	case ClassLex, ClassParse, ClassBind:
		return false
	}
	return true
}

// IsExit returns true if this error represents a deliberate exit.
// The requested status is in Data["Status"].
func (e *PileError) IsExit() bool {
	return e.Class == ClassExit
}

// ExitStatus returns the process status a surfaced error maps to:
// the requested status for an exit, 1 for everything else.
func (e *PileError) ExitStatus() int {
	if e.Class == ClassExit {
		if s, ok := e.Data["Status"].(int); ok {
			return s
		}
		return 0
	}
	return 1
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Lex errors (LEX-0xxx)
	// ========================================
	"LEX-0001": {
		Class:    ClassLex,
		Template: "unexpected character in {{.Context}}: {{.Detail}}",
	},
	"LEX-0002": {
		Class:    ClassLex,
		Template: "unterminated string literal: \"{{.Preview}}",
	},
	"LEX-0003": {
		Class:    ClassLex,
		Template: "unknown escape sequence '\\{{.Escape}}' in string literal",
		Hints:    []string{`\n \r \t \" \\ \0`},
	},
	"LEX-0004": {
		Class:    ClassLex,
		Template: "invalid number literal '{{.Literal}}': {{.Detail}}",
	},

	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "'end' without a matching block opener",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "'{{.Block}}' block is never closed",
		Hints:    []string{"{{.Block}} ... end"},
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "'else' outside of an if block",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "'{{.Name}}' cannot be used as a name",
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "'as' requires at least one name before 'let'",
		Hints:    []string{"as x y let ... end"},
	},
	"PARSE-0007": {
		Class:    ClassParse,
		Template: "import path must be a string literal, got '{{.Got}}'",
	},
	"PARSE-0008": {
		Class:    ClassParse,
		Template: "duplicate 'else' in if block",
	},

	// ========================================
	// Bind errors (BIND-0xxx)
	// ========================================
	"BIND-0001": {
		Class:    ClassBind,
		Template: "'{{.Name}}' is already defined",
	},
	"BIND-0002": {
		Class:    ClassBind,
		Template: "cyclic import: {{.Chain}}",
	},
	"BIND-0003": {
		Class:    ClassBind,
		Template: "undefined name: {{.Name}}",
		// Hint "Did you mean `X`?" added dynamically by fuzzy matching
	},
	"BIND-0004": {
		Class:    ClassBind,
		Template: "'{{.Word}}' outside of a loop",
	},
	"BIND-0005": {
		Class:    ClassBind,
		Template: "cannot load import '{{.Path}}': {{.GoError}}",
	},

	// ========================================
	// Runtime errors (RUN-0xxx)
	// ========================================
	"RUN-0001": {
		Class:    ClassUnderflow,
		Template: "stack underflow: '{{.Op}}' needs {{.Want}} value(s), stack has {{.Got}}",
	},
	"RUN-0002": {
		Class:    ClassType,
		Template: "'{{.Op}}' cannot operate on {{.Got}}",
	},
	"RUN-0003": {
		Class:    ClassIndex,
		Template: "index {{.Index}} out of range (length {{.Length}})",
	},
	"RUN-0004": {
		Class:    ClassOperator,
		Template: "division by zero",
	},
	"RUN-0005": {
		Class:    ClassIO,
		Template: "failed to {{.Operation}} '{{.Path}}': {{.GoError}}",
	},
	"RUN-0006": {
		Class:    ClassLimit,
		Template: "recursion limit of {{.Limit}} exceeded",
	},
	"RUN-0007": {
		Class:    ClassExit,
		Template: "exit with status {{.Status}}",
	},
	"RUN-0008": {
		Class:    ClassType,
		Template: "def '{{.Name}}' must leave exactly one value, left {{.Got}}",
	},
	"RUN-0009": {
		Class:    ClassOperator,
		Template: "def '{{.Name}}' refers to itself",
	},
}

// New creates a PileError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *PileError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &PileError{
			Class:   ClassType,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &PileError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a PileError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *PileError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *PileError {
	return &PileError{
		Class:   class,
		Message: message,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FuzzyMatch represents a fuzzy match result with its distance.
type FuzzyMatch struct {
	Value    string
	Distance int
}

// FindClosestMatch finds the closest match to the given string from
// candidates, or empty string when nothing is within the threshold or
// the input matches a candidate exactly.
func FindClosestMatch(input string, candidates []string) string {
	inputLower := strings.ToLower(input)
	for _, candidate := range candidates {
		if strings.ToLower(candidate) == inputLower {
			return ""
		}
	}

	matches := FindTopMatches(input, candidates, 1)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// FindTopMatches returns the top N closest matches to the input.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	inputLower := strings.ToLower(input)

	var matches []FuzzyMatch
	for _, candidate := range candidates {
		candidateLower := strings.ToLower(candidate)
		dist := levenshteinDistance(inputLower, candidateLower)
		if dist > 0 {
			matches = append(matches, FuzzyMatch{Value: candidate, Distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	seen := make(map[string]bool)
	var result []string
	for _, match := range matches {
		if len(result) == n || match.Distance > threshold {
			break
		}
		if seen[match.Value] {
			continue
		}
		seen[match.Value] = true
		result = append(result, match.Value)
	}

	return result
}

// NewUndefinedName creates an undefined name error with fuzzy-match
// hints drawn from everything in scope plus the reserved words.
func NewUndefinedName(name string, availableNames []string) *PileError {
	data := map[string]any{"Name": name}
	err := New("BIND-0003", data)

	candidates := make([]string, 0, len(availableNames)+len(Keywords))
	candidates = append(candidates, availableNames...)
	candidates = append(candidates, Keywords...)
	for _, suggestion := range FindTopMatches(name, candidates, 3) {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}

	return err
}

// Keywords are the reserved words of pile, used for fuzzy matching
// against typos.
var Keywords = []string{
	"if", "else", "loop", "end", "proc", "def", "let", "as",
	"array", "import", "break", "continue", "return",
	"true", "false", "nil",
}
