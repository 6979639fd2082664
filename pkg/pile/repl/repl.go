// Package repl implements the interactive pile shell with line
// editing, history, and tab completion.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/pilelang/pile/pkg/pile/errors"
	"github.com/pilelang/pile/pkg/pile/evaluator"
	"github.com/pilelang/pile/pkg/pile/lexer"
	"github.com/pilelang/pile/pkg/pile/parser"
)

const PROMPT = ">> "
const CONTINUATION_PROMPT = ".. "

const LOGO = `
█▀█ █ █░░ █▀▀
█▀▀ █ █▄▄ ██▄ `

// Options configures the REPL.
type Options struct {
	HistoryFile string // empty = $TMPDIR/.pile_history
	MaxDepth    int    // 0 = default
}

// completionWords are the keywords, operators, and builtins offered
// for tab completion.
var completionWords = buildCompletionWords()

func buildCompletionWords() []string {
	words := []string{
		"if", "else", "end", "loop", "break", "continue",
		"proc", "def", "return", "as", "let", "array", "import",
		"true", "false", "nil",
		"dup", "drop", "swap", "over", "rot", "trace",
	}
	return append(words, evaluator.BuiltinNames()...)
}

// Start runs the REPL until EOF or the exit command.
func Start(out io.Writer, version string, opts *Options) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(line string) []string {
		return filterCompletions(line)
	})

	historyFile := ""
	if opts != nil {
		historyFile = opts.HistoryFile
	}
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".pile_history")
	}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	env := newEnvironment(opts)

	fmt.Fprintf(out, "%s", LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		currentPrompt := PROMPT
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C clears any buffered input
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		// REPL commands start with :
		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			env = handleReplCommand(trimmed, env, opts, out)
			continue
		}

		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}

		if trimmed != "" {
			line.AppendHistory(fullInput)
		}

		evalInput(fullInput, env, out)
		inputBuffer.Reset()
	}
}

func newEnvironment(opts *Options) *evaluator.Environment {
	env := evaluator.NewEnvironment()
	env.Filename = "<repl>"
	if opts != nil && opts.MaxDepth > 0 {
		env.MaxDepth = opts.MaxDepth
	}
	return env
}

// evalInput parses and evaluates one complete input, then shows the
// resulting stack. There is no bind pass here: the REPL has no
// whole-program view, so undefined names surface from the evaluator
// at first use instead.
func evalInput(input string, env *evaluator.Environment, out io.Writer) {
	p := parser.New(lexer.NewWithFilename(input, "<repl>"))
	program := p.ParseProgram()

	if errs := p.StructuredErrors(); len(errs) != 0 {
		printStructuredErrors(out, errs)
		return
	}

	evaluated := evaluator.Eval(program, env)
	if evaluated, ok := evaluated.(*evaluator.Error); ok {
		if evaluated.Err.IsExit() {
			fmt.Fprintf(out, "%s (use 'exit' without a status to leave the REPL)\n", evaluated.Err.Message)
			return
		}
		printRuntimeError(out, evaluated.Err)
		return
	}

	printStack(env, out)
}

func printStack(env *evaluator.Environment, out io.Writer) {
	if env.Stack.Len() == 0 {
		fmt.Fprintln(out, "ok")
		return
	}
	fmt.Fprintf(out, "%s\n", env.Stack.String())
}

// handleReplCommand handles meta-commands that start with ':' and
// returns the environment, which :reset replaces.
func handleReplCommand(cmd string, env *evaluator.Environment, opts *Options, out io.Writer) *evaluator.Environment {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :stack          Show the current stack (bottom to top)")
		fmt.Fprintln(out, "  :clear          Drop everything off the stack")
		fmt.Fprintln(out, "  :reset          Start over with a fresh environment")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")
		return env

	case ":stack":
		printStack(env, out)
		return env

	case ":clear":
		env.Stack.Truncate(0)
		fmt.Fprintln(out, "ok")
		return env

	case ":reset":
		fmt.Fprintln(out, "Environment reset")
		return newEnvironment(opts)

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
		if match := errors.FindClosestMatch(cmd, []string{":help", ":stack", ":clear", ":reset"}); match != "" {
			fmt.Fprintf(out, "Did you mean %s?\n", match)
		}
		return env
	}
}

// filterCompletions returns completion suggestions for the word being
// typed at the end of the line.
func filterCompletions(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if line[len(line)-1] == ' ' || line[len(line)-1] == '\t' {
		return nil
	}

	words := strings.Fields(line)
	lastWord := words[len(words)-1]
	prefix := line[:len(line)-len(lastWord)]

	var matches []string
	for _, word := range completionWords {
		if strings.HasPrefix(word, lastWord) {
			matches = append(matches, prefix+word)
		}
	}
	return matches
}

// blockOpeners are the words that must be balanced by 'end' before an
// input is complete.
var blockOpeners = map[string]bool{
	"if": true, "loop": true, "proc": true, "def": true,
	"as": true, "array": true,
}

// needsMoreInput reports whether the input has unclosed blocks. It
// tokenizes so openers inside strings and comments do not count; an
// input ending in an illegal token is handed to the parser for a real
// error message.
func needsMoreInput(input string) bool {
	depth := 0
	for _, tok := range lexer.New(input).Tokenize() {
		if tok.Type != lexer.WORD {
			continue
		}
		if blockOpeners[tok.Literal] {
			depth++
		} else if tok.Literal == "end" {
			depth--
		}
	}
	return depth > 0
}

func printStructuredErrors(out io.Writer, errs []*errors.PileError) {
	for _, err := range errs {
		io.WriteString(out, err.PrettyString())
		io.WriteString(out, "\n")
	}
}

func printRuntimeError(out io.Writer, err *errors.PileError) {
	io.WriteString(out, "Runtime error")
	if err.Line > 0 {
		fmt.Fprintf(out, ": line %d, column %d\n  %s\n", err.Line, err.Column, err.Message)
	} else {
		io.WriteString(out, "\n  "+err.Message+"\n")
	}
	for _, hint := range err.Hints {
		io.WriteString(out, "  hint: "+hint+"\n")
	}
}
