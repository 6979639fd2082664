package evaluator

import (
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pilelang/pile/pkg/pile/lexer"
)

// BuiltinFn pops its operands from the environment's stack and pushes
// its results. The token locates the call site for error reporting.
type BuiltinFn func(tok lexer.Token, env *Environment) Object

func builtinUnderflow(name string, tok lexer.Token, env *Environment, want int) *Error {
	return newError("RUN-0001", tok, env.Filename, map[string]any{
		"Op":   name,
		"Want": want,
		"Got":  env.Stack.Len(),
	})
}

var builtins map[string]BuiltinFn

func init() {
	builtins = map[string]BuiltinFn{
		"print":      builtinPrint,
		"println":    builtinPrintln,
		"eprint":     builtinEprint,
		"eprintln":   builtinEprintln,
		"input":      builtinInput,
		"inputln":    builtinInputln,
		"exit":       builtinExit,
		"chr":        builtinChr,
		"ord":        builtinOrd,
		"len":        builtinLen,
		"typeof":     builtinTypeof,
		"tonumber":   builtinTonumber,
		"tostring":   builtinTostring,
		"tobool":     builtinTobool,
		"readfile":   builtinReadfile,
		"writefile":  builtinWritefile,
		"appendfile": builtinAppendfile,
	}
}

// BuiltinNames returns every builtin word, sorted, for the binder's
// scope checking and the REPL's completion.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinPrint(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("print", tok, env, 1)
	}
	env.Logger.Log(value.Inspect())
	return nil
}

func builtinPrintln(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("println", tok, env, 1)
	}
	env.Logger.LogLine(value.Inspect())
	return nil
}

func builtinEprint(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("eprint", tok, env, 1)
	}
	env.ErrLogger.Log(value.Inspect())
	return nil
}

func builtinEprintln(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("eprintln", tok, env, 1)
	}
	env.ErrLogger.LogLine(value.Inspect())
	return nil
}

// builtinInput reads one code point from the input stream and pushes
// it as a number, or -1 at end of input.
func builtinInput(tok lexer.Token, env *Environment) Object {
	r, _, err := env.Stdin.ReadRune()
	if err != nil {
		env.Stack.Push(&Number{Value: -1})
		return nil
	}
	env.Stack.Push(&Number{Value: float64(r)})
	return nil
}

// builtinInputln reads one line, without its newline, and pushes it
// as a string. End of input pushes nil.
func builtinInputln(tok lexer.Token, env *Environment) Object {
	line, err := env.Stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return newError("RUN-0005", tok, env.Filename, map[string]any{
			"Operation": "read",
			"Path":      "<stdin>",
			"GoError":   err.Error(),
		})
	}
	if line == "" && err == io.EOF {
		env.Stack.Push(NIL)
		return nil
	}
	line = strings.TrimRight(line, "\r\n")
	env.Stack.Push(&String{Value: line})
	return nil
}

// builtinExit pops a number and terminates the program with it as
// exit status. The signal carries a RUN-0007 error so callers can
// tell a requested exit from a failure.
func builtinExit(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("exit", tok, env, 1)
	}
	number, ok := value.(*Number)
	if !ok {
		return typeMismatch("exit", tok, env, value)
	}
	return newError("RUN-0007", tok, env.Filename, map[string]any{
		"Status": int(number.Value),
	})
}

func builtinChr(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("chr", tok, env, 1)
	}
	code, sig := integral("chr", tok, env, value)
	if sig != nil {
		return sig
	}
	env.Stack.Push(&String{Value: string(rune(code))})
	return nil
}

func builtinOrd(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("ord", tok, env, 1)
	}
	str, ok := value.(*String)
	if !ok {
		return typeMismatch("ord", tok, env, value)
	}
	if str.Value == "" {
		return newError("RUN-0003", tok, env.Filename, map[string]any{
			"Index":  0,
			"Length": 0,
		})
	}
	r, _ := utf8.DecodeRuneInString(str.Value)
	env.Stack.Push(&Number{Value: float64(r)})
	return nil
}

func builtinLen(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("len", tok, env, 1)
	}
	switch value := value.(type) {
	case *String:
		env.Stack.Push(&Number{Value: float64(utf8.RuneCountInString(value.Value))})
		return nil
	case *Array:
		env.Stack.Push(&Number{Value: float64(len(value.Elements))})
		return nil
	}
	return typeMismatch("len", tok, env, value)
}

// builtinTypeof never fails; it names the variant of whatever is on
// top of the stack.
func builtinTypeof(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("typeof", tok, env, 1)
	}
	env.Stack.Push(&String{Value: TypeName(value)})
	return nil
}

// builtinTonumber converts: strings parse (pushing nil when they do
// not parse), booleans map to 1 and 0, numbers pass through.
func builtinTonumber(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("tonumber", tok, env, 1)
	}
	switch value := value.(type) {
	case *Number:
		env.Stack.Push(value)
	case *String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value.Value), 64)
		if err != nil {
			env.Stack.Push(NIL)
		} else {
			env.Stack.Push(&Number{Value: parsed})
		}
	case *Boolean:
		if value.Value {
			env.Stack.Push(&Number{Value: 1})
		} else {
			env.Stack.Push(&Number{Value: 0})
		}
	case *Nil:
		env.Stack.Push(NIL)
	default:
		return typeMismatch("tonumber", tok, env, value)
	}
	return nil
}

func builtinTostring(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("tostring", tok, env, 1)
	}
	env.Stack.Push(&String{Value: value.Inspect()})
	return nil
}

// builtinTobool converts: "true"/"false" parse (other strings push
// nil), numbers are true unless zero, nil is false.
func builtinTobool(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("tobool", tok, env, 1)
	}
	switch value := value.(type) {
	case *Boolean:
		env.Stack.Push(value)
	case *String:
		switch value.Value {
		case "true":
			env.Stack.Push(TRUE)
		case "false":
			env.Stack.Push(FALSE)
		default:
			env.Stack.Push(NIL)
		}
	case *Number:
		env.Stack.Push(nativeBool(value.Value != 0))
	case *Nil:
		env.Stack.Push(FALSE)
	default:
		return typeMismatch("tobool", tok, env, value)
	}
	return nil
}

// builtinReadfile pops a path and pushes the file's contents.
func builtinReadfile(tok lexer.Token, env *Environment) Object {
	value, ok := env.Stack.Pop()
	if !ok {
		return builtinUnderflow("readfile", tok, env, 1)
	}
	path, ok := value.(*String)
	if !ok {
		return typeMismatch("readfile", tok, env, value)
	}

	data, err := os.ReadFile(path.Value)
	if err != nil {
		return newError("RUN-0005", tok, env.Filename, map[string]any{
			"Operation": "read",
			"Path":      path.Value,
			"GoError":   err.Error(),
		})
	}
	env.Stack.Push(&String{Value: string(data)})
	return nil
}

// builtinWritefile pops a path then the content string below it:
// `"content" "path" writefile`.
func builtinWritefile(tok lexer.Token, env *Environment) Object {
	return writeBuiltin("writefile", tok, env, false)
}

// builtinAppendfile is writefile that appends instead of truncating.
func builtinAppendfile(tok lexer.Token, env *Environment) Object {
	return writeBuiltin("appendfile", tok, env, true)
}

func writeBuiltin(name string, tok lexer.Token, env *Environment, appendTo bool) Object {
	if env.Stack.Len() < 2 {
		return builtinUnderflow(name, tok, env, 2)
	}
	pathObj, _ := env.Stack.Pop()
	contentObj, _ := env.Stack.Pop()

	path, ok := pathObj.(*String)
	if !ok {
		return typeMismatch(name, tok, env, pathObj)
	}
	content, ok := contentObj.(*String)
	if !ok {
		return typeMismatch(name, tok, env, contentObj)
	}

	operation := "write"
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendTo {
		operation = "append"
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	f, err := os.OpenFile(path.Value, flags, 0o644)
	if err == nil {
		_, err = f.WriteString(content.Value)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return newError("RUN-0005", tok, env.Filename, map[string]any{
			"Operation": operation,
			"Path":      path.Value,
			"GoError":   err.Error(),
		})
	}
	return nil
}
