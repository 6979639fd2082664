package evaluator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilelang/pile/pkg/pile/lexer"
	"github.com/pilelang/pile/pkg/pile/parser"
)

func TestBuiltinNames_Sorted(t *testing.T) {
	names := BuiltinNames()
	if len(names) == 0 {
		t.Fatal("BuiltinNames() returned nothing")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
	for _, want := range []string{"print", "println", "exit", "typeof", "len", "readfile"} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("BuiltinNames() missing %q", want)
		}
	}
}

func TestPrintBuiltins(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello" print`, "hello"},
		{`"hello" println`, "hello\n"},
		{`42 println`, "42\n"},
		{`true println`, "true\n"},
		{`nil println`, "nil\n"},
		{`array 1 2 end println`, "[1, 2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, _, out := testEval(t, tt.input)
			assertNoSignal(t, result)
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestEprintBuiltins(t *testing.T) {
	p := parser.New(lexer.New(`"warn" eprintln "ok" println`))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) != 0 {
		t.Fatalf("parse error: %s", errs[0])
	}

	out := &testLogger{}
	errOut := &testLogger{}
	env := NewEnvironment()
	env.Logger = out
	env.ErrLogger = errOut

	result := Eval(program, env)
	assertNoSignal(t, result)
	if errOut.String() != "warn\n" {
		t.Errorf("stderr = %q, want %q", errOut.String(), "warn\n")
	}
	if out.String() != "ok\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "ok\n")
	}
}

func TestChrOrd(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`65 chr`, "[A]"},
		{`97 chr`, "[a]"},
		{`"A" ord`, "[65]"},
		{`"abc" ord`, "[97]"},
		{`"A" ord chr`, "[A]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, env, _ := testEval(t, tt.input)
			assertNoSignal(t, result)
			assertStack(t, env, tt.want)
		})
	}

	result, _, _ := testEval(t, `"" ord`)
	assertErrorCode(t, result, "RUN-0003")

	result, _, _ = testEval(t, `65 ord`)
	assertErrorCode(t, result, "RUN-0002")
}

func TestLen(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello" len`, "[5]"},
		{`"" len`, "[0]"},
		{`array 1 2 3 end len`, "[3]"},
		{`array end len`, "[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, env, _ := testEval(t, tt.input)
			assertNoSignal(t, result)
			assertStack(t, env, tt.want)
		})
	}

	result, _, _ := testEval(t, `42 len`)
	assertErrorCode(t, result, "RUN-0002")
}

func TestTypeof(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`1 typeof`, "[number]"},
		{`"s" typeof`, "[string]"},
		{`true typeof`, "[bool]"},
		{`nil typeof`, "[nil]"},
		{`array end typeof`, "[array]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, env, _ := testEval(t, tt.input)
			assertNoSignal(t, result)
			assertStack(t, env, tt.want)
		})
	}
}

func TestConversions(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"42" tonumber`, "[42]"},
		{`"2.5" tonumber`, "[2.5]"},
		{`"nope" tonumber`, "[nil]"},
		{`true tonumber`, "[1]"},
		{`false tonumber`, "[0]"},
		{`42 tostring`, "[42]"},
		{`true tostring`, "[true]"},
		{`"true" tobool`, "[true]"},
		{`"false" tobool`, "[false]"},
		{`"maybe" tobool`, "[nil]"},
		{`0 tobool`, "[false]"},
		{`3 tobool`, "[true]"},
		{`nil tobool`, "[false]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, env, _ := testEval(t, tt.input)
			assertNoSignal(t, result)
			assertStack(t, env, tt.want)
		})
	}
}

func TestTostringNumber_RoundTrip(t *testing.T) {
	result, env, _ := testEval(t, `42 tostring tonumber`)
	assertNoSignal(t, result)
	assertStack(t, env, "[42]")
}

func TestInput(t *testing.T) {
	p := parser.New(lexer.New(`input input input`))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) != 0 {
		t.Fatalf("parse error: %s", errs[0])
	}

	env := NewEnvironment()
	env.Logger = &testLogger{}
	env.ErrLogger = &testLogger{}
	env.SetStdin(strings.NewReader("ab"))

	result := Eval(program, env)
	assertNoSignal(t, result)
	assertStack(t, env, "[97, 98, -1]")
}

func TestInputln(t *testing.T) {
	p := parser.New(lexer.New(`inputln inputln inputln`))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) != 0 {
		t.Fatalf("parse error: %s", errs[0])
	}

	env := NewEnvironment()
	env.Logger = &testLogger{}
	env.ErrLogger = &testLogger{}
	env.SetStdin(strings.NewReader("first\nsecond\n"))

	result := Eval(program, env)
	assertNoSignal(t, result)
	assertStack(t, env, "[first, second, nil]")
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	input := `"hello\n" "` + path + `" writefile
"world\n" "` + path + `" appendfile
"` + path + `" readfile`

	result, env, _ := testEval(t, input)
	assertNoSignal(t, result)
	assertStack(t, env, "[hello\nworld\n]")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello\nworld\n" {
		t.Errorf("file contents = %q, want %q", data, "hello\nworld\n")
	}
}

func TestReadfile_Missing(t *testing.T) {
	result, _, _ := testEval(t, `"/no/such/file.txt" readfile`)
	assertErrorCode(t, result, "RUN-0005")
}

func TestExit_NonNumberStatus(t *testing.T) {
	result, _, _ := testEval(t, `"bye" exit`)
	assertErrorCode(t, result, "RUN-0002")
}
