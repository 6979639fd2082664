package pile

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pilelang/pile/pkg/pile/evaluator"
)

// Logger is an alias for evaluator.Logger for convenience
type Logger = evaluator.Logger

// StdoutLogger returns a logger that writes to stdout (default for CLI/REPL)
func StdoutLogger() Logger {
	return evaluator.DefaultLogger
}

// StderrLogger returns a logger that writes to stderr
func StderrLogger() Logger {
	return evaluator.DefaultErrLogger
}

// writerLogger writes to an io.Writer
type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Log(values ...interface{}) {
	for _, v := range values {
		fmt.Fprint(l.w, v)
	}
}

func (l *writerLogger) LogLine(values ...interface{}) {
	for _, v := range values {
		fmt.Fprint(l.w, v)
	}
	fmt.Fprintln(l.w)
}

// WriterLogger returns a logger that writes to an io.Writer
func WriterLogger(w io.Writer) Logger {
	return &writerLogger{w: w}
}

// BufferedLogger captures program output for later retrieval
type BufferedLogger struct {
	mu  sync.Mutex
	buf strings.Builder
}

// NewBufferedLogger creates a new buffered logger
func NewBufferedLogger() *BufferedLogger {
	return &BufferedLogger{}
}

func (l *BufferedLogger) Log(values ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range values {
		fmt.Fprint(&l.buf, v)
	}
}

func (l *BufferedLogger) LogLine(values ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range values {
		fmt.Fprint(&l.buf, v)
	}
	l.buf.WriteByte('\n')
}

// String returns all captured output as a single string
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// Lines returns the captured output split into lines, without the
// trailing empty entry a final newline would produce
func (l *BufferedLogger) Lines() []string {
	out := strings.TrimSuffix(l.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Reset clears all captured output
func (l *BufferedLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Reset()
}

// nullLogger discards all output
type nullLogger struct{}

func (l *nullLogger) Log(values ...interface{})     {}
func (l *nullLogger) LogLine(values ...interface{}) {}

// NullLogger returns a logger that discards all output
func NullLogger() Logger {
	return &nullLogger{}
}
