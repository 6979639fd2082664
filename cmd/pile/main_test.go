package main

import (
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestMain ensures the binary is built before running tests
func TestMain(m *testing.M) {
	buildCmd := exec.Command("go", "build", "-o", "pile-test-bin", ".")
	if err := buildCmd.Run(); err != nil {
		os.Exit(1)
	}

	code := m.Run()

	os.Remove("pile-test-bin")
	os.Exit(code)
}

func runBinary(t *testing.T, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command("./pile-test-bin", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(output), exitErr.ExitCode()
		}
		t.Fatalf("command failed: %v\noutput: %s", err, output)
	}
	return string(output), 0
}

func TestEvaluateInline(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{name: "division", code: "2 10 / println", expected: "5\n"},
		{name: "string", code: `"hello" println`, expected: "hello\n"},
		{name: "array", code: "array 1 2 3 end println", expected: "[1, 2, 3]\n"},
		{name: "boolean", code: "2 10 > println", expected: "true\n"},
		{name: "rot", code: "45 5 12 rot println", expected: "45\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, status := runBinary(t, "-e", tt.code)
			if status != 0 {
				t.Fatalf("exit status = %d\noutput: %s", status, output)
			}
			if output != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, output)
			}
		})
	}
}

func TestExitStatusPropagates(t *testing.T) {
	output, status := runBinary(t, "-e", `"bye" println 3 exit`)
	if status != 3 {
		t.Errorf("exit status = %d, want 3", status)
	}
	if output != "bye\n" {
		t.Errorf("output = %q, want %q", output, "bye\n")
	}
}

func TestRuntimeErrorStatus(t *testing.T) {
	output, status := runBinary(t, "-e", "0 10 /")
	if status != 1 {
		t.Errorf("exit status = %d, want 1", status)
	}
	if !strings.Contains(output, "division by zero") {
		t.Errorf("output does not mention division by zero: %q", output)
	}
}

func TestCheckFlag(t *testing.T) {
	output, status := runBinary(t, "--check", "-e", "loop break end")
	if status != 0 {
		t.Fatalf("exit status = %d\noutput: %s", status, output)
	}

	output, status = runBinary(t, "--check", "-e", "break")
	if status != 1 {
		t.Errorf("exit status = %d, want 1", status)
	}
	if !strings.Contains(output, "break") {
		t.Errorf("output does not mention break: %q", output)
	}
}

func TestTokensFlag(t *testing.T) {
	output, status := runBinary(t, "--tokens", "-e", "10 swap")
	if status != 0 {
		t.Fatalf("exit status = %d\noutput: %s", status, output)
	}
	if !strings.Contains(output, "NUMBER") || !strings.Contains(output, "swap") {
		t.Errorf("token dump missing entries: %q", output)
	}
}

func TestParseFlag(t *testing.T) {
	output, status := runBinary(t, "--parse", "-e", "1 2 +")
	if status != 0 {
		t.Fatalf("exit status = %d\noutput: %s", status, output)
	}
	if !strings.Contains(output, "+") {
		t.Errorf("parse dump missing instruction: %q", output)
	}
}

func TestVersionFlag(t *testing.T) {
	output, status := runBinary(t, "-V")
	if status != 0 {
		t.Fatalf("exit status = %d", status)
	}
	if !strings.Contains(output, "pile version") {
		t.Errorf("output = %q", output)
	}
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prog.pile"
	if err := os.WriteFile(path, []byte("2 10 ** println\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	output, status := runBinary(t, path)
	if status != 0 {
		t.Fatalf("exit status = %d\noutput: %s", status, output)
	}
	if output != "100\n" {
		t.Errorf("output = %q, want %q", output, "100\n")
	}
}
