package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI provides a clean interface for running the converter in tests.
// It manages a temp directory and environment variables.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a new test CLI with a temp directory.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	return &CLI{
		t:   t,
		Dir: t.TempDir(),
		Env: map[string]string{},
	}
}

// Run executes the CLI with the given args and returns stdout, stderr, and
// exit code. Args should not include "g2b" or "--cwd" - those are added
// automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	return r.RunWithInput(strings.NewReader(""), args...)
}

// RunWithInput executes the CLI with the given stdin.
func (r *CLI) RunWithInput(stdin io.Reader, args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"g2b", "--cwd", r.Dir}, args...)
	code := Run(stdin, &outBuf, &errBuf, fullArgs, r.Env)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns
// non-zero. Returns stdout.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return stdout
}

// WriteFile creates a file under the temp directory and returns its name.
func (r *CLI) WriteFile(name, content string) string {
	r.t.Helper()

	path := filepath.Join(r.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		r.t.Fatalf("write %s: %v", name, err)
	}

	return name
}

// ReadFile reads a file under the temp directory.
func (r *CLI) ReadFile(name string) string {
	r.t.Helper()

	data, err := os.ReadFile(filepath.Join(r.Dir, name))
	if err != nil {
		r.t.Fatalf("read %s: %v", name, err)
	}

	return string(data)
}
