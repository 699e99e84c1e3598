package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
)

// Command describes one external tool invocation.
type Command struct {
	Path   string    // Executable path or name (resolved via PATH)
	Args   []string  // Arguments, not including the executable itself
	Stdin  io.Reader // Optional stdin stream
	Stdout io.Writer // Optional stdout sink
	Dir    string    // Optional working directory
}

// Runner executes external tool commands. The production implementation is
// ExecRunner; tests substitute in-process fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ToolError reports a failed external tool invocation, carrying the tail of
// the tool's stderr so a failing run identifies why.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// stderr capture is bounded so a chatty tool cannot balloon an error value
const stderrTailLimit = 4096

// tailWriter keeps the last tailLimit bytes written to it.
type tailWriter struct {
	buf bytes.Buffer
}

func (w *tailWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n >= stderrTailLimit {
		w.buf.Reset()
		p = p[n-stderrTailLimit:]
	} else if w.buf.Len()+n > stderrTailLimit {
		trimmed := w.buf.Bytes()[w.buf.Len()+n-stderrTailLimit:]
		rest := make([]byte, len(trimmed))
		copy(rest, trimmed)
		w.buf.Reset()
		w.buf.Write(rest)
	}
	w.buf.Write(p)
	return n, nil
}

// ExecRunner runs commands with os/exec, honoring context cancellation.
type ExecRunner struct {
	Log *slog.Logger
}

// NewExecRunner creates a runner logging through the given logger
// (slog.Default() if nil).
func NewExecRunner(log *slog.Logger) *ExecRunner {
	if log == nil {
		log = slog.Default()
	}
	return &ExecRunner{Log: log}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	c.Dir = cmd.Dir

	tail := &tailWriter{}
	c.Stderr = tail

	r.Log.Debug("running tool", "tool", cmd.Path, "args", cmd.Args)
	if err := c.Run(); err != nil {
		return &ToolError{
			Tool:   cmd.Path,
			Stderr: string(bytes.TrimSpace(tail.buf.Bytes())),
			Err:    err,
		}
	}
	return nil
}
