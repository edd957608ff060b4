package hostcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner abstracts execution of host commands so every side-effecting
// operation (guest shutdown, pool export, power-off, mail) can be
// substituted deterministically in tests.
type Runner interface {
	// Run executes a command and returns its stdout.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// RunInput executes a command with the given string on stdin.
	RunInput(ctx context.Context, input, name string, args ...string) (string, error)

	// LookPath reports whether a command is resolvable on the host path.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands on the host via os/exec. Every invocation gets an
// outer timeout so a hung external tool cannot block the run forever.
type ExecRunner struct {
	// Timeout is the per-command execution bound. Zero disables it.
	Timeout time.Duration
}

// NewExecRunner creates an ExecRunner with the given per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes a command and returns its stdout.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return r.run(ctx, "", name, args...)
}

// RunInput executes a command with input on stdin.
func (r *ExecRunner) RunInput(ctx context.Context, input, name string, args ...string) (string, error) {
	return r.run(ctx, input, name, args...)
}

func (r *ExecRunner) run(ctx context.Context, input, name string, args ...string) (string, error) {
	execCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return stdout.String(), fmt.Errorf("command %s timed out after %s", name, r.Timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("command %s failed: %w: %s", name, err, msg)
		}
		return stdout.String(), fmt.Errorf("command %s failed: %w", name, err)
	}

	return stdout.String(), nil
}

// LookPath resolves a command on the host path.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
