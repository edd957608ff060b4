package hostcmd

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ScriptResult is one canned outcome for a scripted command.
type ScriptResult struct {
	Output string
	Err    error
}

// ScriptRunner is a deterministic Runner for tests. Commands are keyed by
// their full command line ("pgrep -x vzdump"); each key holds a queue of
// results consumed in order, with the last result repeating. Unscripted
// commands return empty output and no error.
type ScriptRunner struct {
	mu      sync.Mutex
	results map[string][]ScriptResult
	missing map[string]bool

	// Calls records every executed command line in order.
	Calls []string
	// Inputs records stdin passed to RunInput, keyed by command line.
	Inputs map[string][]string
}

// NewScriptRunner creates an empty ScriptRunner.
func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{
		results: make(map[string][]ScriptResult),
		missing: make(map[string]bool),
		Inputs:  make(map[string][]string),
	}
}

// Script queues results for a command line.
func (r *ScriptRunner) Script(cmdline string, results ...ScriptResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[cmdline] = append(r.results[cmdline], results...)
}

// SetMissing makes LookPath fail for the named command.
func (r *ScriptRunner) SetMissing(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing[name] = true
}

// CallCount returns how many executed command lines contain the substring.
func (r *ScriptRunner) CallCount(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

// Run executes a scripted command.
func (r *ScriptRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return r.dispatch(ctx, "", name, args...)
}

// RunInput executes a scripted command, recording its stdin.
func (r *ScriptRunner) RunInput(ctx context.Context, input, name string, args ...string) (string, error) {
	key := cmdline(name, args)
	r.mu.Lock()
	r.Inputs[key] = append(r.Inputs[key], input)
	r.mu.Unlock()
	return r.dispatch(ctx, input, name, args...)
}

// LookPath resolves unless the command was marked missing.
func (r *ScriptRunner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

func (r *ScriptRunner) dispatch(ctx context.Context, input, name string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := cmdline(name, args)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, key)

	queue := r.results[key]
	if len(queue) == 0 {
		return "", nil
	}
	res := queue[0]
	if len(queue) > 1 {
		r.results[key] = queue[1:]
	}
	return res.Output, res.Err
}

func cmdline(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
