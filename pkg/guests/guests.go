package guests

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/curfew/pkg/hostcmd"
)

// Class distinguishes the two guest kinds the node runs.
type Class string

const (
	ClassVM        Class = "VM"
	ClassContainer Class = "container"
)

// Guest is one enumerated guest. The ID is the numeric identifier the
// management tools use; it is opaque to curfew.
type Guest struct {
	ID    string
	Class Class
}

func (g Guest) String() string {
	return fmt.Sprintf("%s %s", g.Class, g.ID)
}

// tool returns the management CLI for the guest's class.
func (g Guest) tool() string {
	if g.Class == ClassVM {
		return "qm"
	}
	return "pct"
}

// list enumerates all guest IDs of one class. The listing's first line is a
// header; data rows start with the numeric guest ID.
func list(ctx context.Context, runner hostcmd.Runner, class Class, bin string) ([]Guest, error) {
	out, err := runner.Run(ctx, bin, "list")
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", strings.ToLower(string(class)), err)
	}

	var guests []Guest
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header row
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		guests = append(guests, Guest{ID: fields[0], Class: class})
	}
	return guests, nil
}

// status queries one guest's state. Output is "status: running" style.
func status(ctx context.Context, runner hostcmd.Runner, g Guest) (string, error) {
	out, err := runner.Run(ctx, g.tool(), "status", g.ID)
	if err != nil {
		return "", fmt.Errorf("failed to query status of %s: %w", g, err)
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "status:"); ok {
			return strings.TrimSpace(rest), nil
		}
	}
	return "", fmt.Errorf("failed to parse status of %s: %q", g, strings.TrimSpace(out))
}
