package probe

import (
	"fmt"

	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/rs/zerolog"
)

// MissingError identifies the first required command not found on the host.
type MissingError struct {
	Command string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("required command %q not found on path", e.Command)
}

// Prober verifies that every external tool curfew depends on is resolvable
// before any stateful action begins. A missing command is a deployment
// defect, not a transient fault, so there are no retries.
type Prober struct {
	runner hostcmd.Runner
	logger zerolog.Logger
}

// NewProber creates a Prober backed by the given runner.
func NewProber(runner hostcmd.Runner) *Prober {
	return &Prober{
		runner: runner,
		logger: log.WithComponent("probe"),
	}
}

// Check resolves each required command, returning a MissingError for the
// first one that is absent.
func (p *Prober) Check(required []string) error {
	for _, name := range required {
		if _, err := p.runner.LookPath(name); err != nil {
			p.logger.Error().Str("command", name).Msg("required command not found")
			return &MissingError{Command: name}
		}
	}
	p.logger.Debug().Int("commands", len(required)).Msg("all required commands present")
	return nil
}
