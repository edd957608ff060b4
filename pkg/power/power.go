package power

import (
	"context"
	"fmt"

	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/rs/zerolog"
)

// Controller turns the host off. Irreversible; callers gate it behind the
// full drain/export sequence.
type Controller interface {
	Off(ctx context.Context) error
}

// SystemdController powers off via systemctl.
type SystemdController struct {
	runner hostcmd.Runner
	logger zerolog.Logger
}

// NewSystemdController creates a SystemdController.
func NewSystemdController(runner hostcmd.Runner) *SystemdController {
	return &SystemdController{
		runner: runner,
		logger: log.WithComponent("power"),
	}
}

// Off issues the power-off command.
func (c *SystemdController) Off(ctx context.Context) error {
	c.logger.Info().Msg("powering off")
	if _, err := c.runner.Run(ctx, "systemctl", "poweroff"); err != nil {
		return fmt.Errorf("failed to power off: %w", err)
	}
	return nil
}
