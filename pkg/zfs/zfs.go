package zfs

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/rs/zerolog"
)

// Manager wraps the host's zpool tooling for the two operations curfew
// needs: detecting an in-flight scrub and exporting all pools.
type Manager struct {
	runner hostcmd.Runner
	logger zerolog.Logger
}

// NewManager creates a Manager backed by the given runner.
func NewManager(runner hostcmd.Runner) *Manager {
	return &Manager{
		runner: runner,
		logger: log.WithComponent("zfs"),
	}
}

// ScrubActive reports whether any pool has a scrub or resilver in progress.
// An error from zpool itself is returned so the caller can decide whether
// that counts as detection; curfew's task detector treats it as "no match"
// because the orchestrator re-polls anyway.
func (m *Manager) ScrubActive(ctx context.Context) (bool, error) {
	out, err := m.runner.Run(ctx, "zpool", "status")
	if err != nil {
		return false, fmt.Errorf("failed to query pool status: %w", err)
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "scrub in progress") || strings.Contains(line, "resilver in progress") {
			m.logger.Info().Str("status", line).Msg("pool maintenance in progress")
			return true, nil
		}
	}
	return false, nil
}

// ExportAll exports every pool on the host. This is the last safety
// checkpoint before power-off: a failure here means pools may still be
// active and must abort the run.
func (m *Manager) ExportAll(ctx context.Context) error {
	m.logger.Info().Msg("exporting all pools")
	if _, err := m.runner.Run(ctx, "zpool", "export", "-a"); err != nil {
		return fmt.Errorf("failed to export pools: %w", err)
	}
	m.logger.Info().Msg("all pools exported")
	return nil
}
