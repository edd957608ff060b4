package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/rs/zerolog"
)

// ScrubChecker reports whether pool maintenance is in progress.
// Satisfied by zfs.Manager.
type ScrubChecker interface {
	ScrubActive(ctx context.Context) (bool, error)
}

// Detector answers "are critical tasks active?" by combining an exact
// process-name scan, a pool scrub check, and a pattern-based process scan.
// The checks short-circuit in that order: process lookups are cheaper than
// pool status queries, and the pattern scan is a safety net for task
// invocations the exact scan misses.
type Detector struct {
	runner   hostcmd.Runner
	scrub    ScrubChecker
	names    []string
	patterns []string
	interval time.Duration
	logger   zerolog.Logger

	// sleep is swappable in tests; the default honors context cancellation
	// so termination signals interrupt the wait loop.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDetector creates a Detector for the given task names and patterns.
func NewDetector(runner hostcmd.Runner, scrub ScrubChecker, names, patterns []string, interval time.Duration) *Detector {
	return &Detector{
		runner:   runner,
		scrub:    scrub,
		names:    names,
		patterns: patterns,
		interval: interval,
		logger:   log.WithComponent("tasks"),
		sleep:    sleepContext,
	}
}

// Active reports whether any critical task is currently running. Failures
// of the underlying lookups count as "no match" for that sub-check: an
// absent tool and an errored tool are indistinguishable from here, and the
// orchestrator re-polls, so not-detected is the workable answer.
func (d *Detector) Active(ctx context.Context) bool {
	for _, name := range d.names {
		if d.processMatches(ctx, "-x", name) {
			d.logger.Info().Str("task", name).Msg("critical task running")
			return true
		}
	}

	if active, err := d.scrub.ScrubActive(ctx); err != nil {
		d.logger.Debug().Err(err).Msg("scrub check failed, treating as inactive")
	} else if active {
		d.logger.Info().Msg("pool scrub in progress")
		return true
	}

	for _, pattern := range d.patterns {
		if d.processMatches(ctx, "-f", pattern) {
			d.logger.Info().Str("pattern", pattern).Msg("backup tool matched by pattern")
			return true
		}
	}

	return false
}

// Wait blocks until critical tasks are no longer active, sleeping the poll
// interval between checks. The caller has already observed tasks as active,
// so each iteration sleeps first. Intentionally unbounded: if backups never
// finish, the operator cancels the process.
func (d *Detector) Wait(ctx context.Context) error {
	d.logger.Info().Dur("interval", d.interval).Msg("waiting for critical tasks to finish")
	for {
		if err := d.sleep(ctx, d.interval); err != nil {
			return err
		}
		if !d.Active(ctx) {
			d.logger.Info().Msg("critical tasks finished")
			return nil
		}
		d.logger.Debug().Msg("critical tasks still active")
	}
}

// processMatches runs pgrep with the given match flag. pgrep exits non-zero
// when nothing matches, so an error means no match.
func (d *Detector) processMatches(ctx context.Context, flag, arg string) bool {
	out, err := d.runner.Run(ctx, "pgrep", flag, arg)
	return err == nil && strings.TrimSpace(out) != ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
