package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/cuemby/curfew/pkg/guests"
	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/loadgate"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/cuemby/curfew/pkg/metrics"
	"github.com/cuemby/curfew/pkg/notify"
	"github.com/cuemby/curfew/pkg/orchestrator"
	"github.com/cuemby/curfew/pkg/power"
	"github.com/cuemby/curfew/pkg/probe"
	"github.com/cuemby/curfew/pkg/runlock"
	"github.com/cuemby/curfew/pkg/tasks"
	"github.com/cuemby/curfew/pkg/zfs"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one safe-shutdown pass",
	Long: `Run the full shutdown sequence once: verify external tools, check the
time window, wait out critical tasks, check load, drain guests, export
pools and power off.

Exit code 0 means the node is powering off, or there was legitimately
nothing to do (before the window, or another instance holds the lock).
Exit code 1 means the run was deferred on load or failed; the operator
was notified either way.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRun,
}

func init() {
	addConfigFlags(runCmd)
	runCmd.Flags().Bool("dry-run", false, "Walk the gates but skip drain, export and power-off")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.DryRun, _ = cmd.Flags().GetBool("dry-run")

	runID := uuid.New().String()
	logger := log.WithRunID(runID)
	logger.Info().Str("node", cfg.NodeID).Bool("dry_run", cfg.DryRun).Msg("starting shutdown pass")

	if cfg.LockFile != "" {
		lock, err := runlock.Acquire(cfg.LockFile)
		if errors.Is(err, runlock.ErrBusy) {
			logger.Info().Str("lock", cfg.LockFile).Msg("another instance is running, nothing to do")
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn().Err(err).Msg("failed to release run lock")
			}
		}()
	}

	// The sleeps in the wait and settle loops watch this context, so
	// SIGTERM interrupts the run instead of being swallowed.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := hostcmd.NewExecRunner(cfg.CommandTimeout)
	notifier := notify.NewMailNotifier(runner, cfg.OperatorAddress)
	reporter := notify.NewReporter(notifier, cfg.NodeID, runID)
	pools := zfs.NewManager(runner)
	recorder := metrics.NewRecorder(cfg.NodeID, cfg.MetricsTextfile)

	orch := orchestrator.New(cfg, orchestrator.Deps{
		Prober:   probe.NewProber(runner),
		Detector: tasks.NewDetector(runner, pools, cfg.CriticalTasks, cfg.BackupPatterns, cfg.PollInterval),
		Gate:     loadgate.NewGate(loadgate.ProcReader{}, cfg.LoadCeiling),
		Drainer:  guests.NewDrainer(runner, reporter, cfg.GuestShutdownTimeout, cfg.GuestSettleTimeout, cfg.SettlePollInterval),
		Pools:    pools,
		Power:    power.NewSystemdController(runner),
		Reporter: reporter,
		Recorder: recorder,
	})

	outcome, runErr := orch.Run(ctx)

	recorder.SetOutcome(string(outcome))
	if err := recorder.Write(); err != nil {
		logger.Warn().Err(err).Msg("failed to write metrics textfile")
	}

	if runErr != nil {
		// Last-resort safety net: anything no stage handler claimed gets
		// one unclassified-fault notification. Cancellation is the
		// operator killing the process; mailing about it is just noise.
		var alreadyReported *orchestrator.ReportedError
		if !errors.As(runErr, &alreadyReported) && !errors.Is(runErr, context.Canceled) {
			reporter.Unclassified(ctx, runErr)
		}
		logger.Error().Err(runErr).Str("outcome", string(outcome)).Msg("shutdown pass failed")
		return runErr
	}

	logger.Info().Str("outcome", string(outcome)).Msg("shutdown pass finished")
	return nil
}
