package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/curfew/pkg/config"
	"github.com/cuemby/curfew/pkg/guests"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/cuemby/curfew/pkg/metrics"
	"github.com/cuemby/curfew/pkg/power"
	"github.com/cuemby/curfew/pkg/probe"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Outcome is the terminal state of one orchestration pass.
type Outcome string

const (
	// OutcomeBeforeWindow means the invocation landed before the earliest
	// allowed hour; nothing was touched.
	OutcomeBeforeWindow Outcome = metrics.OutcomeBeforeWindow
	// OutcomeDeferredLoad means system load exceeded the ceiling; the run
	// stopped so the next scheduled invocation can retry.
	OutcomeDeferredLoad Outcome = metrics.OutcomeDeferredLoad
	// OutcomeCompleted means the full sequence ran and power-off was issued.
	OutcomeCompleted Outcome = metrics.OutcomeCompleted
	// OutcomeDryRun means all gates passed but destructive stages were
	// suppressed.
	OutcomeDryRun Outcome = metrics.OutcomeDryRun
	// OutcomeFailed means a stage aborted the run.
	OutcomeFailed Outcome = metrics.OutcomeFailed
)

// Stage names used in metrics.
const (
	stageWaitTasks = "wait_tasks"
	stageDrain     = "drain"
	stageExport    = "export"
)

// TaskDetector gates shutdown on critical background work.
type TaskDetector interface {
	Active(ctx context.Context) bool
	Wait(ctx context.Context) error
}

// LoadGate gates shutdown on system load.
type LoadGate interface {
	Check() (ok bool, load float64, err error)
}

// GuestDrainer shuts down the node's guests.
type GuestDrainer interface {
	DrainAll(ctx context.Context) (*guests.Report, error)
}

// PoolExporter exports all storage pools.
type PoolExporter interface {
	ExportAll(ctx context.Context) error
}

// Prober verifies external dependencies before any stateful action.
type Prober interface {
	Check(required []string) error
}

// Reporter delivers the per-event operator notifications the orchestrator
// owns. Satisfied by notify.Reporter.
type Reporter interface {
	DeferredTasks(ctx context.Context)
	DeferredLoad(ctx context.Context, load, ceiling float64)
	SettleTimeout(ctx context.Context, remaining []string)
	ExportFault(ctx context.Context, err error)
	MissingDependency(ctx context.Context, command string)
	PowerOffFault(ctx context.Context, err error)
	Success(ctx context.Context)
}

// requiredCommands are the external tools a run may shell out to. All of
// them must resolve before anything stateful happens.
var requiredCommands = []string{"qm", "pct", "zpool", "pgrep", "systemctl", "mail"}

// ReportedError wraps an error whose notification was already sent, so the
// top-level blanket handler does not notify twice.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }
func (e *ReportedError) Unwrap() error { return e.Err }

func reported(err error) error { return &ReportedError{Err: err} }

// Deps are the orchestrator's collaborators, each substitutable in tests.
type Deps struct {
	Prober   Prober
	Detector TaskDetector
	Gate     LoadGate
	Drainer  GuestDrainer
	Pools    PoolExporter
	Power    power.Controller
	Reporter Reporter
	Recorder *metrics.Recorder
}

// Orchestrator owns the decision sequence of a safe-shutdown pass: time
// window, task gate, load gate, guest drain, pool export, power-off. It is
// strictly sequential; the only suspension points are the task wait loop
// and the guest settle polls, both cancellable through the context.
type Orchestrator struct {
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// New creates an Orchestrator.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithComponent("orchestrator"),
		now:    time.Now,
	}
}

// Run executes one pass. The returned Outcome is always meaningful; err is
// non-nil for every exit-code-1 path. Errors whose notification was already
// sent are wrapped in ReportedError so the caller's blanket handler only
// notifies for truly unclassified failures.
func (o *Orchestrator) Run(ctx context.Context) (Outcome, error) {
	if err := o.deps.Prober.Check(requiredCommands); err != nil {
		var missing *probe.MissingError
		if errors.As(err, &missing) {
			o.deps.Reporter.MissingDependency(ctx, missing.Command)
			return OutcomeFailed, reported(err)
		}
		return OutcomeFailed, err
	}

	hour := o.now().Hour()
	if hour < o.cfg.EarliestHour {
		o.logger.Info().
			Int("hour", hour).
			Int("earliest_hour", o.cfg.EarliestHour).
			Msg("before shutdown window, nothing to do")
		return OutcomeBeforeWindow, nil
	}

	if o.deps.Detector.Active(ctx) {
		o.logger.Info().Msg("critical tasks active, deferring shutdown")
		o.deps.Reporter.DeferredTasks(ctx)

		start := o.now()
		if err := o.deps.Detector.Wait(ctx); err != nil {
			return OutcomeFailed, err
		}
		o.deps.Recorder.ObserveStage(stageWaitTasks, time.Since(start))
	}

	ok, load, err := o.deps.Gate.Check()
	if err != nil {
		return OutcomeFailed, err
	}
	if !ok {
		o.deps.Reporter.DeferredLoad(ctx, load, o.cfg.LoadCeiling)
		return OutcomeDeferredLoad, reported(fmt.Errorf(
			"shutdown deferred: load %.2f above ceiling %.2f", load, o.cfg.LoadCeiling))
	}

	if o.cfg.DryRun {
		o.logger.Info().Msg("dry run: all gates passed, skipping drain, export and power-off")
		return OutcomeDryRun, nil
	}

	if err := o.drain(ctx); err != nil {
		return OutcomeFailed, err
	}

	start := o.now()
	if err := o.deps.Pools.ExportAll(ctx); err != nil {
		o.deps.Reporter.ExportFault(ctx, err)
		return OutcomeFailed, reported(err)
	}
	o.deps.Recorder.ObserveStage(stageExport, time.Since(start))

	if err := o.deps.Power.Off(ctx); err != nil {
		o.deps.Reporter.PowerOffFault(ctx, err)
		return OutcomeFailed, reported(err)
	}

	o.deps.Reporter.Success(ctx)
	o.logger.Info().Msg("shutdown sequence complete, node powering off")
	return OutcomeCompleted, nil
}

// drain runs the guest drain stage. Per-guest faults were already notified
// by the drainer; only a settle timeout or an enumeration failure surfaces.
func (o *Orchestrator) drain(ctx context.Context) error {
	start := o.now()
	report, err := o.deps.Drainer.DrainAll(ctx)
	o.deps.Recorder.ObserveStage(stageDrain, time.Since(start))

	if report != nil {
		faults := 0
		if report.Faults != nil {
			faults = len(multierrorList(report.Faults))
		}
		o.deps.Recorder.SetGuests(len(report.Signaled), faults)
	}

	if err != nil {
		var settle *guests.SettleError
		if errors.As(err, &settle) {
			names := make([]string, len(settle.Remaining))
			for i, g := range settle.Remaining {
				names[i] = g.String()
			}
			o.deps.Reporter.SettleTimeout(ctx, names)
			return reported(err)
		}
		return err
	}
	return nil
}

func multierrorList(err error) []error {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return merr.Errors
	}
	return []error{err}
}
