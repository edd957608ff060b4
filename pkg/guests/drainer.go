package guests

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// FaultReporter receives per-guest shutdown failures. Satisfied by
// notify.Reporter.
type FaultReporter interface {
	GuestFault(ctx context.Context, class, id string, err error)
}

// Report summarizes one drain pass.
type Report struct {
	// Enumerated is the total number of guests found across both classes.
	Enumerated int
	// Skipped counts guests that were already stopped.
	Skipped int
	// Signaled holds the guests whose shutdown command was accepted;
	// these are the guests the settle phase waits on.
	Signaled []Guest
	// Faults aggregates per-guest failures. Non-fatal: the run continued
	// past each of them.
	Faults error
}

// SettleError is returned when signaled guests are still running after the
// settle timeout. It is stage-fatal: storage export must not proceed over
// live guests.
type SettleError struct {
	Remaining []Guest
}

func (e *SettleError) Error() string {
	names := make([]string, len(e.Remaining))
	for i, g := range e.Remaining {
		names[i] = g.String()
	}
	return fmt.Sprintf("%d guests still running after settle timeout: %s",
		len(e.Remaining), strings.Join(names, ", "))
}

// Drainer shuts down all running guests, class by class, isolating
// per-guest failures so one stuck guest cannot stop the rest from being
// drained.
type Drainer struct {
	runner          hostcmd.Runner
	reporter        FaultReporter
	shutdownTimeout time.Duration
	settleTimeout   time.Duration
	settlePoll      time.Duration
	logger          zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewDrainer creates a Drainer.
func NewDrainer(runner hostcmd.Runner, reporter FaultReporter, shutdownTimeout, settleTimeout, settlePoll time.Duration) *Drainer {
	return &Drainer{
		runner:          runner,
		reporter:        reporter,
		shutdownTimeout: shutdownTimeout,
		settleTimeout:   settleTimeout,
		settlePoll:      settlePoll,
		logger:          log.WithComponent("drainer"),
		sleep:           sleepContext,
	}
}

// DrainAll enumerates VMs then containers, issues a graceful shutdown to
// every running guest, then waits for the signaled guests to settle. The
// returned Report is valid even when err is non-nil.
//
// Per-guest failures (status query or shutdown command) are reported and
// recorded but never abort the pass. A *SettleError is returned when guests
// outlive the settle bound; an enumeration failure is returned as-is for
// the caller's blanket handler.
func (d *Drainer) DrainAll(ctx context.Context) (*Report, error) {
	report := &Report{}

	for _, cl := range []struct {
		class Class
		bin   string
	}{
		{ClassVM, "qm"},
		{ClassContainer, "pct"},
	} {
		guests, err := list(ctx, d.runner, cl.class, cl.bin)
		if err != nil {
			return report, err
		}
		report.Enumerated += len(guests)

		for _, g := range guests {
			d.drainOne(ctx, g, report)
		}
	}

	d.logger.Info().
		Int("enumerated", report.Enumerated).
		Int("signaled", len(report.Signaled)).
		Int("skipped", report.Skipped).
		Msg("drain pass complete")

	if err := d.settle(ctx, report.Signaled); err != nil {
		return report, err
	}
	return report, nil
}

func (d *Drainer) drainOne(ctx context.Context, g Guest, report *Report) {
	st, err := status(ctx, d.runner, g)
	if err != nil {
		d.fault(ctx, g, err, report)
		return
	}
	if st != "running" {
		d.logger.Debug().Stringer("guest", g).Str("status", st).Msg("guest not running, skipping")
		report.Skipped++
		return
	}

	d.logger.Info().Stringer("guest", g).Msg("issuing graceful shutdown")
	if err := d.shutdown(ctx, g); err != nil {
		d.fault(ctx, g, err, report)
		return
	}
	report.Signaled = append(report.Signaled, g)
}

// shutdown issues the class-appropriate graceful shutdown. VMs get the
// lock-bypass flag so a stale management lock cannot block the drain.
func (d *Drainer) shutdown(ctx context.Context, g Guest) error {
	seconds := strconv.Itoa(int(d.shutdownTimeout / time.Second))
	args := []string{"shutdown", g.ID, "--timeout", seconds}
	if g.Class == ClassVM {
		args = append(args, "--skiplock")
	}

	if _, err := d.runner.Run(ctx, g.tool(), args...); err != nil {
		return fmt.Errorf("failed to shut down %s: %w", g, err)
	}
	return nil
}

func (d *Drainer) fault(ctx context.Context, g Guest, err error, report *Report) {
	d.logger.Error().Err(err).Stringer("guest", g).Msg("guest drain fault")
	d.reporter.GuestFault(ctx, string(g.Class), g.ID, err)
	report.Faults = multierror.Append(report.Faults, err)
}

// settle polls the signaled guests until all report stopped or the settle
// timeout elapses. Guests whose shutdown command failed are not polled:
// they were already reported, and the original behavior is to proceed
// without them.
func (d *Drainer) settle(ctx context.Context, signaled []Guest) error {
	if len(signaled) == 0 {
		return nil
	}

	polls := int(d.settleTimeout / d.settlePoll)
	if polls < 1 {
		polls = 1
	}

	remaining := append([]Guest(nil), signaled...)
	d.logger.Info().Int("guests", len(remaining)).Msg("waiting for guests to settle")

	for i := 0; i < polls; i++ {
		if err := d.sleep(ctx, d.settlePoll); err != nil {
			return err
		}

		var still []Guest
		for _, g := range remaining {
			st, err := status(ctx, d.runner, g)
			if err != nil {
				// Transient status failure: keep polling this guest.
				d.logger.Debug().Err(err).Stringer("guest", g).Msg("settle status check failed")
				still = append(still, g)
				continue
			}
			if st == "running" {
				still = append(still, g)
			}
		}
		remaining = still

		if len(remaining) == 0 {
			d.logger.Info().Msg("all guests settled")
			return nil
		}
	}

	return &SettleError{Remaining: remaining}
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
