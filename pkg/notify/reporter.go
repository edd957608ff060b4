package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Reporter formats the fixed per-event message templates and forwards them
// to a Notifier. Every subject carries the node identifier; every body
// carries the run ID so log lines, mail and metrics correlate.
type Reporter struct {
	notifier Notifier
	node     string
	runID    string
}

// NewReporter creates a Reporter for the given node and run.
func NewReporter(notifier Notifier, node, runID string) *Reporter {
	return &Reporter{
		notifier: notifier,
		node:     node,
		runID:    runID,
	}
}

func (r *Reporter) subject(event string) string {
	return fmt.Sprintf("curfew %s: %s", r.node, event)
}

func (r *Reporter) body(lines ...string) string {
	header := []string{
		fmt.Sprintf("node:   %s", r.node),
		fmt.Sprintf("run:    %s", r.runID),
		fmt.Sprintf("time:   %s", time.Now().Format(time.RFC3339)),
		"",
	}
	return strings.Join(append(header, lines...), "\n") + "\n"
}

// DeferredTasks reports that shutdown is waiting on critical tasks.
func (r *Reporter) DeferredTasks(ctx context.Context) {
	r.notifier.Send(ctx,
		r.subject("shutdown deferred, critical tasks running"),
		r.body("Backup or replication tasks are still active.",
			"The shutdown run will wait and re-check until they finish."))
}

// DeferredLoad reports that shutdown was abandoned due to system load.
func (r *Reporter) DeferredLoad(ctx context.Context, load, ceiling float64) {
	r.notifier.Send(ctx,
		r.subject("shutdown deferred, load too high"),
		r.body(fmt.Sprintf("1-minute load average %.2f exceeds ceiling %.2f.", load, ceiling),
			"This run stops here; the next scheduled invocation will retry."))
}

// GuestFault reports a single guest that failed to shut down.
func (r *Reporter) GuestFault(ctx context.Context, class, id string, err error) {
	r.notifier.Send(ctx,
		r.subject(fmt.Sprintf("failed to shut down %s %s", class, id)),
		r.body(fmt.Sprintf("The shutdown command for %s %s failed:", class, id),
			fmt.Sprintf("  %v", err),
			"",
			"The run continues with the remaining guests."))
}

// SettleTimeout reports guests still running after the settle bound.
func (r *Reporter) SettleTimeout(ctx context.Context, remaining []string) {
	r.notifier.Send(ctx,
		r.subject("guests still running, shutdown aborted"),
		r.body("These guests did not stop within the settle timeout:",
			"  "+strings.Join(remaining, ", "),
			"",
			"Storage export and power-off were NOT attempted."))
}

// ExportFault reports a failed pool export. Pools may still be active.
func (r *Reporter) ExportFault(ctx context.Context, err error) {
	r.notifier.Send(ctx,
		r.subject("pool export failed, shutdown aborted"),
		r.body("Exporting the storage pools failed:",
			fmt.Sprintf("  %v", err),
			"",
			"Pools may still be active. Power-off was NOT attempted."))
}

// MissingDependency reports a required command absent from the host.
func (r *Reporter) MissingDependency(ctx context.Context, command string) {
	r.notifier.Send(ctx,
		r.subject(fmt.Sprintf("missing required command %q", command)),
		r.body(fmt.Sprintf("The command %q is not installed on this host.", command),
			"This is a deployment defect; the run was aborted before any action."))
}

// PowerOffFault reports that the power-off command itself failed.
func (r *Reporter) PowerOffFault(ctx context.Context, err error) {
	r.notifier.Send(ctx,
		r.subject("power-off command failed"),
		r.body("Guests are down and pools are exported, but power-off failed:",
			fmt.Sprintf("  %v", err),
			"",
			"Manual intervention required."))
}

// Success reports a fully completed run; the node is about to power off.
func (r *Reporter) Success(ctx context.Context) {
	r.notifier.Send(ctx,
		r.subject("shutdown complete, powering off"),
		r.body("All guests are down and all pools are exported.",
			"The node is powering off now."))
}

// Unclassified reports an error no stage handler claimed. Last-resort net.
func (r *Reporter) Unclassified(ctx context.Context, err error) {
	r.notifier.Send(ctx,
		r.subject("shutdown run failed"),
		r.body("The run aborted with an unexpected error:",
			fmt.Sprintf("  %v", err)))
}
