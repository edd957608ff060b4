package metrics

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Run outcome label values.
const (
	OutcomeBeforeWindow = "before_window"
	OutcomeDeferredLoad = "deferred_load"
	OutcomeCompleted    = "completed"
	OutcomeDryRun       = "dry_run"
	OutcomeFailed       = "failed"
)

var allOutcomes = []string{
	OutcomeBeforeWindow,
	OutcomeDeferredLoad,
	OutcomeCompleted,
	OutcomeDryRun,
	OutcomeFailed,
}

// Recorder collects metrics for one orchestration pass and writes them as a
// node_exporter textfile. curfew is a one-shot job, so there is nothing to
// scrape; the textfile collector is how its metrics reach Prometheus.
type Recorder struct {
	registry *prometheus.Registry
	path     string

	outcome        *prometheus.GaugeVec
	lastRun        prometheus.Gauge
	stageDuration  *prometheus.GaugeVec
	guestsSignaled prometheus.Gauge
	guestFaults    prometheus.Gauge
}

// NewRecorder creates a Recorder writing to path. An empty path disables
// writing; recording calls still work so callers need no branching.
func NewRecorder(node, path string) *Recorder {
	constLabels := prometheus.Labels{"node": node}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		path:     path,
		outcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "curfew_run_outcome",
			Help:        "Outcome of the last curfew run (1 for the outcome that occurred)",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "curfew_last_run_timestamp_seconds",
			Help:        "Unix time of the last curfew run",
			ConstLabels: constLabels,
		}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "curfew_stage_duration_seconds",
			Help:        "Duration of each stage of the last run",
			ConstLabels: constLabels,
		}, []string{"stage"}),
		guestsSignaled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "curfew_guests_signaled_total",
			Help:        "Guests issued a shutdown command in the last run",
			ConstLabels: constLabels,
		}),
		guestFaults: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "curfew_guest_faults_total",
			Help:        "Guests that failed to shut down in the last run",
			ConstLabels: constLabels,
		}),
	}

	r.registry.MustRegister(r.outcome, r.lastRun, r.stageDuration, r.guestsSignaled, r.guestFaults)
	return r
}

// SetOutcome records the terminal outcome, zeroing the others so the
// textfile always carries the full outcome vector.
func (r *Recorder) SetOutcome(outcome string) {
	for _, o := range allOutcomes {
		v := 0.0
		if o == outcome {
			v = 1.0
		}
		r.outcome.WithLabelValues(o).Set(v)
	}
	r.lastRun.SetToCurrentTime()
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// SetGuests records drain counts.
func (r *Recorder) SetGuests(signaled, faults int) {
	r.guestsSignaled.Set(float64(signaled))
	r.guestFaults.Set(float64(faults))
}

// Write renders the registry in text exposition format and atomically
// replaces the textfile. Best-effort by contract: callers log a failure and
// move on.
func (r *Recorder) Write() error {
	if r.path == "" {
		return nil
	}

	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	tmp := r.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close metrics file: %w", err)
	}

	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish metrics file: %w", err)
	}
	return nil
}
