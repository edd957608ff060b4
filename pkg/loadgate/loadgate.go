package loadgate

import (
	"fmt"

	"github.com/cuemby/curfew/pkg/log"
	"github.com/prometheus/procfs"
	"github.com/rs/zerolog"
)

// Reader supplies the 1-minute load average. Abstracted so tests can feed
// arbitrary samples.
type Reader interface {
	Load1() (float64, error)
}

// ProcReader reads the load average from /proc via procfs.
type ProcReader struct{}

// Load1 returns the current 1-minute load average.
func (ProcReader) Load1() (float64, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0, fmt.Errorf("failed to open procfs: %w", err)
	}
	avg, err := fs.LoadAvg()
	if err != nil {
		return 0, fmt.Errorf("failed to read load average: %w", err)
	}
	return avg.Load1, nil
}

// Gate compares a single load sample against the configured ceiling.
// One sample decides; a high reading defers the whole run to the next
// scheduled invocation rather than retrying here.
type Gate struct {
	reader  Reader
	ceiling float64
	logger  zerolog.Logger
}

// NewGate creates a Gate with the given reader and ceiling.
func NewGate(reader Reader, ceiling float64) *Gate {
	return &Gate{
		reader:  reader,
		ceiling: ceiling,
		logger:  log.WithComponent("loadgate"),
	}
}

// Check reads one sample and reports whether it passes. A sample equal to
// the ceiling passes. The observed value is returned for reporting.
func (g *Gate) Check() (ok bool, load float64, err error) {
	load, err = g.reader.Load1()
	if err != nil {
		return false, 0, err
	}

	ok = load <= g.ceiling
	g.logger.Info().
		Float64("load1", load).
		Float64("ceiling", g.ceiling).
		Bool("ok", ok).
		Msg("load gate checked")
	return ok, load, nil
}
