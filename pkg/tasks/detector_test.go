package tasks

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

var errNoMatch = errors.New("exit status 1")

// fakeScrub records whether it was consulted.
type fakeScrub struct {
	active bool
	err    error
	calls  int
}

func (f *fakeScrub) ScrubActive(ctx context.Context) (bool, error) {
	f.calls++
	return f.active, f.err
}

func newDetector(r hostcmd.Runner, scrub ScrubChecker) *Detector {
	return NewDetector(r, scrub,
		[]string{"vzdump", "pve-zsync"},
		[]string{"zfs send"},
		time.Minute)
}

func TestActiveExactMatchShortCircuits(t *testing.T) {
	r := hostcmd.NewScriptRunner()
	r.Script("pgrep -x vzdump", hostcmd.ScriptResult{Output: "1234\n"})
	scrub := &fakeScrub{active: true}

	d := newDetector(r, scrub)

	assert.True(t, d.Active(context.Background()))
	// First check won: neither the pool status nor the pattern scan ran.
	assert.Equal(t, 0, scrub.calls)
	assert.Equal(t, 0, r.CallCount("pgrep -f"))
}

func TestActiveScrubDetected(t *testing.T) {
	r := hostcmd.NewScriptRunner()
	r.Script("pgrep -x vzdump", hostcmd.ScriptResult{Err: errNoMatch})
	r.Script("pgrep -x pve-zsync", hostcmd.ScriptResult{Err: errNoMatch})
	scrub := &fakeScrub{active: true}

	d := newDetector(r, scrub)

	assert.True(t, d.Active(context.Background()))
	assert.Equal(t, 1, scrub.calls)
	assert.Equal(t, 0, r.CallCount("pgrep -f"))
}

func TestActivePatternIsSafetyNet(t *testing.T) {
	r := hostcmd.NewScriptRunner()
	r.Script("pgrep -x vzdump", hostcmd.ScriptResult{Err: errNoMatch})
	r.Script("pgrep -x pve-zsync", hostcmd.ScriptResult{Err: errNoMatch})
	r.Script("pgrep -f zfs send", hostcmd.ScriptResult{Output: "4321\n"})

	d := newDetector(r, &fakeScrub{})

	assert.True(t, d.Active(context.Background()))
}

func TestActiveSubCheckFailuresMeanNoMatch(t *testing.T) {
	r := hostcmd.NewScriptRunner()
	r.Script("pgrep -x vzdump", hostcmd.ScriptResult{Err: errors.New("permission denied")})
	r.Script("pgrep -x pve-zsync", hostcmd.ScriptResult{Err: errNoMatch})
	r.Script("pgrep -f zfs send", hostcmd.ScriptResult{Err: errNoMatch})

	d := newDetector(r, &fakeScrub{err: errors.New("zpool not available")})

	assert.False(t, d.Active(context.Background()))
}

func TestActiveNothingRunning(t *testing.T) {
	r := hostcmd.NewScriptRunner()
	r.Script("pgrep -x vzdump", hostcmd.ScriptResult{Err: errNoMatch})
	r.Script("pgrep -x pve-zsync", hostcmd.ScriptResult{Err: errNoMatch})
	r.Script("pgrep -f zfs send", hostcmd.ScriptResult{Err: errNoMatch})

	d := newDetector(r, &fakeScrub{})

	assert.False(t, d.Active(context.Background()))
}

func TestWaitPollsUntilInactive(t *testing.T) {
	r := hostcmd.NewScriptRunner()
	// Still active on the first re-check, gone on the second.
	r.Script("pgrep -x vzdump",
		hostcmd.ScriptResult{Output: "1234\n"},
		hostcmd.ScriptResult{Err: errNoMatch},
	)
	r.Script("pgrep -x pve-zsync", hostcmd.ScriptResult{Err: errNoMatch})
	r.Script("pgrep -f zfs send", hostcmd.ScriptResult{Err: errNoMatch})

	d := newDetector(r, &fakeScrub{})

	sleeps := 0
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		sleeps++
		assert.Equal(t, time.Minute, dur)
		return nil
	}

	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, 2, sleeps)
}

func TestWaitCancellable(t *testing.T) {
	r := hostcmd.NewScriptRunner()
	r.Script("pgrep -x vzdump", hostcmd.ScriptResult{Output: "1234\n"})

	d := newDetector(r, &fakeScrub{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
