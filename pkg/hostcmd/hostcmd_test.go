package hostcmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerRun(t *testing.T) {
	r := NewExecRunner(10 * time.Second)

	out, err := r.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestExecRunnerRunInput(t *testing.T) {
	r := NewExecRunner(10 * time.Second)

	out, err := r.RunInput(context.Background(), "piped\n", "cat")
	require.NoError(t, err)
	assert.Equal(t, "piped\n", out)
}

func TestExecRunnerFailure(t *testing.T) {
	r := NewExecRunner(10 * time.Second)

	_, err := r.Run(context.Background(), "false")
	assert.Error(t, err)
}

func TestExecRunnerTimeout(t *testing.T) {
	r := NewExecRunner(50 * time.Millisecond)

	_, err := r.Run(context.Background(), "sleep", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestExecRunnerLookPath(t *testing.T) {
	r := NewExecRunner(0)

	_, err := r.LookPath("sh")
	assert.NoError(t, err)

	_, err = r.LookPath("definitely-not-a-command-curfew")
	assert.Error(t, err)
}

func TestScriptRunnerQueue(t *testing.T) {
	r := NewScriptRunner()
	boom := errors.New("boom")
	r.Script("pgrep -x vzdump",
		ScriptResult{Output: "1234\n"},
		ScriptResult{Err: boom},
	)

	out, err := r.Run(context.Background(), "pgrep", "-x", "vzdump")
	require.NoError(t, err)
	assert.Equal(t, "1234\n", out)

	// Second result, then the last one repeats.
	for i := 0; i < 2; i++ {
		_, err = r.Run(context.Background(), "pgrep", "-x", "vzdump")
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, 3, r.CallCount("pgrep -x vzdump"))
}

func TestScriptRunnerUnscripted(t *testing.T) {
	r := NewScriptRunner()

	out, err := r.Run(context.Background(), "qm", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, []string{"qm list"}, r.Calls)
}

func TestScriptRunnerRecordsInput(t *testing.T) {
	r := NewScriptRunner()

	_, err := r.RunInput(context.Background(), "body text", "mail", "-s", "subject", "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"body text"}, r.Inputs["mail -s subject root"])
}

func TestScriptRunnerMissing(t *testing.T) {
	r := NewScriptRunner()
	r.SetMissing("mail")

	_, err := r.LookPath("mail")
	assert.Error(t, err)

	_, err = r.LookPath("qm")
	assert.NoError(t, err)
}

func TestScriptRunnerCancelledContext(t *testing.T) {
	r := NewScriptRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, "qm", "list")
	assert.ErrorIs(t, err, context.Canceled)
}
