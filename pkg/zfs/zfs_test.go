package zfs

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

const statusIdle = `  pool: tank
 state: ONLINE
  scan: scrub repaired 0B in 02:11:33 with 0 errors on Sun Aug 10 04:35:34 2025
config:

	NAME        STATE     READ WRITE CKSUM
	tank        ONLINE       0     0     0
`

const statusScrubbing = `  pool: tank
 state: ONLINE
  scan: scrub in progress since Sun Aug 31 00:24:03 2025
	1.21T scanned at 1.41G/s, 349G issued at 407M/s, 3.35T total
`

const statusResilvering = `  pool: tank
 state: DEGRADED
  scan: resilver in progress since Sun Aug 31 01:12:44 2025
`

func TestScrubActive(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"idle pool", statusIdle, false},
		{"scrub running", statusScrubbing, true},
		{"resilver running", statusResilvering, true},
		{"no pools", "no pools available\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := hostcmd.NewScriptRunner()
			r.Script("zpool status", hostcmd.ScriptResult{Output: tt.output})

			active, err := NewManager(r).ScrubActive(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, active)
		})
	}
}

func TestScrubActiveCommandFailure(t *testing.T) {
	r := hostcmd.NewScriptRunner()
	r.Script("zpool status", hostcmd.ScriptResult{Err: errors.New("permission denied")})

	_, err := NewManager(r).ScrubActive(context.Background())
	assert.Error(t, err)
}

func TestExportAll(t *testing.T) {
	r := hostcmd.NewScriptRunner()

	require.NoError(t, NewManager(r).ExportAll(context.Background()))
	assert.Equal(t, 1, r.CallCount("zpool export -a"))
}

func TestExportAllFailure(t *testing.T) {
	r := hostcmd.NewScriptRunner()
	r.Script("zpool export -a", hostcmd.ScriptResult{Err: errors.New("pool is busy")})

	err := NewManager(r).ExportAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to export pools")
}
