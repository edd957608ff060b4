package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1.5, cfg.LoadCeiling)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, 22, cfg.EarliestHour)
	assert.Equal(t, 60*time.Second, cfg.GuestShutdownTimeout)
	assert.Equal(t, 120*time.Second, cfg.GuestSettleTimeout)
	assert.NotEmpty(t, cfg.NodeID)
	assert.NotEmpty(t, cfg.CriticalTasks)
	assert.Contains(t, cfg.CriticalTasks, "vzdump")
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "curfew.yaml")
	content := `
node_id: pve1
operator_address: ops@example.com
earliest_hour: 23
load_ceiling: 2.5
poll_interval: 30s
critical_tasks:
  - vzdump
guest_settle_timeout: 3m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pve1", cfg.NodeID)
	assert.Equal(t, "ops@example.com", cfg.OperatorAddress)
	assert.Equal(t, 23, cfg.EarliestHour)
	assert.Equal(t, 2.5, cfg.LoadCeiling)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{"vzdump"}, cfg.CriticalTasks)
	assert.Equal(t, 3*time.Minute, cfg.GuestSettleTimeout)

	// Unset fields keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.GuestShutdownTimeout)
	assert.NotEmpty(t, cfg.BackupPatterns)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curfew.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval: soon\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty operator", func(c *Config) { c.OperatorAddress = "" }, "operator_address"},
		{"hour too large", func(c *Config) { c.EarliestHour = 24 }, "earliest_hour"},
		{"negative hour", func(c *Config) { c.EarliestHour = -1 }, "earliest_hour"},
		{"zero ceiling", func(c *Config) { c.LoadCeiling = 0 }, "load_ceiling"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "poll_interval"},
		{"zero settle timeout", func(c *Config) { c.GuestSettleTimeout = 0 }, "guest_settle_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
