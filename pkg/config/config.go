package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values, matching the behavior of the shell tooling curfew replaces.
const (
	DefaultLoadCeiling          = 1.5
	DefaultPollInterval         = 5 * time.Minute
	DefaultEarliestHour         = 22
	DefaultGuestShutdownTimeout = 60 * time.Second
	DefaultGuestSettleTimeout   = 120 * time.Second
	DefaultSettlePollInterval   = 5 * time.Second
	DefaultCommandTimeout       = 5 * time.Minute
	DefaultOperatorAddress      = "root"
	DefaultLockFile             = "/run/curfew.lock"
	DefaultMetricsTextfile      = "/var/lib/node_exporter/textfile_collector/curfew.prom"
)

// Config holds the full runtime configuration for one orchestration pass.
// It is assembled once at startup and never mutated afterwards.
type Config struct {
	// NodeID identifies this host in notifications and metrics.
	// Defaults to the hostname.
	NodeID string

	// OperatorAddress is the mail address that receives every notification.
	OperatorAddress string

	// EarliestHour is the first hour of day (0-23) at which a shutdown
	// may proceed. Invocations before it are a logged no-op.
	EarliestHour int

	// LoadCeiling is the highest acceptable 1-minute load average.
	// A sample equal to the ceiling still passes.
	LoadCeiling float64

	// PollInterval is the sleep between re-checks while critical tasks
	// are still running.
	PollInterval time.Duration

	// CriticalTasks are exact process names whose presence blocks shutdown.
	CriticalTasks []string

	// BackupPatterns are pgrep -f patterns matched against full command
	// lines, a safety net for task invocations CriticalTasks misses.
	BackupPatterns []string

	// GuestShutdownTimeout is passed to the guest shutdown command.
	GuestShutdownTimeout time.Duration

	// GuestSettleTimeout bounds how long the drainer waits for signaled
	// guests to reach the stopped state before declaring the run failed.
	GuestSettleTimeout time.Duration

	// SettlePollInterval is the sleep between guest status polls during
	// the settle phase.
	SettlePollInterval time.Duration

	// CommandTimeout is the outer timeout applied to every external
	// command so a hung tool cannot block the run forever.
	CommandTimeout time.Duration

	// MetricsTextfile is where run metrics are written for the
	// node_exporter textfile collector. Empty disables metrics.
	MetricsTextfile string

	// LockFile guards against concurrent curfew runs on the same host.
	LockFile string

	// DryRun walks the gates for real but suppresses guest shutdown,
	// pool export and power-off. Set from the command line only.
	DryRun bool
}

// Default returns a Config populated with defaults for a Proxmox-style node.
func Default() *Config {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Config{
		NodeID:               hostname,
		OperatorAddress:      DefaultOperatorAddress,
		EarliestHour:         DefaultEarliestHour,
		LoadCeiling:          DefaultLoadCeiling,
		PollInterval:         DefaultPollInterval,
		CriticalTasks:        []string{"vzdump", "pve-zsync", "syncoid", "sanoid"},
		BackupPatterns:       []string{"vzdump", "pve-zsync", "zfs send", "zfs recv"},
		GuestShutdownTimeout: DefaultGuestShutdownTimeout,
		GuestSettleTimeout:   DefaultGuestSettleTimeout,
		SettlePollInterval:   DefaultSettlePollInterval,
		CommandTimeout:       DefaultCommandTimeout,
		MetricsTextfile:      DefaultMetricsTextfile,
		LockFile:             DefaultLockFile,
	}
}

// fileConfig is the YAML representation. Durations are human-readable
// strings ("300s", "5m") parsed with time.ParseDuration.
type fileConfig struct {
	NodeID               string   `yaml:"node_id"`
	OperatorAddress      string   `yaml:"operator_address"`
	EarliestHour         *int     `yaml:"earliest_hour"`
	LoadCeiling          *float64 `yaml:"load_ceiling"`
	PollInterval         string   `yaml:"poll_interval"`
	CriticalTasks        []string `yaml:"critical_tasks"`
	BackupPatterns       []string `yaml:"backup_patterns"`
	GuestShutdownTimeout string   `yaml:"guest_shutdown_timeout"`
	GuestSettleTimeout   string   `yaml:"guest_settle_timeout"`
	SettlePollInterval   string   `yaml:"settle_poll_interval"`
	CommandTimeout       string   `yaml:"command_timeout"`
	MetricsTextfile      *string  `yaml:"metrics_textfile"`
	LockFile             string   `yaml:"lock_file"`
}

// Load reads a YAML config file and applies it on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.apply(&fc); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(fc *fileConfig) error {
	if fc.NodeID != "" {
		c.NodeID = fc.NodeID
	}
	if fc.OperatorAddress != "" {
		c.OperatorAddress = fc.OperatorAddress
	}
	if fc.EarliestHour != nil {
		c.EarliestHour = *fc.EarliestHour
	}
	if fc.LoadCeiling != nil {
		c.LoadCeiling = *fc.LoadCeiling
	}
	if fc.CriticalTasks != nil {
		c.CriticalTasks = fc.CriticalTasks
	}
	if fc.BackupPatterns != nil {
		c.BackupPatterns = fc.BackupPatterns
	}
	if fc.MetricsTextfile != nil {
		c.MetricsTextfile = *fc.MetricsTextfile
	}
	if fc.LockFile != "" {
		c.LockFile = fc.LockFile
	}

	durations := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{fc.PollInterval, "poll_interval", &c.PollInterval},
		{fc.GuestShutdownTimeout, "guest_shutdown_timeout", &c.GuestShutdownTimeout},
		{fc.GuestSettleTimeout, "guest_settle_timeout", &c.GuestSettleTimeout},
		{fc.SettlePollInterval, "settle_poll_interval", &c.SettlePollInterval},
		{fc.CommandTimeout, "command_timeout", &c.CommandTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	return nil
}

// Validate checks the configuration for values that would make a run unsafe.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.OperatorAddress == "" {
		return fmt.Errorf("operator_address must not be empty")
	}
	if c.EarliestHour < 0 || c.EarliestHour > 23 {
		return fmt.Errorf("earliest_hour must be between 0 and 23, got %d", c.EarliestHour)
	}
	if c.LoadCeiling <= 0 {
		return fmt.Errorf("load_ceiling must be positive, got %g", c.LoadCeiling)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.GuestShutdownTimeout <= 0 {
		return fmt.Errorf("guest_shutdown_timeout must be positive, got %s", c.GuestShutdownTimeout)
	}
	if c.GuestSettleTimeout <= 0 {
		return fmt.Errorf("guest_settle_timeout must be positive, got %s", c.GuestSettleTimeout)
	}
	if c.SettlePollInterval <= 0 {
		return fmt.Errorf("settle_poll_interval must be positive, got %s", c.SettlePollInterval)
	}
	return nil
}
