package main

import (
	"fmt"
	"os"

	"github.com/cuemby/curfew/pkg/config"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "curfew",
	Short: "Curfew - safe-shutdown orchestrator for a virtualization node",
	Long: `Curfew powers a virtualization node off safely: it waits out backup and
replication tasks, checks system load, drains all virtual machines and
containers, exports the storage pools, and only then powers off.

It is meant to run unattended from cron or a systemd timer, inside the
nightly window where the node is allowed to go down.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{
			Level:      log.Level(level),
			JSONOutput: jsonOut,
		})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Curfew version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log in JSON instead of console format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
}

// loadConfig resolves defaults, optional config file, and flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if cmd.Flags().Changed("node-id") {
		cfg.NodeID, _ = cmd.Flags().GetString("node-id")
	}
	if cmd.Flags().Changed("operator") {
		cfg.OperatorAddress, _ = cmd.Flags().GetString("operator")
	}
	if cmd.Flags().Changed("earliest-hour") {
		cfg.EarliestHour, _ = cmd.Flags().GetInt("earliest-hour")
	}
	if cmd.Flags().Changed("load-ceiling") {
		cfg.LoadCeiling, _ = cmd.Flags().GetFloat64("load-ceiling")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// addConfigFlags registers the per-run config overrides shared by run and
// check.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("node-id", "", "Node identifier (default: hostname)")
	cmd.Flags().String("operator", "", "Operator mail address for notifications")
	cmd.Flags().Int("earliest-hour", config.DefaultEarliestHour, "Earliest hour of day a shutdown may start")
	cmd.Flags().Float64("load-ceiling", config.DefaultLoadCeiling, "Highest acceptable 1-minute load average")
}
