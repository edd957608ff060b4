package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/loadgate"
	"github.com/cuemby/curfew/pkg/tasks"
	"github.com/cuemby/curfew/pkg/zfs"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report the shutdown gates without acting",
	Long: `Evaluate the time window, critical-task detector and load gate and print
what a run would decide right now. Read-only: no guest, storage or power
action is taken and no notification is sent.`,
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	addConfigFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	runner := hostcmd.NewExecRunner(cfg.CommandTimeout)
	pools := zfs.NewManager(runner)
	detector := tasks.NewDetector(runner, pools, cfg.CriticalTasks, cfg.BackupPatterns, cfg.PollInterval)
	gate := loadgate.NewGate(loadgate.ProcReader{}, cfg.LoadCeiling)

	fmt.Printf("Node: %s\n\n", cfg.NodeID)

	hour := time.Now().Hour()
	if hour < cfg.EarliestHour {
		fmt.Printf("Time window:    closed (hour %d, opens at %d)\n", hour, cfg.EarliestHour)
	} else {
		fmt.Printf("Time window:    open (hour %d, earliest %d)\n", hour, cfg.EarliestHour)
	}

	if detector.Active(ctx) {
		fmt.Println("Critical tasks: active (a run would wait)")
	} else {
		fmt.Println("Critical tasks: none")
	}

	ok, load, err := gate.Check()
	switch {
	case err != nil:
		fmt.Printf("Load gate:      error (%v)\n", err)
	case ok:
		fmt.Printf("Load gate:      ok (%.2f of ceiling %.2f)\n", load, cfg.LoadCeiling)
	default:
		fmt.Printf("Load gate:      blocked (%.2f above ceiling %.2f)\n", load, cfg.LoadCeiling)
	}

	return nil
}
