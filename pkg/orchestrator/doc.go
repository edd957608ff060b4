/*
Package orchestrator implements the safe-shutdown decision sequence.

A run is linear with two gating loops:

	time window -> task gate (wait loop) -> load gate
	            -> guest drain -> pool export -> power-off

Ordering carries the safety argument: nothing destructive happens while
critical tasks run or load is high, storage export only happens after the
drain stage (settle included), and power-off only after a clean export.
Per-guest drain faults are isolated; export and settle faults are
stage-fatal. Errors already notified to the operator come back wrapped in
ReportedError so the caller's last-resort handler notifies exactly once for
anything else.
*/
package orchestrator
