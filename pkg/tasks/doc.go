/*
Package tasks detects critical background work that must block a shutdown:
backup and replication processes (by exact name and by command-line
pattern) and in-flight pool scrubs.

Detection is deliberately conservative in one direction only: a sub-check
that errors counts as "not detected", because the wait loop re-polls and a
broken lookup tool would otherwise wedge the node in a never-shuts-down
state with no signal to the operator.
*/
package tasks
