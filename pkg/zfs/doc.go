// Package zfs drives the host's zpool tooling: scrub detection before a
// shutdown may proceed, and the export-all pass that runs after guests are
// down. Export failure is stage-fatal by design; see the orchestrator.
package zfs
