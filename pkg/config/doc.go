/*
Package config defines the immutable runtime configuration for curfew.

Configuration is resolved once at startup in three layers: built-in defaults,
an optional YAML file, and command-line flags. The resulting Config value is
passed into the orchestrator at construction and never mutated afterwards, so
every knob (task names, load ceiling, timeouts) is independently overridable
for testing.

Example config file:

	node_id: pve1
	operator_address: ops@example.com
	earliest_hour: 22
	load_ceiling: 1.5
	poll_interval: 5m
	critical_tasks:
	  - vzdump
	  - pve-zsync
*/
package config
