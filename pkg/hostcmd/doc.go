/*
Package hostcmd is the capability boundary between curfew and the host.

Every external interaction — guest listing and shutdown, pool status and
export, process lookup, power-off, mail — goes through the Runner interface.
ExecRunner is the production implementation; ScriptRunner is a canned-output
implementation used across the test suites.

ExecRunner applies an outer timeout to every command. The underlying tools
carry their own timeouts where they support them (guest shutdown does), but a
wedged management CLI would otherwise block the whole run indefinitely.
*/
package hostcmd
