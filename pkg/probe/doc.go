// Package probe performs the preflight check that all external commands
// curfew shells out to exist on the host, before any stateful work begins.
package probe
