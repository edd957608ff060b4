// Package runlock provides the exclusive-run flock that keeps concurrent
// curfew invocations off the same node. Held for the process lifetime;
// a busy lock is treated as "someone else is already handling it".
package runlock
