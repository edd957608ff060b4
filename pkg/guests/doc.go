/*
Package guests enumerates and drains the node's virtual machines and
containers ahead of a power-off.

Draining is strictly sequential and failure-isolated: each guest gets a
graceful shutdown with a bounded timeout, and a guest that refuses is
reported and left behind rather than aborting the pass. After both classes
are processed the drainer polls the signaled guests until they reach the
stopped state; guests still running past the settle timeout make the run
stage-fatal, because exporting storage over live guests is not safe.
*/
package guests
