// Package metrics publishes run outcomes and stage timings for Prometheus
// via the node_exporter textfile collector. A one-shot maintenance job has
// no endpoint to scrape, so the textfile is the delivery mechanism.
package metrics
