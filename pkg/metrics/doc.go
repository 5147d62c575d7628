// Package metrics counts what a collection run did using Prometheus
// collectors on a private registry. A run is a batch job, so instead of an
// HTTP endpoint the values can be written once at the end to a file for the
// node_exporter textfile collector.
package metrics
