// Package prometheus exports goIdentity engine metrics through
// prometheus/client_golang.
//
// [NewCollector] wraps an Engine in a prometheus.Collector. Register it on
// your own registry, or mount [Handler] which serves it from a private one.
// Counters are named goidentity_*_total and the latency histograms
// goidentity_*_latency_seconds.
package prometheus
