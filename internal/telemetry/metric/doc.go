// Package metric provides Prometheus metrics for Keepsake.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//   - collector.go: scrape-time collector for slot occupancy
//
// Two kinds of metrics are kept apart. Event metrics (save and load
// counts, durations, backup churn, repair outcomes) are recorded by
// the engine as operations happen. State metrics (bytes on disk per
// slot, backup counts) are read from the store at scrape time by the
// slot collector, so they stay correct even when files change outside
// the engine.
//
// Metrics are exposed at /metrics in Prometheus format by the
// diagnostics server.
package metric
