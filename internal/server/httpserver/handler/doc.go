// Package handler implements the read-only diagnostics endpoints of
// the keepsake HTTP server: health, Prometheus metrics, slot
// summaries, backup inventories, and the operation history.
package handler
