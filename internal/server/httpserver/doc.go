// Package httpserver provides the optional diagnostics HTTP server.
//
// The server exposes a read-only view of the save system over stdlib
// net/http:
//
//   - GET /healthz                      liveness and build version
//   - GET /metrics                      Prometheus metrics
//   - GET /api/v1/slots                 summary of every slot
//   - GET /api/v1/slots/{slot}          one slot
//   - GET /api/v1/slots/{slot}/backups  backup inventory
//   - GET /api/v1/history               recent operations, newest first
//
// Nothing served here mutates a slot or returns artifact contents;
// save data stays on disk. Requests pass through panic recovery, ULID
// request IDs, structured request logging, and optional per-client
// rate limiting.
package httpserver
