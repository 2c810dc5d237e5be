// Package shutdown coordinates graceful process teardown.
//
// A Handler collects cleanup hooks while the process assembles itself,
// then Wait blocks until SIGINT, SIGTERM, or a programmatic Trigger.
// Hooks run newest-first under one bounded context, so a component
// registered after its dependents shuts down before them:
//
//	h := shutdown.NewHandler(15 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return journal.Close() })
//	h.OnShutdown(func(ctx context.Context) error { return server.Shutdown(ctx) })
//	err := h.Wait() // server first, then journal
package shutdown
