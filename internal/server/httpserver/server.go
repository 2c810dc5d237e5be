package httpserver

import (
	"context"
	"net/http"
	"time"
)

// Server wraps http.Server with timeouts suited to a small local
// diagnostics API.
type Server struct {
	httpServer *http.Server
}

// New creates a server for the given address and handler.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// ListenAndServe blocks serving requests until Shutdown or a listener
// error. Returns http.ErrServerClosed after a clean shutdown.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight
// requests to finish, up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
