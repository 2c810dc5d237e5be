package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/calderhale/keepsake-go/internal/core/service"
	"github.com/calderhale/keepsake-go/internal/history"
	"github.com/calderhale/keepsake-go/internal/server/httpserver/handler"
	"github.com/calderhale/keepsake-go/internal/telemetry/metric"
)

// RouterConfig assembles the diagnostics router.
type RouterConfig struct {
	// Engine serves slot summaries and backup inventories. Required.
	Engine *service.Engine

	// Journal serves /api/v1/history. Nil disables the route.
	Journal *history.Journal

	// Metrics is the registry behind /metrics. Defaults to the
	// process-wide registry.
	Metrics *metric.Registry

	// Logger receives one line per request. Defaults to slog.Default().
	Logger *slog.Logger

	// RateLimit is the per-client request rate in requests per second.
	// Zero or negative disables limiting.
	RateLimit float64

	// Burst is the token bucket depth when limiting is on.
	Burst int
}

// NewRouter builds the full diagnostics handler: routes wrapped in
// recovery, request IDs, request logging, and optional rate limiting.
func NewRouter(cfg *RouterConfig) (http.Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h, err := handler.New(handler.Config{
		Engine:  cfg.Engine,
		Journal: cfg.Journal,
		Metrics: cfg.Metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	// Recover sits outermost so panics anywhere below it, including in
	// the logging middleware, still produce a response.
	middlewares := []Middleware{
		Recover(logger),
		RequestID(),
		RequestLogger(logger),
	}
	if cfg.RateLimit > 0 {
		middlewares = append(middlewares, RateLimit(cfg.RateLimit, cfg.Burst))
	}

	return Chain(h, middlewares...), nil
}
