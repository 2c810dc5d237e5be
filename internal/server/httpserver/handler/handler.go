package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/core/service"
	"github.com/calderhale/keepsake-go/internal/history"
	"github.com/calderhale/keepsake-go/internal/telemetry/metric"
)

// Wire codes for failures that originate in the HTTP layer rather than
// the engine.
const (
	codeBadRequest = "KS-SRV-4000"
	codeInternal   = "KS-SRV-5000"
)

// Config assembles a Handler.
type Config struct {
	// Engine serves slot summaries and backup inventories. Required.
	Engine *service.Engine

	// Journal serves the operation history. Nil removes the history
	// route; requests for it then fall through to the mux 404.
	Journal *history.Journal

	// Metrics is the registry exposed at /metrics. Defaults to the
	// process-wide registry.
	Metrics *metric.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler serves the read-only diagnostics API. Every route is a GET;
// nothing served here mutates a slot or exposes artifact contents.
type Handler struct {
	engine  *service.Engine
	journal *history.Journal
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New validates the configuration and registers the route table.
func New(cfg Config) (*Handler, error) {
	if cfg.Engine == nil {
		return nil, domain.ErrConfigInvalid.WithDetails("handler requires an engine")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := &Handler{
		engine:  cfg.Engine,
		journal: cfg.Journal,
		logger:  cfg.Logger,
		mux:     http.NewServeMux(),
	}

	metricsHandler := metric.Handler()
	if cfg.Metrics != nil {
		metricsHandler = cfg.Metrics.Handler()
	}

	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.Handle("GET /metrics", metricsHandler)
	h.mux.HandleFunc("GET /api/v1/slots", h.handleSlots)
	h.mux.HandleFunc("GET /api/v1/slots/{slot}", h.handleSlot)
	h.mux.HandleFunc("GET /api/v1/slots/{slot}/backups", h.handleSlotBackups)
	if h.journal != nil {
		h.mux.HandleFunc("GET /api/v1/history", h.handleHistory)
	}

	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// writeJSON writes v as the response body. The request ID header on
// the response is already set by middleware.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response encode failed",
			"path", r.URL.Path,
			"error", err)
	}
}

// writeError writes the error body and mirrors the code into the
// X-Error-Code header so clients can branch without parsing JSON.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorView{
		Code:      code,
		Message:   message,
		RequestID: requestID(r),
	}); err != nil {
		h.logger.Error("error encode failed",
			"path", r.URL.Path,
			"error", err)
	}
}

// serviceError converts an engine error into an HTTP response.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		h.writeError(w, r, statusForCode(code), code, err.Error())
		return
	}
	h.logger.Error("request failed",
		"path", r.URL.Path,
		"error", err)
	h.writeError(w, r, http.StatusInternalServerError, codeInternal, "internal server error")
}

// statusForCode maps a domain error code to an HTTP status. Codes end
// in a four-digit group whose first three digits name the status they
// correspond to: KS-SLOT-4040 is a 404, KS-SYS-5030 a 503.
func statusForCode(code string) int {
	tail := code[strings.LastIndex(code, "-")+1:]
	if len(tail) == 4 {
		if n, err := strconv.Atoi(tail[:3]); err == nil && n >= 400 && n < 600 {
			return n
		}
	}
	return http.StatusInternalServerError
}

// pathSlot parses the {slot} path segment. The error response is
// already written when ok is false.
func (h *Handler) pathSlot(w http.ResponseWriter, r *http.Request) (int, bool) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrInvalidSlot.Code, "slot must be an integer")
		return 0, false
	}
	return slot, true
}

// requestID returns the ID middleware assigned to this request.
func requestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}
