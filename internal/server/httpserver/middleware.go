package httpserver

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/calderhale/keepsake-go/pkg/cmap"
)

// Wire codes for failures produced by middleware itself.
const (
	codeTooManyRequests = "KS-SRV-4290"
	codePanic           = "KS-SRV-5000"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first argument is outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID assigns a ULID to each request that arrives without an
// X-Request-ID header. The ID is set on the response and mirrored into
// the request header so downstream handlers can read it without a
// shared context key.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = ulid.Make().String()
				r.Header.Set("X-Request-ID", id)
			}
			w.Header().Set("X-Request-ID", id)

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per completed request. Server errors log
// at error level, client errors at warn, everything else at info.
func RequestLogger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"request_id", r.Header.Get("X-Request-ID"),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"bytes", wrapped.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", getClientIP(r),
			}

			switch {
			case wrapped.status >= 500:
				logger.Error("request failed", attrs...)
			case wrapped.status >= 400:
				logger.Warn("request rejected", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}
		})
	}
}

// Recover converts a handler panic into a 500 response and keeps the
// server alive.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"request_id", r.Header.Get("X-Request-ID"),
						"path", r.URL.Path,
						"error", err,
						"stack", string(debug.Stack()))
					writeMiddlewareError(w, http.StatusInternalServerError,
						codePanic, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// visitor pairs a client's limiter with its last-use time so idle
// entries can be evicted.
type visitor struct {
	limiter *rate.Limiter
	seen    atomic.Int64
}

// visitorIdleAfter is how long an address must stay silent before the
// janitor drops its limiter, resetting its burst allowance.
const visitorIdleAfter = 10 * time.Minute

// RateLimit enforces a per-client-IP request rate. Each address gets
// its own token bucket of rps tokens per second with the given burst.
// A janitor goroutine evicts idle buckets for the life of the process.
func RateLimit(rps float64, burst int) Middleware {
	if burst < 1 {
		burst = 1
	}
	visitors := cmap.New[string, *visitor]()

	go func() {
		ticker := time.NewTicker(visitorIdleAfter / 2)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-visitorIdleAfter).UnixNano()
			visitors.Range(func(ip string, v *visitor) bool {
				if v.seen.Load() < cutoff {
					visitors.Delete(ip)
				}
				return true
			})
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			v, ok := visitors.Get(ip)
			if !ok {
				v, _ = visitors.GetOrSet(ip, &visitor{
					limiter: rate.NewLimiter(rate.Limit(rps), burst),
				})
			}
			v.seen.Store(time.Now().UnixNano())

			if !v.limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeMiddlewareError(w, http.StatusTooManyRequests,
					codeTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
// and body size for logging.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// writeMiddlewareError writes an error body in the same shape the
// handler package uses, without importing it.
func writeMiddlewareError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}

// getClientIP extracts the client address from proxy headers, falling
// back to the connection's remote address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// SplitHostPort handles IPv6 addresses like [::1]:8080.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
