package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ============================================================================
// Chain
// ============================================================================

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), tag("outer"), tag("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "inner"}
	if len(order) != len(want) {
		t.Fatalf("ran %d middlewares, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d = %q, want %q", i, order[i], want[i])
		}
	}
}

// ============================================================================
// RequestID
// ============================================================================

func TestRequestID_Generates(t *testing.T) {
	var seenByHandler string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenByHandler = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	RequestID()(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rec.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("no X-Request-ID on response")
	}
	if len(id) != 26 {
		t.Errorf("request ID length = %d, want 26 (ULID)", len(id))
	}
	if seenByHandler != id {
		t.Errorf("handler saw %q, response carries %q", seenByHandler, id)
	}
}

func TestRequestID_PreservesInbound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-chosen")

	rec := httptest.NewRecorder()
	RequestID()(okHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "caller-chosen" {
		t.Errorf("X-Request-ID = %q, want %q", got, "caller-chosen")
	}
}

// ============================================================================
// RequestLogger
// ============================================================================

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantMsg   string
		wantLevel string
	}{
		{name: "success logs info", status: http.StatusOK, wantMsg: "request completed", wantLevel: "INFO"},
		{name: "client error logs warn", status: http.StatusNotFound, wantMsg: "request rejected", wantLevel: "WARN"},
		{name: "server error logs error", status: http.StatusInternalServerError, wantMsg: "request failed", wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil)
			RequestLogger(logger)(inner).ServeHTTP(httptest.NewRecorder(), req)

			line := buf.String()
			for _, want := range []string{tt.wantMsg, tt.wantLevel, "method=GET", "path=/api/v1/slots"} {
				if !strings.Contains(line, want) {
					t.Errorf("log line missing %q: %s", want, line)
				}
			}
		})
	}
}

// ============================================================================
// Recover
// ============================================================================

func TestRecover(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	})

	rec := httptest.NewRecorder()
	Recover(discardLogger())(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if got := rec.Header().Get("X-Error-Code"); got != codePanic {
		t.Errorf("X-Error-Code = %q, want %q", got, codePanic)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != codePanic {
		t.Errorf("body code = %q, want %q", body["code"], codePanic)
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	Recover(discardLogger())(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// ============================================================================
// RateLimit
// ============================================================================

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	h := RateLimit(1, 2)(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:55000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send(); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("X-Error-Code"); got != codeTooManyRequests {
		t.Errorf("X-Error-Code = %q, want %q", got, codeTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("no Retry-After header on 429")
	}
}

func TestRateLimit_PerClientBuckets(t *testing.T) {
	h := RateLimit(1, 1)(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send("10.0.0.1:1000"); got != http.StatusOK {
		t.Fatalf("first client status = %d, want %d", got, http.StatusOK)
	}
	if got := send("10.0.0.1:1000"); got != http.StatusTooManyRequests {
		t.Fatalf("first client second request = %d, want %d", got, http.StatusTooManyRequests)
	}

	// A different address carries its own bucket.
	if got := send("10.0.0.2:1000"); got != http.StatusOK {
		t.Errorf("second client status = %d, want %d", got, http.StatusOK)
	}
}

// ============================================================================
// Client IP extraction
// ============================================================================

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr host port",
			remoteAddr: "192.0.2.7:4312",
			want:       "192.0.2.7",
		},
		{
			name:       "remote addr ipv6",
			remoteAddr: "[::1]:8080",
			want:       "::1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.7",
			want:       "192.0.2.7",
		},
		{
			name:       "forwarded for single",
			remoteAddr: "10.0.0.1:1000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded for chain uses first",
			remoteAddr: "10.0.0.1:1000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 198.51.100.2"},
			want:       "203.0.113.9",
		},
		{
			name:       "real ip",
			remoteAddr: "10.0.0.1:1000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.50"},
			want:       "203.0.113.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================================
// Response writer
// ============================================================================

func TestResponseWriter_Capture(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	w.WriteHeader(http.StatusTeapot)
	n, err := w.Write([]byte("short and stout"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if w.status != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.status, http.StatusTeapot)
	}
	if w.bytes != n {
		t.Errorf("bytes = %d, want %d", w.bytes, n)
	}
}
