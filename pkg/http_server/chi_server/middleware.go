package chiserver

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/irislabs/iris-serving/pkg/logging"

	"github.com/google/uuid"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const requestIDKey contextKey = "requestID"

// RequestID retrieves the request ID from the context, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// recoverMiddleware recovers from panics, logs them, and answers 500 if no
// headers were sent yet.
func recoverMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}

				logger.Error(r.Context(), "panic recovered",
					logging.String("path", r.URL.Path),
					logging.String("method", r.Method),
					logging.String("request_id", RequestID(r.Context())),
					logging.Any("panic", recovered),
					logging.String("stack", string(debug.Stack())),
				)

				// Only write an error if headers were not sent yet.
				if !rw.headerWritten() {
					writeErrorResponse(rw, r, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// requestIDMiddleware generates or propagates a request ID.
func requestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")

			if strings.TrimSpace(requestID) == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loggingMiddleware logs one line per completed request.
func loggingMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			fields := []logging.Field{
				logging.String("request_id", RequestID(r.Context())),
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", rw.status()),
				logging.Int64("duration_ms", time.Since(start).Milliseconds()),
			}

			switch {
			case rw.status() >= http.StatusInternalServerError:
				logger.Error(r.Context(), "request completed with error", fields...)
			case rw.status() >= http.StatusBadRequest:
				logger.Warn(r.Context(), "request completed with client error", fields...)
			default:
				logger.Info(r.Context(), "request completed", fields...)
			}
		})
	}
}

// bodyLimitMiddleware enforces a maximum request body size. MaxBytesReader is
// applied unconditionally so chunked requests without Content-Length are
// limited as well.
func bodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			if r.ContentLength > maxBytes {
				writeErrorResponse(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// securityHeadersMiddleware adds a baseline set of security headers.
func securityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to track the status code and
// whether headers were written. It is safe for concurrent use, which matters
// in panic recovery.
type responseWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	code    int
	written bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, code: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if !rw.written {
		rw.written = true
		rw.code = code
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.written = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) headerWritten() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.written
}

func (rw *responseWriter) status() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.code
}
