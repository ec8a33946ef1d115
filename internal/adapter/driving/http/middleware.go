package httphandler

import (
	"log/slog"
	"net/http"
	"time"
)

// GitHub delivery headers copied onto request log lines.
const (
	headerDelivery = "X-GitHub-Delivery"
	headerEvent    = "X-GitHub-Event"
)

// statusWriter records the status code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// requestAttrs describes r for logging. Webhook deliveries also carry their
// delivery id and event name so a reconcile job can be traced back to the
// request that started it.
func requestAttrs(r *http.Request) []any {
	attrs := []any{"method", r.Method, "path", r.URL.Path}
	if id := r.Header.Get(headerDelivery); id != "" {
		attrs = append(attrs, "delivery", id)
	}
	if event := r.Header.Get(headerEvent); event != "" {
		attrs = append(attrs, "event", event)
	}
	return attrs
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		attrs := append(requestAttrs(r),
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
		level := slog.LevelInfo
		if sw.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "http request", attrs...)
	})
}

// recoveryMiddleware turns a handler panic into a 500 JSON error.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered", append(requestAttrs(r), "panic", v)...)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
