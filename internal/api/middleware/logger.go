package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// StructuredLogger emits one slog record per served request. The deferred
// write also covers requests that panic under an inner Recoverer.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("Served request", requestAttrs(r, ww, start)...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func requestAttrs(r *http.Request, ww middleware.WrapResponseWriter, start time.Time) []any {
	return []any{
		"proto", r.Proto,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"status", ww.Status(),
		"latency_ms", float64(time.Since(start).Nanoseconds()) / 1e6,
		"bytes_written", ww.BytesWritten(),
		"request_id", middleware.GetReqID(r.Context()),
	}
}
