package shield

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/tablewatch/idgen"
)

// RequestIDHeader carries the request ID back to the client.
const RequestIDHeader = "X-Request-Id"

var newRequestID = idgen.Prefixed("req_", idgen.Default)

// RequestID tags each request with an ID, exposes it in the response
// headers and stores a logger carrying it under LoggerKey. Each request is
// logged at debug level once served.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = newRequestID()
			}
			w.Header().Set(RequestIDHeader, id)

			reqLog := logger.With("request_id", id)
			ctx := context.WithValue(r.Context(), LoggerKey, reqLog)

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			reqLog.Debug("shield: request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}
