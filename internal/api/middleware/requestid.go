package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hhi-dashboard/api/pkg/logger"
)

// RequestID ensures each request has an ID in context and response headers.
// The id is attached to every log line written through logger.With.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// GetRequestID returns the request id from context.
func GetRequestID(ctx context.Context) string {
	return logger.RequestID(ctx)
}
