package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/logger"
)

// Recovery logs panics and returns 500 with a generic message.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.With(r.Context()).Error("panic recovered", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
				fail(w, http.StatusInternalServerError, appErr.CodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
