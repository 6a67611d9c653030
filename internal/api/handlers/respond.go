package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/api/middleware"
	"github.com/hhi-dashboard/api/internal/api/types"
	"github.com/hhi-dashboard/api/internal/api/validators"
	"github.com/hhi-dashboard/api/internal/services"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := types.FromAppError(err)
	if status >= http.StatusInternalServerError {
		logger.With(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.Fail(appErr.CodeInvalid, msg))
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeErrorStr(w, http.StatusBadRequest, "request body is required")
			return false
		}
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := validators.New().Struct(dst); err != nil {
		writeErrorStr(w, http.StatusBadRequest, validators.Message(err))
		return false
	}
	return true
}

func identity(w http.ResponseWriter, r *http.Request) (services.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, types.Fail(appErr.CodeUnauthorized, "Unauthorized"))
	}
	return id, ok
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
