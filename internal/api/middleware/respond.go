package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hhi-dashboard/api/internal/api/types"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

func fail(w http.ResponseWriter, status int, code appErr.Code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.Fail(code, msg))
}
