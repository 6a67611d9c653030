package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/api/types"
	"github.com/hhi-dashboard/api/internal/onedrive"
	"github.com/hhi-dashboard/api/internal/services"
	"github.com/hhi-dashboard/api/pkg/logger"
)

// WebhookHandler receives OneDrive change notifications.
type WebhookHandler struct {
	stages services.StageService
	now    func() time.Time
}

func NewWebhookHandler(stages services.StageService) *WebhookHandler {
	return &WebhookHandler{stages: stages, now: time.Now}
}

func writeValidationToken(w http.ResponseWriter, token string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, token)
}

// Receive godoc
// @Summary      OneDrive change notification webhook
// @Description  Echoes subscription validation tokens; otherwise processes the notification batch.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        validationToken  query  string  false  "Subscription validation token"
// @Success      200  {object}  types.WebhookAck
// @Failure      400  {object}  types.APIResponse
// @Router       /webhooks/onedrive [post]
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if token := r.URL.Query().Get("validationToken"); token != "" {
		logger.With(r.Context()).Info("onedrive subscription validation")
		writeValidationToken(w, token)
		return
	}

	var batch onedrive.NotificationBatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&batch); err != nil {
		logger.With(r.Context()).Warn("malformed webhook payload", zap.Error(err))
		writeErrorStr(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if batch.ValidationToken != "" {
		writeValidationToken(w, batch.ValidationToken)
		return
	}

	processed := h.stages.ProcessBatch(r.Context(), batch.Value)
	writeJSON(w, http.StatusOK, types.WebhookAck{Success: true, Processed: processed})
}

// Status godoc
// @Summary  Webhook health check
// @Tags     webhooks
// @Produce  json
// @Success  200  {object}  types.WebhookStatus
// @Router   /webhooks/onedrive [get]
func (h *WebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.WebhookStatus{
		Status:    "active",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Webhook:   "onedrive-file-movement",
	})
}
