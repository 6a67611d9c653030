package handlers

import (
	"net/http"

	"github.com/hhi-dashboard/api/internal/services"
)

// CommunicationHandler exposes manual email, SMS and WhatsApp messaging.
type CommunicationHandler struct {
	svc services.CommunicationService
}

func NewCommunicationHandler(svc services.CommunicationService) *CommunicationHandler {
	return &CommunicationHandler{svc: svc}
}

// ListTemplates godoc
// @Summary   List message templates
// @Tags      communication
// @Produce   json
// @Param     type  query  string  false  "email, sms or whatsapp"
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /communication [get]
func (h *CommunicationHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListTemplates(r.Context(), id.OrgID, r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

// Send godoc
// @Summary   Send a templated message to a customer
// @Tags      communication
// @Accept    json
// @Produce   json
// @Param     body  body  services.SendRequest  true  "Message"
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Failure   500  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /communication [post]
func (h *CommunicationHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req services.SendRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Send(r.Context(), id.OrgID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// UpdateTemplate godoc
// @Summary   Update an email template
// @Tags      communication
// @Accept    json
// @Produce   json
// @Param     body  body  services.UpdateTemplateRequest  true  "Template changes"
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /communication [put]
func (h *CommunicationHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req services.UpdateTemplateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateEmailTemplate(r.Context(), id.OrgID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}
