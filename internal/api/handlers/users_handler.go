package handlers

import (
	"net/http"

	"github.com/hhi-dashboard/api/internal/api/types"
	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/services"
)

type UsersHandler struct {
	svc services.UserService
}

func NewUsersHandler(svc services.UserService) *UsersHandler {
	return &UsersHandler{svc: svc}
}

func (h *UsersHandler) current(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, ok := identity(w, r)
	if !ok {
		return nil, false
	}
	u, err := h.svc.CurrentUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return u, true
}

// Me godoc
// @Summary   Current user
// @Tags      users
// @Produce   json
// @Success   200  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /users/me [get]
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.current(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, u)
}

// List godoc
// @Summary   List organization users
// @Tags      users
// @Produce   json
// @Success   200  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /users [get]
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	users, err := h.svc.ListUsers(r.Context(), id.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, users)
}

// UpdateRole godoc
// @Summary   Change a user's role
// @Tags      users
// @Accept    json
// @Produce   json
// @Param     id    path  string                  true  "User ID"
// @Param     body  body  types.RoleUpdateRequest  true  "Role"
// @Success   204
// @Failure   400  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /users/{id}/role [put]
func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req types.RoleUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.UpdateRole(r.Context(), id.OrgID, userID, models.Role(req.Role)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPreferences godoc
// @Summary   Notification preferences of the current user
// @Tags      users
// @Produce   json
// @Success   200  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /users/me/preferences [get]
func (h *UsersHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	u, ok := h.current(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetPreferences(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// UpdatePreferences godoc
// @Summary   Update notification preferences of the current user
// @Tags      users
// @Accept    json
// @Produce   json
// @Param     body  body  types.PreferencesRequest  true  "Preferences"
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /users/me/preferences [put]
func (h *UsersHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req types.PreferencesRequest
	if !decode(w, r, &req) {
		return
	}
	u, ok := h.current(w, r)
	if !ok {
		return
	}
	p, err := h.svc.UpdatePreferences(r.Context(), u, &services.PreferencesInput{
		EmailNotifications:    req.EmailNotifications,
		SMSNotifications:      req.SMSNotifications,
		WhatsAppNotifications: req.WhatsAppNotifications,
		Timezone:              req.Timezone,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}
