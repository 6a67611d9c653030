package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/hhi-dashboard/api/internal/api/types"
	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/services"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

type ProjectsHandler struct {
	projects      services.ProjectService
	notifications services.NotificationService
	onedrive      services.OneDriveService
}

func NewProjectsHandler(projects services.ProjectService, notifications services.NotificationService, onedrive services.OneDriveService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, notifications: notifications, onedrive: onedrive}
}

// List godoc
// @Summary   List projects
// @Tags      projects
// @Produce   json
// @Param     page              query  int     false  "Page (1-based)"
// @Param     page_size         query  int     false  "Page size"
// @Param     stage             query  int     false  "Current stage"
// @Param     service_type      query  string  false  "Service type"
// @Param     q                 query  string  false  "Search client name or email"
// @Param     include_inactive  query  bool    false  "Include deactivated projects"
// @Success   200  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects [get]
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page := intQuery(r, "page", 1)
	if page <= 0 {
		page = 1
	}
	size := intQuery(r, "page_size", 50)
	if size <= 0 || size > 200 {
		size = 50
	}
	items, total, err := h.projects.ListProjects(r.Context(), id.OrgID, &services.ProjectFilters{
		IncludeInactive: q.Get("include_inactive") == "true",
		Stage:           intQuery(r, "stage", 0),
		ServiceType:     strings.TrimSpace(q.Get("service_type")),
		Search:          strings.TrimSpace(q.Get("q")),
		Page:            page,
		PageSize:        size,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    items,
		Meta:    &types.Meta{Page: page, PageSize: size, Total: total},
	})
}

// Create godoc
// @Summary   Create a project
// @Tags      projects
// @Accept    json
// @Produce   json
// @Param     body  body  types.ProjectCreateRequest  true  "Project"
// @Success   201  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects [post]
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req types.ProjectCreateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.CreateProject(r.Context(), id.OrgID, id.Subject, &services.CreateProjectInput{
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientPhone:   req.ClientPhone,
		ClientAddress: req.ClientAddress,
		ServiceType:   req.ServiceType,
		ProjectValue:  req.ProjectValue,
		Stage:         req.Stage,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

// project resolves the caller's org and the {id} path parameter.
func (h *ProjectsHandler) project(w http.ResponseWriter, r *http.Request) (services.Identity, uuid.UUID, bool) {
	id, ok := identity(w, r)
	if !ok {
		return id, uuid.Nil, false
	}
	projectID, ok := uuidParam(w, r, "id")
	return id, projectID, ok
}

// Get godoc
// @Summary   Get a project
// @Tags      projects
// @Produce   json
// @Param     id  path  string  true  "Project ID"
// @Success   200  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id} [get]
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	p, err := h.projects.GetProject(r.Context(), id.OrgID, projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Update godoc
// @Summary   Update project fields
// @Tags      projects
// @Accept    json
// @Produce   json
// @Param     id    path  string                      true  "Project ID"
// @Param     body  body  types.ProjectUpdateRequest  true  "Changes"
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id} [put]
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	var req types.ProjectUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.UpdateProject(r.Context(), id.OrgID, projectID, &services.UpdateProjectInput{
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientPhone:   req.ClientPhone,
		ClientAddress: req.ClientAddress,
		ServiceType:   req.ServiceType,
		ProjectValue:  req.ProjectValue,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Delete godoc
// @Summary   Deactivate a project
// @Tags      projects
// @Param     id  path  string  true  "Project ID"
// @Success   204
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id} [delete]
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	if err := h.projects.DeactivateProject(r.Context(), id.OrgID, projectID, id.Subject); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OverrideStage godoc
// @Summary   Move a project to a stage manually
// @Tags      projects
// @Accept    json
// @Produce   json
// @Param     id    path  string                      true  "Project ID"
// @Param     body  body  types.StageOverrideRequest  true  "Target stage"
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id}/stage [put]
func (h *ProjectsHandler) OverrideStage(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	var req types.StageOverrideRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.OverrideStage(r.Context(), id.OrgID, projectID, req.Stage, id.Subject, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Notifications godoc
// @Summary   Notification history of a project
// @Tags      projects
// @Produce   json
// @Param     id  path  string  true  "Project ID"
// @Success   200  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id}/notifications [get]
func (h *ProjectsHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	if _, err := h.projects.GetProject(r.Context(), id.OrgID, projectID); err != nil {
		writeError(w, r, err)
		return
	}
	history, err := h.notifications.GetNotificationHistory(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, history)
}

// SendNotification godoc
// @Summary   Send the stage notification for a project now
// @Tags      projects
// @Accept    json
// @Produce   json
// @Param     id    path  string                              true  "Project ID"
// @Param     body  body  types.SendStageNotificationRequest  false "Stage, defaults to the current stage"
// @Success   200  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id}/notifications [post]
func (h *ProjectsHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	var req types.SendStageNotificationRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	p, err := h.projects.GetProject(r.Context(), id.OrgID, projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stage := req.Stage
	if stage == 0 {
		stage = p.CurrentStage
	}
	res, err := h.notifications.SendProjectNotification(r.Context(), projectID, stage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// UpdateNotificationStatus godoc
// @Summary   Record a delivery status for a notification
// @Tags      projects
// @Accept    json
// @Produce   json
// @Param     id              path  string                           true  "Project ID"
// @Param     notificationId  path  string                           true  "Notification ID"
// @Param     body            body  types.NotificationStatusRequest  true  "Status"
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id}/notifications/{notificationId}/status [patch]
func (h *ProjectsHandler) UpdateNotificationStatus(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	notificationID, ok := uuidParam(w, r, "notificationId")
	if !ok {
		return
	}
	var req types.NotificationStatusRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.projects.GetProject(r.Context(), id.OrgID, projectID); err != nil {
		writeError(w, r, err)
		return
	}
	history, err := h.notifications.GetNotificationHistory(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !lo.ContainsBy(history, func(n models.Notification) bool { return n.ID == notificationID }) {
		writeError(w, r, appErr.New(appErr.CodeNotFound, "Notification not found"))
		return
	}
	n, err := h.notifications.UpdateDeliveryStatus(r.Context(), notificationID, models.NotificationStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, n)
}

// Activities godoc
// @Summary   Activity feed of a project
// @Tags      projects
// @Produce   json
// @Param     id     path   string  true   "Project ID"
// @Param     limit  query  int     false  "Max entries"
// @Success   200  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id}/activities [get]
func (h *ProjectsHandler) Activities(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	items, err := h.projects.ListActivities(r.Context(), id.OrgID, projectID, intQuery(r, "limit", 50))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

// ProvisionOneDrive godoc
// @Summary   Create the project's OneDrive folders and subscribe to changes
// @Tags      projects
// @Accept    json
// @Produce   json
// @Param     id    path  string                          true  "Project ID"
// @Param     body  body  types.ProvisionOneDriveRequest  true  "Drive location"
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Failure   503  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id}/onedrive [post]
func (h *ProjectsHandler) ProvisionOneDrive(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	var req types.ProvisionOneDriveRequest
	if !decode(w, r, &req) {
		return
	}
	integ, err := h.onedrive.ProvisionProject(r.Context(), id.OrgID, projectID, &services.ProvisionInput{
		DriveID:      req.DriveID,
		RootFolderID: req.RootFolderID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, integ)
}

// OneDrive godoc
// @Summary   OneDrive integration of a project
// @Tags      projects
// @Produce   json
// @Param     id  path  string  true  "Project ID"
// @Success   200  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id}/onedrive [get]
func (h *ProjectsHandler) OneDrive(w http.ResponseWriter, r *http.Request) {
	id, projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	integ, err := h.onedrive.GetIntegration(r.Context(), id.OrgID, projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, integ)
}
