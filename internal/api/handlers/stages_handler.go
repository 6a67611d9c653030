package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hhi-dashboard/api/internal/api/types"
	"github.com/hhi-dashboard/api/internal/services"
)

type StagesHandler struct {
	svc services.StageService
}

func NewStagesHandler(svc services.StageService) *StagesHandler {
	return &StagesHandler{svc: svc}
}

// List godoc
// @Summary   List pipeline stage definitions
// @Tags      stages
// @Produce   json
// @Success   200  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /stages [get]
func (h *StagesHandler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.svc.ListStages(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, defs)
}

// Update godoc
// @Summary   Update a stage definition
// @Tags      stages
// @Accept    json
// @Produce   json
// @Param     stage  path  int                       true  "Stage number"
// @Param     body   body  types.StageUpdateRequest  true  "Changes"
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Failure   404  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /stages/{stage} [put]
func (h *StagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	stage, err := strconv.Atoi(chi.URLParam(r, "stage"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "stage must be a number")
		return
	}
	var req types.StageUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	in := &services.UpdateStageInput{
		ClearTemplate: req.ClearTemplate,
		AutoAdvance:   req.AutoAdvance,
		ReminderDays:  req.ReminderDays,
		Description:   req.Description,
	}
	if req.TemplateID != nil {
		tid := uuid.MustParse(*req.TemplateID)
		in.TemplateID = &tid
	}
	def, err := h.svc.UpdateStage(r.Context(), stage, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, def)
}
