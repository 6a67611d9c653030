package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/services"
)

func TestStagesList(t *testing.T) {
	svc := new(mockStageService)
	h := NewStagesHandler(svc)
	svc.On("ListStages", mock.Anything).Return([]models.StageDefinition{{StageNumber: 1, Name: "Initial Contact"}}, nil).Once()

	rr := serve(t, http.MethodGet, "/api/stages", "/api/stages", "", h.List, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Initial Contact")
}

func TestStagesUpdate(t *testing.T) {
	svc := new(mockStageService)
	h := NewStagesHandler(svc)
	tid := uuid.New()
	svc.On("UpdateStage", mock.Anything, 4, mock.MatchedBy(func(in *services.UpdateStageInput) bool {
		return in.TemplateID != nil && *in.TemplateID == tid &&
			in.AutoAdvance != nil && !*in.AutoAdvance &&
			in.ReminderDays != nil && *in.ReminderDays == 5
	})).Return(&models.StageDefinition{StageNumber: 4}, nil).Once()

	body := `{"template_id":"` + tid.String() + `","auto_advance":false,"reminder_days":5}`
	rr := serve(t, http.MethodPut, "/api/stages/{stage}", "/api/stages/4", body, h.Update, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestStagesUpdateRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		path string
		body string
	}{
		"non numeric stage": {"/api/stages/four", `{}`},
		"bad template id":   {"/api/stages/4", `{"template_id":"nope"}`},
		"negative reminder": {"/api/stages/4", `{"reminder_days":-1}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := new(mockStageService)
			h := NewStagesHandler(svc)

			rr := serve(t, http.MethodPut, "/api/stages/{stage}", tc.path, tc.body, h.Update, true)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			svc.AssertNotCalled(t, "UpdateStage", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
