package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/services"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

func TestCommunicationListTemplates(t *testing.T) {
	svc := new(mockCommunicationService)
	h := NewCommunicationHandler(svc)
	svc.On("ListTemplates", mock.Anything, "org_1", "sms").
		Return(&services.TemplateList{SMS: []models.MessageTemplate{{Name: "Reminder"}}}, nil).Once()

	rr := serve(t, http.MethodGet, "/api/communication", "/api/communication?type=sms", "", h.ListTemplates, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeResponse(t, rr).Success)
	svc.AssertExpectations(t)
}

func TestCommunicationListTemplatesInvalidType(t *testing.T) {
	svc := new(mockCommunicationService)
	h := NewCommunicationHandler(svc)
	svc.On("ListTemplates", mock.Anything, "org_1", "fax").
		Return(nil, appErr.New(appErr.CodeInvalid, "Invalid type. Must be email, sms, or whatsapp")).Once()

	rr := serve(t, http.MethodGet, "/api/communication", "/api/communication?type=fax", "", h.ListTemplates, true)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeResponse(t, rr)
	assert.Equal(t, "invalid", resp.Code)
	assert.Equal(t, "Invalid type. Must be email, sms, or whatsapp", resp.Error)
}

func TestCommunicationRequiresIdentity(t *testing.T) {
	h := NewCommunicationHandler(new(mockCommunicationService))

	rr := serve(t, http.MethodGet, "/api/communication", "/api/communication", "", h.ListTemplates, false)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCommunicationSend(t *testing.T) {
	svc := new(mockCommunicationService)
	h := NewCommunicationHandler(svc)
	tid := uuid.New()
	body := `{"type":"email","templateId":"` + tid.String() + `","customerId":"c-1","email":"sarah@example.com","data":{"appointmentDate":"May 2"}}`
	svc.On("Send", mock.Anything, "org_1", mock.MatchedBy(func(r *services.SendRequest) bool {
		return r.Type == "email" && r.TemplateID == tid.String() && r.Data["appointmentDate"] == "May 2"
	})).Return(&services.SendResult{Success: true, MessageID: "re_1"}, nil).Once()

	rr := serve(t, http.MethodPost, "/api/communication", "/api/communication", body, h.Send, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"message_id":"re_1"`)
	svc.AssertExpectations(t)
}

func TestCommunicationSendErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing fields", appErr.New(appErr.CodeInvalid, "Missing required fields: type, templateId, customerId"), http.StatusBadRequest},
		{"dispatch failure", appErr.New(appErr.CodeInternal, "Failed to send sms: invalid number"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockCommunicationService)
			h := NewCommunicationHandler(svc)
			svc.On("Send", mock.Anything, "org_1", mock.Anything).Return(nil, tc.err).Once()

			rr := serve(t, http.MethodPost, "/api/communication", "/api/communication", `{"type":"sms"}`, h.Send, true)

			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, appErr.MessageOf(tc.err), decodeResponse(t, rr).Error)
		})
	}
}

func TestCommunicationSendRejectsBadJSON(t *testing.T) {
	svc := new(mockCommunicationService)
	h := NewCommunicationHandler(svc)

	rr := serve(t, http.MethodPost, "/api/communication", "/api/communication", `{"type":`, h.Send, true)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestCommunicationUpdateTemplate(t *testing.T) {
	svc := new(mockCommunicationService)
	h := NewCommunicationHandler(svc)
	id := uuid.New()
	svc.On("UpdateEmailTemplate", mock.Anything, "org_1", mock.MatchedBy(func(r *services.UpdateTemplateRequest) bool {
		return r.ID == id.String() && r.Subject != nil && *r.Subject == "New subject"
	})).Return(&models.EmailTemplate{ID: id, Subject: "New subject"}, nil).Once()

	body := `{"type":"email","id":"` + id.String() + `","subject":"New subject"}`
	rr := serve(t, http.MethodPut, "/api/communication", "/api/communication", body, h.UpdateTemplate, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "New subject")
	svc.AssertExpectations(t)
}
