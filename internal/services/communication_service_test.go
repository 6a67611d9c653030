package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hhi-dashboard/api/internal/messaging"
	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/repository"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

type communicationFixture struct {
	projects      *mockProjectRepo
	templates     *mockTemplateRepo
	notifications *mockNotificationRepo
	email         *mockEmailSender
	text          *mockTextSender
	svc           CommunicationService
}

func newCommunicationFixture() *communicationFixture {
	f := &communicationFixture{
		projects:      &mockProjectRepo{},
		templates:     &mockTemplateRepo{},
		notifications: &mockNotificationRepo{},
		email:         &mockEmailSender{},
		text:          &mockTextSender{},
	}
	f.svc = NewCommunicationService(CommunicationServiceDeps{
		ProjectRepo:      f.projects,
		TemplateRepo:     f.templates,
		NotificationRepo: f.notifications,
		Email:            f.email,
		Text:             f.text,
		CompanyName:      "HHI",
	})
	return f
}

func TestListTemplates(t *testing.T) {
	t.Run("all channels", func(t *testing.T) {
		f := newCommunicationFixture()
		f.templates.On("ListEmail", mock.Anything, "org_1").Return([]models.EmailTemplate{{Name: "Welcome"}}, nil)
		f.templates.On("ListMessages", mock.Anything, "org_1", "sms").Return([]models.MessageTemplate{{Name: "Reminder"}}, nil)
		f.templates.On("ListMessages", mock.Anything, "org_1", "whatsapp").Return([]models.MessageTemplate{}, nil)

		list, err := f.svc.ListTemplates(context.Background(), "org_1", "")
		require.NoError(t, err)
		assert.Len(t, list.Email, 1)
		assert.Len(t, list.SMS, 1)
		assert.Empty(t, list.WhatsApp)
	})

	t.Run("single channel", func(t *testing.T) {
		f := newCommunicationFixture()
		f.templates.On("ListMessages", mock.Anything, "org_1", "sms").Return([]models.MessageTemplate{{Name: "Reminder"}}, nil)

		list, err := f.svc.ListTemplates(context.Background(), "org_1", "SMS")
		require.NoError(t, err)
		assert.Len(t, list.SMS, 1)
		assert.Nil(t, list.Email)
		f.templates.AssertNotCalled(t, "ListEmail", mock.Anything, mock.Anything)
	})

	t.Run("unknown channel", func(t *testing.T) {
		f := newCommunicationFixture()
		_, err := f.svc.ListTemplates(context.Background(), "org_1", "fax")
		require.Error(t, err)
		assert.Equal(t, "Invalid type. Must be email, sms, or whatsapp", appErr.MessageOf(err))
	})
}

func TestSendValidation(t *testing.T) {
	templateID := uuid.NewString()
	cases := []struct {
		name string
		req  SendRequest
		want string
	}{
		{"missing fields", SendRequest{Type: "email", TemplateID: templateID}, "Missing required fields"},
		{"bad type", SendRequest{Type: "fax", TemplateID: templateID, CustomerID: "c1", CustomerName: "Sarah"}, "Invalid type. Must be email, sms, or whatsapp"},
		{"email without address", SendRequest{Type: "email", TemplateID: templateID, CustomerID: "c1", CustomerName: "Sarah"}, "Missing required fields: email"},
		{"sms without phone", SendRequest{Type: "sms", TemplateID: templateID, CustomerID: "c1", CustomerName: "Sarah"}, "Missing required fields: phone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCommunicationFixture()
			req := tc.req
			_, err := f.svc.Send(context.Background(), "org_1", &req)
			require.Error(t, err)
			assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
			assert.Equal(t, tc.want, appErr.MessageOf(err))
			f.email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
			f.text.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSendEmailMergesProjectAndData(t *testing.T) {
	f := newCommunicationFixture()
	templateID := uuid.New()
	p := sampleProject()
	notificationID := uuid.New()
	f.projects.On("GetInOrg", mock.Anything, "org_1", p.ID).Return(&p, nil)
	f.templates.On("GetEmail", mock.Anything, "org_1", templateID).Return(&models.EmailTemplate{
		ID:      templateID,
		Subject: "{{firstName}}, your {{serviceType}} update",
		Body:    "Appointment on {{date}} from {{companyName}}",
	}, nil)
	f.notifications.On("Create", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Kind == models.NotificationKindManual && n.ProjectID != nil && *n.ProjectID == p.ID
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Notification).ID = notificationID
	}).Return(nil)
	f.email.On("SendEmail", mock.Anything, mock.MatchedBy(func(m messaging.EmailMessage) bool {
		return m.To == "sarah@example.com" &&
			m.Subject == "Sarah, your kitchen update" &&
			m.HTML == "Appointment on 2026-11-02 from HHI"
	})).Return("msg-9", nil)
	f.notifications.On("Transition", mock.Anything, notificationID, mock.MatchedBy(func(c repository.StatusChange) bool {
		return c.To == models.NotificationSent && c.ProviderMessageID == "msg-9"
	})).Return(nil)

	res, err := f.svc.Send(context.Background(), "org_1", &SendRequest{
		Type:         "email",
		TemplateID:   templateID.String(),
		CustomerID:   p.ID.String(),
		CustomerName: "Sarah Johnson",
		Email:        " sarah@example.com ",
		Data:         map[string]string{"date": "2026-11-02"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "msg-9", res.MessageID)
	f.email.AssertExpectations(t)
	f.notifications.AssertExpectations(t)
}

func TestSendWhatsAppForNonProjectCustomer(t *testing.T) {
	f := newCommunicationFixture()
	templateID := uuid.New()
	f.templates.On("GetMessage", mock.Anything, "org_1", templateID).Return(&models.MessageTemplate{
		ID:      templateID,
		Channel: "whatsapp",
		Body:    "Hi {{firstName}}, see you soon.",
	}, nil)
	f.notifications.On("Create", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.ProjectID == nil && n.Channel == "whatsapp"
	})).Return(nil)
	f.text.On("SendText", mock.Anything, messaging.ChannelWhatsApp, "+15551234567", "Hi Mike, see you soon.").Return("SM123", nil)
	f.notifications.On("Transition", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Send(context.Background(), "org_1", &SendRequest{
		Type:         "whatsapp",
		TemplateID:   templateID.String(),
		CustomerID:   "crm-42",
		CustomerName: "Mike Chen",
		Phone:        "+15551234567",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	f.projects.AssertNotCalled(t, "GetInOrg", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEmailEscapesValuesInBody(t *testing.T) {
	f := newCommunicationFixture()
	templateID := uuid.New()
	f.templates.On("GetEmail", mock.Anything, "org_1", templateID).Return(&models.EmailTemplate{
		ID:      templateID,
		Subject: "Note for {{firstName}}",
		Body:    "<p>{{note}}</p>",
	}, nil)
	f.notifications.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.email.On("SendEmail", mock.Anything, mock.MatchedBy(func(m messaging.EmailMessage) bool {
		return m.HTML == "<p>&lt;img src=x onerror=alert(1)&gt; &amp; more</p>" &&
			m.Subject == "Note for Mike" &&
			m.Tags["customer_id"] == "cust 42@x"
	})).Return("msg-1", nil)
	f.notifications.On("Transition", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Send(context.Background(), "org_1", &SendRequest{
		Type:         "email",
		TemplateID:   templateID.String(),
		CustomerID:   "cust 42@x",
		CustomerName: "Mike Chen",
		Email:        "mike@example.com",
		Data:         map[string]string{"note": "<img src=x onerror=alert(1)> & more"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	f.email.AssertExpectations(t)
}

func TestSendRejectsTemplateOfAnotherChannel(t *testing.T) {
	f := newCommunicationFixture()
	templateID := uuid.New()
	f.templates.On("GetMessage", mock.Anything, "org_1", templateID).Return(&models.MessageTemplate{ID: templateID, Channel: "whatsapp"}, nil)

	_, err := f.svc.Send(context.Background(), "org_1", &SendRequest{
		Type: "sms", TemplateID: templateID.String(), CustomerID: "c", CustomerName: "Mike", Phone: "+1555",
	})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	f.notifications.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendProviderFailureIsInternal(t *testing.T) {
	f := newCommunicationFixture()
	templateID := uuid.New()
	f.templates.On("GetMessage", mock.Anything, "org_1", templateID).Return(&models.MessageTemplate{ID: templateID, Channel: "sms", Body: "x"}, nil)
	f.notifications.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.text.On("SendText", mock.Anything, messaging.ChannelSMS, "+1555", "x").Return("", errors.New("invalid number"))
	f.notifications.On("Transition", mock.Anything, mock.Anything, mock.MatchedBy(func(c repository.StatusChange) bool {
		return c.To == models.NotificationFailed && c.ErrorMessage == "invalid number"
	})).Return(nil)

	_, err := f.svc.Send(context.Background(), "org_1", &SendRequest{
		Type: "sms", TemplateID: templateID.String(), CustomerID: "c", CustomerName: "Mike", Phone: "+1555",
	})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInternal))
	assert.Equal(t, "Failed to send sms: invalid number", appErr.MessageOf(err))
	f.notifications.AssertExpectations(t)
}

func TestUpdateEmailTemplate(t *testing.T) {
	t.Run("applies fields and recomputes variables", func(t *testing.T) {
		f := newCommunicationFixture()
		id := uuid.New()
		f.templates.On("GetEmail", mock.Anything, "org_1", id).Return(&models.EmailTemplate{
			ID: id, Name: "Quote", Subject: "Quote", Body: "old", IsActive: true,
		}, nil)
		f.templates.On("UpdateEmail", mock.Anything, mock.AnythingOfType("*models.EmailTemplate")).Return(nil)

		got, err := f.svc.UpdateEmailTemplate(context.Background(), "org_1", &UpdateTemplateRequest{
			Type:      "email",
			ID:        id.String(),
			Body:      lo.ToPtr("Hi {{firstName}}, quote {{projectValue}} for {{firstName}}"),
			StageID:   lo.ToPtr(4),
			IsDefault: lo.ToPtr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, "Quote", got.Name)
		assert.Equal(t, 4, *got.StageID)
		assert.True(t, got.IsDefault)
		var vars []string
		require.NoError(t, json.Unmarshal(got.Variables, &vars))
		assert.ElementsMatch(t, []string{"firstName", "projectValue"}, vars)
	})

	t.Run("text channels are read only", func(t *testing.T) {
		f := newCommunicationFixture()
		_, err := f.svc.UpdateEmailTemplate(context.Background(), "org_1", &UpdateTemplateRequest{Type: "sms", ID: uuid.NewString()})
		assert.Equal(t, "Updating sms templates is not supported", appErr.MessageOf(err))
	})

	t.Run("empty body", func(t *testing.T) {
		f := newCommunicationFixture()
		id := uuid.New()
		f.templates.On("GetEmail", mock.Anything, "org_1", id).Return(&models.EmailTemplate{ID: id, Subject: "s", Body: "b"}, nil)

		_, err := f.svc.UpdateEmailTemplate(context.Background(), "org_1", &UpdateTemplateRequest{Type: "email", ID: id.String(), Body: lo.ToPtr("  ")})
		assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
		f.templates.AssertNotCalled(t, "UpdateEmail", mock.Anything, mock.Anything)
	})
}
