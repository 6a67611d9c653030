package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/hhi-dashboard/api/internal/messaging"
	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/repository"
	"github.com/hhi-dashboard/api/internal/templates"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/logger"
	"github.com/hhi-dashboard/api/pkg/metrics"
)

// TemplateList groups templates by channel.
type TemplateList struct {
	Email    []models.EmailTemplate   `json:"email,omitempty"`
	SMS      []models.MessageTemplate `json:"sms,omitempty"`
	WhatsApp []models.MessageTemplate `json:"whatsapp,omitempty"`
}

type SendRequest struct {
	Type         string            `json:"type"`
	TemplateID   string            `json:"templateId"`
	CustomerID   string            `json:"customerId"`
	CustomerName string            `json:"customerName"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Data         map[string]string `json:"data"`
}

type UpdateTemplateRequest struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Subject   *string `json:"subject"`
	Body      *string `json:"body"`
	StageID   *int    `json:"stageId"`
	IsDefault *bool   `json:"isDefault"`
	IsActive  *bool   `json:"isActive"`
}

// CommunicationService backs the manual messaging API.
type CommunicationService interface {
	ListTemplates(ctx context.Context, orgID, channel string) (*TemplateList, error)
	Send(ctx context.Context, orgID string, req *SendRequest) (*SendResult, error)
	UpdateEmailTemplate(ctx context.Context, orgID string, req *UpdateTemplateRequest) (*models.EmailTemplate, error)
}

type CommunicationServiceDeps struct {
	ProjectRepo      repository.ProjectRepository
	TemplateRepo     repository.TemplateRepository
	NotificationRepo repository.NotificationRepository
	Email            messaging.EmailSender
	Text             messaging.TextSender
	CompanyName      string
}

type communicationService struct {
	projectRepo      repository.ProjectRepository
	templateRepo     repository.TemplateRepository
	notificationRepo repository.NotificationRepository
	email            messaging.EmailSender
	text             messaging.TextSender
	companyName      string
	now              func() time.Time
}

func NewCommunicationService(d CommunicationServiceDeps) CommunicationService {
	return &communicationService{
		projectRepo:      d.ProjectRepo,
		templateRepo:     d.TemplateRepo,
		notificationRepo: d.NotificationRepo,
		email:            d.Email,
		text:             d.Text,
		companyName:      d.CompanyName,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

var _ CommunicationService = (*communicationService)(nil)

func invalidType() error {
	return appErr.New(appErr.CodeInvalid, "Invalid type. Must be email, sms, or whatsapp")
}

func (s *communicationService) ListTemplates(ctx context.Context, orgID, channel string) (*TemplateList, error) {
	var want []messaging.Channel
	if channel == "" {
		want = messaging.Channels
	} else {
		c, ok := messaging.ParseChannel(channel)
		if !ok {
			return nil, invalidType()
		}
		want = []messaging.Channel{c}
	}

	out := &TemplateList{}
	for _, c := range want {
		switch c {
		case messaging.ChannelEmail:
			list, err := s.templateRepo.ListEmail(ctx, orgID)
			if err != nil {
				return nil, err
			}
			out.Email = list
		case messaging.ChannelSMS:
			list, err := s.templateRepo.ListMessages(ctx, orgID, string(c))
			if err != nil {
				return nil, err
			}
			out.SMS = list
		case messaging.ChannelWhatsApp:
			list, err := s.templateRepo.ListMessages(ctx, orgID, string(c))
			if err != nil {
				return nil, err
			}
			out.WhatsApp = list
		}
	}
	return out, nil
}

func validateSend(req *SendRequest) (messaging.Channel, uuid.UUID, error) {
	if req.Type == "" || req.TemplateID == "" || req.CustomerID == "" || req.CustomerName == "" {
		return "", uuid.Nil, appErr.New(appErr.CodeInvalid, "Missing required fields")
	}
	channel, ok := messaging.ParseChannel(req.Type)
	if !ok {
		return "", uuid.Nil, invalidType()
	}
	if channel == messaging.ChannelEmail && strings.TrimSpace(req.Email) == "" {
		return "", uuid.Nil, appErr.New(appErr.CodeInvalid, "Missing required fields: email")
	}
	if channel != messaging.ChannelEmail && strings.TrimSpace(req.Phone) == "" {
		return "", uuid.Nil, appErr.New(appErr.CodeInvalid, "Missing required fields: phone")
	}
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		return "", uuid.Nil, appErr.New(appErr.CodeInvalid, "templateId must be a UUID")
	}
	return channel, templateID, nil
}

// variables layers the customer fields, the project they belong to (when
// customerId names a project in the organization) and the caller's data.
func (s *communicationService) variables(ctx context.Context, orgID string, req *SendRequest) (templates.Variables, *models.Project) {
	vars := templates.Variables{
		"customerName": req.CustomerName,
		"clientName":   req.CustomerName,
		"customerId":   req.CustomerID,
		"companyName":  s.companyName,
	}
	if fields := strings.Fields(req.CustomerName); len(fields) > 0 {
		vars["firstName"] = fields[0]
	}
	var project *models.Project
	if id, err := uuid.Parse(req.CustomerID); err == nil {
		if p, err := s.projectRepo.GetInOrg(ctx, orgID, id); err == nil {
			project = p
			vars = vars.Merge(ProjectVariables(p, p.CurrentStage, s.companyName))
		}
	}
	return vars.Merge(req.Data), project
}

func (s *communicationService) Send(ctx context.Context, orgID string, req *SendRequest) (*SendResult, error) {
	channel, templateID, err := validateSend(req)
	if err != nil {
		return nil, err
	}
	log := logger.With(ctx).With(zap.String("channel", string(channel)), zap.String("template_id", templateID.String()), zap.String("customer_id", req.CustomerID))
	log.Info("send communication")

	vars, project := s.variables(ctx, orgID, req)
	n := &models.Notification{
		OrganizationID: orgID,
		TemplateID:     lo.ToPtr(templateID),
		Channel:        string(channel),
		Kind:           models.NotificationKindManual,
		Status:         models.NotificationPending,
	}
	if project != nil {
		n.ProjectID = lo.ToPtr(project.ID)
		n.Stage = intPtr(project.CurrentStage)
	}

	var send func() (string, error)
	if channel == messaging.ChannelEmail {
		t, err := s.templateRepo.GetEmail(ctx, orgID, templateID)
		if err != nil {
			return nil, err
		}
		n.Recipient = strings.TrimSpace(req.Email)
		n.Subject = templates.Render(t.Subject, vars)
		n.Body = templates.RenderHTML(t.Body, vars)
		send = func() (string, error) {
			return s.email.SendEmail(ctx, messaging.EmailMessage{
				To:      n.Recipient,
				Subject: n.Subject,
				HTML:    n.Body,
				Tags:    map[string]string{"customer_id": req.CustomerID, "kind": string(n.Kind)},
			})
		}
	} else {
		t, err := s.templateRepo.GetMessage(ctx, orgID, templateID)
		if err != nil {
			return nil, err
		}
		if t.Channel != string(channel) {
			return nil, appErr.Newf(appErr.CodeInvalid, "template is a %s template", t.Channel)
		}
		n.Recipient = strings.TrimSpace(req.Phone)
		n.Body = templates.Render(t.Body, vars)
		send = func() (string, error) {
			return s.text.SendText(ctx, channel, n.Recipient, n.Body)
		}
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, err
	}
	messageID, sendErr := send()
	now := s.now()
	change := repository.StatusChange{From: models.NotificationPending, To: models.NotificationSent, At: now, ProviderMessageID: messageID}
	if sendErr != nil {
		change = repository.StatusChange{From: models.NotificationPending, To: models.NotificationFailed, At: now, ErrorMessage: sendErr.Error()}
	}
	if err := s.notificationRepo.Transition(ctx, n.ID, change); err != nil {
		log.Error("record notification outcome failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
	}
	metrics.NotificationsSent.WithLabelValues(n.Channel, string(change.To)).Inc()

	if sendErr != nil {
		log.Error("communication delivery failed", zap.String("notification_id", n.ID.String()), zap.Error(sendErr))
		return nil, appErr.Wrap(sendErr, appErr.CodeInternal, fmt.Sprintf("Failed to send %s: %s", channel, appErr.MessageOf(sendErr)))
	}
	log.Info("communication sent", zap.String("notification_id", n.ID.String()), zap.String("message_id", messageID))
	return &SendResult{Success: true, NotificationID: lo.ToPtr(n.ID), MessageID: messageID}, nil
}

func (s *communicationService) UpdateEmailTemplate(ctx context.Context, orgID string, req *UpdateTemplateRequest) (*models.EmailTemplate, error) {
	channel, ok := messaging.ParseChannel(req.Type)
	if !ok {
		return nil, invalidType()
	}
	if channel != messaging.ChannelEmail {
		return nil, appErr.Newf(appErr.CodeInvalid, "Updating %s templates is not supported", channel)
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, appErr.New(appErr.CodeInvalid, "id must be a UUID")
	}
	t, err := s.templateRepo.GetEmail(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Subject != nil {
		t.Subject = *req.Subject
	}
	if req.Body != nil {
		t.Body = *req.Body
	}
	if req.StageID != nil {
		t.StageID = req.StageID
	}
	if req.IsDefault != nil {
		t.IsDefault = *req.IsDefault
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if strings.TrimSpace(t.Subject) == "" || strings.TrimSpace(t.Body) == "" {
		return nil, appErr.New(appErr.CodeInvalid, "subject and body must not be empty")
	}
	vars, err := json.Marshal(templates.Placeholders(t.Subject + "\n" + t.Body))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode template variables failed")
	}
	t.Variables = datatypes.JSON(vars)
	t.UpdatedAt = s.now()

	if err := s.templateRepo.UpdateEmail(ctx, t); err != nil {
		return nil, err
	}
	logger.With(ctx).Info("email template updated", zap.String("template_id", t.ID.String()))
	return t, nil
}
