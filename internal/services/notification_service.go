package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/messaging"
	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/repository"
	"github.com/hhi-dashboard/api/internal/stages"
	"github.com/hhi-dashboard/api/internal/templates"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/events"
	"github.com/hhi-dashboard/api/pkg/logger"
	"github.com/hhi-dashboard/api/pkg/metrics"
)

const (
	fallbackSubject = "{{companyName}}: update on your {{serviceType}} project"
	fallbackBody    = "<p>Hi {{firstName}},</p>" +
		"<p>Your {{serviceType}} project has moved to stage {{stageId}}: <strong>{{stageName}}</strong>.</p>" +
		"<p>We will be in touch about the next steps.</p>" +
		"<p>{{companyName}}</p>"
)

// SendResult reports the outcome of one delivery attempt. Provider failures
// are reported here rather than as errors.
type SendResult struct {
	Success        bool       `json:"success"`
	Skipped        bool       `json:"skipped,omitempty"`
	NotificationID *uuid.UUID `json:"notification_id,omitempty"`
	MessageID      string     `json:"message_id,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// NotificationService renders stage templates, delivers them to the client
// and keeps the notification log.
type NotificationService interface {
	SendProjectNotification(ctx context.Context, projectID uuid.UUID, stage int) (*SendResult, error)
	SendStageReminder(ctx context.Context, projectID uuid.UUID, stage int) (*SendResult, error)
	GetNotificationHistory(ctx context.Context, projectID uuid.UUID) ([]models.Notification, error)
	UpdateDeliveryStatus(ctx context.Context, notificationID uuid.UUID, status models.NotificationStatus) (*models.Notification, error)
	// EnqueueDueReminders queues reminders for projects that have sat in a
	// stage longer than its reminder_days. It returns the number queued.
	EnqueueDueReminders(ctx context.Context) (int, error)
}

type NotificationServiceDeps struct {
	ProjectRepo      repository.ProjectRepository
	StageRepo        repository.StageRepository
	TemplateRepo     repository.TemplateRepository
	NotificationRepo repository.NotificationRepository
	ActivityRepo     repository.ActivityRepository
	Email            messaging.EmailSender
	Enqueuer         NotificationEnqueuer
	Publisher        events.Publisher
	CompanyName      string
}

type notificationService struct {
	projectRepo      repository.ProjectRepository
	stageRepo        repository.StageRepository
	templateRepo     repository.TemplateRepository
	notificationRepo repository.NotificationRepository
	activityRepo     repository.ActivityRepository
	email            messaging.EmailSender
	enqueuer         NotificationEnqueuer
	publisher        events.Publisher
	companyName      string
	now              func() time.Time
}

func NewNotificationService(d NotificationServiceDeps) NotificationService {
	s := &notificationService{
		projectRepo:      d.ProjectRepo,
		stageRepo:        d.StageRepo,
		templateRepo:     d.TemplateRepo,
		notificationRepo: d.NotificationRepo,
		activityRepo:     d.ActivityRepo,
		email:            d.Email,
		enqueuer:         d.Enqueuer,
		publisher:        d.Publisher,
		companyName:      d.CompanyName,
		now:              func() time.Time { return time.Now().UTC() },
	}
	if s.enqueuer == nil {
		s.enqueuer = NopEnqueuer()
	}
	if s.publisher == nil {
		s.publisher = events.NewNop()
	}
	return s
}

var _ NotificationService = (*notificationService)(nil)

func (s *notificationService) loadProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "Project not found")
		}
		return nil, err
	}
	return &p, nil
}

func (s *notificationService) SendProjectNotification(ctx context.Context, projectID uuid.UUID, stage int) (*SendResult, error) {
	logger.With(ctx).Info("send project notification", zap.String("project_id", projectID.String()), zap.Int("stage", stage))
	if !stages.Valid(stage) {
		return nil, appErr.Newf(appErr.CodeInvalid, "stage must be between %d and %d", stages.First, stages.Last)
	}
	p, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, p, stage, models.NotificationKindStage)
}

func (s *notificationService) SendStageReminder(ctx context.Context, projectID uuid.UUID, stage int) (*SendResult, error) {
	logger.With(ctx).Info("send stage reminder", zap.String("project_id", projectID.String()), zap.Int("stage", stage))
	p, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive || p.CurrentStage != stage {
		logger.With(ctx).Info("project moved on, skipping reminder",
			zap.String("project_id", projectID.String()), zap.Int("current_stage", p.CurrentStage))
		return &SendResult{Skipped: true}, nil
	}
	return s.dispatch(ctx, p, stage, models.NotificationKindReminder)
}

type resolvedTemplate struct {
	id      *uuid.UUID
	subject string
	body    string
}

// resolveTemplate picks the stage's linked template, then the organization's
// default for the stage, then the built-in message.
func (s *notificationService) resolveTemplate(ctx context.Context, orgID string, stage int) (resolvedTemplate, error) {
	def, err := s.stageRepo.Get(ctx, stage)
	if err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
		return resolvedTemplate{}, err
	}
	if def != nil && def.TemplateID != nil {
		t, err := s.templateRepo.GetEmail(ctx, orgID, *def.TemplateID)
		switch {
		case err == nil && t.IsActive:
			return resolvedTemplate{id: &t.ID, subject: t.Subject, body: t.Body}, nil
		case err != nil && !appErr.IsCode(err, appErr.CodeNotFound):
			return resolvedTemplate{}, err
		}
	}
	t, err := s.templateRepo.FindDefaultEmail(ctx, orgID, stage)
	switch {
	case err == nil:
		return resolvedTemplate{id: &t.ID, subject: t.Subject, body: t.Body}, nil
	case !appErr.IsCode(err, appErr.CodeNotFound):
		return resolvedTemplate{}, err
	}
	return resolvedTemplate{subject: fallbackSubject, body: fallbackBody}, nil
}

func (s *notificationService) dispatch(ctx context.Context, p *models.Project, stage int, kind models.NotificationKind) (*SendResult, error) {
	log := logger.With(ctx).With(zap.String("project_id", p.ID.String()), zap.Int("stage", stage), zap.String("kind", string(kind)))
	if p.ClientEmail == "" {
		log.Warn("project has no client email")
		return &SendResult{Error: "client email is missing"}, nil
	}

	tmpl, err := s.resolveTemplate(ctx, p.OrganizationID, stage)
	if err != nil {
		return nil, err
	}
	vars := ProjectVariables(p, stage, s.companyName)
	n := &models.Notification{
		OrganizationID: p.OrganizationID,
		ProjectID:      lo.ToPtr(p.ID),
		TemplateID:     tmpl.id,
		Channel:        string(messaging.ChannelEmail),
		Kind:           kind,
		Stage:          intPtr(stage),
		Recipient:      p.ClientEmail,
		Subject:        templates.Render(tmpl.subject, vars),
		Body:           templates.RenderHTML(tmpl.body, vars),
		Status:         models.NotificationPending,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, err
	}

	messageID, sendErr := s.email.SendEmail(ctx, messaging.EmailMessage{
		To:      n.Recipient,
		Subject: n.Subject,
		HTML:    n.Body,
		Tags:    map[string]string{"project_id": p.ID.String(), "stage": fmt.Sprintf("%d", stage), "kind": string(kind)},
	})
	result := s.finish(ctx, n, messageID, sendErr)
	if sendErr != nil {
		log.Error("notification delivery failed", zap.String("notification_id", n.ID.String()), zap.Error(sendErr))
	} else {
		log.Info("notification sent", zap.String("notification_id", n.ID.String()), zap.String("message_id", messageID))
	}
	return result, nil
}

// finish records the delivery outcome of n and returns the caller-facing result.
func (s *notificationService) finish(ctx context.Context, n *models.Notification, messageID string, sendErr error) *SendResult {
	now := s.now()
	change := repository.StatusChange{From: models.NotificationPending, To: models.NotificationSent, At: now, ProviderMessageID: messageID}
	kind := models.ActivityNotificationSent
	message := fmt.Sprintf("Sent %q to %s", n.Subject, n.Recipient)
	if sendErr != nil {
		change = repository.StatusChange{From: models.NotificationPending, To: models.NotificationFailed, At: now, ErrorMessage: sendErr.Error()}
		kind = models.ActivityNotificationFailed
		message = fmt.Sprintf("Failed to send %q to %s", n.Subject, n.Recipient)
	}
	if err := s.notificationRepo.Transition(ctx, n.ID, change); err != nil {
		logger.With(ctx).Error("record notification outcome failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
	}
	n.Status = change.To
	metrics.NotificationsSent.WithLabelValues(n.Channel, string(change.To)).Inc()

	if n.ProjectID != nil {
		recordActivity(ctx, s.activityRepo, &models.ProjectActivity{
			OrganizationID: n.OrganizationID,
			ProjectID:      *n.ProjectID,
			Actor:          ActorSystem,
			Kind:           kind,
			ToStage:        n.Stage,
			Message:        message,
			CreatedAt:      now,
		}, map[string]any{"notification_id": n.ID.String(), "channel": n.Channel})
	}
	if err := s.publisher.Publish(ctx, events.RoutingNotificationLog, map[string]any{
		"notification_id": n.ID.String(),
		"organization_id": n.OrganizationID,
		"channel":         n.Channel,
		"kind":            n.Kind,
		"status":          n.Status,
		"occurred_at":     now,
	}); err != nil {
		logger.With(ctx).Warn("publish notification event failed", zap.Error(err))
	}

	if sendErr != nil {
		return &SendResult{NotificationID: lo.ToPtr(n.ID), Error: sendErr.Error()}
	}
	return &SendResult{Success: true, NotificationID: lo.ToPtr(n.ID), MessageID: messageID}
}

func (s *notificationService) GetNotificationHistory(ctx context.Context, projectID uuid.UUID) ([]models.Notification, error) {
	logger.With(ctx).Info("get notification history", zap.String("project_id", projectID.String()))
	return s.notificationRepo.ListByProject(ctx, projectID)
}

func (s *notificationService) UpdateDeliveryStatus(ctx context.Context, notificationID uuid.UUID, status models.NotificationStatus) (*models.Notification, error) {
	if !status.Valid() {
		return nil, appErr.Newf(appErr.CodeInvalid, "unknown notification status %q", status)
	}
	var n models.Notification
	if err := s.notificationRepo.GetByID(ctx, notificationID, &n); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "notification not found")
		}
		return nil, err
	}
	if !n.Status.CanTransition(status) {
		return nil, appErr.Newf(appErr.CodeConflict, "cannot move notification from %s to %s", n.Status, status)
	}
	now := s.now()
	if err := s.notificationRepo.Transition(ctx, n.ID, repository.StatusChange{From: n.Status, To: status, At: now}); err != nil {
		return nil, err
	}
	n.Status = status
	n.UpdatedAt = now
	switch status {
	case models.NotificationSent:
		n.SentAt = &now
	case models.NotificationDelivered:
		n.DeliveredAt = &now
	case models.NotificationOpened:
		n.OpenedAt = &now
	case models.NotificationClicked:
		n.ClickedAt = &now
	case models.NotificationFailed:
		n.FailedAt = &now
	}
	logger.With(ctx).Info("notification status updated", zap.String("notification_id", n.ID.String()), zap.String("status", string(status)))
	return &n, nil
}

func (s *notificationService) EnqueueDueReminders(ctx context.Context) (int, error) {
	defs, err := s.stageRepo.List(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	queued := 0
	for _, def := range lo.Filter(defs, func(d models.StageDefinition, _ int) bool {
		return d.ReminderDays != nil && *d.ReminderDays > 0
	}) {
		cutoff := now.Add(-time.Duration(*def.ReminderDays) * 24 * time.Hour)
		due, err := s.projectRepo.ListDueForReminder(ctx, def.StageNumber, cutoff)
		if err != nil {
			return queued, err
		}
		for _, p := range due {
			if err := s.enqueuer.EnqueueStageReminder(ctx, p.ID, def.StageNumber); err != nil {
				logger.With(ctx).Error("enqueue reminder failed", zap.String("project_id", p.ID.String()), zap.Int("stage", def.StageNumber), zap.Error(err))
				continue
			}
			queued++
		}
	}
	logger.With(ctx).Info("reminder scan finished", zap.Int("queued", queued))
	return queued, nil
}
