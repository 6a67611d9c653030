package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/onedrive"
	"github.com/hhi-dashboard/api/internal/repository"
	"github.com/hhi-dashboard/api/internal/stages"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/events"
	"github.com/hhi-dashboard/api/pkg/logger"
	"github.com/hhi-dashboard/api/pkg/metrics"
)

// Outcome describes what happened to a single change notification.
type Outcome string

const (
	OutcomeInvalid           Outcome = "invalid"
	OutcomeIgnoredChange     Outcome = "ignored_change_type"
	OutcomeUnparsable        Outcome = "unparsable_resource"
	OutcomeUnknownFolder     Outcome = "unknown_folder"
	OutcomeNoProject         Outcome = "no_project"
	OutcomeUnchanged         Outcome = "unchanged"
	OutcomeRegressionIgnored Outcome = "regression_ignored"
	OutcomeManualRequired    Outcome = "manual_required"
	OutcomeAdvanced          Outcome = "advanced"
	OutcomeError             Outcome = "error"
)

// StageService turns OneDrive file movements into project stage changes and
// manages the stage reference data.
type StageService interface {
	ProcessNotification(ctx context.Context, n onedrive.ChangeNotification) (Outcome, error)
	// ProcessBatch handles every notification in order and returns the batch
	// size. A failing item is logged and does not stop the rest.
	ProcessBatch(ctx context.Context, batch []onedrive.ChangeNotification) int

	ListStages(ctx context.Context) ([]models.StageDefinition, error)
	UpdateStage(ctx context.Context, stage int, input *UpdateStageInput) (*models.StageDefinition, error)
}

type UpdateStageInput struct {
	TemplateID    *uuid.UUID
	ClearTemplate bool
	AutoAdvance   *bool
	ReminderDays  *int
	Description   *string
}

type stageService struct {
	validator       *onedrive.Validator
	drive           onedrive.DriveAPI
	projectRepo     repository.ProjectRepository
	stageRepo       repository.StageRepository
	integrationRepo repository.IntegrationRepository
	activityRepo    repository.ActivityRepository
	enqueuer        NotificationEnqueuer
	publisher       events.Publisher
	now             func() time.Time
}

type StageServiceDeps struct {
	Validator       *onedrive.Validator
	Drive           onedrive.DriveAPI
	ProjectRepo     repository.ProjectRepository
	StageRepo       repository.StageRepository
	IntegrationRepo repository.IntegrationRepository
	ActivityRepo    repository.ActivityRepository
	Enqueuer        NotificationEnqueuer
	Publisher       events.Publisher
}

func NewStageService(d StageServiceDeps) StageService {
	s := &stageService{
		validator:       d.Validator,
		drive:           d.Drive,
		projectRepo:     d.ProjectRepo,
		stageRepo:       d.StageRepo,
		integrationRepo: d.IntegrationRepo,
		activityRepo:    d.ActivityRepo,
		enqueuer:        d.Enqueuer,
		publisher:       d.Publisher,
		now:             func() time.Time { return time.Now().UTC() },
	}
	if s.enqueuer == nil {
		s.enqueuer = NopEnqueuer()
	}
	if s.publisher == nil {
		s.publisher = events.NewNop()
	}
	return s
}

var _ StageService = (*stageService)(nil)

func (s *stageService) ProcessBatch(ctx context.Context, batch []onedrive.ChangeNotification) int {
	for i := range batch {
		s.processSafely(ctx, i, batch[i])
	}
	return len(batch)
}

func (s *stageService) processSafely(ctx context.Context, index int, n onedrive.ChangeNotification) {
	log := logger.With(ctx).With(zap.Int("index", index), zap.String("resource", n.Resource))
	defer func() {
		if rec := recover(); rec != nil {
			metrics.WebhookNotifications.WithLabelValues(string(OutcomeError)).Inc()
			log.Error("panic while processing change notification", zap.Any("panic", rec), zap.Stack("stack"))
		}
	}()
	outcome, err := s.ProcessNotification(ctx, n)
	if err != nil {
		log.Error("process change notification failed", zap.Error(err))
		return
	}
	log.Info("change notification processed", zap.String("outcome", string(outcome)))
}

func (s *stageService) ProcessNotification(ctx context.Context, n onedrive.ChangeNotification) (outcome Outcome, err error) {
	defer func() {
		label := outcome
		if err != nil {
			label = OutcomeError
		}
		if label != "" {
			metrics.WebhookNotifications.WithLabelValues(string(label)).Inc()
		}
	}()
	log := logger.With(ctx)

	if !s.validator.Validate(n) {
		log.Warn("dropping unauthenticated or malformed notification", zap.String("subscription_id", n.SubscriptionID))
		return OutcomeInvalid, nil
	}
	if n.ChangeType != onedrive.ChangeTypeUpdated {
		log.Debug("ignoring change type", zap.String("change_type", n.ChangeType))
		return OutcomeIgnoredChange, nil
	}
	info := onedrive.ExtractResourceInfo(n.Resource)
	if info == nil {
		log.Warn("unrecognised resource path", zap.String("resource", n.Resource))
		return OutcomeUnparsable, nil
	}
	if s.drive == nil {
		return "", appErr.New(appErr.CodeUnavailable, "onedrive is not configured")
	}

	item, err := s.drive.GetItem(ctx, info.ContainerID, info.ItemID)
	if err != nil {
		return "", err
	}
	folder := item.ParentReference.FolderName()
	target, ok := stages.StageForFolder(folder)
	if !ok {
		log.Info("file is not in a stage folder", zap.String("item_id", item.ID), zap.String("folder", folder))
		return OutcomeUnknownFolder, nil
	}

	project, err := s.locateProject(ctx, info.ContainerID, item)
	if err != nil {
		return "", err
	}
	if project == nil {
		log.Info("no project for file", zap.String("item_id", item.ID), zap.String("file", item.Name))
		return OutcomeNoProject, nil
	}

	return s.applyStage(ctx, project, target, item)
}

// locateProject resolves the project owning item through the integration of
// the stage folder's parent, falling back to the file name convention within
// the organization that owns the drive.
func (s *stageService) locateProject(ctx context.Context, driveID string, item *onedrive.DriveItem) (*models.Project, error) {
	if item.ParentReference.DriveID != "" {
		driveID = item.ParentReference.DriveID
	}
	if item.ParentReference.ID != "" {
		stageFolder, err := s.drive.GetItem(ctx, driveID, item.ParentReference.ID)
		if err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, err
		}
		if stageFolder != nil && stageFolder.ParentReference.ID != "" {
			in, err := s.integrationRepo.FindByFolder(ctx, driveID, stageFolder.ParentReference.ID)
			switch {
			case err == nil:
				var p models.Project
				if err := s.projectRepo.GetByID(ctx, in.ProjectID, &p); err != nil {
					if appErr.IsCode(err, appErr.CodeNotFound) {
						return nil, nil
					}
					return nil, err
				}
				if !p.IsActive {
					return nil, nil
				}
				return &p, nil
			case !appErr.IsCode(err, appErr.CodeNotFound):
				return nil, err
			}
		}
	}

	parsed := onedrive.ParseFileName(item.Name)
	if parsed == nil {
		return nil, nil
	}
	orgs, err := s.integrationRepo.OrganizationsOnDrive(ctx, driveID)
	if err != nil {
		return nil, err
	}
	if len(orgs) != 1 {
		// unknown or shared drive, the file name alone cannot pick a tenant
		logger.With(ctx).Info("drive does not map to a single organization",
			zap.String("drive_id", driveID), zap.Int("organizations", len(orgs)))
		return nil, nil
	}
	p, err := s.projectRepo.FindActiveByClient(ctx, orgs[0], parsed.ClientName, parsed.ServiceType)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *stageService) applyStage(ctx context.Context, p *models.Project, target int, item *onedrive.DriveItem) (Outcome, error) {
	log := logger.With(ctx).With(zap.String("project_id", p.ID.String()), zap.Int("from_stage", p.CurrentStage), zap.Int("to_stage", target))
	meta := map[string]any{"item_id": item.ID, "file": item.Name}

	switch {
	case target == p.CurrentStage:
		log.Debug("project already in stage")
		return OutcomeUnchanged, nil
	case target < p.CurrentStage:
		log.Warn("ignoring stage regression from file move")
		recordActivity(ctx, s.activityRepo, &models.ProjectActivity{
			OrganizationID: p.OrganizationID,
			ProjectID:      p.ID,
			Actor:          ActorWebhook,
			Kind:           models.ActivityStageRegressionIgnored,
			FromStage:      intPtr(p.CurrentStage),
			ToStage:        intPtr(target),
			Message:        fmt.Sprintf("%s moved to %s; stage left at %s", item.Name, stages.NameForStage(target), stages.NameForStage(p.CurrentStage)),
		}, meta)
		return OutcomeRegressionIgnored, nil
	}

	def, err := s.stageRepo.Get(ctx, target)
	if err != nil {
		if !appErr.IsCode(err, appErr.CodeNotFound) {
			return "", err
		}
	}
	if !def.AutoAdvances() {
		log.Info("stage requires manual advancement")
		recordActivity(ctx, s.activityRepo, &models.ProjectActivity{
			OrganizationID: p.OrganizationID,
			ProjectID:      p.ID,
			Actor:          ActorWebhook,
			Kind:           models.ActivityStageManualRequired,
			FromStage:      intPtr(p.CurrentStage),
			ToStage:        intPtr(target),
			Message:        fmt.Sprintf("%s moved to %s; stage needs manual confirmation", item.Name, stages.NameForStage(target)),
		}, meta)
		return OutcomeManualRequired, nil
	}

	now := s.now()
	column, _ := models.MilestoneColumn(stages.MilestoneForStage(target))
	advanced, err := s.projectRepo.AdvanceStage(ctx, p.ID, target, now, column)
	if err != nil {
		return "", err
	}
	if !advanced {
		log.Info("project moved past stage concurrently")
		return OutcomeUnchanged, nil
	}
	from := p.CurrentStage
	metrics.StageTransitions.WithLabelValues(fmt.Sprintf("%d", target), "webhook").Inc()
	log.Info("project stage advanced")

	recordActivity(ctx, s.activityRepo, &models.ProjectActivity{
		OrganizationID: p.OrganizationID,
		ProjectID:      p.ID,
		Actor:          ActorWebhook,
		Kind:           models.ActivityStageAdvanced,
		FromStage:      intPtr(from),
		ToStage:        intPtr(target),
		Message:        fmt.Sprintf("Moved to %s by %s", stages.NameForStage(target), item.Name),
		CreatedAt:      now,
	}, meta)

	if err := s.publisher.Publish(ctx, events.RoutingStageChanged, events.StageChanged{
		ProjectID:      p.ID.String(),
		OrganizationID: p.OrganizationID,
		FromStage:      from,
		ToStage:        target,
		Source:         ActorWebhook,
		OccurredAt:     now,
	}); err != nil {
		log.Error("publish stage change failed", zap.Error(err))
	}

	if def != nil && def.TemplateID != nil {
		if err := s.enqueuer.EnqueueStageNotification(ctx, p.ID, target); err != nil {
			log.Error("enqueue stage notification failed", zap.Error(err))
		}
	}
	return OutcomeAdvanced, nil
}

func (s *stageService) ListStages(ctx context.Context) ([]models.StageDefinition, error) {
	return s.stageRepo.List(ctx)
}

func (s *stageService) UpdateStage(ctx context.Context, stage int, input *UpdateStageInput) (*models.StageDefinition, error) {
	if !stages.Valid(stage) {
		return nil, appErr.Newf(appErr.CodeInvalid, "stage must be between %d and %d", stages.First, stages.Last)
	}
	if input.ReminderDays != nil && *input.ReminderDays < 0 {
		return nil, appErr.New(appErr.CodeInvalid, "reminder_days must not be negative")
	}
	def, err := s.stageRepo.Get(ctx, stage)
	if err != nil {
		return nil, err
	}
	if input.ClearTemplate {
		def.TemplateID = nil
	} else if input.TemplateID != nil {
		def.TemplateID = input.TemplateID
	}
	if input.AutoAdvance != nil {
		def.AutoAdvance = input.AutoAdvance
	}
	if input.ReminderDays != nil {
		def.ReminderDays = input.ReminderDays
	}
	if input.Description != nil {
		def.Description = *input.Description
	}
	def.UpdatedAt = s.now()
	if err := s.stageRepo.Update(ctx, def); err != nil {
		return nil, err
	}
	logger.With(ctx).Info("stage definition updated", zap.Int("stage", stage))
	return def, nil
}
