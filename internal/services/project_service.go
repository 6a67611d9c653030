package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/repository"
	"github.com/hhi-dashboard/api/internal/stages"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/events"
	"github.com/hhi-dashboard/api/pkg/logger"
	"github.com/hhi-dashboard/api/pkg/metrics"
)

// Service interface and related DTOs
type ProjectService interface {
	// Project CRUD
	CreateProject(ctx context.Context, orgID, actor string, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, orgID string, projectID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, orgID string, filters *ProjectFilters) ([]models.Project, int64, error)
	UpdateProject(ctx context.Context, orgID string, projectID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error)
	DeactivateProject(ctx context.Context, orgID string, projectID uuid.UUID, actor string) error

	// Pipeline
	OverrideStage(ctx context.Context, orgID string, projectID uuid.UUID, stage int, actor, reason string) (*models.Project, error)
	ListActivities(ctx context.Context, orgID string, projectID uuid.UUID, limit int) ([]models.ProjectActivity, error)
}

type CreateProjectInput struct {
	ClientName    string
	ClientEmail   string
	ClientPhone   string
	ClientAddress string
	ServiceType   string
	ProjectValue  float64
	Stage         int
	Notes         string
}

type UpdateProjectInput struct {
	ClientName    *string
	ClientEmail   *string
	ClientPhone   *string
	ClientAddress *string
	ServiceType   *string
	ProjectValue  *float64
	Notes         *string
}

type ProjectFilters struct {
	IncludeInactive bool
	Stage           int
	ServiceType     string
	Search          string
	Page            int
	PageSize        int
}

type projectService struct {
	projectRepo  repository.ProjectRepository
	activityRepo repository.ActivityRepository
	publisher    events.Publisher
	now          func() time.Time
}

func NewProjectService(projectRepo repository.ProjectRepository, activityRepo repository.ActivityRepository, publisher events.Publisher) ProjectService {
	if publisher == nil {
		publisher = events.NewNop()
	}
	return &projectService{
		projectRepo:  projectRepo,
		activityRepo: activityRepo,
		publisher:    publisher,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Ensure interfaces are satisfied at compile time
var _ ProjectService = (*projectService)(nil)

// CreateProject creates a new active project for the organization.
func (s *projectService) CreateProject(ctx context.Context, orgID, actor string, input *CreateProjectInput) (*models.Project, error) {
	logger.With(ctx).Info("create project called", zap.String("organization_id", orgID), zap.String("client_name", input.ClientName))

	if strings.TrimSpace(input.ClientName) == "" {
		return nil, appErr.New(appErr.CodeInvalid, "client_name is required")
	}
	if input.ProjectValue < 0 {
		return nil, appErr.New(appErr.CodeInvalid, "project_value must not be negative")
	}
	stage := input.Stage
	if stage == 0 {
		stage = stages.First
	}
	if !stages.Valid(stage) {
		return nil, appErr.Newf(appErr.CodeInvalid, "stage must be between %d and %d", stages.First, stages.Last)
	}

	now := s.now()
	p := &models.Project{
		OrganizationID: orgID,
		ClientName:     strings.TrimSpace(input.ClientName),
		ClientEmail:    strings.TrimSpace(input.ClientEmail),
		ClientPhone:    strings.TrimSpace(input.ClientPhone),
		ClientAddress:  input.ClientAddress,
		ServiceType:    strings.ToLower(strings.TrimSpace(input.ServiceType)),
		ProjectValue:   input.ProjectValue,
		CurrentStage:   stage,
		StageUpdatedAt: &now,
		IsActive:       true,
		Notes:          input.Notes,
		CreatedBy:      actor,
	}

	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activityRepo, &models.ProjectActivity{
		OrganizationID: orgID,
		ProjectID:      p.ID,
		Actor:          actor,
		Kind:           models.ActivityProjectCreated,
		ToStage:        intPtr(stage),
		Message:        fmt.Sprintf("Project created for %s", p.ClientName),
		CreatedAt:      now,
	}, nil)

	logger.With(ctx).Info("project created", zap.String("project_id", p.ID.String()), zap.String("organization_id", orgID))
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, orgID string, projectID uuid.UUID) (*models.Project, error) {
	logger.With(ctx).Debug("get project", zap.String("project_id", projectID.String()))
	return s.projectRepo.GetInOrg(ctx, orgID, projectID)
}

func (s *projectService) ListProjects(ctx context.Context, orgID string, filters *ProjectFilters) ([]models.Project, int64, error) {
	logger.With(ctx).Debug("list projects", zap.String("organization_id", orgID))
	if filters == nil {
		filters = &ProjectFilters{}
	}
	pageSize := filters.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	return s.projectRepo.List(ctx, orgID, repository.ProjectFilter{
		IncludeInactive: filters.IncludeInactive,
		Stage:           filters.Stage,
		ServiceType:     filters.ServiceType,
		Search:          filters.Search,
		Limit:           pageSize,
		Offset:          (page - 1) * pageSize,
	})
}

func (s *projectService) UpdateProject(ctx context.Context, orgID string, projectID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error) {
	logger.With(ctx).Info("update project", zap.String("project_id", projectID.String()))

	fields := map[string]any{}
	if updates.ClientName != nil {
		if strings.TrimSpace(*updates.ClientName) == "" {
			return nil, appErr.New(appErr.CodeInvalid, "client_name must not be empty")
		}
		fields["client_name"] = strings.TrimSpace(*updates.ClientName)
	}
	if updates.ClientEmail != nil {
		fields["client_email"] = strings.TrimSpace(*updates.ClientEmail)
	}
	if updates.ClientPhone != nil {
		fields["client_phone"] = strings.TrimSpace(*updates.ClientPhone)
	}
	if updates.ClientAddress != nil {
		fields["client_address"] = *updates.ClientAddress
	}
	if updates.ServiceType != nil {
		fields["service_type"] = strings.ToLower(strings.TrimSpace(*updates.ServiceType))
	}
	if updates.ProjectValue != nil {
		if *updates.ProjectValue < 0 {
			return nil, appErr.New(appErr.CodeInvalid, "project_value must not be negative")
		}
		fields["project_value"] = *updates.ProjectValue
	}
	if updates.Notes != nil {
		fields["notes"] = *updates.Notes
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.now()
		if err := s.projectRepo.UpdateFields(ctx, orgID, projectID, fields); err != nil {
			return nil, err
		}
	}

	p, err := s.projectRepo.GetInOrg(ctx, orgID, projectID)
	if err != nil {
		return nil, err
	}
	logger.With(ctx).Info("project updated", zap.String("project_id", projectID.String()), zap.Int("fields", len(fields)))
	return p, nil
}

func (s *projectService) DeactivateProject(ctx context.Context, orgID string, projectID uuid.UUID, actor string) error {
	logger.With(ctx).Info("deactivate project", zap.String("project_id", projectID.String()))
	if err := s.projectRepo.Deactivate(ctx, orgID, projectID); err != nil {
		return err
	}
	recordActivity(ctx, s.activityRepo, &models.ProjectActivity{
		OrganizationID: orgID,
		ProjectID:      projectID,
		Actor:          actor,
		Kind:           models.ActivityProjectDeactivated,
		Message:        "Project deactivated",
	}, nil)
	return nil
}

// OverrideStage sets any pipeline stage, including earlier ones.
func (s *projectService) OverrideStage(ctx context.Context, orgID string, projectID uuid.UUID, stage int, actor, reason string) (*models.Project, error) {
	log := logger.With(ctx).With(zap.String("project_id", projectID.String()), zap.Int("stage", stage))
	if !stages.Valid(stage) {
		return nil, appErr.Newf(appErr.CodeInvalid, "stage must be between %d and %d", stages.First, stages.Last)
	}
	p, err := s.projectRepo.GetInOrg(ctx, orgID, projectID)
	if err != nil {
		return nil, err
	}
	if p.CurrentStage == stage {
		return p, nil
	}

	now := s.now()
	column, _ := models.MilestoneColumn(stages.MilestoneForStage(stage))
	if err := s.projectRepo.UpdateStage(ctx, p.ID, stage, now, column); err != nil {
		return nil, err
	}
	from := p.CurrentStage
	metrics.StageTransitions.WithLabelValues(fmt.Sprintf("%d", stage), "manual").Inc()

	message := fmt.Sprintf("Stage set to %s", stages.NameForStage(stage))
	if reason != "" {
		message += ": " + reason
	}
	recordActivity(ctx, s.activityRepo, &models.ProjectActivity{
		OrganizationID: orgID,
		ProjectID:      p.ID,
		Actor:          actor,
		Kind:           models.ActivityStageOverridden,
		FromStage:      intPtr(from),
		ToStage:        intPtr(stage),
		Message:        message,
		CreatedAt:      now,
	}, nil)
	if err := s.publisher.Publish(ctx, events.RoutingStageChanged, events.StageChanged{
		ProjectID:      p.ID.String(),
		OrganizationID: orgID,
		FromStage:      from,
		ToStage:        stage,
		Source:         "manual",
		OccurredAt:     now,
	}); err != nil {
		log.Error("publish stage change failed", zap.Error(err))
	}
	log.Info("project stage overridden", zap.Int("from_stage", from), zap.String("actor", actor))

	return s.projectRepo.GetInOrg(ctx, orgID, projectID)
}

func (s *projectService) ListActivities(ctx context.Context, orgID string, projectID uuid.UUID, limit int) ([]models.ProjectActivity, error) {
	if _, err := s.projectRepo.GetInOrg(ctx, orgID, projectID); err != nil {
		return nil, err
	}
	return s.activityRepo.ListByProject(ctx, orgID, projectID, limit)
}
