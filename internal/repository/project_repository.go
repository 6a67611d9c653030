package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hhi-dashboard/api/internal/models"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

// ProjectFilter narrows project listings. Zero values mean "any".
type ProjectFilter struct {
	IncludeInactive bool
	Stage           int
	ServiceType     string
	Search          string
	Limit           int
	Offset          int
}

type ProjectRepository interface {
	BaseRepository[models.Project]
	GetInOrg(ctx context.Context, orgID string, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, orgID string, f ProjectFilter) ([]models.Project, int64, error)
	FindActiveByClient(ctx context.Context, orgID, clientName, serviceType string) (*models.Project, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stage int, at time.Time, milestoneColumn string) error
	// AdvanceStage is UpdateStage restricted to forward moves. It reports
	// false when the project is already at or beyond stage.
	AdvanceStage(ctx context.Context, id uuid.UUID, stage int, at time.Time, milestoneColumn string) (bool, error)
	UpdateFields(ctx context.Context, orgID string, id uuid.UUID, fields map[string]any) error
	Deactivate(ctx context.Context, orgID string, id uuid.UUID) error
	ListDueForReminder(ctx context.Context, stage int, enteredBefore time.Time) ([]models.Project, error)
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) GetInOrg(ctx context.Context, orgID string, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&p).Error; err != nil {
		return nil, readError(err, "Project not found", "get project failed")
	}
	return &p, nil
}

func (r *projectRepository) List(ctx context.Context, orgID string, f ProjectFilter) ([]models.Project, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Project{}).Where("organization_id = ?", orgID)
	if !f.IncludeInactive {
		q = q.Where("is_active = true")
	}
	if f.Stage > 0 {
		q = q.Where("current_stage = ?", f.Stage)
	}
	if f.ServiceType != "" {
		q = q.Where("lower(service_type) = ?", strings.ToLower(f.ServiceType))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("lower(client_name) LIKE ? OR lower(client_email) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "count projects failed")
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.Project
	if err := q.Order("updated_at DESC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "list projects failed")
	}
	return out, total, nil
}

// FindActiveByClient matches client name case-insensitively within orgID.
// When several active projects match, the most recently updated wins.
func (r *projectRepository) FindActiveByClient(ctx context.Context, orgID, clientName, serviceType string) (*models.Project, error) {
	var p models.Project
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = true AND lower(client_name) = ? AND lower(service_type) = ?",
			orgID, strings.ToLower(strings.TrimSpace(clientName)), strings.ToLower(strings.TrimSpace(serviceType))).
		Order("updated_at DESC").
		First(&p).Error
	if err != nil {
		return nil, readError(err, "Project not found", "find project by client failed")
	}
	return &p, nil
}

// UpdateStage sets the current stage and, when milestoneColumn is given,
// stamps that milestone unless it was already recorded.
func (r *projectRepository) UpdateStage(ctx context.Context, id uuid.UUID, stage int, at time.Time, milestoneColumn string) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", id).
		Updates(stageUpdates(stage, at, milestoneColumn))
	if res.Error != nil {
		return writeError(res.Error, "update project stage failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "Project not found")
	}
	return nil
}

func (r *projectRepository) AdvanceStage(ctx context.Context, id uuid.UUID, stage int, at time.Time, milestoneColumn string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND current_stage < ?", id, stage).
		Updates(stageUpdates(stage, at, milestoneColumn))
	if res.Error != nil {
		return false, writeError(res.Error, "advance project stage failed")
	}
	return res.RowsAffected > 0, nil
}

func stageUpdates(stage int, at time.Time, milestoneColumn string) map[string]any {
	updates := map[string]any{
		"current_stage":    stage,
		"stage_updated_at": at,
		"updated_at":       at,
	}
	if milestoneColumn != "" {
		updates[milestoneColumn] = gorm.Expr("COALESCE("+milestoneColumn+", ?)", at)
	}
	return updates
}

func (r *projectRepository) UpdateFields(ctx context.Context, orgID string, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Updates(fields)
	if res.Error != nil {
		return writeError(res.Error, "update project failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "Project not found")
	}
	return nil
}

func (r *projectRepository) Deactivate(ctx context.Context, orgID string, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Update("is_active", false)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "deactivate project failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "Project not found")
	}
	return nil
}

// ListDueForReminder returns active projects sitting in stage since before
// enteredBefore that have not yet received a reminder for it.
func (r *projectRepository) ListDueForReminder(ctx context.Context, stage int, enteredBefore time.Time) ([]models.Project, error) {
	var out []models.Project
	err := r.db.WithContext(ctx).
		Where("is_active = true AND current_stage = ? AND stage_updated_at <= ?", stage, enteredBefore).
		Where("NOT EXISTS (SELECT 1 FROM notifications n WHERE n.project_id = projects.id AND n.stage = ? AND n.kind = ?)",
			stage, models.NotificationKindReminder).
		Order("stage_updated_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects due for reminder failed")
	}
	return out, nil
}
