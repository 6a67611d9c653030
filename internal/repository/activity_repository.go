package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hhi-dashboard/api/internal/models"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

type ActivityRepository interface {
	Create(ctx context.Context, a *models.ProjectActivity) error
	ListByProject(ctx context.Context, orgID string, projectID uuid.UUID, limit int) ([]models.ProjectActivity, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, a *models.ProjectActivity) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return writeError(err, "record activity failed")
	}
	return nil
}

func (r *activityRepository) ListByProject(ctx context.Context, orgID string, projectID uuid.UUID, limit int) ([]models.ProjectActivity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.ProjectActivity
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND project_id = ?", orgID, projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list activities failed")
	}
	return out, nil
}
