package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hhi-dashboard/api/internal/models"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

type TemplateRepository interface {
	ListEmail(ctx context.Context, orgID string) ([]models.EmailTemplate, error)
	GetEmail(ctx context.Context, orgID string, id uuid.UUID) (*models.EmailTemplate, error)
	// FindDefaultEmail returns the organization's default active template for
	// stage, falling back to any active template linked to it.
	FindDefaultEmail(ctx context.Context, orgID string, stage int) (*models.EmailTemplate, error)
	CreateEmail(ctx context.Context, t *models.EmailTemplate) error
	UpdateEmail(ctx context.Context, t *models.EmailTemplate) error
	ListMessages(ctx context.Context, orgID, channel string) ([]models.MessageTemplate, error)
	GetMessage(ctx context.Context, orgID string, id uuid.UUID) (*models.MessageTemplate, error)
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) ListEmail(ctx context.Context, orgID string) ([]models.EmailTemplate, error) {
	var out []models.EmailTemplate
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("stage_id ASC NULLS LAST, name ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list email templates failed")
	}
	return out, nil
}

func (r *templateRepository) GetEmail(ctx context.Context, orgID string, id uuid.UUID) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	if err := r.db.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&t).Error; err != nil {
		return nil, readError(err, "template not found", "get email template failed")
	}
	return &t, nil
}

func (r *templateRepository) FindDefaultEmail(ctx context.Context, orgID string, stage int) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND stage_id = ? AND is_active = true", orgID, stage).
		Order("is_default DESC, updated_at DESC").
		First(&t).Error
	if err != nil {
		return nil, readError(err, "template not found", "find default email template failed")
	}
	return &t, nil
}

func (r *templateRepository) CreateEmail(ctx context.Context, t *models.EmailTemplate) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return writeError(err, "create email template failed")
	}
	return nil
}

func (r *templateRepository) UpdateEmail(ctx context.Context, t *models.EmailTemplate) error {
	res := r.db.WithContext(ctx).Model(&models.EmailTemplate{}).
		Where("organization_id = ? AND id = ?", t.OrganizationID, t.ID).
		Select("name", "stage_id", "subject", "body", "variables", "is_default", "is_active", "updated_at").
		Updates(t)
	if res.Error != nil {
		return writeError(res.Error, "update email template failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "template not found")
	}
	return nil
}

func (r *templateRepository) ListMessages(ctx context.Context, orgID, channel string) ([]models.MessageTemplate, error) {
	var out []models.MessageTemplate
	q := r.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if channel != "" {
		q = q.Where("channel = ?", channel)
	}
	if err := q.Order("channel ASC, name ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list message templates failed")
	}
	return out, nil
}

func (r *templateRepository) GetMessage(ctx context.Context, orgID string, id uuid.UUID) (*models.MessageTemplate, error) {
	var t models.MessageTemplate
	if err := r.db.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&t).Error; err != nil {
		return nil, readError(err, "template not found", "get message template failed")
	}
	return &t, nil
}
