package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hhi-dashboard/api/internal/models"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

type IntegrationRepository interface {
	// Upsert creates or replaces the integration of a project.
	Upsert(ctx context.Context, in *models.OneDriveIntegration) error
	FindByFolder(ctx context.Context, driveID, folderItemID string) (*models.OneDriveIntegration, error)
	FindByProject(ctx context.Context, projectID uuid.UUID) (*models.OneDriveIntegration, error)
	// FindSubscribedByDrive returns an integration on driveID that carries a
	// subscription, so projects on the same drive share one subscription.
	FindSubscribedByDrive(ctx context.Context, driveID string) (*models.OneDriveIntegration, error)
	// OrganizationsOnDrive lists the distinct organizations with a project
	// folder on driveID.
	OrganizationsOnDrive(ctx context.Context, driveID string) ([]string, error)
	ListExpiring(ctx context.Context, before time.Time) ([]models.OneDriveIntegration, error)
	// SetSubscription moves every integration on oldID to newID with the new expiry.
	SetSubscription(ctx context.Context, oldID, newID string, expiresAt time.Time) error
}

type integrationRepository struct {
	db *gorm.DB
}

func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

func (r *integrationRepository) Upsert(ctx context.Context, in *models.OneDriveIntegration) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"drive_id", "folder_item_id", "folder_path",
				"subscription_id", "subscription_expires_at", "updated_at",
			}),
		}).
		Create(in).Error
	if err != nil {
		return writeError(err, "save onedrive integration failed")
	}
	return nil
}

func (r *integrationRepository) FindByFolder(ctx context.Context, driveID, folderItemID string) (*models.OneDriveIntegration, error) {
	var out models.OneDriveIntegration
	err := r.db.WithContext(ctx).Where("drive_id = ? AND folder_item_id = ?", driveID, folderItemID).First(&out).Error
	if err != nil {
		return nil, readError(err, "integration not found", "find integration by folder failed")
	}
	return &out, nil
}

func (r *integrationRepository) FindByProject(ctx context.Context, projectID uuid.UUID) (*models.OneDriveIntegration, error) {
	var out models.OneDriveIntegration
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&out).Error; err != nil {
		return nil, readError(err, "integration not found", "find integration by project failed")
	}
	return &out, nil
}

func (r *integrationRepository) OrganizationsOnDrive(ctx context.Context, driveID string) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&models.OneDriveIntegration{}).
		Where("drive_id = ?", driveID).
		Distinct().
		Order("organization_id").
		Pluck("organization_id", &out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list drive organizations failed")
	}
	return out, nil
}

// ListExpiring returns integrations with a subscription expiring before the given time.
func (r *integrationRepository) ListExpiring(ctx context.Context, before time.Time) ([]models.OneDriveIntegration, error) {
	var out []models.OneDriveIntegration
	err := r.db.WithContext(ctx).
		Where("subscription_id <> '' AND subscription_expires_at IS NOT NULL AND subscription_expires_at < ?", before).
		Order("subscription_expires_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list expiring subscriptions failed")
	}
	return out, nil
}

func (r *integrationRepository) FindSubscribedByDrive(ctx context.Context, driveID string) (*models.OneDriveIntegration, error) {
	var out models.OneDriveIntegration
	err := r.db.WithContext(ctx).
		Where("drive_id = ? AND subscription_id <> ''", driveID).
		Order("subscription_expires_at DESC").
		First(&out).Error
	if err != nil {
		return nil, readError(err, "subscription not found", "find drive subscription failed")
	}
	return &out, nil
}

func (r *integrationRepository) SetSubscription(ctx context.Context, oldID, newID string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.OneDriveIntegration{}).
		Where("subscription_id = ?", oldID).
		Updates(map[string]any{"subscription_id": newID, "subscription_expires_at": expiresAt})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update subscription failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "subscription not found")
	}
	return nil
}
