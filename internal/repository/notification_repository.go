package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hhi-dashboard/api/internal/models"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

// StatusChange describes one notification status transition.
type StatusChange struct {
	From              models.NotificationStatus
	To                models.NotificationStatus
	At                time.Time
	ProviderMessageID string
	ErrorMessage      string
}

type NotificationRepository interface {
	BaseRepository[models.Notification]
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Notification, error)
	// Transition applies change only if the record is still in change.From.
	Transition(ctx context.Context, id uuid.UUID, change StatusChange) error
}

type notificationRepository struct {
	BaseRepository[models.Notification]
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{BaseRepository: NewBaseRepository[models.Notification](db), db: db}
}

func (r *notificationRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Notification, error) {
	var out []models.Notification
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("COALESCE(sent_at, created_at) ASC, created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list notifications failed")
	}
	return out, nil
}

func (r *notificationRepository) Transition(ctx context.Context, id uuid.UUID, change StatusChange) error {
	updates := map[string]any{
		"status":     change.To,
		"updated_at": change.At,
	}
	if col := models.StatusColumn(change.To); col != "" {
		updates[col] = change.At
	}
	if change.ProviderMessageID != "" {
		updates["provider_message_id"] = change.ProviderMessageID
	}
	if change.ErrorMessage != "" {
		updates["error_message"] = change.ErrorMessage
	}
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status = ?", id, change.From).
		Updates(updates)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update notification status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeConflict, "notification status changed concurrently")
	}
	return nil
}
