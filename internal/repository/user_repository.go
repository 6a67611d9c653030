package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hhi-dashboard/api/internal/models"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByExternalID(ctx context.Context, externalID string, dest *models.User) error
	ListByOrg(ctx context.Context, orgID string) ([]models.User, error)
	UpdateRole(ctx context.Context, orgID string, id uuid.UUID, role models.Role) error
	GetPreferences(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error)
	SavePreferences(ctx context.Context, p *models.UserPreference) error
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db), db: db}
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string, dest *models.User) error {
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(dest).Error; err != nil {
		return readError(err, "user not found", "get user by external id failed")
	}
	return nil
}

func (r *userRepository) ListByOrg(ctx context.Context, orgID string) ([]models.User, error) {
	var out []models.User
	if err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Order("name ASC, email ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list users failed")
	}
	return out, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, orgID string, id uuid.UUID, role models.Role) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Update("role", role)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update user role failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "user not found")
	}
	return nil
}

func (r *userRepository) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error) {
	var p models.UserPreference
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, readError(err, "preferences not found", "get preferences failed")
	}
	return &p, nil
}

func (r *userRepository) SavePreferences(ctx context.Context, p *models.UserPreference) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, UpdateAll: true}).
		Create(p).Error
	if err != nil {
		return writeError(err, "save preferences failed")
	}
	return nil
}
