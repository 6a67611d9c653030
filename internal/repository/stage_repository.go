package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hhi-dashboard/api/internal/models"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

type StageRepository interface {
	List(ctx context.Context) ([]models.StageDefinition, error)
	Get(ctx context.Context, stage int) (*models.StageDefinition, error)
	Update(ctx context.Context, def *models.StageDefinition) error
	// Seed inserts definitions that do not exist yet and leaves existing rows untouched.
	Seed(ctx context.Context, defs []models.StageDefinition) error
}

type stageRepository struct {
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) StageRepository {
	return &stageRepository{db: db}
}

func (r *stageRepository) List(ctx context.Context) ([]models.StageDefinition, error) {
	var out []models.StageDefinition
	if err := r.db.WithContext(ctx).Order("stage_number ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list stages failed")
	}
	return out, nil
}

func (r *stageRepository) Get(ctx context.Context, stage int) (*models.StageDefinition, error) {
	var def models.StageDefinition
	if err := r.db.WithContext(ctx).First(&def, "stage_number = ?", stage).Error; err != nil {
		return nil, readError(err, "stage not found", "get stage failed")
	}
	return &def, nil
}

func (r *stageRepository) Update(ctx context.Context, def *models.StageDefinition) error {
	res := r.db.WithContext(ctx).Model(&models.StageDefinition{}).
		Where("stage_number = ?", def.StageNumber).
		Select("template_id", "auto_advance", "reminder_days", "description", "updated_at").
		Updates(def)
	if res.Error != nil {
		return writeError(res.Error, "update stage failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "stage not found")
	}
	return nil
}

func (r *stageRepository) Seed(ctx context.Context, defs []models.StageDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "stage_number"}}, DoNothing: true}).
		Create(&defs).Error
	if err != nil {
		return writeError(err, "seed stages failed")
	}
	return nil
}
