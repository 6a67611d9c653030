// Package migrations versions the dashboard schema with gormigrate.
package migrations

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/stages"
)

// StageDefinitions returns the reference rows for the fixed pipeline.
func StageDefinitions() []models.StageDefinition {
	defs := make([]models.StageDefinition, 0, stages.Last)
	for _, s := range stages.All() {
		defs = append(defs, models.StageDefinition{
			StageNumber: s.Number,
			Name:        s.Name,
			FolderName:  s.Folder,
		})
	}
	return defs
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202401150001_pgcrypto",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
			},
			Rollback: func(tx *gorm.DB) error { return nil },
		},
		{
			ID: "202401150002_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(models.All()...)
			},
			Rollback: func(tx *gorm.DB) error {
				all := models.All()
				for i := len(all) - 1; i >= 0; i-- {
					if err := tx.Migrator().DropTable(all[i]); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			// Reminder scans filter active projects by stage and entry time.
			ID: "202401150003_reminder_scan_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`
					CREATE INDEX IF NOT EXISTS idx_projects_active_stage
					ON projects(current_stage, stage_updated_at)
					WHERE is_active
				`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_projects_active_stage`).Error
			},
		},
		{
			ID: "202401150004_seed_stages",
			Migrate: func(tx *gorm.DB) error {
				defs := StageDefinitions()
				return tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "stage_number"}},
					DoNothing: true,
				}).Create(&defs).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DELETE FROM project_stages`).Error
			},
		},
	}
}

// Run applies every pending migration.
func Run(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// RollbackLast reverts the most recently applied migration.
func RollbackLast(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	if err := m.RollbackLast(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
