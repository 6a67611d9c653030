package models

import (
	"time"

	"github.com/google/uuid"
)

// StageDefinition is the per-stage reference row in project_stages.
type StageDefinition struct {
	StageNumber  int        `gorm:"primaryKey;autoIncrement:false;check:chk_project_stages_number,stage_number BETWEEN 1 AND 12" json:"stage_number"`
	Name         string     `gorm:"not null" json:"name"`
	FolderName   string     `gorm:"uniqueIndex;not null" json:"folder_name"`
	TemplateID   *uuid.UUID `gorm:"type:uuid" json:"template_id"`
	AutoAdvance  *bool      `json:"auto_advance"`
	ReminderDays *int       `json:"reminder_days"`
	Description  string     `gorm:"type:text" json:"description"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (StageDefinition) TableName() string { return "project_stages" }

// AutoAdvances reports whether webhook moves may advance into this stage.
// An unset flag means yes.
func (s *StageDefinition) AutoAdvances() bool {
	return s == nil || s.AutoAdvance == nil || *s.AutoAdvance
}
