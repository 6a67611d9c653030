package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActivityKind string

const (
	ActivityStageAdvanced          ActivityKind = "stage_advanced"
	ActivityStageRegressionIgnored ActivityKind = "stage_regression_ignored"
	ActivityStageManualRequired    ActivityKind = "stage_manual_required"
	ActivityStageOverridden        ActivityKind = "stage_overridden"
	ActivityNotificationSent       ActivityKind = "notification_sent"
	ActivityNotificationFailed     ActivityKind = "notification_failed"
	ActivityProjectCreated         ActivityKind = "project_created"
	ActivityProjectDeactivated     ActivityKind = "project_deactivated"
)

// ProjectActivity is an append-only audit entry on a project's timeline.
type ProjectActivity struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrganizationID string         `gorm:"type:varchar(64);not null;index" json:"organization_id"`
	ProjectID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_project_activities_project_created" json:"project_id"`
	Actor          string         `gorm:"type:varchar(64);not null" json:"actor"`
	Kind           ActivityKind   `gorm:"type:varchar(32);not null" json:"kind"`
	FromStage      *int           `json:"from_stage,omitempty"`
	ToStage        *int           `json:"to_stage,omitempty"`
	Message        string         `gorm:"type:text" json:"message"`
	Meta           datatypes.JSON `gorm:"type:jsonb" json:"meta,omitempty" swaggertype:"object"`
	CreatedAt      time.Time      `gorm:"index:idx_project_activities_project_created" json:"created_at"`
}
