package models

import (
	"time"

	"github.com/google/uuid"
)

// OneDriveIntegration links a project to its client folder in OneDrive and
// to the change subscription watching the drive.
type OneDriveIntegration struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrganizationID        string     `gorm:"type:varchar(64);not null;index" json:"organization_id"`
	ProjectID             uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	DriveID               string     `gorm:"not null;uniqueIndex:idx_onedrive_folder" json:"drive_id"`
	FolderItemID          string     `gorm:"not null;uniqueIndex:idx_onedrive_folder" json:"folder_item_id"`
	FolderPath            string     `json:"folder_path"`
	SubscriptionID        string     `gorm:"index" json:"subscription_id,omitempty"`
	SubscriptionExpiresAt *time.Time `gorm:"index" json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (OneDriveIntegration) TableName() string { return "onedrive_integration" }
