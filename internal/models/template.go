package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EmailTemplate struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrganizationID string         `gorm:"type:varchar(64);not null;index:idx_email_templates_org_stage" json:"organization_id"`
	Name           string         `gorm:"not null" json:"name"`
	StageID        *int           `gorm:"index:idx_email_templates_org_stage" json:"stage_id"`
	Subject        string         `gorm:"not null" json:"subject"`
	Body           string         `gorm:"type:text;not null" json:"body"`
	Variables      datatypes.JSON `gorm:"type:jsonb" json:"variables" swaggertype:"array,string"`
	IsDefault      bool           `gorm:"not null;default:false" json:"is_default"`
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// MessageTemplate is an SMS or WhatsApp template.
type MessageTemplate struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrganizationID string    `gorm:"type:varchar(64);not null;index" json:"organization_id"`
	Channel        string    `gorm:"type:varchar(16);not null;index" json:"channel"`
	Name           string    `gorm:"not null" json:"name"`
	StageID        *int      `json:"stage_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
