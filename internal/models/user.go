package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleViewer  Role = "viewer"
)

// User mirrors an identity-provider account within an organization.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ExternalID     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"external_id"`
	OrganizationID string    `gorm:"type:varchar(64);not null;index" json:"organization_id"`
	Email          string    `gorm:"not null" json:"email" validate:"required,email"`
	Name           string    `json:"name"`
	Role           Role      `gorm:"type:varchar(16);not null;default:staff" json:"role"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserPreference holds per-user notification settings.
type UserPreference struct {
	UserID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	OrganizationID        string    `gorm:"type:varchar(64);not null;index" json:"organization_id"`
	EmailNotifications    bool      `gorm:"not null" json:"email_notifications"`
	SMSNotifications      bool      `gorm:"not null" json:"sms_notifications"`
	WhatsAppNotifications bool      `gorm:"not null" json:"whatsapp_notifications"`
	Timezone              string    `gorm:"type:varchar(64);not null;default:UTC" json:"timezone"`
	UpdatedAt             time.Time `json:"updated_at"`
}
