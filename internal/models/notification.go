package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationSent      NotificationStatus = "sent"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationOpened    NotificationStatus = "opened"
	NotificationClicked   NotificationStatus = "clicked"
	NotificationFailed    NotificationStatus = "failed"
)

var statusRank = map[NotificationStatus]int{
	NotificationPending:   0,
	NotificationSent:      1,
	NotificationDelivered: 2,
	NotificationOpened:    3,
	NotificationClicked:   4,
}

// Valid reports whether s is a known status.
func (s NotificationStatus) Valid() bool {
	if s == NotificationFailed {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s NotificationStatus) Terminal() bool {
	return s == NotificationFailed || s == NotificationClicked
}

// CanTransition reports whether a record in status s may move to next.
// Statuses only move forward; failed is reachable from any non-terminal state.
func (s NotificationStatus) CanTransition(next NotificationStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == NotificationFailed {
		return true
	}
	return statusRank[next] > statusRank[s]
}

type NotificationKind string

const (
	NotificationKindStage    NotificationKind = "stage"
	NotificationKindReminder NotificationKind = "reminder"
	NotificationKindManual   NotificationKind = "manual"
)

// Notification records one attempt to message a customer.
type Notification struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrganizationID    string             `gorm:"type:varchar(64);not null;index" json:"organization_id"`
	ProjectID         *uuid.UUID         `gorm:"type:uuid;index:idx_notifications_project_stage" json:"project_id"`
	TemplateID        *uuid.UUID         `gorm:"type:uuid" json:"template_id"`
	Channel           string             `gorm:"type:varchar(16);not null" json:"channel"`
	Kind              NotificationKind   `gorm:"type:varchar(16);not null;default:stage" json:"kind"`
	Stage             *int               `gorm:"index:idx_notifications_project_stage" json:"stage"`
	Recipient         string             `gorm:"not null" json:"recipient"`
	Subject           string             `json:"subject"`
	Body              string             `gorm:"type:text" json:"body"`
	Status            NotificationStatus `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	SentAt            *time.Time         `json:"sent_at"`
	DeliveredAt       *time.Time         `json:"delivered_at"`
	OpenedAt          *time.Time         `json:"opened_at"`
	ClickedAt         *time.Time         `json:"clicked_at"`
	FailedAt          *time.Time         `json:"failed_at"`
	ErrorMessage      string             `gorm:"type:text" json:"error_message,omitempty"`
	ProviderMessageID string             `gorm:"index" json:"provider_message_id,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// StatusColumn returns the timestamp column stamped when entering s.
func StatusColumn(s NotificationStatus) string {
	switch s {
	case NotificationSent:
		return "sent_at"
	case NotificationDelivered:
		return "delivered_at"
	case NotificationOpened:
		return "opened_at"
	case NotificationClicked:
		return "clicked_at"
	case NotificationFailed:
		return "failed_at"
	}
	return ""
}
