// Package models holds the gorm entities persisted by the dashboard.
package models

// All lists every migrated model.
func All() []any {
	return []any{
		&User{},
		&UserPreference{},
		&Project{},
		&StageDefinition{},
		&EmailTemplate{},
		&MessageTemplate{},
		&Notification{},
		&OneDriveIntegration{},
		&ProjectActivity{},
	}
}
