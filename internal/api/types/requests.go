package types

type ProjectCreateRequest struct {
	ClientName    string  `json:"client_name" validate:"required,max=200"`
	ClientEmail   string  `json:"client_email" validate:"omitempty,email"`
	ClientPhone   string  `json:"client_phone" validate:"omitempty,max=32"`
	ClientAddress string  `json:"client_address"`
	ServiceType   string  `json:"service_type" validate:"required,max=64"`
	ProjectValue  float64 `json:"project_value" validate:"gte=0"`
	Stage         int     `json:"stage" validate:"omitempty,min=1,max=12"`
	Notes         string  `json:"notes"`
}

type ProjectUpdateRequest struct {
	ClientName    *string  `json:"client_name" validate:"omitempty,min=1,max=200"`
	ClientEmail   *string  `json:"client_email" validate:"omitempty,email"`
	ClientPhone   *string  `json:"client_phone" validate:"omitempty,max=32"`
	ClientAddress *string  `json:"client_address"`
	ServiceType   *string  `json:"service_type" validate:"omitempty,max=64"`
	ProjectValue  *float64 `json:"project_value" validate:"omitempty,gte=0"`
	Notes         *string  `json:"notes"`
}

type StageOverrideRequest struct {
	Stage  int    `json:"stage" validate:"required,min=1,max=12"`
	Reason string `json:"reason" validate:"max=500"`
}

type SendStageNotificationRequest struct {
	// Stage defaults to the project's current stage.
	Stage int `json:"stage" validate:"omitempty,min=1,max=12"`
}

type NotificationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending sent delivered opened clicked failed"`
}

type ProvisionOneDriveRequest struct {
	DriveID      string `json:"drive_id" validate:"required"`
	RootFolderID string `json:"root_folder_id" validate:"required"`
}

type StageUpdateRequest struct {
	TemplateID    *string `json:"template_id" validate:"omitempty,uuid"`
	ClearTemplate bool    `json:"clear_template"`
	AutoAdvance   *bool   `json:"auto_advance"`
	ReminderDays  *int    `json:"reminder_days" validate:"omitempty,min=0,max=365"`
	Description   *string `json:"description"`
}

type RoleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=admin manager staff viewer"`
}

type PreferencesRequest struct {
	EmailNotifications    *bool   `json:"email_notifications"`
	SMSNotifications      *bool   `json:"sms_notifications"`
	WhatsAppNotifications *bool   `json:"whatsapp_notifications"`
	Timezone              *string `json:"timezone" validate:"omitempty,timezone"`
}
