package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hhi-dashboard/api/internal/stages"
)

// Project is a customer job moving through the fulfilment pipeline.
type Project struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrganizationID string    `gorm:"type:varchar(64);not null;index:idx_projects_org_active" json:"organization_id"`
	ClientName     string    `gorm:"not null;index" json:"client_name"`
	ClientEmail    string    `json:"client_email"`
	ClientPhone    string    `gorm:"type:varchar(32)" json:"client_phone"`
	ClientAddress  string    `gorm:"type:text" json:"client_address"`
	ServiceType    string    `gorm:"type:varchar(64);index" json:"service_type"`
	ProjectValue   float64   `gorm:"type:numeric(12,2);not null;default:0" json:"project_value"`
	CurrentStage   int       `gorm:"not null;default:1;check:chk_projects_current_stage,current_stage BETWEEN 1 AND 12" json:"current_stage"`
	StageUpdatedAt *time.Time `json:"stage_updated_at"`

	MeasurementDate     *time.Time `json:"measurement_date"`
	QuoteDate           *time.Time `json:"quote_date"`
	ContractSignedDate  *time.Time `json:"contract_signed_date"`
	MaterialOrderedDate *time.Time `json:"material_ordered_date"`
	MaterialArrivedDate *time.Time `json:"material_arrived_date"`
	InstallationDate    *time.Time `json:"installation_date"`
	CompletionDate      *time.Time `json:"completion_date"`

	IsActive  bool      `gorm:"not null;default:true;index:idx_projects_org_active" json:"is_active"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedBy string    `gorm:"type:varchar(64)" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MilestoneColumn returns the column stamped when m is reached.
func MilestoneColumn(m stages.Milestone) (string, bool) {
	switch m {
	case stages.MilestoneMeasurement:
		return "measurement_date", true
	case stages.MilestoneQuote:
		return "quote_date", true
	case stages.MilestoneContractSigned:
		return "contract_signed_date", true
	case stages.MilestoneMaterialOrdered:
		return "material_ordered_date", true
	case stages.MilestoneMaterialArrived:
		return "material_arrived_date", true
	case stages.MilestoneInstallation:
		return "installation_date", true
	case stages.MilestoneCompletion:
		return "completion_date", true
	}
	return "", false
}

// Milestone returns the timestamp recorded for m, nil if unset or unknown.
func (p *Project) Milestone(m stages.Milestone) *time.Time {
	switch m {
	case stages.MilestoneMeasurement:
		return p.MeasurementDate
	case stages.MilestoneQuote:
		return p.QuoteDate
	case stages.MilestoneContractSigned:
		return p.ContractSignedDate
	case stages.MilestoneMaterialOrdered:
		return p.MaterialOrderedDate
	case stages.MilestoneMaterialArrived:
		return p.MaterialArrivedDate
	case stages.MilestoneInstallation:
		return p.InstallationDate
	case stages.MilestoneCompletion:
		return p.CompletionDate
	}
	return nil
}
