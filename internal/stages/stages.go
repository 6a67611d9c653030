// Package stages holds the fixed 12-stage project fulfilment pipeline and the
// mapping between stages and their OneDrive folder names.
package stages

import "strings"

const (
	First = 1
	Last  = 12
)

// Milestone names a project timestamp that is stamped when a stage is entered.
type Milestone string

const (
	MilestoneNone            Milestone = ""
	MilestoneMeasurement     Milestone = "measurement"
	MilestoneQuote           Milestone = "quote"
	MilestoneContractSigned  Milestone = "contract_signed"
	MilestoneMaterialOrdered Milestone = "material_ordered"
	MilestoneMaterialArrived Milestone = "material_arrived"
	MilestoneInstallation    Milestone = "installation"
	MilestoneCompletion      Milestone = "completion"
)

// Stage is one row of the pipeline.
type Stage struct {
	Number    int       `json:"number"`
	Name      string    `json:"name"`
	Folder    string    `json:"folder"`
	Milestone Milestone `json:"milestone,omitempty"`
}

var pipeline = [...]Stage{
	{1, "Initial Contact", "01_Initial_Contact", MilestoneNone},
	{2, "Measurement Scheduled", "02_Measurement_Scheduled", MilestoneNone},
	{3, "Measurement Complete", "03_Measurement_Complete", MilestoneMeasurement},
	{4, "Quote Sent", "04_Quote_Sent", MilestoneQuote},
	{5, "Contract Signed", "05_Contract_Signed", MilestoneContractSigned},
	{6, "Material Ordered", "06_Material_Ordered", MilestoneMaterialOrdered},
	{7, "Installation Scheduled", "07_Installation_Scheduled", MilestoneNone},
	{8, "Material Arrived", "08_Material_Arrived", MilestoneMaterialArrived},
	{9, "Installation In Progress", "09_Installation_In_Progress", MilestoneInstallation},
	{10, "Final Inspection", "10_Final_Inspection", MilestoneNone},
	{11, "Project Complete", "11_Project_Complete", MilestoneCompletion},
	{12, "Follow Up", "12_Follow_Up", MilestoneNone},
}

var byFolder = func() map[string]int {
	m := make(map[string]int, len(pipeline))
	for _, s := range pipeline {
		m[s.Folder] = s.Number
	}
	return m
}()

// Valid reports whether n is a pipeline stage number.
func Valid(n int) bool { return n >= First && n <= Last }

// StageForFolder returns the stage whose canonical folder is folderName.
// Matching is exact after trimming surrounding whitespace.
func StageForFolder(folderName string) (int, bool) {
	n, ok := byFolder[strings.TrimSpace(folderName)]
	return n, ok
}

// Get returns the stage definition for n.
func Get(n int) (Stage, bool) {
	if !Valid(n) {
		return Stage{}, false
	}
	return pipeline[n-1], true
}

// FolderForStage returns the canonical folder name of stage n.
func FolderForStage(n int) (string, bool) {
	s, ok := Get(n)
	return s.Folder, ok
}

// NameForStage returns the display name of stage n, or "" if n is unknown.
func NameForStage(n int) string {
	s, _ := Get(n)
	return s.Name
}

// MilestoneForStage returns the milestone stamped on entering stage n.
func MilestoneForStage(n int) Milestone {
	s, _ := Get(n)
	return s.Milestone
}

// All returns a copy of the pipeline in stage order.
func All() []Stage {
	out := make([]Stage, len(pipeline))
	copy(out, pipeline[:])
	return out
}
