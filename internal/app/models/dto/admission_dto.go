package dto

import "time"

// WorkflowStageInput is one configured admission stage
type WorkflowStageInput struct {
	Title        string `json:"title" binding:"required"`
	Status       string `json:"status" binding:"required"`
	EmailTitle   string `json:"emailTitle"`
	EmailContent string `json:"emailContent"`
}

// AdmissionSettingsRequest updates a tenant's admission settings. Empty
// fields keep their stored value.
type AdmissionSettingsRequest struct {
	DocumentPrefix *string              `json:"documentPrefix"`
	DocumentSuffix *string              `json:"documentSuffix"`
	NextNumber     *string              `json:"nextNumber" binding:"omitempty,numeric"`
	ReferenceType  *string              `json:"referenceType" binding:"omitempty,oneof=prefix suffix"`
	CustomURL      *string              `json:"customUrl"`
	Workflow       []WorkflowStageInput `json:"workflow" binding:"omitempty,dive"`
}

// ApplicationInput represents a new admission application
type ApplicationInput struct {
	FirstName     string     `json:"firstName" binding:"required"`
	MiddleName    string     `json:"middleName"`
	LastName      string     `json:"lastName" binding:"required"`
	DateOfBirth   *time.Time `json:"dateOfBirth"`
	Gender        string     `json:"gender"`
	Email         string     `json:"email" binding:"omitempty,email"`
	Class         string     `json:"class"`
	Section       string     `json:"section"`
	FatherName    string     `json:"fatherName"`
	FatherEmail   string     `json:"fatherEmail" binding:"omitempty,email"`
	FatherPhone   string     `json:"fatherPhone"`
	MotherName    string     `json:"motherName"`
	MotherEmail   string     `json:"motherEmail" binding:"omitempty,email"`
	MotherPhone   string     `json:"motherPhone"`
	GuardianName  string     `json:"guardianName"`
	GuardianEmail string     `json:"guardianEmail" binding:"omitempty,email"`
	GuardianPhone string     `json:"guardianPhone"`
}

// UpdateStatusRequest moves one application to another stage
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BulkStatusRequest moves several applications to the same stage
type BulkStatusRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1,dive,uuid"`
	Status string   `json:"status" binding:"required"`
}

// BulkStatusResponse reports how many applications changed
type BulkStatusResponse struct {
	Updated int `json:"updated"`
}
