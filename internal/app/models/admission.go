package models

import "time"

// AdmissionSettings is the per-tenant numbering and workflow configuration.
// NextNumber is a zero padded decimal string whose width is preserved on
// increment.
type AdmissionSettings struct {
	TenantID       string          `json:"-"`
	DocumentPrefix string          `json:"documentPrefix"`
	DocumentSuffix string          `json:"documentSuffix"`
	NextNumber     string          `json:"nextNumber"`
	ReferenceType  ReferenceType   `json:"referenceType"`
	CustomURL      string          `json:"customUrl,omitempty"`
	Workflow       []WorkflowStage `json:"workflow"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// WorkflowStage is one configured application status
type WorkflowStage struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	EmailTitle   string `json:"emailTitle,omitempty"`
	EmailContent string `json:"emailContent,omitempty"`
}

// StageFor returns the workflow stage whose status matches
func (s *AdmissionSettings) StageFor(status string) (WorkflowStage, bool) {
	for _, stage := range s.Workflow {
		if stage.Status == status {
			return stage, true
		}
	}
	return WorkflowStage{}, false
}

// FirstStatus is the status of new applications
func (s *AdmissionSettings) FirstStatus() string {
	if len(s.Workflow) == 0 {
		return StatusFormSubmitted
	}
	return s.Workflow[0].Status
}

// FinalStatus is the status an application needs before promotion
func (s *AdmissionSettings) FinalStatus() string {
	if len(s.Workflow) == 0 {
		return StatusAdmitted
	}
	return s.Workflow[len(s.Workflow)-1].Status
}

// Default workflow statuses
const (
	StatusFormSubmitted       = "Form Submitted"
	StatusUnderAssessment     = "Under Assessment"
	StatusAdmissionLetterSent = "Admission Letter Sent"
	StatusAwaitingPayment     = "Awaiting Payment"
	StatusAdmitted            = "Admitted"
)

// AdmissionApplication is a prospective student's application.
// ApplicationNumber is immutable once allocated.
type AdmissionApplication struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"-"`
	ApplicationNumber string     `json:"applicationNumber"`
	Status            string     `json:"status"`
	FirstName         string     `json:"firstName"`
	MiddleName        string     `json:"middleName,omitempty"`
	LastName          string     `json:"lastName"`
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	Gender            string     `json:"gender,omitempty"`
	Email             string     `json:"email,omitempty"`
	Class             string     `json:"class,omitempty"`
	Section           string     `json:"section,omitempty"`
	FatherName        string     `json:"fatherName,omitempty"`
	FatherEmail       string     `json:"fatherEmail,omitempty"`
	FatherPhone       string     `json:"fatherPhone,omitempty"`
	MotherName        string     `json:"motherName,omitempty"`
	MotherEmail       string     `json:"motherEmail,omitempty"`
	MotherPhone       string     `json:"motherPhone,omitempty"`
	GuardianName      string     `json:"guardianName,omitempty"`
	GuardianEmail     string     `json:"guardianEmail,omitempty"`
	GuardianPhone     string     `json:"guardianPhone,omitempty"`
	StudentID         *string    `json:"studentId,omitempty"`
	SubmittedAt       time.Time  `json:"submittedAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ApplicationFilter narrows ListApplications
type ApplicationFilter struct {
	Status string
	Class  string
	Search string
}
