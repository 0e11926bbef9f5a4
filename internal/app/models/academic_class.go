package models

// AcademicClass is a grade or form. Sections are ordered by Position.
type AcademicClass struct {
	ID                   string    `json:"id"`
	TenantID             string    `json:"-"`
	Name                 string    `json:"name"`
	OrganizationalUnitID *string   `json:"organizationalUnitId,omitempty"`
	BranchID             *string   `json:"branchId,omitempty"`
	Sections             []Section `json:"sections"`
}

// Section belongs to exactly one class
type Section struct {
	ID                 string  `json:"id"`
	TenantID           string  `json:"-"`
	ClassID            string  `json:"classId"`
	Name               string  `json:"name"`
	Capacity           int     `json:"capacity"`
	TeacherID          *string `json:"teacherId,omitempty"`
	AssistantTeacherID *string `json:"assistantTeacherId,omitempty"`
	// free text when the client picked "other"
	CustomTeacher          *string `json:"customTeacher,omitempty"`
	CustomAssistantTeacher *string `json:"customAssistantTeacher,omitempty"`
	Building               string  `json:"building,omitempty"`
	Floor                  string  `json:"floor,omitempty"`
	Wing                   string  `json:"wing,omitempty"`
	Position               int     `json:"position"`
}

// DefaultSectionName is used when a class is created without sections
const DefaultSectionName = "A"
