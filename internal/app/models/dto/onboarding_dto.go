package dto

import "github.com/yigit/eduadmin/internal/app/models"

// Collection kinds accepted by the onboarding replace endpoint
const (
	KindBranches    = "branches"
	KindDepartments = "departments"
	KindEmployees   = "employees"
	KindClasses     = "classes"
	KindSubjects    = "subjects"
	KindStudents    = "students"
)

// SchoolRequest represents the tenant's school details
type SchoolRequest struct {
	Name         string `json:"name" binding:"required" validate:"required"`
	Address      string `json:"address"`
	Email        string `json:"email" binding:"omitempty,email" validate:"omitempty,email"`
	Phone        string `json:"phone"`
	AcademicYear string `json:"academicYear"`
	Country      string `json:"country"`
}

// BranchInput describes one branch. The first branch of a replace is the head office.
type BranchInput struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// DepartmentInput describes one organizational unit
type DepartmentInput struct {
	Name             string    `json:"name" validate:"required"`
	Type             string    `json:"type"`
	IsAcademic       bool      `json:"isAcademic"`
	ParentDepartment Reference `json:"parentDepartment"`
	Branch           Reference `json:"branch"`
}

// EmployeeInput describes one staff member
type EmployeeInput struct {
	EmployeeID          string    `json:"employeeId"`
	Name                string    `json:"name" validate:"required"`
	Email               string    `json:"email" validate:"omitempty,email"`
	Phone               string    `json:"phone"`
	Role                string    `json:"role"`
	Department          Reference `json:"department"`
	Branch              Reference `json:"branch"`
	Class               Reference `json:"class"`
	CustomDepartment    string    `json:"customDepartment"`
	SubDepartment       string    `json:"subDepartment"`
	CustomSubDepartment string    `json:"customSubDepartment"`
}

// SectionInput describes a section inside a ClassInput
type SectionInput struct {
	Name                   string    `json:"name" validate:"required"`
	Capacity               int       `json:"capacity" validate:"gte=0"`
	Teacher                Reference `json:"teacher"`
	AssistantTeacher       Reference `json:"assistantTeacher"`
	CustomTeacher          string    `json:"customTeacher"`
	CustomAssistantTeacher string    `json:"customAssistantTeacher"`
	Building               string    `json:"building"`
	Floor                  string    `json:"floor"`
	Wing                   string    `json:"wing"`
}

// ClassInput describes one academic class and its sections
type ClassInput struct {
	Name       string         `json:"name" validate:"required"`
	Department Reference      `json:"department"`
	Branch     Reference      `json:"branch"`
	Sections   []SectionInput `json:"sections" validate:"dive"`
}

// SubjectInput describes one subject. Class is mandatory.
type SubjectInput struct {
	Name                   string    `json:"name" validate:"required"`
	Code                   string    `json:"code"`
	Class                  Reference `json:"class"`
	Section                Reference `json:"section"`
	Teacher                Reference `json:"teacher"`
	AssistantTeacher       Reference `json:"assistantTeacher"`
	CustomTeacher          string    `json:"customTeacher"`
	CustomAssistantTeacher string    `json:"customAssistantTeacher"`
}

// ParentInput describes one parent. ID is the client side key students use
// to point at it.
type ParentInput struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Type  string `json:"type" validate:"omitempty,oneof=father mother guardian"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// StudentInput describes one student. An empty AdmissionNumber is allocated.
type StudentInput struct {
	ID              string      `json:"id"`
	AdmissionNumber string      `json:"admissionNumber"`
	FirstName       string      `json:"firstName" validate:"required"`
	MiddleName      string      `json:"middleName"`
	LastName        string      `json:"lastName"`
	Gender          string      `json:"gender"`
	Email           string      `json:"email" validate:"omitempty,email"`
	Class           Reference   `json:"class"`
	Section         Reference   `json:"section"`
	Parents         []Reference `json:"parents"`
}

// StudentsAndParentsInput is the payload of the students replace
type StudentsAndParentsInput struct {
	Students []StudentInput `json:"students" validate:"dive"`
	Parents  []ParentInput  `json:"parents" validate:"dive"`
}

// StudentsAndParents is the reconciled result of a students replace
type StudentsAndParents struct {
	Students []models.Student `json:"students"`
	Parents  []models.Parent  `json:"parents"`
}

// OnboardingData is the full onboarding snapshot of a tenant
type OnboardingData struct {
	School      *models.School              `json:"school"`
	Branches    []models.Branch             `json:"branches"`
	Departments []models.OrganizationalUnit `json:"departments"`
	Employees   []models.Employee           `json:"employees"`
	Classes     []models.AcademicClass      `json:"classes"`
	Subjects    []models.Subject            `json:"subjects"`
	Students    []models.Student            `json:"students"`
	Parents     []models.Parent             `json:"parents"`
}

// RecordFailure reports one record a replace could not write
type RecordFailure struct {
	Index   int       `json:"index"`
	Name    string    `json:"name,omitempty"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// MirrorSummary reports the writes of an organizational mirror pass
type MirrorSummary struct {
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// ReplaceResponse is returned by every collection replace
type ReplaceResponse struct {
	Kind     string          `json:"kind"`
	Records  interface{}     `json:"records"`
	Failures []RecordFailure `json:"failures,omitempty"`
	Mirror   *MirrorSummary  `json:"mirror,omitempty"`
}
