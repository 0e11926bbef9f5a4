package models

// Employee is a staff member. CustomDepartment holds free text when the
// client picked "other" instead of a known unit.
type Employee struct {
	ID               string  `json:"id"`
	TenantID         string  `json:"-"`
	EmployeeCode     string  `json:"employeeId"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	Role             string  `json:"role"`
	DepartmentID     *string `json:"departmentId,omitempty"`
	BranchID         *string `json:"branchId,omitempty"`
	ClassID          *string `json:"classId,omitempty"`
	CustomDepartment *string `json:"customDepartment,omitempty"`
	SubDepartment    *string `json:"subDepartment,omitempty"`
}

// Subject is taught in a class, optionally in one of its sections
type Subject struct {
	ID                     string  `json:"id"`
	TenantID               string  `json:"-"`
	Name                   string  `json:"name"`
	Code                   string  `json:"code"`
	ClassID                string  `json:"classId"`
	SectionID              *string `json:"sectionId,omitempty"`
	TeacherID              *string `json:"teacherId,omitempty"`
	AssistantTeacherID     *string `json:"assistantTeacherId,omitempty"`
	CustomTeacher          *string `json:"customTeacher,omitempty"`
	CustomAssistantTeacher *string `json:"customAssistantTeacher,omitempty"`
}
