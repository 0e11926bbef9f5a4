package models

import "time"

// Student defines an enrolled learner of a tenant
type Student struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"-"`
	AdmissionNumber string    `json:"admissionNumber"`
	FirstName       string    `json:"firstName"`
	MiddleName      string    `json:"middleName,omitempty"`
	LastName        string    `json:"lastName"`
	Gender          string    `json:"gender,omitempty"`
	Email           string    `json:"email,omitempty"`
	ClassID         *string   `json:"classId,omitempty"`
	SectionID       *string   `json:"sectionId,omitempty"`
	ParentIDs       []string  `json:"parentIds"`
	CreatedAt       time.Time `json:"createdAt"`
}

// FullName joins the non-empty name parts
func (s *Student) FullName() string {
	name := s.FirstName
	for _, part := range []string{s.MiddleName, s.LastName} {
		if part != "" {
			name += " " + part
		}
	}
	return name
}

// Parent is a father, mother or guardian of one or more students
type Parent struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"-"`
	Name      string     `json:"name"`
	Type      ParentType `json:"type"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ParentStudent links a parent to a student
type ParentStudent struct {
	ParentID  string `json:"parentId"`
	StudentID string `json:"studentId"`
}
