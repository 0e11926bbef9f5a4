package models

import "time"

// School is the tenant anchor record. Bulk replaces refuse to run without it.
type School struct {
	ID                  string    `json:"id"`
	TenantID            string    `json:"-"`
	Name                string    `json:"name"`
	Address             string    `json:"address"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone"`
	AcademicYear        string    `json:"academicYear"`
	Country             string    `json:"country"`
	OnboardingCompleted bool      `json:"onboardingCompleted"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Branch is a campus of the school
type Branch struct {
	ID           string `json:"id"`
	TenantID     string `json:"-"`
	SchoolID     string `json:"schoolId"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	IsHeadOffice bool   `json:"isHeadOffice"`
}
