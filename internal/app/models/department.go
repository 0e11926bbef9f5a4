package models

// OrganizationalUnit is a node of the tenant's organogram. Units of type
// CLASS are mirrored 1:1 by an AcademicClass with the same name.
type OrganizationalUnit struct {
	ID           string   `json:"id"`
	TenantID     string   `json:"-"`
	SchoolID     string   `json:"schoolId"`
	Name         string   `json:"name"`
	Type         UnitType `json:"type"`
	IsAcademic   bool     `json:"isAcademic"`
	ParentUnitID *string  `json:"parentUnitId,omitempty"`
	BranchID     *string  `json:"branchId,omitempty"`
}

// IsClass reports whether the unit takes part in class mirroring
func (u *OrganizationalUnit) IsClass() bool {
	return u.Type == UnitTypeClass
}
