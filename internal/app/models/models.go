package models

// UnitType classifies an organizational unit
type UnitType string

const (
	UnitTypeParent     UnitType = "PARENT"
	UnitTypeDepartment UnitType = "DEPARTMENT"
	UnitTypeSub        UnitType = "SUB"
	UnitTypeClass      UnitType = "CLASS"
)

// ParseUnitType maps a client supplied type onto a known UnitType.
// Anything unrecognised becomes DEPARTMENT.
func ParseUnitType(raw string) UnitType {
	switch UnitType(raw) {
	case UnitTypeParent, UnitTypeDepartment, UnitTypeSub, UnitTypeClass:
		return UnitType(raw)
	}
	return UnitTypeDepartment
}

// ReferenceType selects the layout of an application number
type ReferenceType string

const (
	ReferenceTypePrefix ReferenceType = "prefix"
	ReferenceTypeSuffix ReferenceType = "suffix"
)

// EnrollmentStatus of a bus enrollment
type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentInactive EnrollmentStatus = "inactive"
)

// BusStatus of a school bus
type BusStatus string

const (
	BusActive   BusStatus = "active"
	BusInactive BusStatus = "inactive"
)

// ParentType is the relation of a parent record to its students
type ParentType string

const (
	ParentFather   ParentType = "father"
	ParentMother   ParentType = "mother"
	ParentGuardian ParentType = "guardian"
)

// Sentinel reference values clients send instead of an id or name
const (
	RefNone  = "none"
	RefOther = "other"
)
