package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/eduadmin/internal/app/models"
)

// Repository errors shared by every Store implementation
var (
	ErrNotFound = errors.New("record not found")
)

// Unique constraints services react to
const (
	ConstraintSchoolTenant       = "schools_tenant_id_key"
	ConstraintBranchName         = "branches_tenant_name_key"
	ConstraintUnitName           = "organizational_units_tenant_name_key"
	ConstraintClassName          = "academic_classes_tenant_name_key"
	ConstraintSectionName        = "sections_class_name_key"
	ConstraintEmployeeCode       = "employees_tenant_code_key"
	ConstraintAdmissionNumber    = "students_tenant_admission_number_key"
	ConstraintApplicationNumber  = "admission_applications_tenant_number_key"
	ConstraintActiveSeat         = "bus_enrollments_active_seat_key"
	ConstraintActiveStudentOnBus = "bus_enrollments_active_student_key"
)

// UniqueViolationError is returned when a write hits a unique constraint
type UniqueViolationError struct {
	Constraint string
	Err        error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint %s violated", e.Constraint)
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err is a violation of constraint
func IsUniqueViolation(err error, constraint string) bool {
	var uv *UniqueViolationError
	return errors.As(err, &uv) && uv.Constraint == constraint
}

// TxFn runs against one unit of work
type TxFn func(ctx context.Context, q Queries) error

// Store is the transactional entity store. Every call to WithTx is one
// transaction; returning an error from fn rolls all of its writes back.
type Store interface {
	WithTx(ctx context.Context, fn TxFn) error
}

// Queries is the set of tenant scoped operations available inside a transaction
type Queries interface {
	SchoolQueries
	OrganizationQueries
	StaffQueries
	StudentQueries
	AdmissionQueries
	TransportQueries

	// Savepoint runs fn in a nested unit of work. An error from fn undoes
	// only fn's writes; the enclosing transaction stays usable.
	Savepoint(ctx context.Context, fn TxFn) error
}

// SchoolQueries covers the tenant anchor record
type SchoolQueries interface {
	GetSchool(ctx context.Context, tenantID string) (*models.School, error)
	SaveSchool(ctx context.Context, school *models.School) error
}

// OrganizationQueries covers branches, organizational units, classes and sections
type OrganizationQueries interface {
	ListBranches(ctx context.Context, tenantID string) ([]models.Branch, error)
	CreateBranch(ctx context.Context, branch *models.Branch) error
	UpdateBranch(ctx context.Context, branch *models.Branch) error
	DeleteBranch(ctx context.Context, tenantID, id string) error

	ListUnits(ctx context.Context, tenantID string) ([]models.OrganizationalUnit, error)
	CreateUnit(ctx context.Context, unit *models.OrganizationalUnit) error
	UpdateUnit(ctx context.Context, unit *models.OrganizationalUnit) error
	DeleteUnit(ctx context.Context, tenantID, id string) error

	// ListClasses returns classes with their sections ordered by position
	ListClasses(ctx context.Context, tenantID string) ([]models.AcademicClass, error)
	CreateClass(ctx context.Context, class *models.AcademicClass) error
	// UpdateClass writes the class row only, sections are left alone
	UpdateClass(ctx context.Context, class *models.AcademicClass) error
	// DeleteClass removes the class and its sections
	DeleteClass(ctx context.Context, tenantID, id string) error

	CreateSection(ctx context.Context, section *models.Section) error
	UpdateSection(ctx context.Context, section *models.Section) error
	DeleteSection(ctx context.Context, tenantID, id string) error
}

// StaffQueries covers employees and subjects
type StaffQueries interface {
	ListEmployees(ctx context.Context, tenantID string) ([]models.Employee, error)
	CreateEmployee(ctx context.Context, employee *models.Employee) error
	UpdateEmployee(ctx context.Context, employee *models.Employee) error
	DeleteEmployee(ctx context.Context, tenantID, id string) error

	ListSubjects(ctx context.Context, tenantID string) ([]models.Subject, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
	UpdateSubject(ctx context.Context, subject *models.Subject) error
	DeleteSubject(ctx context.Context, tenantID, id string) error
}

// StudentQueries covers students, parents and their links
type StudentQueries interface {
	// ListStudents returns students with ParentIDs filled
	ListStudents(ctx context.Context, tenantID string) ([]models.Student, error)
	GetStudent(ctx context.Context, tenantID, id string) (*models.Student, error)
	CreateStudent(ctx context.Context, student *models.Student) error
	UpdateStudent(ctx context.Context, student *models.Student) error
	// DeleteStudent removes the student with its parent links and enrollments
	DeleteStudent(ctx context.Context, tenantID, id string) error
	// SetStudentParents replaces the parent links of one student
	SetStudentParents(ctx context.Context, tenantID, studentID string, parentIDs []string) error

	ListParents(ctx context.Context, tenantID string) ([]models.Parent, error)
	CreateParent(ctx context.Context, parent *models.Parent) error
	UpdateParent(ctx context.Context, parent *models.Parent) error
	// DeleteParent removes the parent and its student links
	DeleteParent(ctx context.Context, tenantID, id string) error
	FindParentByContact(ctx context.Context, tenantID, email, phone string) (*models.Parent, error)

	// LockAdmissionNumbers serializes admission number allocation for the
	// tenant until the transaction ends.
	LockAdmissionNumbers(ctx context.Context, tenantID string) error
	// AdmissionNumbers lists every admission number in use by the tenant
	AdmissionNumbers(ctx context.Context, tenantID string) ([]string, error)
}

// AdmissionQueries covers admission settings and applications
type AdmissionQueries interface {
	GetAdmissionSettings(ctx context.Context, tenantID string) (*models.AdmissionSettings, error)
	// LockAdmissionSettings reads the settings row and holds it locked until
	// the transaction ends.
	LockAdmissionSettings(ctx context.Context, tenantID string) (*models.AdmissionSettings, error)
	// EnsureAdmissionSettings inserts defaults unless the tenant already has a row
	EnsureAdmissionSettings(ctx context.Context, defaults *models.AdmissionSettings) error
	// SaveAdmissionSettings inserts or overwrites the tenant's settings row
	SaveAdmissionSettings(ctx context.Context, settings *models.AdmissionSettings) error

	CreateApplication(ctx context.Context, app *models.AdmissionApplication) error
	GetApplication(ctx context.Context, tenantID, id string) (*models.AdmissionApplication, error)
	// LockApplication reads the application and holds its row locked
	LockApplication(ctx context.Context, tenantID, id string) (*models.AdmissionApplication, error)
	ListApplications(ctx context.Context, tenantID string, filter models.ApplicationFilter) ([]models.AdmissionApplication, error)
	UpdateApplication(ctx context.Context, app *models.AdmissionApplication) error
	DeleteApplication(ctx context.Context, tenantID, id string) error
}

// TransportQueries covers buses, routes, stops and seat enrollments
type TransportQueries interface {
	CreateRoute(ctx context.Context, route *models.BusRoute) error
	GetRoute(ctx context.Context, tenantID, id string) (*models.BusRoute, error)
	GetStop(ctx context.Context, tenantID, id string) (*models.BusStop, error)

	CreateBus(ctx context.Context, bus *models.SchoolBus) error
	GetBus(ctx context.Context, tenantID, id string) (*models.SchoolBus, error)
	// LockBus reads the bus and holds its row locked. Every write to the
	// bus's active enrollment set takes this lock first.
	LockBus(ctx context.Context, tenantID, id string) (*models.SchoolBus, error)
	UpdateBusStatus(ctx context.Context, tenantID, id string, status models.BusStatus) error

	// ActiveSeatHolder returns the active enrollment on busID holding seat, or ErrNotFound
	ActiveSeatHolder(ctx context.Context, tenantID, busID string, seat int) (*models.BusEnrollment, error)
	// ActiveEnrollmentOf returns the student's active enrollment, or ErrNotFound
	ActiveEnrollmentOf(ctx context.Context, tenantID, studentID string) (*models.BusEnrollment, error)

	CreateEnrollment(ctx context.Context, enrollment *models.BusEnrollment) error
	GetEnrollment(ctx context.Context, tenantID, id string) (*models.BusEnrollment, error)
	UpdateEnrollment(ctx context.Context, enrollment *models.BusEnrollment) error
	ListEnrollments(ctx context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.BusEnrollment, error)
}
