package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
	"github.com/yigit/eduadmin/internal/pkg/metrics"
	"github.com/yigit/eduadmin/internal/pkg/validation"
)

// ReplaceOutcome is the result of ReplaceCollection. Records holds the
// tenant's collection after the replace committed.
type ReplaceOutcome struct {
	Kind    string
	Records interface{}
	Mirror  *MirrorReport
}

// OnboardingService replaces a tenant's organizational collections with
// client supplied desired state
type OnboardingService struct {
	store           repositories.Store
	mirror          *MirrorService
	allocator       *SequenceAllocator
	validate        *validator.Validate
	sectionCapacity int
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewOnboardingService creates a new OnboardingService
func NewOnboardingService(
	store repositories.Store,
	mirror *MirrorService,
	allocator *SequenceAllocator,
	sectionCapacity int,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *OnboardingService {
	return &OnboardingService{
		store:           store,
		mirror:          mirror,
		allocator:       allocator,
		validate:        validation.New(),
		sectionCapacity: sectionCapacity,
		metrics:         m,
		logger:          logger,
	}
}

// SaveSchool creates or updates the tenant's school record
func (s *OnboardingService) SaveSchool(ctx context.Context, tenantID string, req dto.SchoolRequest) (*models.School, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.NewValidationError(validation.Message(err))
	}

	var school *models.School
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		school = &models.School{TenantID: tenantID}
		if existing, err := q.GetSchool(ctx, tenantID); err == nil {
			school.OnboardingCompleted = existing.OnboardingCompleted
		} else if !isNotFound(err) {
			return err
		}
		school.Name = strings.TrimSpace(req.Name)
		school.Address = req.Address
		school.Email = req.Email
		school.Phone = req.Phone
		school.AcademicYear = req.AcademicYear
		school.Country = req.Country
		return q.SaveSchool(ctx, school)
	})
	if err != nil {
		return nil, storeError(err, "school")
	}
	return school, nil
}

// CompleteOnboarding marks the tenant's onboarding as finished
func (s *OnboardingService) CompleteOnboarding(ctx context.Context, tenantID string) (*models.School, error) {
	var school *models.School
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		if school, err = q.GetSchool(ctx, tenantID); err != nil {
			return schoolError(err)
		}
		school.OnboardingCompleted = true
		return q.SaveSchool(ctx, school)
	})
	if err != nil {
		return nil, storeError(err, "school")
	}
	return school, nil
}

// GetOnboardingData reads every onboarding collection of the tenant in one
// transaction
func (s *OnboardingService) GetOnboardingData(ctx context.Context, tenantID string) (*dto.OnboardingData, error) {
	data := &dto.OnboardingData{}
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		school, err := q.GetSchool(ctx, tenantID)
		switch {
		case err == nil:
			data.School = school
		case !isNotFound(err):
			return err
		}
		if data.Branches, err = q.ListBranches(ctx, tenantID); err != nil {
			return err
		}
		if data.Departments, err = q.ListUnits(ctx, tenantID); err != nil {
			return err
		}
		if data.Employees, err = q.ListEmployees(ctx, tenantID); err != nil {
			return err
		}
		if data.Classes, err = q.ListClasses(ctx, tenantID); err != nil {
			return err
		}
		if data.Subjects, err = q.ListSubjects(ctx, tenantID); err != nil {
			return err
		}
		if data.Students, err = q.ListStudents(ctx, tenantID); err != nil {
			return err
		}
		data.Parents, err = q.ListParents(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding data: %w", err)
	}
	return data, nil
}

// ReplaceCollection decodes raw as the input list of kind and replaces the
// tenant's collection with it. The outcome is returned whenever the replace
// committed, together with any per-record or mirror error.
func (s *OnboardingService) ReplaceCollection(ctx context.Context, tenantID, kind string, raw json.RawMessage) (*ReplaceOutcome, error) {
	outcome := &ReplaceOutcome{Kind: kind}
	var err error

	switch kind {
	case dto.KindBranches:
		var in []dto.BranchInput
		if err := decodeRecords(raw, &in); err != nil {
			return nil, err
		}
		outcome.Records, err = s.ReplaceBranches(ctx, tenantID, in)
	case dto.KindDepartments:
		var in []dto.DepartmentInput
		if err := decodeRecords(raw, &in); err != nil {
			return nil, err
		}
		outcome.Records, outcome.Mirror, err = s.replaceDepartments(ctx, tenantID, in)
	case dto.KindEmployees:
		var in []dto.EmployeeInput
		if err := decodeRecords(raw, &in); err != nil {
			return nil, err
		}
		outcome.Records, err = s.ReplaceEmployees(ctx, tenantID, in)
	case dto.KindClasses:
		var in []dto.ClassInput
		if err := decodeRecords(raw, &in); err != nil {
			return nil, err
		}
		outcome.Records, outcome.Mirror, err = s.replaceClasses(ctx, tenantID, in)
	case dto.KindSubjects:
		var in []dto.SubjectInput
		if err := decodeRecords(raw, &in); err != nil {
			return nil, err
		}
		outcome.Records, err = s.ReplaceSubjects(ctx, tenantID, in)
	case dto.KindStudents:
		var in dto.StudentsAndParentsInput
		if err := decodeRecords(raw, &in); err != nil {
			return nil, err
		}
		outcome.Records, err = s.ReplaceStudentsAndParents(ctx, tenantID, in)
	default:
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown collection %q", kind))
	}

	if err != nil && !committed(err) {
		return nil, err
	}
	return outcome, err
}

func decodeRecords(raw json.RawMessage, out interface{}) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewBadRequestError(fmt.Sprintf("invalid records: %v", err))
	}
	return nil
}

// committed reports whether err came from a replace whose transaction
// committed: per-record failures and mirror failures leave the writes in place
func committed(err error) bool {
	var batch *apperrors.BatchError
	return errors.As(err, &batch) || errors.Is(err, apperrors.ErrMirrorSync)
}

// runReplace runs fn in one transaction after checking the tenant's school
// exists. Records fn reports in failures were rolled back alone; the rest
// commit and the BatchError is returned with the result.
func runReplace[T any](
	ctx context.Context,
	s *OnboardingService,
	tenantID, kind string,
	fn func(ctx context.Context, q repositories.Queries, school *models.School, failures *apperrors.BatchError) (T, error),
) (T, error) {
	var (
		result   T
		failures *apperrors.BatchError
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		failures = &apperrors.BatchError{Kind: kind}
		school, err := q.GetSchool(ctx, tenantID)
		if err != nil {
			return schoolError(err)
		}
		result, err = fn(ctx, q, school, failures)
		return err
	})
	if err != nil {
		var zero T
		s.metrics.Replaces.WithLabelValues(kind, "failed").Inc()
		s.logger.Error().Err(err).Str("tenantID", tenantID).Str("kind", kind).Msg("Collection replace failed")
		return zero, err
	}

	outcome := "ok"
	if n := len(failures.Failures); n > 0 {
		outcome = "partial"
		s.metrics.RecordFailures.WithLabelValues(kind).Add(float64(n))
		s.logger.Warn().Str("tenantID", tenantID).Str("kind", kind).Int("failed", n).Msg("Collection replaced with failed records")
	}
	s.metrics.Replaces.WithLabelValues(kind, outcome).Inc()
	return result, failures.OrNil()
}

// admit validates one input record and rejects repeats within the batch
func (s *OnboardingService) admit(failures *apperrors.BatchError, index int, name string, input interface{}, dup bool) bool {
	if err := s.validate.Struct(input); err != nil {
		failures.Add(index, name, apperrors.NewValidationError(validation.Message(err)))
		return false
	}
	if dup {
		failures.Add(index, name, duplicateError(name))
		return false
	}
	return true
}

func (s *OnboardingService) unresolved(tenantID, kind, record, field string, ref dto.Reference) {
	if ref.IsEmpty() || ref.Is(models.RefNone) || ref.Is(models.RefOther) {
		return
	}
	s.logger.Warn().
		Str("tenantID", tenantID).
		Str("kind", kind).
		Str("record", record).
		Str("field", field).
		Str("reference", ref.String()).
		Msg("Reference not found, stored as empty")
}

func (s *OnboardingService) resolveOptional(idx *referenceIndex, tenantID, kind, record, field string, ref dto.Reference) *string {
	id := idx.resolvePtr(ref)
	if id == nil {
		s.unresolved(tenantID, kind, record, field, ref)
	}
	return id
}

// runMirror converges the class pairing after a committed replace
func (s *OnboardingService) runMirror(ctx context.Context, tenantID string, source MirrorSource) (*MirrorReport, error) {
	report, err := s.mirror.Sync(ctx, tenantID, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMirrorSync, err)
	}
	return &report, nil
}

// ReplaceBranches replaces the tenant's branches. The first branch is the
// head office.
func (s *OnboardingService) ReplaceBranches(ctx context.Context, tenantID string, inputs []dto.BranchInput) ([]models.Branch, error) {
	return runReplace(ctx, s, tenantID, dto.KindBranches, func(ctx context.Context, q repositories.Queries, school *models.School, failures *apperrors.BatchError) ([]models.Branch, error) {
		existing, err := q.ListBranches(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		diff := planDiff(existing, inputs, diffKeys[models.Branch, dto.BranchInput]{
			existing: func(b *models.Branch) []string { return []string{nameKey(b.Name)} },
			input:    func(in *dto.BranchInput) []string { return []string{nameKey(in.Name)} },
		})

		for _, b := range diff.stale {
			if err := q.DeleteBranch(ctx, tenantID, b.ID); err != nil {
				return nil, fmt.Errorf("failed to delete branch %s: %w", b.Name, err)
			}
		}

		for i, in := range inputs {
			if !s.admit(failures, i, in.Name, in, diff.dup[i]) {
				continue
			}
			branch := &models.Branch{
				TenantID:     tenantID,
				SchoolID:     school.ID,
				Name:         strings.TrimSpace(in.Name),
				Address:      in.Address,
				Phone:        in.Phone,
				Email:        in.Email,
				IsHeadOffice: i == 0,
			}
			match := diff.matched[i]
			writeRecord(ctx, q, failures, i, in.Name, func(ctx context.Context, q repositories.Queries) error {
				if match != nil {
					branch.ID = match.ID
					return q.UpdateBranch(ctx, branch)
				}
				return q.CreateBranch(ctx, branch)
			})
		}

		return q.ListBranches(ctx, tenantID)
	})
}

// ReplaceDepartments replaces the tenant's organogram. Parents are linked in
// a second pass so a child may precede its parent in the input. CLASS units
// are then mirrored onto academic classes.
func (s *OnboardingService) ReplaceDepartments(ctx context.Context, tenantID string, inputs []dto.DepartmentInput) ([]models.OrganizationalUnit, error) {
	units, _, err := s.replaceDepartments(ctx, tenantID, inputs)
	return units, err
}

func (s *OnboardingService) replaceDepartments(ctx context.Context, tenantID string, inputs []dto.DepartmentInput) ([]models.OrganizationalUnit, *MirrorReport, error) {
	const kind = dto.KindDepartments
	units, err := runReplace(ctx, s, tenantID, kind, func(ctx context.Context, q repositories.Queries, school *models.School, failures *apperrors.BatchError) ([]models.OrganizationalUnit, error) {
		existing, err := q.ListUnits(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		branchList, err := q.ListBranches(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		branches := newReferenceIndex()
		for _, b := range branchList {
			branches.add(b.ID, b.Name)
		}

		diff := planDiff(existing, inputs, diffKeys[models.OrganizationalUnit, dto.DepartmentInput]{
			existing: func(u *models.OrganizationalUnit) []string { return []string{nameKey(u.Name)} },
			input:    func(in *dto.DepartmentInput) []string { return []string{nameKey(in.Name)} },
		})

		deleted := make(map[string]bool, len(diff.stale))
		for _, u := range diff.stale {
			if err := q.DeleteUnit(ctx, tenantID, u.ID); err != nil {
				return nil, fmt.Errorf("failed to delete department %s: %w", u.Name, err)
			}
			deleted[u.ID] = true
		}

		// pass 1: every node without touching parent links
		written := make([]*models.OrganizationalUnit, len(inputs))
		for i, in := range inputs {
			if !s.admit(failures, i, in.Name, in, diff.dup[i]) {
				continue
			}
			unitType := models.ParseUnitType(in.Type)
			unit := &models.OrganizationalUnit{
				TenantID:   tenantID,
				SchoolID:   school.ID,
				Name:       strings.TrimSpace(in.Name),
				Type:       unitType,
				IsAcademic: in.IsAcademic || unitType == models.UnitTypeClass,
				BranchID:   s.resolveOptional(branches, tenantID, kind, in.Name, "branch", in.Branch),
			}
			match := diff.matched[i]
			ok := writeRecord(ctx, q, failures, i, in.Name, func(ctx context.Context, q repositories.Queries) error {
				if match != nil {
					unit.ID = match.ID
					if !deleted[deref(match.ParentUnitID)] {
						unit.ParentUnitID = match.ParentUnitID
					}
					return q.UpdateUnit(ctx, unit)
				}
				return q.CreateUnit(ctx, unit)
			})
			if ok {
				written[i] = unit
			}
		}

		// pass 2: parent links by id or name
		all, err := q.ListUnits(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		parents := newReferenceIndex()
		for _, u := range all {
			parents.add(u.ID, u.Name)
		}
		for i, in := range inputs {
			unit := written[i]
			if unit == nil {
				continue
			}
			parentID := s.resolveOptional(parents, tenantID, kind, in.Name, "parentDepartment", in.ParentDepartment)
			if parentID != nil && *parentID == unit.ID {
				parentID = nil
			}
			if sameRef(parentID, unit.ParentUnitID) {
				continue
			}
			unit.ParentUnitID = parentID
			writeRecord(ctx, q, failures, i, in.Name, func(ctx context.Context, q repositories.Queries) error {
				return q.UpdateUnit(ctx, unit)
			})
		}

		return q.ListUnits(ctx, tenantID)
	})
	if err != nil && !committed(err) {
		return nil, nil, err
	}

	report, mirrorErr := s.runMirror(ctx, tenantID, MirrorFromUnits)
	if mirrorErr == nil {
		// the mirror may have touched classes only, units are unchanged
		return units, report, err
	}
	return units, nil, errors.Join(err, mirrorErr)
}

const employeeCodePrefix = "EMP"

// employeeCodes hands out codes for employees the client sent without one,
// numbered above every EMP code already stored or submitted
type employeeCodes struct {
	next uint64
}

func newEmployeeCodes(existing []models.Employee, inputs []dto.EmployeeInput) *employeeCodes {
	var highest uint64
	consider := func(code string) {
		code = strings.ToUpper(strings.TrimSpace(code))
		if !strings.HasPrefix(code, employeeCodePrefix) {
			return
		}
		if n, ok := trailingNumber(code); ok && n > highest {
			highest = n
		}
	}
	for _, e := range existing {
		consider(e.EmployeeCode)
	}
	for _, in := range inputs {
		consider(in.EmployeeID)
	}
	return &employeeCodes{next: highest + 1}
}

func (c *employeeCodes) take() string {
	code := fmt.Sprintf("%s%03d", employeeCodePrefix, c.next)
	c.next++
	return code
}

// ReplaceEmployees replaces the tenant's staff list. A department of "other"
// keeps the client's free text in CustomDepartment.
func (s *OnboardingService) ReplaceEmployees(ctx context.Context, tenantID string, inputs []dto.EmployeeInput) ([]models.Employee, error) {
	const kind = dto.KindEmployees
	return runReplace(ctx, s, tenantID, kind, func(ctx context.Context, q repositories.Queries, _ *models.School, failures *apperrors.BatchError) ([]models.Employee, error) {
		existing, err := q.ListEmployees(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		departments, branches, classes, err := organizationIndexes(ctx, q, tenantID)
		if err != nil {
			return nil, err
		}

		diff := planDiff(existing, inputs, diffKeys[models.Employee, dto.EmployeeInput]{
			existing: func(e *models.Employee) []string {
				return []string{codeKey(e.EmployeeCode), nameKey(e.Name)}
			},
			input: func(in *dto.EmployeeInput) []string {
				return []string{codeKey(in.EmployeeID), nameKey(in.Name)}
			},
		})

		for _, e := range diff.stale {
			if err := q.DeleteEmployee(ctx, tenantID, e.ID); err != nil {
				return nil, fmt.Errorf("failed to delete employee %s: %w", e.Name, err)
			}
		}

		codes := newEmployeeCodes(existing, inputs)
		for i, in := range inputs {
			if !s.admit(failures, i, in.Name, in, diff.dup[i]) {
				continue
			}
			match := diff.matched[i]
			employee := &models.Employee{
				TenantID:     tenantID,
				EmployeeCode: strings.TrimSpace(in.EmployeeID),
				Name:         strings.TrimSpace(in.Name),
				Email:        in.Email,
				Phone:        in.Phone,
				Role:         in.Role,
				BranchID:     s.resolveOptional(branches, tenantID, kind, in.Name, "branch", in.Branch),
				ClassID:      s.resolveOptional(classes, tenantID, kind, in.Name, "class", in.Class),
			}
			if in.Department.Is(models.RefOther) {
				employee.CustomDepartment = optional(in.CustomDepartment)
			} else {
				employee.DepartmentID = s.resolveOptional(departments, tenantID, kind, in.Name, "department", in.Department)
			}
			if strings.EqualFold(in.SubDepartment, models.RefOther) {
				employee.SubDepartment = optional(in.CustomSubDepartment)
			} else {
				employee.SubDepartment = optional(in.SubDepartment)
			}
			if employee.EmployeeCode == "" {
				if match != nil {
					employee.EmployeeCode = match.EmployeeCode
				} else {
					employee.EmployeeCode = codes.take()
				}
			}

			writeRecord(ctx, q, failures, i, in.Name, func(ctx context.Context, q repositories.Queries) error {
				if match != nil {
					employee.ID = match.ID
					return q.UpdateEmployee(ctx, employee)
				}
				return q.CreateEmployee(ctx, employee)
			})
		}

		return q.ListEmployees(ctx, tenantID)
	})
}

func codeKey(code string) string {
	if code = strings.TrimSpace(code); code == "" {
		return ""
	}
	return "code:" + code
}

// organizationIndexes indexes the tenant's units, branches and classes
func organizationIndexes(ctx context.Context, q repositories.Queries, tenantID string) (units, branches, classes *referenceIndex, err error) {
	units, branches, classes = newReferenceIndex(), newReferenceIndex(), newReferenceIndex()

	unitList, err := q.ListUnits(ctx, tenantID)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, u := range unitList {
		units.add(u.ID, u.Name)
	}
	branchList, err := q.ListBranches(ctx, tenantID)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, b := range branchList {
		branches.add(b.ID, b.Name)
	}
	classList, err := q.ListClasses(ctx, tenantID)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, c := range classList {
		classes.add(c.ID, c.Name)
	}
	return units, branches, classes, nil
}

func employeeIndex(ctx context.Context, q repositories.Queries, tenantID string) (*referenceIndex, error) {
	employees, err := q.ListEmployees(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	idx := newReferenceIndex()
	for _, e := range employees {
		idx.add(e.ID, e.Name)
		idx.alias(e.EmployeeCode, e.ID)
	}
	return idx, nil
}

// teacherRefs fills a teacher id, or the free text name when the client
// picked "other"
func (s *OnboardingService) teacherRefs(teachers *referenceIndex, tenantID, kind, record, field string, ref dto.Reference, custom string) (id, customName *string) {
	if ref.Is(models.RefOther) {
		return nil, optional(custom)
	}
	return s.resolveOptional(teachers, tenantID, kind, record, field, ref), nil
}

// ReplaceClasses replaces the tenant's academic classes and their sections.
// A class sent without sections gets the default section. CLASS units are
// then mirrored from the classes.
func (s *OnboardingService) ReplaceClasses(ctx context.Context, tenantID string, inputs []dto.ClassInput) ([]models.AcademicClass, error) {
	classes, _, err := s.replaceClasses(ctx, tenantID, inputs)
	return classes, err
}

func (s *OnboardingService) replaceClasses(ctx context.Context, tenantID string, inputs []dto.ClassInput) ([]models.AcademicClass, *MirrorReport, error) {
	const kind = dto.KindClasses
	classes, err := runReplace(ctx, s, tenantID, kind, func(ctx context.Context, q repositories.Queries, _ *models.School, failures *apperrors.BatchError) ([]models.AcademicClass, error) {
		existing, err := q.ListClasses(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		unitList, err := q.ListUnits(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		_, branches, _, err := organizationIndexes(ctx, q, tenantID)
		if err != nil {
			return nil, err
		}
		teachers, err := employeeIndex(ctx, q, tenantID)
		if err != nil {
			return nil, err
		}

		units := newReferenceIndex()
		unitByID := make(map[string]models.OrganizationalUnit, len(unitList))
		for _, u := range unitList {
			units.add(u.ID, u.Name)
			unitByID[u.ID] = u
		}

		diff := planDiff(existing, inputs, diffKeys[models.AcademicClass, dto.ClassInput]{
			existing: func(c *models.AcademicClass) []string { return []string{nameKey(c.Name)} },
			input:    func(in *dto.ClassInput) []string { return []string{nameKey(in.Name)} },
		})

		for _, c := range diff.stale {
			if err := q.DeleteClass(ctx, tenantID, c.ID); err != nil {
				return nil, fmt.Errorf("failed to delete class %s: %w", c.Name, err)
			}
		}

		for i, in := range inputs {
			if !s.admit(failures, i, in.Name, in, diff.dup[i]) {
				continue
			}
			name := strings.TrimSpace(in.Name)
			match := diff.matched[i]
			class := &models.AcademicClass{
				TenantID: tenantID,
				Name:     name,
				BranchID: s.resolveOptional(branches, tenantID, kind, name, "branch", in.Branch),
			}
			if match != nil {
				class.OrganizationalUnitID = match.OrganizationalUnitID
			}
			// only the same named CLASS unit can mirror a class
			if unitID, ok := units.resolve(in.Department); ok {
				if u := unitByID[unitID]; u.IsClass() && u.Name == name {
					class.OrganizationalUnitID = &u.ID
				} else {
					s.logger.Warn().Str("tenantID", tenantID).Str("class", name).Str("department", u.Name).
						Msg("Class department is not its CLASS unit, ignored")
				}
			}

			sections, keepDefault := s.desiredSections(teachers, tenantID, name, in.Sections)
			writeRecord(ctx, q, failures, i, name, func(ctx context.Context, q repositories.Queries) error {
				if match == nil {
					class.Sections = sections
					return q.CreateClass(ctx, class)
				}
				class.ID = match.ID
				if err := q.UpdateClass(ctx, class); err != nil {
					return err
				}
				return reconcileSections(ctx, q, class, match.Sections, sections, keepDefault)
			})
		}

		return q.ListClasses(ctx, tenantID)
	})
	if err != nil && !committed(err) {
		return nil, nil, err
	}

	report, mirrorErr := s.runMirror(ctx, tenantID, MirrorFromClasses)
	if mirrorErr != nil {
		return classes, nil, errors.Join(err, mirrorErr)
	}
	return classes, report, err
}

// desiredSections converts section inputs. With no input the desired state
// is the default section, and keepDefault asks to leave an existing one as is.
func (s *OnboardingService) desiredSections(teachers *referenceIndex, tenantID, className string, inputs []dto.SectionInput) ([]models.Section, bool) {
	if len(inputs) == 0 {
		return []models.Section{{
			TenantID: tenantID,
			Name:     models.DefaultSectionName,
			Capacity: s.sectionCapacity,
		}}, true
	}

	sections := make([]models.Section, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if seen[name] {
			s.logger.Warn().Str("tenantID", tenantID).Str("class", className).Str("section", name).Msg("Duplicate section dropped")
			continue
		}
		seen[name] = true

		record := className + "/" + name
		section := models.Section{
			TenantID: tenantID,
			Name:     name,
			Capacity: in.Capacity,
			Building: in.Building,
			Floor:    in.Floor,
			Wing:     in.Wing,
			Position: i,
		}
		if section.Capacity <= 0 {
			section.Capacity = s.sectionCapacity
		}
		section.TeacherID, section.CustomTeacher = s.teacherRefs(teachers, tenantID, dto.KindClasses, record, "teacher", in.Teacher, in.CustomTeacher)
		section.AssistantTeacherID, section.CustomAssistantTeacher = s.teacherRefs(teachers, tenantID, dto.KindClasses, record, "assistantTeacher", in.AssistantTeacher, in.CustomAssistantTeacher)
		sections = append(sections, section)
	}
	return sections, false
}

// reconcileSections diffs a class's sections by name: removed sections go
// first, matches are updated in place, new ones created
func reconcileSections(ctx context.Context, q repositories.Queries, class *models.AcademicClass, existing, desired []models.Section, keepDefault bool) error {
	diff := planDiff(existing, desired, diffKeys[models.Section, models.Section]{
		existing: func(sec *models.Section) []string { return []string{nameKey(sec.Name)} },
		input:    func(sec *models.Section) []string { return []string{nameKey(sec.Name)} },
	})

	for _, sec := range diff.stale {
		if err := q.DeleteSection(ctx, class.TenantID, sec.ID); err != nil {
			return fmt.Errorf("failed to delete section %s: %w", sec.Name, err)
		}
	}

	for i := range desired {
		section := desired[i]
		section.ClassID = class.ID
		if match := diff.matched[i]; match != nil {
			if keepDefault {
				continue
			}
			section.ID = match.ID
			if err := q.UpdateSection(ctx, &section); err != nil {
				return fmt.Errorf("failed to update section %s: %w", section.Name, err)
			}
			continue
		}
		if err := q.CreateSection(ctx, &section); err != nil {
			return fmt.Errorf("failed to create section %s: %w", section.Name, err)
		}
	}
	return nil
}

// ReplaceSubjects replaces the tenant's subjects. Every subject must name a
// class it is taught in; the section is looked up within that class.
func (s *OnboardingService) ReplaceSubjects(ctx context.Context, tenantID string, inputs []dto.SubjectInput) ([]models.Subject, error) {
	const kind = dto.KindSubjects
	return runReplace(ctx, s, tenantID, kind, func(ctx context.Context, q repositories.Queries, _ *models.School, failures *apperrors.BatchError) ([]models.Subject, error) {
		existing, err := q.ListSubjects(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		classList, err := q.ListClasses(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		teachers, err := employeeIndex(ctx, q, tenantID)
		if err != nil {
			return nil, err
		}

		classes := newReferenceIndex()
		sectionsOf := make(map[string]*referenceIndex, len(classList))
		for _, c := range classList {
			classes.add(c.ID, c.Name)
			sections := newReferenceIndex()
			for _, sec := range c.Sections {
				sections.add(sec.ID, sec.Name)
			}
			sectionsOf[c.ID] = sections
		}

		rows := make([]subjectRow, len(inputs))
		for i, in := range inputs {
			rows[i].classID, _ = classes.resolve(in.Class)
			rows[i].name = strings.TrimSpace(in.Name)
		}

		diff := planDiff(existing, rows, diffKeys[models.Subject, subjectRow]{
			existing: func(sub *models.Subject) []string {
				return []string{subjectKey(sub.Name, sub.ClassID)}
			},
			input: func(row *subjectRow) []string {
				return []string{subjectKey(row.name, row.classID)}
			},
		})

		for _, sub := range diff.stale {
			if err := q.DeleteSubject(ctx, tenantID, sub.ID); err != nil {
				return nil, fmt.Errorf("failed to delete subject %s: %w", sub.Name, err)
			}
		}

		for i, in := range inputs {
			name, classID := rows[i].name, rows[i].classID
			if !s.admit(failures, i, name, in, diff.dup[i]) {
				continue
			}
			if classID == "" {
				failures.Add(i, name, apperrors.NewValidationGapError("Class not found for subject: "+name))
				continue
			}

			subject := &models.Subject{
				TenantID:  tenantID,
				Name:      name,
				Code:      strings.TrimSpace(in.Code),
				ClassID:   classID,
				SectionID: s.resolveOptional(sectionsOf[classID], tenantID, kind, name, "section", in.Section),
			}
			subject.TeacherID, subject.CustomTeacher = s.teacherRefs(teachers, tenantID, kind, name, "teacher", in.Teacher, in.CustomTeacher)
			subject.AssistantTeacherID, subject.CustomAssistantTeacher = s.teacherRefs(teachers, tenantID, kind, name, "assistantTeacher", in.AssistantTeacher, in.CustomAssistantTeacher)

			match := diff.matched[i]
			writeRecord(ctx, q, failures, i, name, func(ctx context.Context, q repositories.Queries) error {
				if match != nil {
					subject.ID = match.ID
					return q.UpdateSubject(ctx, subject)
				}
				return q.CreateSubject(ctx, subject)
			})
		}

		return q.ListSubjects(ctx, tenantID)
	})
}

func subjectKey(name, classID string) string {
	if name = strings.TrimSpace(name); name == "" || classID == "" {
		return ""
	}
	return "subject:" + name + "|" + classID
}

// subjectRow is a subject input with its class already resolved
type subjectRow struct {
	name    string
	classID string
}

// ReplaceStudentsAndParents replaces the tenant's parents and then its
// students. Students point at parents by id, client side key or name.
// Students without an admission number get the next free one.
func (s *OnboardingService) ReplaceStudentsAndParents(ctx context.Context, tenantID string, input dto.StudentsAndParentsInput) (*dto.StudentsAndParents, error) {
	const kind = dto.KindStudents
	return runReplace(ctx, s, tenantID, kind, func(ctx context.Context, q repositories.Queries, _ *models.School, failures *apperrors.BatchError) (*dto.StudentsAndParents, error) {
		existingParents, err := q.ListParents(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		existingStudents, err := q.ListStudents(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		classList, err := q.ListClasses(ctx, tenantID)
		if err != nil {
			return nil, err
		}

		parentDiff := planDiff(existingParents, input.Parents, diffKeys[models.Parent, dto.ParentInput]{
			existing: func(p *models.Parent) []string {
				return []string{idKey(p.ID), emailKey(p.Email), nameKey(p.Name)}
			},
			input: func(in *dto.ParentInput) []string {
				return []string{idKey(in.ID), emailKey(in.Email), nameKey(in.Name)}
			},
		})
		studentDiff := planDiff(existingStudents, input.Students, diffKeys[models.Student, dto.StudentInput]{
			existing: func(st *models.Student) []string {
				return []string{admissionKey(st.AdmissionNumber), idKey(st.ID), nameKey(st.FullName())}
			},
			input: func(in *dto.StudentInput) []string {
				return []string{admissionKey(in.AdmissionNumber), idKey(in.ID), nameKey(studentName(in))}
			},
			identity: func(in *dto.StudentInput) string {
				return firstKey([]string{admissionKey(in.AdmissionNumber), idKey(in.ID)})
			},
		})

		// students first: their enrollments and parent links go with them
		for _, st := range studentDiff.stale {
			if err := q.DeleteStudent(ctx, tenantID, st.ID); err != nil {
				return nil, fmt.Errorf("failed to delete student %s: %w", st.AdmissionNumber, err)
			}
		}
		for _, p := range parentDiff.stale {
			if err := q.DeleteParent(ctx, tenantID, p.ID); err != nil {
				return nil, fmt.Errorf("failed to delete parent %s: %w", p.Name, err)
			}
		}

		parents := newReferenceIndex()
		for i, in := range input.Parents {
			if !s.admit(failures, i, in.Name, in, parentDiff.dup[i]) {
				continue
			}
			parent := &models.Parent{
				TenantID: tenantID,
				Name:     strings.TrimSpace(in.Name),
				Type:     models.ParentType(in.Type),
				Email:    strings.TrimSpace(in.Email),
				Phone:    strings.TrimSpace(in.Phone),
			}
			if parent.Type == "" {
				parent.Type = models.ParentGuardian
			}
			match := parentDiff.matched[i]
			ok := writeRecord(ctx, q, failures, i, in.Name, func(ctx context.Context, q repositories.Queries) error {
				if match != nil {
					parent.ID = match.ID
					return q.UpdateParent(ctx, parent)
				}
				return q.CreateParent(ctx, parent)
			})
			if ok {
				parents.add(parent.ID, parent.Name)
				parents.alias(in.ID, parent.ID)
			}
		}

		classes := newReferenceIndex()
		sectionsOf := make(map[string]*referenceIndex, len(classList))
		for _, c := range classList {
			classes.add(c.ID, c.Name)
			sections := newReferenceIndex()
			for _, sec := range c.Sections {
				sections.add(sec.ID, sec.Name)
			}
			sectionsOf[c.ID] = sections
		}

		// parent failures are numbered after the parents
		offset := len(input.Parents)
		for i, in := range input.Students {
			name := studentName(&in)
			if !s.admit(failures, offset+i, name, in, studentDiff.dup[i]) {
				continue
			}

			student := &models.Student{
				TenantID:        tenantID,
				AdmissionNumber: strings.TrimSpace(in.AdmissionNumber),
				FirstName:       strings.TrimSpace(in.FirstName),
				MiddleName:      strings.TrimSpace(in.MiddleName),
				LastName:        strings.TrimSpace(in.LastName),
				Gender:          in.Gender,
				Email:           in.Email,
				ClassID:         s.resolveOptional(classes, tenantID, kind, name, "class", in.Class),
			}
			if student.ClassID != nil {
				student.SectionID = s.resolveOptional(sectionsOf[*student.ClassID], tenantID, kind, name, "section", in.Section)
			}
			student.ParentIDs = s.studentParents(parents, tenantID, name, in.Parents)

			match := studentDiff.matched[i]
			writeRecord(ctx, q, failures, offset+i, name, func(ctx context.Context, q repositories.Queries) error {
				if student.AdmissionNumber == "" && match != nil {
					student.AdmissionNumber = match.AdmissionNumber
				}
				if student.AdmissionNumber == "" {
					number, err := s.allocator.AllocateStudentAdmissionNumber(ctx, q, tenantID)
					if err != nil {
						return err
					}
					student.AdmissionNumber = number
				}
				if match == nil {
					return q.CreateStudent(ctx, student)
				}
				student.ID = match.ID
				student.CreatedAt = match.CreatedAt
				if err := q.UpdateStudent(ctx, student); err != nil {
					return err
				}
				return q.SetStudentParents(ctx, tenantID, student.ID, student.ParentIDs)
			})
		}

		out := &dto.StudentsAndParents{}
		if out.Students, err = q.ListStudents(ctx, tenantID); err != nil {
			return nil, err
		}
		if out.Parents, err = q.ListParents(ctx, tenantID); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (s *OnboardingService) studentParents(parents *referenceIndex, tenantID, student string, refs []dto.Reference) []string {
	ids := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		id, ok := parents.resolve(ref)
		if !ok {
			s.unresolved(tenantID, dto.KindStudents, student, "parents", ref)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func studentName(in *dto.StudentInput) string {
	st := models.Student{FirstName: strings.TrimSpace(in.FirstName), MiddleName: strings.TrimSpace(in.MiddleName), LastName: strings.TrimSpace(in.LastName)}
	return st.FullName()
}

func emailKey(email string) string {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		return ""
	}
	return "email:" + email
}

func admissionKey(number string) string {
	if number = strings.TrimSpace(number); number == "" {
		return ""
	}
	return "admission:" + number
}
