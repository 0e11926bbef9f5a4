package memstore

import (
	"context"
	"time"

	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/repositories"
)

func (q *queries) GetSchool(_ context.Context, tenantID string) (*models.School, error) {
	school, ok := q.st.schools[tenantID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &school, nil
}

func (q *queries) SaveSchool(_ context.Context, school *models.School) error {
	now := time.Now().UTC()
	if existing, ok := q.st.schools[school.TenantID]; ok {
		school.ID = existing.ID
		school.CreatedAt = existing.CreatedAt
	} else {
		school.ID = newID(school.ID)
		school.CreatedAt = now
	}
	school.UpdatedAt = now
	q.st.schools[school.TenantID] = *school
	return nil
}

func (q *queries) ListBranches(_ context.Context, tenantID string) ([]models.Branch, error) {
	return collect(q.st.branches,
		func(b models.Branch) bool { return b.TenantID == tenantID },
		func(a, b models.Branch) bool {
			if a.IsHeadOffice != b.IsHeadOffice {
				return a.IsHeadOffice
			}
			return a.Name < b.Name
		}), nil
}

func (q *queries) branchNameTaken(b *models.Branch) bool {
	for _, other := range q.st.branches {
		if other.TenantID == b.TenantID && other.Name == b.Name && other.ID != b.ID {
			return true
		}
	}
	return false
}

func (q *queries) CreateBranch(_ context.Context, branch *models.Branch) error {
	if q.branchNameTaken(branch) {
		return unique(repositories.ConstraintBranchName)
	}
	branch.ID = newID(branch.ID)
	q.st.branches[branch.ID] = *branch
	return nil
}

func (q *queries) UpdateBranch(_ context.Context, branch *models.Branch) error {
	existing, ok := q.st.branches[branch.ID]
	if !ok || existing.TenantID != branch.TenantID {
		return repositories.ErrNotFound
	}
	if q.branchNameTaken(branch) {
		return unique(repositories.ConstraintBranchName)
	}
	branch.SchoolID = existing.SchoolID
	q.st.branches[branch.ID] = *branch
	return nil
}

func (q *queries) DeleteBranch(_ context.Context, tenantID, id string) error {
	existing, ok := q.st.branches[id]
	if !ok || existing.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(q.st.branches, id)
	for k, u := range q.st.units {
		clearIf(&u.BranchID, id)
		q.st.units[k] = u
	}
	for k, c := range q.st.classes {
		clearIf(&c.BranchID, id)
		q.st.classes[k] = c
	}
	for k, e := range q.st.employees {
		clearIf(&e.BranchID, id)
		q.st.employees[k] = e
	}
	return nil
}

func (q *queries) ListUnits(_ context.Context, tenantID string) ([]models.OrganizationalUnit, error) {
	return collect(q.st.units,
		func(u models.OrganizationalUnit) bool { return u.TenantID == tenantID },
		func(a, b models.OrganizationalUnit) bool { return a.Name < b.Name }), nil
}

func (q *queries) unitNameTaken(u *models.OrganizationalUnit) bool {
	for _, other := range q.st.units {
		if other.TenantID == u.TenantID && other.Name == u.Name && other.ID != u.ID {
			return true
		}
	}
	return false
}

func (q *queries) CreateUnit(_ context.Context, unit *models.OrganizationalUnit) error {
	if q.unitNameTaken(unit) {
		return unique(repositories.ConstraintUnitName)
	}
	unit.ID = newID(unit.ID)
	q.st.units[unit.ID] = *unit
	return nil
}

func (q *queries) UpdateUnit(_ context.Context, unit *models.OrganizationalUnit) error {
	existing, ok := q.st.units[unit.ID]
	if !ok || existing.TenantID != unit.TenantID {
		return repositories.ErrNotFound
	}
	if q.unitNameTaken(unit) {
		return unique(repositories.ConstraintUnitName)
	}
	unit.SchoolID = existing.SchoolID
	q.st.units[unit.ID] = *unit
	return nil
}

func (q *queries) DeleteUnit(_ context.Context, tenantID, id string) error {
	existing, ok := q.st.units[id]
	if !ok || existing.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(q.st.units, id)
	for k, u := range q.st.units {
		clearIf(&u.ParentUnitID, id)
		q.st.units[k] = u
	}
	for k, c := range q.st.classes {
		clearIf(&c.OrganizationalUnitID, id)
		q.st.classes[k] = c
	}
	for k, e := range q.st.employees {
		clearIf(&e.DepartmentID, id)
		q.st.employees[k] = e
	}
	return nil
}

func (q *queries) ListClasses(_ context.Context, tenantID string) ([]models.AcademicClass, error) {
	classes := collect(q.st.classes,
		func(c models.AcademicClass) bool { return c.TenantID == tenantID },
		func(a, b models.AcademicClass) bool { return a.Name < b.Name })
	for i := range classes {
		classes[i].Sections = q.sectionsOf(classes[i].ID)
	}
	return classes, nil
}

func (q *queries) sectionsOf(classID string) []models.Section {
	return collect(q.st.sections,
		func(s models.Section) bool { return s.ClassID == classID },
		func(a, b models.Section) bool {
			if a.Position != b.Position {
				return a.Position < b.Position
			}
			return a.Name < b.Name
		})
}

func (q *queries) classNameTaken(c *models.AcademicClass) bool {
	for _, other := range q.st.classes {
		if other.TenantID == c.TenantID && other.Name == c.Name && other.ID != c.ID {
			return true
		}
	}
	return false
}

func (q *queries) CreateClass(ctx context.Context, class *models.AcademicClass) error {
	if q.classNameTaken(class) {
		return unique(repositories.ConstraintClassName)
	}
	class.ID = newID(class.ID)
	row := *class
	row.Sections = nil
	q.st.classes[class.ID] = row

	for i := range class.Sections {
		section := &class.Sections[i]
		section.ClassID = class.ID
		section.TenantID = class.TenantID
		if err := q.CreateSection(ctx, section); err != nil {
			return err
		}
	}
	return nil
}

func (q *queries) UpdateClass(_ context.Context, class *models.AcademicClass) error {
	existing, ok := q.st.classes[class.ID]
	if !ok || existing.TenantID != class.TenantID {
		return repositories.ErrNotFound
	}
	if q.classNameTaken(class) {
		return unique(repositories.ConstraintClassName)
	}
	row := *class
	row.Sections = nil
	q.st.classes[class.ID] = row
	return nil
}

func (q *queries) DeleteClass(ctx context.Context, tenantID, id string) error {
	existing, ok := q.st.classes[id]
	if !ok || existing.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	for _, s := range q.sectionsOf(id) {
		if err := q.DeleteSection(ctx, tenantID, s.ID); err != nil {
			return err
		}
	}
	for k, s := range q.st.subjects {
		if s.ClassID == id {
			delete(q.st.subjects, k)
		}
	}
	for k, e := range q.st.employees {
		clearIf(&e.ClassID, id)
		q.st.employees[k] = e
	}
	for k, s := range q.st.students {
		clearIf(&s.ClassID, id)
		q.st.students[k] = s
	}
	delete(q.st.classes, id)
	return nil
}

func (q *queries) sectionNameTaken(s *models.Section) bool {
	for _, other := range q.st.sections {
		if other.ClassID == s.ClassID && other.Name == s.Name && other.ID != s.ID {
			return true
		}
	}
	return false
}

func (q *queries) CreateSection(_ context.Context, section *models.Section) error {
	if class, ok := q.st.classes[section.ClassID]; !ok || class.TenantID != section.TenantID {
		return repositories.ErrNotFound
	}
	if q.sectionNameTaken(section) {
		return unique(repositories.ConstraintSectionName)
	}
	section.ID = newID(section.ID)
	q.st.sections[section.ID] = *section
	return nil
}

func (q *queries) UpdateSection(_ context.Context, section *models.Section) error {
	existing, ok := q.st.sections[section.ID]
	if !ok || existing.TenantID != section.TenantID {
		return repositories.ErrNotFound
	}
	section.ClassID = existing.ClassID
	if q.sectionNameTaken(section) {
		return unique(repositories.ConstraintSectionName)
	}
	q.st.sections[section.ID] = *section
	return nil
}

func (q *queries) DeleteSection(_ context.Context, tenantID, id string) error {
	existing, ok := q.st.sections[id]
	if !ok || existing.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(q.st.sections, id)
	for k, s := range q.st.subjects {
		clearIf(&s.SectionID, id)
		q.st.subjects[k] = s
	}
	for k, s := range q.st.students {
		clearIf(&s.SectionID, id)
		q.st.students[k] = s
	}
	return nil
}
