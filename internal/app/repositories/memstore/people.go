package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/repositories"
)

func (q *queries) ListEmployees(_ context.Context, tenantID string) ([]models.Employee, error) {
	return collect(q.st.employees,
		func(e models.Employee) bool { return e.TenantID == tenantID },
		func(a, b models.Employee) bool { return a.Name < b.Name }), nil
}

func (q *queries) employeeCodeTaken(e *models.Employee) bool {
	for _, other := range q.st.employees {
		if other.TenantID == e.TenantID && other.EmployeeCode == e.EmployeeCode && other.ID != e.ID {
			return true
		}
	}
	return false
}

func (q *queries) CreateEmployee(_ context.Context, e *models.Employee) error {
	if q.employeeCodeTaken(e) {
		return unique(repositories.ConstraintEmployeeCode)
	}
	e.ID = newID(e.ID)
	q.st.employees[e.ID] = *e
	return nil
}

func (q *queries) UpdateEmployee(_ context.Context, e *models.Employee) error {
	existing, ok := q.st.employees[e.ID]
	if !ok || existing.TenantID != e.TenantID {
		return repositories.ErrNotFound
	}
	if q.employeeCodeTaken(e) {
		return unique(repositories.ConstraintEmployeeCode)
	}
	q.st.employees[e.ID] = *e
	return nil
}

func (q *queries) DeleteEmployee(_ context.Context, tenantID, id string) error {
	existing, ok := q.st.employees[id]
	if !ok || existing.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(q.st.employees, id)
	for k, s := range q.st.sections {
		clearIf(&s.TeacherID, id)
		clearIf(&s.AssistantTeacherID, id)
		q.st.sections[k] = s
	}
	for k, s := range q.st.subjects {
		clearIf(&s.TeacherID, id)
		clearIf(&s.AssistantTeacherID, id)
		q.st.subjects[k] = s
	}
	return nil
}

func (q *queries) ListSubjects(_ context.Context, tenantID string) ([]models.Subject, error) {
	return collect(q.st.subjects,
		func(s models.Subject) bool { return s.TenantID == tenantID },
		func(a, b models.Subject) bool { return a.Name < b.Name }), nil
}

func (q *queries) CreateSubject(_ context.Context, s *models.Subject) error {
	if class, ok := q.st.classes[s.ClassID]; !ok || class.TenantID != s.TenantID {
		return repositories.ErrNotFound
	}
	s.ID = newID(s.ID)
	q.st.subjects[s.ID] = *s
	return nil
}

func (q *queries) UpdateSubject(_ context.Context, s *models.Subject) error {
	existing, ok := q.st.subjects[s.ID]
	if !ok || existing.TenantID != s.TenantID {
		return repositories.ErrNotFound
	}
	q.st.subjects[s.ID] = *s
	return nil
}

func (q *queries) DeleteSubject(_ context.Context, tenantID, id string) error {
	existing, ok := q.st.subjects[id]
	if !ok || existing.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(q.st.subjects, id)
	return nil
}

func (q *queries) parentIDsOf(studentID string) []string {
	ids := make([]string, 0)
	for k := range q.st.links {
		if k.StudentID == studentID {
			ids = append(ids, k.ParentID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (q *queries) ListStudents(_ context.Context, tenantID string) ([]models.Student, error) {
	students := collect(q.st.students,
		func(s models.Student) bool { return s.TenantID == tenantID },
		func(a, b models.Student) bool { return a.AdmissionNumber < b.AdmissionNumber })
	for i := range students {
		students[i].ParentIDs = q.parentIDsOf(students[i].ID)
	}
	return students, nil
}

func (q *queries) GetStudent(_ context.Context, tenantID, id string) (*models.Student, error) {
	s, ok := q.st.students[id]
	if !ok || s.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	s.ParentIDs = q.parentIDsOf(id)
	return &s, nil
}

func (q *queries) admissionNumberTaken(s *models.Student) bool {
	for _, other := range q.st.students {
		if other.TenantID == s.TenantID && other.AdmissionNumber == s.AdmissionNumber && other.ID != s.ID {
			return true
		}
	}
	return false
}

func (q *queries) CreateStudent(ctx context.Context, s *models.Student) error {
	if q.admissionNumberTaken(s) {
		return unique(repositories.ConstraintAdmissionNumber)
	}
	s.ID = newID(s.ID)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	row := *s
	row.ParentIDs = nil
	q.st.students[s.ID] = row
	return q.SetStudentParents(ctx, s.TenantID, s.ID, s.ParentIDs)
}

func (q *queries) UpdateStudent(_ context.Context, s *models.Student) error {
	existing, ok := q.st.students[s.ID]
	if !ok || existing.TenantID != s.TenantID {
		return repositories.ErrNotFound
	}
	if q.admissionNumberTaken(s) {
		return unique(repositories.ConstraintAdmissionNumber)
	}
	row := *s
	row.ParentIDs = nil
	row.CreatedAt = existing.CreatedAt
	q.st.students[s.ID] = row
	return nil
}

func (q *queries) DeleteStudent(_ context.Context, tenantID, id string) error {
	existing, ok := q.st.students[id]
	if !ok || existing.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(q.st.students, id)
	for k := range q.st.links {
		if k.StudentID == id {
			delete(q.st.links, k)
		}
	}
	for k, e := range q.st.enrollments {
		if e.StudentID == id {
			delete(q.st.enrollments, k)
		}
	}
	for k, a := range q.st.applications {
		clearIf(&a.StudentID, id)
		q.st.applications[k] = a
	}
	return nil
}

func (q *queries) SetStudentParents(_ context.Context, tenantID, studentID string, parentIDs []string) error {
	for k := range q.st.links {
		if k.StudentID == studentID {
			delete(q.st.links, k)
		}
	}
	for _, parentID := range parentIDs {
		if p, ok := q.st.parents[parentID]; !ok || p.TenantID != tenantID {
			return repositories.ErrNotFound
		}
		q.st.links[linkKey{ParentID: parentID, StudentID: studentID}] = tenantID
	}
	return nil
}

func (q *queries) ListParents(_ context.Context, tenantID string) ([]models.Parent, error) {
	return collect(q.st.parents,
		func(p models.Parent) bool { return p.TenantID == tenantID },
		func(a, b models.Parent) bool { return a.Name < b.Name }), nil
}

func (q *queries) CreateParent(_ context.Context, p *models.Parent) error {
	p.ID = newID(p.ID)
	p.CreatedAt = time.Now().UTC()
	q.st.parents[p.ID] = *p
	return nil
}

func (q *queries) UpdateParent(_ context.Context, p *models.Parent) error {
	existing, ok := q.st.parents[p.ID]
	if !ok || existing.TenantID != p.TenantID {
		return repositories.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	q.st.parents[p.ID] = *p
	return nil
}

func (q *queries) DeleteParent(_ context.Context, tenantID, id string) error {
	existing, ok := q.st.parents[id]
	if !ok || existing.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(q.st.parents, id)
	for k := range q.st.links {
		if k.ParentID == id {
			delete(q.st.links, k)
		}
	}
	return nil
}

func (q *queries) FindParentByContact(_ context.Context, tenantID, email, phone string) (*models.Parent, error) {
	if email == "" && phone == "" {
		return nil, repositories.ErrNotFound
	}
	candidates := collect(q.st.parents,
		func(p models.Parent) bool {
			return p.TenantID == tenantID &&
				((email != "" && p.Email == email) || (phone != "" && p.Phone == phone))
		},
		func(a, b models.Parent) bool {
			if aEmail, bEmail := email != "" && a.Email == email, email != "" && b.Email == email; aEmail != bEmail {
				return aEmail
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
	if len(candidates) == 0 {
		return nil, repositories.ErrNotFound
	}
	return &candidates[0], nil
}

// LockAdmissionNumbers is a no-op: transactions are already serialized
func (q *queries) LockAdmissionNumbers(context.Context, string) error {
	return nil
}

func (q *queries) AdmissionNumbers(_ context.Context, tenantID string) ([]string, error) {
	numbers := make([]string, 0)
	for _, s := range q.st.students {
		if s.TenantID == tenantID {
			numbers = append(numbers, s.AdmissionNumber)
		}
	}
	return numbers, nil
}
