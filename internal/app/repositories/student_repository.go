package repositories

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yigit/eduadmin/internal/app/models"
)

var studentColumns = []string{
	"id", "tenant_id", "admission_number", "first_name", "middle_name", "last_name",
	"gender", "email", "class_id", "section_id", "created_at",
}

func scanStudent(row rowScanner) (models.Student, error) {
	var s models.Student
	err := row.Scan(&s.ID, &s.TenantID, &s.AdmissionNumber, &s.FirstName, &s.MiddleName, &s.LastName,
		&s.Gender, &s.Email, &s.ClassID, &s.SectionID, &s.CreatedAt)
	s.ParentIDs = []string{}
	return s, err
}

func scanLink(row rowScanner) (models.ParentStudent, error) {
	var l models.ParentStudent
	err := row.Scan(&l.ParentID, &l.StudentID)
	return l, err
}

// attachParents fills ParentIDs from parent_students
func (q *pgQueries) attachParents(ctx context.Context, tenantID string, students []models.Student, where squirrel.Sqlizer) error {
	links, err := queryAll(ctx, q,
		q.sb.Select("parent_id", "student_id").From("parent_students").
			Where(squirrel.Eq{"tenant_id": tenantID}).Where(where).
			OrderBy("parent_id"),
		"list parent links", scanLink)
	if err != nil {
		return err
	}
	idx := make(map[string]int, len(students))
	for i := range students {
		idx[students[i].ID] = i
	}
	for _, l := range links {
		if i, ok := idx[l.StudentID]; ok {
			students[i].ParentIDs = append(students[i].ParentIDs, l.ParentID)
		}
	}
	return nil
}

// ListStudents retrieves the tenant's students with their parent links
func (q *pgQueries) ListStudents(ctx context.Context, tenantID string) ([]models.Student, error) {
	students, err := queryAll(ctx, q,
		q.sb.Select(studentColumns...).From("students").
			Where(squirrel.Eq{"tenant_id": tenantID}).
			OrderBy("admission_number"),
		"list students", scanStudent)
	if err != nil {
		return nil, err
	}
	if err := q.attachParents(ctx, tenantID, students, squirrel.Expr("TRUE")); err != nil {
		return nil, err
	}
	return students, nil
}

// GetStudent retrieves one student with its parent links
func (q *pgQueries) GetStudent(ctx context.Context, tenantID, id string) (*models.Student, error) {
	var student models.Student
	err := q.queryRow(ctx,
		q.sb.Select(studentColumns...).From("students").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}),
		"get student",
		func(row rowScanner) (err error) {
			student, err = scanStudent(row)
			return err
		})
	if err != nil {
		return nil, err
	}
	one := []models.Student{student}
	if err := q.attachParents(ctx, tenantID, one, squirrel.Eq{"student_id": id}); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// CreateStudent creates a new student and links its parents
func (q *pgQueries) CreateStudent(ctx context.Context, s *models.Student) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	err := q.exec(ctx, q.sb.Insert("students").
		Columns(studentColumns...).
		Values(s.ID, s.TenantID, s.AdmissionNumber, s.FirstName, s.MiddleName, s.LastName,
			s.Gender, s.Email, s.ClassID, s.SectionID, s.CreatedAt),
		"create student")
	if err != nil {
		return err
	}
	return q.SetStudentParents(ctx, s.TenantID, s.ID, s.ParentIDs)
}

// UpdateStudent updates a student row in place
func (q *pgQueries) UpdateStudent(ctx context.Context, s *models.Student) error {
	return q.exec(ctx, q.sb.Update("students").
		SetMap(map[string]interface{}{
			"admission_number": s.AdmissionNumber,
			"first_name":       s.FirstName,
			"middle_name":      s.MiddleName,
			"last_name":        s.LastName,
			"gender":           s.Gender,
			"email":            s.Email,
			"class_id":         s.ClassID,
			"section_id":       s.SectionID,
		}).
		Where(squirrel.Eq{"id": s.ID, "tenant_id": s.TenantID}),
		"update student")
}

// DeleteStudent deletes a student; links and enrollments cascade
func (q *pgQueries) DeleteStudent(ctx context.Context, tenantID, id string) error {
	return q.exec(ctx, q.sb.Delete("students").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}), "delete student")
}

// SetStudentParents replaces the student's parent links
func (q *pgQueries) SetStudentParents(ctx context.Context, tenantID, studentID string, parentIDs []string) error {
	err := q.execAny(ctx, q.sb.Delete("parent_students").
		Where(squirrel.Eq{"tenant_id": tenantID, "student_id": studentID}),
		"clear parent links")
	if err != nil || len(parentIDs) == 0 {
		return err
	}

	insert := q.sb.Insert("parent_students").Columns("tenant_id", "parent_id", "student_id")
	for _, parentID := range parentIDs {
		insert = insert.Values(tenantID, parentID, studentID)
	}
	return q.execAny(ctx, insert.Suffix("ON CONFLICT DO NOTHING"), "link parents")
}

var parentColumns = []string{"id", "tenant_id", "name", "type", "email", "phone", "created_at"}

func scanParent(row rowScanner) (models.Parent, error) {
	var p models.Parent
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Type, &p.Email, &p.Phone, &p.CreatedAt)
	return p, err
}

// ListParents retrieves the tenant's parents
func (q *pgQueries) ListParents(ctx context.Context, tenantID string) ([]models.Parent, error) {
	return queryAll(ctx, q,
		q.sb.Select(parentColumns...).From("parents").
			Where(squirrel.Eq{"tenant_id": tenantID}).
			OrderBy("name"),
		"list parents", scanParent)
}

// CreateParent creates a new parent
func (q *pgQueries) CreateParent(ctx context.Context, p *models.Parent) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	return q.exec(ctx, q.sb.Insert("parents").
		Columns(parentColumns...).
		Values(p.ID, p.TenantID, p.Name, p.Type, p.Email, p.Phone, p.CreatedAt),
		"create parent")
}

// UpdateParent updates a parent in place
func (q *pgQueries) UpdateParent(ctx context.Context, p *models.Parent) error {
	return q.exec(ctx, q.sb.Update("parents").
		SetMap(map[string]interface{}{
			"name":  p.Name,
			"type":  p.Type,
			"email": p.Email,
			"phone": p.Phone,
		}).
		Where(squirrel.Eq{"id": p.ID, "tenant_id": p.TenantID}),
		"update parent")
}

// DeleteParent deletes a parent; its links cascade
func (q *pgQueries) DeleteParent(ctx context.Context, tenantID, id string) error {
	return q.exec(ctx, q.sb.Delete("parents").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}), "delete parent")
}

// FindParentByContact finds a parent by exact email, falling back to the
// oldest parent with the phone number
func (q *pgQueries) FindParentByContact(ctx context.Context, tenantID, email, phone string) (*models.Parent, error) {
	match := squirrel.Or{}
	if email != "" {
		match = append(match, squirrel.Eq{"email": email})
	}
	if phone != "" {
		match = append(match, squirrel.Eq{"phone": phone})
	}
	if len(match) == 0 {
		return nil, ErrNotFound
	}

	query := q.sb.Select(parentColumns...).From("parents").
		Where(squirrel.Eq{"tenant_id": tenantID}).Where(match)
	if email != "" {
		query = query.OrderByClause("CASE WHEN email = ? THEN 0 ELSE 1 END", email)
	}

	var parent models.Parent
	err := q.queryRow(ctx,
		query.OrderBy("created_at", "id").Limit(1),
		"find parent by contact",
		func(row rowScanner) (err error) {
			parent, err = scanParent(row)
			return err
		})
	if err != nil {
		return nil, err
	}
	return &parent, nil
}

// LockAdmissionNumbers takes a transaction scoped advisory lock for the tenant
func (q *pgQueries) LockAdmissionNumbers(ctx context.Context, tenantID string) error {
	_, err := q.tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", "admission-number:"+tenantID)
	if err != nil {
		return translateError(err, "lock admission numbers")
	}
	return nil
}

// AdmissionNumbers lists the tenant's admission numbers
func (q *pgQueries) AdmissionNumbers(ctx context.Context, tenantID string) ([]string, error) {
	return queryAll(ctx, q,
		q.sb.Select("admission_number").From("students").Where(squirrel.Eq{"tenant_id": tenantID}),
		"list admission numbers",
		func(row rowScanner) (n string, err error) {
			err = row.Scan(&n)
			return n, err
		})
}
