package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yigit/eduadmin/internal/app/models"
)

var employeeColumns = []string{
	"id", "tenant_id", "employee_code", "name", "email", "phone", "role",
	"department_id", "branch_id", "class_id", "custom_department", "sub_department",
}

func scanEmployee(row rowScanner) (models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.TenantID, &e.EmployeeCode, &e.Name, &e.Email, &e.Phone, &e.Role,
		&e.DepartmentID, &e.BranchID, &e.ClassID, &e.CustomDepartment, &e.SubDepartment)
	return e, err
}

// ListEmployees retrieves the tenant's employees
func (q *pgQueries) ListEmployees(ctx context.Context, tenantID string) ([]models.Employee, error) {
	return queryAll(ctx, q,
		q.sb.Select(employeeColumns...).From("employees").
			Where(squirrel.Eq{"tenant_id": tenantID}).
			OrderBy("name"),
		"list employees", scanEmployee)
}

// CreateEmployee creates a new employee
func (q *pgQueries) CreateEmployee(ctx context.Context, e *models.Employee) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return q.exec(ctx, q.sb.Insert("employees").
		Columns(employeeColumns...).
		Values(e.ID, e.TenantID, e.EmployeeCode, e.Name, e.Email, e.Phone, e.Role,
			e.DepartmentID, e.BranchID, e.ClassID, e.CustomDepartment, e.SubDepartment),
		"create employee")
}

// UpdateEmployee updates an employee in place
func (q *pgQueries) UpdateEmployee(ctx context.Context, e *models.Employee) error {
	return q.exec(ctx, q.sb.Update("employees").
		SetMap(map[string]interface{}{
			"employee_code":     e.EmployeeCode,
			"name":              e.Name,
			"email":             e.Email,
			"phone":             e.Phone,
			"role":              e.Role,
			"department_id":     e.DepartmentID,
			"branch_id":         e.BranchID,
			"class_id":          e.ClassID,
			"custom_department": e.CustomDepartment,
			"sub_department":    e.SubDepartment,
		}).
		Where(squirrel.Eq{"id": e.ID, "tenant_id": e.TenantID}),
		"update employee")
}

// DeleteEmployee deletes an employee; teacher references to it become null
func (q *pgQueries) DeleteEmployee(ctx context.Context, tenantID, id string) error {
	return q.exec(ctx, q.sb.Delete("employees").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}), "delete employee")
}

var subjectColumns = []string{
	"id", "tenant_id", "name", "code", "class_id", "section_id", "teacher_id", "assistant_teacher_id",
	"custom_teacher", "custom_assistant_teacher",
}

func scanSubject(row rowScanner) (models.Subject, error) {
	var s models.Subject
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Code, &s.ClassID, &s.SectionID, &s.TeacherID,
		&s.AssistantTeacherID, &s.CustomTeacher, &s.CustomAssistantTeacher)
	return s, err
}

// ListSubjects retrieves the tenant's subjects
func (q *pgQueries) ListSubjects(ctx context.Context, tenantID string) ([]models.Subject, error) {
	return queryAll(ctx, q,
		q.sb.Select(subjectColumns...).From("subjects").
			Where(squirrel.Eq{"tenant_id": tenantID}).
			OrderBy("name"),
		"list subjects", scanSubject)
}

// CreateSubject creates a new subject
func (q *pgQueries) CreateSubject(ctx context.Context, s *models.Subject) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return q.exec(ctx, q.sb.Insert("subjects").
		Columns(subjectColumns...).
		Values(s.ID, s.TenantID, s.Name, s.Code, s.ClassID, s.SectionID, s.TeacherID, s.AssistantTeacherID,
			s.CustomTeacher, s.CustomAssistantTeacher),
		"create subject")
}

// UpdateSubject updates a subject in place
func (q *pgQueries) UpdateSubject(ctx context.Context, s *models.Subject) error {
	return q.exec(ctx, q.sb.Update("subjects").
		SetMap(map[string]interface{}{
			"name":                     s.Name,
			"code":                     s.Code,
			"class_id":                 s.ClassID,
			"section_id":               s.SectionID,
			"teacher_id":               s.TeacherID,
			"assistant_teacher_id":     s.AssistantTeacherID,
			"custom_teacher":           s.CustomTeacher,
			"custom_assistant_teacher": s.CustomAssistantTeacher,
		}).
		Where(squirrel.Eq{"id": s.ID, "tenant_id": s.TenantID}),
		"update subject")
}

// DeleteSubject deletes a subject
func (q *pgQueries) DeleteSubject(ctx context.Context, tenantID, id string) error {
	return q.exec(ctx, q.sb.Delete("subjects").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}), "delete subject")
}
