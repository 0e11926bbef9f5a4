package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yigit/eduadmin/internal/app/models"
)

var settingsColumns = []string{
	"tenant_id", "document_prefix", "document_suffix", "next_number", "reference_type",
	"custom_url", "workflow", "updated_at",
}

func scanSettings(row rowScanner) (*models.AdmissionSettings, error) {
	var (
		s        models.AdmissionSettings
		workflow []byte
	)
	err := row.Scan(&s.TenantID, &s.DocumentPrefix, &s.DocumentSuffix, &s.NextNumber, &s.ReferenceType,
		&s.CustomURL, &workflow, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(workflow) > 0 {
		if err := json.Unmarshal(workflow, &s.Workflow); err != nil {
			return nil, fmt.Errorf("invalid workflow document: %w", err)
		}
	}
	return &s, nil
}

func (q *pgQueries) readSettings(ctx context.Context, tenantID, op string, lock bool) (*models.AdmissionSettings, error) {
	b := q.sb.Select(settingsColumns...).From("admission_settings").Where(squirrel.Eq{"tenant_id": tenantID})
	if lock {
		b = b.Suffix("FOR UPDATE")
	}
	var settings *models.AdmissionSettings
	err := q.queryRow(ctx, b, op, func(row rowScanner) (err error) {
		settings, err = scanSettings(row)
		return err
	})
	return settings, err
}

// GetAdmissionSettings retrieves the tenant's admission settings
func (q *pgQueries) GetAdmissionSettings(ctx context.Context, tenantID string) (*models.AdmissionSettings, error) {
	return q.readSettings(ctx, tenantID, "get admission settings", false)
}

// LockAdmissionSettings retrieves the settings row with FOR UPDATE
func (q *pgQueries) LockAdmissionSettings(ctx context.Context, tenantID string) (*models.AdmissionSettings, error) {
	return q.readSettings(ctx, tenantID, "lock admission settings", true)
}

func (q *pgQueries) insertSettings(s *models.AdmissionSettings) (squirrel.InsertBuilder, error) {
	workflow, err := json.Marshal(s.Workflow)
	if err != nil {
		return squirrel.InsertBuilder{}, fmt.Errorf("failed to encode workflow: %w", err)
	}
	s.UpdatedAt = time.Now().UTC()
	return q.sb.Insert("admission_settings").
		Columns(settingsColumns...).
		Values(s.TenantID, s.DocumentPrefix, s.DocumentSuffix, s.NextNumber, s.ReferenceType,
			s.CustomURL, workflow, s.UpdatedAt), nil
}

// EnsureAdmissionSettings inserts defaults; an existing row is left untouched
func (q *pgQueries) EnsureAdmissionSettings(ctx context.Context, defaults *models.AdmissionSettings) error {
	b, err := q.insertSettings(defaults)
	if err != nil {
		return err
	}
	return q.execAny(ctx, b.Suffix("ON CONFLICT (tenant_id) DO NOTHING"), "ensure admission settings")
}

// SaveAdmissionSettings upserts the tenant's settings row
func (q *pgQueries) SaveAdmissionSettings(ctx context.Context, s *models.AdmissionSettings) error {
	b, err := q.insertSettings(s)
	if err != nil {
		return err
	}
	return q.exec(ctx, b.
		Suffix(`ON CONFLICT (tenant_id) DO UPDATE SET
			document_prefix = EXCLUDED.document_prefix, document_suffix = EXCLUDED.document_suffix,
			next_number = EXCLUDED.next_number, reference_type = EXCLUDED.reference_type,
			custom_url = EXCLUDED.custom_url, workflow = EXCLUDED.workflow, updated_at = EXCLUDED.updated_at`),
		"save admission settings")
}

var applicationColumns = []string{
	"id", "tenant_id", "application_number", "status", "first_name", "middle_name", "last_name",
	"date_of_birth", "gender", "email", "class", "section",
	"father_name", "father_email", "father_phone",
	"mother_name", "mother_email", "mother_phone",
	"guardian_name", "guardian_email", "guardian_phone",
	"student_id", "submitted_at", "updated_at",
}

func scanApplication(row rowScanner) (models.AdmissionApplication, error) {
	var a models.AdmissionApplication
	err := row.Scan(&a.ID, &a.TenantID, &a.ApplicationNumber, &a.Status, &a.FirstName, &a.MiddleName, &a.LastName,
		&a.DateOfBirth, &a.Gender, &a.Email, &a.Class, &a.Section,
		&a.FatherName, &a.FatherEmail, &a.FatherPhone,
		&a.MotherName, &a.MotherEmail, &a.MotherPhone,
		&a.GuardianName, &a.GuardianEmail, &a.GuardianPhone,
		&a.StudentID, &a.SubmittedAt, &a.UpdatedAt)
	return a, err
}

// CreateApplication inserts a new admission application
func (q *pgQueries) CreateApplication(ctx context.Context, a *models.AdmissionApplication) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = now
	}
	a.UpdatedAt = now
	return q.exec(ctx, q.sb.Insert("admission_applications").
		Columns(applicationColumns...).
		Values(a.ID, a.TenantID, a.ApplicationNumber, a.Status, a.FirstName, a.MiddleName, a.LastName,
			a.DateOfBirth, a.Gender, a.Email, a.Class, a.Section,
			a.FatherName, a.FatherEmail, a.FatherPhone,
			a.MotherName, a.MotherEmail, a.MotherPhone,
			a.GuardianName, a.GuardianEmail, a.GuardianPhone,
			a.StudentID, a.SubmittedAt, a.UpdatedAt),
		"create application")
}

func (q *pgQueries) readApplication(ctx context.Context, tenantID, id, op string, lock bool) (*models.AdmissionApplication, error) {
	b := q.sb.Select(applicationColumns...).From("admission_applications").
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID})
	if lock {
		b = b.Suffix("FOR UPDATE")
	}
	var app models.AdmissionApplication
	err := q.queryRow(ctx, b, op, func(row rowScanner) (err error) {
		app, err = scanApplication(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// GetApplication retrieves one application
func (q *pgQueries) GetApplication(ctx context.Context, tenantID, id string) (*models.AdmissionApplication, error) {
	return q.readApplication(ctx, tenantID, id, "get application", false)
}

// LockApplication retrieves one application with FOR UPDATE
func (q *pgQueries) LockApplication(ctx context.Context, tenantID, id string) (*models.AdmissionApplication, error) {
	return q.readApplication(ctx, tenantID, id, "lock application", true)
}

// ListApplications retrieves applications matching filter, newest first
func (q *pgQueries) ListApplications(ctx context.Context, tenantID string, filter models.ApplicationFilter) ([]models.AdmissionApplication, error) {
	b := q.sb.Select(applicationColumns...).From("admission_applications").
		Where(squirrel.Eq{"tenant_id": tenantID})
	if filter.Status != "" {
		b = b.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Class != "" {
		b = b.Where(squirrel.Eq{"class": filter.Class})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		b = b.Where(squirrel.Or{
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"application_number": pattern},
			squirrel.ILike{"email": pattern},
		})
	}
	return queryAll(ctx, q, b.OrderBy("submitted_at DESC", "application_number DESC"), "list applications", scanApplication)
}

// UpdateApplication writes the mutable application fields
func (q *pgQueries) UpdateApplication(ctx context.Context, a *models.AdmissionApplication) error {
	a.UpdatedAt = time.Now().UTC()
	return q.exec(ctx, q.sb.Update("admission_applications").
		SetMap(map[string]interface{}{
			"status":         a.Status,
			"first_name":     a.FirstName,
			"middle_name":    a.MiddleName,
			"last_name":      a.LastName,
			"date_of_birth":  a.DateOfBirth,
			"gender":         a.Gender,
			"email":          a.Email,
			"class":          a.Class,
			"section":        a.Section,
			"father_name":    a.FatherName,
			"father_email":   a.FatherEmail,
			"father_phone":   a.FatherPhone,
			"mother_name":    a.MotherName,
			"mother_email":   a.MotherEmail,
			"mother_phone":   a.MotherPhone,
			"guardian_name":  a.GuardianName,
			"guardian_email": a.GuardianEmail,
			"guardian_phone": a.GuardianPhone,
			"student_id":     a.StudentID,
			"updated_at":     a.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": a.ID, "tenant_id": a.TenantID}),
		"update application")
}

// DeleteApplication deletes an application
func (q *pgQueries) DeleteApplication(ctx context.Context, tenantID, id string) error {
	return q.exec(ctx, q.sb.Delete("admission_applications").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}),
		"delete application")
}
