package repositories

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yigit/eduadmin/internal/app/models"
)

var schoolColumns = []string{
	"id", "tenant_id", "name", "address", "email", "phone",
	"academic_year", "country", "onboarding_completed", "created_at", "updated_at",
}

func scanSchool(row rowScanner) (*models.School, error) {
	var s models.School
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Address, &s.Email, &s.Phone,
		&s.AcademicYear, &s.Country, &s.OnboardingCompleted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSchool retrieves the tenant's school
func (q *pgQueries) GetSchool(ctx context.Context, tenantID string) (*models.School, error) {
	var school *models.School
	err := q.queryRow(ctx,
		q.sb.Select(schoolColumns...).From("schools").Where(squirrel.Eq{"tenant_id": tenantID}),
		"get school",
		func(row rowScanner) (err error) {
			school, err = scanSchool(row)
			return err
		})
	return school, err
}

// SaveSchool inserts the tenant's school or updates it in place
func (q *pgQueries) SaveSchool(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b := q.sb.Insert("schools").
		Columns("id", "tenant_id", "name", "address", "email", "phone", "academic_year", "country",
			"onboarding_completed", "created_at", "updated_at").
		Values(school.ID, school.TenantID, school.Name, school.Address, school.Email, school.Phone,
			school.AcademicYear, school.Country, school.OnboardingCompleted, now, now).
		Suffix(`ON CONFLICT (tenant_id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, email = EXCLUDED.email,
			phone = EXCLUDED.phone, academic_year = EXCLUDED.academic_year, country = EXCLUDED.country,
			onboarding_completed = EXCLUDED.onboarding_completed, updated_at = EXCLUDED.updated_at
			RETURNING id, created_at, updated_at`)

	return q.queryRow(ctx, b, "save school", func(row rowScanner) error {
		return row.Scan(&school.ID, &school.CreatedAt, &school.UpdatedAt)
	})
}
