package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

// The tests below run only when EDUADMIN_TEST_POSTGRES_DSN names a database
// they may migrate and write to.

func TestPostgresApplicationNumbersAreGapless(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	_, err := f.admission.UpdateSettings(ctx, testTenant, settingsRequest("APP", "", "001"))
	require.NoError(t, err)

	const n = 20
	numbers := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			app, err := f.admission.CreateApplication(ctx, testTenant, applicationInput("Student", fmt.Sprint(i)))
			errs[i] = err
			if err == nil {
				numbers[i] = app.ApplicationNumber
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	want := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		want = append(want, fmt.Sprintf("APP-%03d", i))
	}
	sort.Strings(numbers)
	assert.Equal(t, want, numbers)
	assert.Equal(t, "021", f.settings(t).NextNumber)
}

func TestPostgresSeatIsExclusive(t *testing.T) {
	f := newTransportFixtureFrom(t, newPostgresFixture(t), 10)
	ctx := context.Background()

	const n = 6
	students := make([]string, n)
	for i := range students {
		students[i] = f.student(t, i+1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for _, student := range students {
		wg.Add(1)
		go func(student string) {
			defer wg.Done()
			_, err := f.transport.CreateEnrollment(ctx, testTenant, f.seat(student, 4))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperrors.Code(err) == apperrors.CodeSeatTaken:
				conflicts++
			}
		}(student)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, conflicts)
}

func TestPostgresOneActiveEnrollmentPerStudent(t *testing.T) {
	f := newTransportFixtureFrom(t, newPostgresFixture(t), 10)
	ctx := context.Background()
	student := f.student(t, 1)

	const n = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for seat := 1; seat <= n; seat++ {
		wg.Add(1)
		go func(seat int) {
			defer wg.Done()
			_, err := f.transport.CreateEnrollment(ctx, testTenant, f.seat(student, seat))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperrors.Code(err) == apperrors.CodeStudentEnrolled:
				conflicts++
			}
		}(seat)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, conflicts)
}

func TestPostgresPromotionsGetDistinctAdmissionNumbers(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	const n = 5
	apps := make([]*models.AdmissionApplication, n)
	for i := range apps {
		apps[i] = f.admit(t, fmt.Sprintf("Pupil%d", i), "Parallel")
	}

	numbers := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, app := range apps {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			student, err := f.admission.PromoteApplication(ctx, testTenant, id)
			errs[i] = err
			if err == nil {
				numbers[i] = student.AdmissionNumber
			}
		}(i, app.ID)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Strings(numbers)
	assert.Equal(t, []string{"STU-001", "STU-002", "STU-003", "STU-004", "STU-005"}, numbers)
}

func TestPostgresBulkUpdateSkipsMalformedIDs(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	app, err := f.admission.CreateApplication(ctx, testTenant, applicationInput("Ada", "Lovelace"))
	require.NoError(t, err)

	updated, err := f.admission.BulkUpdateStatus(ctx, testTenant, []string{"not-a-uuid", app.ID}, models.StatusUnderAssessment)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got, err := f.admission.GetApplication(ctx, testTenant, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderAssessment, got.Status)

	_, err = f.transport.ListEnrollments(ctx, testTenant, models.EnrollmentFilter{BusID: "not-a-uuid"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestPostgresParentLookupPrefersEmail(t *testing.T) {
	f := newPostgresFixture(t)

	older := &models.Parent{TenantID: testTenant, Name: "Neighbour", Email: "other@example.com", Phone: "555-0100"}
	newer := &models.Parent{TenantID: testTenant, Name: "Lodger", Phone: "555-0100"}
	byEmail := &models.Parent{TenantID: testTenant, Name: "Homer", Email: "homer@example.com", Phone: "555-0199"}
	for _, p := range []*models.Parent{older, newer, byEmail} {
		f.read(t, func(ctx context.Context, q repositories.Queries) error {
			return q.CreateParent(ctx, p)
		})
	}

	f.read(t, func(ctx context.Context, q repositories.Queries) error {
		got, err := q.FindParentByContact(ctx, testTenant, "homer@example.com", "555-0100")
		require.NoError(t, err)
		assert.Equal(t, byEmail.ID, got.ID)

		got, err = q.FindParentByContact(ctx, testTenant, "", "555-0100")
		require.NoError(t, err)
		assert.Equal(t, older.ID, got.ID)
		assert.False(t, got.CreatedAt.IsZero())

		_, err = q.FindParentByContact(ctx, testTenant, "nobody@example.com", "555-0000")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		return nil
	})
}
