package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

func TestMirrorFromUnitsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.withSchool(t)

	f.read(t, func(ctx context.Context, q repositories.Queries) error {
		for _, name := range []string{"Grade 1", "Grade 2"} {
			unit := &models.OrganizationalUnit{TenantID: testTenant, SchoolID: school.ID, Name: name, Type: models.UnitTypeClass, IsAcademic: true}
			if err := q.CreateUnit(ctx, unit); err != nil {
				return err
			}
		}
		return q.CreateUnit(ctx, &models.OrganizationalUnit{TenantID: testTenant, SchoolID: school.ID, Name: "Library", Type: models.UnitTypeDepartment})
	})

	report, err := f.mirror.SyncOrganizationalMirror(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, MirrorReport{Created: 2}, report)
	assert.Equal(t, []string{"Grade 1", "Grade 2"}, classNames(f.classes(t)))

	report, err = f.mirror.SyncOrganizationalMirror(ctx, testTenant)
	require.NoError(t, err)
	assert.Zero(t, report.Writes())

	report, err = f.mirror.SyncFromClasses(ctx, testTenant)
	require.NoError(t, err)
	assert.Zero(t, report.Writes())
}

func TestMirrorFromClassesCreatesUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	f.read(t, func(ctx context.Context, q repositories.Queries) error {
		return q.CreateClass(ctx, &models.AcademicClass{
			TenantID: testTenant,
			Name:     "Grade 4",
			Sections: []models.Section{{TenantID: testTenant, Name: "A", Capacity: testCapacity}},
		})
	})

	report, err := f.mirror.SyncFromClasses(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)

	units := f.units(t)
	require.Len(t, units, 1)
	assert.Equal(t, models.UnitTypeClass, units[0].Type)
	assert.True(t, units[0].IsAcademic)

	classes := f.classes(t)
	require.NotNil(t, classes[0].OrganizationalUnitID)
	assert.Equal(t, units[0].ID, *classes[0].OrganizationalUnitID)
}

func TestMirrorPromotesSameNamedUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	_, err := f.onboarding.ReplaceDepartments(ctx, testTenant, []dto.DepartmentInput{{Name: "Grade 6", Type: "DEPARTMENT"}})
	require.NoError(t, err)
	_, err = f.onboarding.ReplaceClasses(ctx, testTenant, []dto.ClassInput{{Name: "Grade 6"}})
	require.NoError(t, err)

	units := f.units(t)
	require.Len(t, units, 1)
	assert.Equal(t, models.UnitTypeClass, units[0].Type)
}

func TestMirrorFromClassesNeedsSchool(t *testing.T) {
	f := newFixture(t)

	_, err := f.mirror.SyncFromClasses(context.Background(), testTenant)
	assert.ErrorIs(t, err, apperrors.ErrPreconditionFailed)
}
