package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

func TestReplaceRequiresSchool(t *testing.T) {
	f := newFixture(t)

	_, err := f.onboarding.ReplaceBranches(context.Background(), testTenant, []dto.BranchInput{{Name: "Main"}})
	require.ErrorIs(t, err, apperrors.ErrPreconditionFailed)
	assert.Equal(t, apperrors.CodeSchoolMissing, apperrors.Code(err))

	_, err = f.onboarding.CompleteOnboarding(context.Background(), testTenant)
	assert.ErrorIs(t, err, apperrors.ErrPreconditionFailed)
}

func TestSaveSchoolKeepsCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	school, err := f.onboarding.CompleteOnboarding(ctx, testTenant)
	require.NoError(t, err)
	assert.True(t, school.OnboardingCompleted)

	school, err = f.onboarding.SaveSchool(ctx, testTenant, dto.SchoolRequest{Name: "Renamed School"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed School", school.Name)
	assert.True(t, school.OnboardingCompleted)

	_, err = f.onboarding.SaveSchool(ctx, testTenant, dto.SchoolRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestReplaceBranches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	branches, err := f.onboarding.ReplaceBranches(ctx, testTenant, []dto.BranchInput{
		{Name: "North Campus"},
		{Name: "East Campus"},
	})
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "North Campus", branches[0].Name)
	assert.True(t, branches[0].IsHeadOffice)
	assert.False(t, branches[1].IsHeadOffice)
	northID := branches[0].ID

	t.Run("matching names keep their ids", func(t *testing.T) {
		branches, err := f.onboarding.ReplaceBranches(ctx, testTenant, []dto.BranchInput{
			{Name: "North Campus", Address: "1 North Road"},
		})
		require.NoError(t, err)
		require.Len(t, branches, 1)
		assert.Equal(t, northID, branches[0].ID)
		assert.Equal(t, "1 North Road", branches[0].Address)
	})

	t.Run("empty list clears the collection", func(t *testing.T) {
		branches, err := f.onboarding.ReplaceBranches(ctx, testTenant, nil)
		require.NoError(t, err)
		assert.Empty(t, branches)
	})
}

func TestReplaceReportsFailedRecords(t *testing.T) {
	f := newFixture(t)
	f.withSchool(t)

	branches, err := f.onboarding.ReplaceBranches(context.Background(), testTenant, []dto.BranchInput{
		{Name: "Main"},
		{Name: "Main"},
		{Name: "Annex", Email: "not-an-email"},
		{Name: "Annex 2"},
	})

	var batch *apperrors.BatchError
	require.True(t, errors.As(err, &batch))
	assert.Equal(t, dto.KindBranches, batch.Kind)
	require.Len(t, batch.Failures, 2)
	assert.Equal(t, 1, batch.Failures[0].Index)
	assert.Equal(t, apperrors.CodeDuplicateIdentity, apperrors.Code(batch.Failures[0].Err))
	assert.Equal(t, 2, batch.Failures[1].Index)
	assert.ErrorIs(t, batch.Failures[1].Err, apperrors.ErrValidationFailed)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// siblings of the failed records are committed
	require.Len(t, branches, 2)
	data, err := f.onboarding.GetOnboardingData(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Len(t, data.Branches, 2)
}

func TestReplaceDepartmentsMirrorsClasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	units, err := f.onboarding.ReplaceDepartments(ctx, testTenant, []dto.DepartmentInput{
		{Name: "Grade 1", Type: "CLASS", ParentDepartment: dto.Ref("Academics")},
		{Name: "Academics", Type: "PARENT"},
		{Name: "Finance", Type: "unknown"},
	})
	require.NoError(t, err)
	require.Len(t, units, 3)

	byName := make(map[string]models.OrganizationalUnit, len(units))
	for _, u := range units {
		byName[u.Name] = u
	}
	assert.Equal(t, models.UnitTypeDepartment, byName["Finance"].Type)
	assert.True(t, byName["Grade 1"].IsAcademic)
	require.NotNil(t, byName["Grade 1"].ParentUnitID)
	assert.Equal(t, byName["Academics"].ID, *byName["Grade 1"].ParentUnitID)

	classes := f.classes(t)
	require.Len(t, classes, 1)
	assert.Equal(t, "Grade 1", classes[0].Name)
	require.NotNil(t, classes[0].OrganizationalUnitID)
	assert.Equal(t, byName["Grade 1"].ID, *classes[0].OrganizationalUnitID)
	require.Len(t, classes[0].Sections, 1)
	assert.Equal(t, models.DefaultSectionName, classes[0].Sections[0].Name)
	assert.Equal(t, testCapacity, classes[0].Sections[0].Capacity)

	// dropping the CLASS unit drops its class
	_, err = f.onboarding.ReplaceDepartments(ctx, testTenant, []dto.DepartmentInput{{Name: "Academics", Type: "PARENT"}})
	require.NoError(t, err)
	assert.Empty(t, f.classes(t))
}

func TestReplaceClassesMirrorsUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	_, err := f.onboarding.ReplaceClasses(ctx, testTenant, []dto.ClassInput{
		{Name: "Grade 1"},
		{Name: "Grade 2", Sections: []dto.SectionInput{{Name: "Blue", Capacity: 20}, {Name: "Red"}}},
	})
	require.NoError(t, err)

	classes := f.classes(t)
	assert.Equal(t, []string{"Grade 1", "Grade 2"}, classNames(classes))
	assert.ElementsMatch(t, classNames(classes), classUnitNames(f.units(t)))

	require.Len(t, classes[0].Sections, 1)
	assert.Equal(t, models.DefaultSectionName, classes[0].Sections[0].Name)
	require.Len(t, classes[1].Sections, 2)
	assert.Equal(t, 20, classes[1].Sections[0].Capacity)
	assert.Equal(t, testCapacity, classes[1].Sections[1].Capacity)

	for _, c := range classes {
		assert.NotNil(t, c.OrganizationalUnitID, c.Name)
	}

	t.Run("sections are reconciled by name", func(t *testing.T) {
		blueID := classes[1].Sections[0].ID
		_, err := f.onboarding.ReplaceClasses(ctx, testTenant, []dto.ClassInput{
			{Name: "Grade 2", Sections: []dto.SectionInput{{Name: "Blue", Capacity: 25}}},
		})
		require.NoError(t, err)

		classes := f.classes(t)
		require.Len(t, classes, 1)
		require.Len(t, classes[0].Sections, 1)
		assert.Equal(t, blueID, classes[0].Sections[0].ID)
		assert.Equal(t, 25, classes[0].Sections[0].Capacity)
		assert.Equal(t, []string{"Grade 2"}, classUnitNames(f.units(t)))
	})
}

func TestReplaceEmployeesGeneratesCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	codes := func(employees []models.Employee) map[string]string {
		out := make(map[string]string)
		for _, e := range employees {
			out[e.Name] = e.EmployeeCode
		}
		return out
	}

	employees, err := f.onboarding.ReplaceEmployees(ctx, testTenant, []dto.EmployeeInput{
		{EmployeeID: "EMP007", Name: "Edna Krabappel"},
		{Name: "Seymour Skinner"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Edna Krabappel": "EMP007", "Seymour Skinner": "EMP008"}, codes(employees))

	// a second replace right after never reuses a stored code
	employees, err = f.onboarding.ReplaceEmployees(ctx, testTenant, []dto.EmployeeInput{
		{EmployeeID: "EMP007", Name: "Edna Krabappel"},
		{Name: "Seymour Skinner"},
		{Name: "Dewey Largo"},
		{Name: "Elizabeth Hoover"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Edna Krabappel":   "EMP007",
		"Seymour Skinner":  "EMP008",
		"Dewey Largo":      "EMP009",
		"Elizabeth Hoover": "EMP010",
	}, codes(employees))
}

func TestReplaceClassesResolvesTeachers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	employees, err := f.onboarding.ReplaceEmployees(ctx, testTenant, []dto.EmployeeInput{
		{EmployeeID: "T-01", Name: "Ms. Frizzle", Role: "teacher"},
		{Name: "Mr. Keating", Role: "teacher"},
	})
	require.NoError(t, err)
	require.Len(t, employees, 2)
	ids := make(map[string]string)
	for _, e := range employees {
		assert.NotEmpty(t, e.EmployeeCode)
		ids[e.Name] = e.ID
	}

	_, err = f.onboarding.ReplaceClasses(ctx, testTenant, []dto.ClassInput{{
		Name: "Grade 3",
		Sections: []dto.SectionInput{
			{Name: "A", Teacher: dto.Ref("T-01"), AssistantTeacher: dto.Ref("Mr. Keating")},
			{Name: "B", Teacher: dto.Ref("other"), CustomTeacher: "Visiting Teacher"},
			{Name: "C", Teacher: dto.Ref("nobody")},
		},
	}})
	require.NoError(t, err)

	sections := f.classes(t)[0].Sections
	require.Len(t, sections, 3)
	require.NotNil(t, sections[0].TeacherID)
	assert.Equal(t, ids["Ms. Frizzle"], *sections[0].TeacherID)
	require.NotNil(t, sections[0].AssistantTeacherID)
	assert.Equal(t, ids["Mr. Keating"], *sections[0].AssistantTeacherID)
	assert.Nil(t, sections[1].TeacherID)
	require.NotNil(t, sections[1].CustomTeacher)
	assert.Equal(t, "Visiting Teacher", *sections[1].CustomTeacher)
	assert.Nil(t, sections[2].TeacherID)
}

func TestReplaceSubjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	_, err := f.onboarding.ReplaceClasses(ctx, testTenant, []dto.ClassInput{{Name: "Grade 1"}})
	require.NoError(t, err)
	classID := f.classes(t)[0].ID

	subjects, err := f.onboarding.ReplaceSubjects(ctx, testTenant, []dto.SubjectInput{
		{Name: "Maths", Code: "MTH", Class: dto.Ref("Grade 1"), Section: dto.Ref("A")},
		{Name: "Music", Class: dto.Ref("Grade 9")},
	})

	var batch *apperrors.BatchError
	require.True(t, errors.As(err, &batch))
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, 1, batch.Failures[0].Index)
	assert.Equal(t, "Music", batch.Failures[0].Name)
	assert.ErrorIs(t, err, apperrors.ErrValidationGap)

	require.Len(t, subjects, 1)
	assert.Equal(t, "Maths", subjects[0].Name)
	assert.Equal(t, classID, subjects[0].ClassID)
	assert.NotNil(t, subjects[0].SectionID)
}

func TestReplaceStudentsAndParents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	_, err := f.onboarding.ReplaceClasses(ctx, testTenant, []dto.ClassInput{{Name: "Grade 1"}})
	require.NoError(t, err)

	out, err := f.onboarding.ReplaceStudentsAndParents(ctx, testTenant, dto.StudentsAndParentsInput{
		Parents: []dto.ParentInput{
			{ID: "tmp-1", Name: "Homer Simpson", Type: "father", Email: "homer@example.com"},
			{ID: "tmp-2", Name: "Marge Simpson", Type: "mother"},
		},
		Students: []dto.StudentInput{
			{AdmissionNumber: "STU-040", FirstName: "Maggie", LastName: "Simpson"},
			{FirstName: "Bart", LastName: "Simpson", Class: dto.Ref("Grade 1"), Section: dto.Ref("A"), Parents: []dto.Reference{dto.Ref("tmp-1"), dto.Ref("Marge Simpson")}},
			{FirstName: "Lisa", LastName: "Simpson", Parents: []dto.Reference{dto.Ref("tmp-2"), dto.Ref("tmp-2")}},
		},
	})
	require.NoError(t, err)
	require.Len(t, out.Parents, 2)
	require.Len(t, out.Students, 3)

	parentIDs := make(map[string]string)
	for _, p := range out.Parents {
		parentIDs[p.Name] = p.ID
	}
	students := make(map[string]models.Student)
	for _, s := range out.Students {
		students[s.FirstName] = s
	}

	bart := students["Bart"]
	assert.Equal(t, "STU-041", bart.AdmissionNumber)
	assert.ElementsMatch(t, []string{parentIDs["Homer Simpson"], parentIDs["Marge Simpson"]}, bart.ParentIDs)
	assert.NotNil(t, bart.ClassID)
	assert.NotNil(t, bart.SectionID)

	lisa := students["Lisa"]
	assert.Equal(t, "STU-042", lisa.AdmissionNumber)
	assert.Equal(t, []string{parentIDs["Marge Simpson"]}, lisa.ParentIDs)
	assert.Equal(t, "STU-040", students["Maggie"].AdmissionNumber)

	t.Run("replacing again keeps ids and numbers", func(t *testing.T) {
		out, err := f.onboarding.ReplaceStudentsAndParents(ctx, testTenant, dto.StudentsAndParentsInput{
			Parents:  []dto.ParentInput{{Name: "Homer Simpson", Email: "homer@example.com"}},
			Students: []dto.StudentInput{{AdmissionNumber: "STU-041", FirstName: "Bart", LastName: "Simpson", Parents: []dto.Reference{dto.Ref("Homer Simpson")}}},
		})
		require.NoError(t, err)
		require.Len(t, out.Students, 1)
		require.Len(t, out.Parents, 1)
		assert.Equal(t, bart.ID, out.Students[0].ID)
		assert.Equal(t, parentIDs["Homer Simpson"], out.Parents[0].ID)
		assert.Equal(t, models.ParentGuardian, out.Parents[0].Type)
	})
}

func TestReplaceStudentsIndexesFailuresAfterParents(t *testing.T) {
	f := newFixture(t)
	f.withSchool(t)

	_, err := f.onboarding.ReplaceStudentsAndParents(context.Background(), testTenant, dto.StudentsAndParentsInput{
		Parents:  []dto.ParentInput{{Name: "One"}, {Name: "Two"}},
		Students: []dto.StudentInput{{FirstName: "Ok"}, {LastName: "No first name"}},
	})

	var batch *apperrors.BatchError
	require.True(t, errors.As(err, &batch))
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, 3, batch.Failures[0].Index)
}

func TestReplaceCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withSchool(t)

	t.Run("unknown kind", func(t *testing.T) {
		_, err := f.onboarding.ReplaceCollection(ctx, testTenant, "buses", json.RawMessage(`[]`))
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})

	t.Run("malformed records", func(t *testing.T) {
		_, err := f.onboarding.ReplaceCollection(ctx, testTenant, dto.KindBranches, json.RawMessage(`{"name":1}`))
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})

	t.Run("departments report the mirror", func(t *testing.T) {
		outcome, err := f.onboarding.ReplaceCollection(ctx, testTenant, dto.KindDepartments,
			json.RawMessage(`[{"name":"Grade 5","type":"CLASS"},{"name":"Admin"}]`))
		require.NoError(t, err)
		assert.Equal(t, dto.KindDepartments, outcome.Kind)
		require.NotNil(t, outcome.Mirror)
		assert.Equal(t, 1, outcome.Mirror.Created)
		assert.Len(t, outcome.Records, 2)
	})

	t.Run("classes accept object references", func(t *testing.T) {
		outcome, err := f.onboarding.ReplaceCollection(ctx, testTenant, dto.KindClasses,
			json.RawMessage(`[{"name":"Grade 5","department":{"name":"Grade 5"}}]`))
		require.NoError(t, err)
		require.NotNil(t, outcome.Mirror)
		assert.Equal(t, 0, outcome.Mirror.Writes())
		assert.Equal(t, []string{"Grade 5"}, classUnitNames(f.units(t)))
	})
}
