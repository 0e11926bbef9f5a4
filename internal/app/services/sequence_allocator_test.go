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

func TestNextSequenceValue(t *testing.T) {
	tests := []struct {
		current string
		want    string
	}{
		{"001", "002"},
		{"009", "010"},
		{"099", "100"},
		{"999", "1000"},
		{"0", "1"},
		{"41", "42"},
		{" 007 ", "008"},
	}
	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			got, err := NextSequenceValue(tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextSequenceValueRejectsNonDecimal(t *testing.T) {
	for _, current := range []string{"", "abc", "12a", "-1"} {
		_, err := NextSequenceValue(current)
		assert.ErrorIs(t, err, apperrors.ErrValidationFailed, current)
	}
}

func TestComposeApplicationNumber(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		number  string
		suffix  string
		refType models.ReferenceType
		want    string
	}{
		{"prefix layout", "ADM", "001", "2025", models.ReferenceTypePrefix, "ADM-001-2025"},
		{"suffix layout", "ADM", "001", "2025", models.ReferenceTypeSuffix, "001-2025-ADM"},
		{"empty suffix", "ADM", "014", "", models.ReferenceTypePrefix, "ADM-014"},
		{"empty prefix", "", "014", "2025", models.ReferenceTypeSuffix, "014-2025"},
		{"number only", " ", "7", "", models.ReferenceTypePrefix, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeApplicationNumber(tt.prefix, tt.number, tt.suffix, tt.refType))
		})
	}
}

func TestNextAdmissionNumber(t *testing.T) {
	assert.Equal(t, "STU-001", NextAdmissionNumber(nil))
	assert.Equal(t, "STU-003", NextAdmissionNumber([]string{"STU-001", "STU-002"}))
	// numeric order, not string order
	assert.Equal(t, "STU-011", NextAdmissionNumber([]string{"STU-9", "STU-010", "STU-002"}))
	// numbers without trailing digits are ignored
	assert.Equal(t, "STU-006", NextAdmissionNumber([]string{"legacy", "A5"}))
	assert.Equal(t, "STU-1000", NextAdmissionNumber([]string{"STU-999"}))
}

func TestIncrementSequenceCreatesDefaults(t *testing.T) {
	f := newFixture(t)

	var consumed []string
	for i := 0; i < 3; i++ {
		f.read(t, func(ctx context.Context, q repositories.Queries) error {
			number, err := f.allocator.IncrementSequence(ctx, q, testTenant)
			consumed = append(consumed, number)
			return err
		})
	}

	assert.Equal(t, []string{"001", "002", "003"}, consumed)
	assert.Equal(t, "004", f.settings(t).NextNumber)
}

func TestAllocateApplicationNumberScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.read(t, func(ctx context.Context, q repositories.Queries) error {
		return q.SaveAdmissionSettings(ctx, &models.AdmissionSettings{
			TenantID:       testTenant,
			DocumentPrefix: "ADM",
			DocumentSuffix: "2025",
			NextNumber:     "001",
			ReferenceType:  models.ReferenceTypePrefix,
			Workflow:       defaultWorkflow(),
		})
	})

	app, err := f.admission.CreateApplication(ctx, testTenant, applicationInput("Ada", "Lovelace"))
	require.NoError(t, err)
	assert.Equal(t, "ADM-001-2025", app.ApplicationNumber)
	assert.Equal(t, "002", f.settings(t).NextNumber)
}

func TestConcurrentApplicationNumbersAreGapless(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admission.UpdateSettings(ctx, testTenant, settingsRequest("APP", "", "001"))
	require.NoError(t, err)

	const n = 25
	numbers := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			app, err := f.admission.CreateApplication(ctx, testTenant, applicationInput("Student", "Concurrent"))
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
	assert.Equal(t, "026", f.settings(t).NextNumber)
}

func TestFailedInsertDoesNotConsumeNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admission.UpdateSettings(ctx, testTenant, settingsRequest("ADM", "X", "005"))
	require.NoError(t, err)

	// the unit of work fails after the allocation, so the counter rolls back
	err = f.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		if _, err := f.allocator.AllocateApplicationNumber(ctx, q, testTenant); err != nil {
			return err
		}
		return apperrors.NewValidationError("insert failed")
	})
	require.Error(t, err)
	assert.Equal(t, "005", f.settings(t).NextNumber)
}
