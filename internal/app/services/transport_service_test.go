package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

type transportFixture struct {
	*fixture
	route *models.BusRoute
	bus   *models.SchoolBus
}

func newTransportFixture(t *testing.T, capacity int) *transportFixture {
	t.Helper()
	return newTransportFixtureFrom(t, newFixture(t), capacity)
}

func newTransportFixtureFrom(t *testing.T, f *fixture, capacity int) *transportFixture {
	t.Helper()
	ctx := context.Background()

	route, err := f.transport.CreateRoute(ctx, testTenant, dto.RouteInput{
		Name:  "Morning",
		Stops: []dto.StopInput{{Name: "Depot"}, {Name: "Market"}},
	})
	require.NoError(t, err)
	bus, err := f.transport.CreateBus(ctx, testTenant, dto.BusInput{
		Name:        "Bus 1",
		PlateNumber: "34 ABC 01",
		Capacity:    capacity,
		RouteID:     route.ID,
	})
	require.NoError(t, err)
	return &transportFixture{fixture: f, route: route, bus: bus}
}

func (f *transportFixture) student(t *testing.T, n int) string {
	t.Helper()
	student := &models.Student{
		TenantID:        testTenant,
		AdmissionNumber: fmt.Sprintf("STU-%03d", n),
		FirstName:       fmt.Sprintf("Rider %d", n),
	}
	f.read(t, func(ctx context.Context, q repositories.Queries) error {
		return q.CreateStudent(ctx, student)
	})
	return student.ID
}

func (f *transportFixture) seat(studentID string, seat int) dto.SeatRequest {
	return dto.SeatRequest{
		StudentID:  studentID,
		BusID:      f.bus.ID,
		RouteID:    f.route.ID,
		StopID:     f.route.Stops[0].ID,
		SeatNumber: seat,
	}
}

func TestCreateRouteNumbersStops(t *testing.T) {
	f := newTransportFixture(t, 2)

	route, err := f.transport.GetRoute(context.Background(), testTenant, f.route.ID)
	require.NoError(t, err)
	require.Len(t, route.Stops, 2)
	assert.Equal(t, "Depot", route.Stops[0].Name)
	assert.Equal(t, 1, route.Stops[0].Sequence)
	assert.Equal(t, 2, route.Stops[1].Sequence)

	assert.Equal(t, models.BusActive, f.bus.Status)
	require.NotNil(t, f.bus.RouteID)
	assert.Equal(t, route.ID, *f.bus.RouteID)
}

func TestCreateBusValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.transport.CreateBus(ctx, testTenant, dto.BusInput{Name: "Tiny", PlateNumber: "X", Capacity: 0})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.transport.CreateBus(ctx, testTenant, dto.BusInput{Name: "Lost", PlateNumber: "Y", Capacity: 10, RouteID: "missing"})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestSeatAllocationScenario(t *testing.T) {
	f := newTransportFixture(t, 2)
	ctx := context.Background()
	first, second := f.student(t, 1), f.student(t, 2)

	enrollment, err := f.transport.CreateEnrollment(ctx, testTenant, f.seat(first, 1))
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
	assert.Equal(t, models.FeePending, enrollment.FeeStatus)

	_, err = f.transport.CreateEnrollment(ctx, testTenant, f.seat(second, 1))
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, apperrors.CodeSeatTaken, apperrors.Code(err))

	_, err = f.transport.CreateEnrollment(ctx, testTenant, f.seat(second, 3))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.transport.CreateEnrollment(ctx, testTenant, f.seat(second, 2))
	require.NoError(t, err)

	enrollments, err := f.transport.ListEnrollments(ctx, testTenant, models.EnrollmentFilter{BusID: f.bus.ID})
	require.NoError(t, err)
	assert.Len(t, enrollments, 2)

	_, err = f.transport.ListEnrollments(ctx, testTenant, models.EnrollmentFilter{BusID: "bus-1"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestSeatAllocationRejectsBadReferences(t *testing.T) {
	f := newTransportFixture(t, 4)
	ctx := context.Background()
	student := f.student(t, 1)

	_, err := f.transport.CreateEnrollment(ctx, testTenant, f.seat("missing", 1))
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	other, err := f.transport.CreateRoute(ctx, testTenant, dto.RouteInput{Name: "Evening", Stops: []dto.StopInput{{Name: "Park"}}})
	require.NoError(t, err)
	req := f.seat(student, 1)
	req.StopID = other.Stops[0].ID
	_, err = f.transport.CreateEnrollment(ctx, testTenant, req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	parked, err := f.transport.CreateBus(ctx, testTenant, dto.BusInput{Name: "Bus 2", PlateNumber: "34 ABC 02", Capacity: 4, Status: "inactive"})
	require.NoError(t, err)
	req = f.seat(student, 1)
	req.BusID = parked.ID
	_, err = f.transport.CreateEnrollment(ctx, testTenant, req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestOneActiveEnrollmentPerStudent(t *testing.T) {
	f := newTransportFixture(t, 10)
	ctx := context.Background()
	student := f.student(t, 1)

	const n = 5
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

func TestConcurrentSeatIsExclusive(t *testing.T) {
	f := newTransportFixture(t, 10)
	ctx := context.Background()

	const n = 8
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
			_, err := f.transport.CreateEnrollment(ctx, testTenant, f.seat(student, 7))
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

func TestChangeSeat(t *testing.T) {
	f := newTransportFixture(t, 3)
	ctx := context.Background()

	a, err := f.transport.CreateEnrollment(ctx, testTenant, f.seat(f.student(t, 1), 1))
	require.NoError(t, err)
	_, err = f.transport.CreateEnrollment(ctx, testTenant, f.seat(f.student(t, 2), 2))
	require.NoError(t, err)

	_, err = f.transport.ChangeSeat(ctx, testTenant, a.ID, 2)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, apperrors.CodeSeatTaken, apperrors.Code(err))

	_, err = f.transport.ChangeSeat(ctx, testTenant, a.ID, 4)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	moved, err := f.transport.ChangeSeat(ctx, testTenant, a.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, moved.SeatNumber)

	// seat 1 is free again
	_, err = f.transport.CreateEnrollment(ctx, testTenant, f.seat(f.student(t, 3), 1))
	assert.NoError(t, err)

	_, err = f.transport.ChangeSeat(ctx, testTenant, "missing", 1)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestReactivationNeedsFreeSeat(t *testing.T) {
	f := newTransportFixture(t, 2)
	ctx := context.Background()
	first, second := f.student(t, 1), f.student(t, 2)

	enrollment, err := f.transport.CreateEnrollment(ctx, testTenant, f.seat(first, 1))
	require.NoError(t, err)

	inactive, err := f.transport.SetEnrollmentStatus(ctx, testTenant, enrollment.ID, models.EnrollmentInactive)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentInactive, inactive.Status)

	_, err = f.transport.CreateEnrollment(ctx, testTenant, f.seat(second, 1))
	require.NoError(t, err)

	_, err = f.transport.SetEnrollmentStatus(ctx, testTenant, enrollment.ID, models.EnrollmentActive)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, apperrors.CodeSeatTaken, apperrors.Code(err))

	// after moving to a free seat the enrollment can come back
	_, err = f.transport.ChangeSeat(ctx, testTenant, enrollment.ID, 2)
	require.NoError(t, err)
	active, err := f.transport.SetEnrollmentStatus(ctx, testTenant, enrollment.ID, models.EnrollmentActive)
	require.NoError(t, err)
	assert.Equal(t, 2, active.SeatNumber)

	_, err = f.transport.SetEnrollmentStatus(ctx, testTenant, enrollment.ID, "paused")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestInactiveBusFreezesSeats(t *testing.T) {
	f := newTransportFixture(t, 3)
	ctx := context.Background()

	active, err := f.transport.CreateEnrollment(ctx, testTenant, f.seat(f.student(t, 1), 1))
	require.NoError(t, err)
	parked, err := f.transport.CreateEnrollment(ctx, testTenant, f.seat(f.student(t, 2), 2))
	require.NoError(t, err)
	_, err = f.transport.SetEnrollmentStatus(ctx, testTenant, parked.ID, models.EnrollmentInactive)
	require.NoError(t, err)

	bus, err := f.transport.SetBusStatus(ctx, testTenant, f.bus.ID, models.BusInactive)
	require.NoError(t, err)
	assert.Equal(t, models.BusInactive, bus.Status)

	_, err = f.transport.ChangeSeat(ctx, testTenant, active.ID, 3)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = f.transport.CreateEnrollment(ctx, testTenant, f.seat(f.student(t, 3), 3))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	// an inactive enrollment can still be moved while the bus is parked
	moved, err := f.transport.ChangeSeat(ctx, testTenant, parked.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, moved.SeatNumber)

	_, err = f.transport.SetBusStatus(ctx, testTenant, f.bus.ID, models.BusActive)
	require.NoError(t, err)
	moved, err = f.transport.ChangeSeat(ctx, testTenant, active.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, moved.SeatNumber)

	_, err = f.transport.SetBusStatus(ctx, testTenant, f.bus.ID, "scrapped")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = f.transport.SetBusStatus(ctx, testTenant, "missing", models.BusInactive)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}
