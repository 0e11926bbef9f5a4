package memstore

import (
	"context"

	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/repositories"
)

func (q *queries) CreateRoute(_ context.Context, route *models.BusRoute) error {
	route.ID = newID(route.ID)
	row := *route
	row.Stops = nil
	q.st.routes[route.ID] = row
	for i := range route.Stops {
		stop := &route.Stops[i]
		stop.ID = newID(stop.ID)
		stop.RouteID = route.ID
		stop.TenantID = route.TenantID
		q.st.stops[stop.ID] = *stop
	}
	return nil
}

func (q *queries) GetRoute(_ context.Context, tenantID, id string) (*models.BusRoute, error) {
	route, ok := q.st.routes[id]
	if !ok || route.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	route.Stops = collect(q.st.stops,
		func(s models.BusStop) bool { return s.RouteID == id },
		func(a, b models.BusStop) bool { return a.Sequence < b.Sequence })
	return &route, nil
}

func (q *queries) GetStop(_ context.Context, tenantID, id string) (*models.BusStop, error) {
	stop, ok := q.st.stops[id]
	if !ok || stop.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	return &stop, nil
}

func (q *queries) CreateBus(_ context.Context, bus *models.SchoolBus) error {
	bus.ID = newID(bus.ID)
	q.st.buses[bus.ID] = *bus
	return nil
}

func (q *queries) GetBus(_ context.Context, tenantID, id string) (*models.SchoolBus, error) {
	bus, ok := q.st.buses[id]
	if !ok || bus.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	return &bus, nil
}

// LockBus is a plain read: transactions are already serialized
func (q *queries) LockBus(ctx context.Context, tenantID, id string) (*models.SchoolBus, error) {
	return q.GetBus(ctx, tenantID, id)
}

func (q *queries) UpdateBusStatus(_ context.Context, tenantID, id string, status models.BusStatus) error {
	bus, ok := q.st.buses[id]
	if !ok || bus.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	bus.Status = status
	q.st.buses[id] = bus
	return nil
}

func (q *queries) findEnrollment(match func(models.BusEnrollment) bool) (*models.BusEnrollment, error) {
	for _, e := range q.st.enrollments {
		if match(e) {
			found := e
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (q *queries) ActiveSeatHolder(_ context.Context, tenantID, busID string, seat int) (*models.BusEnrollment, error) {
	return q.findEnrollment(func(e models.BusEnrollment) bool {
		return e.TenantID == tenantID && e.BusID == busID && e.SeatNumber == seat && e.Status == models.EnrollmentActive
	})
}

func (q *queries) ActiveEnrollmentOf(_ context.Context, tenantID, studentID string) (*models.BusEnrollment, error) {
	return q.findEnrollment(func(e models.BusEnrollment) bool {
		return e.TenantID == tenantID && e.StudentID == studentID && e.Status == models.EnrollmentActive
	})
}

// checkActive enforces the two partial unique indexes on active enrollments
func (q *queries) checkActive(e *models.BusEnrollment) error {
	if e.Status != models.EnrollmentActive {
		return nil
	}
	for _, other := range q.st.enrollments {
		if other.ID == e.ID || other.Status != models.EnrollmentActive {
			continue
		}
		if other.BusID == e.BusID && other.SeatNumber == e.SeatNumber {
			return unique(repositories.ConstraintActiveSeat)
		}
		if other.TenantID == e.TenantID && other.StudentID == e.StudentID {
			return unique(repositories.ConstraintActiveStudentOnBus)
		}
	}
	return nil
}

func (q *queries) CreateEnrollment(_ context.Context, e *models.BusEnrollment) error {
	if err := q.checkActive(e); err != nil {
		return err
	}
	e.ID = newID(e.ID)
	q.st.enrollments[e.ID] = *e
	return nil
}

func (q *queries) GetEnrollment(_ context.Context, tenantID, id string) (*models.BusEnrollment, error) {
	e, ok := q.st.enrollments[id]
	if !ok || e.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

func (q *queries) UpdateEnrollment(_ context.Context, e *models.BusEnrollment) error {
	existing, ok := q.st.enrollments[e.ID]
	if !ok || existing.TenantID != e.TenantID {
		return repositories.ErrNotFound
	}
	if err := q.checkActive(e); err != nil {
		return err
	}
	q.st.enrollments[e.ID] = *e
	return nil
}

func (q *queries) ListEnrollments(_ context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.BusEnrollment, error) {
	return collect(q.st.enrollments,
		func(e models.BusEnrollment) bool {
			return e.TenantID == tenantID &&
				(filter.BusID == "" || e.BusID == filter.BusID) &&
				(filter.StudentID == "" || e.StudentID == filter.StudentID) &&
				(filter.Status == "" || e.Status == filter.Status)
		},
		func(a, b models.BusEnrollment) bool {
			if a.BusID != b.BusID {
				return a.BusID < b.BusID
			}
			return a.SeatNumber < b.SeatNumber
		}), nil
}
