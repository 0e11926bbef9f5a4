package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yigit/eduadmin/internal/app/models"
)

var stopColumns = []string{"id", "tenant_id", "route_id", "name", "sequence"}

func scanStop(row rowScanner) (models.BusStop, error) {
	var s models.BusStop
	err := row.Scan(&s.ID, &s.TenantID, &s.RouteID, &s.Name, &s.Sequence)
	return s, err
}

// CreateRoute creates a route with its stops
func (q *pgQueries) CreateRoute(ctx context.Context, route *models.BusRoute) error {
	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	err := q.exec(ctx, q.sb.Insert("bus_routes").
		Columns("id", "tenant_id", "name").
		Values(route.ID, route.TenantID, route.Name),
		"create route")
	if err != nil {
		return err
	}

	for i := range route.Stops {
		stop := &route.Stops[i]
		if stop.ID == "" {
			stop.ID = uuid.NewString()
		}
		stop.RouteID = route.ID
		stop.TenantID = route.TenantID
		err := q.exec(ctx, q.sb.Insert("bus_stops").
			Columns(stopColumns...).
			Values(stop.ID, stop.TenantID, stop.RouteID, stop.Name, stop.Sequence),
			"create stop")
		if err != nil {
			return err
		}
	}
	return nil
}

// GetRoute retrieves a route with its stops in sequence
func (q *pgQueries) GetRoute(ctx context.Context, tenantID, id string) (*models.BusRoute, error) {
	var route models.BusRoute
	err := q.queryRow(ctx,
		q.sb.Select("id", "tenant_id", "name").From("bus_routes").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}),
		"get route",
		func(row rowScanner) error {
			return row.Scan(&route.ID, &route.TenantID, &route.Name)
		})
	if err != nil {
		return nil, err
	}

	route.Stops, err = queryAll(ctx, q,
		q.sb.Select(stopColumns...).From("bus_stops").
			Where(squirrel.Eq{"route_id": id, "tenant_id": tenantID}).
			OrderBy("sequence"),
		"list stops", scanStop)
	if err != nil {
		return nil, err
	}
	return &route, nil
}

// GetStop retrieves one stop
func (q *pgQueries) GetStop(ctx context.Context, tenantID, id string) (*models.BusStop, error) {
	var stop models.BusStop
	err := q.queryRow(ctx,
		q.sb.Select(stopColumns...).From("bus_stops").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}),
		"get stop",
		func(row rowScanner) (err error) {
			stop, err = scanStop(row)
			return err
		})
	if err != nil {
		return nil, err
	}
	return &stop, nil
}

var busColumns = []string{"id", "tenant_id", "name", "plate_number", "capacity", "status", "route_id"}

func scanBus(row rowScanner) (models.SchoolBus, error) {
	var b models.SchoolBus
	err := row.Scan(&b.ID, &b.TenantID, &b.Name, &b.PlateNumber, &b.Capacity, &b.Status, &b.RouteID)
	return b, err
}

// CreateBus creates a new bus
func (q *pgQueries) CreateBus(ctx context.Context, bus *models.SchoolBus) error {
	if bus.ID == "" {
		bus.ID = uuid.NewString()
	}
	return q.exec(ctx, q.sb.Insert("school_buses").
		Columns(busColumns...).
		Values(bus.ID, bus.TenantID, bus.Name, bus.PlateNumber, bus.Capacity, bus.Status, bus.RouteID),
		"create bus")
}

func (q *pgQueries) readBus(ctx context.Context, tenantID, id, op string, lock bool) (*models.SchoolBus, error) {
	b := q.sb.Select(busColumns...).From("school_buses").Where(squirrel.Eq{"id": id, "tenant_id": tenantID})
	if lock {
		b = b.Suffix("FOR UPDATE")
	}
	var bus models.SchoolBus
	err := q.queryRow(ctx, b, op, func(row rowScanner) (err error) {
		bus, err = scanBus(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &bus, nil
}

// GetBus retrieves one bus
func (q *pgQueries) GetBus(ctx context.Context, tenantID, id string) (*models.SchoolBus, error) {
	return q.readBus(ctx, tenantID, id, "get bus", false)
}

// LockBus retrieves one bus with FOR UPDATE
func (q *pgQueries) LockBus(ctx context.Context, tenantID, id string) (*models.SchoolBus, error) {
	return q.readBus(ctx, tenantID, id, "lock bus", true)
}

// UpdateBusStatus takes a bus in or out of service
func (q *pgQueries) UpdateBusStatus(ctx context.Context, tenantID, id string, status models.BusStatus) error {
	return q.exec(ctx, q.sb.Update("school_buses").
		Set("status", status).
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID}),
		"update bus status")
}

var enrollmentColumns = []string{
	"id", "tenant_id", "student_id", "bus_id", "route_id", "stop_id",
	"seat_number", "status", "fee_status", "enrollment_date",
}

func scanEnrollment(row rowScanner) (models.BusEnrollment, error) {
	var e models.BusEnrollment
	err := row.Scan(&e.ID, &e.TenantID, &e.StudentID, &e.BusID, &e.RouteID, &e.StopID,
		&e.SeatNumber, &e.Status, &e.FeeStatus, &e.EnrollmentDate)
	return e, err
}

func (q *pgQueries) oneEnrollment(ctx context.Context, where squirrel.Sqlizer, op string) (*models.BusEnrollment, error) {
	var e models.BusEnrollment
	err := q.queryRow(ctx,
		q.sb.Select(enrollmentColumns...).From("bus_enrollments").Where(where).Limit(1),
		op,
		func(row rowScanner) (err error) {
			e, err = scanEnrollment(row)
			return err
		})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ActiveSeatHolder returns the active enrollment holding seat on busID
func (q *pgQueries) ActiveSeatHolder(ctx context.Context, tenantID, busID string, seat int) (*models.BusEnrollment, error) {
	return q.oneEnrollment(ctx, squirrel.Eq{
		"tenant_id":   tenantID,
		"bus_id":      busID,
		"seat_number": seat,
		"status":      models.EnrollmentActive,
	}, "find seat holder")
}

// ActiveEnrollmentOf returns the student's active enrollment
func (q *pgQueries) ActiveEnrollmentOf(ctx context.Context, tenantID, studentID string) (*models.BusEnrollment, error) {
	return q.oneEnrollment(ctx, squirrel.Eq{
		"tenant_id":  tenantID,
		"student_id": studentID,
		"status":     models.EnrollmentActive,
	}, "find active enrollment")
}

// CreateEnrollment inserts a new enrollment
func (q *pgQueries) CreateEnrollment(ctx context.Context, e *models.BusEnrollment) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return q.exec(ctx, q.sb.Insert("bus_enrollments").
		Columns(enrollmentColumns...).
		Values(e.ID, e.TenantID, e.StudentID, e.BusID, e.RouteID, e.StopID,
			e.SeatNumber, e.Status, e.FeeStatus, e.EnrollmentDate),
		"create enrollment")
}

// GetEnrollment retrieves one enrollment
func (q *pgQueries) GetEnrollment(ctx context.Context, tenantID, id string) (*models.BusEnrollment, error) {
	return q.oneEnrollment(ctx, squirrel.Eq{"id": id, "tenant_id": tenantID}, "get enrollment")
}

// UpdateEnrollment writes seat, stop, status and fee status
func (q *pgQueries) UpdateEnrollment(ctx context.Context, e *models.BusEnrollment) error {
	return q.exec(ctx, q.sb.Update("bus_enrollments").
		SetMap(map[string]interface{}{
			"stop_id":     e.StopID,
			"seat_number": e.SeatNumber,
			"status":      e.Status,
			"fee_status":  e.FeeStatus,
		}).
		Where(squirrel.Eq{"id": e.ID, "tenant_id": e.TenantID}),
		"update enrollment")
}

// ListEnrollments retrieves enrollments matching filter
func (q *pgQueries) ListEnrollments(ctx context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.BusEnrollment, error) {
	where := squirrel.Eq{"tenant_id": tenantID}
	if filter.BusID != "" {
		where["bus_id"] = filter.BusID
	}
	if filter.StudentID != "" {
		where["student_id"] = filter.StudentID
	}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	return queryAll(ctx, q,
		q.sb.Select(enrollmentColumns...).From("bus_enrollments").Where(where).
			OrderBy("bus_id", "seat_number", "enrollment_date"),
		"list enrollments", scanEnrollment)
}
