package models

import "time"

// SchoolBus is a vehicle whose Capacity bounds the seat numbers handed out
type SchoolBus struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"-"`
	Name        string    `json:"name"`
	PlateNumber string    `json:"plateNumber"`
	Capacity    int       `json:"capacity"`
	Status      BusStatus `json:"status"`
	RouteID     *string   `json:"routeId,omitempty"`
}

// BusRoute is an ordered list of stops
type BusRoute struct {
	ID       string    `json:"id"`
	TenantID string    `json:"-"`
	Name     string    `json:"name"`
	Stops    []BusStop `json:"stops"`
}

// BusStop belongs to one route
type BusStop struct {
	ID       string `json:"id"`
	TenantID string `json:"-"`
	RouteID  string `json:"routeId"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

// BusEnrollment holds a seat. Active enrollments are unique per
// (bus, seat) and per student.
type BusEnrollment struct {
	ID             string           `json:"id"`
	TenantID       string           `json:"-"`
	StudentID      string           `json:"studentId"`
	BusID          string           `json:"busId"`
	RouteID        string           `json:"routeId"`
	StopID         string           `json:"stopId"`
	SeatNumber     int              `json:"seatNumber"`
	Status         EnrollmentStatus `json:"status"`
	FeeStatus      string           `json:"feeStatus"`
	EnrollmentDate time.Time        `json:"enrollmentDate"`
}

// FeePending is the fee status of a new enrollment
const FeePending = "pending"

// EnrollmentFilter narrows ListEnrollments
type EnrollmentFilter struct {
	BusID     string
	StudentID string
	Status    EnrollmentStatus
}
