package dto

// StopInput is one stop of a route, in travel order
type StopInput struct {
	Name string `json:"name" binding:"required"`
}

// RouteInput creates a bus route
type RouteInput struct {
	Name  string      `json:"name" binding:"required"`
	Stops []StopInput `json:"stops" binding:"omitempty,dive"`
}

// BusInput creates a school bus
type BusInput struct {
	Name        string `json:"name" binding:"required"`
	PlateNumber string `json:"plateNumber" binding:"required"`
	Capacity    int    `json:"capacity" binding:"required,gt=0"`
	RouteID     string `json:"routeId"`
	Status      string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// SeatRequest asks for one seat on a bus for a student
type SeatRequest struct {
	StudentID  string `json:"studentId" binding:"required"`
	BusID      string `json:"busId" binding:"required"`
	RouteID    string `json:"routeId" binding:"required"`
	StopID     string `json:"stopId" binding:"required"`
	SeatNumber int    `json:"seatNumber" binding:"required,gt=0"`
}

// ChangeSeatRequest moves an enrollment to another seat on the same bus
type ChangeSeatRequest struct {
	SeatNumber int `json:"seatNumber" binding:"required,gt=0"`
}

// BusStatusRequest takes a bus in or out of service
type BusStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// EnrollmentStatusRequest activates or deactivates an enrollment
type EnrollmentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}
