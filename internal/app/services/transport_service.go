package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

// TransportService manages routes, buses and seat enrollments
type TransportService struct {
	store     repositories.Store
	allocator *SequenceAllocator
	logger    zerolog.Logger
}

// NewTransportService creates a new TransportService
func NewTransportService(store repositories.Store, allocator *SequenceAllocator, logger zerolog.Logger) *TransportService {
	return &TransportService{
		store:     store,
		allocator: allocator,
		logger:    logger,
	}
}

// CreateRoute stores a route with its stops numbered in the order given
func (s *TransportService) CreateRoute(ctx context.Context, tenantID string, in dto.RouteInput) (*models.BusRoute, error) {
	route := &models.BusRoute{
		TenantID: tenantID,
		Name:     strings.TrimSpace(in.Name),
		Stops:    make([]models.BusStop, 0, len(in.Stops)),
	}
	for i, stop := range in.Stops {
		route.Stops = append(route.Stops, models.BusStop{
			TenantID: tenantID,
			Name:     strings.TrimSpace(stop.Name),
			Sequence: i + 1,
		})
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		return q.CreateRoute(ctx, route)
	})
	if err != nil {
		return nil, storeError(err, "route")
	}
	s.logger.Info().Str("tenantID", tenantID).Str("route", route.Name).Int("stops", len(route.Stops)).Msg("Route created")
	return route, nil
}

// GetRoute returns a route with its stops in travel order
func (s *TransportService) GetRoute(ctx context.Context, tenantID, id string) (*models.BusRoute, error) {
	var route *models.BusRoute
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		route, err = q.GetRoute(ctx, tenantID, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, "route")
	}
	return route, nil
}

// CreateBus stores a bus. New buses are active unless the input says otherwise.
func (s *TransportService) CreateBus(ctx context.Context, tenantID string, in dto.BusInput) (*models.SchoolBus, error) {
	if in.Capacity < 1 {
		return nil, apperrors.NewValidationError("capacity must be at least 1")
	}
	bus := &models.SchoolBus{
		TenantID:    tenantID,
		Name:        strings.TrimSpace(in.Name),
		PlateNumber: strings.TrimSpace(in.PlateNumber),
		Capacity:    in.Capacity,
		Status:      models.BusActive,
	}
	if in.Status != "" {
		bus.Status = models.BusStatus(in.Status)
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		if in.RouteID != "" {
			route, err := q.GetRoute(ctx, tenantID, in.RouteID)
			if err != nil {
				return storeError(err, "route")
			}
			bus.RouteID = &route.ID
		}
		return q.CreateBus(ctx, bus)
	})
	if err != nil {
		return nil, storeError(err, "bus")
	}
	s.logger.Info().Str("tenantID", tenantID).Str("bus", bus.Name).Int("capacity", bus.Capacity).Msg("Bus created")
	return bus, nil
}

// GetBus returns one bus of the tenant
func (s *TransportService) GetBus(ctx context.Context, tenantID, id string) (*models.SchoolBus, error) {
	var bus *models.SchoolBus
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		bus, err = q.GetBus(ctx, tenantID, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, "bus")
	}
	return bus, nil
}

// SetBusStatus takes a bus in or out of service. Enrollments on an inactive
// bus are kept, but no seat on it can be allocated, moved or reactivated.
func (s *TransportService) SetBusStatus(ctx context.Context, tenantID, id string, status models.BusStatus) (*models.SchoolBus, error) {
	if status != models.BusActive && status != models.BusInactive {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown bus status %q", status))
	}

	var bus *models.SchoolBus
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		if bus, err = q.LockBus(ctx, tenantID, id); err != nil {
			return err
		}
		if bus.Status == status {
			return nil
		}
		bus.Status = status
		return q.UpdateBusStatus(ctx, tenantID, id, status)
	})
	if err != nil {
		return nil, storeError(err, "bus")
	}
	s.logger.Info().Str("tenantID", tenantID).Str("bus", bus.Name).Str("status", string(status)).Msg("Bus status changed")
	return bus, nil
}

// CreateEnrollment allocates the requested seat for a student
func (s *TransportService) CreateEnrollment(ctx context.Context, tenantID string, req dto.SeatRequest) (*models.BusEnrollment, error) {
	var enrollment *models.BusEnrollment
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		enrollment, err = s.allocator.AllocateSeat(ctx, q, tenantID, req)
		return err
	})
	if err != nil {
		return nil, storeError(err, "enrollment")
	}
	return enrollment, nil
}

// ChangeSeat moves an enrollment to another seat on the same bus
func (s *TransportService) ChangeSeat(ctx context.Context, tenantID, enrollmentID string, seat int) (*models.BusEnrollment, error) {
	var enrollment *models.BusEnrollment
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		if enrollment, err = q.GetEnrollment(ctx, tenantID, enrollmentID); err != nil {
			return storeError(err, "enrollment")
		}
		if enrollment.SeatNumber == seat {
			return nil
		}

		if enrollment.Status == models.EnrollmentActive {
			bus, err := s.allocator.lockActiveBus(ctx, q, tenantID, enrollment.BusID)
			if err != nil {
				return err
			}
			if err := s.allocator.checkSeat(ctx, q, bus, seat, enrollment.StudentID, enrollment.ID); err != nil {
				return err
			}
		} else {
			bus, err := q.LockBus(ctx, tenantID, enrollment.BusID)
			if err != nil {
				return storeError(err, "bus")
			}
			if seat < 1 || seat > bus.Capacity {
				return apperrors.NewValidationError(fmt.Sprintf("seat %d is outside 1..%d for bus %s", seat, bus.Capacity, bus.Name))
			}
		}

		previous := enrollment.SeatNumber
		enrollment.SeatNumber = seat
		if err := q.UpdateEnrollment(ctx, enrollment); err != nil {
			return s.allocator.seatConflict(storeError(err, "enrollment"))
		}
		s.logger.Info().
			Str("tenantID", tenantID).
			Str("enrollmentID", enrollment.ID).
			Int("from", previous).
			Int("to", seat).
			Msg("Seat changed")
		return nil
	})
	if err != nil {
		return nil, storeError(err, "enrollment")
	}
	return enrollment, nil
}

// SetEnrollmentStatus activates or deactivates an enrollment. Deactivating
// frees the seat; reactivating claims it again and fails if it was taken.
func (s *TransportService) SetEnrollmentStatus(ctx context.Context, tenantID, enrollmentID string, status models.EnrollmentStatus) (*models.BusEnrollment, error) {
	if status != models.EnrollmentActive && status != models.EnrollmentInactive {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown enrollment status %q", status))
	}

	var enrollment *models.BusEnrollment
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		if enrollment, err = q.GetEnrollment(ctx, tenantID, enrollmentID); err != nil {
			return storeError(err, "enrollment")
		}
		if enrollment.Status == status {
			return nil
		}

		if status == models.EnrollmentActive {
			bus, err := s.allocator.lockActiveBus(ctx, q, tenantID, enrollment.BusID)
			if err != nil {
				return err
			}
			if err := s.allocator.checkSeat(ctx, q, bus, enrollment.SeatNumber, enrollment.StudentID, enrollment.ID); err != nil {
				return err
			}
		}

		enrollment.Status = status
		if err := q.UpdateEnrollment(ctx, enrollment); err != nil {
			return s.allocator.seatConflict(storeError(err, "enrollment"))
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "enrollment")
	}

	s.logger.Info().Str("tenantID", tenantID).Str("enrollmentID", enrollmentID).Str("status", string(status)).Msg("Enrollment status changed")
	return enrollment, nil
}

// ListEnrollments returns the tenant's enrollments ordered by bus and seat
func (s *TransportService) ListEnrollments(ctx context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.BusEnrollment, error) {
	for _, f := range []struct{ name, id string }{{"busId", filter.BusID}, {"studentId", filter.StudentID}} {
		if f.id == "" {
			continue
		}
		if _, err := uuid.Parse(f.id); err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("%s %q is not a valid id", f.name, f.id))
		}
	}

	var enrollments []models.BusEnrollment
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		enrollments, err = q.ListEnrollments(ctx, tenantID, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}
