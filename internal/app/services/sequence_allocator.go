package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
	"github.com/yigit/eduadmin/internal/pkg/metrics"
)

// Allocation schemes, used as metric labels
const (
	schemeApplicationNumber = "application_number"
	schemeAdmissionNumber   = "admission_number"
	schemeSeat              = "seat"
)

const admissionNumberPrefix = "STU-"

// NextSequenceValue increments a zero padded decimal string, keeping its
// width. "009" becomes "010" and "999" becomes "1000".
func NextSequenceValue(current string) (string, error) {
	current = strings.TrimSpace(current)
	n, err := strconv.ParseUint(current, 10, 63)
	if err != nil {
		return "", fmt.Errorf("%w: sequence value %q is not a decimal number", apperrors.ErrValidationFailed, current)
	}
	return fmt.Sprintf("%0*d", len(current), n+1), nil
}

// sequenceBelow reports whether the decimal value of candidate is lower than
// current. An unparsable current value never blocks.
func sequenceBelow(candidate, current string) bool {
	c, err := strconv.ParseUint(strings.TrimSpace(current), 10, 63)
	if err != nil {
		return false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(candidate), 10, 63)
	return err == nil && n < c
}

// ComposeApplicationNumber lays out an application number. The prefix layout
// is prefix-number-suffix, the suffix layout number-suffix-prefix. Empty
// parts are left out.
func ComposeApplicationNumber(prefix, number, suffix string, refType models.ReferenceType) string {
	parts := []string{prefix, number, suffix}
	if refType == models.ReferenceTypeSuffix {
		parts = []string{number, suffix, prefix}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "-")
}

// NextAdmissionNumber returns the admission number following the numerically
// highest trailing digit run among existing, or STU-001.
func NextAdmissionNumber(existing []string) string {
	var highest uint64
	for _, number := range existing {
		if n, ok := trailingNumber(number); ok && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", admissionNumberPrefix, highest+1)
}

func trailingNumber(s string) (uint64, bool) {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.ParseUint(s[start:end], 10, 63)
	return n, err == nil
}

// SequenceAllocator hands out application numbers, admission numbers and bus
// seats. Every method runs inside the caller's transaction and takes the
// lock guarding its scheme before reading.
type SequenceAllocator struct {
	defaultPrefix string
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewSequenceAllocator creates a new SequenceAllocator
func NewSequenceAllocator(defaultPrefix string, m *metrics.Metrics, logger zerolog.Logger) *SequenceAllocator {
	return &SequenceAllocator{
		defaultPrefix: defaultPrefix,
		metrics:       m,
		logger:        logger,
	}
}

// lockSettings returns the tenant's settings row locked, creating the
// default row on first use
func (a *SequenceAllocator) lockSettings(ctx context.Context, q repositories.Queries, tenantID string) (*models.AdmissionSettings, error) {
	settings, err := q.LockAdmissionSettings(ctx, tenantID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to lock admission settings: %w", err)
	}

	defaults := DefaultAdmissionSettings(tenantID, a.defaultPrefix, time.Now())
	if err := q.EnsureAdmissionSettings(ctx, &defaults); err != nil {
		return nil, fmt.Errorf("failed to create admission settings: %w", err)
	}
	settings, err = q.LockAdmissionSettings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock admission settings: %w", err)
	}
	return settings, nil
}

func (a *SequenceAllocator) consume(ctx context.Context, q repositories.Queries, tenantID string) (*models.AdmissionSettings, string, error) {
	settings, err := a.lockSettings(ctx, q, tenantID)
	if err != nil {
		return nil, "", err
	}

	consumed := settings.NextNumber
	next, err := NextSequenceValue(consumed)
	if err != nil {
		return nil, "", err
	}
	settings.NextNumber = next
	if err := q.SaveAdmissionSettings(ctx, settings); err != nil {
		return nil, "", fmt.Errorf("failed to persist next number: %w", err)
	}
	return settings, consumed, nil
}

// IncrementSequence returns the tenant's current next number and stores its
// successor
func (a *SequenceAllocator) IncrementSequence(ctx context.Context, q repositories.Queries, tenantID string) (string, error) {
	_, consumed, err := a.consume(ctx, q, tenantID)
	return consumed, err
}

// AllocateApplicationNumber consumes one number and composes it with the
// tenant's prefix and suffix
func (a *SequenceAllocator) AllocateApplicationNumber(ctx context.Context, q repositories.Queries, tenantID string) (string, error) {
	settings, consumed, err := a.consume(ctx, q, tenantID)
	if err != nil {
		return "", err
	}

	number := ComposeApplicationNumber(settings.DocumentPrefix, consumed, settings.DocumentSuffix, settings.ReferenceType)
	a.metrics.Allocations.WithLabelValues(schemeApplicationNumber).Inc()
	a.logger.Debug().Str("tenantID", tenantID).Str("applicationNumber", number).Msg("Allocated application number")
	return number, nil
}

// AllocateStudentAdmissionNumber returns the next STU-### number of the
// tenant. The tenant's admission numbers stay locked until the caller's
// transaction ends.
func (a *SequenceAllocator) AllocateStudentAdmissionNumber(ctx context.Context, q repositories.Queries, tenantID string) (string, error) {
	if err := q.LockAdmissionNumbers(ctx, tenantID); err != nil {
		return "", fmt.Errorf("failed to lock admission numbers: %w", err)
	}
	existing, err := q.AdmissionNumbers(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to read admission numbers: %w", err)
	}

	number := NextAdmissionNumber(existing)
	a.metrics.Allocations.WithLabelValues(schemeAdmissionNumber).Inc()
	return number, nil
}

// AllocateSeat enrolls a student on a bus seat. The bus row is locked for the
// rest of the transaction, so seat checks and the insert are one unit.
func (a *SequenceAllocator) AllocateSeat(ctx context.Context, q repositories.Queries, tenantID string, req dto.SeatRequest) (*models.BusEnrollment, error) {
	if _, err := q.GetStudent(ctx, tenantID, req.StudentID); err != nil {
		return nil, storeError(err, "student")
	}

	bus, err := a.lockActiveBus(ctx, q, tenantID, req.BusID)
	if err != nil {
		return nil, err
	}

	route, err := q.GetRoute(ctx, tenantID, req.RouteID)
	if err != nil {
		return nil, storeError(err, "route")
	}
	stop, err := q.GetStop(ctx, tenantID, req.StopID)
	if err != nil {
		return nil, storeError(err, "stop")
	}
	if stop.RouteID != route.ID {
		return nil, apperrors.NewValidationError(fmt.Sprintf("stop %s is not on route %s", stop.Name, route.Name))
	}

	if err := a.checkSeat(ctx, q, bus, req.SeatNumber, req.StudentID, ""); err != nil {
		return nil, err
	}

	enrollment := &models.BusEnrollment{
		TenantID:       tenantID,
		StudentID:      req.StudentID,
		BusID:          bus.ID,
		RouteID:        route.ID,
		StopID:         stop.ID,
		SeatNumber:     req.SeatNumber,
		Status:         models.EnrollmentActive,
		FeeStatus:      models.FeePending,
		EnrollmentDate: time.Now().UTC(),
	}
	if err := q.CreateEnrollment(ctx, enrollment); err != nil {
		return nil, a.seatConflict(storeError(err, "enrollment"))
	}

	a.metrics.Allocations.WithLabelValues(schemeSeat).Inc()
	a.logger.Info().
		Str("tenantID", tenantID).
		Str("busID", bus.ID).
		Int("seat", req.SeatNumber).
		Str("studentID", req.StudentID).
		Msg("Seat allocated")
	return enrollment, nil
}

func (a *SequenceAllocator) lockActiveBus(ctx context.Context, q repositories.Queries, tenantID, busID string) (*models.SchoolBus, error) {
	bus, err := q.LockBus(ctx, tenantID, busID)
	if err != nil {
		return nil, storeError(err, "bus")
	}
	if bus.Status != models.BusActive {
		return nil, apperrors.NewValidationError(fmt.Sprintf("bus %s is not active", bus.Name))
	}
	return bus, nil
}

// checkSeat verifies seat is within the bus capacity, that no other active
// enrollment holds it, and that the student has no other active enrollment.
// exceptID skips the enrollment being moved or reactivated.
func (a *SequenceAllocator) checkSeat(ctx context.Context, q repositories.Queries, bus *models.SchoolBus, seat int, studentID, exceptID string) error {
	if seat < 1 || seat > bus.Capacity {
		return apperrors.NewValidationError(fmt.Sprintf("seat %d is outside 1..%d for bus %s", seat, bus.Capacity, bus.Name))
	}

	holder, err := q.ActiveSeatHolder(ctx, bus.TenantID, bus.ID, seat)
	switch {
	case err == nil && holder.ID != exceptID:
		return a.seatConflict(apperrors.NewConflictError(apperrors.CodeSeatTaken,
			fmt.Sprintf("seat %d on bus %s is already taken", seat, bus.Name)))
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("failed to read seat holder: %w", err)
	}

	current, err := q.ActiveEnrollmentOf(ctx, bus.TenantID, studentID)
	switch {
	case err == nil && current.ID != exceptID:
		return a.seatConflict(apperrors.NewConflictError(apperrors.CodeStudentEnrolled,
			"student already holds an active bus enrollment"))
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("failed to read active enrollment: %w", err)
	}
	return nil
}

// seatConflict counts conflicts on the way out
func (a *SequenceAllocator) seatConflict(err error) error {
	switch apperrors.Code(err) {
	case apperrors.CodeSeatTaken:
		a.metrics.Conflicts.WithLabelValues(schemeSeat, "seat_taken").Inc()
	case apperrors.CodeStudentEnrolled:
		a.metrics.Conflicts.WithLabelValues(schemeSeat, "student_enrolled").Inc()
	}
	return err
}
