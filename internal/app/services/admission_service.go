package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

// DefaultAdmissionSettings is the settings row a tenant starts with
func DefaultAdmissionSettings(tenantID, prefix string, now time.Time) models.AdmissionSettings {
	return models.AdmissionSettings{
		TenantID:       tenantID,
		DocumentPrefix: prefix,
		DocumentSuffix: strconv.Itoa(now.Year()),
		NextNumber:     "001",
		ReferenceType:  models.ReferenceTypePrefix,
		Workflow:       defaultWorkflow(),
	}
}

func defaultWorkflow() []models.WorkflowStage {
	return []models.WorkflowStage{
		{
			ID:           1,
			Title:        "Form Submission",
			Status:       models.StatusFormSubmitted,
			EmailTitle:   "Thank you for your application",
			EmailContent: "We have received your application and it is being processed.\nYou will hear from us when it moves to the next stage.\n\nAdmissions Team",
		},
		{
			ID:           2,
			Title:        "Assessment",
			Status:       models.StatusUnderAssessment,
			EmailTitle:   "Assessment Scheduled",
			EmailContent: "The application has moved to the assessment stage.\nThe school will contact you with the assessment date and time.\n\nAdmissions Team",
		},
		{
			ID:           3,
			Title:        "Admission Letter",
			Status:       models.StatusAdmissionLetterSent,
			EmailTitle:   "Admission Offer",
			EmailContent: "We are pleased to offer admission.\nThe admission letter and payment instructions will follow.\n\nAdmissions Team",
		},
		{
			ID:           4,
			Title:        "Payment",
			Status:       models.StatusAwaitingPayment,
			EmailTitle:   "Payment Reminder",
			EmailContent: "Payment of the admission fee is due.\nPlease complete it to secure the place.\n\nAdmissions Team",
		},
		{
			ID:           5,
			Title:        "Admission",
			Status:       models.StatusAdmitted,
			EmailTitle:   "Welcome to Our School",
			EmailContent: "We are delighted to confirm the admission.\nOrientation details will be shared shortly.\n\nAdmissions Team",
		},
	}
}

// settingsOrDefault reads the tenant's settings without creating them
func settingsOrDefault(ctx context.Context, q repositories.Queries, tenantID, prefix string) (*models.AdmissionSettings, error) {
	settings, err := q.GetAdmissionSettings(ctx, tenantID)
	if err == nil {
		return settings, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to read admission settings: %w", err)
	}
	defaults := DefaultAdmissionSettings(tenantID, prefix, time.Now())
	return &defaults, nil
}

// AdmissionService manages admission settings and applications
type AdmissionService struct {
	store            repositories.Store
	allocator        *SequenceAllocator
	students         *StudentService
	notifier         StageNotifier
	defaultPrefix    string
	terminalStatuses []string
	logger           zerolog.Logger
}

// NewAdmissionService creates a new AdmissionService
func NewAdmissionService(
	store repositories.Store,
	allocator *SequenceAllocator,
	students *StudentService,
	notifier StageNotifier,
	defaultPrefix string,
	terminalStatuses []string,
	logger zerolog.Logger,
) *AdmissionService {
	return &AdmissionService{
		store:            store,
		allocator:        allocator,
		students:         students,
		notifier:         notifier,
		defaultPrefix:    defaultPrefix,
		terminalStatuses: terminalStatuses,
		logger:           logger,
	}
}

// GetSettings returns the tenant's settings, storing the defaults on first use
func (s *AdmissionService) GetSettings(ctx context.Context, tenantID string) (*models.AdmissionSettings, error) {
	var settings *models.AdmissionSettings
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		settings, err = q.GetAdmissionSettings(ctx, tenantID)
		if err == nil || !isNotFound(err) {
			return err
		}
		defaults := DefaultAdmissionSettings(tenantID, s.defaultPrefix, time.Now())
		if err := q.EnsureAdmissionSettings(ctx, &defaults); err != nil {
			return err
		}
		settings, err = q.GetAdmissionSettings(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "admission settings")
	}
	return settings, nil
}

// UpdateSettings changes the fields present in req. The settings row is
// locked so a concurrent allocation sees either the old or the new counter.
func (s *AdmissionService) UpdateSettings(ctx context.Context, tenantID string, req dto.AdmissionSettingsRequest) (*models.AdmissionSettings, error) {
	workflow, err := buildWorkflow(req.Workflow)
	if err != nil {
		return nil, err
	}
	if req.NextNumber != nil {
		if _, err := NextSequenceValue(*req.NextNumber); err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("nextNumber %q must be a decimal number", *req.NextNumber))
		}
	}

	var settings *models.AdmissionSettings
	err = s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		if settings, err = s.allocator.lockSettings(ctx, q, tenantID); err != nil {
			return err
		}
		if req.DocumentPrefix != nil {
			settings.DocumentPrefix = strings.TrimSpace(*req.DocumentPrefix)
		}
		if req.DocumentSuffix != nil {
			settings.DocumentSuffix = strings.TrimSpace(*req.DocumentSuffix)
		}
		if req.NextNumber != nil {
			next := strings.TrimSpace(*req.NextNumber)
			if sequenceBelow(next, settings.NextNumber) {
				return apperrors.NewValidationError(fmt.Sprintf(
					"nextNumber %s is below the current value %s, numbers are never reused", next, settings.NextNumber))
			}
			settings.NextNumber = next
		}
		if req.ReferenceType != nil {
			settings.ReferenceType = models.ReferenceType(*req.ReferenceType)
		}
		if req.CustomURL != nil {
			settings.CustomURL = strings.TrimSpace(*req.CustomURL)
		}
		if workflow != nil {
			settings.Workflow = workflow
		}
		return q.SaveAdmissionSettings(ctx, settings)
	})
	if err != nil {
		return nil, storeError(err, "admission settings")
	}

	s.logger.Info().Str("tenantID", tenantID).Str("nextNumber", settings.NextNumber).Msg("Admission settings updated")
	return settings, nil
}

// buildWorkflow numbers the stages in order. Statuses must be unique.
func buildWorkflow(inputs []dto.WorkflowStageInput) ([]models.WorkflowStage, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	stages := make([]models.WorkflowStage, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		status := strings.TrimSpace(in.Status)
		if status == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("workflow stage %d has no status", i+1))
		}
		if seen[status] {
			return nil, apperrors.NewValidationError(fmt.Sprintf("workflow status %q appears twice", status))
		}
		seen[status] = true
		stages = append(stages, models.WorkflowStage{
			ID:           i + 1,
			Title:        strings.TrimSpace(in.Title),
			Status:       status,
			EmailTitle:   in.EmailTitle,
			EmailContent: in.EmailContent,
		})
	}
	return stages, nil
}

// CreateApplication allocates the application number and inserts the
// application in the same transaction, so a failed insert does not consume
// a number.
func (s *AdmissionService) CreateApplication(ctx context.Context, tenantID string, in dto.ApplicationInput) (*models.AdmissionApplication, error) {
	var (
		app      *models.AdmissionApplication
		settings *models.AdmissionSettings
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		number, err := s.allocator.AllocateApplicationNumber(ctx, q, tenantID)
		if err != nil {
			return err
		}
		if settings, err = q.GetAdmissionSettings(ctx, tenantID); err != nil {
			return err
		}

		app = &models.AdmissionApplication{
			TenantID:          tenantID,
			ApplicationNumber: number,
			Status:            settings.FirstStatus(),
			FirstName:         strings.TrimSpace(in.FirstName),
			MiddleName:        strings.TrimSpace(in.MiddleName),
			LastName:          strings.TrimSpace(in.LastName),
			DateOfBirth:       in.DateOfBirth,
			Gender:            in.Gender,
			Email:             in.Email,
			Class:             strings.TrimSpace(in.Class),
			Section:           strings.TrimSpace(in.Section),
			FatherName:        in.FatherName,
			FatherEmail:       in.FatherEmail,
			FatherPhone:       in.FatherPhone,
			MotherName:        in.MotherName,
			MotherEmail:       in.MotherEmail,
			MotherPhone:       in.MotherPhone,
			GuardianName:      in.GuardianName,
			GuardianEmail:     in.GuardianEmail,
			GuardianPhone:     in.GuardianPhone,
		}
		return q.CreateApplication(ctx, app)
	})
	if err != nil {
		return nil, storeError(err, "application")
	}

	s.logger.Info().Str("tenantID", tenantID).Str("applicationNumber", app.ApplicationNumber).Msg("Application created")
	s.notify(ctx, settings, app)
	return app, nil
}

// GetApplication returns one application of the tenant
func (s *AdmissionService) GetApplication(ctx context.Context, tenantID, id string) (*models.AdmissionApplication, error) {
	var app *models.AdmissionApplication
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		app, err = q.GetApplication(ctx, tenantID, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, "application")
	}
	return app, nil
}

// ListApplications returns the tenant's applications, newest first
func (s *AdmissionService) ListApplications(ctx context.Context, tenantID string, filter models.ApplicationFilter) ([]models.AdmissionApplication, error) {
	var apps []models.AdmissionApplication
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		apps, err = q.ListApplications(ctx, tenantID, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// DeleteApplication removes an application. Its number is not reused.
func (s *AdmissionService) DeleteApplication(ctx context.Context, tenantID, id string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		return q.DeleteApplication(ctx, tenantID, id)
	})
	return storeError(err, "application")
}

// validateStatus accepts the tenant's workflow statuses and the configured
// terminal statuses. Moves between stages are not ordered.
func (s *AdmissionService) validateStatus(settings *models.AdmissionSettings, status string) error {
	if _, ok := settings.StageFor(status); ok {
		return nil
	}
	for _, terminal := range s.terminalStatuses {
		if status == terminal {
			return nil
		}
	}

	allowed := make([]string, 0, len(settings.Workflow)+len(s.terminalStatuses))
	for _, stage := range settings.Workflow {
		allowed = append(allowed, stage.Status)
	}
	allowed = append(allowed, s.terminalStatuses...)
	return apperrors.NewValidationError(fmt.Sprintf("unknown status %q, expected one of: %s", status, strings.Join(allowed, ", ")))
}

// UpdateApplicationStatus moves one application to status and sends the
// stage email after the change committed
func (s *AdmissionService) UpdateApplicationStatus(ctx context.Context, tenantID, id, status string) (*models.AdmissionApplication, error) {
	status = strings.TrimSpace(status)
	var (
		app      *models.AdmissionApplication
		settings *models.AdmissionSettings
		changed  bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		if settings, err = settingsOrDefault(ctx, q, tenantID, s.defaultPrefix); err != nil {
			return err
		}
		if err := s.validateStatus(settings, status); err != nil {
			return err
		}
		if app, err = q.LockApplication(ctx, tenantID, id); err != nil {
			return err
		}
		if changed = app.Status != status; !changed {
			return nil
		}
		app.Status = status
		return q.UpdateApplication(ctx, app)
	})
	if err != nil {
		return nil, storeError(err, "application")
	}

	if changed {
		s.notify(ctx, settings, app)
	}
	return app, nil
}

// BulkUpdateStatus moves every listed application to status. Ids that do
// not name an application of the tenant are skipped.
func (s *AdmissionService) BulkUpdateStatus(ctx context.Context, tenantID string, ids []string, status string) (int, error) {
	status = strings.TrimSpace(status)
	var (
		updated  []*models.AdmissionApplication
		settings *models.AdmissionSettings
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		updated = nil
		var err error
		if settings, err = settingsOrDefault(ctx, q, tenantID, s.defaultPrefix); err != nil {
			return err
		}
		if err := s.validateStatus(settings, status); err != nil {
			return err
		}

		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			// a failed lookup must not poison the rest of the batch
			var app *models.AdmissionApplication
			err := q.Savepoint(ctx, func(ctx context.Context, q repositories.Queries) error {
				var err error
				app, err = q.LockApplication(ctx, tenantID, id)
				return err
			})
			if isNotFound(err) {
				s.logger.Warn().Str("tenantID", tenantID).Str("applicationID", id).Msg("Bulk status update skipped unknown application")
				continue
			}
			if err != nil {
				return err
			}
			if app.Status == status {
				continue
			}
			app.Status = status
			if err := q.UpdateApplication(ctx, app); err != nil {
				return err
			}
			updated = append(updated, app)
		}
		return nil
	})
	if err != nil {
		return 0, storeError(err, "application")
	}

	for _, app := range updated {
		s.notify(ctx, settings, app)
	}
	return len(updated), nil
}

// PromoteApplication creates the student of an admitted application
func (s *AdmissionService) PromoteApplication(ctx context.Context, tenantID, id string) (*models.Student, error) {
	return s.students.PromoteApplication(ctx, tenantID, id)
}

// notify is best effort: a failed email never undoes the status change
func (s *AdmissionService) notify(ctx context.Context, settings *models.AdmissionSettings, app *models.AdmissionApplication) {
	if s.notifier == nil || settings == nil {
		return
	}
	stage, ok := settings.StageFor(app.Status)
	if !ok {
		return
	}
	if err := s.notifier.NotifyStage(ctx, app, stage); err != nil {
		s.logger.Warn().Err(err).
			Str("applicationNumber", app.ApplicationNumber).
			Str("status", app.Status).
			Msg("Stage notification failed")
	}
}
