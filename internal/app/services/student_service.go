package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

// StudentService turns admitted applications into students
type StudentService struct {
	store         repositories.Store
	allocator     *SequenceAllocator
	defaultPrefix string
	logger        zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(store repositories.Store, allocator *SequenceAllocator, defaultPrefix string, logger zerolog.Logger) *StudentService {
	return &StudentService{
		store:         store,
		allocator:     allocator,
		defaultPrefix: defaultPrefix,
		logger:        logger,
	}
}

// GetStudent returns one student of the tenant
func (s *StudentService) GetStudent(ctx context.Context, tenantID, id string) (*models.Student, error) {
	var student *models.Student
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		var err error
		student, err = q.GetStudent(ctx, tenantID, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, "student")
	}
	return student, nil
}

// PromoteApplication creates the student for an application in the final
// workflow stage. The admission number, the student, its parents and the
// application's student link are written in one transaction.
func (s *StudentService) PromoteApplication(ctx context.Context, tenantID, applicationID string) (*models.Student, error) {
	var student *models.Student
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		app, err := q.LockApplication(ctx, tenantID, applicationID)
		if err != nil {
			return storeError(err, "application")
		}
		if app.StudentID != nil {
			return apperrors.NewConflictError(apperrors.CodeAlreadyPromoted,
				fmt.Sprintf("application %s was already promoted", app.ApplicationNumber))
		}

		settings, err := settingsOrDefault(ctx, q, tenantID, s.defaultPrefix)
		if err != nil {
			return err
		}
		if final := settings.FinalStatus(); app.Status != final {
			return apperrors.NewPreconditionFailedError(apperrors.CodeNotAdmitted,
				fmt.Sprintf("application %s is %q, it must be %q to be promoted", app.ApplicationNumber, app.Status, final))
		}

		number, err := s.allocator.AllocateStudentAdmissionNumber(ctx, q, tenantID)
		if err != nil {
			return err
		}

		student = &models.Student{
			TenantID:        tenantID,
			AdmissionNumber: number,
			FirstName:       app.FirstName,
			MiddleName:      app.MiddleName,
			LastName:        app.LastName,
			Gender:          app.Gender,
			Email:           app.Email,
		}
		if student.ClassID, student.SectionID, err = s.placement(ctx, q, app); err != nil {
			return err
		}
		if student.ParentIDs, err = s.applicationParents(ctx, q, app); err != nil {
			return err
		}

		if err := q.CreateStudent(ctx, student); err != nil {
			return storeError(err, "student "+number)
		}
		app.StudentID = &student.ID
		if err := q.UpdateApplication(ctx, app); err != nil {
			return storeError(err, "application")
		}

		s.logger.Info().
			Str("tenantID", tenantID).
			Str("applicationNumber", app.ApplicationNumber).
			Str("admissionNumber", number).
			Msg("Application promoted to student")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// placement resolves the application's class and section by id or name
func (s *StudentService) placement(ctx context.Context, q repositories.Queries, app *models.AdmissionApplication) (classID, sectionID *string, err error) {
	if strings.TrimSpace(app.Class) == "" {
		return nil, nil, nil
	}
	classes, err := q.ListClasses(ctx, app.TenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list classes: %w", err)
	}

	idx := newReferenceIndex()
	for _, c := range classes {
		idx.add(c.ID, c.Name)
	}
	classID = idx.resolvePtr(dto.Ref(app.Class))
	if classID == nil {
		s.logger.Warn().Str("tenantID", app.TenantID).Str("class", app.Class).Msg("Application class not found, student left unplaced")
		return nil, nil, nil
	}

	for _, c := range classes {
		if c.ID != *classID {
			continue
		}
		sections := newReferenceIndex()
		for _, sec := range c.Sections {
			sections.add(sec.ID, sec.Name)
		}
		sectionID = sections.resolvePtr(dto.Ref(app.Section))
	}
	return classID, sectionID, nil
}

// applicationParents finds the father, mother and guardian by email or phone,
// creating the ones the tenant does not know yet
func (s *StudentService) applicationParents(ctx context.Context, q repositories.Queries, app *models.AdmissionApplication) ([]string, error) {
	candidates := []models.Parent{
		{Type: models.ParentFather, Name: app.FatherName, Email: app.FatherEmail, Phone: app.FatherPhone},
		{Type: models.ParentMother, Name: app.MotherName, Email: app.MotherEmail, Phone: app.MotherPhone},
		{Type: models.ParentGuardian, Name: app.GuardianName, Email: app.GuardianEmail, Phone: app.GuardianPhone},
	}

	var ids []string
	seen := make(map[string]bool)
	for _, p := range candidates {
		p.Name = strings.TrimSpace(p.Name)
		p.Email = strings.TrimSpace(p.Email)
		p.Phone = strings.TrimSpace(p.Phone)
		if p.Name == "" {
			continue
		}

		parent := &p
		if p.Email != "" || p.Phone != "" {
			found, err := q.FindParentByContact(ctx, app.TenantID, p.Email, p.Phone)
			switch {
			case err == nil:
				parent = found
			case !isNotFound(err):
				return nil, fmt.Errorf("failed to look up parent: %w", err)
			}
		}
		if parent.ID == "" {
			parent.TenantID = app.TenantID
			if err := q.CreateParent(ctx, parent); err != nil {
				return nil, storeError(err, "parent "+parent.Name)
			}
		}

		if !seen[parent.ID] {
			seen[parent.ID] = true
			ids = append(ids, parent.ID)
		}
	}
	return ids, nil
}
