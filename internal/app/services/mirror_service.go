package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
	"github.com/yigit/eduadmin/internal/pkg/metrics"
)

// MirrorSource names the side of the class pairing that is authoritative
// for a mirror pass
type MirrorSource string

const (
	MirrorFromUnits   MirrorSource = "units"
	MirrorFromClasses MirrorSource = "classes"
)

func (m MirrorSource) direction() string {
	if m == MirrorFromClasses {
		return "classes_to_units"
	}
	return "units_to_classes"
}

// MirrorReport counts the writes of one mirror pass
type MirrorReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Writes is the total number of records written
func (r MirrorReport) Writes() int {
	return r.Created + r.Updated + r.Deleted
}

// MirrorService keeps CLASS organizational units and academic classes paired
// by name. Each pass runs in its own transaction.
type MirrorService struct {
	store           repositories.Store
	sectionCapacity int
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewMirrorService creates a new MirrorService
func NewMirrorService(store repositories.Store, sectionCapacity int, m *metrics.Metrics, logger zerolog.Logger) *MirrorService {
	return &MirrorService{
		store:           store,
		sectionCapacity: sectionCapacity,
		metrics:         m,
		logger:          logger,
	}
}

// SyncOrganizationalMirror converges the pairing taking the organogram as the
// source of truth
func (s *MirrorService) SyncOrganizationalMirror(ctx context.Context, tenantID string) (MirrorReport, error) {
	return s.Sync(ctx, tenantID, MirrorFromUnits)
}

// SyncFromUnits creates, relinks and deletes classes to match the CLASS units
func (s *MirrorService) SyncFromUnits(ctx context.Context, tenantID string) (MirrorReport, error) {
	return s.Sync(ctx, tenantID, MirrorFromUnits)
}

// SyncFromClasses creates, relinks and deletes CLASS units to match the classes
func (s *MirrorService) SyncFromClasses(ctx context.Context, tenantID string) (MirrorReport, error) {
	return s.Sync(ctx, tenantID, MirrorFromClasses)
}

// Sync runs one mirror pass from source. A pass over an already converged
// tenant writes nothing.
func (s *MirrorService) Sync(ctx context.Context, tenantID string, source MirrorSource) (MirrorReport, error) {
	var report MirrorReport
	err := s.store.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		report = MirrorReport{}
		if source == MirrorFromClasses {
			return s.classesToUnits(ctx, q, tenantID, &report)
		}
		return s.unitsToClasses(ctx, q, tenantID, &report)
	})

	direction := source.direction()
	if err != nil {
		s.metrics.MirrorFailures.WithLabelValues(direction).Inc()
		s.logger.Error().Err(err).Str("tenantID", tenantID).Str("direction", direction).Msg("Organizational mirror sync failed")
		return MirrorReport{}, err
	}

	s.metrics.MirrorWrites.WithLabelValues(direction, "create").Add(float64(report.Created))
	s.metrics.MirrorWrites.WithLabelValues(direction, "update").Add(float64(report.Updated))
	s.metrics.MirrorWrites.WithLabelValues(direction, "delete").Add(float64(report.Deleted))
	if report.Writes() > 0 {
		s.logger.Info().
			Str("tenantID", tenantID).
			Str("direction", direction).
			Int("created", report.Created).
			Int("updated", report.Updated).
			Int("deleted", report.Deleted).
			Msg("Organizational mirror converged")
	}
	return report, nil
}

func (s *MirrorService) unitsToClasses(ctx context.Context, q repositories.Queries, tenantID string, report *MirrorReport) error {
	units, err := q.ListUnits(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list units: %w", err)
	}
	classes, err := q.ListClasses(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list classes: %w", err)
	}

	classByName := make(map[string]*models.AcademicClass, len(classes))
	for i := range classes {
		classByName[classes[i].Name] = &classes[i]
	}

	paired := make(map[string]bool)
	for i := range units {
		unit := &units[i]
		if !unit.IsClass() {
			continue
		}
		paired[unit.Name] = true

		class, ok := classByName[unit.Name]
		if !ok {
			created := &models.AcademicClass{
				TenantID:             tenantID,
				Name:                 unit.Name,
				OrganizationalUnitID: &unit.ID,
				BranchID:             unit.BranchID,
				Sections:             []models.Section{s.defaultSection(tenantID)},
			}
			if err := q.CreateClass(ctx, created); err != nil {
				return fmt.Errorf("failed to create class %s: %w", unit.Name, err)
			}
			report.Created++
			continue
		}

		if deref(class.OrganizationalUnitID) != unit.ID || !sameRef(class.BranchID, unit.BranchID) {
			class.OrganizationalUnitID = &unit.ID
			class.BranchID = unit.BranchID
			if err := q.UpdateClass(ctx, class); err != nil {
				return fmt.Errorf("failed to relink class %s: %w", class.Name, err)
			}
			report.Updated++
		}
	}

	for _, class := range classes {
		if paired[class.Name] {
			continue
		}
		if err := q.DeleteClass(ctx, tenantID, class.ID); err != nil {
			return fmt.Errorf("failed to delete class %s: %w", class.Name, err)
		}
		report.Deleted++
	}
	return nil
}

func (s *MirrorService) classesToUnits(ctx context.Context, q repositories.Queries, tenantID string, report *MirrorReport) error {
	school, err := q.GetSchool(ctx, tenantID)
	if err != nil {
		return schoolError(err)
	}
	units, err := q.ListUnits(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list units: %w", err)
	}
	classes, err := q.ListClasses(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list classes: %w", err)
	}

	// unit names are unique per tenant whatever their type
	unitByName := make(map[string]*models.OrganizationalUnit, len(units))
	for i := range units {
		unitByName[units[i].Name] = &units[i]
	}

	paired := make(map[string]bool)
	for i := range classes {
		class := &classes[i]
		paired[class.Name] = true

		unit, ok := unitByName[class.Name]
		switch {
		case !ok:
			unit = &models.OrganizationalUnit{
				TenantID:   tenantID,
				SchoolID:   school.ID,
				Name:       class.Name,
				Type:       models.UnitTypeClass,
				IsAcademic: true,
				BranchID:   class.BranchID,
			}
			if err := q.CreateUnit(ctx, unit); err != nil {
				return fmt.Errorf("failed to create unit %s: %w", class.Name, err)
			}
			report.Created++
		case !unit.IsClass() || !unit.IsAcademic || !sameRef(unit.BranchID, class.BranchID):
			unit.Type = models.UnitTypeClass
			unit.IsAcademic = true
			unit.BranchID = class.BranchID
			if err := q.UpdateUnit(ctx, unit); err != nil {
				return fmt.Errorf("failed to update unit %s: %w", unit.Name, err)
			}
			report.Updated++
		}

		if deref(class.OrganizationalUnitID) != unit.ID {
			class.OrganizationalUnitID = &unit.ID
			if err := q.UpdateClass(ctx, class); err != nil {
				return fmt.Errorf("failed to link class %s: %w", class.Name, err)
			}
			report.Updated++
		}
	}

	for _, unit := range units {
		if !unit.IsClass() || paired[unit.Name] {
			continue
		}
		if err := q.DeleteUnit(ctx, tenantID, unit.ID); err != nil {
			return fmt.Errorf("failed to delete unit %s: %w", unit.Name, err)
		}
		report.Deleted++
	}
	return nil
}

func (s *MirrorService) defaultSection(tenantID string) models.Section {
	return models.Section{
		TenantID: tenantID,
		Name:     models.DefaultSectionName,
		Capacity: s.sectionCapacity,
	}
}

// schoolError reports a missing anchor record as PreconditionFailed
func schoolError(err error) error {
	if isNotFound(err) {
		return apperrors.NewPreconditionFailedError(apperrors.CodeSchoolMissing,
			"school details must be saved before onboarding collections")
	}
	return fmt.Errorf("failed to load school: %w", err)
}
