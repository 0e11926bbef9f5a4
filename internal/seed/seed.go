package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/services"
)

// DemoTenant gives tenantID a school, a head office and a small organogram
// so a fresh deployment has something to look at. Tenants that already have
// a school are left alone.
func DemoTenant(ctx context.Context, onboarding *services.OnboardingService, tenantID string, lgr zerolog.Logger) error {
	data, err := onboarding.GetOnboardingData(ctx, tenantID)
	if err != nil {
		return err
	}
	if data.School != nil {
		lgr.Debug().Str("tenantID", tenantID).Msg("Demo tenant already has a school, skipping seed")
		return nil
	}

	lgr.Info().Str("tenantID", tenantID).Msg("Creating demo tenant data...")
	var finalErr error

	if _, err := onboarding.SaveSchool(ctx, tenantID, dto.SchoolRequest{
		Name:         "Demo School",
		Email:        "office@demo-school.example",
		AcademicYear: "2025/2026",
	}); err != nil {
		return err
	}

	if _, err := onboarding.ReplaceBranches(ctx, tenantID, []dto.BranchInput{
		{Name: "Main Campus"},
	}); err != nil {
		lgr.Error().Err(err).Msg("Error creating demo branches")
		finalErr = errors.Join(finalErr, err)
	}

	if _, err := onboarding.ReplaceDepartments(ctx, tenantID, []dto.DepartmentInput{
		{Name: "Administration", Type: string(models.UnitTypeDepartment)},
		{Name: "Academics", Type: string(models.UnitTypeParent), IsAcademic: true},
		{Name: "Grade 1", Type: string(models.UnitTypeClass), ParentDepartment: dto.Ref("Academics"), Branch: dto.Ref("Main Campus")},
		{Name: "Grade 2", Type: string(models.UnitTypeClass), ParentDepartment: dto.Ref("Academics"), Branch: dto.Ref("Main Campus")},
	}); err != nil {
		lgr.Error().Err(err).Msg("Error creating demo departments")
		finalErr = errors.Join(finalErr, err)
	}

	return finalErr
}
