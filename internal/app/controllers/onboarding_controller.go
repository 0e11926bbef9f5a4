package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/services"
	"github.com/yigit/eduadmin/internal/middleware"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

// OnboardingController handles the school setup endpoints
type OnboardingController struct {
	onboardingService *services.OnboardingService
	mirrorService     *services.MirrorService
}

// NewOnboardingController creates a new OnboardingController
func NewOnboardingController(onboardingService *services.OnboardingService, mirrorService *services.MirrorService) *OnboardingController {
	return &OnboardingController{
		onboardingService: onboardingService,
		mirrorService:     mirrorService,
	}
}

// SaveSchool creates or updates the tenant's school
// @Summary Save school details
// @Tags onboarding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SchoolRequest true "School details"
// @Success 200 {object} dto.APIResponse{data=models.School}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /onboarding/school [put]
func (c *OnboardingController) SaveSchool(ctx *gin.Context) {
	var req dto.SchoolRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	school, err := c.onboardingService.SaveSchool(ctx, middleware.TenantID(ctx), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(school, "School saved"))
}

// CompleteOnboarding marks onboarding as finished
// @Summary Complete onboarding
// @Tags onboarding
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.School}
// @Failure 412 {object} dto.ErrorResponse "School not set up"
// @Router /onboarding/complete [post]
func (c *OnboardingController) CompleteOnboarding(ctx *gin.Context) {
	school, err := c.onboardingService.CompleteOnboarding(ctx, middleware.TenantID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(school, "Onboarding completed"))
}

// GetOnboardingData returns every onboarding collection of the tenant
// @Summary Get onboarding data
// @Tags onboarding
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.OnboardingData}
// @Router /onboarding [get]
func (c *OnboardingController) GetOnboardingData(ctx *gin.Context) {
	data, err := c.onboardingService.GetOnboardingData(ctx, middleware.TenantID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(data, ""))
}

// ReplaceCollection replaces one onboarding collection with the request body.
// When some records fail, or the mirror pass after the replace fails, the
// committed records are returned with status 207 and the failures listed.
// @Summary Replace an onboarding collection
// @Tags onboarding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "branches, departments, employees, classes, subjects or students"
// @Success 200 {object} dto.APIResponse{data=dto.ReplaceResponse}
// @Success 207 {object} dto.APIResponse{data=dto.ReplaceResponse} "Partially applied"
// @Failure 400 {object} dto.ErrorResponse "Invalid records"
// @Failure 412 {object} dto.ErrorResponse "School not set up"
// @Router /onboarding/collections/{kind} [put]
func (c *OnboardingController) ReplaceCollection(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("failed to read request body"))
		return
	}
	if len(body) == 0 {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("request body is required"))
		return
	}

	outcome, err := c.onboardingService.ReplaceCollection(ctx, middleware.TenantID(ctx), ctx.Param("kind"), body)
	if outcome == nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.ReplaceResponse{
		Kind:     outcome.Kind,
		Records:  outcome.Records,
		Failures: middleware.RecordFailures(err),
	}
	if outcome.Mirror != nil {
		resp.Mirror = &dto.MirrorSummary{
			Created: outcome.Mirror.Created,
			Updated: outcome.Mirror.Updated,
			Deleted: outcome.Mirror.Deleted,
		}
	}
	if errors.Is(err, apperrors.ErrMirrorSync) {
		resp.Mirror = &dto.MirrorSummary{Error: err.Error()}
	}

	if err == nil {
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Collection replaced"))
		return
	}

	_, detail := middleware.ErrorDetail(err)
	ctx.JSON(http.StatusMultiStatus, dto.APIResponse{
		Success:   false,
		Message:   "Collection partially replaced",
		Data:      resp,
		Error:     detail,
		Timestamp: time.Now(),
	})
}

// SyncMirror reruns the organizational mirror for the tenant. source picks
// the authoritative side: units (default) or classes.
// @Summary Retry the organizational mirror
// @Tags onboarding
// @Produce json
// @Security BearerAuth
// @Param source query string false "units or classes"
// @Success 200 {object} dto.APIResponse{data=dto.MirrorSummary}
// @Failure 500 {object} dto.ErrorResponse "Mirror sync failed"
// @Router /onboarding/mirror/sync [post]
func (c *OnboardingController) SyncMirror(ctx *gin.Context) {
	source := services.MirrorSource(ctx.DefaultQuery("source", string(services.MirrorFromUnits)))
	if source != services.MirrorFromUnits && source != services.MirrorFromClasses {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("source must be units or classes"))
		return
	}

	report, err := c.mirrorService.Sync(ctx, middleware.TenantID(ctx), source)
	if err != nil {
		middleware.HandleAPIError(ctx, errors.Join(apperrors.ErrMirrorSync, err))
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.MirrorSummary{
		Created: report.Created,
		Updated: report.Updated,
		Deleted: report.Deleted,
	}, "Organizational mirror converged"))
}
