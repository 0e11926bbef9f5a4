package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/services"
	"github.com/yigit/eduadmin/internal/middleware"
	"github.com/yigit/eduadmin/internal/pkg/helpers"
)

// AdmissionController handles admission settings and applications
type AdmissionController struct {
	admissionService *services.AdmissionService
}

// NewAdmissionController creates a new AdmissionController
func NewAdmissionController(admissionService *services.AdmissionService) *AdmissionController {
	return &AdmissionController{
		admissionService: admissionService,
	}
}

// GetSettings returns the tenant's admission settings
// @Summary Get admission settings
// @Tags admissions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.AdmissionSettings}
// @Router /admissions/settings [get]
func (c *AdmissionController) GetSettings(ctx *gin.Context) {
	settings, err := c.admissionService.GetSettings(ctx, middleware.TenantID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(settings, ""))
}

// UpdateSettings changes numbering and workflow settings
// @Summary Update admission settings
// @Tags admissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdmissionSettingsRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.AdmissionSettings}
// @Failure 400 {object} dto.ErrorResponse "Invalid settings"
// @Router /admissions/settings [put]
func (c *AdmissionController) UpdateSettings(ctx *gin.Context) {
	var req dto.AdmissionSettingsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	settings, err := c.admissionService.UpdateSettings(ctx, middleware.TenantID(ctx), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(settings, "Settings updated"))
}

// CreateApplication submits a new application
// @Summary Submit an application
// @Tags admissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ApplicationInput true "Applicant details"
// @Success 201 {object} dto.APIResponse{data=models.AdmissionApplication}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /admissions/applications [post]
func (c *AdmissionController) CreateApplication(ctx *gin.Context) {
	var req dto.ApplicationInput
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.admissionService.CreateApplication(ctx, middleware.TenantID(ctx), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(app, "Application submitted"))
}

// ListApplications lists applications, newest first
// @Summary List applications
// @Tags admissions
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param class query string false "Filter by class"
// @Param search query string false "Search names and application number"
// @Param page query int false "Page number (1-based)"
// @Param size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /admissions/applications [get]
func (c *AdmissionController) ListApplications(ctx *gin.Context) {
	filter := models.ApplicationFilter{
		Status: ctx.Query("status"),
		Class:  ctx.Query("class"),
		Search: ctx.Query("search"),
	}
	apps, err := c.admissionService.ListApplications(ctx, middleware.TenantID(ctx), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(helpers.Paginate(apps, page, size), ""))
}

// GetApplication returns one application
// @Summary Get an application
// @Tags admissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.AdmissionApplication}
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /admissions/applications/{id} [get]
func (c *AdmissionController) GetApplication(ctx *gin.Context) {
	app, err := c.admissionService.GetApplication(ctx, middleware.TenantID(ctx), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, ""))
}

// DeleteApplication removes an application
// @Summary Delete an application
// @Tags admissions
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 204 "Deleted"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /admissions/applications/{id} [delete]
func (c *AdmissionController) DeleteApplication(ctx *gin.Context) {
	if err := c.admissionService.DeleteApplication(ctx, middleware.TenantID(ctx), ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// UpdateStatus moves an application to another workflow stage
// @Summary Change application status
// @Tags admissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.AdmissionApplication}
// @Failure 400 {object} dto.ErrorResponse "Unknown status"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /admissions/applications/{id}/status [put]
func (c *AdmissionController) UpdateStatus(ctx *gin.Context) {
	var req dto.UpdateStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.admissionService.UpdateApplicationStatus(ctx, middleware.TenantID(ctx), ctx.Param("id"), req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, "Status updated"))
}

// BulkUpdateStatus moves several applications to the same stage
// @Summary Change the status of several applications
// @Tags admissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkStatusRequest true "Applications and status"
// @Success 200 {object} dto.APIResponse{data=dto.BulkStatusResponse}
// @Failure 400 {object} dto.ErrorResponse "Unknown status"
// @Router /admissions/applications/bulk-status [put]
func (c *AdmissionController) BulkUpdateStatus(ctx *gin.Context) {
	var req dto.BulkStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	updated, err := c.admissionService.BulkUpdateStatus(ctx, middleware.TenantID(ctx), req.IDs, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.BulkStatusResponse{Updated: updated}, "Statuses updated"))
}

// PromoteApplication creates the student of an admitted application
// @Summary Promote an application to a student
// @Tags admissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 201 {object} dto.APIResponse{data=models.Student}
// @Failure 409 {object} dto.ErrorResponse "Already promoted"
// @Failure 412 {object} dto.ErrorResponse "Application not admitted"
// @Router /admissions/applications/{id}/promote [post]
func (c *AdmissionController) PromoteApplication(ctx *gin.Context) {
	student, err := c.admissionService.PromoteApplication(ctx, middleware.TenantID(ctx), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(student, "Student created"))
}
