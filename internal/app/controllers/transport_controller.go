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

// TransportController handles routes, buses and seat enrollments
type TransportController struct {
	transportService *services.TransportService
}

// NewTransportController creates a new TransportController
func NewTransportController(transportService *services.TransportService) *TransportController {
	return &TransportController{
		transportService: transportService,
	}
}

// CreateRoute creates a route with its stops
// @Summary Create a bus route
// @Tags transport
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RouteInput true "Route and stops in travel order"
// @Success 201 {object} dto.APIResponse{data=models.BusRoute}
// @Router /transport/routes [post]
func (c *TransportController) CreateRoute(ctx *gin.Context) {
	var req dto.RouteInput
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	route, err := c.transportService.CreateRoute(ctx, middleware.TenantID(ctx), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(route, "Route created"))
}

// GetRoute returns a route with its stops
// @Summary Get a bus route
// @Tags transport
// @Produce json
// @Security BearerAuth
// @Param id path string true "Route ID"
// @Success 200 {object} dto.APIResponse{data=models.BusRoute}
// @Failure 404 {object} dto.ErrorResponse "Route not found"
// @Router /transport/routes/{id} [get]
func (c *TransportController) GetRoute(ctx *gin.Context) {
	route, err := c.transportService.GetRoute(ctx, middleware.TenantID(ctx), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(route, ""))
}

// CreateBus registers a bus
// @Summary Create a school bus
// @Tags transport
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BusInput true "Bus details"
// @Success 201 {object} dto.APIResponse{data=models.SchoolBus}
// @Failure 404 {object} dto.ErrorResponse "Route not found"
// @Router /transport/buses [post]
func (c *TransportController) CreateBus(ctx *gin.Context) {
	var req dto.BusInput
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	bus, err := c.transportService.CreateBus(ctx, middleware.TenantID(ctx), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(bus, "Bus created"))
}

// GetBus returns one bus
// @Summary Get a school bus
// @Tags transport
// @Produce json
// @Security BearerAuth
// @Param id path string true "Bus ID"
// @Success 200 {object} dto.APIResponse{data=models.SchoolBus}
// @Failure 404 {object} dto.ErrorResponse "Bus not found"
// @Router /transport/buses/{id} [get]
func (c *TransportController) GetBus(ctx *gin.Context) {
	bus, err := c.transportService.GetBus(ctx, middleware.TenantID(ctx), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(bus, ""))
}

// CreateEnrollment allocates a seat for a student
// @Summary Enroll a student on a bus seat
// @Tags transport
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SeatRequest true "Seat request"
// @Success 201 {object} dto.APIResponse{data=models.BusEnrollment}
// @Failure 400 {object} dto.ErrorResponse "Seat out of range or bus inactive"
// @Failure 409 {object} dto.ErrorResponse "Seat taken or student already enrolled"
// @Router /transport/enrollments [post]
func (c *TransportController) CreateEnrollment(ctx *gin.Context) {
	var req dto.SeatRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	enrollment, err := c.transportService.CreateEnrollment(ctx, middleware.TenantID(ctx), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(enrollment, "Seat allocated"))
}

// ListEnrollments lists enrollments ordered by bus and seat
// @Summary List bus enrollments
// @Tags transport
// @Produce json
// @Security BearerAuth
// @Param busId query string false "Filter by bus"
// @Param studentId query string false "Filter by student"
// @Param status query string false "active or inactive"
// @Param page query int false "Page number (1-based)"
// @Param size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /transport/enrollments [get]
func (c *TransportController) ListEnrollments(ctx *gin.Context) {
	filter := models.EnrollmentFilter{
		BusID:     ctx.Query("busId"),
		StudentID: ctx.Query("studentId"),
		Status:    models.EnrollmentStatus(ctx.Query("status")),
	}
	enrollments, err := c.transportService.ListEnrollments(ctx, middleware.TenantID(ctx), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(helpers.Paginate(enrollments, page, size), ""))
}

// SetBusStatus takes a bus in or out of service
// @Summary Change bus status
// @Tags transport
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Bus ID"
// @Param request body dto.BusStatusRequest true "active or inactive"
// @Success 200 {object} dto.APIResponse{data=models.SchoolBus}
// @Failure 404 {object} dto.ErrorResponse "Bus not found"
// @Router /transport/buses/{id}/status [put]
func (c *TransportController) SetBusStatus(ctx *gin.Context) {
	var req dto.BusStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	bus, err := c.transportService.SetBusStatus(ctx, middleware.TenantID(ctx), ctx.Param("id"), models.BusStatus(req.Status))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(bus, "Bus updated"))
}

// ChangeSeat moves an enrollment to another seat
// @Summary Change seat
// @Tags transport
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param request body dto.ChangeSeatRequest true "New seat"
// @Success 200 {object} dto.APIResponse{data=models.BusEnrollment}
// @Failure 409 {object} dto.ErrorResponse "Seat taken"
// @Router /transport/enrollments/{id}/seat [put]
func (c *TransportController) ChangeSeat(ctx *gin.Context) {
	var req dto.ChangeSeatRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	enrollment, err := c.transportService.ChangeSeat(ctx, middleware.TenantID(ctx), ctx.Param("id"), req.SeatNumber)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollment, "Seat changed"))
}

// SetEnrollmentStatus activates or deactivates an enrollment
// @Summary Change enrollment status
// @Tags transport
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param request body dto.EnrollmentStatusRequest true "active or inactive"
// @Success 200 {object} dto.APIResponse{data=models.BusEnrollment}
// @Failure 409 {object} dto.ErrorResponse "Seat taken since deactivation"
// @Router /transport/enrollments/{id}/status [put]
func (c *TransportController) SetEnrollmentStatus(ctx *gin.Context) {
	var req dto.EnrollmentStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	enrollment, err := c.transportService.SetEnrollmentStatus(ctx, middleware.TenantID(ctx), ctx.Param("id"), models.EnrollmentStatus(req.Status))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollment, "Enrollment updated"))
}
