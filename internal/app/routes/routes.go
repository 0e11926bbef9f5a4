package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yigit/eduadmin/internal/app/controllers"
	"github.com/yigit/eduadmin/internal/middleware"
)

// Controllers groups the handlers mounted by SetupRouter
type Controllers struct {
	Onboarding *controllers.OnboardingController
	Admission  *controllers.AdmissionController
	Student    *controllers.StudentController
	Transport  *controllers.TransportController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware, gatherer prometheus.Gatherer) {
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.TenantAuth())

	onboarding := v1.Group("/onboarding")
	{
		onboarding.GET("", c.Onboarding.GetOnboardingData)
		onboarding.PUT("/school", c.Onboarding.SaveSchool)
		onboarding.POST("/complete", c.Onboarding.CompleteOnboarding)
		onboarding.PUT("/collections/:kind", c.Onboarding.ReplaceCollection)
		onboarding.POST("/mirror/sync", c.Onboarding.SyncMirror)
	}

	admissions := v1.Group("/admissions")
	{
		admissions.GET("/settings", c.Admission.GetSettings)
		admissions.PUT("/settings", c.Admission.UpdateSettings)

		admissions.GET("/applications", c.Admission.ListApplications)
		admissions.POST("/applications", c.Admission.CreateApplication)
		admissions.PUT("/applications/bulk-status", c.Admission.BulkUpdateStatus)
		admissions.GET("/applications/:id", c.Admission.GetApplication)
		admissions.DELETE("/applications/:id", c.Admission.DeleteApplication)
		admissions.PUT("/applications/:id/status", c.Admission.UpdateStatus)
		admissions.POST("/applications/:id/promote", c.Admission.PromoteApplication)
	}

	v1.GET("/students/:id", c.Student.GetStudent)

	transport := v1.Group("/transport")
	{
		transport.POST("/routes", c.Transport.CreateRoute)
		transport.GET("/routes/:id", c.Transport.GetRoute)
		transport.POST("/buses", c.Transport.CreateBus)
		transport.GET("/buses/:id", c.Transport.GetBus)
		transport.PUT("/buses/:id/status", c.Transport.SetBusStatus)
		transport.GET("/enrollments", c.Transport.ListEnrollments)
		transport.POST("/enrollments", c.Transport.CreateEnrollment)
		transport.PUT("/enrollments/:id/seat", c.Transport.ChangeSeat)
		transport.PUT("/enrollments/:id/status", c.Transport.SetEnrollmentStatus)
	}
}
