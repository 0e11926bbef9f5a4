package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/eduadmin/internal/app/controllers"
	appMigrations "github.com/yigit/eduadmin/internal/app/migrations"
	appRepos "github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/app/repositories/memstore"
	appRoutes "github.com/yigit/eduadmin/internal/app/routes"
	appServices "github.com/yigit/eduadmin/internal/app/services"
	"github.com/yigit/eduadmin/internal/config"
	"github.com/yigit/eduadmin/internal/db"
	appMiddleware "github.com/yigit/eduadmin/internal/middleware"
	pkgAuth "github.com/yigit/eduadmin/internal/pkg/auth"
	"github.com/yigit/eduadmin/internal/pkg/email"
	"github.com/yigit/eduadmin/internal/pkg/helpers"
	"github.com/yigit/eduadmin/internal/pkg/logger"
	"github.com/yigit/eduadmin/internal/pkg/metrics"
	"github.com/yigit/eduadmin/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store    appRepos.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Allocator         *appServices.SequenceAllocator
	MirrorService     *appServices.MirrorService
	OnboardingService *appServices.OnboardingService
	StudentService    *appServices.StudentService
	AdmissionService  *appServices.AdmissionService
	TransportService  *appServices.TransportService

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	JWTService     *pkgAuth.JWTService
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore opens the configured entity store. The returned func releases
// its resources.
func SetupStore(cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, func(), error) {
	if strings.ToLower(cfg.Database.Driver) == config.DriverMemory {
		lgr.Warn().Msg("Using the in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}
	lgr.Info().Str("dir", migrationsDir).Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(database.Pool, lgr).MigrateFromDirectory(ctx, migrationsDir); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return appRepos.NewPostgresStore(database), database.Close, nil
}

// BuildDependencies initializes metrics, services and controllers on top of store
func BuildDependencies(cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) *Dependencies {
	deps := &Dependencies{
		Store:    store,
		Registry: prometheus.NewRegistry(),
		Logger:   lgr,
	}
	deps.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Metrics = metrics.New(deps.Registry)

	admission := cfg.Admission
	deps.Allocator = appServices.NewSequenceAllocator(admission.DefaultPrefix, deps.Metrics, lgr)
	deps.MirrorService = appServices.NewMirrorService(store, admission.DefaultSectionCapacity, deps.Metrics, lgr)
	deps.OnboardingService = appServices.NewOnboardingService(store, deps.MirrorService, deps.Allocator, admission.DefaultSectionCapacity, deps.Metrics, lgr)
	deps.StudentService = appServices.NewStudentService(store, deps.Allocator, admission.DefaultPrefix, lgr)

	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
	}, lgr)
	if !sender.Configured() {
		lgr.Warn().Msg("SMTP not configured, stage emails will be skipped")
	}
	notifier := appServices.NewEmailStageNotifier(sender, deps.Metrics, lgr)

	deps.AdmissionService = appServices.NewAdmissionService(store, deps.Allocator, deps.StudentService, notifier,
		admission.DefaultPrefix, admission.TerminalStatuses, lgr)
	deps.TransportService = appServices.NewTransportService(store, deps.Allocator, lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 12*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.Controllers = appRoutes.Controllers{
		Onboarding: appControllers.NewOnboardingController(deps.OnboardingService, deps.MirrorService),
		Admission:  appControllers.NewAdmissionController(deps.AdmissionService),
		Student:    appControllers.NewStudentController(deps.StudentService),
		Transport:  appControllers.NewTransportController(deps.TransportService),
	}
	return deps
}

// SeedData creates the configured demo tenant. Failures are logged only.
func SeedData(cfg *config.Config, deps *Dependencies) {
	if cfg.Seed.DemoTenant == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := seed.DemoTenant(ctx, deps.OnboardingService, cfg.Seed.DemoTenant, deps.Logger); err != nil {
		deps.Logger.Error().Err(err).Msg("Failed to create demo data, proceeding anyway...")
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		deps.Logger.Info().Msg("Setting Gin mode to release")
	}
	appMiddleware.ConfigureBinding()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestLogger(deps.Logger),
		appMiddleware.RequestMetrics(deps.Metrics),
	)

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.Registry)
	return router
}
