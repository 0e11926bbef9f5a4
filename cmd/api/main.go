package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yigit/eduadmin/internal/bootstrap"
	pkgAuth "github.com/yigit/eduadmin/internal/pkg/auth"
	"github.com/yigit/eduadmin/internal/pkg/helpers"
	"github.com/yigit/eduadmin/internal/pkg/logger"
	"github.com/yigit/eduadmin/internal/server"
)

// @title EduAdmin API
// @version 1.0
// @description Multi-tenant school administration API: onboarding, admissions and transport
// @termsOfService http://swagger.io/terms/

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token carrying the tenant claim

func main() {
	tokenFor := flag.String("token", "", "print an access token for the given tenant and exit")
	flag.Parse()

	if *tokenFor != "" {
		if err := printToken(*tokenFor); err != nil {
			logger.Error().Err(err).Msg("Failed to issue token")
			os.Exit(1)
		}
		return
	}

	srv, err := server.NewServer()
	if err != nil {
		// Setup functions log their own details
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Blocks until a shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}

func printToken(tenantID string) error {
	cfg, _, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return err
	}
	jwtService := pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 12*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	token, expiresAt, err := jwtService.GenerateToken(tenantID, "cli")
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
