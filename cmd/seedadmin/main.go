// Command seedadmin creates the admin account or resets its password.
//
//	seedadmin -username admin -password secret
//
// Flags fall back to ADMIN_USERNAME and ADMIN_PASSWORD.
package main

import (
	"context"
	"flag"
	"time"

	"intern-service/internal/admin"
	"intern-service/internal/app"
	"intern-service/internal/auth"
	"intern-service/internal/config"
	"intern-service/internal/db"
	"intern-service/internal/logger"
	"intern-service/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	username := flag.String("username", cfg.Admin.Username, "admin username")
	password := flag.String("password", cfg.Admin.Password, "admin password")
	flag.Parse()

	serviceName := app.ServiceName + "-seedadmin"
	slogLogger := logger.NewWithServiceContext(serviceName, app.Version, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tel, err := telemetry.Init(ctx, serviceName, app.Version, cfg.Telemetry.OTLPEndpoint, slogLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx, slogLogger); err != nil {
			slogLogger.Error("failed to shutdown telemetry", "error", err)
		}
	}()

	database, err := db.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close(database)

	if err := tel.Metrics.Database.RegisterDB(database.DB, tel.MeterProvider.Meter(serviceName)); err != nil {
		slogLogger.Warn("failed to register database pool metrics", "error", err)
	}

	if err := db.RunMigrations(ctx, database, (*admin.Admin)(nil)); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	service := admin.NewService(
		admin.NewRepository(database, tel.Metrics),
		auth.NewTokenManager(cfg.Auth.JWTSecret),
		admin.NewAuditLogger(slogLogger),
		slogLogger,
		admin.Config{
			TokenTTL:          cfg.Auth.AdminTokenTTL,
			BcryptCost:        cfg.Auth.BcryptCost,
			MinPasswordLength: cfg.Auth.MinPasswordLength,
		},
	)

	changed, err := service.EnsureAdmin(ctx, *username, *password)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin")
	}
	if changed {
		slogLogger.Info("admin account ready", "username", *username)
	} else {
		slogLogger.Info("admin account already up to date", "username", *username)
	}
}
