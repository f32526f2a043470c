// Command activityworker consumes domain events from the configured broker
// and records them in the activity log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intern-service/internal/activity"
	"intern-service/internal/app"
	"intern-service/internal/config"
	"intern-service/internal/db"
	"intern-service/internal/kafka"
	"intern-service/internal/logger"
	"intern-service/internal/messaging"
	"intern-service/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type consumer interface {
	Start(ctx context.Context) error
	Close() error
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	serviceName := app.ServiceName + "-activityworker"
	slogLogger := logger.NewWithServiceContext(serviceName, app.Version, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if err := db.RunMigrations(ctx, database, (*activity.Entry)(nil)); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	service := activity.NewService(activity.NewRepository(database, tel.Metrics), slogLogger)

	var c consumer
	switch cfg.Events.Driver {
	case config.EventsDriverNATS:
		c, err = messaging.NewConsumer(cfg.Events.NATS.URL, cfg.Events.NATS.Subject, "activity-worker", service.Handle, slogLogger)
	case config.EventsDriverKafka:
		c, err = kafka.NewConsumer(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, cfg.Events.Kafka.Group, service.Handle, slogLogger)
	default:
		log.Fatal().Str("driver", cfg.Events.Driver).Msg("events driver has no broker to consume from")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create consumer")
	}
	defer c.Close()

	slogLogger.Info("activity worker started", "driver", cfg.Events.Driver)

	if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slogLogger.Error("consumer stopped", "error", err)
		return
	}

	slogLogger.Info("activity worker exited gracefully")
}
