package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"intern-service/internal/activity"
	"intern-service/internal/admin"
	"intern-service/internal/auth"
	"intern-service/internal/config"
	"intern-service/internal/contact"
	"intern-service/internal/db"
	"intern-service/internal/events"
	"intern-service/internal/health"
	"intern-service/internal/httpmetrics"
	"intern-service/internal/intern"
	"intern-service/internal/kafka"
	"intern-service/internal/leaderboard"
	"intern-service/internal/logger"
	"intern-service/internal/messaging"
	"intern-service/internal/middleware"
	"intern-service/internal/referral"
	"intern-service/internal/scheduler"
	"intern-service/internal/telemetry"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	db        *bun.DB
	redis     *redis.Client
	publisher events.Publisher
	scheduler *scheduler.Scheduler
	telemetry *telemetry.Telemetry
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := logger.NewWithServiceContext(ServiceName, Version, cfg.Env)
	slog.SetDefault(slogLogger)
	slogLogger.Info("initializing application", "env", cfg.Env, "commit", GitCommit)

	app := &App{
		config: cfg,
		router: chi.NewRouter(),
		logger: slogLogger,
	}

	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}

	slogLogger.Info("application initialized successfully")
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.config

	tel, err := telemetry.Init(ctx, ServiceName, Version, cfg.Telemetry.OTLPEndpoint, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.telemetry = tel
	m := tel.Metrics

	database, err := db.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = database

	if err := m.Database.RegisterDB(database.DB, tel.MeterProvider.Meter(ServiceName)); err != nil {
		a.logger.Warn("failed to register database pool metrics", "error", err)
	}

	if err := db.RunMigrations(ctx, database,
		(*intern.Intern)(nil),
		(*auth.RefreshToken)(nil),
		(*contact.Contact)(nil),
		(*admin.Admin)(nil),
		(*activity.Entry)(nil),
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	activityService := activity.NewService(activity.NewRepository(database, m), a.logger)
	a.publisher = a.newPublisher(activityService)

	internRepo := intern.NewRepository(database, m)

	lbOpts := []leaderboard.Option{leaderboard.WithLimits(cfg.Leaderboard.DefaultLimit, cfg.Leaderboard.MaxLimit)}
	if cfg.Redis.URL != "" {
		rdb, err := leaderboard.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			a.logger.Warn("leaderboard cache disabled", "error", err)
		} else {
			a.redis = rdb
			lbOpts = append(lbOpts, leaderboard.WithCache(leaderboard.NewRedisCache(rdb, cfg.Leaderboard.CacheTTL)))
			a.logger.Info("leaderboard cache enabled")
		}
	}
	leaderboardService := leaderboard.NewService(internRepo, a.logger, m, lbOpts...)

	internService := intern.NewService(
		internRepo,
		referral.NewCodeGenerator(),
		a.publisher,
		leaderboardService,
		m,
		a.logger,
		intern.Options{Bonus: cfg.Referral.Bonus, MaxCodeAttempts: cfg.Referral.MaxCodeAttempts},
	)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authService := auth.NewService(auth.NewRepository(database, m), internService, tokens, a.logger, auth.Config{
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		BcryptCost:      cfg.Auth.BcryptCost,
	})

	contactService := contact.NewService(contact.NewRepository(database, m), a.publisher, m, a.logger)

	audit := admin.NewAuditLogger(a.logger)
	adminService := admin.NewService(admin.NewRepository(database, m), tokens, audit, a.logger, admin.Config{
		TokenTTL:          cfg.Auth.AdminTokenTTL,
		BcryptCost:        cfg.Auth.BcryptCost,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	})
	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		if _, err := adminService.CreateAdminIfMissing(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
	}

	sched, err := scheduler.New(a.logger)
	if err != nil {
		return err
	}
	a.scheduler = sched
	if err := sched.AddPurgeJob("purge-refresh-tokens", cfg.Auth.PurgeInterval, authService); err != nil {
		return err
	}
	sched.Start()

	httpMetrics := httpmetrics.New()

	a.router.Use(chimiddleware.RequestID)
	a.router.Use(chimiddleware.RealIP)
	a.router.Use(chimiddleware.Recoverer)
	a.router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	a.router.Use(httpMetrics.Middleware)

	healthHandler := health.NewHandler(m.Health, a.logger)
	healthHandler.AddCheck("postgres", database.PingContext)
	if a.redis != nil {
		healthHandler.AddCheck("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	healthHandler.RegisterRoutes(a.router)
	a.router.Handle("/metrics", httpMetrics.Handler())

	internHandler := intern.NewHandler(internService, auth.InternID, a.logger)

	a.router.Route("/api", func(r chi.Router) {
		auth.NewHandler(authService, a.logger, cfg.Auth.SecureCookies).RegisterRoutes(r)
		leaderboard.NewHandler(leaderboardService, a.logger).RegisterRoutes(r)
		contact.NewHandler(contactService, a.logger).RegisterRoutes(r)
		admin.NewHandler(adminService, internService, authService, contactService, activityService, tokens, audit, a.logger).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokens, a.logger))
			r.Use(auth.RequireRole(auth.RoleIntern))
			internHandler.RegisterProtectedRoutes(r)
		})
		internHandler.RegisterRoutes(r)
	})

	return nil
}

// newPublisher picks the event transport. Broker events reach the activity
// log through the activity worker; the local driver records them directly.
// Connection failures degrade to a no-op publisher so the API stays available.
func (a *App) newPublisher(activityLog *activity.Service) events.Publisher {
	cfg := a.config.Events

	switch cfg.Driver {
	case config.EventsDriverNATS:
		p, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize NATS producer, events disabled", "error", err)
			return events.Nop{}
		}
		a.logger.Info("NATS producer initialized successfully")
		return p
	case config.EventsDriverKafka:
		p, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize Kafka producer, events disabled", "error", err)
			return events.Nop{}
		}
		a.logger.Info("Kafka producer initialized successfully")
		return p
	case config.EventsDriverLocal:
		return events.Local{Handler: activityLog.Handle}
	default:
		return events.Nop{}
	}
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var err error
	if a.server != nil {
		err = a.server.Shutdown(ctx)
	}
	a.close(ctx)
	return err
}

func (a *App) close(ctx context.Context) {
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(); err != nil {
			a.logger.Error("failed to stop scheduler", "error", err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("failed to close event publisher", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	db.Close(a.db)
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
			a.logger.Error("failed to shutdown telemetry", "error", err)
		}
	}
}
