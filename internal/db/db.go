package db

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"intern-service/internal/config"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// SQLSTATE reported by PostgreSQL for unique constraint violations.
const uniqueViolation = "23505"

const pingTimeout = 10 * time.Second

// New connects with the discrete settings in cfg and applies its pool limits.
func New(cfg config.DatabaseConfig) (*bun.DB, error) {
	opts := []pgdriver.Option{
		pgdriver.WithAddr(net.JoinHostPort(cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.DBName),
		pgdriver.WithApplicationName("intern-service"),
		pgdriver.WithDialTimeout(5 * time.Second),
	}

	switch cfg.SSLMode {
	case "", "disable":
		opts = append(opts, pgdriver.WithInsecure(true))
	case "require":
		// libpq "require" encrypts without verifying the server certificate.
		opts = append(opts, pgdriver.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	default:
		opts = append(opts, pgdriver.WithTLSConfig(&tls.Config{ServerName: cfg.Host}))
	}

	db, err := open(pgdriver.NewConnector(opts...))
	if err != nil {
		return nil, err
	}
	configurePool(db.DB, cfg)
	return db, nil
}

// NewWithDSN connects using a postgres:// URL, as handed out by test containers.
func NewWithDSN(dsn string) (*bun.DB, error) {
	return open(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
}

func open(connector *pgdriver.Connector) (*bun.DB, error) {
	db := bun.NewDB(sql.OpenDB(connector), pgdialect.New())

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	slog.Info("database connected successfully")
	return db, nil
}

func configurePool(sqlDB *sql.DB, cfg config.DatabaseConfig) {
	maxOpen := orDefault(cfg.MaxOpenConns, 25)
	maxIdle := orDefault(cfg.MaxIdleConns, 10)
	lifetime := time.Duration(orDefault(cfg.ConnMaxLifetime, 300)) * time.Second
	idleTime := time.Duration(orDefault(cfg.ConnMaxIdleTime, 60)) * time.Second

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	sqlDB.SetConnMaxIdleTime(idleTime)

	slog.Info("database pool configured",
		"max_open_conns", maxOpen,
		"max_idle_conns", maxIdle,
		"conn_max_lifetime", lifetime,
		"conn_max_idle_time", idleTime,
	)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func Close(db *bun.DB) {
	if db != nil {
		_ = db.Close()
	}
}

// RunMigrations creates a table per model when missing. Existing tables are
// left untouched.
func RunMigrations(ctx context.Context, db *bun.DB, models ...interface{}) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range models {
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}
		slog.InfoContext(ctx, "database migrations completed successfully", "tables", len(models))
		return nil
	})
}

// UniqueViolation reports whether err is a PostgreSQL unique violation and,
// if so, which constraint was hit.
func UniqueViolation(err error) (string, bool) {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Field('C') != uniqueViolation {
		return "", false
	}
	return pgErr.Field('n'), true
}
