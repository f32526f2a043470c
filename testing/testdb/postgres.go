// Package testdb runs a throwaway PostgreSQL for repository tests.
package testdb

import (
	"context"
	"sync"
	"testing"

	"intern-service/internal/db"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
)

const image = "postgres:16-alpine"

var (
	shared     *PostgresContainer
	sharedErr  error
	sharedOnce sync.Once
)

type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DB        *bun.DB
	DSN       string
}

// SetupSharedPostgres starts one container per test binary. Every caller gets
// the same database, so tests sharing it must not run in parallel and only one
// of them should call Cleanup. Skipped under -short.
func SetupSharedPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	sharedOnce.Do(func() {
		shared, sharedErr = start(context.Background())
	})
	require.NoError(t, sharedErr, "start postgres container")
	return shared
}

func start(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase("intern_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	conn, err := db.NewWithDSN(dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &PostgresContainer{Container: container, DB: conn, DSN: dsn}, nil
}

func (pc *PostgresContainer) Cleanup(t *testing.T) {
	t.Helper()

	db.Close(pc.DB)
	if pc.Container == nil {
		return
	}
	if err := pc.Container.Terminate(context.Background()); err != nil {
		t.Logf("terminate postgres container: %v", err)
	}
}

// RunMigrations creates the tables for models using the production migration path.
func (pc *PostgresContainer) RunMigrations(t *testing.T, models ...interface{}) {
	t.Helper()
	require.NoError(t, db.RunMigrations(context.Background(), pc.DB, models...))
}

// CleanupTables empties tables in one statement so foreign keys between them
// do not matter.
func CleanupTables(t *testing.T, conn *bun.DB, tables ...string) {
	t.Helper()
	if len(tables) == 0 {
		return
	}

	_, err := conn.NewTruncateTable().
		Table(tables...).
		Cascade().
		Exec(context.Background())
	require.NoError(t, err, "truncate %v", tables)
}
