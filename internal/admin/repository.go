package admin

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"intern-service/internal/db"
	"intern-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const table = "admins"

type Repository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admin, error)
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Create(ctx context.Context, admin *Admin) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(admin).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if _, ok := db.UniqueViolation(err); ok {
		return ErrAdminExists
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *repository) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	return r.getBy(ctx, "username = ?", username)
}

func (r *repository) getBy(ctx context.Context, where string, arg interface{}) (*Admin, error) {
	start := time.Now()
	admin := new(Admin)
	err := r.db.NewSelect().Model(admin).Where(where, arg).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return admin, nil
}

func (r *repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	start := time.Now()
	admin := &Admin{ID: id, PasswordHash: passwordHash}
	result, err := r.db.NewUpdate().
		Model(admin).
		Column("password_hash", "updated_at").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", table, time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAdminNotFound
	}
	return nil
}
