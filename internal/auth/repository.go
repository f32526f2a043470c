package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"intern-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const table = "refresh_tokens"

type Repository interface {
	Create(ctx context.Context, internID uuid.UUID, token string, expiresAt time.Time) error
	// Consume deletes an unexpired token and returns it. Of several callers
	// racing on one token only the first succeeds; the rest get
	// ErrInvalidRefreshToken.
	Consume(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteForIntern(ctx context.Context, internID uuid.UUID) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: db, metrics: m}
}

// observe returns a func recording one query's duration and outcome.
func (r *repository) observe(ctx context.Context, op string) func(error) {
	start := time.Now()
	return func(err error) {
		r.metrics.Database.RecordQuery(ctx, op, table, time.Since(start), err)
	}
}

func (r *repository) Create(ctx context.Context, internID uuid.UUID, token string, expiresAt time.Time) error {
	done := r.observe(ctx, "insert")
	_, err := r.db.NewInsert().
		Model(&RefreshToken{InternID: internID, Token: token, ExpiresAt: expiresAt}).
		Exec(ctx)
	done(err)
	return err
}

func (r *repository) Consume(ctx context.Context, token string) (*RefreshToken, error) {
	done := r.observe(ctx, "delete")
	var rt RefreshToken
	res, err := r.db.NewDelete().
		Model(&rt).
		Where("token = ?", token).
		Where("expires_at > ?", time.Now()).
		Returning("*").
		Exec(ctx)
	done(err)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrInvalidRefreshToken
	case err != nil:
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrInvalidRefreshToken
	}
	return &rt, nil
}

func (r *repository) Delete(ctx context.Context, token string) error {
	_, err := r.deleteWhere(ctx, "token = ?", token)
	return err
}

func (r *repository) DeleteForIntern(ctx context.Context, internID uuid.UUID) error {
	_, err := r.deleteWhere(ctx, "intern_id = ?", internID)
	return err
}

// DeleteExpired purges tokens past their expiry and reports how many went.
func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	return r.deleteWhere(ctx, "expires_at < ?", time.Now())
}

func (r *repository) deleteWhere(ctx context.Context, cond string, arg any) (int64, error) {
	done := r.observe(ctx, "delete")
	res, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where(cond, arg).
		Exec(ctx)
	done(err)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
