package activity

import (
	"context"
	"time"

	"intern-service/internal/metrics"

	"github.com/uptrace/bun"
)

const table = "activity_log"

type Repository interface {
	// Record stores entry and reports false when its event was already stored.
	Record(ctx context.Context, entry *Entry) (bool, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
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

func (r *repository) Record(ctx context.Context, entry *Entry) (bool, error) {
	start := time.Now()
	result, err := r.db.NewInsert().
		Model(entry).
		On("CONFLICT (event_id) DO NOTHING").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	start := time.Now()
	var entries []Entry
	err := r.db.NewSelect().
		Model(&entries).
		Order("occurred_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return entries, nil
}
