package contact

import (
	"context"
	"database/sql"
	"time"

	"intern-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const table = "contacts"

type Repository interface {
	Create(ctx context.Context, contact *Contact) error
	ListWithUsers(ctx context.Context) ([]WithUser, error)
	Delete(ctx context.Context, id uuid.UUID) error
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

func (r *repository) Create(ctx context.Context, contact *Contact) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(contact).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	return err
}

type contactRow struct {
	ID          uuid.UUID      `bun:"id"`
	Name        string         `bun:"name"`
	Email       string         `bun:"email"`
	Message     string         `bun:"message"`
	UserID      *uuid.UUID     `bun:"user_id"`
	Date        time.Time      `bun:"date"`
	InternName  sql.NullString `bun:"intern_name"`
	InternEmail sql.NullString `bun:"intern_email"`
}

// ListWithUsers returns every message, newest first. A message whose sender
// was deleted comes back without a user.
func (r *repository) ListWithUsers(ctx context.Context) ([]WithUser, error) {
	start := time.Now()
	var rows []contactRow
	err := r.db.NewSelect().
		Model((*Contact)(nil)).
		ColumnExpr("c.id, c.name, c.email, c.message, c.user_id, c.date").
		ColumnExpr("i.name AS intern_name, i.email AS intern_email").
		Join("LEFT JOIN interns AS i ON i.id = c.user_id").
		OrderExpr("c.date DESC").
		Scan(ctx, &rows)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, err
	}

	out := make([]WithUser, 0, len(rows))
	for _, row := range rows {
		item := WithUser{
			Contact: Contact{
				ID:      row.ID,
				Name:    row.Name,
				Email:   row.Email,
				Message: row.Message,
				UserID:  row.UserID,
				Date:    row.Date,
			},
		}
		if row.UserID != nil && row.InternName.Valid {
			item.User = &User{
				ID:    *row.UserID,
				Name:  row.InternName.String,
				Email: row.InternEmail.String,
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Contact)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", table, time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}
