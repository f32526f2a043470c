package intern

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"intern-service/internal/db"
	"intern-service/internal/leaderboard"
	"intern-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const table = "interns"

// Unique constraint names PostgreSQL derives for the interns table.
const (
	emailConstraint        = "interns_email_key"
	referralCodeConstraint = "interns_referral_code_key"
)

type Repository interface {
	Create(ctx context.Context, intern *Intern) error
	GetByID(ctx context.Context, id uuid.UUID) (*Intern, error)
	GetByEmail(ctx context.Context, email string) (*Intern, error)
	List(ctx context.Context) ([]Intern, error)
	Standings(ctx context.Context) ([]leaderboard.Entry, error)
	// CreditReferral adds bonus to the intern owning code and counts one more
	// referral. The intern with excludeID is never credited.
	CreditReferral(ctx context.Context, code string, excludeID uuid.UUID, bonus float64) (*Intern, error)
	AddAmount(ctx context.Context, id uuid.UUID, delta float64) (*Intern, error)
	SetAmount(ctx context.Context, id uuid.UUID, amount float64) (*Intern, error)
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

// Create inserts intern. Unique violations surface as ErrEmailExists or
// ErrReferralCodeTaken.
func (r *repository) Create(ctx context.Context, intern *Intern) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(intern).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case emailConstraint:
			return ErrEmailExists
		case referralCodeConstraint:
			return ErrReferralCodeTaken
		}
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Intern, error) {
	start := time.Now()
	intern := new(Intern)
	err := r.db.NewSelect().Model(intern).Where("id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInternNotFound
		}
		return nil, err
	}
	return intern, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Intern, error) {
	start := time.Now()
	intern := new(Intern)
	err := r.db.NewSelect().Model(intern).Where("email = ?", email).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInternNotFound
		}
		return nil, err
	}
	return intern, nil
}

func (r *repository) List(ctx context.Context) ([]Intern, error) {
	start := time.Now()
	interns := make([]Intern, 0)
	err := r.db.NewSelect().Model(&interns).Order("created_at DESC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	return interns, err
}

func (r *repository) Standings(ctx context.Context) ([]leaderboard.Entry, error) {
	start := time.Now()
	var interns []Intern
	err := r.db.NewSelect().
		Model(&interns).
		Column("id", "name", "amount_raised", "referral_code", "referrals_count", "created_at").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, err
	}

	entries := make([]leaderboard.Entry, len(interns))
	for i := range interns {
		entries[i] = interns[i].ToEntry()
	}
	return entries, nil
}

func (r *repository) CreditReferral(ctx context.Context, code string, excludeID uuid.UUID, bonus float64) (*Intern, error) {
	return r.update(ctx, "credit_referral", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("referral_code = ?", code).Where("id <> ?", excludeID)
	}, func(intern *Intern) error {
		intern.AmountRaised += bonus
		intern.ReferralsCount++
		return nil
	})
}

func (r *repository) AddAmount(ctx context.Context, id uuid.UUID, delta float64) (*Intern, error) {
	return r.update(ctx, "add_amount", byID(id), func(intern *Intern) error {
		if intern.AmountRaised+delta < 0 {
			return ErrInvalidInput
		}
		intern.AmountRaised += delta
		return nil
	})
}

func (r *repository) SetAmount(ctx context.Context, id uuid.UUID, amount float64) (*Intern, error) {
	return r.update(ctx, "set_amount", byID(id), func(intern *Intern) error {
		intern.AmountRaised = amount
		return nil
	})
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Intern)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", table, time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrInternNotFound
	}
	return nil
}

func byID(id uuid.UUID) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	}
}

// update locks the selected row, applies fn and writes the amount, tally and
// rewards back in the same transaction so concurrent changes serialize.
func (r *repository) update(
	ctx context.Context,
	operation string,
	where func(*bun.SelectQuery) *bun.SelectQuery,
	fn func(*Intern) error,
) (*Intern, error) {
	start := time.Now()
	intern := new(Intern)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := where(tx.NewSelect().Model(intern)).For("UPDATE").Scan(ctx); err != nil {
			return err
		}
		if err := fn(intern); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model(intern).
			Column("amount_raised", "referrals_count", "rewards", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	})

	r.metrics.Database.RecordQuery(ctx, operation, table, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInternNotFound
		}
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return intern, nil
}
