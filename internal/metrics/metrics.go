package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	Database *DatabaseMetrics
	Health   *HealthMetrics

	internsSignedUp   metric.Int64Counter
	referralsCredited metric.Int64Counter
	amountsUpdated    metric.Int64Counter
	leaderboardViewed metric.Int64Counter
	contactsReceived  metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.Database, err = NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	m.Health, err = NewHealthMetrics(meter)
	if err != nil {
		return nil, err
	}

	m.internsSignedUp, err = meter.Int64Counter(
		"intern_service.interns.signed_up",
		metric.WithDescription("Total number of intern signups"),
		metric.WithUnit("{intern}"),
	)
	if err != nil {
		return nil, err
	}

	m.referralsCredited, err = meter.Int64Counter(
		"intern_service.referrals.credited",
		metric.WithDescription("Total number of referral bonuses credited to referrers"),
		metric.WithUnit("{referral}"),
	)
	if err != nil {
		return nil, err
	}

	m.amountsUpdated, err = meter.Int64Counter(
		"intern_service.amounts.updated",
		metric.WithDescription("Total number of amount raised changes"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	m.leaderboardViewed, err = meter.Int64Counter(
		"intern_service.leaderboard.viewed",
		metric.WithDescription("Total number of leaderboard reads"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	m.contactsReceived, err = meter.Int64Counter(
		"intern_service.contacts.received",
		metric.WithDescription("Total number of contact form submissions"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordSignup(ctx context.Context, referred bool) {
	if m != nil && m.internsSignedUp != nil {
		m.internsSignedUp.Add(ctx, 1, metric.WithAttributes(attribute.Bool("referred", referred)))
	}
}

func (m *Metrics) RecordReferralCredited(ctx context.Context) {
	if m != nil && m.referralsCredited != nil {
		m.referralsCredited.Add(ctx, 1)
	}
}

// RecordAmountUpdated counts amount changes by where they came from
// (referral, simulated, admin).
func (m *Metrics) RecordAmountUpdated(ctx context.Context, source string) {
	if m != nil && m.amountsUpdated != nil {
		m.amountsUpdated.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
}

func (m *Metrics) RecordLeaderboardViewed(ctx context.Context, cached bool) {
	if m != nil && m.leaderboardViewed != nil {
		m.leaderboardViewed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", cached)))
	}
}

func (m *Metrics) RecordContactReceived(ctx context.Context) {
	if m != nil && m.contactsReceived != nil {
		m.contactsReceived.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{
		Database: &DatabaseMetrics{},
		Health:   &HealthMetrics{},
	}
}
