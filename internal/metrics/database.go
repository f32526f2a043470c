package metrics

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DatabaseMetrics records query latency and errors per operation and table,
// plus connection pool state once a pool is registered.
type DatabaseMetrics struct {
	queryDuration metric.Float64Histogram
	queryErrors   metric.Int64Counter
	connections   metric.Int64ObservableGauge
	waitCount     metric.Int64ObservableCounter
}

func NewDatabaseMetrics(meter metric.Meter) (*DatabaseMetrics, error) {
	queryDuration, err := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	queryErrors, err := meter.Int64Counter(
		"db.query.errors",
		metric.WithDescription("Database query errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	connections, err := meter.Int64ObservableGauge(
		"db.pool.connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	waitCount, err := meter.Int64ObservableCounter(
		"db.pool.wait_count",
		metric.WithDescription("Total number of connections waited for"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, err
	}

	return &DatabaseMetrics{
		queryDuration: queryDuration,
		queryErrors:   queryErrors,
		connections:   connections,
		waitCount:     waitCount,
	}, nil
}

// RegisterDB reports the pool stats of db on every collection.
func (dm *DatabaseMetrics) RegisterDB(db *sql.DB, meter metric.Meter) error {
	state := func(s string) metric.ObserveOption {
		return metric.WithAttributes(attribute.String("state", s))
	}

	_, err := meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			stats := db.Stats()
			observer.ObserveInt64(dm.connections, int64(stats.Idle), state("idle"))
			observer.ObserveInt64(dm.connections, int64(stats.InUse), state("in_use"))
			observer.ObserveInt64(dm.connections, int64(stats.MaxOpenConnections), state("max"))
			observer.ObserveInt64(dm.waitCount, stats.WaitCount)
			return nil
		},
		dm.connections,
		dm.waitCount,
	)
	return err
}

// RecordQuery records the duration of one query. sql.ErrNoRows is a lookup
// miss, not a failure.
func (dm *DatabaseMetrics) RecordQuery(ctx context.Context, operation string, table string, duration time.Duration, err error) {
	if dm == nil || dm.queryDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("table", table),
	)

	dm.queryDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		dm.queryErrors.Add(ctx, 1, attrs)
	}
}
