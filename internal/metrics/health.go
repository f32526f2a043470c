package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HealthMetrics tracks readiness checks against backing dependencies. The up
// gauge reports the outcome of the most recent check per dependency.
type HealthMetrics struct {
	up       metric.Int64ObservableGauge
	checkDur metric.Float64Histogram

	mu   sync.RWMutex
	last map[string]int64
}

func NewHealthMetrics(meter metric.Meter) (*HealthMetrics, error) {
	up, err := meter.Int64ObservableGauge(
		"dependency.up",
		metric.WithDescription("1 when the last check of a dependency succeeded, else 0"),
		metric.WithUnit("{status}"),
	)
	if err != nil {
		return nil, err
	}

	checkDur, err := meter.Float64Histogram(
		"dependency.response_time",
		metric.WithDescription("Readiness check duration per dependency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2),
	)
	if err != nil {
		return nil, err
	}

	hm := &HealthMetrics{up: up, checkDur: checkDur, last: map[string]int64{}}
	if _, err := meter.RegisterCallback(hm.observe, up); err != nil {
		return nil, err
	}
	return hm, nil
}

func (hm *HealthMetrics) observe(_ context.Context, o metric.Observer) error {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	for dep, v := range hm.last {
		o.ObserveInt64(hm.up, v, metric.WithAttributes(attribute.String("dependency", dep)))
	}
	return nil
}

// RecordDependencyCheck stores one check result. Safe on a nil receiver.
func (hm *HealthMetrics) RecordDependencyCheck(ctx context.Context, dependency string, duration time.Duration, err error) {
	if hm == nil || hm.checkDur == nil {
		return
	}

	outcome, v := "ok", int64(1)
	if err != nil {
		outcome, v = "error", 0
	}
	hm.checkDur.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("outcome", outcome),
	))

	hm.mu.Lock()
	hm.last[dependency] = v
	hm.mu.Unlock()
}
