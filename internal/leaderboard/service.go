package leaderboard

import (
	"context"
	"fmt"
	"log/slog"

	"intern-service/internal/metrics"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Source provides the unranked standings of every intern.
type Source interface {
	Standings(ctx context.Context) ([]Entry, error)
}

// Cache stores ranked leaderboards keyed by limit. Get reports the cache
// generation it read from; Set must be a no-op (false) once Invalidate has
// moved past that generation, so a ranking loaded before a change is never
// written back after it.
type Cache interface {
	Get(ctx context.Context, limit int) (entries []Entry, gen int64, ok bool, err error)
	Set(ctx context.Context, gen int64, limit int, entries []Entry) (bool, error)
	Invalidate(ctx context.Context) error
}

type Service struct {
	source       Source
	cache        Cache
	logger       *slog.Logger
	metrics      *metrics.Metrics
	defaultLimit int
	maxLimit     int
}

type Option func(*Service)

// WithCache enables caching of ranked results.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLimits overrides the default and maximum page sizes.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

func NewService(source Source, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		source:       source,
		logger:       logger,
		metrics:      m,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// Top returns the highest ranked interns. A non-positive limit selects the
// default, anything above the maximum is clamped.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	limit = s.clamp(limit)

	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		entries, g, ok, err := s.cache.Get(ctx, limit)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "leaderboard cache read failed", "error", err)
		case ok:
			s.metrics.RecordLeaderboardViewed(ctx, true)
			return entries, nil
		default:
			gen, cacheable = g, true
		}
	}

	standings, err := s.source.Standings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load standings: %w", err)
	}

	ranked := Rank(standings, limit)

	if cacheable {
		stored, err := s.cache.Set(ctx, gen, limit, ranked)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "leaderboard cache write failed", "error", err)
		case !stored:
			s.logger.DebugContext(ctx, "leaderboard changed while loading, result not cached")
		}
	}

	s.metrics.RecordLeaderboardViewed(ctx, false)
	return ranked, nil
}

// Invalidate drops cached rankings after standings change.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "leaderboard cache invalidation failed", "error", err)
	}
}

func (s *Service) clamp(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}
