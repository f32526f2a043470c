// Package activity keeps a log of domain events for admins to review.
package activity

import (
	"context"
	"errors"
	"log/slog"

	"intern-service/internal/events"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var ErrInvalidEvent = errors.New("invalid event")

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Handle records event. It matches events.Handler.
func (s *Service) Handle(ctx context.Context, event events.Event) error {
	if event.ID == uuid.Nil || event.Type == "" {
		return ErrInvalidEvent
	}

	stored, err := s.repo.Record(ctx, newEntry(event))
	if err != nil {
		return err
	}
	if !stored {
		s.logger.DebugContext(ctx, "duplicate event ignored", "event_id", event.ID)
		return nil
	}

	s.logger.DebugContext(ctx, "event recorded", "event_id", event.ID, "type", event.Type)
	return nil
}

// Recent returns the newest entries first. limit is clamped to
// [1, MaxLimit]; zero or less means DefaultLimit.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	entries, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
