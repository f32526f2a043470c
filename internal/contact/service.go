package contact

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"intern-service/internal/events"
	"intern-service/internal/metrics"

	"github.com/google/uuid"
)

var (
	ErrContactNotFound = errors.New("message not found")
	ErrInvalidInput    = errors.New("invalid input")
)

type Service struct {
	repo      Repository
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(repo Repository, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Submit stores a contact form message. userID is optional and not checked
// against existing interns.
func (s *Service) Submit(ctx context.Context, name, email, message string, userID *uuid.UUID) (*Contact, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	message = strings.TrimSpace(message)
	if name == "" || email == "" || message == "" {
		return nil, ErrInvalidInput
	}

	c := &Contact{
		Name:    name,
		Email:   email,
		Message: message,
		UserID:  userID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "contact message received", "contact_id", c.ID)
	s.metrics.RecordContactReceived(ctx)

	data := map[string]any{"email": c.Email}
	if userID != nil {
		data["userId"] = userID.String()
	}
	if err := s.publisher.Publish(ctx, events.New(events.ContactReceived, c.ID.String(), data)); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "type", events.ContactReceived, "error", err)
	}

	return c, nil
}

func (s *Service) List(ctx context.Context) ([]WithUser, error) {
	return s.repo.ListWithUsers(ctx)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}
