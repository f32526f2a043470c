package intern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"intern-service/internal/events"
	"intern-service/internal/metrics"
	"intern-service/internal/referral"

	"github.com/google/uuid"
)

var (
	ErrInternNotFound        = errors.New("intern not found")
	ErrEmailExists           = errors.New("email already exists")
	ErrInvalidInput          = errors.New("invalid input")
	ErrReferralCodeTaken     = errors.New("referral code already taken")
	ErrReferralCodeExhausted = referral.ErrCodeExhausted
)

// Amount change sources reported in metrics and events.
const (
	SourceReferral  = "referral"
	SourceSimulated = "simulated"
	SourceAdmin     = "admin"
)

type Service interface {
	Signup(ctx context.Context, in SignupInput) (*Intern, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Intern, error)
	GetByEmail(ctx context.Context, email string) (*Intern, error)
	List(ctx context.Context) ([]Intern, error)
	SimulateReferral(ctx context.Context, id uuid.UUID) (*Intern, error)
	SetAmount(ctx context.Context, id uuid.UUID, amount float64) (*Intern, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LeaderboardInvalidator is told whenever standings may have changed.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context)
}

type Options struct {
	Bonus           float64
	MaxCodeAttempts int
}

type service struct {
	repo        Repository
	codes       referral.Generator
	publisher   events.Publisher
	leaderboard LeaderboardInvalidator
	metrics     *metrics.Metrics
	logger      *slog.Logger
	opts        Options
}

func NewService(
	repo Repository,
	codes referral.Generator,
	publisher events.Publisher,
	leaderboard LeaderboardInvalidator,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts Options,
) Service {
	if opts.Bonus <= 0 {
		opts.Bonus = referral.Bonus
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = referral.MaxCodeAttempts
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &service{
		repo:        repo,
		codes:       codes,
		publisher:   publisher,
		leaderboard: leaderboard,
		metrics:     m,
		logger:      logger,
		opts:        opts,
	}
}

// Signup creates the intern and then attributes the referral, if any. A
// referral that cannot be credited never fails the signup.
func (s *service) Signup(ctx context.Context, in SignupInput) (*Intern, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.PasswordHash == "" {
		return nil, ErrInvalidInput
	}

	code := referral.Normalize(in.ReferralCode)

	intern := &Intern{
		Name:         name,
		Email:        email,
		PasswordHash: in.PasswordHash,
		ReferredBy:   code,
		Goal:         DefaultGoal,
	}

	if err := s.create(ctx, intern); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "intern signed up", "intern_id", intern.ID, "referral_code", intern.ReferralCode)
	s.metrics.RecordSignup(ctx, code != "")
	s.publish(ctx, events.New(events.InternSignedUp, intern.ID.String(), map[string]any{
		"referralCode": intern.ReferralCode,
		"referredBy":   code,
	}))

	s.attribute(ctx, intern, code)
	s.invalidate(ctx)

	return intern, nil
}

// create inserts intern with a fresh referral code, drawing a new one each
// time the store reports a collision.
func (s *service) create(ctx context.Context, intern *Intern) error {
	for attempt := 1; attempt <= s.opts.MaxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return err
		}
		intern.ID = uuid.New()
		intern.ReferralCode = code

		err = s.repo.Create(ctx, intern)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrReferralCodeTaken) {
			return err
		}
		s.logger.WarnContext(ctx, "referral code collision, retrying", "attempt", attempt)
	}
	return ErrReferralCodeExhausted
}

// attribute credits the owner of code. Unknown codes and self-referrals are
// ignored. Codes that could never have been generated skip the store.
func (s *service) attribute(ctx context.Context, newIntern *Intern, code string) {
	if code == "" || code == newIntern.ReferralCode {
		return
	}
	if !referral.Valid(code) {
		s.logger.InfoContext(ctx, "malformed referral code, skipping attribution", "referral_code", code)
		return
	}

	referrer, err := s.repo.CreditReferral(ctx, code, newIntern.ID, s.opts.Bonus)
	if err != nil {
		if errors.Is(err, ErrInternNotFound) {
			s.logger.InfoContext(ctx, "referral code not found, skipping attribution", "referral_code", code)
			return
		}
		s.logger.ErrorContext(ctx, "failed to credit referrer", "referral_code", code, "error", err)
		return
	}

	s.logger.InfoContext(ctx, "referral credited",
		"referrer_id", referrer.ID,
		"referee_id", newIntern.ID,
		"amount_raised", referrer.AmountRaised,
		"referrals_count", referrer.ReferralsCount,
	)
	s.metrics.RecordReferralCredited(ctx)
	s.metrics.RecordAmountUpdated(ctx, SourceReferral)
	s.publish(ctx, events.New(events.ReferralCredited, referrer.ID.String(), map[string]any{
		"refereeId":      newIntern.ID.String(),
		"bonus":          s.opts.Bonus,
		"amountRaised":   referrer.AmountRaised,
		"referralsCount": referrer.ReferralsCount,
	}))
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Intern, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByEmail(ctx context.Context, email string) (*Intern, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByEmail(ctx, email)
}

func (s *service) List(ctx context.Context) ([]Intern, error) {
	return s.repo.List(ctx)
}

// SimulateReferral credits the referral bonus without a referee, so the
// referral tally is left alone.
func (s *service) SimulateReferral(ctx context.Context, id uuid.UUID) (*Intern, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidInput
	}

	intern, err := s.repo.AddAmount(ctx, id, s.opts.Bonus)
	if err != nil {
		return nil, err
	}

	s.amountChanged(ctx, intern, SourceSimulated)
	return intern, nil
}

func (s *service) SetAmount(ctx context.Context, id uuid.UUID, amount float64) (*Intern, error) {
	if id == uuid.Nil || amount < 0 {
		return nil, fmt.Errorf("%w: amount must be zero or more", ErrInvalidInput)
	}

	intern, err := s.repo.SetAmount(ctx, id, amount)
	if err != nil {
		return nil, err
	}

	s.amountChanged(ctx, intern, SourceAdmin)
	return intern, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "intern deleted", "intern_id", id)
	s.publish(ctx, events.New(events.InternDeleted, id.String(), nil))
	s.invalidate(ctx)
	return nil
}

func (s *service) amountChanged(ctx context.Context, intern *Intern, source string) {
	s.logger.InfoContext(ctx, "amount raised updated",
		"intern_id", intern.ID,
		"amount_raised", intern.AmountRaised,
		"source", source,
	)
	s.metrics.RecordAmountUpdated(ctx, source)
	s.publish(ctx, events.New(events.InternAmountUpdated, intern.ID.String(), map[string]any{
		"amountRaised": intern.AmountRaised,
		"source":       source,
	}))
	s.invalidate(ctx)
}

func (s *service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "type", event.Type, "error", err)
	}
}

func (s *service) invalidate(ctx context.Context) {
	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx)
	}
}
