package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"intern-service/internal/intern"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

type Service struct {
	repo    Repository
	interns intern.Service
	tokens  *TokenManager
	logger  *slog.Logger
	cfg     Config
}

func NewService(repo Repository, interns intern.Service, tokens *TokenManager, logger *slog.Logger, cfg Config) *Service {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:    repo,
		interns: interns,
		tokens:  tokens,
		logger:  logger,
		cfg:     cfg,
	}
}

// Signup creates the intern account, attributing the referral code when
// given, and signs the new intern in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.interns.Signup(ctx, intern.SignupInput{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return nil, err
	}

	return s.generateTokenPair(ctx, created)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	found, err := s.interns.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, intern.ErrInternNotFound) || errors.Is(err, intern.ErrInvalidInput) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, found)
}

// Refresh trades a refresh token for a new pair. The old token is consumed
// before the new pair is issued, so each token refreshes at most once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	stored, err := s.repo.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}

	found, err := s.interns.GetByID(ctx, stored.InternID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	return s.generateTokenPair(ctx, found)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.Delete(ctx, refreshToken)
}

// RevokeSessions drops every refresh token issued to the intern.
func (s *Service) RevokeSessions(ctx context.Context, internID uuid.UUID) error {
	if err := s.repo.DeleteForIntern(ctx, internID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// PurgeExpired drops refresh tokens past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "purged expired refresh tokens", "count", n)
	}
	return n, nil
}

func (s *Service) AccessTokenTTL() time.Duration {
	return s.cfg.AccessTokenTTL
}

func (s *Service) generateTokenPair(ctx context.Context, in *intern.Intern) (*AuthResponse, error) {
	accessToken, err := s.tokens.Generate(in.ID.String(), in.Email, RoleIntern, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.cfg.RefreshTokenTTL)
	if err := s.repo.Create(ctx, in.ID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Intern:       in,
	}, nil
}
