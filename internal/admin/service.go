package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"intern-service/internal/auth"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminExists        = errors.New("admin already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

type Config struct {
	TokenTTL          time.Duration
	BcryptCost        int
	MinPasswordLength int
}

type Service struct {
	repo   Repository
	tokens *auth.TokenManager
	audit  *AuditLogger
	logger *slog.Logger
	cfg    Config
}

func NewService(repo Repository, tokens *auth.TokenManager, audit *AuditLogger, logger *slog.Logger, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 8 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = 8
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		audit:  audit,
		logger: logger,
		cfg:    cfg,
	}
}

// Login checks the credentials and returns a signed admin token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			s.audit.LogLogin(ctx, username, StatusDenied)
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.audit.LogLogin(ctx, username, StatusDenied)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(admin.ID.String(), "", auth.RoleAdmin, s.cfg.TokenTTL)
	if err != nil {
		return "", err
	}

	s.audit.LogLogin(ctx, admin.Username, StatusSuccess)
	return token, nil
}

func (s *Service) ChangePassword(ctx context.Context, adminID uuid.UUID, currentPassword, newPassword string) error {
	if len(newPassword) < s.cfg.MinPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", ErrInvalidInput, s.cfg.MinPasswordLength)
	}

	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(currentPassword)); err != nil {
		s.audit.LogAction(ctx, admin.Username, "change_password", "admin", admin.ID.String(), StatusDenied, "")
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, admin.ID, string(hash)); err != nil {
		return err
	}

	s.audit.LogAction(ctx, admin.Username, "change_password", "admin", admin.ID.String(), StatusSuccess, "")
	return nil
}

// EnsureAdmin creates the admin account if missing and resets its password
// when it no longer matches. It reports whether anything was written.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	return s.seed(ctx, username, password, true)
}

// CreateAdminIfMissing creates the admin account when none exists under
// username. An existing account, and any password changed through the
// dashboard, is left alone.
func (s *Service) CreateAdminIfMissing(ctx context.Context, username, password string) (bool, error) {
	return s.seed(ctx, username, password, false)
}

func (s *Service) seed(ctx context.Context, username, password string, reset bool) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, ErrInvalidInput
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrAdminNotFound) {
		return false, err
	}

	if existing != nil {
		if !reset || bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) == nil {
			return false, nil
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
		if err != nil {
			return false, fmt.Errorf("failed to hash password: %w", err)
		}
		if err := s.repo.UpdatePassword(ctx, existing.ID, string(hash)); err != nil {
			return false, err
		}
		s.logger.InfoContext(ctx, "admin password reset", "username", username)
		return true, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.Create(ctx, &Admin{Username: username, PasswordHash: string(hash)}); err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "admin created", "username", username)
	return true, nil
}
