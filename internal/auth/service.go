package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/repository"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

// RegisterInput is a validated sign-up payload.
type RegisterInput struct {
	Name                 string
	Email                string
	Password string
}

// Service coordinates registration, login and token lifecycle for the sandbox.
type Service struct {
	users      repository.UserRepository
	tokenMgr   *TokenManager
	bcryptCost int
}

// NewService builds the service.
func NewService(cfg config.AuthConfig, users repository.UserRepository) *Service {
	return &Service{
		users:      users,
		tokenMgr:   NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *Service) TokenManager() *TokenManager {
	return s.tokenMgr
}

// Register creates an end-user account and issues a token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, string, time.Time, error) {
	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	account := &repository.Account{
		User: domain.User{
			Name:  strings.TrimSpace(in.Name),
			Email: strings.TrimSpace(in.Email),
			Role:  domain.RoleUser,
		},
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, "", time.Time{}, apperrors.NewValidationError("The email has already been taken.",
				apperrors.FieldError{Field: "email", Messages: []string{"The email has already been taken."}})
		}
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	return s.issue(&account.User)
}

// Login authenticates an account by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	account, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewInvalidCredentials("Unauthorized")
		}
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	if err := ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewInvalidCredentials("Unauthorized")
	}
	return s.issue(&account.User)
}

// Refresh issues a new token for the principal and revokes the presented one.
func (s *Service) Refresh(_ context.Context, principal *Principal) (string, time.Time, error) {
	token, exp, err := s.tokenMgr.GenerateToken(principal.User)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	s.tokenMgr.Revoke(principal.Claims)
	return token, exp, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(_ context.Context, principal *Principal) error {
	s.tokenMgr.Revoke(principal.Claims)
	return nil
}

// EnsureAdmin creates the administrator account if the email is unused.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	if existing, err := s.users.GetByEmail(ctx, email); err == nil {
		return &existing.User, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	account := &repository.Account{
		User:         domain.User{Name: name, Email: email, Role: domain.RoleAdmin},
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, account); err != nil {
		return nil, err
	}
	return &account.User, nil
}

func (s *Service) issue(user *domain.User) (*domain.User, string, time.Time, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}
