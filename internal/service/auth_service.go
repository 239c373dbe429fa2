package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

const invalidCredentials = "invalid credentials"

// AuthService authenticates credentials and issues tokens.
type AuthService struct {
	users    repository.UserRepository
	hasher   auth.PasswordHasher
	tokens   *auth.TokenManager
	denylist auth.Denylist
	logger   *zap.Logger

	// decoy is verified against when the email is unknown so both failure
	// paths cost one digest comparison.
	decoy string
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Store    repository.Store
	Hasher   auth.PasswordHasher
	Tokens   *auth.TokenManager
	Denylist auth.Denylist
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) (*AuthService, error) {
	decoy, err := deps.Hasher.Hash("decoy-password")
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:    deps.Store.Users(),
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		denylist: deps.Denylist,
		logger:   deps.Logger,
		decoy:    decoy,
	}, nil
}

// Authenticate checks email and password and returns the caller identity.
// Unknown email and wrong password fail with the same error.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInternalError(err)
		}
		s.hasher.Verify(password, s.decoy)
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	return &domain.Identity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

// Login authenticates and issues a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Identity, string, time.Time, error) {
	identity, err := s.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Info("login rejected", zap.Error(err))
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.tokens.Issue(*identity)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("login succeeded", zap.String("user_id", identity.UserID), zap.String("role", string(identity.Role)))
	return identity, token, exp, nil
}

// Logout revokes the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.denylist == nil || claims == nil || claims.ID == "" {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
