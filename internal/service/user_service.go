package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// UserService manages the account directory.
type UserService struct {
	store  repository.Store
	hasher auth.PasswordHasher
	logger *zap.Logger
}

// UserRegisterInput carries the fields of a new account.
type UserRegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// NewUserService constructs the service.
func NewUserService(store repository.Store, hasher auth.PasswordHasher, logger *zap.Logger) *UserService {
	return &UserService{store: store, hasher: hasher, logger: logger}
}

// Register creates an account. A blank role registers a USER.
func (s *UserService) Register(ctx context.Context, input UserRegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}

	role := domain.RoleUser
	if input.Role != "" {
		parsed, ok := domain.ParseRole(strings.ToUpper(strings.TrimSpace(input.Role)))
		if !ok {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
		}
		role = parsed
	}

	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: digest,
		Role:         role,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		case errors.Is(err, repository.ErrNotFound):
			// the roles table has no row for this role
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(role)})
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// List returns every account in registration order.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}
