package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

type fixture struct {
	store    *repository.MemoryStore
	hasher   auth.PasswordHasher
	policy   *auth.Policy
	users    *UserService
	tickets  *TicketService
	comments *CommentService

	user    domain.Actor
	support domain.Actor
	manager domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	policy, err := auth.NewPolicy()
	require.NoError(t, err)

	f := &fixture{
		store:  repository.NewMemoryStore(),
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
		policy: policy,
	}
	logger := zap.NewNop()
	f.users = NewUserService(f.store, f.hasher, logger)
	f.tickets = NewTicketService(f.store, policy, logger)
	f.comments = NewCommentService(f.store, policy, logger)

	f.user = f.register(t, "user@example.com", domain.RoleUser)
	f.support = f.register(t, "support@example.com", domain.RoleSupport)
	f.manager = f.register(t, "manager@example.com", domain.RoleManager)
	return f
}

func (f *fixture) register(t *testing.T, email string, role domain.Role) domain.Actor {
	t.Helper()
	user, err := f.users.Register(context.Background(), UserRegisterInput{
		Name:     email,
		Email:    email,
		Password: "s3cret",
		Role:     string(role),
	})
	require.NoError(t, err)
	return domain.Actor{ID: user.ID, Role: user.Role}
}

func (f *fixture) openTicket(t *testing.T, creator domain.Actor) *domain.TicketView {
	t.Helper()
	view, err := f.tickets.Create(context.Background(), creator, TicketCreateInput{Title: "VPN down"})
	require.NoError(t, err)
	return view
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

// failingLogStore rejects every status log append so rollback can be observed.
type failingLogStore struct {
	repository.Store
}

var errLogUnavailable = errors.New("status log unavailable")

func (s failingLogStore) StatusLogs() repository.StatusLogRepository {
	return failingLogRepository{s.Store.StatusLogs()}
}

func (s failingLogStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(failingLogStore{tx})
	})
}

type failingLogRepository struct {
	repository.StatusLogRepository
}

func (failingLogRepository) Append(context.Context, *domain.StatusLog) error {
	return errLogUnavailable
}
