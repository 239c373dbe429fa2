package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

func newAuthService(t *testing.T, f *fixture, denylist auth.Denylist) *AuthService {
	t.Helper()
	tokens := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:             "test-secret",
		Issuer:                "ticket-tracker",
		Audience:              "ticket-tracker-api",
		AccessTokenTTLMinutes: 5,
	})
	svc, err := NewAuthService(AuthDependencies{
		Store:    f.store,
		Hasher:   f.hasher,
		Tokens:   tokens,
		Denylist: denylist,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return svc
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f, nil)
	ctx := context.Background()

	identity, err := svc.Authenticate(ctx, "manager@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, f.manager.ID, identity.UserID)
	assert.Equal(t, domain.RoleManager, identity.Role)
	assert.Equal(t, "manager@example.com", identity.Email)

	_, unknownErr := svc.Authenticate(ctx, "nobody@example.com", "s3cret")
	_, wrongErr := svc.Authenticate(ctx, "manager@example.com", "wrong")
	requireCode(t, unknownErr, apperrors.CodeUnauthorized)
	requireCode(t, wrongErr, apperrors.CodeUnauthorized)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	_, err = svc.Authenticate(ctx, "", "s3cret")
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.Authenticate(ctx, "manager@example.com", "")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f, nil)

	identity, token, expiresAt, err := svc.Login(context.Background(), "support@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.TokenManager().Parse(token)
	require.NoError(t, err)
	assert.Equal(t, identity.UserID, claims.Subject)
	assert.Equal(t, domain.RoleSupport, claims.Role)
	assert.NotEmpty(t, claims.ID)

	_, token, _, err = svc.Login(context.Background(), "support@example.com", "nope")
	requireCode(t, err, apperrors.CodeUnauthorized)
	assert.Empty(t, token)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	denylist := auth.NewRedisDenylist(client)
	svc := newAuthService(t, f, denylist)
	ctx := context.Background()

	_, token, _, err := svc.Login(ctx, "user@example.com", "s3cret")
	require.NoError(t, err)
	claims, err := svc.TokenManager().Parse(token)
	require.NoError(t, err)

	revoked, err := denylist.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Logout(ctx, claims))

	revoked, err = denylist.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogoutWithoutDenylist(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f, nil)

	_, token, _, err := svc.Login(context.Background(), "user@example.com", "s3cret")
	require.NoError(t, err)
	claims, err := svc.TokenManager().Parse(token)
	require.NoError(t, err)

	assert.NoError(t, svc.Logout(context.Background(), claims))
}

func TestAuthenticateMatchesEmailExactly(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f, nil)
	ctx := context.Background()

	digest, err := f.hasher.Hash("pw")
	require.NoError(t, err)
	bob := domain.User{Name: "Bob", Email: "Bob@Example.com", PasswordHash: digest, Role: domain.RoleUser}
	require.NoError(t, f.store.Users().Create(ctx, &bob))

	identity, err := svc.Authenticate(ctx, "Bob@Example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, identity.UserID)

	_, err = svc.Authenticate(ctx, "bob@example.com", "pw")
	requireCode(t, err, apperrors.CodeUnauthorized)
}
