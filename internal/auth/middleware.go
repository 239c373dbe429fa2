package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Actor  domain.Actor
	Claims *Claims
}

// AuthMiddleware validates bearer tokens and resolves the caller.
type AuthMiddleware struct {
	tokens   *TokenManager
	denylist Denylist
	logger   *zap.Logger
}

// NewAuthMiddleware constructs middleware. denylist may be nil when revocation is disabled.
func NewAuthMiddleware(tokens *TokenManager, denylist Denylist, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, denylist: denylist, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	if m.denylist != nil && claims.ID != "" {
		revoked, err := m.denylist.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			m.logger.Warn("token denylist lookup failed", zap.Error(err))
			return apperrors.NewUnauthorized("unable to verify token")
		}
		if revoked {
			return apperrors.NewUnauthorized("token revoked")
		}
	}

	c.Locals(principalKey, &Principal{Actor: claims.Actor(), Claims: claims})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
