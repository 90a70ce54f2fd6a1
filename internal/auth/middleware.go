package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller as asserted by the external
// auth collaborator: an opaque actor reference plus a role.
type Principal struct {
	ActorRef string
	Role     domain.Role
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewNotAuthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewNotAuthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewNotAuthenticated("invalid token")
	}
	if claims.ActorRef == "" {
		return apperrors.NewNotAuthenticated("token missing subject")
	}

	c.Locals(principalKey, &Principal{ActorRef: claims.ActorRef, Role: claims.Role})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
