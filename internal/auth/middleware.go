package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/opsdesk/sla-service/internal/domain"
	apperrors "github.com/opsdesk/sla-service/pkg/util"
)

const principalKey = "auth_principal"

type principalCtxKey struct{}

// Principal represents the authenticated API client.
type Principal struct {
	ClientID string
	Role     domain.ClientRole
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. The principal is
// stored both in fiber locals and in the request's user context.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return apperrors.NewUnauthorized("missing or malformed bearer token")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(token))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.NewUnauthorized("token expired")
	}
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{ClientID: claims.Subject, Role: claims.Role}
	c.Locals(principalKey, principal)
	c.SetUserContext(ContextWithPrincipal(c.UserContext(), principal))
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated client of a request.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}

// ContextWithPrincipal attaches p to ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the principal attached by ContextWithPrincipal.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return principal, ok && principal != nil
}
