package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/sla-service/internal/domain"
	apperrors "github.com/opsdesk/sla-service/pkg/util"
)

var roleRank = map[domain.ClientRole]int{
	domain.ClientRoleViewer:   1,
	domain.ClientRoleOperator: 2,
	domain.ClientRoleAdmin:    3,
}

// Allows reports whether role grants at least min.
func Allows(role, min domain.ClientRole) bool {
	return roleRank[role] > 0 && roleRank[role] >= roleRank[min]
}

// RequireRole ensures the caller holds min or a stronger role.
func RequireRole(min domain.ClientRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !Allows(principal.Role, min) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
