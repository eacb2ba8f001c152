package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-portal/internal/domain"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

// RequireRole ensures the principal holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized(unauthenticatedMessage)
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("This action is unauthorized.")
		}
		return c.Next()
	}
}

// CanActFor reports whether the principal may manage resources owned by userID.
func CanActFor(principal *Principal, userID int64) bool {
	if principal == nil || principal.User == nil {
		return false
	}
	return principal.User.ID == userID || principal.User.IsAdmin()
}
