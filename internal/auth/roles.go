package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// SessionView is the helpdesk session as seen by route guards.
type SessionView interface {
	CurrentMember() *domain.Member
}

// RequireSignedIn ensures the agent holds a helpdesk session.
func RequireSignedIn(session SessionView) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if session.CurrentMember() == nil {
			return apperrors.NewUnauthorized("helpdesk session not signed in")
		}
		return c.Next()
	}
}

// RequireRole ensures the helpdesk member has one of the allowed roles.
func RequireRole(session SessionView, allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		member := session.CurrentMember()
		if member == nil {
			return apperrors.NewUnauthorized("helpdesk session not signed in")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[member.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the local caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
