package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"techshop/internal/domain"
	applog "techshop/internal/log"
	"techshop/internal/services"
)

// Authenticate attaches the caller's principal from a bearer token or the
// sid session cookie. Anonymous requests pass through.
func Authenticate(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw, ok := bearer(c); ok {
			p, err := auth.TokenPrincipal(c.UserContext(), raw)
			switch {
			case errors.Is(err, services.ErrBadToken):
				applog.Security(c, "auth.token.invalid", nil)
			case err != nil:
				applog.Error(c, "auth.token.lookup", err, nil)
			default:
				c.Locals(applog.PrincipalKey, p)
			}
			return c.Next()
		}
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				c.Locals(applog.PrincipalKey, &domain.Principal{UserID: u.ID, Email: u.Email, Role: u.Role})
			}
		}
		return c.Next()
	}
}

// RequireRole rejects callers below role with a 403 envelope.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := principal(c)
		if p == nil || !p.Role.Allows(role) {
			fields := map[string]any{"required": role.String()}
			if p != nil {
				fields["role"] = p.Role.String()
			}
			applog.Security(c, "access.denied", fields)
			return c.Status(fiber.StatusForbidden).JSON(envelope{
				Error:   "unauthorized",
				Message: role.String() + " role required",
			})
		}
		return c.Next()
	}
}

func RequireUser() fiber.Handler  { return RequireRole(domain.RoleUser) }
func RequireAdmin() fiber.Handler { return RequireRole(domain.RoleAdmin) }

func principal(c *fiber.Ctx) *domain.Principal {
	p, _ := c.Locals(applog.PrincipalKey).(*domain.Principal)
	return p
}

func bearer(c *fiber.Ctx) (string, bool) {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:]), true
	}
	return "", false
}
