package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"gravado/internal/domain"
	applog "gravado/internal/log"
	"gravado/internal/services"
)

// ensureSID returns the session id cookie, minting one on first touch.
// The same cookie keys anonymous carts and authenticated sessions.
func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return sid
}

// AttachUser resolves the session's user into Locals when present and
// always lets the request through. Anonymous cart routes depend on it.
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := ensureSID(c)
		if u, err := auth.CurrentUser(sid); err == nil && u != nil {
			c.Locals("user", u)
		}
		return c.Next()
	}
}

func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := ensureSID(c)
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireElevated admits controllers and admins.
func RequireElevated(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := ensureSID(c)
		u, err := auth.CurrentUser(sid)
		if err != nil || !u.Elevated() {
			applog.Security(c, "access.denied.elevated", map[string]any{"sid": sid})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		c.Locals("user", u)
		return c.Next()
	}
}

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := ensureSID(c)
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil || u.Role != domain.RoleAdmin {
			applog.Security(c, "access.denied.admin", map[string]any{"sid": sid})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		c.Locals("user", u)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

// identity builds the cart owner key from the request: the user when
// authenticated, otherwise the session cookie.
func identity(c *fiber.Ctx) services.Identity {
	return services.Identity{User: currentUser(c), Token: ensureSID(c)}
}
