package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"license-binding-server/internal/service"
	"license-binding-server/internal/util"
)

// Context locals set by Auth.
const (
	LocalUsername = "username"
	LocalAdmin    = "admin"
	LocalClaims   = "claims"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "session"

// Auth accepts a bearer token or the session cookie. Rejected requests are
// reported as UNAUTHORIZED_ACCESS.
func Auth(tokens *util.TokenManager, notifier service.Notifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			raw = c.Cookies(SessionCookie)
		}
		if raw == "" {
			return unauthorized(c, notifier, "authentication required")
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			return unauthorized(c, notifier, "invalid or expired session")
		}

		c.Locals(LocalUsername, claims.Username)
		c.Locals(LocalAdmin, claims.Admin)
		c.Locals(LocalClaims, claims)
		return c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if admin, _ := c.Locals(LocalAdmin).(bool); !admin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "administrator access required",
			})
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated username, or "" outside Auth.
func CurrentUser(c *fiber.Ctx) string {
	username, _ := c.Locals(LocalUsername).(string)
	return username
}

func CurrentClaims(c *fiber.Ctx) *util.Claims {
	claims, _ := c.Locals(LocalClaims).(*util.Claims)
	return claims
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func unauthorized(c *fiber.Ctx, notifier service.Notifier, msg string) error {
	if notifier != nil {
		notifier.Notify(service.NotifyUnauthorized,
			fmt.Sprintf("unauthenticated %s %s", c.Method(), c.Path()), c.IP())
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
	})
}
