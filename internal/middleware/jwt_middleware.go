package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthCookieName is the HTTP-only cookie carrying the session token.
const AuthCookieName = "access_token"

const actorKey = "actor"

// Authenticator resolves a session token into an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Actor, error)
}

// tokenFromRequest reads the token from the session cookie, falling back to
// an "Authorization: Bearer <token>" header.
func tokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(AuthCookieName); token != "" {
		return token
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SetAuthCookie stores token in the session cookie.
func SetAuthCookie(c *fiber.Ctx, token string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// ClearAuthCookie expires the session cookie.
func ClearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// AuthRequired is a Fiber middleware that rejects requests without a valid token.
func AuthRequired(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFromRequest(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}

		actor, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if !errors.Is(err, apperr.ErrAuth) {
				log.Error().Err(err).Msg("token authentication failed")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Internal server error",
				})
			}
			log.Debug().Err(err).Str("path", c.Path()).Msg("rejected token")
			ClearAuthCookie(c)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": apperr.Message(err, "Invalid or expired token"),
			})
		}

		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// OptionalAuth attaches the actor when a valid token is present and lets
// everyone else through as a guest.
func OptionalAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := tokenFromRequest(c); token != "" {
			if actor, err := auth.Authenticate(c.UserContext(), token); err == nil {
				c.Locals(actorKey, actor)
			}
		}
		return c.Next()
	}
}

// RequireRole only lets actors holding one of roles through. It must run after AuthRequired.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ActorFrom(c).HasRole(roles...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "You do not have permission to perform this action",
			})
		}
		return c.Next()
	}
}

// ActorFrom returns the authenticated actor of the request, or nil for guests.
func ActorFrom(c *fiber.Ctx) *services.Actor {
	actor, _ := c.Locals(actorKey).(*services.Actor)
	return actor
}
