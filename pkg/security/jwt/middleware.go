package jwt

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/artem13815/accounts/pkg/auth"
)

const (
	identityLocalsKey = "identity"
	userIDLocalsKey   = "userId"
)

// IdentityFrom returns the identity attached by the auth middleware.
func IdentityFrom(c *fiber.Ctx) (auth.Identity, bool) {
	identity, ok := c.Locals(identityLocalsKey).(auth.Identity)
	return identity, ok
}

// NewAuthMiddleware returns a Fiber middleware that authenticates a request by
// its session token. The cookie is tried first and the Authorization header
// second; the first token that verifies wins, so a stale cookie does not hide
// a valid header. Any failure stops the chain; on success the resolved
// auth.Identity is stored in locals.
func NewAuthMiddleware(codec *Codec, resolver auth.IdentityResolver, cookie CookieConfig, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		candidates := tokenCandidates(c, cookie.name())
		if len(candidates) == 0 {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "not authorized, no token"})
		}
		var (
			subject string
			err     error
		)
		for _, tokenStr := range candidates {
			if subject, err = codec.Verify(tokenStr); err == nil {
				break
			}
		}
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "not authorized, token failed"})
		}
		identity, err := resolver.ResolveIdentity(c.Context(), subject)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "not authorized, user not found"})
			}
			log.WithError(err).WithField("subject", subject).Error("resolve identity")
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"message": "failed to authenticate"})
		}
		c.Locals(identityLocalsKey, identity)
		c.Locals(userIDLocalsKey, identity.UserID.String())
		return c.Next()
	}
}

// tokenCandidates lists the presented tokens in the order they are tried.
func tokenCandidates(c *fiber.Ctx, cookieName string) []string {
	var out []string
	if v := strings.TrimSpace(c.Cookies(cookieName)); v != "" {
		out = append(out, v)
	}
	if v := headerToken(c.Get(fiber.HeaderAuthorization)); v != "" {
		out = append(out, v)
	}
	return out
}

func headerToken(authHeader string) string {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return ""
	}
	// Support both "Bearer <token>" and "<token>" (no prefix).
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return authHeader
}

// RequireAdmin lets only admin identities through. It must be mounted after
// NewAuthMiddleware; without an identity the request fails as a server error.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"message": "identity missing: authentication middleware not applied"})
		}
		if !identity.IsAdmin {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"message": "not authorized as an admin"})
		}
		return c.Next()
	}
}
