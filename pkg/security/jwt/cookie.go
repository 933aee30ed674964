package jwt

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/accounts/pkg/auth"
)

// DefaultCookieName is where browsers carry the session token.
const DefaultCookieName = "jwt"

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite string
}

func (cfg CookieConfig) name() string {
	if cfg.Name == "" {
		return DefaultCookieName
	}
	return cfg.Name
}

func (cfg CookieConfig) sameSite() string {
	if cfg.SameSite == "" {
		return fiber.CookieSameSiteStrictMode
	}
	return cfg.SameSite
}

// SetSessionCookie hands the token to the client as an HttpOnly cookie that
// expires together with the token.
func SetSessionCookie(c *fiber.Ctx, cfg CookieConfig, token auth.SessionToken) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.name(),
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.sameSite(),
	})
}

// ClearSessionCookie is the logout path. Tokens are stateless: this only tells
// the client to drop its copy, a captured token stays valid until it expires.
func ClearSessionCookie(c *fiber.Ctx, cfg CookieConfig) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.name(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.sameSite(),
	})
}
