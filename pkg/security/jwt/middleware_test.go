package jwt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"

	"github.com/artem13815/accounts/pkg/auth"
)

type stubResolver struct {
	identities map[string]auth.Identity
	err        error
}

func (s stubResolver) ResolveIdentity(_ context.Context, subject string) (auth.Identity, error) {
	if s.err != nil {
		return auth.Identity{}, s.err
	}
	identity, ok := s.identities[subject]
	if !ok {
		return auth.Identity{}, auth.ErrNotFound
	}
	return identity, nil
}

func newGateApp(t *testing.T, resolver auth.IdentityResolver, admin bool) (*fiber.App, *Codec) {
	t.Helper()
	codec, err := NewCodec("secret", "accounts", time.Hour)
	assert.NilError(t, err)
	logger, _ := logtest.NewNullLogger()

	app := fiber.New()
	handlers := []fiber.Handler{NewAuthMiddleware(codec, resolver, CookieConfig{}, logger)}
	if admin {
		handlers = append(handlers, RequireAdmin())
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return c.SendStatus(http.StatusTeapot)
		}
		return c.SendString(identity.UserID.String())
	})
	app.Get("/protected", handlers...)
	return app, codec
}

func doRequest(t *testing.T, app *fiber.App, setup func(*http.Request)) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if setup != nil {
		setup(req)
	}
	resp, err := app.Test(req)
	assert.NilError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware_CookieAndHeader(t *testing.T) {
	userID := uuid.New()
	resolver := stubResolver{identities: map[string]auth.Identity{userID.String(): {UserID: userID}}}
	app, codec := newGateApp(t, resolver, false)

	tok, err := codec.Issue(context.Background(), userID)
	assert.NilError(t, err)

	setups := map[string]func(*http.Request){
		"cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tok.Value}) },
		"bearer": func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok.Value) },
		"bare":   func(r *http.Request) { r.Header.Set("Authorization", tok.Value) },
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			status, body := doRequest(t, app, setup)
			assert.Equal(t, status, http.StatusOK)
			assert.Equal(t, body, userID.String())
		})
	}
}

func TestAuthMiddleware_InvalidCookieFallsBackToHeader(t *testing.T) {
	userID := uuid.New()
	resolver := stubResolver{identities: map[string]auth.Identity{userID.String(): {UserID: userID}}}
	app, codec := newGateApp(t, resolver, false)
	tok, err := codec.Issue(context.Background(), userID)
	assert.NilError(t, err)

	status, body := doRequest(t, app, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "expired-or-garbage"})
		r.Header.Set("Authorization", "Bearer "+tok.Value)
	})
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, body, userID.String())

	status, _ = doRequest(t, app, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "garbage"})
		r.Header.Set("Authorization", "Bearer also-garbage")
	})
	assert.Equal(t, status, http.StatusUnauthorized)
}

func TestAuthMiddleware_FailsClosed(t *testing.T) {
	userID := uuid.New()
	app, codec := newGateApp(t, stubResolver{identities: map[string]auth.Identity{}}, false)
	tok, err := codec.Issue(context.Background(), userID)
	assert.NilError(t, err)

	cases := map[string]func(*http.Request){
		"missing":      nil,
		"garbage":      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "garbage"}) },
		"user deleted": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tok.Value}) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			status, _ := doRequest(t, app, setup)
			assert.Equal(t, status, http.StatusUnauthorized)
		})
	}
}

func TestAuthMiddleware_ResolverFailure(t *testing.T) {
	app, codec := newGateApp(t, stubResolver{err: errors.New("db down")}, false)
	tok, err := codec.Issue(context.Background(), uuid.New())
	assert.NilError(t, err)

	status, _ := doRequest(t, app, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tok.Value})
	})
	assert.Equal(t, status, http.StatusInternalServerError)
}

func TestRequireAdmin(t *testing.T) {
	adminID, userID := uuid.New(), uuid.New()
	resolver := stubResolver{identities: map[string]auth.Identity{
		adminID.String(): {UserID: adminID, IsAdmin: true},
		userID.String():  {UserID: userID},
	}}
	app, codec := newGateApp(t, resolver, true)

	for id, want := range map[uuid.UUID]int{adminID: http.StatusOK, userID: http.StatusForbidden} {
		tok, err := codec.Issue(context.Background(), id)
		assert.NilError(t, err)
		status, _ := doRequest(t, app, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tok.Value})
		})
		assert.Equal(t, status, want)
	}
}

func TestRequireAdmin_WithoutIdentity(t *testing.T) {
	app := fiber.New()
	app.Get("/protected", RequireAdmin(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	status, _ := doRequest(t, app, nil)
	assert.Equal(t, status, http.StatusInternalServerError)
}

func TestSessionCookies(t *testing.T) {
	app := fiber.New()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	app.Get("/set", func(c *fiber.Ctx) error {
		SetSessionCookie(c, CookieConfig{}, auth.SessionToken{Value: "tok", ExpiresAt: expires})
		return c.SendStatus(http.StatusOK)
	})
	app.Get("/clear", func(c *fiber.Ctx) error {
		ClearSessionCookie(c, CookieConfig{})
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/set", nil))
	assert.NilError(t, err)
	cookies := resp.Cookies()
	assert.Equal(t, len(cookies), 1)
	assert.Equal(t, cookies[0].Name, DefaultCookieName)
	assert.Equal(t, cookies[0].Value, "tok")
	assert.Assert(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Expires.Unix(), expires.Unix())

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/clear", nil))
	assert.NilError(t, err)
	cookies = resp.Cookies()
	assert.Equal(t, len(cookies), 1)
	assert.Equal(t, cookies[0].Value, "")
	assert.Assert(t, cookies[0].HttpOnly)
	assert.Assert(t, cookies[0].Expires.Before(time.Now()))
}
