package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"license-binding-server/internal/service"
	"license-binding-server/internal/util"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(eventType, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func newAuthApp(t *testing.T) (*fiber.App, *util.TokenManager, *recordingNotifier) {
	t.Helper()
	tokens, err := util.NewTokenManager("middleware-secret", time.Hour)
	require.NoError(t, err)
	notifier := &recordingNotifier{}

	app := fiber.New()
	app.Get("/me", Auth(tokens, notifier), func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c))
	})
	app.Get("/admin", Auth(tokens, notifier), AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, tokens, notifier
}

func TestAuth(t *testing.T) {
	app, tokens, notifier := newAuthApp(t)

	userToken, err := tokens.GenerateToken("alice", false)
	require.NoError(t, err)
	adminToken, err := tokens.GenerateToken("admin", true)
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		header     string
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{name: "no_credentials", path: "/me", wantStatus: fiber.StatusUnauthorized},
		{name: "malformed_header", path: "/me", header: "Token " + userToken, wantStatus: fiber.StatusUnauthorized},
		{name: "bad_token", path: "/me", header: "Bearer nope", wantStatus: fiber.StatusUnauthorized},
		{name: "bearer", path: "/me", header: "Bearer " + userToken, wantStatus: fiber.StatusOK, wantBody: "alice"},
		{name: "cookie", path: "/me", cookie: userToken, wantStatus: fiber.StatusOK, wantBody: "alice"},
		{name: "admin_route_as_user", path: "/admin", header: "Bearer " + userToken, wantStatus: fiber.StatusForbidden},
		{name: "admin_route_as_admin", path: "/admin", header: "Bearer " + adminToken, wantStatus: fiber.StatusOK, wantBody: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}

	assert.Equal(t, []string{service.NotifyUnauthorized, service.NotifyUnauthorized, service.NotifyUnauthorized}, notifier.events)
}

func TestAuthRejectsRevokedToken(t *testing.T) {
	app, tokens, _ := newAuthApp(t)
	token, err := tokens.GenerateToken("alice", false)
	require.NoError(t, err)
	claims, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	tokens.RevokeToken(claims)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))
	app := fiber.New()
	app.Get("/", rl.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	want := []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}
	for i, status := range want {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, "request %d", i)
		if status == fiber.StatusTooManyRequests {
			assert.NotEmpty(t, resp.Header.Get("Retry-After"))
		}
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	app := fiber.New()
	app.Get("/", rl.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}
