package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myflix/movies-api/internal/auth"
	"github.com/myflix/movies-api/internal/config"
	"github.com/myflix/movies-api/internal/store"
)

func readResponse(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func TestRateLimit_KeyedByPrincipal(t *testing.T) {
	cfg := &config.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "myflix-api",
		TokenTTL: time.Hour,
	}
	issuer, err := auth.NewIssuer(cfg)
	require.NoError(t, err)
	verifier, err := auth.NewTokenVerifier(cfg, logrus.New())
	require.NoError(t, err)

	users := store.NewMemoryUserStore()
	gate := NewAuthMiddleware(verifier, users, logrus.New())
	limiter := NewRateLimitMiddleware(&config.RateLimitConfig{Enabled: true}, nil, logrus.New())

	app := fiber.New()
	echoKey := func(c *fiber.Ctx) error {
		key, keyType := limiter.generateKey(c)
		return c.SendString(keyType + "|" + key)
	}
	// Mirrors the route table: the limiter keys after the gate on
	// protected routes, before it on public ones
	app.Get("/public", echoKey)
	app.Get("/protected", gate.Authenticate(), echoKey)

	registerUser(t, users, "alice123")
	token, _, err := issuer.Issue("alice123")
	require.NoError(t, err)

	resp := doRequest(t, app, fiber.MethodGet, "/protected", "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "user|ratelimit:user:alice123", readResponse(t, resp))

	resp = doRequest(t, app, fiber.MethodGet, "/public", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readResponse(t, resp), "ip|ratelimit:ip:")
}

func TestRateLimit_ClientIPFromForwardedHeader(t *testing.T) {
	limiter := NewRateLimitMiddleware(&config.RateLimitConfig{Enabled: true}, nil, logrus.New())

	app := fiber.New()
	app.Get("/key", func(c *fiber.Ctx) error {
		_, _ = limiter.generateKey(c)
		return c.SendString(limiter.getClientIP(c))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/key", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", readResponse(t, resp))
}
