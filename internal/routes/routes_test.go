package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/myflix/movies-api/internal/auth"
	"github.com/myflix/movies-api/internal/config"
	"github.com/myflix/movies-api/internal/middleware"
	"github.com/myflix/movies-api/internal/models"
	"github.com/myflix/movies-api/internal/store"
)

// testAPI is the route surface wired against in-memory stores. The route
// shapes match Setup; the Redis-backed middlewares are left out so tests
// run without external services.
type testAPI struct {
	app    *fiber.App
	users  *store.MemoryUserStore
	movies *store.MemoryMovieStore
	issuer *auth.Issuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	jwtCfg := &config.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "myflix-api",
		TokenTTL: time.Hour,
	}

	issuer, err := auth.NewIssuer(jwtCfg)
	require.NoError(t, err)
	tokenVerifier, err := auth.NewTokenVerifier(jwtCfg, logger)
	require.NoError(t, err)

	users := store.NewMemoryUserStore()
	movies := store.NewMemoryMovieStore()

	gate := middleware.NewAuthMiddleware(tokenVerifier, users, logger)
	authHandler := NewAuthHandler(auth.NewCredentialVerifier(users, logger), issuer, logger)
	usersHandler := NewUsersHandler(users, issuer, logger)
	moviesHandler := NewMoviesHandler(movies, logger)

	app := fiber.New()

	app.Post("/users", usersHandler.Register)
	app.Post("/login", authHandler.Login)

	protected := app.Group("", gate.Authenticate())

	userRoutes := protected.Group("/users/:username", gate.RequireSelf())
	userRoutes.Get("/", usersHandler.Get)
	userRoutes.Put("/", usersHandler.Update)
	userRoutes.Delete("/", usersHandler.Delete)
	userRoutes.Post("/movies/:movieID", usersHandler.AddFavorite)
	userRoutes.Delete("/movies/:movieID", usersHandler.RemoveFavorite)

	movieRoutes := protected.Group("/movies")
	movieRoutes.Get("/", moviesHandler.List)
	movieRoutes.Get("/genre/:genreName", moviesHandler.GetGenre)
	movieRoutes.Get("/director/:directorName", moviesHandler.GetDirector)
	movieRoutes.Get("/:title", moviesHandler.GetByTitle)

	app.Use(notFoundHandler)

	return &testAPI{app: app, users: users, movies: movies, issuer: issuer}
}

// request sends a JSON request through the app. body may be nil; token is
// attached as a bearer token when non-empty.
func (api *testAPI) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := api.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

// register creates an account through the API and returns its token.
func (api *testAPI) register(t *testing.T, username, password string) string {
	t.Helper()

	resp := api.request(t, fiber.MethodPost, "/users", "", fiber.Map{
		"Username": username,
		"Password": password,
		"Email":    username + "@example.com",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var authResp models.AuthResponse
	decodeBody(t, resp, &authResp)
	require.NotEmpty(t, authResp.Token)
	return authResp.Token
}

func (api *testAPI) seedMovie(t *testing.T, movie models.Movie) {
	t.Helper()
	require.NoError(t, api.movies.Put(context.Background(), &movie))
}
