package routes

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/sirupsen/logrus"

	"github.com/myflix/movies-api/internal/auth"
	"github.com/myflix/movies-api/internal/config"
	"github.com/myflix/movies-api/internal/metrics"
	"github.com/myflix/movies-api/internal/middleware"
	"github.com/myflix/movies-api/internal/store"
	apperrors "github.com/myflix/movies-api/pkg/errors"
)

var validate = validator.New()

// Setup configures all API routes. The route shapes match the original myFlix
// web clients: /users, /login and /movies live at the root, not under a
// version prefix.
func Setup(app *fiber.App, cfg *config.Config, logger *logrus.Logger, middlewareManager *middleware.Manager, users store.UserStore, movies store.MovieStore) {
	issuer, err := auth.NewIssuer(&cfg.JWT)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create token issuer")
	}

	verifier := auth.NewCredentialVerifier(users, logger)

	authHandler := NewAuthHandler(verifier, issuer, logger)
	usersHandler := NewUsersHandler(users, issuer, logger)
	moviesHandler := NewMoviesHandler(movies, logger)

	// System endpoints (no auth required)
	app.Get("/healthz", healthCheck)
	app.Get("/readyz", readinessCheck(middlewareManager))
	app.Get("/version", versionHandler)
	app.Get(cfg.Observability.MetricsPath, metrics.PrometheusHandler())
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Welcome message and static documentation
	app.Get("/", welcome)
	app.Static("/public", cfg.Server.StaticDir)

	// Global middleware for API routes
	app.Use(metrics.HTTPMetricsMiddleware())
	app.Use(middlewareManager.ErrorLogger.Handle())
	app.Use(middlewareManager.Idempotency.Handle())

	rateLimit := middlewareManager.RateLimit.Handle()

	// Public endpoints, rate limited by client IP: login and registration
	// are the brute-force surface
	app.Post("/users", rateLimit, usersHandler.Register)
	app.Post("/login", rateLimit, authHandler.Login)

	// Protected endpoints: the token gate runs first so the rate limiter
	// can key its buckets by the resolved username
	protected := app.Group("", middlewareManager.Auth.Authenticate(), rateLimit)

	userRoutes := protected.Group("/users/:username", middlewareManager.Auth.RequireSelf())
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

	// 404 handler
	app.Use(notFoundHandler)
}

// welcome greets unauthenticated visitors at the root
func welcome(c *fiber.Ctx) error {
	return c.SendString("Welcome! You are visiting a movie-lover place!")
}

// healthCheck returns the health status of the service
// @Summary Health check
// @Description Check if the service is healthy
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Router /healthz [get]
func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "movies-api",
	})
}

// readinessCheck checks if the service is ready to accept traffic
// @Summary Readiness check
// @Description Check if the service is ready to accept traffic
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Ready"
// @Failure 503 {object} map[string]interface{} "Not ready"
// @Router /readyz [get]
func readinessCheck(middlewareManager *middleware.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		redisHealthCheck := middleware.RedisHealthCheck(middlewareManager.RedisClient, middlewareManager.Logger)
		if err := redisHealthCheck(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":    "not ready",
				"reason":    "redis unavailable",
				"error":     err.Error(),
				"timestamp": time.Now().UTC(),
			})
		}

		return c.JSON(fiber.Map{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "movies-api",
		})
	}
}

// versionHandler returns version information
// @Summary Version information
// @Description Get service version and build information
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Version info"
// @Router /version [get]
func versionHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "movies-api",
		"version": getVersion(),
		"commit":  getCommit(),
		"built":   getBuildTime(),
	})
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	appErr := apperrors.NewAppError(apperrors.CodeNotFound, "The requested resource was not found", nil)
	return respondError(c, appErr)
}

func respondError(c *fiber.Ctx, err *apperrors.AppError) error {
	return c.Status(err.HTTPStatus()).JSON(err.ToErrorResponse(c.Get("X-Request-ID")))
}

// validationMessages flattens validator errors into field-level messages
func validationMessages(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		switch ve.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", ve.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", ve.Field(), ve.Param()))
		case "alphanum":
			messages = append(messages, fmt.Sprintf("%s contains non-alphanumeric characters", ve.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s is not a valid email address", ve.Field()))
		case "datetime":
			messages = append(messages, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", ve.Field()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", ve.Field()))
		}
	}
	return messages
}

// Helper functions for version info, set at build time via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func getVersion() string   { return version }
func getCommit() string    { return commit }
func getBuildTime() string { return buildTime }
