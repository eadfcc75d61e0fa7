package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/myflix/movies-api/internal/auth"
	"github.com/myflix/movies-api/internal/metrics"
	"github.com/myflix/movies-api/internal/models"
	"github.com/myflix/movies-api/internal/store"
	apperrors "github.com/myflix/movies-api/pkg/errors"
)

const principalLocal = "principal"

// AuthMiddleware is the token gate. Every protected request passes through
// Authenticate before any handler runs: bearer extraction, token
// verification, then a subject-existence lookup. Tokens are not individually
// revocable, but a principal deleted after issuance fails the lookup, so its
// tokens stop authorizing even though the signature still verifies.
type AuthMiddleware struct {
	verifier auth.TokenVerifier
	users    auth.UserFinder
	logger   *logrus.Logger
}

func NewAuthMiddleware(verifier auth.TokenVerifier, users auth.UserFinder, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		users:    users,
		logger:   logger,
	}
}

// Authenticate validates the bearer token and attaches the resolved principal
// to the request. Rejections short-circuit with 401 before the handler.
func (a *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			metrics.RecordAuthOutcome("gate", "rejected")
			return unauthenticated(c, apperrors.CodeUnauthenticated, "Authorization header is required")
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			metrics.RecordAuthOutcome("gate", "rejected")
			return unauthenticated(c, apperrors.CodeUnauthenticated, "Authorization header must be a Bearer token")
		}

		tokenString := authHeader[len(bearerPrefix):]
		if tokenString == "" {
			metrics.RecordAuthOutcome("gate", "rejected")
			return unauthenticated(c, apperrors.CodeUnauthenticated, "Token is required")
		}

		claims, err := a.verifier.Verify(c.Context(), tokenString)
		if err != nil {
			metrics.RecordAuthOutcome("gate", "rejected")
			a.logger.WithError(err).WithField("path", c.Path()).Debug("Token validation failed")
			if errors.Is(err, auth.ErrTokenExpired) {
				return unauthenticated(c, apperrors.CodeUnauthenticated, "Token has expired")
			}
			return unauthenticated(c, apperrors.CodeUnauthenticated, "Token validation failed")
		}

		// The subject must still exist. Deregistration invalidates outstanding
		// tokens here, not at the signature check.
		user, err := a.users.FindByUsername(c.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				metrics.RecordAuthOutcome("gate", "rejected")
				a.logger.WithField("subject", claims.Subject).Debug("Token subject no longer exists")
				return unauthenticated(c, apperrors.CodeUnauthenticated, "Token validation failed")
			}
			metrics.RecordAuthOutcome("gate", "failed")
			a.logger.WithError(err).Error("Subject lookup failed")
			return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Could not verify credentials", err))
		}

		metrics.RecordAuthOutcome("gate", "authenticated")
		c.Locals(principalLocal, user)

		return c.Next()
	}
}

// RequireSelf authorizes routes that name a target username in their path:
// the resolved principal may only act on its own record. Mismatch is a
// permission error, distinct from an authentication failure.
func (a *AuthMiddleware) RequireSelf() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := GetPrincipal(c)
		if principal == nil {
			return unauthenticated(c, apperrors.CodeUnauthenticated, "Authentication required")
		}

		target := c.Params("username")
		if principal.Username != target {
			a.logger.WithFields(logrus.Fields{
				"principal": principal.Username,
				"target":    target,
			}).Warn("Permission denied")
			return respondError(c, apperrors.NewAppError(apperrors.CodePermissionDenied, "Permission denied", nil))
		}

		return c.Next()
	}
}

// GetPrincipal extracts the resolved principal from the request context
func GetPrincipal(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(principalLocal).(*models.User); ok {
		return user
	}
	return nil
}

// GetUsername extracts the resolved principal's username
func GetUsername(c *fiber.Ctx) string {
	if user := GetPrincipal(c); user != nil {
		return user.Username
	}
	return ""
}

func unauthenticated(c *fiber.Ctx, code apperrors.ErrorCode, message string) error {
	return respondError(c, apperrors.NewAppError(code, message, nil))
}

func respondError(c *fiber.Ctx, err *apperrors.AppError) error {
	return c.Status(err.HTTPStatus()).JSON(err.ToErrorResponse(c.Get("X-Request-ID")))
}
