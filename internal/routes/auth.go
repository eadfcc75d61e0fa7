package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/myflix/movies-api/internal/auth"
	"github.com/myflix/movies-api/internal/metrics"
	"github.com/myflix/movies-api/internal/models"
	apperrors "github.com/myflix/movies-api/pkg/errors"
)

// AuthHandler handles the login endpoint
type AuthHandler struct {
	verifier *auth.CredentialVerifier
	issuer   *auth.Issuer
	logger   *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(verifier *auth.CredentialVerifier, issuer *auth.Issuer, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		verifier: verifier,
		issuer:   issuer,
		logger:   logger,
	}
}

// Login handles user login
// @Summary User login
// @Description Verify credentials and return a signed identity token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} errors.ErrorResponse "Malformed request"
// @Failure 401 {object} errors.ErrorResponse "Invalid credentials"
// @Failure 500 {object} errors.ErrorResponse "Internal error"
// @Router /login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid request body", err))
	}

	if err := validate.Struct(&req); err != nil {
		return respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Username and Password are required", nil))
	}

	user, err := h.verifier.Verify(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.RecordAuthOutcome("verifier", "rejected")
			// One message for unknown username and wrong password alike
			return respondError(c, apperrors.NewAppError(apperrors.CodeInvalidCredentials, "Invalid username or password", nil))
		}
		metrics.RecordAuthOutcome("verifier", "failed")
		h.logger.WithError(err).Error("Credential verification failed")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Could not verify credentials", err))
	}

	token, expiresIn, err := h.issuer.Issue(user.Username)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token")
		return respondError(c, apperrors.NewAppError(apperrors.CodeInternalError, "Failed to generate token", err))
	}

	metrics.RecordAuthOutcome("verifier", "authenticated")
	h.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User logged in")

	return c.JSON(models.AuthResponse{
		User:      user,
		Token:     token,
		ExpiresIn: expiresIn,
	})
}
