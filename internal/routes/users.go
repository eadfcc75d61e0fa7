package routes

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/myflix/movies-api/internal/auth"
	"github.com/myflix/movies-api/internal/middleware"
	"github.com/myflix/movies-api/internal/models"
	"github.com/myflix/movies-api/internal/store"
	apperrors "github.com/myflix/movies-api/pkg/errors"
)

// UsersHandler handles registration, profile and favorite-list endpoints
type UsersHandler struct {
	users  store.UserStore
	issuer *auth.Issuer
	logger *logrus.Logger
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(users store.UserStore, issuer *auth.Issuer, logger *logrus.Logger) *UsersHandler {
	return &UsersHandler{
		users:  users,
		issuer: issuer,
		logger: logger,
	}
}

// Register handles user registration
// @Summary User registration
// @Description Register a new user and return it with an identity token
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration data"
// @Success 201 {object} models.AuthResponse
// @Failure 409 {object} errors.ErrorResponse "Username already exists"
// @Failure 422 {object} errors.ErrorResponse "Validation failure"
// @Failure 500 {object} errors.ErrorResponse "Internal error"
// @Router /users [post]
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid request body", err))
	}

	if err := validate.Struct(&req); err != nil {
		return respondError(c, apperrors.NewValidationError(validationMessages(err)))
	}

	if _, err := h.users.FindByUsername(c.Context(), req.Username); err == nil {
		return respondError(c, apperrors.NewAppError(apperrors.CodeUsernameExists, req.Username+" already exists", nil))
	} else if !errors.Is(err, store.ErrNotFound) {
		h.logger.WithError(err).Error("Username lookup failed")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to create user", err))
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		return respondError(c, apperrors.NewAppError(apperrors.CodeInternalError, "Failed to process password", err))
	}

	now := time.Now().UTC()
	user := &models.User{
		UserID:       uuid.New().String(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Email:        req.Email,
		BirthDate:    req.BirthDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Create(c.Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return respondError(c, apperrors.NewAppError(apperrors.CodeUsernameExists, req.Username+" already exists", nil))
		}
		h.logger.WithError(err).Error("Failed to create user")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to create user", err))
	}

	token, expiresIn, err := h.issuer.Issue(user.Username)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token")
		return respondError(c, apperrors.NewAppError(apperrors.CodeInternalError, "Failed to generate token", err))
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User registered")

	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		User:      user,
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Get handles profile reads
// @Summary Get own profile
// @Description Return the authenticated user's record
// @Tags Users
// @Produce json
// @Security Bearer
// @Param username path string true "Username"
// @Success 200 {object} models.User
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Failure 403 {object} errors.ErrorResponse "Permission denied"
// @Router /users/{username} [get]
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	// The gate already resolved the principal from the store this request
	return c.JSON(middleware.GetPrincipal(c))
}

// Update handles profile updates
// @Summary Update own profile
// @Description Replace the authenticated user's profile fields
// @Tags Users
// @Accept json
// @Produce json
// @Security Bearer
// @Param username path string true "Username"
// @Param request body models.UpdateUserRequest true "Updated profile"
// @Success 200 {object} models.User
// @Failure 403 {object} errors.ErrorResponse "Permission denied"
// @Failure 409 {object} errors.ErrorResponse "Username already exists"
// @Failure 422 {object} errors.ErrorResponse "Validation failure"
// @Router /users/{username} [put]
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req models.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid request body", err))
	}

	if err := validate.Struct(&req); err != nil {
		return respondError(c, apperrors.NewValidationError(validationMessages(err)))
	}

	principal := middleware.GetPrincipal(c)

	// Renaming requires the new username to be free
	if req.Username != principal.Username {
		if _, err := h.users.FindByUsername(c.Context(), req.Username); err == nil {
			return respondError(c, apperrors.NewAppError(apperrors.CodeUsernameExists, req.Username+" already exists", nil))
		} else if !errors.Is(err, store.ErrNotFound) {
			h.logger.WithError(err).Error("Username lookup failed")
			return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to update user", err))
		}
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		return respondError(c, apperrors.NewAppError(apperrors.CodeInternalError, "Failed to process password", err))
	}

	updated := &models.User{
		UserID:         principal.UserID,
		Username:       req.Username,
		PasswordHash:   passwordHash,
		Email:          req.Email,
		BirthDate:      req.BirthDate,
		FavoriteMovies: principal.FavoriteMovies,
		CreatedAt:      principal.CreatedAt,
		UpdatedAt:      time.Now().UTC(),
	}

	if err := h.users.Update(c.Context(), updated); err != nil {
		// The store enforces username uniqueness transactionally; the
		// earlier lookup is only a fast path
		if errors.Is(err, store.ErrAlreadyExists) {
			return respondError(c, apperrors.NewAppError(apperrors.CodeUsernameExists, req.Username+" already exists", nil))
		}
		h.logger.WithError(err).Error("Failed to update user")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to update user", err))
	}

	h.logger.WithField("username", updated.Username).Info("User updated")

	return c.JSON(updated)
}

// Delete handles self-service deregistration
// @Summary Delete own account
// @Description Remove the authenticated user's record. Outstanding tokens stop
// @Description authorizing once the record is gone.
// @Tags Users
// @Produce json
// @Security Bearer
// @Param username path string true "Username"
// @Success 200 {object} map[string]interface{} "Deleted"
// @Failure 403 {object} errors.ErrorResponse "Permission denied"
// @Router /users/{username} [delete]
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	principal := middleware.GetPrincipal(c)

	if err := h.users.Delete(c.Context(), principal.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, apperrors.NewAppError(apperrors.CodeNotFound, principal.Username+" was not found", nil))
		}
		h.logger.WithError(err).Error("Failed to delete user")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to delete user", err))
	}

	h.logger.WithField("username", principal.Username).Info("User deleted")

	return c.JSON(fiber.Map{
		"message": principal.Username + " was deleted",
	})
}

// AddFavorite adds a movie to the user's favorite list
// @Summary Add favorite movie
// @Description Add a movie to the authenticated user's favorite set
// @Tags Users
// @Produce json
// @Security Bearer
// @Param username path string true "Username"
// @Param movieID path string true "Movie ID"
// @Success 200 {object} models.User
// @Failure 403 {object} errors.ErrorResponse "Permission denied"
// @Router /users/{username}/movies/{movieID} [post]
func (h *UsersHandler) AddFavorite(c *fiber.Ctx) error {
	return h.updateFavorites(c, h.users.AddFavorite, "Favorite added")
}

// RemoveFavorite removes a movie from the user's favorite list
// @Summary Remove favorite movie
// @Description Remove a movie from the authenticated user's favorite set
// @Tags Users
// @Produce json
// @Security Bearer
// @Param username path string true "Username"
// @Param movieID path string true "Movie ID"
// @Success 200 {object} models.User
// @Failure 403 {object} errors.ErrorResponse "Permission denied"
// @Router /users/{username}/movies/{movieID} [delete]
func (h *UsersHandler) RemoveFavorite(c *fiber.Ctx) error {
	return h.updateFavorites(c, h.users.RemoveFavorite, "Favorite removed")
}

func (h *UsersHandler) updateFavorites(c *fiber.Ctx, op func(ctx context.Context, userID, movieID string) (*models.User, error), logMsg string) error {
	principal := middleware.GetPrincipal(c)
	// Params are unsafe views into the pooled request buffer; this one is
	// persisted, so it must be copied before the buffer is reused
	movieID := utils.CopyString(c.Params("movieID"))
	if movieID == "" {
		return respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Movie ID is required", nil))
	}

	user, err := op(c.Context(), principal.UserID, movieID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, apperrors.NewAppError(apperrors.CodeNotFound, principal.Username+" was not found", nil))
		}
		h.logger.WithError(err).Error("Failed to update favorites")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to update favorites", err))
	}

	h.logger.WithFields(logrus.Fields{
		"username": principal.Username,
		"movie_id": movieID,
	}).Info(logMsg)

	return c.JSON(user)
}
