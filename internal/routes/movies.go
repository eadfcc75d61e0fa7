package routes

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/myflix/movies-api/internal/store"
	apperrors "github.com/myflix/movies-api/pkg/errors"
)

// MoviesHandler handles read-only movie catalog endpoints
type MoviesHandler struct {
	movies store.MovieStore
	logger *logrus.Logger
}

// NewMoviesHandler creates a new movies handler
func NewMoviesHandler(movies store.MovieStore, logger *logrus.Logger) *MoviesHandler {
	return &MoviesHandler{
		movies: movies,
		logger: logger,
	}
}

// List returns all movies in the catalog
// @Summary List movies
// @Description Return every movie in the catalog
// @Tags Movies
// @Produce json
// @Security Bearer
// @Success 200 {array} models.Movie
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Router /movies [get]
func (h *MoviesHandler) List(c *fiber.Ctx) error {
	movies, err := h.movies.List(c.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list movies")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to list movies", err))
	}

	return c.JSON(movies)
}

// GetByTitle returns a single movie by its exact title
// @Summary Get movie by title
// @Description Return the movie with the given title
// @Tags Movies
// @Produce json
// @Security Bearer
// @Param title path string true "Movie title"
// @Success 200 {object} models.Movie
// @Failure 404 {object} errors.ErrorResponse "Movie not found"
// @Router /movies/{title} [get]
func (h *MoviesHandler) GetByTitle(c *fiber.Ctx) error {
	title, err := pathParam(c, "title")
	if err != nil {
		return respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid title", err))
	}

	movie, err := h.movies.FindByTitle(c.Context(), title)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, apperrors.NewAppError(apperrors.CodeNotFound, "Movie not found", nil))
		}
		h.logger.WithError(err).Error("Failed to get movie")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to get movie", err))
	}

	return c.JSON(movie)
}

// GetGenre returns a genre's description by name
// @Summary Get genre by name
// @Description Return the genre description from any movie carrying it
// @Tags Movies
// @Produce json
// @Security Bearer
// @Param genreName path string true "Genre name"
// @Success 200 {object} models.Genre
// @Failure 404 {object} errors.ErrorResponse "Genre not found"
// @Router /movies/genre/{genreName} [get]
func (h *MoviesHandler) GetGenre(c *fiber.Ctx) error {
	name, err := pathParam(c, "genreName")
	if err != nil {
		return respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid genre name", err))
	}

	genre, err := h.movies.FindByGenre(c.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, apperrors.NewAppError(apperrors.CodeNotFound, name+" not found", nil))
		}
		h.logger.WithError(err).Error("Failed to get genre")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to get genre", err))
	}

	return c.JSON(genre)
}

// GetDirector returns a director's details by name
// @Summary Get director by name
// @Description Return the director details from any movie they directed
// @Tags Movies
// @Produce json
// @Security Bearer
// @Param directorName path string true "Director name"
// @Success 200 {object} models.Director
// @Failure 404 {object} errors.ErrorResponse "Director not found"
// @Router /movies/director/{directorName} [get]
func (h *MoviesHandler) GetDirector(c *fiber.Ctx) error {
	name, err := pathParam(c, "directorName")
	if err != nil {
		return respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid director name", err))
	}

	director, err := h.movies.FindByDirector(c.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, apperrors.NewAppError(apperrors.CodeNotFound, name+" not found", nil))
		}
		h.logger.WithError(err).Error("Failed to get director")
		return respondError(c, apperrors.NewAppError(apperrors.CodeStoreError, "Failed to get director", err))
	}

	return c.JSON(director)
}

// pathParam returns a URL-decoded path parameter; titles and names may carry
// percent-encoded spaces.
func pathParam(c *fiber.Ctx, name string) (string, error) {
	return url.PathUnescape(c.Params(name))
}
