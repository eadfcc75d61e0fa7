package routes

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myflix/movies-api/internal/models"
	apperrors "github.com/myflix/movies-api/pkg/errors"
)

func seedCatalog(t *testing.T, api *testAPI) {
	t.Helper()

	api.seedMovie(t, models.Movie{
		MovieID:     "movie-1",
		Title:       "The Seventh Seal",
		Description: "A knight plays chess with Death.",
		Genre:       models.Genre{Name: "Drama", Description: "Character-driven stories."},
		Director:    models.Director{Name: "Ingmar Bergman", Bio: "Swedish filmmaker.", Birth: "1918", Death: "2007"},
		Featured:    true,
	})
	api.seedMovie(t, models.Movie{
		MovieID:     "movie-2",
		Title:       "Alien",
		Description: "A crew encounters a hostile organism.",
		Genre:       models.Genre{Name: "Horror", Description: "Films made to frighten."},
		Director:    models.Director{Name: "Ridley Scott", Bio: "English filmmaker.", Birth: "1937"},
	})
}

func TestListMovies(t *testing.T) {
	api := newTestAPI(t)
	seedCatalog(t, api)
	token := api.register(t, "alice123", "s3cret-pass")

	resp := api.request(t, fiber.MethodGet, "/movies", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var movies []models.Movie
	decodeBody(t, resp, &movies)
	assert.Len(t, movies, 2)
}

func TestListMovies_RequiresToken(t *testing.T) {
	api := newTestAPI(t)
	seedCatalog(t, api)

	resp := api.request(t, fiber.MethodGet, "/movies", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetMovieByTitle(t *testing.T) {
	api := newTestAPI(t)
	seedCatalog(t, api)
	token := api.register(t, "alice123", "s3cret-pass")

	// Titles with spaces arrive percent-encoded
	resp := api.request(t, fiber.MethodGet, "/movies/The%20Seventh%20Seal", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var movie models.Movie
	decodeBody(t, resp, &movie)
	assert.Equal(t, "The Seventh Seal", movie.Title)
	assert.Equal(t, "Ingmar Bergman", movie.Director.Name)
}

func TestGetMovieByTitle_NotFound(t *testing.T) {
	api := newTestAPI(t)
	seedCatalog(t, api)
	token := api.register(t, "alice123", "s3cret-pass")

	resp := api.request(t, fiber.MethodGet, "/movies/Nonexistent", token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var errResp apperrors.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, apperrors.CodeNotFound, errResp.Error.Code)
	assert.Equal(t, "Movie not found", errResp.Error.Message)
}

func TestGetGenre(t *testing.T) {
	api := newTestAPI(t)
	seedCatalog(t, api)
	token := api.register(t, "alice123", "s3cret-pass")

	resp := api.request(t, fiber.MethodGet, "/movies/genre/Horror", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var genre models.Genre
	decodeBody(t, resp, &genre)
	assert.Equal(t, "Horror", genre.Name)
	assert.Equal(t, "Films made to frighten.", genre.Description)
}

func TestGetGenre_NotFound(t *testing.T) {
	api := newTestAPI(t)
	seedCatalog(t, api)
	token := api.register(t, "alice123", "s3cret-pass")

	resp := api.request(t, fiber.MethodGet, "/movies/genre/Western", token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var errResp apperrors.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "Western not found", errResp.Error.Message)
}

func TestGetDirector(t *testing.T) {
	api := newTestAPI(t)
	seedCatalog(t, api)
	token := api.register(t, "alice123", "s3cret-pass")

	resp := api.request(t, fiber.MethodGet, "/movies/director/Ingmar%20Bergman", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var director models.Director
	decodeBody(t, resp, &director)
	assert.Equal(t, "Ingmar Bergman", director.Name)
	assert.Equal(t, "1918", director.Birth)
	assert.Equal(t, "2007", director.Death)
}

func TestGetDirector_NotFound(t *testing.T) {
	api := newTestAPI(t)
	seedCatalog(t, api)
	token := api.register(t, "alice123", "s3cret-pass")

	resp := api.request(t, fiber.MethodGet, "/movies/director/Nobody", token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var errResp apperrors.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "Nobody not found", errResp.Error.Message)
}
