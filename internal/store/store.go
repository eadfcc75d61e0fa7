// Package store implements the identity and movie-catalog stores on DynamoDB.
//
// Users live in a table keyed by user_id with a username-index GSI; movies in
// a table keyed by movie_id with title-index, genre-index and director-index
// GSIs. Every call runs under a per-call deadline so a slow lookup surfaces as
// a store failure instead of stalling the request indefinitely. Calls are
// single-attempt: no retries.
package store

import (
	"context"
	"errors"

	"github.com/myflix/movies-api/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a conditional write loses to an existing record.
	ErrAlreadyExists = errors.New("record already exists")
)

// UserStore is the identity store consulted by the credential verifier, the
// token gate and the user route handlers.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID string) error
	AddFavorite(ctx context.Context, userID, movieID string) (*models.User, error)
	RemoveFavorite(ctx context.Context, userID, movieID string) (*models.User, error)
}

// MovieStore is the read-mostly movie catalog. Put exists for seeding and tests;
// no route writes movies.
type MovieStore interface {
	List(ctx context.Context) ([]models.Movie, error)
	FindByTitle(ctx context.Context, title string) (*models.Movie, error)
	FindByGenre(ctx context.Context, genreName string) (*models.Genre, error)
	FindByDirector(ctx context.Context, directorName string) (*models.Director, error)
	Put(ctx context.Context, movie *models.Movie) error
}
