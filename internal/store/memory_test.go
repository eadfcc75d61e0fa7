package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myflix/movies-api/internal/models"
)

func newUser(id, username string) *models.User {
	return &models.User{
		UserID:       id,
		Username:     username,
		PasswordHash: "hash",
		Email:        username + "@example.com",
	}
}

func TestMemoryUserStore_CreateAndFind(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newUser("u1", "alice123")))

	byName, err := s.FindByUsername(ctx, "alice123")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.UserID)

	byID, err := s.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice123", byID.Username)

	_, err = s.FindByUsername(ctx, "nobody99")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByID(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserStore_CreateDuplicate(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newUser("u1", "alice123")))

	assert.ErrorIs(t, s.Create(ctx, newUser("u1", "other999")), ErrAlreadyExists)
	assert.ErrorIs(t, s.Create(ctx, newUser("u2", "alice123")), ErrAlreadyExists)
}

func TestMemoryUserStore_UpdateRename(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newUser("u1", "alice123")))

	renamed := newUser("u1", "alice2000")
	require.NoError(t, s.Update(ctx, renamed))

	// The old username stops resolving once the rename lands
	_, err := s.FindByUsername(ctx, "alice123")
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := s.FindByUsername(ctx, "alice2000")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.UserID)
}

func TestMemoryUserStore_UpdateRenameToTakenUsername(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newUser("u1", "alice123")))
	require.NoError(t, s.Create(ctx, newUser("u2", "bob99")))

	err := s.Update(ctx, newUser("u1", "bob99"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// Both records are untouched after the refused rename
	alice, err := s.FindByUsername(ctx, "alice123")
	require.NoError(t, err)
	assert.Equal(t, "u1", alice.UserID)

	bob, err := s.FindByUsername(ctx, "bob99")
	require.NoError(t, err)
	assert.Equal(t, "u2", bob.UserID)
}

func TestMemoryUserStore_UpdateMissing(t *testing.T) {
	s := NewMemoryUserStore()

	err := s.Update(context.Background(), newUser("u1", "alice123"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserStore_Delete(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newUser("u1", "alice123")))
	require.NoError(t, s.Delete(ctx, "u1"))

	_, err := s.FindByUsername(ctx, "alice123")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "u1"), ErrNotFound)
}

func TestMemoryUserStore_FavoritesSetSemantics(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newUser("u1", "alice123")))

	user, err := s.AddFavorite(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, user.FavoriteMovies)

	user, err = s.AddFavorite(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, user.FavoriteMovies)

	user, err = s.AddFavorite(ctx, "u1", "m2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2"}, user.FavoriteMovies)

	user, err = s.RemoveFavorite(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, user.FavoriteMovies)

	user, err = s.RemoveFavorite(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, user.FavoriteMovies)

	_, err = s.AddFavorite(ctx, "u2", "m1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newUser("u1", "alice123")))

	first, err := s.FindByID(ctx, "u1")
	require.NoError(t, err)
	first.Email = "tampered@example.com"
	first.FavoriteMovies = append(first.FavoriteMovies, "m1")

	second, err := s.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice123@example.com", second.Email)
	assert.Empty(t, second.FavoriteMovies)
}

func TestMemoryMovieStore_Lookups(t *testing.T) {
	s := NewMemoryMovieStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &models.Movie{
		MovieID:  "m1",
		Title:    "Alien",
		Genre:    models.Genre{Name: "Horror", Description: "Films made to frighten."},
		Director: models.Director{Name: "Ridley Scott", Bio: "English filmmaker."},
	}))

	movies, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, movies, 1)

	movie, err := s.FindByTitle(ctx, "Alien")
	require.NoError(t, err)
	assert.Equal(t, "m1", movie.MovieID)
	// Put keeps the index attributes in sync with the nested documents
	assert.Equal(t, "Horror", movie.GenreName)
	assert.Equal(t, "Ridley Scott", movie.DirectorName)

	genre, err := s.FindByGenre(ctx, "Horror")
	require.NoError(t, err)
	assert.Equal(t, "Films made to frighten.", genre.Description)

	director, err := s.FindByDirector(ctx, "Ridley Scott")
	require.NoError(t, err)
	assert.Equal(t, "English filmmaker.", director.Bio)

	_, err = s.FindByTitle(ctx, "Missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByGenre(ctx, "Western")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByDirector(ctx, "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
