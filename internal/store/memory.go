package store

import (
	"context"
	"sync"

	"github.com/myflix/movies-api/internal/models"
)

// MemoryUserStore is an in-process UserStore with the same semantics as the
// DynamoDB implementation. Used in tests and for running the API without AWS.
type MemoryUserStore struct {
	mu       sync.RWMutex
	byID     map[string]models.User
	idByName map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:     make(map[string]models.User),
		idByName: make(map[string]string),
	}
}

func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.idByName[username]
	if !ok {
		return nil, ErrNotFound
	}
	user := s.byID[id]
	return cloneUser(user), nil
}

func (s *MemoryUserStore) FindByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(user), nil
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[user.UserID]; exists {
		return ErrAlreadyExists
	}
	if _, exists := s.idByName[user.Username]; exists {
		return ErrAlreadyExists
	}

	s.byID[user.UserID] = *cloneUser(*user)
	s.idByName[user.Username] = user.UserID
	return nil
}

func (s *MemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[user.UserID]
	if !ok {
		return ErrNotFound
	}

	if existing.Username != user.Username {
		if takenBy, taken := s.idByName[user.Username]; taken && takenBy != user.UserID {
			return ErrAlreadyExists
		}
		delete(s.idByName, existing.Username)
		s.idByName[user.Username] = user.UserID
	}
	s.byID[user.UserID] = *cloneUser(*user)
	return nil
}

func (s *MemoryUserStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	delete(s.idByName, user.Username)
	delete(s.byID, userID)
	return nil
}

func (s *MemoryUserStore) AddFavorite(_ context.Context, userID, movieID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return nil, ErrNotFound
	}

	if !user.HasFavorite(movieID) {
		user.FavoriteMovies = append(append([]string(nil), user.FavoriteMovies...), movieID)
	}
	s.byID[userID] = user
	return cloneUser(user), nil
}

func (s *MemoryUserStore) RemoveFavorite(_ context.Context, userID, movieID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return nil, ErrNotFound
	}

	kept := make([]string, 0, len(user.FavoriteMovies))
	for _, id := range user.FavoriteMovies {
		if id != movieID {
			kept = append(kept, id)
		}
	}
	user.FavoriteMovies = kept
	s.byID[userID] = user
	return cloneUser(user), nil
}

func cloneUser(u models.User) *models.User {
	u.FavoriteMovies = append([]string(nil), u.FavoriteMovies...)
	return &u
}

// MemoryMovieStore is an in-process MovieStore counterpart to MemoryUserStore.
type MemoryMovieStore struct {
	mu     sync.RWMutex
	movies map[string]models.Movie
}

func NewMemoryMovieStore() *MemoryMovieStore {
	return &MemoryMovieStore{
		movies: make(map[string]models.Movie),
	}
}

func (s *MemoryMovieStore) List(_ context.Context) ([]models.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movies := make([]models.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		movies = append(movies, m)
	}
	return movies, nil
}

func (s *MemoryMovieStore) FindByTitle(_ context.Context, title string) (*models.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.movies {
		if m.Title == title {
			movie := m
			return &movie, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryMovieStore) FindByGenre(_ context.Context, genreName string) (*models.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.movies {
		if m.Genre.Name == genreName {
			genre := m.Genre
			return &genre, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryMovieStore) FindByDirector(_ context.Context, directorName string) (*models.Director, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.movies {
		if m.Director.Name == directorName {
			director := m.Director
			return &director, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryMovieStore) Put(_ context.Context, movie *models.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	movie.GenreName = movie.Genre.Name
	movie.DirectorName = movie.Director.Name
	s.movies[movie.MovieID] = *movie
	return nil
}
