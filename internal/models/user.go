package models

import "time"

// User represents a registered account. The JSON field names keep the wire
// shape the existing myFlix web clients depend on; the dynamodbav names are
// the storage schema. PasswordHash never leaves the process.
type User struct {
	UserID         string    `json:"user_id" dynamodbav:"user_id"` // Primary Key
	Username       string    `json:"Username" dynamodbav:"username"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"` // bcrypt hash, never in JSON
	Email          string    `json:"Email" dynamodbav:"email"`
	BirthDate      string    `json:"Birth_date,omitempty" dynamodbav:"birth_date,omitempty"`
	FavoriteMovies []string  `json:"FavMovies" dynamodbav:"favorite_movies,stringset,omitempty"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// HasFavorite reports whether movieID is on the user's favorite list.
func (u *User) HasFavorite(movieID string) bool {
	for _, id := range u.FavoriteMovies {
		if id == movieID {
			return true
		}
	}
	return false
}

// LoginRequest represents login request payload
type LoginRequest struct {
	Username string `json:"Username" validate:"required"`
	Password string `json:"Password" validate:"required"`
}

// RegisterRequest represents registration request payload
type RegisterRequest struct {
	Username  string `json:"Username" validate:"required,min=5,alphanum"`
	Password  string `json:"Password" validate:"required"`
	Email     string `json:"Email" validate:"required,email"`
	BirthDate string `json:"Birth_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateUserRequest represents profile update payload. The original client
// resubmits the full profile, so the rules match registration.
type UpdateUserRequest struct {
	Username  string `json:"Username" validate:"required,min=5,alphanum"`
	Password  string `json:"Password" validate:"required"`
	Email     string `json:"Email" validate:"required,email"`
	BirthDate string `json:"Birth_date" validate:"omitempty,datetime=2006-01-02"`
}

// AuthResponse represents a successful login or registration response
type AuthResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}
