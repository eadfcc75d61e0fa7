package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/myflix/movies-api/internal/models"
	"github.com/myflix/movies-api/internal/store"
)

// ErrInvalidCredentials is returned for both unknown usernames and wrong
// passwords. The two cases are deliberately indistinguishable to callers so
// login responses cannot be used for username enumeration.
var ErrInvalidCredentials = errors.New("incorrect username or password")

// UserFinder is the slice of the identity store the verifier needs.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// CredentialVerifier checks a claimed username/password pair against stored
// credentials. Lookups are exact and case-sensitive; no normalization.
type CredentialVerifier struct {
	users  UserFinder
	logger *logrus.Logger
}

func NewCredentialVerifier(users UserFinder, logger *logrus.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		users:  users,
		logger: logger,
	}
}

// Verify returns the principal on success, ErrInvalidCredentials on unknown
// username or password mismatch, and a wrapped store error when the lookup
// itself failed. Read-only: no lockout counter, no write.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := v.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			v.logger.WithField("username", username).Debug("Login attempt for unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("credential lookup: %w", err)
	}

	// bcrypt comparison is constant-time
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		v.logger.WithField("username", username).Debug("Login attempt with wrong password")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// HashPassword hashes a plaintext password for storage. bcrypt embeds a
// per-password salt in the hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
