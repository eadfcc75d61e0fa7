package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myflix/movies-api/internal/config"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "myflix-api",
		TokenTTL: 7 * 24 * time.Hour,
	}
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestIssuer_RoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	issuer, err := NewIssuer(cfg)
	require.NoError(t, err)

	verifier, err := NewTokenVerifier(cfg, logrus.New())
	require.NoError(t, err)

	token, expiresIn, err := issuer.Issue("alice123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, int(cfg.TokenTTL.Seconds()), expiresIn)

	claims, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)

	// The subject always round-trips to the username supplied at issuance
	assert.Equal(t, "alice123", claims.Subject)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(cfg.TokenTTL), claims.ExpiresAt.Time, 5*time.Second)
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer(&config.JWTConfig{Issuer: "myflix-api", TokenTTL: time.Hour})
	require.Error(t, err)
}

func TestNewTokenVerifier_RequiresSecretOrJWKS(t *testing.T) {
	_, err := NewTokenVerifier(&config.JWTConfig{}, logrus.New())
	require.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	cfg := testJWTConfig()

	otherCfg := testJWTConfig()
	otherCfg.Secret = "a-different-secret"
	otherIssuer, err := NewIssuer(otherCfg)
	require.NoError(t, err)

	// Claims are perfectly valid, only the signing secret differs
	token, _, err := otherIssuer.Issue("alice123")
	require.NoError(t, err)

	verifier, err := NewTokenVerifier(cfg, logrus.New())
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	cfg := testJWTConfig()

	token := signToken(t, cfg.Secret, jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice123",
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-8 * 24 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	})

	verifier, err := NewTokenVerifier(cfg, logrus.New())
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_MissingSubject(t *testing.T) {
	cfg := testJWTConfig()

	token := signToken(t, cfg.Secret, jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	verifier, err := NewTokenVerifier(cfg, logrus.New())
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingExpiry(t *testing.T) {
	cfg := testJWTConfig()

	token := signToken(t, cfg.Secret, jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "alice123",
			Issuer:   cfg.Issuer,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	})

	verifier, err := NewTokenVerifier(cfg, logrus.New())
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSigningMethod(t *testing.T) {
	cfg := testJWTConfig()

	token := signToken(t, cfg.Secret, jwt.SigningMethodHS384, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice123",
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	verifier, err := NewTokenVerifier(cfg, logrus.New())
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	verifier, err := NewTokenVerifier(testJWTConfig(), logrus.New())
	require.NoError(t, err)

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		_, err := verifier.Verify(context.Background(), tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tokenString)
	}
}
