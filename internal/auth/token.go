// Package auth implements credential verification and token issuance for the
// movies API. Tokens are self-contained JWTs whose subject is the username;
// validity is decided purely by signature and expiry, there is no revocation
// list. The verification mode (shared HS256 secret or external JWKS) is fixed
// at construction time so issuing and verifying can never disagree on the
// algorithm at request time.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"

	"github.com/myflix/movies-api/internal/config"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and missing claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the token payload. Subject carries the username. Validate runs
// during parsing and rejects payloads missing required fields, so a decoded
// Claims always has subject, issued-at and expiry set.
type Claims struct {
	jwt.RegisteredClaims
}

func (c Claims) Validate() error {
	if c.Subject == "" {
		return fmt.Errorf("sub claim is required")
	}
	if c.IssuedAt == nil {
		return fmt.Errorf("iat claim is required")
	}
	if c.ExpiresAt == nil {
		return fmt.Errorf("exp claim is required")
	}
	return nil
}

// Issuer signs identity tokens with the shared HS256 secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewIssuer(cfg *config.JWTConfig) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token issuing requires a signing secret")
	}
	return &Issuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
	}, nil
}

// Issue creates a signed token for username, valid for the configured window.
// Returns the compact token and its validity in seconds.
func (i *Issuer) Issue(username string) (string, int, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}

	return signed, int(i.ttl.Seconds()), nil
}

// TokenVerifier checks a presented token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*Claims, error)
}

// NewTokenVerifier picks the verification mode from config: secret mode for
// self-issued HS256 tokens, JWKS mode for externally issued ones.
func NewTokenVerifier(cfg *config.JWTConfig, logger *logrus.Logger) (TokenVerifier, error) {
	if cfg.JWKSEndpoint != "" {
		return newJWKSVerifier(cfg, logger)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token verification requires a secret or a JWKS endpoint")
	}
	return &secretVerifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}, nil
}

type secretVerifier struct {
	secret []byte
	issuer string
}

func (v *secretVerifier) Verify(_ context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return claims, nil
}

// jwksVerifier validates tokens signed by an external identity provider,
// resolving keys by kid from a cached JWKS document.
type jwksVerifier struct {
	endpoint string
	cache    *jwk.Cache
	logger   *logrus.Logger
}

func newJWKSVerifier(cfg *config.JWTConfig, logger *logrus.Logger) (*jwksVerifier, error) {
	cache := jwk.NewCache(context.Background())
	if err := cache.Register(cfg.JWKSEndpoint, jwk.WithMinRefreshInterval(cfg.CacheTTL)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS endpoint: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := cache.Refresh(ctx, cfg.JWKSEndpoint); err != nil {
		logger.WithError(err).Warn("Failed to pre-fetch JWKS, will try during first request")
	}

	return &jwksVerifier{
		endpoint: cfg.JWKSEndpoint,
		cache:    cache,
		logger:   logger,
	}, nil
}

func (v *jwksVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		keyID, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid not found in token header")
		}

		set, err := v.cache.Get(ctx, v.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to get JWK set: %w", err)
		}

		key, found := set.LookupKeyID(keyID)
		if !found {
			return nil, fmt.Errorf("key with ID %s not found", keyID)
		}

		var verifyKey interface{}
		if err := key.Raw(&verifyKey); err != nil {
			return nil, fmt.Errorf("failed to get raw key: %w", err)
		}

		return verifyKey, nil
	},
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return claims, nil
}
