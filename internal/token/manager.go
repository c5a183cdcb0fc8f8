// Package token issues and verifies the bearer credentials of the API:
// short-lived signed access tokens and opaque single-use refresh tokens.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TypeAccess is the type discriminator claim carried by access tokens.
const TypeAccess = "access"

const (
	minSecretBytes   = 32
	refreshTokenSize = 32 // 256 bits of entropy
)

var (
	// ErrInvalidToken covers malformed, expired, wrong-type, and revoked
	// tokens. Callers surface it uniformly so the reason is never
	// distinguishable externally.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRevocationUnavailable is returned when the revocation registry
	// cannot be reached and the manager is configured to fail closed.
	ErrRevocationUnavailable = errors.New("revocation check unavailable")
)

// RevocationChecker answers whether a token identifier has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Config holds signing parameters. The secret must carry at least 32
// bytes of entropy; weaker secrets are rejected at construction, never
// at request time.
type Config struct {
	Secret    []byte
	AccessTTL time.Duration
	Leeway    time.Duration

	// RevocationFailOpen admits tokens when the revocation registry is
	// unreachable. Default false: an unrevoked-but-compromised token
	// admitted during a store outage is worse than a temporary rejection.
	RevocationFailOpen bool
}

// AccessClaims is the signed claim set of an access token.
type AccessClaims struct {
	TokenType string `json:"type"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies access tokens. It is stateless apart from
// configuration; revocation state lives behind the RevocationChecker.
type Manager struct {
	config      Config
	revocations RevocationChecker
	now         func() time.Time
}

// NewManager validates the config and creates a Manager. revocations
// may be nil, in which case Verify skips the revocation round trip.
func NewManager(cfg Config, revocations RevocationChecker) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Manager{config: cfg, revocations: revocations, now: time.Now}, nil
}

// IssueAccess creates a signed access token for the subject. A
// non-positive ttl selects the configured default. The returned claims
// expose the jti and expiry the caller needs for later revocation.
func (m *Manager) IssueAccess(subject, email string, ttl time.Duration) (string, *AccessClaims, error) {
	if ttl <= 0 {
		ttl = m.config.AccessTTL
	}

	now := m.now()
	claims := &AccessClaims{
		TokenType: TypeAccess,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// NewRefreshToken generates an opaque URL-safe refresh token carrying
// 256 bits of entropy. The token is not self-describing; whitelist
// membership in the credential store is its only state.
func NewRefreshToken() (string, error) {
	raw := make([]byte, refreshTokenSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify validates signature, type, claim completeness, and expiry
// locally, then consults the revocation registry. Cheap local checks
// run first so malformed tokens never cost a store round trip.
func (m *Manager) Verify(ctx context.Context, tokenStr, expectedType string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(*jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing required claims", ErrInvalidToken)
	}

	if m.revocations != nil {
		revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			if m.config.RevocationFailOpen {
				return claims, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: token has been revoked", ErrInvalidToken)
		}
	}

	return claims, nil
}
