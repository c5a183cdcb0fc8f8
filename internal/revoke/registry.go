// Package revoke records revoked access token identifiers and owns the
// refresh-token whitelist, both backed by the shared credential store.
package revoke

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/nisabwisdom/backend/internal/credstore"
)

// ErrRefreshInvalid is returned when a refresh token is unknown,
// expired, or already consumed.
var ErrRefreshInvalid = errors.New("invalid refresh token")

const (
	revokedPrefix   = "rj:"
	whitelistPrefix = "rw:"
)

// Registry is stateless apart from configuration; all revocation and
// whitelist state lives in the credential store, which is what lets
// request workers scale horizontally.
type Registry struct {
	store credstore.Store
}

// NewRegistry creates a Registry on top of the given store.
func NewRegistry(store credstore.Store) *Registry {
	return &Registry{store: store}
}

// Revoke records a token identifier as revoked. Idempotent. ttl should
// be at least the remaining lifetime of the token being revoked: the
// entry must outlive the token's own validity window, after which
// retaining it is wasted state.
func (r *Registry) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return r.store.Set(ctx, revokedPrefix+jti, "1", ttl)
}

// IsRevoked reports whether jti has been revoked. Store failures
// propagate wrapped in credstore.ErrUnavailable; the caller decides
// between fail-open and fail-closed.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return r.store.Exists(ctx, revokedPrefix+jti)
}

// PutRefreshToken whitelists a refresh token bound to its subject. Only
// the sha256 digest of the token is used as the key; the raw value is
// never stored.
func (r *Registry) PutRefreshToken(ctx context.Context, refreshToken, subject string, ttl time.Duration) error {
	return r.store.Set(ctx, whitelistKey(refreshToken), subject, ttl)
}

// ConsumeRefreshToken atomically removes a refresh token from the
// whitelist and returns the subject it was bound to. Of N concurrent
// consumers of the same token, exactly one succeeds; the rest receive
// ErrRefreshInvalid.
func (r *Registry) ConsumeRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	subject, err := r.store.GetDel(ctx, whitelistKey(refreshToken))
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return "", ErrRefreshInvalid
		}
		return "", err
	}
	return subject, nil
}

// RevokeRefreshToken removes a refresh token from the whitelist without
// consuming it. Idempotent.
func (r *Registry) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return r.store.Delete(ctx, whitelistKey(refreshToken))
}

// IsRefreshTokenValid reports whitelist membership.
func (r *Registry) IsRefreshTokenValid(ctx context.Context, refreshToken string) (bool, error) {
	return r.store.Exists(ctx, whitelistKey(refreshToken))
}

func whitelistKey(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return whitelistPrefix + hex.EncodeToString(sum[:])
}
