package credstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("credstore: key not found")
	// ErrUnavailable wraps connectivity and timeout failures so callers
	// can apply their fail-open or fail-closed policy with errors.Is.
	ErrUnavailable = errors.New("credstore: store unavailable")
)

// Store is the credential store contract. All mutation goes through
// these primitives; no component holds an in-process lock over
// cross-request state.
type Store interface {
	// Set writes a value with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// GetDel atomically reads and deletes a key. Of N concurrent calls
	// on the same live key, exactly one receives the value; the rest
	// receive ErrNotFound. This is the single-use primitive.
	GetDel(ctx context.Context, key string) (string, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// SlideWindow atomically prunes entries at or before now-window,
	// counts the survivors, records an entry for now, and refreshes the
	// key's expiry to the window length. It returns the count BEFORE
	// the new entry was added. No concurrent SlideWindow on the same
	// key may interleave between the prune and the add.
	SlideWindow(ctx context.Context, key string, window time.Duration, now time.Time) (int64, error)

	// Ping reports store reachability for readiness checks.
	Ping(ctx context.Context) error
}
