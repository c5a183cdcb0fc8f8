// Package rate enforces per-identity, per-resource request quotas using
// a sliding window over the shared credential store.
package rate

import (
	"context"
	"time"

	"github.com/nisabwisdom/backend/internal/credstore"
)

// Tier names scale the nominal limit. The limiter does not determine
// the tier; it is supplied by the caller per request.
const (
	TierBasic      = "basic"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

var tierMultipliers = map[string]float64{
	TierBasic:      1.0,
	TierPremium:    2.0,
	TierEnterprise: 5.0,
}

// Result carries the admission decision plus quota metadata suitable
// for response headers.
type Result struct {
	Allowed    bool
	Limit      int   // effective limit after tier scaling
	Remaining  int   // slots left after this request, never negative
	ResetTime  int64 // epoch seconds when the window fully turns over
	RetryAfter int   // seconds to wait when denied, zero otherwise

	// Degraded signals the store was unreachable and the request was
	// admitted fail-open. Logged and alerted on, never treated as a
	// security failure.
	Degraded bool
}

// Limiter computes sliding-window admission decisions. Stateless apart
// from configuration; counter state lives in the credential store.
type Limiter struct {
	store credstore.Store
	now   func() time.Time
}

// New creates a Limiter backed by the given store.
func New(store credstore.Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// CheckAndRecord admits or denies one request for key. The prune,
// count, add, and expiry-refresh run as one store transaction, so two
// concurrent requests can never both observe a stale undercount and
// both take the last slot. When the store is unreachable the request
// is admitted with Degraded set: availability wins over strict
// enforcement here.
func (l *Limiter) CheckAndRecord(ctx context.Context, key string, limit int, window time.Duration, tier string) Result {
	now := l.now()
	windowSeconds := int(window / time.Second)

	mult, ok := tierMultipliers[tier]
	if !ok {
		mult = tierMultipliers[TierBasic]
	}
	effectiveLimit := int(float64(limit) * mult)

	countBefore, err := l.store.SlideWindow(ctx, key, window, now)
	if err != nil {
		return Result{
			Allowed:   true,
			Limit:     effectiveLimit,
			Remaining: effectiveLimit,
			ResetTime: now.Unix() + int64(windowSeconds),
			Degraded:  true,
		}
	}

	current := countBefore + 1
	allowed := current <= int64(effectiveLimit)

	res := Result{
		Allowed:   allowed,
		Limit:     effectiveLimit,
		Remaining: effectiveLimit - int(current),
		ResetTime: now.Unix() + int64(windowSeconds),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !allowed {
		res.RetryAfter = windowSeconds
	}
	return res
}
