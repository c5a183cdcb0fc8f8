// Package middleware gates incoming requests: bearer verification,
// sliding-window quota checks, security headers, and request logging.
//
// The guard composes the token verifier and the rate limiter. Per
// request: Received -> TokenChecked -> QuotaChecked -> Admitted, with
// early exits RejectedUnauthenticated and RejectedRateLimited. No raw
// store or cryptographic error escapes this boundary.
package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/rate"
	"github.com/nisabwisdom/backend/internal/token"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified access claims attached by the
// guard, if the request was authenticated.
func ClaimsFromContext(ctx context.Context) (*token.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.AccessClaims)
	return claims, ok
}

// Guard gates routes with authentication and quota checks.
type Guard struct {
	tokens   *token.Manager
	limiter  *rate.Limiter
	policies *rate.PolicyTable
	log      *logger.Logger
}

// NewGuard creates a Guard over the given verifier, limiter, and route
// policy table.
func NewGuard(tokens *token.Manager, limiter *rate.Limiter, policies *rate.PolicyTable, log *logger.Logger) *Guard {
	return &Guard{tokens: tokens, limiter: limiter, policies: policies, log: log}
}

// Require returns middleware that rejects requests without a valid
// access token, then applies the route's quota keyed by subject.
func (g *Guard) Require() func(http.Handler) http.Handler {
	return g.middleware(true)
}

// Optional returns middleware that verifies a token when one is
// presented but admits anonymous requests, keying their quota by
// client IP.
func (g *Guard) Optional() func(http.Handler) http.Handler {
	return g.middleware(false)
}

func (g *Guard) middleware(requireAuth bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var claims *token.AccessClaims

			bearer, hasBearer := bearerToken(r.Header.Get("Authorization"))
			if hasBearer {
				verified, err := g.tokens.Verify(r.Context(), bearer, token.TypeAccess)
				if err != nil {
					g.log.Warn("token rejected", "path", r.URL.Path, "client_ip", clientIP(r))
					rejectUnauthenticated(w)
					return
				}
				claims = verified
			} else if requireAuth {
				rejectUnauthenticated(w)
				return
			}

			policy := g.policies.Lookup(r.URL.Path)
			key := rateKey(r.URL.Path, claims, r)

			res := g.limiter.CheckAndRecord(r.Context(), key, policy.Limit, policy.Window, rate.TierBasic)
			if res.Degraded {
				g.log.Error("rate limiter degraded, admitting fail-open", "path", r.URL.Path, "key", key)
			}
			if !res.Allowed {
				g.log.Warn("rate limit exceeded", "path", r.URL.Path, "key", key, "limit", res.Limit)
				rejectRateLimited(w, policy.Message, res)
				return
			}

			ctx := r.Context()
			if claims != nil {
				ctx = context.WithValue(ctx, claimsContextKey{}, claims)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rateKey is <resource>:user:<subject> for authenticated requests and
// <resource>:ip:<addr> otherwise.
func rateKey(path string, claims *token.AccessClaims, r *http.Request) string {
	if claims != nil {
		return path + ":user:" + claims.Subject
	}
	return path + ":ip:" + clientIP(r)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	tok := value[len(bearer):]
	if tok == "" {
		return "", false
	}

	return tok, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func rejectUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "invalid authentication credentials",
	})
}

func rejectRateLimited(w http.ResponseWriter, message string, res rate.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime, 10))
	w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
	writeJSON(w, http.StatusTooManyRequests, map[string]string{
		"detail": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
