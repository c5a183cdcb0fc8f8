package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nisabwisdom/backend/internal/credstore"
	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/rate"
	"github.com/nisabwisdom/backend/internal/revoke"
	"github.com/nisabwisdom/backend/internal/token"
)

type guardFixture struct {
	guard    *Guard
	tokens   *token.Manager
	registry *revoke.Registry
}

func newGuardFixture(t *testing.T, policies *rate.PolicyTable) *guardFixture {
	t.Helper()

	store := credstore.NewMemory()
	registry := revoke.NewRegistry(store)

	tokens, err := token.NewManager(token.Config{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL: 15 * time.Minute,
	}, registry)
	if err != nil {
		t.Fatalf("manager construction failed: %v", err)
	}

	if policies == nil {
		policies = rate.NewPolicyTable(rate.Policy{Limit: 100, Window: time.Minute, Message: "rate limit exceeded"})
	}

	return &guardFixture{
		guard:    NewGuard(tokens, rate.New(store), policies, logger.New(slog.LevelError)),
		tokens:   tokens,
		registry: registry,
	}
}

func echoSubject(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(claims.Subject))
	})
}

func TestGuardRequireRejectsMissingToken(t *testing.T) {
	fx := newGuardFixture(t, nil)
	handler := fx.guard.Require()(echoSubject(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Fatalf("expected WWW-Authenticate: Bearer, got %q", got)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body failed: %v", err)
	}
	if body["detail"] != "invalid authentication credentials" {
		t.Fatalf("unexpected rejection detail %q", body["detail"])
	}
}

func TestGuardRequireRejectsBadToken(t *testing.T) {
	fx := newGuardFixture(t, nil)
	handler := fx.guard.Require()(echoSubject(t))

	for _, header := range []string{"Bearer garbage", "Bearer ", "Basic dXNlcjpwYXNz"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestGuardRequireAdmitsValidToken(t *testing.T) {
	fx := newGuardFixture(t, nil)
	handler := fx.guard.Require()(echoSubject(t))

	signed, _, err := fx.tokens.IssueAccess("u1", "u1@example.com", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "u1" {
		t.Fatalf("expected claims in context with subject u1, got %q", rec.Body.String())
	}
}

func TestGuardRejectsRevokedToken(t *testing.T) {
	fx := newGuardFixture(t, nil)
	handler := fx.guard.Require()(echoSubject(t))

	signed, claims, err := fx.tokens.IssueAccess("u1", "", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := fx.registry.Revoke(context.Background(), claims.ID, time.Minute); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", rec.Code)
	}
}

func TestGuardOptionalAdmitsAnonymous(t *testing.T) {
	fx := newGuardFixture(t, nil)
	handler := fx.guard.Optional()(echoSubject(t))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/prices/gold-silver", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected anonymous request to pass, got %d", rec.Code)
	}
}

func TestGuardOptionalStillRejectsBadToken(t *testing.T) {
	fx := newGuardFixture(t, nil)
	handler := fx.guard.Optional()(echoSubject(t))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/prices/gold-silver", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected presented-but-invalid token to be rejected, got %d", rec.Code)
	}
}

func TestGuardRateLimitsPerRoute(t *testing.T) {
	policies := rate.NewPolicyTable(rate.Policy{Limit: 100, Window: time.Minute, Message: "rate limit exceeded"})
	policies.Set("/api/v1/chat", rate.Policy{Limit: 2, Window: time.Minute, Message: "too many chat messages"})

	fx := newGuardFixture(t, policies)
	handler := fx.guard.Optional()(echoSubject(t))

	send := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
		r.RemoteAddr = "203.0.113.9:4312"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send(); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Fatalf("expected X-RateLimit-Limit 2, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected X-RateLimit-Remaining 0, got %q", got)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body failed: %v", err)
	}
	if body["detail"] != "too many chat messages" {
		t.Fatalf("unexpected denial detail %q", body["detail"])
	}
}

func TestGuardKeysAnonymousRequestsByIP(t *testing.T) {
	policies := rate.NewPolicyTable(rate.Policy{Limit: 1, Window: time.Minute, Message: "rate limit exceeded"})
	fx := newGuardFixture(t, policies)
	handler := fx.guard.Optional()(echoSubject(t))

	send := func(addr string) int {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/prices/gold-silver", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	if code := send("203.0.113.1:1000"); code != http.StatusOK {
		t.Fatalf("first client should pass, got %d", code)
	}
	if code := send("203.0.113.1:2000"); code != http.StatusTooManyRequests {
		t.Fatalf("same client should be limited, got %d", code)
	}
	if code := send("203.0.113.2:1000"); code != http.StatusOK {
		t.Fatalf("different client should pass, got %d", code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	if got := clientIP(r); got != "198.51.100.7" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}

	r.Header.Del("X-Forwarded-For")
	if got := clientIP(r); got != "10.0.0.1" {
		t.Fatalf("expected remote addr host, got %q", got)
	}
}
