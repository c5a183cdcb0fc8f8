// Package service implements the product use cases on top of the
// token, revocation, and persistence layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/model"
	"github.com/nisabwisdom/backend/internal/password"
	"github.com/nisabwisdom/backend/internal/revoke"
	"github.com/nisabwisdom/backend/internal/token"
)

const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

var (
	// ErrInvalidCredentials is returned for unknown accounts and wrong
	// passwords alike; the two are never distinguishable externally.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while the failed-attempt lockout is
	// in effect.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrAccountDisabled is returned for deactivated accounts.
	ErrAccountDisabled = errors.New("account is deactivated")
	// ErrRegistrationFailed deliberately hides whether the email was
	// already taken.
	ErrRegistrationFailed = errors.New("registration failed")
	// ErrRefreshInvalid mirrors revoke.ErrRefreshInvalid at this
	// boundary.
	ErrRefreshInvalid = revoke.ErrRefreshInvalid
)

// UserRepository is the persistence contract the auth service needs.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	RecordFailedLogin(ctx context.Context, id string) error
	RecordSuccessfulLogin(ctx context.Context, id string) error
}

// AuthConfig holds token lifetimes for issued credential pairs.
type AuthConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Auth implements registration, login with brute-force lockout,
// single-use refresh exchange, and logout with revocation.
type Auth struct {
	users    UserRepository
	hasher   *password.Hasher
	tokens   *token.Manager
	registry *revoke.Registry
	config   AuthConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewAuth wires the auth service.
func NewAuth(users UserRepository, hasher *password.Hasher, tokens *token.Manager, registry *revoke.Registry, cfg AuthConfig, log *logger.Logger) *Auth {
	return &Auth{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		registry: registry,
		config:   cfg,
		log:      log,
		now:      time.Now,
	}
}

// Register creates a new account. Duplicate emails produce the same
// generic failure as any other error so registration cannot be used to
// enumerate accounts.
func (a *Auth) Register(ctx context.Context, req model.RegisterRequest) (string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return "", ErrRegistrationFailed
	}

	if existing, err := a.users.GetByEmail(ctx, email); err == nil && existing != nil {
		a.log.Warn("registration attempt with existing email", "email", email)
		return "", ErrRegistrationFailed
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return "", fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
		}
		return "", ErrRegistrationFailed
	}

	user := &model.User{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   false,
	}
	if err := a.users.Create(ctx, user); err != nil {
		a.log.Error("user create failed", "error", err)
		return "", ErrRegistrationFailed
	}

	a.log.Info("user registered", "user_id", user.ID)
	return user.ID, nil
}

// Login verifies credentials and issues a token pair. Unknown emails
// burn a dummy hash so response timing matches the known-account path.
func (a *Auth) Login(ctx context.Context, req model.LoginRequest) (*model.TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil || user == nil {
		a.hasher.DummyVerify()
		a.log.Warn("login attempt with unknown email", "email", email)
		return nil, ErrInvalidCredentials
	}

	if a.isLockedOut(user) {
		a.log.Warn("login attempt on locked account", "user_id", user.ID, "failed_attempts", user.FailedLoginAttempts)
		return nil, ErrAccountLocked
	}

	ok, err := a.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		if recErr := a.users.RecordFailedLogin(ctx, user.ID); recErr != nil {
			a.log.Error("failed-login bookkeeping failed", "user_id", user.ID, "error", recErr)
		}
		a.log.Warn("failed login attempt", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		a.log.Warn("login attempt on inactive account", "user_id", user.ID)
		return nil, ErrAccountDisabled
	}

	if err := a.users.RecordSuccessfulLogin(ctx, user.ID); err != nil {
		a.log.Error("successful-login bookkeeping failed", "user_id", user.ID, "error", err)
	}

	pair, err := a.issuePair(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	a.log.Info("user logged in", "user_id", user.ID)
	return pair, nil
}

// Refresh exchanges a whitelisted refresh token for a fresh pair. The
// old token is consumed atomically; of two concurrent exchanges exactly
// one succeeds, which blocks replay.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	subject, err := a.registry.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, revoke.ErrRefreshInvalid) {
			a.log.Warn("invalid refresh token used")
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	user, err := a.users.GetByID(ctx, subject)
	if err != nil || user == nil || !user.IsActive {
		return nil, ErrRefreshInvalid
	}

	pair, err := a.issuePair(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	a.log.Info("tokens refreshed", "user_id", user.ID)
	return pair, nil
}

// Logout revokes the presented access token for its remaining lifetime
// and removes the session's refresh token from the whitelist.
func (a *Auth) Logout(ctx context.Context, claims *token.AccessClaims, refreshToken string) error {
	remaining := time.Until(claims.ExpiresAt.Time)
	if err := a.registry.Revoke(ctx, claims.ID, remaining); err != nil {
		return err
	}

	if refreshToken != "" {
		if err := a.registry.RevokeRefreshToken(ctx, refreshToken); err != nil {
			return err
		}
	}

	a.log.Info("user logged out", "user_id", claims.Subject)
	return nil
}

// GetUser returns the profile row for an authenticated subject.
func (a *Auth) GetUser(ctx context.Context, id string) (*model.User, error) {
	return a.users.GetByID(ctx, id)
}

func (a *Auth) issuePair(ctx context.Context, userID, email string) (*model.TokenPair, error) {
	access, _, err := a.tokens.IssueAccess(userID, email, a.config.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := token.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := a.registry.PutRefreshToken(ctx, refresh, userID, a.config.RefreshTTL); err != nil {
		return nil, err
	}

	return &model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(a.config.AccessTTL / time.Second),
	}, nil
}

func (a *Auth) isLockedOut(user *model.User) bool {
	if user.FailedLoginAttempts < maxFailedAttempts || user.LastLoginAttempt == nil {
		return false
	}
	return a.now().Sub(*user.LastLoginAttempt) < lockoutDuration
}
