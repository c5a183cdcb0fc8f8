package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisabwisdom/backend/internal/credstore"
	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/model"
	"github.com/nisabwisdom/backend/internal/password"
	"github.com/nisabwisdom/backend/internal/revoke"
	"github.com/nisabwisdom/backend/internal/token"
)

type fakeUserRepo struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if _, exists := r.byEmail[user.Email]; exists {
		return fmt.Errorf("duplicate email")
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return user, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return user, nil
}

func (r *fakeUserRepo) RecordFailedLogin(_ context.Context, id string) error {
	user := r.byID[id]
	user.FailedLoginAttempts++
	now := time.Now()
	user.LastLoginAttempt = &now
	return nil
}

func (r *fakeUserRepo) RecordSuccessfulLogin(_ context.Context, id string) error {
	user := r.byID[id]
	user.FailedLoginAttempts = 0
	now := time.Now()
	user.LastSuccessfulLogin = &now
	return nil
}

type authFixture struct {
	auth   *Auth
	users  *fakeUserRepo
	tokens *token.Manager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	store := credstore.NewMemory()
	registry := revoke.NewRegistry(store)

	tokens, err := token.NewManager(token.Config{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL: 15 * time.Minute,
	}, registry)
	require.NoError(t, err)

	hasher := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
	})

	users := newFakeUserRepo()
	auth := NewAuth(users, hasher, tokens, registry, AuthConfig{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, logger.New(slog.LevelError))

	return &authFixture{auth: auth, users: users, tokens: tokens}
}

func registerTestUser(t *testing.T, fx *authFixture) string {
	t.Helper()

	id, err := fx.auth.Register(context.Background(), model.RegisterRequest{
		Email:    "user@example.com",
		FullName: "Test User",
		Password: "sufficiently-long",
	})
	require.NoError(t, err)
	return id
}

func TestRegister(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	id := registerTestUser(t, fx)
	assert.NotEmpty(t, id)

	user, err := fx.auth.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "sufficiently-long", user.PasswordHash)
}

func TestRegisterDuplicateEmailIsGenericFailure(t *testing.T) {
	fx := newAuthFixture(t)
	registerTestUser(t, fx)

	_, err := fx.auth.Register(context.Background(), model.RegisterRequest{
		Email:    "USER@example.com", // normalized to the same address
		Password: "another-password",
	})
	assert.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	_, err := fx.auth.Register(ctx, model.RegisterRequest{Email: "no-at-sign", Password: "long enough"})
	assert.ErrorIs(t, err, ErrRegistrationFailed)

	_, err = fx.auth.Register(ctx, model.RegisterRequest{Email: "u@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestLoginSuccess(t *testing.T) {
	fx := newAuthFixture(t)
	registerTestUser(t, fx)
	ctx := context.Background()

	pair, err := fx.auth.Login(ctx, model.LoginRequest{
		Email:    "User@Example.com",
		Password: "sufficiently-long",
	})
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int(15*time.Minute/time.Second), pair.ExpiresIn)

	claims, err := fx.tokens.Verify(ctx, pair.AccessToken, token.TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	fx := newAuthFixture(t)
	id := registerTestUser(t, fx)

	_, err := fx.auth.Login(context.Background(), model.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, fx.users.byID[id].FailedLoginAttempts)
}

func TestLoginUnknownEmail(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.auth.Login(context.Background(), model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	fx := newAuthFixture(t)
	registerTestUser(t, fx)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := fx.auth.Login(ctx, model.LoginRequest{
			Email:    "user@example.com",
			Password: "wrong password",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Even the correct password is refused while locked.
	_, err := fx.auth.Login(ctx, model.LoginRequest{
		Email:    "user@example.com",
		Password: "sufficiently-long",
	})
	assert.ErrorIs(t, err, ErrAccountLocked)

	// After the lockout window the account recovers.
	fx.auth.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	_, err = fx.auth.Login(ctx, model.LoginRequest{
		Email:    "user@example.com",
		Password: "sufficiently-long",
	})
	require.NoError(t, err)
}

func TestLoginDisabledAccount(t *testing.T) {
	fx := newAuthFixture(t)
	id := registerTestUser(t, fx)
	fx.users.byID[id].IsActive = false

	_, err := fx.auth.Login(context.Background(), model.LoginRequest{
		Email:    "user@example.com",
		Password: "sufficiently-long",
	})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRefreshIsSingleUse(t *testing.T) {
	fx := newAuthFixture(t)
	registerTestUser(t, fx)
	ctx := context.Background()

	pair, err := fx.auth.Login(ctx, model.LoginRequest{
		Email:    "user@example.com",
		Password: "sufficiently-long",
	})
	require.NoError(t, err)

	fresh, err := fx.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, fresh.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, fresh.AccessToken)

	// The consumed token cannot be replayed.
	_, err = fx.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	// The freshly issued one still works.
	_, err = fx.auth.Refresh(ctx, fresh.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshUnknownToken(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.auth.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestLogoutRevokesTokens(t *testing.T) {
	fx := newAuthFixture(t)
	registerTestUser(t, fx)
	ctx := context.Background()

	pair, err := fx.auth.Login(ctx, model.LoginRequest{
		Email:    "user@example.com",
		Password: "sufficiently-long",
	})
	require.NoError(t, err)

	claims, err := fx.tokens.Verify(ctx, pair.AccessToken, token.TypeAccess)
	require.NoError(t, err)

	require.NoError(t, fx.auth.Logout(ctx, claims, pair.RefreshToken))

	_, err = fx.tokens.Verify(ctx, pair.AccessToken, token.TypeAccess)
	assert.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = fx.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}
