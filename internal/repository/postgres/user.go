// Package postgres persists business entities: user accounts and Zakat
// calculation audit rows.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nisabwisdom/backend/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// UserRepository stores user accounts in PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a UserRepository over the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, full_name, hashed_password, is_active, is_verified,
	failed_login_attempts, last_login_attempt, last_successful_login, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Email, &user.FullName, &user.PasswordHash,
		&user.IsActive, &user.IsVerified, &user.FailedLoginAttempts,
		&user.LastLoginAttempt, &user.LastSuccessfulLogin,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// Create inserts a new user, assigning an ID when one is not set.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `INSERT INTO users (id, email, full_name, hashed_password, is_active, is_verified)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.FullName, user.PasswordHash, user.IsActive, user.IsVerified,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail returns the user with the given email, or ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetByID returns the user with the given id, or ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// RecordFailedLogin increments the failed-attempt counter and stamps
// the attempt time.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string) error {
	query := `UPDATE users
			  SET failed_login_attempts = failed_login_attempts + 1,
			      last_login_attempt = now(),
			      updated_at = now()
			  WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to record failed login: %w", err)
	}
	return nil
}

// RecordSuccessfulLogin resets the failed-attempt counter and stamps
// the successful login time.
func (r *UserRepository) RecordSuccessfulLogin(ctx context.Context, id string) error {
	query := `UPDATE users
			  SET failed_login_attempts = 0,
			      last_login_attempt = now(),
			      last_successful_login = now(),
			      updated_at = now()
			  WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to record successful login: %w", err)
	}
	return nil
}
