// Package model holds the domain records and API schemas of the
// service.
package model

import "time"

// User is a registered account row.
type User struct {
	ID                  string
	Email               string
	FullName            string
	PasswordHash        string
	IsActive            bool
	IsVerified          bool
	FailedLoginAttempts int
	LastLoginAttempt    *time.Time
	LastSuccessfulLogin *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TokenPair is the credential set returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries the opaque refresh token to exchange.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
