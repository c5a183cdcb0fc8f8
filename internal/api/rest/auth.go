package rest

import (
	"errors"
	"net/http"

	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/middleware"
	"github.com/nisabwisdom/backend/internal/model"
	"github.com/nisabwisdom/backend/internal/service"
)

// AuthHandler serves the /api/v1/auth routes.
type AuthHandler struct {
	auth *service.Auth
	log  *logger.Logger
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID, err := h.auth.Register(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "user registered successfully",
		"user_id": userID,
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pair, err := h.auth.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountLocked):
			respondError(w, http.StatusLocked, "account temporarily locked due to too many failed attempts")
		case errors.Is(err, service.ErrAccountDisabled):
			respondError(w, http.StatusUnauthorized, "account is deactivated")
		default:
			respondError(w, http.StatusUnauthorized, "invalid credentials")
		}
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			respondError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		h.log.Error("token refresh failed", "error", err)
		respondError(w, http.StatusInternalServerError, "token refresh failed")
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

// Logout handles POST /api/v1/auth/logout. The guard has already
// verified the access token; the optional body carries the refresh
// token to revoke alongside it.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid authentication credentials")
		return
	}

	var req model.RefreshRequest
	_ = decodeOptionalBody(r, &req)

	if err := h.auth.Logout(r.Context(), claims, req.RefreshToken); err != nil {
		h.log.Error("logout failed", "user_id", claims.Subject, "error", err)
		respondError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "logged out successfully",
	})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid authentication credentials")
		return
	}

	user, err := h.auth.GetUser(r.Context(), claims.Subject)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":     user.ID,
		"email":       user.Email,
		"full_name":   user.FullName,
		"is_active":   user.IsActive,
		"is_verified": user.IsVerified,
		"created_at":  user.CreatedAt,
	})
}
