// Package rest exposes the HTTP surface of the service: auth, Zakat
// calculator, prices, chat, and health routes.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/middleware"
	"github.com/nisabwisdom/backend/internal/service"
)

// Deps carries everything the router needs.
type Deps struct {
	Auth   *service.Auth
	Zakat  *service.Zakat
	Chat   *service.Chat
	Guard  *middleware.Guard
	Health *HealthHandler
	Log    *logger.Logger
}

// NewRouter builds the route table. Every /api/v1 route passes through
// the guard: Require for authenticated routes, Optional for routes that
// serve anonymous callers under an IP-keyed quota.
func NewRouter(deps Deps) http.Handler {
	auth := &AuthHandler{auth: deps.Auth, log: deps.Log}
	zakat := &ZakatHandler{zakat: deps.Zakat, log: deps.Log}
	chat := &ChatHandler{chat: deps.Chat}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogging(deps.Log))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", deps.Health.Live)
	r.Get("/health/ready", deps.Health.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.Optional())
			r.Post("/auth/register", auth.Register)
			r.Post("/auth/login", auth.Login)
			r.Post("/auth/refresh", auth.Refresh)
			r.Post("/zakat/calculate", zakat.Calculate)
			r.Get("/zakat/nisab", zakat.Nisab)
			r.Get("/prices/gold-silver", zakat.Prices)
			r.Post("/chat", chat.Message)
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.Require())
			r.Post("/auth/logout", auth.Logout)
			r.Get("/auth/me", auth.Me)
		})
	})

	return r
}
