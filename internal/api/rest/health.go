package rest

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nisabwisdom/backend/internal/credstore"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store credstore.Store
	pool  *pgxpool.Pool
}

// NewHealthHandler creates the probe handler. pool may be nil when the
// database is not configured.
func NewHealthHandler(store credstore.Store, pool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{store: store, pool: pool}
}

// Live handles GET /health.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready. A degraded credential store does not
// fail readiness: the limiter fails open and auth still verifies
// signatures locally, so the service keeps serving.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"store":    "ok",
		"database": "ok",
	}
	status := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		checks["store"] = "degraded"
	}

	if h.pool == nil {
		checks["database"] = "unconfigured"
		status = http.StatusServiceUnavailable
	} else if err := h.pool.Ping(r.Context()); err != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, checks)
}
