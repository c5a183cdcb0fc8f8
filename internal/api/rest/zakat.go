package rest

import (
	"net"
	"net/http"
	"strings"

	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/middleware"
	"github.com/nisabwisdom/backend/internal/model"
	"github.com/nisabwisdom/backend/internal/service"
)

// ZakatHandler serves the calculator and price routes.
type ZakatHandler struct {
	zakat *service.Zakat
	log   *logger.Logger
}

// Calculate handles POST /api/v1/zakat/calculate. Works for anonymous
// and authenticated callers; authenticated calculations are attributed
// in the audit row.
func (h *ZakatHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req model.ZakatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Currency == "" {
		req.Currency = "USD"
	}

	var userID *string
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID = &claims.Subject
	}

	result, err := h.zakat.Calculate(r.Context(), req, userID, requestIP(r), r.UserAgent())
	if err != nil {
		h.log.Error("zakat calculation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "calculation failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Nisab handles GET /api/v1/zakat/nisab.
func (h *ZakatHandler) Nisab(w http.ResponseWriter, r *http.Request) {
	gold, silver, prices := h.zakat.NisabThresholds(r.Context())

	respondJSON(w, http.StatusOK, map[string]any{
		"gold_nisab_usd":   gold,
		"silver_nisab_usd": silver,
		"prices":           prices,
	})
}

// Prices handles GET /api/v1/prices/gold-silver.
func (h *ZakatHandler) Prices(w http.ResponseWriter, r *http.Request) {
	_, _, prices := h.zakat.NisabThresholds(r.Context())
	respondJSON(w, http.StatusOK, prices)
}

func requestIP(r *http.Request) string {
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
