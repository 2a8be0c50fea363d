package handler

import (
	"net/http"
	"time"
)

// HealthStatus reports which optional integrations were configured at
// startup. The flags let a deployment check spot a missing secret without
// reading logs.
type HealthStatus struct {
	TurnkeyConfigured   bool
	SupabaseConfigured  bool
	CoinGeckoConfigured bool
	RedisConfigured     bool
	S3Configured        bool
}

// HealthHandler serves the health-check endpoints.
type HealthHandler struct {
	status HealthStatus
}

// NewHealthHandler creates a HealthHandler reporting the given status.
func NewHealthHandler(status HealthStatus) *HealthHandler {
	return &HealthHandler{status: status}
}

// Root responds with a static greeting.
// GET /api/
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}

// HealthCheck responds with the service status and configuration flags.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":               "healthy",
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
		"turnkey_configured":   h.status.TurnkeyConfigured,
		"supabase_configured":  h.status.SupabaseConfigured,
		"coingecko_configured": h.status.CoinGeckoConfigured,
		"redis_configured":     h.status.RedisConfigured,
		"s3_configured":        h.status.S3Configured,
	})
}
