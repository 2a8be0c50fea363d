package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sequencetheory/sequence-backend/internal/domain"
	"github.com/sequencetheory/sequence-backend/internal/indices"
)

// IndicesService defines what the indices handler needs from the pipeline.
// Declared locally so the handler package does not depend on the concrete
// service wiring.
type IndicesService interface {
	GetIndices(ctx context.Context, timePeriod string) (*indices.Response, error)
}

// IndicesHandler serves the crypto index endpoints.
type IndicesHandler struct {
	service IndicesService
	logger  *slog.Logger
}

// NewIndicesHandler creates an IndicesHandler.
func NewIndicesHandler(service IndicesService, logger *slog.Logger) *IndicesHandler {
	return &IndicesHandler{
		service: service,
		logger:  logger,
	}
}

// indicesRequest is the POST body. timePeriod defaults to "daily".
type indicesRequest struct {
	TimePeriod string `json:"timePeriod"`
}

// GetCryptoIndices returns the three-index payload for the requested
// time period.
// POST /api/crypto-indices
func (h *IndicesHandler) GetCryptoIndices(w http.ResponseWriter, r *http.Request) {
	var req indicesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TimePeriod == "" {
		req.TimePeriod = "daily"
	}

	resp, err := h.service.GetIndices(r.Context(), req.TimePeriod)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) ||
			errors.Is(err, domain.ErrNoMarketData) ||
			errors.Is(err, domain.ErrRateLimited) {
			writeError(w, http.StatusServiceUnavailable, "Unable to fetch market data")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: crypto indices failed",
			slog.String("time_period", req.TimePeriod),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute indices")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
