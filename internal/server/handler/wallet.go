package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

// WalletService defines what the wallet handlers need from the service
// layer.
type WalletService interface {
	Provision(ctx context.Context, userID, email string) (domain.ProvisionResult, error)
	SignMessage(ctx context.Context, userID, message string) (domain.SignatureParts, error)
	SignTransaction(ctx context.Context, userID, unsignedTx string) (string, error)
	Wallets(ctx context.Context, userID string) ([]domain.UserWallet, error)
}

// WalletHandler serves wallet provisioning and signing endpoints.
type WalletHandler struct {
	wallets WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallets WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		wallets: wallets,
		logger:  logger,
	}
}

type provisionRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// provisionResponse deliberately reports failures in-band: the frontend
// treats a missing wallet as a soft state, not a fatal error.
type provisionResponse struct {
	Success       bool   `json:"success"`
	WalletAddress string `json:"wallet_address,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ProvisionWallet creates (or returns) the user's custody wallet.
// POST /api/provision-wallet
func (h *WalletHandler) ProvisionWallet(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "user_id and email are required")
		return
	}

	result, err := h.wallets.Provision(r.Context(), req.UserID, req.Email)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: provision wallet failed",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, provisionResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, provisionResponse{
		Success:       true,
		WalletAddress: result.WalletAddress,
	})
}

type signMessageRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// SignMessage signs a personal message with the user's custody wallet.
// POST /api/wallet/sign-message
func (h *WalletHandler) SignMessage(w http.ResponseWriter, r *http.Request) {
	var req signMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}

	parts, err := h.wallets.SignMessage(r.Context(), req.UserID, req.Message)
	if err != nil {
		h.writeSigningError(w, r, "sign message", req.UserID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"signature": parts,
	})
}

type signTransactionRequest struct {
	UserID     string `json:"user_id"`
	UnsignedTx string `json:"unsigned_transaction"`
}

// SignTransaction signs an unsigned EVM transaction and returns the signed
// RLP hex.
// POST /api/wallet/sign-transaction
func (h *WalletHandler) SignTransaction(w http.ResponseWriter, r *http.Request) {
	var req signTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.UnsignedTx == "" {
		writeError(w, http.StatusBadRequest, "user_id and unsigned_transaction are required")
		return
	}

	signed, err := h.wallets.SignTransaction(r.Context(), req.UserID, req.UnsignedTx)
	if err != nil {
		h.writeSigningError(w, r, "sign transaction", req.UserID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"signed_transaction": signed,
	})
}

// ListWallets returns the wallets recorded for a user.
// GET /api/wallet/{userID}
func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	wallets, err := h.wallets.Wallets(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list wallets failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list wallets")
		return
	}
	if wallets == nil {
		wallets = []domain.UserWallet{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"wallets": wallets})
}

func (h *WalletHandler) writeSigningError(w http.ResponseWriter, r *http.Request, op, userID string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoSubOrganization):
		writeError(w, http.StatusNotFound, "no wallet provisioned for user")
	default:
		h.logger.ErrorContext(r.Context(), "handler: "+op+" failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
