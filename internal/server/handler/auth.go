package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

// OTPService defines what the auth handlers need from the service layer.
type OTPService interface {
	InitOTP(ctx context.Context, userID, email string) (string, error)
	VerifyOTP(ctx context.Context, userID, otpID, otpCode string) error
}

// AuthHandler serves email OTP authentication endpoints.
type AuthHandler struct {
	otp    OTPService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(otp OTPService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		otp:    otp,
		logger: logger,
	}
}

type otpInitRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// InitOTP starts an email OTP challenge and returns the challenge ID the
// client must echo back on verification.
// POST /api/auth/otp/init
func (h *AuthHandler) InitOTP(w http.ResponseWriter, r *http.Request) {
	var req otpInitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "user_id and email are required")
		return
	}

	otpID, err := h.otp.InitOTP(r.Context(), req.UserID, req.Email)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: otp init failed",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to start otp challenge")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"otp_id":  otpID,
	})
}

type otpVerifyRequest struct {
	UserID  string `json:"user_id"`
	OTPID   string `json:"otp_id"`
	OTPCode string `json:"otp_code"`
}

// VerifyOTP completes an OTP challenge.
// POST /api/auth/otp/verify
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.OTPID == "" || req.OTPCode == "" {
		writeError(w, http.StatusBadRequest, "user_id, otp_id and otp_code are required")
		return
	}

	err := h.otp.VerifyOTP(r.Context(), req.UserID, req.OTPID, req.OTPCode)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoSubOrganization):
			writeError(w, http.StatusNotFound, "no sub-organization for user")
		default:
			h.logger.ErrorContext(r.Context(), "handler: otp verify failed",
				slog.String("user_id", req.UserID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusUnauthorized, "otp verification failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
