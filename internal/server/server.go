// Package server assembles the HTTP API: route registration, middleware
// chain, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sequencetheory/sequence-backend/internal/server/handler"
	"github.com/sequencetheory/sequence-backend/internal/server/middleware"
	"github.com/sequencetheory/sequence-backend/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Indices *handler.IndicesHandler
	Markets *handler.MarketsHandler
	Wallet  *handler.WalletHandler
	Auth    *handler.AuthHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (CORS, logging, auth) applied. wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Root and health (no auth required by the frontend deploy checks,
	// but the auth middleware is global; deployments that set an API key
	// must send it on every route).
	mux.HandleFunc("GET /api/", handlers.Health.Root)
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Index endpoints. POST bodies carry the time period.
	mux.HandleFunc("POST /api/crypto-indices", handlers.Indices.GetCryptoIndices)
	mux.HandleFunc("POST /api/traditional-markets", handlers.Markets.GetTraditionalMarkets)

	// Wallet custody endpoints.
	mux.HandleFunc("POST /api/provision-wallet", handlers.Wallet.ProvisionWallet)
	mux.HandleFunc("POST /api/wallet/sign-message", handlers.Wallet.SignMessage)
	mux.HandleFunc("POST /api/wallet/sign-transaction", handlers.Wallet.SignTransaction)
	mux.HandleFunc("GET /api/wallet/{userID}", handlers.Wallet.ListWallets)

	// Email OTP endpoints.
	mux.HandleFunc("POST /api/auth/otp/init", handlers.Auth.InitOTP)
	mux.HandleFunc("POST /api/auth/otp/verify", handlers.Auth.VerifyOTP)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests to complete within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
