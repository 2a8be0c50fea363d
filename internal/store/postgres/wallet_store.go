package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

// WalletStore implements domain.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *pgxpool.Pool
}

// NewWalletStore creates a WalletStore backed by the given pool.
func NewWalletStore(pool *pgxpool.Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Insert records a provisioned wallet.
func (s *WalletStore) Insert(ctx context.Context, w domain.UserWallet) error {
	const query = `
		INSERT INTO user_wallets (
			id, user_id, wallet_address, network, provider,
			provenance, created_via, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id, wallet_address) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query,
		w.ID, w.UserID, w.WalletAddress, w.Network, w.Provider,
		w.Provenance, w.CreatedVia,
	); err != nil {
		return fmt.Errorf("postgres: insert wallet for %s: %w", w.UserID, err)
	}
	return nil
}

// ListByUser returns all wallets recorded for a user, newest first.
func (s *WalletStore) ListByUser(ctx context.Context, userID string) ([]domain.UserWallet, error) {
	const query = `
		SELECT id, user_id, wallet_address, network, provider,
		       provenance, created_via, created_at
		FROM user_wallets
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list wallets for %s: %w", userID, err)
	}
	defer rows.Close()

	var wallets []domain.UserWallet
	for rows.Next() {
		var w domain.UserWallet
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.WalletAddress, &w.Network, &w.Provider,
			&w.Provenance, &w.CreatedVia, &w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate wallet rows: %w", err)
	}
	return wallets, nil
}

// Compile-time interface check.
var _ domain.WalletStore = (*WalletStore)(nil)
