package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

// ProfileStore implements domain.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a ProfileStore backed by the given pool.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// GetByUserID returns the profile row for a Supabase user ID.
func (s *ProfileStore) GetByUserID(ctx context.Context, userID string) (domain.Profile, error) {
	const query = `
		SELECT user_id, COALESCE(email, ''), COALESCE(eth_address, ''),
		       COALESCE(sub_org_id, ''), updated_at
		FROM profiles
		WHERE user_id = $1`

	var p domain.Profile
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Email, &p.EthAddress, &p.SubOrgID, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, fmt.Errorf("postgres: profile %s: %w", userID, domain.ErrNotFound)
		}
		return domain.Profile{}, fmt.Errorf("postgres: get profile %s: %w", userID, err)
	}
	return p, nil
}

// UpdateEthAddress sets the wallet address on an existing profile.
func (s *ProfileStore) UpdateEthAddress(ctx context.Context, userID, ethAddress string) error {
	const query = `
		UPDATE profiles
		SET eth_address = $2, updated_at = NOW()
		WHERE user_id = $1`

	tag, err := s.pool.Exec(ctx, query, userID, ethAddress)
	if err != nil {
		return fmt.Errorf("postgres: update eth address for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: profile %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

// UpsertSubOrg records the custody sub-organization ID, inserting the
// profile row when the user has none yet.
func (s *ProfileStore) UpsertSubOrg(ctx context.Context, userID, email, subOrgID string) error {
	const query = `
		INSERT INTO profiles (user_id, email, sub_org_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			sub_org_id = EXCLUDED.sub_org_id,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, userID, email, subOrgID); err != nil {
		return fmt.Errorf("postgres: upsert sub-org for %s: %w", userID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ProfileStore = (*ProfileStore)(nil)
