package domain

import "context"

// ProfileStore provides access to the profiles table.
type ProfileStore interface {
	// GetByUserID returns the profile for the given Supabase user ID.
	// It returns ErrNotFound when no row exists.
	GetByUserID(ctx context.Context, userID string) (Profile, error)

	// UpdateEthAddress sets the wallet address on an existing profile.
	UpdateEthAddress(ctx context.Context, userID, ethAddress string) error

	// UpsertSubOrg records the custody sub-organization ID for a user,
	// creating the profile row if it does not exist yet.
	UpsertSubOrg(ctx context.Context, userID, email, subOrgID string) error
}

// WalletStore provides access to the user_wallets table.
type WalletStore interface {
	Insert(ctx context.Context, wallet UserWallet) error
	ListByUser(ctx context.Context, userID string) ([]UserWallet, error)
}

// SnapshotCache is an optional cross-instance cache for raw market snapshot
// fetches, so horizontally scaled replicas share one upstream quota.
type SnapshotCache interface {
	// Get returns the cached snapshot list. ErrNotFound when absent/expired.
	Get(ctx context.Context) ([]MarketSnapshot, error)
	Set(ctx context.Context, snapshots []MarketSnapshot) error
}
