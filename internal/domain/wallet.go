package domain

import "time"

// Profile is a row in the Supabase profiles table, restricted to the columns
// this service reads and writes.
type Profile struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	EthAddress string    `json:"eth_address"`
	SubOrgID   string    `json:"sub_org_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserWallet is a row in the user_wallets table recording a provisioned
// custody wallet.
type UserWallet struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	WalletAddress string    `json:"wallet_address"`
	Network       string    `json:"network"`
	Provider      string    `json:"provider"`
	Provenance    string    `json:"provenance"`
	CreatedVia    string    `json:"created_via"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProvisionResult is the outcome of a wallet provisioning request.
type ProvisionResult struct {
	WalletAddress string
	SubOrgID      string
	Existing      bool // true when the profile already had a wallet
}

// SignatureParts are the r/s/v components returned by the custody service
// for a raw payload signature.
type SignatureParts struct {
	R string `json:"r"`
	S string `json:"s"`
	V string `json:"v"`
}
