// Package service contains the orchestration layer between HTTP handlers
// and the custody/storage backends.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sequencetheory/sequence-backend/internal/domain"
	"github.com/sequencetheory/sequence-backend/internal/platform/turnkey"
)

// CustodyClient is the subset of the Turnkey client the wallet service
// needs. Declared here so tests can substitute a stub.
type CustodyClient interface {
	CreateSubOrganization(ctx context.Context, userID, email string) (turnkey.SubOrgWallet, error)
	CreateWallet(ctx context.Context, subOrgID, email string) (walletID, address string, err error)
	CreateOTPPolicy(ctx context.Context, subOrgID string) (string, error)
	InitOTP(ctx context.Context, subOrgID, email string) (string, error)
	VerifyOTP(ctx context.Context, subOrgID, otpID, otpCode string) error
	SignMessage(ctx context.Context, subOrgID, walletAddress, message string) (domain.SignatureParts, error)
	SignTransaction(ctx context.Context, subOrgID, walletAddress, unsignedTx string) (string, error)
}

// Notifier delivers operational events. May be nil.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string)
}

// WalletService provisions custody wallets and proxies OTP/signing
// operations, keeping the profiles and user_wallets tables in sync.
type WalletService struct {
	custody  CustodyClient
	profiles domain.ProfileStore
	wallets  domain.WalletStore
	notifier Notifier
	logger   *slog.Logger
}

// NewWalletService creates a WalletService. notifier may be nil.
func NewWalletService(
	custody CustodyClient,
	profiles domain.ProfileStore,
	wallets domain.WalletStore,
	notifier Notifier,
	logger *slog.Logger,
) *WalletService {
	return &WalletService{
		custody:  custody,
		profiles: profiles,
		wallets:  wallets,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "wallet_service")),
	}
}

// Provision returns the user's wallet address, creating a Turnkey
// sub-organization with an embedded wallet on first call. Provisioning is
// invisible to the user: no passkey or OTP ceremony is required up front.
func (s *WalletService) Provision(ctx context.Context, userID, email string) (domain.ProvisionResult, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err == nil && profile.EthAddress != "" {
		return domain.ProvisionResult{
			WalletAddress: profile.EthAddress,
			SubOrgID:      profile.SubOrgID,
			Existing:      true,
		}, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.ProvisionResult{}, fmt.Errorf("service: provision wallet: %w", err)
	}

	// A profile can hold a sub-org without a wallet when an earlier
	// provisioning attempt died between the two steps. Derive the wallet in
	// place instead of orphaning the sub-org.
	if err == nil && profile.SubOrgID != "" {
		_, address, werr := s.custody.CreateWallet(ctx, profile.SubOrgID, email)
		if werr != nil {
			return domain.ProvisionResult{}, fmt.Errorf("service: provision wallet: %w", werr)
		}
		return s.finishProvision(ctx, userID, profile.SubOrgID, address)
	}

	sw, err := s.custody.CreateSubOrganization(ctx, userID, email)
	if err != nil {
		return domain.ProvisionResult{}, fmt.Errorf("service: provision wallet: %w", err)
	}

	// The OTP policy lets the end user authenticate inside their own
	// sub-org later. Provisioning still succeeds without it; OTP init will
	// fail loudly if the policy is missing.
	if _, err := s.custody.CreateOTPPolicy(ctx, sw.SubOrgID); err != nil {
		s.logger.WarnContext(ctx, "otp policy creation failed",
			slog.String("user_id", userID),
			slog.String("sub_org_id", sw.SubOrgID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.profiles.UpsertSubOrg(ctx, userID, email, sw.SubOrgID); err != nil {
		return domain.ProvisionResult{}, fmt.Errorf("service: provision wallet: %w", err)
	}
	return s.finishProvision(ctx, userID, sw.SubOrgID, sw.Address)
}

// finishProvision records the wallet address on the profile and in the
// user_wallets audit table, then emits the provisioning event.
func (s *WalletService) finishProvision(ctx context.Context, userID, subOrgID, address string) (domain.ProvisionResult, error) {
	if err := s.profiles.UpdateEthAddress(ctx, userID, address); err != nil {
		return domain.ProvisionResult{}, fmt.Errorf("service: provision wallet: %w", err)
	}

	wallet := domain.UserWallet{
		ID:            uuid.New().String(),
		UserID:        userID,
		WalletAddress: address,
		Network:       "polygon",
		Provider:      "turnkey",
		Provenance:    "turnkey_invisible",
		CreatedVia:    "backend_api",
	}
	if err := s.wallets.Insert(ctx, wallet); err != nil {
		// The profile already points at the wallet; a missing audit row is
		// recoverable and must not fail the provisioning response.
		s.logger.ErrorContext(ctx, "wallet record insert failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "wallet provisioned",
		slog.String("user_id", userID),
		slog.String("sub_org_id", subOrgID),
		slog.String("address", address),
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx, "wallet_provisioned", "Wallet provisioned",
			fmt.Sprintf("user %s -> %s", userID, address))
	}

	return domain.ProvisionResult{
		WalletAddress: address,
		SubOrgID:      subOrgID,
	}, nil
}

// InitOTP starts an email OTP challenge for the user, provisioning a
// sub-organization first when none exists yet.
func (s *WalletService) InitOTP(ctx context.Context, userID, email string) (string, error) {
	subOrgID, err := s.ensureSubOrg(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("service: init otp: %w", err)
	}
	otpID, err := s.custody.InitOTP(ctx, subOrgID, email)
	if err != nil {
		return "", fmt.Errorf("service: init otp: %w", err)
	}
	return otpID, nil
}

// VerifyOTP completes an OTP challenge previously started with InitOTP.
func (s *WalletService) VerifyOTP(ctx context.Context, userID, otpID, otpCode string) error {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service: verify otp: %w", err)
	}
	if profile.SubOrgID == "" {
		return fmt.Errorf("service: verify otp: %w", domain.ErrNoSubOrganization)
	}
	if err := s.custody.VerifyOTP(ctx, profile.SubOrgID, otpID, otpCode); err != nil {
		return fmt.Errorf("service: verify otp: %w", err)
	}
	return nil
}

// SignMessage signs a personal message with the user's custody wallet.
func (s *WalletService) SignMessage(ctx context.Context, userID, message string) (domain.SignatureParts, error) {
	profile, err := s.signingProfile(ctx, userID)
	if err != nil {
		return domain.SignatureParts{}, fmt.Errorf("service: sign message: %w", err)
	}
	parts, err := s.custody.SignMessage(ctx, profile.SubOrgID, profile.EthAddress, message)
	if err != nil {
		return domain.SignatureParts{}, fmt.Errorf("service: sign message: %w", err)
	}
	return parts, nil
}

// SignTransaction signs an unsigned EVM transaction with the user's custody
// wallet and returns the signed RLP hex.
func (s *WalletService) SignTransaction(ctx context.Context, userID, unsignedTx string) (string, error) {
	profile, err := s.signingProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("service: sign transaction: %w", err)
	}
	signed, err := s.custody.SignTransaction(ctx, profile.SubOrgID, profile.EthAddress, unsignedTx)
	if err != nil {
		return "", fmt.Errorf("service: sign transaction: %w", err)
	}
	return signed, nil
}

// Wallets lists the wallets recorded for a user.
func (s *WalletService) Wallets(ctx context.Context, userID string) ([]domain.UserWallet, error) {
	wallets, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: list wallets: %w", err)
	}
	return wallets, nil
}

func (s *WalletService) ensureSubOrg(ctx context.Context, userID, email string) (string, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err == nil && profile.SubOrgID != "" {
		return profile.SubOrgID, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	result, err := s.Provision(ctx, userID, email)
	if err != nil {
		return "", err
	}
	return result.SubOrgID, nil
}

func (s *WalletService) signingProfile(ctx context.Context, userID string) (domain.Profile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	if profile.SubOrgID == "" {
		return domain.Profile{}, domain.ErrNoSubOrganization
	}
	if profile.EthAddress == "" {
		return domain.Profile{}, fmt.Errorf("profile %s has no wallet: %w", userID, domain.ErrNotFound)
	}
	return profile, nil
}
