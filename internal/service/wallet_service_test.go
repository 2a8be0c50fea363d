package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sequencetheory/sequence-backend/internal/domain"
	"github.com/sequencetheory/sequence-backend/internal/platform/turnkey"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubCustody struct {
	subOrgCalls int
	walletCalls int
	policyErr   error
	otpID       string
	verifyErr   error
}

func (s *stubCustody) CreateSubOrganization(ctx context.Context, userID, email string) (turnkey.SubOrgWallet, error) {
	s.subOrgCalls++
	return turnkey.SubOrgWallet{
		SubOrgID: "suborg-" + userID,
		WalletID: "wallet-1",
		Address:  "0x1111111111111111111111111111111111111111",
	}, nil
}

func (s *stubCustody) CreateWallet(ctx context.Context, subOrgID, email string) (string, string, error) {
	s.walletCalls++
	return "wallet-2", "0x2222222222222222222222222222222222222222", nil
}

func (s *stubCustody) CreateOTPPolicy(ctx context.Context, subOrgID string) (string, error) {
	return "policy-1", s.policyErr
}

func (s *stubCustody) InitOTP(ctx context.Context, subOrgID, email string) (string, error) {
	if s.otpID == "" {
		return "otp-default", nil
	}
	return s.otpID, nil
}

func (s *stubCustody) VerifyOTP(ctx context.Context, subOrgID, otpID, otpCode string) error {
	return s.verifyErr
}

func (s *stubCustody) SignMessage(ctx context.Context, subOrgID, walletAddress, message string) (domain.SignatureParts, error) {
	return domain.SignatureParts{R: "r", S: "s", V: "00"}, nil
}

func (s *stubCustody) SignTransaction(ctx context.Context, subOrgID, walletAddress, unsignedTx string) (string, error) {
	return "0xsigned", nil
}

type memProfileStore struct {
	profiles map[string]domain.Profile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[string]domain.Profile)}
}

func (m *memProfileStore) GetByUserID(ctx context.Context, userID string) (domain.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memProfileStore) UpdateEthAddress(ctx context.Context, userID, ethAddress string) error {
	p, ok := m.profiles[userID]
	if !ok {
		return domain.ErrNotFound
	}
	p.EthAddress = ethAddress
	m.profiles[userID] = p
	return nil
}

func (m *memProfileStore) UpsertSubOrg(ctx context.Context, userID, email, subOrgID string) error {
	p := m.profiles[userID]
	p.UserID = userID
	p.Email = email
	p.SubOrgID = subOrgID
	m.profiles[userID] = p
	return nil
}

type memWalletStore struct {
	wallets []domain.UserWallet
}

func (m *memWalletStore) Insert(ctx context.Context, w domain.UserWallet) error {
	m.wallets = append(m.wallets, w)
	return nil
}

func (m *memWalletStore) ListByUser(ctx context.Context, userID string) ([]domain.UserWallet, error) {
	var out []domain.UserWallet
	for _, w := range m.wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func newTestService(custody *stubCustody) (*WalletService, *memProfileStore, *memWalletStore) {
	profiles := newMemProfileStore()
	wallets := &memWalletStore{}
	svc := NewWalletService(custody, profiles, wallets, nil, testLogger())
	return svc, profiles, wallets
}

func TestProvisionNewUser(t *testing.T) {
	custody := &stubCustody{}
	svc, profiles, wallets := newTestService(custody)

	result, err := svc.Provision(context.Background(), "user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if result.Existing {
		t.Error("new user reported as existing")
	}
	if result.WalletAddress != "0x1111111111111111111111111111111111111111" {
		t.Errorf("address = %s", result.WalletAddress)
	}
	if custody.subOrgCalls != 1 {
		t.Errorf("sub-org calls = %d, want 1", custody.subOrgCalls)
	}

	p := profiles.profiles["user-1"]
	if p.SubOrgID != "suborg-user-1" || p.EthAddress != result.WalletAddress {
		t.Errorf("profile not updated: %+v", p)
	}
	if len(wallets.wallets) != 1 {
		t.Fatalf("wallet rows = %d, want 1", len(wallets.wallets))
	}
	w := wallets.wallets[0]
	if w.Network != "polygon" || w.Provider != "turnkey" || w.ID == "" {
		t.Errorf("unexpected wallet row: %+v", w)
	}
}

func TestProvisionExistingWalletShortCircuits(t *testing.T) {
	custody := &stubCustody{}
	svc, profiles, _ := newTestService(custody)
	profiles.profiles["user-1"] = domain.Profile{
		UserID:     "user-1",
		SubOrgID:   "suborg-old",
		EthAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}

	result, err := svc.Provision(context.Background(), "user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !result.Existing {
		t.Error("existing wallet not flagged")
	}
	if result.WalletAddress != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("address = %s", result.WalletAddress)
	}
	if custody.subOrgCalls != 0 || custody.walletCalls != 0 {
		t.Errorf("custody touched for existing wallet: suborg=%d wallet=%d", custody.subOrgCalls, custody.walletCalls)
	}
}

func TestProvisionRepairsSubOrgWithoutWallet(t *testing.T) {
	custody := &stubCustody{}
	svc, profiles, _ := newTestService(custody)
	profiles.profiles["user-1"] = domain.Profile{
		UserID:   "user-1",
		SubOrgID: "suborg-orphan",
	}

	result, err := svc.Provision(context.Background(), "user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if custody.subOrgCalls != 0 {
		t.Errorf("created a second sub-org for a user that already has one")
	}
	if custody.walletCalls != 1 {
		t.Errorf("wallet calls = %d, want 1", custody.walletCalls)
	}
	if result.SubOrgID != "suborg-orphan" {
		t.Errorf("sub-org = %s, want the existing one", result.SubOrgID)
	}
	if result.WalletAddress != "0x2222222222222222222222222222222222222222" {
		t.Errorf("address = %s", result.WalletAddress)
	}
}

func TestProvisionSurvivesOTPPolicyFailure(t *testing.T) {
	custody := &stubCustody{policyErr: errors.New("policy api down")}
	svc, _, _ := newTestService(custody)

	result, err := svc.Provision(context.Background(), "user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("Provision failed on best-effort policy step: %v", err)
	}
	if result.WalletAddress == "" {
		t.Error("no wallet address returned")
	}
}

func TestInitOTPProvisionsMissingSubOrg(t *testing.T) {
	custody := &stubCustody{otpID: "otp-42"}
	svc, profiles, _ := newTestService(custody)

	otpID, err := svc.InitOTP(context.Background(), "user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("InitOTP: %v", err)
	}
	if otpID != "otp-42" {
		t.Errorf("otp id = %s, want otp-42", otpID)
	}
	if custody.subOrgCalls != 1 {
		t.Errorf("sub-org calls = %d, want 1 (provision on demand)", custody.subOrgCalls)
	}
	if profiles.profiles["user-1"].SubOrgID == "" {
		t.Error("sub-org not persisted")
	}
}

func TestVerifyOTPWithoutSubOrg(t *testing.T) {
	custody := &stubCustody{}
	svc, profiles, _ := newTestService(custody)
	profiles.profiles["user-1"] = domain.Profile{UserID: "user-1"}

	err := svc.VerifyOTP(context.Background(), "user-1", "otp-1", "123456")
	if !errors.Is(err, domain.ErrNoSubOrganization) {
		t.Fatalf("err = %v, want ErrNoSubOrganization", err)
	}
}

func TestSignMessageRequiresWallet(t *testing.T) {
	custody := &stubCustody{}
	svc, profiles, _ := newTestService(custody)

	if _, err := svc.SignMessage(context.Background(), "ghost", "hello"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for unknown user", err)
	}

	profiles.profiles["user-1"] = domain.Profile{UserID: "user-1", SubOrgID: "suborg-1"}
	if _, err := svc.SignMessage(context.Background(), "user-1", "hello"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for profile without wallet", err)
	}
}

func TestSignTransaction(t *testing.T) {
	custody := &stubCustody{}
	svc, profiles, _ := newTestService(custody)
	profiles.profiles["user-1"] = domain.Profile{
		UserID:     "user-1",
		SubOrgID:   "suborg-1",
		EthAddress: "0x1111111111111111111111111111111111111111",
	}

	signed, err := svc.SignTransaction(context.Background(), "user-1", "0x02f86c0180")
	if err != nil {
		t.Fatalf("SignTransaction: %v", err)
	}
	if signed != "0xsigned" {
		t.Errorf("signed = %s", signed)
	}
}
