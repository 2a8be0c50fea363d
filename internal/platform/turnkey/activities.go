package turnkey

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

// otpPolicyCondition allows only OTP activities to be initiated by the
// end user inside their sub-organization.
const otpPolicyCondition = "activity.type == 'ACTIVITY_TYPE_INIT_OTP_AUTH' || activity.type == 'ACTIVITY_TYPE_OTP_AUTH'"

// SubOrgWallet is the outcome of provisioning a sub-organization with an
// embedded wallet.
type SubOrgWallet struct {
	SubOrgID string
	WalletID string
	Address  string
}

// CreateSubOrganization provisions a sub-organization for the user with one
// embedded Ethereum wallet. The root user is the email identity only; the
// parent organization's API key retains management access.
func (c *Client) CreateSubOrganization(ctx context.Context, userID, email string) (SubOrgWallet, error) {
	userName := fmt.Sprintf("user-%s", shortID(userID))
	if at := strings.IndexByte(email, '@'); at > 0 {
		userName = email[:at]
	}
	if email == "" {
		email = fmt.Sprintf("user-%s@sequencetheory.app", shortID(userID))
	}

	body := activityRequest{
		Type:           "ACTIVITY_TYPE_CREATE_SUB_ORGANIZATION_V7",
		TimestampMs:    timestampMs(),
		OrganizationID: c.orgID,
		Parameters: map[string]any{
			"subOrganizationName": fmt.Sprintf("User-%s", shortID(userID)),
			"rootUsers": []map[string]any{{
				"userName":       userName,
				"userEmail":      email,
				"apiKeys":        []any{},
				"authenticators": []any{},
				"oauthProviders": []any{},
			}},
			"rootQuorumThreshold": 1,
			"wallet": map[string]any{
				"walletName": "Polygon Wallet",
				"accounts":   []walletAccount{ethereumAccount()},
			},
		},
	}

	activity, err := c.submit(ctx, "/public/v1/submit/create_sub_organization", body)
	if err != nil {
		return SubOrgWallet{}, fmt.Errorf("turnkey: create sub-organization: %w", err)
	}

	result := activity.Result.subOrgResult()
	if result == nil || result.Wallet == nil || len(result.Wallet.Addresses) == 0 {
		return SubOrgWallet{}, fmt.Errorf("turnkey: create sub-organization: no wallet address in result (activity %s)", activity.ID)
	}

	return SubOrgWallet{
		SubOrgID: result.SubOrganizationID,
		WalletID: result.Wallet.WalletID,
		Address:  result.Wallet.Addresses[0],
	}, nil
}

// CreateWallet derives a new Ethereum wallet inside an existing
// sub-organization.
func (c *Client) CreateWallet(ctx context.Context, subOrgID, email string) (walletID, address string, err error) {
	body := activityRequest{
		Type:           "ACTIVITY_TYPE_CREATE_WALLET",
		TimestampMs:    timestampMs(),
		OrganizationID: subOrgID,
		Parameters: map[string]any{
			"walletName": fmt.Sprintf("Wallet: %s", email),
			"accounts":   []walletAccount{ethereumAccount()},
		},
	}

	activity, err := c.submit(ctx, "/public/v1/submit/create_wallet", body)
	if err != nil {
		return "", "", fmt.Errorf("turnkey: create wallet: %w", err)
	}

	result := activity.Result.CreateWalletResult
	if result == nil || result.WalletID == "" || len(result.Addresses) == 0 {
		return "", "", fmt.Errorf("turnkey: create wallet: empty result (activity %s)", activity.ID)
	}
	return result.WalletID, result.Addresses[0], nil
}

// CreateOTPPolicy installs the allow policy that lets the sub-organization's
// root user run OTP activities without parent-organization quorum.
func (c *Client) CreateOTPPolicy(ctx context.Context, subOrgID string) (string, error) {
	body := activityRequest{
		Type:           "ACTIVITY_TYPE_CREATE_POLICY",
		TimestampMs:    timestampMs(),
		OrganizationID: subOrgID,
		Parameters: map[string]any{
			"policyName": "Allow email OTP auth",
			"effect":     "EFFECT_ALLOW",
			"condition":  otpPolicyCondition,
		},
	}

	activity, err := c.submit(ctx, "/public/v1/submit/create_policy", body)
	if err != nil {
		return "", fmt.Errorf("turnkey: create otp policy: %w", err)
	}
	if activity.Result.CreatePolicyResult == nil {
		return "", fmt.Errorf("turnkey: create otp policy: empty result (activity %s)", activity.ID)
	}
	return activity.Result.CreatePolicyResult.PolicyID, nil
}

// InitOTP starts an email OTP challenge for the user. The activity must
// target the user's sub-organization, never the parent.
func (c *Client) InitOTP(ctx context.Context, subOrgID, email string) (string, error) {
	if subOrgID == "" {
		return "", fmt.Errorf("turnkey: init otp: %w", domain.ErrNoSubOrganization)
	}

	body := activityRequest{
		Type:           "ACTIVITY_TYPE_INIT_OTP_AUTH",
		TimestampMs:    timestampMs(),
		OrganizationID: subOrgID,
		Parameters: map[string]any{
			"otpType": "OTP_TYPE_EMAIL",
			"contact": email,
			"emailCustomization": map[string]any{
				"appName": "Sequence Theory",
			},
			"expirationSeconds": "600",
		},
	}

	activity, err := c.submit(ctx, "/public/v1/submit/init_otp_auth", body)
	if err != nil {
		return "", fmt.Errorf("turnkey: init otp: %w", err)
	}

	result := activity.Result.initOTPResult()
	if result == nil || result.OtpID == "" {
		return "", fmt.Errorf("turnkey: init otp: no otpId in result (activity %s, status %s)", activity.ID, activity.Status)
	}
	return result.OtpID, nil
}

// VerifyOTP completes an OTP challenge. It returns a nil error only when
// Turnkey confirmed the code.
func (c *Client) VerifyOTP(ctx context.Context, subOrgID, otpID, otpCode string) error {
	if subOrgID == "" {
		return fmt.Errorf("turnkey: verify otp: %w", domain.ErrNoSubOrganization)
	}

	body := activityRequest{
		Type:           "ACTIVITY_TYPE_OTP_AUTH",
		TimestampMs:    timestampMs(),
		OrganizationID: subOrgID,
		Parameters: map[string]any{
			"otpId":   otpID,
			"otpCode": otpCode,
		},
	}

	activity, err := c.submit(ctx, "/public/v1/submit/otp_auth", body)
	if err != nil {
		return fmt.Errorf("turnkey: verify otp: %w", err)
	}
	if activity.Result.OtpAuthResult == nil {
		return fmt.Errorf("turnkey: verify otp: verification failed (activity %s, status %s)", activity.ID, activity.Status)
	}
	return nil
}

// SignMessage signs a human-readable message with the user's wallet key.
// The message is hashed locally with the Ethereum personal-message prefix so
// Turnkey signs the exact digest wallets and verifiers expect.
func (c *Client) SignMessage(ctx context.Context, subOrgID, walletAddress, message string) (domain.SignatureParts, error) {
	if !common.IsHexAddress(walletAddress) {
		return domain.SignatureParts{}, fmt.Errorf("turnkey: sign message: invalid wallet address %q", walletAddress)
	}

	digest := accounts.TextHash([]byte(message))
	return c.SignRawPayload(ctx, subOrgID, walletAddress, hexutil.Encode(digest), "HASH_FUNCTION_NO_OP")
}

// SignRawPayload signs an arbitrary hex payload with the wallet key.
func (c *Client) SignRawPayload(ctx context.Context, subOrgID, walletAddress, payloadHex, hashFunction string) (domain.SignatureParts, error) {
	if subOrgID == "" {
		return domain.SignatureParts{}, fmt.Errorf("turnkey: sign payload: %w", domain.ErrNoSubOrganization)
	}
	if hashFunction == "" {
		hashFunction = "HASH_FUNCTION_KECCAK256"
	}

	body := activityRequest{
		Type:           "ACTIVITY_TYPE_SIGN_RAW_PAYLOAD_V2",
		TimestampMs:    timestampMs(),
		OrganizationID: subOrgID,
		Parameters: map[string]any{
			"signWith":     walletAddress,
			"payload":      payloadHex,
			"encoding":     "PAYLOAD_ENCODING_HEXADECIMAL",
			"hashFunction": hashFunction,
		},
	}

	activity, err := c.submit(ctx, "/public/v1/submit/sign_raw_payload", body)
	if err != nil {
		return domain.SignatureParts{}, fmt.Errorf("turnkey: sign payload: %w", err)
	}

	result := activity.Result.SignRawPayloadResult
	if result == nil {
		return domain.SignatureParts{}, fmt.Errorf("turnkey: sign payload: no signature in result (activity %s)", activity.ID)
	}
	return domain.SignatureParts{R: result.R, S: result.S, V: result.V}, nil
}

// SignTransaction signs an unsigned EVM transaction blob and returns the
// signed RLP hex.
func (c *Client) SignTransaction(ctx context.Context, subOrgID, walletAddress, unsignedTx string) (string, error) {
	if subOrgID == "" {
		return "", fmt.Errorf("turnkey: sign transaction: %w", domain.ErrNoSubOrganization)
	}
	if !common.IsHexAddress(walletAddress) {
		return "", fmt.Errorf("turnkey: sign transaction: invalid wallet address %q", walletAddress)
	}

	body := activityRequest{
		Type:           "ACTIVITY_TYPE_SIGN_TRANSACTION_V2",
		TimestampMs:    timestampMs(),
		OrganizationID: subOrgID,
		Parameters: map[string]any{
			"signWith":            walletAddress,
			"unsignedTransaction": unsignedTx,
			"type":                "TRANSACTION_TYPE_ETHEREUM",
		},
	}

	activity, err := c.submit(ctx, "/public/v1/submit/sign_transaction", body)
	if err != nil {
		return "", fmt.Errorf("turnkey: sign transaction: %w", err)
	}

	result := activity.Result.SignTransactionResult
	if result == nil || result.SignedTransaction == "" {
		return "", fmt.Errorf("turnkey: sign transaction: empty result (activity %s)", activity.ID)
	}
	return result.SignedTransaction, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
