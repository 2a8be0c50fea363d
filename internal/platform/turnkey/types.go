package turnkey

// activityRequest is the common envelope for every submitted activity.
type activityRequest struct {
	Type           string `json:"type"`
	TimestampMs    string `json:"timestampMs"`
	OrganizationID string `json:"organizationId"`
	Parameters     any    `json:"parameters"`
}

// Activity is the response envelope. Result carries one populated field
// depending on the activity type; older result versions are tolerated where
// the API still returns them.
type Activity struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Result ActivityResult `json:"result"`
}

// ActivityResult unions the result shapes this service reads.
type ActivityResult struct {
	CreateSubOrganizationResultV7 *SubOrgResult     `json:"createSubOrganizationResultV7"`
	CreateSubOrganizationResultV4 *SubOrgResult     `json:"createSubOrganizationResultV4"`
	CreateWalletResult            *WalletResult     `json:"createWalletResult"`
	InitOtpAuthResultV2           *InitOTPResult    `json:"initOtpAuthResultV2"`
	InitOtpAuthResult             *InitOTPResult    `json:"initOtpAuthResult"`
	OtpAuthResult                 *OTPAuthResult    `json:"otpAuthResult"`
	CreatePolicyResult            *PolicyResult     `json:"createPolicyResult"`
	SignRawPayloadResult          *SignResult       `json:"signRawPayloadResult"`
	SignTransactionResult         *SignTxResult     `json:"signTransactionResult"`
}

// subOrgResult returns whichever sub-organization result version the API
// populated.
func (r ActivityResult) subOrgResult() *SubOrgResult {
	if r.CreateSubOrganizationResultV7 != nil {
		return r.CreateSubOrganizationResultV7
	}
	return r.CreateSubOrganizationResultV4
}

// initOTPResult returns whichever init-OTP result version is populated.
func (r ActivityResult) initOTPResult() *InitOTPResult {
	if r.InitOtpAuthResultV2 != nil {
		return r.InitOtpAuthResultV2
	}
	return r.InitOtpAuthResult
}

// SubOrgResult is the result of a CREATE_SUB_ORGANIZATION activity.
type SubOrgResult struct {
	SubOrganizationID string `json:"subOrganizationId"`
	Wallet            *struct {
		WalletID  string   `json:"walletId"`
		Addresses []string `json:"addresses"`
	} `json:"wallet"`
	RootUserIDs []string `json:"rootUserIds"`
}

// WalletResult is the result of a CREATE_WALLET activity.
type WalletResult struct {
	WalletID  string   `json:"walletId"`
	Addresses []string `json:"addresses"`
}

// InitOTPResult is the result of an INIT_OTP_AUTH activity.
type InitOTPResult struct {
	OtpID string `json:"otpId"`
}

// OTPAuthResult is the result of an OTP_AUTH activity.
type OTPAuthResult struct {
	UserID         string `json:"userId"`
	APIKeyID       string `json:"apiKeyId"`
	CredentialID   string `json:"credentialId"`
}

// PolicyResult is the result of a CREATE_POLICY activity.
type PolicyResult struct {
	PolicyID string `json:"policyId"`
}

// SignResult carries the r/s/v signature components of a signed payload.
type SignResult struct {
	R string `json:"r"`
	S string `json:"s"`
	V string `json:"v"`
}

// SignTxResult carries a fully signed transaction blob.
type SignTxResult struct {
	SignedTransaction string `json:"signedTransaction"`
}

// walletAccount describes the single Ethereum account derived in every
// wallet this service creates.
type walletAccount struct {
	Curve         string `json:"curve"`
	PathFormat    string `json:"pathFormat"`
	Path          string `json:"path"`
	AddressFormat string `json:"addressFormat"`
}

func ethereumAccount() walletAccount {
	return walletAccount{
		Curve:         "CURVE_SECP256K1",
		PathFormat:    "PATH_FORMAT_BIP32",
		Path:          "m/44'/60'/0'/0/0",
		AddressFormat: "ADDRESS_FORMAT_ETHEREUM",
	}
}
