package turnkey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
)

// stampHeader is the HTTP header carrying the request signature.
const stampHeader = "X-Stamp"

const signatureScheme = "SIGNATURE_SCHEME_TK_API_P256"

// Stamper signs Turnkey request bodies with the organization's P-256 API
// key. The stamp is a base64url-encoded JSON object placed in the X-Stamp
// header; Turnkey verifies it against the registered public key.
type Stamper struct {
	publicKeyHex string
	privateKey   *ecdsa.PrivateKey
}

// NewStamper derives a P-256 key pair from the hex-encoded private scalar
// and validates it against the configured compressed public key, mirroring
// the check Turnkey itself performs.
func NewStamper(publicKeyHex, privateKeyHex string) (*Stamper, error) {
	d, ok := new(big.Int).SetString(privateKeyHex, 16)
	if !ok {
		return nil, fmt.Errorf("turnkey: private key is not valid hex")
	}

	curve := elliptic.P256()
	if d.Sign() <= 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("turnkey: private key scalar out of range")
	}

	priv := &ecdsa.PrivateKey{D: d}
	priv.PublicKey.Curve = curve
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(d.Bytes())

	derived := hex.EncodeToString(elliptic.MarshalCompressed(curve, priv.PublicKey.X, priv.PublicKey.Y))
	if derived != publicKeyHex {
		return nil, fmt.Errorf("turnkey: api key mismatch: expected public key %s, derived %s", publicKeyHex, derived)
	}

	return &Stamper{
		publicKeyHex: publicKeyHex,
		privateKey:   priv,
	}, nil
}

// stamp signs the exact request body bytes and returns the X-Stamp header
// value.
func (s *Stamper) stamp(body []byte) (string, error) {
	digest := sha256.Sum256(body)
	sig, err := ecdsa.SignASN1(rand.Reader, s.privateKey, digest[:])
	if err != nil {
		return "", fmt.Errorf("turnkey: sign request: %w", err)
	}

	stamp := struct {
		PublicKey string `json:"publicKey"`
		Scheme    string `json:"scheme"`
		Signature string `json:"signature"`
	}{
		PublicKey: s.publicKeyHex,
		Scheme:    signatureScheme,
		Signature: hex.EncodeToString(sig),
	}

	encoded, err := json.Marshal(stamp)
	if err != nil {
		return "", fmt.Errorf("turnkey: marshal stamp: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(encoded), nil
}
