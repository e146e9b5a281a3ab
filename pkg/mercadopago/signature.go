package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignatureVerifier validates that a webhook delivery originated from the
// processor. The scheme is pluggable so tests and future signature versions
// can swap implementations.
type SignatureVerifier interface {
	Verify(xSignature, xRequestID, dataID string) bool
}

// HMACVerifier implements the processor's x-signature scheme: the header
// carries "ts=<unix>,v1=<hex hmac>" and the signed manifest is
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
type HMACVerifier struct {
	secret string
}

// NewHMACVerifier builds a verifier for the given signing secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

// Verify checks the v1 signature against the reconstructed manifest.
func (v *HMACVerifier) Verify(xSignature, xRequestID, dataID string) bool {
	if v == nil || v.secret == "" || xSignature == "" {
		return false
	}

	ts, v1 := parseSignatureHeader(xSignature)
	if ts == "" || v1 == "" {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), xRequestID, ts)
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(v1))
}

func parseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1
}
