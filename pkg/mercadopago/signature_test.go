package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
)

func signManifest(secret, dataID, requestID, ts string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHMACVerifierAcceptsValidSignature(t *testing.T) {
	secret := "whsec_test"
	v1 := signManifest(secret, "12345", "req-1", "1700000000")
	header := fmt.Sprintf("ts=1700000000,v1=%s", v1)

	verifier := NewHMACVerifier(secret)
	if !verifier.Verify(header, "req-1", "12345") {
		t.Fatal("expected valid signature to verify")
	}
}

func TestHMACVerifierLowercasesDataID(t *testing.T) {
	secret := "whsec_test"
	v1 := signManifest(secret, "abcdef", "req-1", "1700000000")
	header := fmt.Sprintf("ts=1700000000,v1=%s", v1)

	verifier := NewHMACVerifier(secret)
	if !verifier.Verify(header, "req-1", "ABCDEF") {
		t.Fatal("expected data id to be lowercased before signing")
	}
}

func TestHMACVerifierRejectsTamperedPayload(t *testing.T) {
	secret := "whsec_test"
	v1 := signManifest(secret, "12345", "req-1", "1700000000")
	header := fmt.Sprintf("ts=1700000000,v1=%s", v1)

	verifier := NewHMACVerifier(secret)
	if verifier.Verify(header, "req-1", "99999") {
		t.Fatal("expected signature mismatch on altered data id")
	}
	if verifier.Verify(header, "req-other", "12345") {
		t.Fatal("expected signature mismatch on altered request id")
	}
}

func TestHMACVerifierRejectsMalformedHeader(t *testing.T) {
	verifier := NewHMACVerifier("whsec_test")
	if verifier.Verify("", "req-1", "12345") {
		t.Fatal("expected empty header to fail")
	}
	if verifier.Verify("ts=1700000000", "req-1", "12345") {
		t.Fatal("expected header without v1 to fail")
	}
	if verifier.Verify("garbage", "req-1", "12345") {
		t.Fatal("expected garbage header to fail")
	}
}

func TestHMACVerifierRequiresSecret(t *testing.T) {
	verifier := NewHMACVerifier("")
	if verifier.Verify("ts=1,v1=abc", "req-1", "12345") {
		t.Fatal("expected missing secret to fail closed")
	}
}
