package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
)

func signBody(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	if ts != "" {
		mac.Write([]byte(ts))
		mac.Write([]byte("."))
	}
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidateSignatureWithTimestamp(t *testing.T) {
	secret := "test_secret"
	body := []byte(`{"id":123,"type":"payment"}`)
	ts := "1700000000"

	header := fmt.Sprintf("ts=%s,v1=%s", ts, signBody(secret, ts, body))
	if !ValidateSignature(header, body, secret) {
		t.Fatalf("expected signature to validate")
	}
}

func TestValidateSignatureBareDigest(t *testing.T) {
	secret := "test_secret"
	body := []byte(`{"id":123}`)

	if !ValidateSignature(signBody(secret, "", body), body, secret) {
		t.Fatalf("expected bare digest to validate")
	}
}

func TestValidateSignatureRejectsTamperedBody(t *testing.T) {
	secret := "test_secret"
	body := []byte(`{"id":123}`)
	header := fmt.Sprintf("ts=1,v1=%s", signBody(secret, "1", body))

	if ValidateSignature(header, []byte(`{"id":999}`), secret) {
		t.Fatalf("expected tampered body to fail")
	}
}

func TestValidateSignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"id":123}`)
	header := fmt.Sprintf("v1=%s", signBody("secret_a", "", body))

	if ValidateSignature(header, body, "secret_b") {
		t.Fatalf("expected wrong secret to fail")
	}
}

func TestValidateSignatureMalformedInput(t *testing.T) {
	cases := []struct {
		name      string
		signature string
		secret    string
	}{
		{"empty signature", "", "secret"},
		{"empty secret", "v1=abcd", ""},
		{"non hex digest", "v1=zzzz", "secret"},
		{"missing v1", "ts=1700000000", "secret"},
		{"garbage", "not-a-header-at=all,,,", "secret"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if ValidateSignature(tc.signature, []byte("{}"), tc.secret) {
				t.Fatalf("expected validation to fail")
			}
		})
	}
}
