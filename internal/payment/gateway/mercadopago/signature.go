package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ValidateSignature checks the x-signature header against the raw request
// body. The header carries comma-separated pairs ("ts=...,v1=...") where v1
// is a hex HMAC-SHA256. The signed payload is "ts.body" when a timestamp is
// present, otherwise the body alone. Malformed input never panics, it just
// fails validation.
func ValidateSignature(signature string, rawBody []byte, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	ts, v1 := parseSignatureHeader(signature)
	if v1 == "" {
		return false
	}

	got, err := hex.DecodeString(v1)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	if ts != "" {
		mac.Write([]byte(ts))
		mac.Write([]byte("."))
	}
	mac.Write(rawBody)

	return hmac.Equal(got, mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts, v1 string) {
	parts := strings.Split(header, ",")
	if len(parts) == 1 && !strings.Contains(parts[0], "=") {
		// Bare hex digest with no key/value framing.
		return "", strings.TrimSpace(parts[0])
	}
	for _, part := range parts {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1
}
