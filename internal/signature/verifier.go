// Package signature implements shared-secret HMAC authentication for
// inbound webhooks. Signatures are computed over the exact raw request
// body bytes, never a re-serialized form.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Header is the HTTP header carrying the webhook signature.
const Header = "X-Webhook-Signature"

// Prefix identifies the signature algorithm on the wire.
const Prefix = "sha256="

// Sign computes the HMAC-SHA256 signature of payload under secret and
// returns it in wire format: "sha256=<lowercase hex>".
func Sign(payload, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return Prefix + hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether provided is a valid signature for payload under
// secret. A missing or malformed signature is a verification failure, not
// an error; the comparison itself is constant-time.
func Verify(payload []byte, provided string, secret []byte) bool {
	if !strings.HasPrefix(provided, Prefix) {
		return false
	}

	given := strings.TrimPrefix(provided, Prefix)

	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	expected := hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(given))
}
