package gateway

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// NewNonce generates the 128+ bit random nonce sent in challenge.
// base64-encoded so it round-trips as JSON text.
func NewNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SignChallenge computes the auth.signature a client sends: base64 of
// HMAC-SHA256(token, nonce). See DESIGN.md for why this HMAC scheme was
// chosen over bearer-token equality for the handshake's signing step.
func SignChallenge(token, nonce string) string {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write([]byte(nonce))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature and compares in
// constant time via hmac.Equal. If token is empty, any signature
// (including an empty one) is accepted — a Gateway with no configured
// token accepts any client.
func VerifySignature(token, nonce, signature string) bool {
	if token == "" {
		return true
	}
	expected := SignChallenge(token, nonce)
	return hmac.Equal([]byte(expected), []byte(signature))
}
