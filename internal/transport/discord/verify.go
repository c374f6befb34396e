package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
)

const (
	headerSignature = "X-Signature-Ed25519"
	headerTimestamp = "X-Signature-Timestamp"
)

// Verify checks Discord's request signature: ed25519 over timestamp+body.
func Verify(key ed25519.PublicKey, h http.Header, body []byte) bool {
	if len(key) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(h.Get(headerSignature))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	ts := h.Get(headerTimestamp)
	if ts == "" {
		return false
	}
	msg := make([]byte, 0, len(ts)+len(body))
	msg = append(msg, ts...)
	msg = append(msg, body...)
	return ed25519.Verify(key, msg, sig)
}
