package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrInvalidWebhookSignature is returned when a callback fails HMAC
// verification or lacks the signature headers entirely.
var ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

func hmacSHA256Hex(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyHex compares a hex-encoded signature against the expected HMAC in
// constant time.
func verifyHex(secret string, msg []byte, gotHex string) error {
	if gotHex == "" {
		return ErrInvalidWebhookSignature
	}
	want := hmacSHA256Hex(secret, msg)
	if !hmac.Equal([]byte(want), []byte(gotHex)) {
		return ErrInvalidWebhookSignature
	}
	return nil
}
