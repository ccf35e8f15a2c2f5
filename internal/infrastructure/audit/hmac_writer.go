package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignAuditEvent returns the base64 HMAC-SHA256 of an encoded audit event.
func SignAuditEvent(payload []byte, secretKey string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VerifyAuditSignature checks a signature produced by SignAuditEvent in constant time.
func VerifyAuditSignature(payload []byte, signature, secretKey string) bool {
	expected := SignAuditEvent(payload, secretKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}
