// Package utils provides utility functions for the OIDC protocol core.
// This file contains cryptographically secure random value generation.
package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomString returns a URL-safe random string of exactly length characters
// drawn from crypto/rand.
func RandomString(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("random string length must be positive: %d", length)
	}
	// base64 yields 4 characters per 3 bytes
	buf := make([]byte, (length*3)/4+3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}
