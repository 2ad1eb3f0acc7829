package random

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// referral codes are 8 random bytes, URL-safe base64 without padding
const codeBytes = 8

// Code generates an opaque URL-safe referral code. The code space is large
// enough that collisions are practically impossible, but callers still treat
// a unique-constraint violation as retryable.
func Code() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
