// Package idgen generates the identifiers and secrets used across passportview.
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/rs/xid"
)

// NewRenderID identifies a single passport view. It ties together the log
// lines, the view log row and the X-Render-ID response header.
func NewRenderID() string {
	return xid.New().String()
}

// NewRequestID identifies an HTTP request
func NewRequestID() string {
	return xid.New().String()
}

// NewSecureSecret returns length URL-safe base64 characters of crypto/rand output.
func NewSecureSecret(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", length)
	}
	buf := make([]byte, base64.RawURLEncoding.DecodedLen(length)+1)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}
