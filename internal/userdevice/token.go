package userdevice

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewToken returns a random approval token of TokenLength hex characters.
func NewToken() (string, error) {
	b := make([]byte, TokenLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate approval token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
