package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const referencePrefix = "TX-"

// NewReference returns a transaction reference: "TX-" followed by
// 8 lowercase hex characters from crypto/rand.
func NewReference() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	return referencePrefix + hex.EncodeToString(b), nil
}
