package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"token-launchpad/internal/domain"
)

// ComputeRequestID computes a deterministic request key using SHA256.
// Formula: SHA256(name|symbol|creator|nonce)
// The nonce is a registry-wide sequence number, so two identical
// (name, symbol, creator) submissions never share a key.
// Returns hex-encoded hash (64 characters).
func ComputeRequestID(
	name string,
	symbol string,
	creator domain.Account,
	nonce uint64,
) domain.RequestID {
	data := fmt.Sprintf("%s|%s|%s|%d",
		name,
		symbol,
		creator.String(),
		nonce,
	)

	hash := sha256.Sum256([]byte(data))
	return domain.RequestID(hex.EncodeToString(hash[:]))
}
