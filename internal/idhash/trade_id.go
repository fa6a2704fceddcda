package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"token-launchpad/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(market|seq)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	market domain.Account,
	seq int64,
) string {
	data := fmt.Sprintf("%s|%d",
		market.String(),
		seq,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
