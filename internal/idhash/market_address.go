package idhash

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"

	"token-launchpad/internal/domain"
)

// pdaMarker is appended to every derivation, as Solana does for program-derived addresses.
const pdaMarker = "ProgramDerivedAddress"

// marketSeed namespaces market addresses under the launchpad program.
const marketSeed = "market"

// DefaultProgramID is used when no program id is configured.
var DefaultProgramID = domain.Account(sha256.Sum256([]byte("token-launchpad")))

// ErrNoViableBump is returned when every bump seed yields an on-curve point.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// DeriveMarketAddress derives the market address for a request.
// Formula: SHA256("market"|request_id|bump|program_id|"ProgramDerivedAddress"),
// trying bump from 255 down to 0 and taking the first hash that is NOT a valid
// ed25519 point, so no private key can ever sign for the market account.
func DeriveMarketAddress(programID domain.Account, requestID domain.RequestID) (domain.Account, uint8, error) {
	return FindProgramAddress([][]byte{[]byte(marketSeed), []byte(requestID)}, programID)
}

// FindProgramAddress returns the first off-curve address for seeds and the bump used.
func FindProgramAddress(seeds [][]byte, programID domain.Account) (domain.Account, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr := createProgramAddress(seeds, uint8(bump), programID)
		if !IsOnCurve(addr) {
			return addr, uint8(bump), nil
		}
	}
	return domain.ZeroAccount, 0, ErrNoViableBump
}

func createProgramAddress(seeds [][]byte, bump uint8, programID domain.Account) domain.Account {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr domain.Account
	copy(addr[:], h.Sum(nil))
	return addr
}

// IsOnCurve reports whether a decodes to a point on the ed25519 curve.
func IsOnCurve(a domain.Account) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
