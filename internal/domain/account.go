package domain

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountSize is the byte length of an account identifier.
const AccountSize = 32

// ErrInvalidAccount is returned when an account string cannot be decoded.
var ErrInvalidAccount = errors.New("invalid account")

// Account identifies a participant, a market or a program.
// Text form is base58 (Bitcoin alphabet), the same encoding Solana uses for public keys.
type Account [AccountSize]byte

// ZeroAccount is the null account. It never owns balances or votes.
var ZeroAccount Account

// IsZero reports whether a is the null account.
func (a Account) IsZero() bool {
	return a == ZeroAccount
}

// String returns the base58 form of the account.
func (a Account) String() string {
	return base58.Encode(a[:])
}

// Bytes returns a copy of the raw account bytes.
func (a Account) Bytes() []byte {
	b := make([]byte, AccountSize)
	copy(b, a[:])
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Account) UnmarshalText(text []byte) error {
	parsed, err := ParseAccount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAccount decodes a base58 account string.
func ParseAccount(s string) (Account, error) {
	if s == "" {
		return ZeroAccount, fmt.Errorf("%w: empty", ErrInvalidAccount)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return ZeroAccount, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	return AccountFromBytes(raw)
}

// MustParseAccount is like ParseAccount but panics on error.
// Intended for constants and tests.
func MustParseAccount(s string) Account {
	a, err := ParseAccount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AccountFromBytes copies a 32-byte slice into an Account.
func AccountFromBytes(b []byte) (Account, error) {
	var a Account
	if len(b) != AccountSize {
		return a, fmt.Errorf("%w: length %d, want %d", ErrInvalidAccount, len(b), AccountSize)
	}
	copy(a[:], b)
	return a, nil
}
