package domain

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// UnitDecimals is the fixed-point scale shared by the base currency and every market token.
const UnitDecimals = 18

// MaxAmountBits bounds any externally supplied amount so that
// amount*Unit stays well inside the 256-bit range of sdkmath.Int.
const MaxAmountBits = 192

// Unit is one whole token (or one whole unit of base currency) in base units.
var Unit = sdkmath.NewIntWithDecimal(1, UnitDecimals)

// ErrInvalidAmount is returned when an amount string is malformed, negative or too large.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a non-negative integer amount in base units.
func ParseAmount(s string) (sdkmath.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := CheckAmount(v); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return v, nil
}

// CheckAmount validates that v is non-nil, non-negative and within MaxAmountBits.
func CheckAmount(v sdkmath.Int) error {
	if v.IsNil() {
		return fmt.Errorf("%w: nil", ErrInvalidAmount)
	}
	if v.IsNegative() {
		return fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	if v.BigInt().BitLen() > MaxAmountBits {
		return fmt.Errorf("%w: exceeds %d bits", ErrInvalidAmount, MaxAmountBits)
	}
	return nil
}

// ParseUnits parses a whole-unit decimal string such as "1.5" into base units.
// Digits beyond UnitDecimals are truncated.
func ParseUnits(s string) (sdkmath.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	scaled := d.Shift(UnitDecimals).Truncate(0)
	v := sdkmath.NewIntFromBigInt(scaled.BigInt())
	if err := CheckAmount(v); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return v, nil
}

// FormatUnits renders a base-unit amount as whole units, e.g. 1500000000000000000 -> "1.5".
// Presentation only; never feed the result back into arithmetic.
func FormatUnits(v sdkmath.Int) string {
	if v.IsNil() {
		return "0"
	}
	return decimal.NewFromBigInt(v.BigInt(), -UnitDecimals).String()
}
