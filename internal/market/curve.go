package market

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
)

// maxIntBits keeps intermediate results inside the sdkmath.Int range.
const maxIntBits = 255

// DefaultParams are the launch parameters used when none are configured:
// 0.0001 base currency per token at zero supply, rising 0.000001 per whole
// token minted, capped at one million tokens.
func DefaultParams() domain.MarketParams {
	return domain.MarketParams{
		BasePrice: sdkmath.NewInt(100_000_000_000_000),
		Slope:     sdkmath.NewInt(1_000_000_000_000),
		MaxSupply: sdkmath.NewInt(1_000_000).Mul(domain.Unit),
	}
}

// ValidateParams checks basePrice > 0, slope >= 0 and maxSupply > 0, all within domain bounds.
func ValidateParams(p domain.MarketParams) error {
	for _, v := range []struct {
		name string
		val  sdkmath.Int
	}{
		{"base price", p.BasePrice},
		{"slope", p.Slope},
		{"max supply", p.MaxSupply},
	} {
		if err := domain.CheckAmount(v.val); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidParams, v.name, err)
		}
	}
	if !p.BasePrice.IsPositive() {
		return fmt.Errorf("%w: base price must be positive", ErrInvalidParams)
	}
	if !p.MaxSupply.IsPositive() {
		return fmt.Errorf("%w: max supply must be positive", ErrInvalidParams)
	}
	return nil
}

// PriceAt returns basePrice + slope*supply/UNIT (truncating) for supply < maxSupply.
func PriceAt(p domain.MarketParams, supply sdkmath.Int) (sdkmath.Int, error) {
	if supply.GTE(p.MaxSupply) {
		return sdkmath.Int{}, ErrSupplyExhausted
	}
	r := new(big.Int).Mul(p.Slope.BigInt(), supply.BigInt())
	r.Quo(r, domain.Unit.BigInt())
	r.Add(r, p.BasePrice.BigInt())
	return toInt(r)
}

// TokensFor returns floor(payment * UNIT / price).
func TokensFor(payment, price sdkmath.Int) (sdkmath.Int, error) {
	return mulDiv(payment, domain.Unit, price)
}

// ProceedsFor returns floor(amount * price / UNIT).
func ProceedsFor(amount, price sdkmath.Int) (sdkmath.Int, error) {
	return mulDiv(amount, price, domain.Unit)
}

func mulDiv(a, b, c sdkmath.Int) (sdkmath.Int, error) {
	r := new(big.Int).Mul(a.BigInt(), b.BigInt())
	r.Quo(r, c.BigInt())
	return toInt(r)
}

func add(a, b sdkmath.Int) (sdkmath.Int, error) {
	return toInt(new(big.Int).Add(a.BigInt(), b.BigInt()))
}

func toInt(r *big.Int) (sdkmath.Int, error) {
	if r.BitLen() > maxIntBits {
		return sdkmath.Int{}, fmt.Errorf("%w: %d-bit intermediate", domain.ErrInvalidAmount, r.BitLen())
	}
	return sdkmath.NewIntFromBigInt(r), nil
}

// checkTradeAmount rejects negative and oversized inputs; zero is left to the caller.
func checkTradeAmount(v sdkmath.Int) error {
	if v.IsNil() {
		return nil
	}
	return domain.CheckAmount(v)
}
