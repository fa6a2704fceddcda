// Package verification reconciles market state against the base ledger, the token
// ledger and the stored trade history, and verifies the audit log hash chain.
package verification

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/market"
)

// FieldDivergence represents a mismatch between an expected and an observed value.
type FieldDivergence struct {
	Field    string      // field name, e.g. "Reserve" or "Trade[3].SupplyAfter"
	Expected interface{} // value derived from the source of truth
	Actual   interface{} // value observed
}

func (d FieldDivergence) String() string {
	return fmt.Sprintf("%s: expected %v, got %v", d.Field, d.Expected, d.Actual)
}

// MarketResult contains the result of reconciling a single market.
type MarketResult struct {
	Market      domain.Account    // market address
	Symbol      string            // token symbol
	Match       bool              // true if no divergences
	Divergences []FieldDivergence // list of divergent fields
	TradesSeen  int               // trades replayed from history
}

// Report contains results for all markets.
type Report struct {
	TotalMarkets     int            // markets reconciled
	MatchedMarkets   int            // markets without divergences
	DivergentMarkets int            // markets with divergences
	Results          []MarketResult // individual results, directory order
}

// Verifier reconciles markets.
type Verifier interface {
	// VerifyMarket reconciles one market by address.
	VerifyMarket(ctx context.Context, address domain.Account) (*MarketResult, error)

	// VerifyAll reconciles every market in the directory.
	VerifyAll(ctx context.Context) (*Report, error)
}

// CompareHistory replays trades (ordered by seq) from an empty market with params
// and compares every step, and the final totals, against state.
func CompareHistory(params domain.MarketParams, trades []*domain.Trade, state domain.MarketState) []FieldDivergence {
	var divergences []FieldDivergence
	diverge := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	supply := sdkmath.ZeroInt()
	reserve := sdkmath.ZeroInt()

	for i, t := range trades {
		prefix := fmt.Sprintf("Trade[%d]", i+1)

		if t.Seq != int64(i+1) {
			diverge(prefix+".Seq", int64(i+1), t.Seq)
		}
		if t.Market != state.Address {
			diverge(prefix+".Market", state.Address, t.Market)
		}

		price, err := market.PriceAt(params, supply)
		if err != nil {
			diverge(prefix+".Price", err.Error(), t.Price)
			return divergences
		}
		if !t.Price.Equal(price) {
			diverge(prefix+".Price", price, t.Price)
		}

		switch t.Side {
		case domain.TradeSideBuy:
			minted, err := market.TokensFor(t.BaseAmount, price)
			if err == nil && !t.TokenAmount.Equal(minted) {
				diverge(prefix+".TokenAmount", minted, t.TokenAmount)
			}
			supply = supply.Add(t.TokenAmount)
			reserve = reserve.Add(t.BaseAmount)
		case domain.TradeSideSell:
			proceeds, err := market.ProceedsFor(t.TokenAmount, price)
			if err == nil && !t.BaseAmount.Equal(proceeds) {
				diverge(prefix+".BaseAmount", proceeds, t.BaseAmount)
			}
			supply = supply.Sub(t.TokenAmount)
			reserve = reserve.Sub(t.BaseAmount)
		default:
			diverge(prefix+".Side", "buy|sell", t.Side)
			continue
		}

		if supply.IsNegative() || reserve.IsNegative() {
			diverge(prefix+".NonNegative", "supply and reserve >= 0", fmt.Sprintf("supply %s, reserve %s", supply, reserve))
		}
		if !t.SupplyAfter.Equal(supply) {
			diverge(prefix+".SupplyAfter", supply, t.SupplyAfter)
		}
		if !t.ReserveAfter.Equal(reserve) {
			diverge(prefix+".ReserveAfter", reserve, t.ReserveAfter)
		}
	}

	if int64(len(trades)) != state.TradeCount {
		diverge("TradeCount", state.TradeCount, int64(len(trades)))
	}
	if !supply.Equal(state.TotalSupply) {
		diverge("ReplayedSupply", supply, state.TotalSupply)
	}
	if !reserve.Equal(state.Reserve) {
		diverge("ReplayedReserve", reserve, state.Reserve)
	}

	return divergences
}
