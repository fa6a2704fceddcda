package domain

import (
	sdkmath "cosmossdk.io/math"
)

// MarketParams are the immutable pricing parameters of a bonding-curve market.
// All values are in base units.
type MarketParams struct {
	BasePrice sdkmath.Int // price at zero supply, base currency per whole token
	Slope     sdkmath.Int // price increase per whole token of supply
	MaxSupply sdkmath.Int // supply ceiling
}

// MarketState is a point-in-time snapshot of a market.
type MarketState struct {
	Address      Account      // market address
	RequestID    RequestID    // request the market was issued from
	Name         string       // token display name
	Symbol       string       // token symbol
	Issuer       Account      // requester that issued the market
	Params       MarketParams // immutable pricing parameters
	TotalSupply  sdkmath.Int  // outstanding tokens
	Reserve      sdkmath.Int  // base currency held by the market
	CurrentPrice *sdkmath.Int // marginal price at TotalSupply; nil once the ceiling is reached
	TradeCount   int64        // number of successful buys and sells
	CreatedAt    int64        // issuance timestamp (ms)
}
