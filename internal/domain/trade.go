package domain

import (
	sdkmath "cosmossdk.io/math"
)

// TradeSide is the direction of a market trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// String returns the string representation of TradeSide.
func (s TradeSide) String() string {
	return string(s)
}

// IsValid checks if the side is a valid value.
func (s TradeSide) IsValid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// Trade records one successful buy or sell against a market.
type Trade struct {
	TradeID      string      // deterministic hash of (market, seq)
	Market       Account     // market address
	Seq          int64       // 1-based sequence within the market
	Side         TradeSide   // buy | sell
	Trader       Account     // payer (buy) or seller (sell)
	Beneficiary  Account     // receiver of minted tokens (buy) or proceeds (sell)
	BaseAmount   sdkmath.Int // payment (buy) or proceeds (sell)
	TokenAmount  sdkmath.Int // minted (buy) or burned (sell)
	Price        sdkmath.Int // marginal price used for the whole trade
	SupplyAfter  sdkmath.Int // total supply after the trade
	ReserveAfter sdkmath.Int // reserve after the trade
	Timestamp    int64       // execution timestamp (ms)
}
