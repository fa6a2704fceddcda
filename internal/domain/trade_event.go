package domain

import (
	"fmt"
	"strconv"

	sdkmath "cosmossdk.io/math"
)

// Event converts the trade into its tokens_purchased or tokens_sold event.
func (t *Trade) Event() Event {
	kind := EventTokensPurchased
	if t.Side == TradeSideSell {
		kind = EventTokensSold
	}
	return NewEvent(kind, t.Market.String(), t.Timestamp).
		With(AttrSeq, strconv.FormatInt(t.Seq, 10)).
		With(AttrTrader, t.Trader.String()).
		With(AttrBeneficiary, t.Beneficiary.String()).
		With(AttrBaseAmount, t.BaseAmount.String()).
		With(AttrTokenAmount, t.TokenAmount.String()).
		With(AttrPrice, t.Price.String()).
		With(AttrSupplyAfter, t.SupplyAfter.String()).
		With(AttrReserveAfter, t.ReserveAfter.String())
}

// TradeFromEvent rebuilds a trade from a tokens_purchased or tokens_sold event.
// TradeID is left empty; callers derive it from (market, seq).
func TradeFromEvent(e Event) (*Trade, error) {
	var side TradeSide
	switch e.Kind {
	case EventTokensPurchased:
		side = TradeSideBuy
	case EventTokensSold:
		side = TradeSideSell
	default:
		return nil, fmt.Errorf("event %s is not a trade", e.Kind)
	}

	market, err := ParseAccount(e.Subject)
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}

	t := &Trade{Market: market, Side: side, Timestamp: e.Timestamp}

	seq, err := requireAttr(e, AttrSeq)
	if err != nil {
		return nil, err
	}
	if t.Seq, err = strconv.ParseInt(seq, 10, 64); err != nil {
		return nil, fmt.Errorf("attribute %s: %w", AttrSeq, err)
	}

	accounts := []struct {
		key string
		dst *Account
	}{
		{AttrTrader, &t.Trader},
		{AttrBeneficiary, &t.Beneficiary},
	}
	for _, a := range accounts {
		v, err := requireAttr(e, a.key)
		if err != nil {
			return nil, err
		}
		if *a.dst, err = ParseAccount(v); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.key, err)
		}
	}

	amounts := []struct {
		key string
		dst *sdkmath.Int
	}{
		{AttrBaseAmount, &t.BaseAmount},
		{AttrTokenAmount, &t.TokenAmount},
		{AttrPrice, &t.Price},
		{AttrSupplyAfter, &t.SupplyAfter},
		{AttrReserveAfter, &t.ReserveAfter},
	}
	for _, a := range amounts {
		v, err := requireAttr(e, a.key)
		if err != nil {
			return nil, err
		}
		n, ok := sdkmath.NewIntFromString(v)
		if !ok {
			return nil, fmt.Errorf("attribute %s: invalid amount %q", a.key, v)
		}
		*a.dst = n
	}

	return t, nil
}

func requireAttr(e Event, key string) (string, error) {
	v, ok := e.Attr(key)
	if !ok {
		return "", fmt.Errorf("event %s missing attribute %s", e.Kind, key)
	}
	return v, nil
}
