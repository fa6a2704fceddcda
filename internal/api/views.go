package api

import (
	"encoding/hex"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/market"
)

// Amounts are rendered as decimal strings in base units.

// RequestView is the JSON form of a token request.
type RequestView struct {
	ID            domain.RequestID     `json:"id"`
	Name          string               `json:"name"`
	Symbol        string               `json:"symbol"`
	Creator       domain.Account       `json:"creator"`
	Nonce         uint64               `json:"nonce"`
	Approvals     int                  `json:"approvals"`
	Approved      bool                 `json:"approved"`
	Exists        bool                 `json:"exists"`
	Status        domain.RequestStatus `json:"status"`
	Voters        []domain.Account     `json:"voters"`
	MarketAddress *domain.Account      `json:"market_address,omitempty"`
	CreatedAt     int64                `json:"created_at"`
	UpdatedAt     int64                `json:"updated_at"`
}

func requestView(r domain.TokenRequest) RequestView {
	voters := r.Voters
	if voters == nil {
		voters = []domain.Account{}
	}
	return RequestView{
		ID:            r.ID,
		Name:          r.Name,
		Symbol:        r.Symbol,
		Creator:       r.Creator,
		Nonce:         r.Nonce,
		Approvals:     r.Approvals,
		Approved:      r.Approved,
		Exists:        r.Exists,
		Status:        r.Status,
		Voters:        voters,
		MarketAddress: r.MarketAddress,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// AdminSetView is the JSON form of the admin set.
type AdminSetView struct {
	Owner     domain.Account   `json:"owner"`
	Admins    []domain.Account `json:"admins"`
	Threshold int              `json:"threshold"`
}

// MarketView is the JSON form of a market snapshot.
type MarketView struct {
	Address      domain.Account   `json:"address"`
	RequestID    domain.RequestID `json:"request_id"`
	Name         string           `json:"name"`
	Symbol       string           `json:"symbol"`
	Issuer       domain.Account   `json:"issuer"`
	BasePrice    sdkmath.Int      `json:"base_price"`
	Slope        sdkmath.Int      `json:"slope"`
	MaxSupply    sdkmath.Int      `json:"max_supply"`
	TotalSupply  sdkmath.Int      `json:"total_supply"`
	Reserve      sdkmath.Int      `json:"reserve"`
	CurrentPrice *sdkmath.Int     `json:"current_price"` // null once the ceiling is reached
	TradeCount   int64            `json:"trade_count"`
	CreatedAt    int64            `json:"created_at"`
}

func marketView(s domain.MarketState) MarketView {
	return MarketView{
		Address:      s.Address,
		RequestID:    s.RequestID,
		Name:         s.Name,
		Symbol:       s.Symbol,
		Issuer:       s.Issuer,
		BasePrice:    s.Params.BasePrice,
		Slope:        s.Params.Slope,
		MaxSupply:    s.Params.MaxSupply,
		TotalSupply:  s.TotalSupply,
		Reserve:      s.Reserve,
		CurrentPrice: s.CurrentPrice,
		TradeCount:   s.TradeCount,
		CreatedAt:    s.CreatedAt,
	}
}

// TradeView is the JSON form of a trade.
type TradeView struct {
	TradeID      string           `json:"trade_id"`
	Market       domain.Account   `json:"market"`
	Seq          int64            `json:"seq"`
	Side         domain.TradeSide `json:"side"`
	Trader       domain.Account   `json:"trader"`
	Beneficiary  domain.Account   `json:"beneficiary"`
	BaseAmount   sdkmath.Int      `json:"base_amount"`
	TokenAmount  sdkmath.Int      `json:"token_amount"`
	Price        sdkmath.Int      `json:"price"`
	SupplyAfter  sdkmath.Int      `json:"supply_after"`
	ReserveAfter sdkmath.Int      `json:"reserve_after"`
	Timestamp    int64            `json:"timestamp"`
}

func tradeView(t *domain.Trade) *TradeView {
	if t == nil {
		return nil
	}
	return &TradeView{
		TradeID:      t.TradeID,
		Market:       t.Market,
		Seq:          t.Seq,
		Side:         t.Side,
		Trader:       t.Trader,
		Beneficiary:  t.Beneficiary,
		BaseAmount:   t.BaseAmount,
		TokenAmount:  t.TokenAmount,
		Price:        t.Price,
		SupplyAfter:  t.SupplyAfter,
		ReserveAfter: t.ReserveAfter,
		Timestamp:    t.Timestamp,
	}
}

// QuoteView is the JSON form of a quote.
type QuoteView struct {
	Side         domain.TradeSide `json:"side"`
	In           sdkmath.Int      `json:"in"`
	Out          sdkmath.Int      `json:"out"`
	Price        sdkmath.Int      `json:"price"`
	SupplyAfter  sdkmath.Int      `json:"supply_after"`
	ReserveAfter sdkmath.Int      `json:"reserve_after"`
}

func quoteView(q market.Quote) QuoteView {
	return QuoteView{
		Side:         q.Side,
		In:           q.In,
		Out:          q.Out,
		Price:        q.Price,
		SupplyAfter:  q.SupplyAfter,
		ReserveAfter: q.ReserveAfter,
	}
}

// BalanceView is the JSON form of an account balance.
type BalanceView struct {
	Account domain.Account  `json:"account"`
	Market  *domain.Account `json:"market,omitempty"` // nil for base currency
	Balance sdkmath.Int     `json:"balance"`
	Units   string          `json:"units"` // whole-unit display
}

// IssueView is the response to an issuance.
type IssueView struct {
	Request  RequestView `json:"request"`
	Market   MarketView  `json:"market"`
	Purchase *TradeView  `json:"purchase,omitempty"`
}

// EventView is the JSON form of an audit log record.
type EventView struct {
	Seq        int64              `json:"seq"`
	Kind       domain.EventKind   `json:"kind"`
	Subject    string             `json:"subject"`
	Timestamp  int64              `json:"timestamp"`
	Attributes []domain.Attribute `json:"attributes"`
	PrevHash   string             `json:"prev_hash"`
	Hash       string             `json:"hash"`
}

func eventView(rec *domain.EventRecord) (EventView, error) {
	e, err := events.DecodePayload(rec.Payload)
	if err != nil {
		return EventView{}, err
	}
	attrs := e.Attributes
	if attrs == nil {
		attrs = []domain.Attribute{}
	}
	return EventView{
		Seq:        rec.Seq,
		Kind:       rec.Kind,
		Subject:    rec.Subject,
		Timestamp:  rec.Timestamp,
		Attributes: attrs,
		PrevHash:   hex.EncodeToString(rec.PrevHash),
		Hash:       hex.EncodeToString(rec.Hash),
	}, nil
}
