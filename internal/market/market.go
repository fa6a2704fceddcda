// Package market implements a linear bonding-curve market maker that mints and
// burns one token against a reserve of base currency.
package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/ledger"
)

// TokenLedger is the market's own token. The market is its only minter.
type TokenLedger interface {
	Mint(to domain.Account, amount sdkmath.Int) error
	Burn(from domain.Account, amount sdkmath.Int) error
	BalanceOf(account domain.Account) sdkmath.Int
	TotalSupply() sdkmath.Int
}

// BaseLedger is the base currency shared by every market.
type BaseLedger interface {
	Transfer(from, to domain.Account, amount sdkmath.Int) error
	BalanceOf(account domain.Account) sdkmath.Int
}

// Options configures a Market.
type Options struct {
	Address   domain.Account
	RequestID domain.RequestID
	Name      string
	Symbol    string
	Issuer    domain.Account
	Params    domain.MarketParams
	Tokens    TokenLedger
	Base      BaseLedger
	Sink      events.Sink  // defaults to events.Nop
	Now       func() int64 // milliseconds; defaults to wall clock
}

// Market is a bonding-curve market. All mutating calls are serialized by mu
// and either apply completely or not at all.
type Market struct {
	mu sync.Mutex

	address   domain.Account
	requestID domain.RequestID
	name      string
	symbol    string
	issuer    domain.Account
	params    domain.MarketParams
	createdAt int64

	tokens  TokenLedger
	base    BaseLedger
	sink    events.Sink
	now     func() int64
	reserve sdkmath.Int
	seq     int64
}

// New validates opts and creates an empty market.
func New(opts Options) (*Market, error) {
	if err := ValidateParams(opts.Params); err != nil {
		return nil, err
	}
	switch {
	case opts.Address.IsZero():
		return nil, fmt.Errorf("%w: null market address", ErrInvalidParams)
	case opts.Issuer.IsZero():
		return nil, fmt.Errorf("%w: null issuer", ErrInvalidParams)
	case opts.Name == "" || opts.Symbol == "":
		return nil, fmt.Errorf("%w: name and symbol are required", ErrInvalidParams)
	case opts.Tokens == nil || opts.Base == nil:
		return nil, fmt.Errorf("%w: token and base ledgers are required", ErrInvalidParams)
	}

	m := &Market{
		address:   opts.Address,
		requestID: opts.RequestID,
		name:      opts.Name,
		symbol:    opts.Symbol,
		issuer:    opts.Issuer,
		params:    opts.Params,
		tokens:    opts.Tokens,
		base:      opts.Base,
		sink:      opts.Sink,
		now:       opts.Now,
		reserve:   sdkmath.ZeroInt(),
	}
	if m.sink == nil {
		m.sink = events.Nop
	}
	if m.now == nil {
		m.now = func() int64 { return time.Now().UnixMilli() }
	}
	m.createdAt = m.now()
	return m, nil
}

// Address returns the market address.
func (m *Market) Address() domain.Account { return m.address }

// Symbol returns the token symbol.
func (m *Market) Symbol() string { return m.symbol }

// Params returns the immutable pricing parameters.
func (m *Market) Params() domain.MarketParams { return m.params }

// Price returns the marginal price at the current supply.
func (m *Market) Price() (sdkmath.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PriceAt(m.params, m.tokens.TotalSupply())
}

// Quote is the outcome a trade would have at the current state.
type Quote struct {
	Side         domain.TradeSide
	In           sdkmath.Int // payment (buy) or tokens (sell)
	Out          sdkmath.Int // tokens minted (buy) or proceeds (sell)
	Price        sdkmath.Int
	SupplyAfter  sdkmath.Int
	ReserveAfter sdkmath.Int
}

// QuoteBuy returns what Buy(payment) would mint now. Payer funds are not checked.
func (m *Market) QuoteBuy(payment sdkmath.Int) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteBuyLocked(payment)
}

// QuoteSell returns what Sell(amount) would pay now. Seller balance is not checked.
func (m *Market) QuoteSell(amount sdkmath.Int) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteSellLocked(amount)
}

func (m *Market) quoteBuyLocked(payment sdkmath.Int) (Quote, error) {
	if payment.IsNil() || payment.IsZero() {
		return Quote{}, ErrZeroPayment
	}
	if err := checkTradeAmount(payment); err != nil {
		return Quote{}, err
	}

	supply := m.tokens.TotalSupply()
	price, err := PriceAt(m.params, supply)
	if err != nil {
		return Quote{}, err
	}
	minted, err := TokensFor(payment, price)
	if err != nil {
		return Quote{}, err
	}
	supplyAfter, err := add(supply, minted)
	if err != nil {
		return Quote{}, err
	}
	if supplyAfter.GT(m.params.MaxSupply) {
		return Quote{}, fmt.Errorf("%w: %s + %s > %s", ErrExceedsMaxSupply, supply, minted, m.params.MaxSupply)
	}
	reserveAfter, err := add(m.reserve, payment)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Side:         domain.TradeSideBuy,
		In:           payment,
		Out:          minted,
		Price:        price,
		SupplyAfter:  supplyAfter,
		ReserveAfter: reserveAfter,
	}, nil
}

func (m *Market) quoteSellLocked(amount sdkmath.Int) (Quote, error) {
	if amount.IsNil() || amount.IsZero() {
		return Quote{}, ErrZeroAmount
	}
	if err := checkTradeAmount(amount); err != nil {
		return Quote{}, err
	}

	supply := m.tokens.TotalSupply()
	if supply.LT(amount) {
		return Quote{}, fmt.Errorf("%w: supply %s below sell amount %s", ErrInvariantViolation, supply, amount)
	}
	price, err := PriceAt(m.params, supply)
	if err != nil {
		return Quote{}, err
	}
	proceeds, err := ProceedsFor(amount, price)
	if err != nil {
		return Quote{}, err
	}
	if m.reserve.LT(proceeds) {
		return Quote{}, fmt.Errorf("%w: reserve %s, proceeds %s", ErrInsufficientReserve, m.reserve, proceeds)
	}

	return Quote{
		Side:         domain.TradeSideSell,
		In:           amount,
		Out:          proceeds,
		Price:        price,
		SupplyAfter:  supply.Sub(amount),
		ReserveAfter: m.reserve.Sub(proceeds),
	}, nil
}

// Buy moves payment from payer into the reserve and mints floor(payment*UNIT/price)
// tokens to beneficiary, priced at the current supply. A payment too small to mint
// anything is still taken.
func (m *Market) Buy(ctx context.Context, payer, beneficiary domain.Account, payment sdkmath.Int) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payment.IsNil() || payment.IsZero() {
		return nil, ErrZeroPayment
	}
	if err := checkTradeAmount(payment); err != nil {
		return nil, err
	}
	if beneficiary.IsZero() {
		return nil, ErrInvalidBeneficiary
	}
	if payer.IsZero() {
		return nil, ErrInvalidPayer
	}
	if payer == m.address {
		// A self-transfer is a no-op in the base ledger and would credit the reserve for free.
		return nil, fmt.Errorf("%w: market cannot pay itself", ErrInvalidPayer)
	}
	if m.tokens.TotalSupply().GTE(m.params.MaxSupply) {
		return nil, ErrSupplyExhausted
	}

	q, err := m.quoteBuyLocked(payment)
	if err != nil {
		return nil, err
	}

	if err := m.base.Transfer(payer, m.address, payment); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		return nil, fmt.Errorf("collect payment: %w", err)
	}

	if q.Out.IsPositive() {
		if err := m.tokens.Mint(beneficiary, q.Out); err != nil {
			if rerr := m.base.Transfer(m.address, payer, payment); rerr != nil {
				return nil, fmt.Errorf("%w: mint failed (%v) and refund failed: %v", ErrInvariantViolation, err, rerr)
			}
			return nil, fmt.Errorf("mint: %w", err)
		}
	}

	m.reserve = q.ReserveAfter
	return m.commitLocked(ctx, payer, beneficiary, q), nil
}

// Sell burns amount from seller and pays floor(amount*price/UNIT) from the reserve,
// priced at the pre-burn supply. If the payout fails the burn is reverted.
func (m *Market) Sell(ctx context.Context, seller domain.Account, amount sdkmath.Int) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amount.IsNil() || amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if err := checkTradeAmount(amount); err != nil {
		return nil, err
	}
	if seller == m.address {
		return nil, fmt.Errorf("%w: market cannot sell to itself", ErrInvalidSeller)
	}
	if bal := m.tokens.BalanceOf(seller); bal.LT(amount) {
		return nil, fmt.Errorf("%w: balance %s, selling %s", ErrInsufficientBalance, bal, amount)
	}

	q, err := m.quoteSellLocked(amount)
	if err != nil {
		return nil, err
	}

	if err := m.tokens.Burn(seller, amount); err != nil {
		return nil, fmt.Errorf("burn: %w", err)
	}

	if q.Out.IsPositive() {
		if err := m.base.Transfer(m.address, seller, q.Out); err != nil {
			if rerr := m.tokens.Mint(seller, amount); rerr != nil {
				return nil, fmt.Errorf("%w: payout failed (%v) and re-mint failed: %v", ErrInvariantViolation, err, rerr)
			}
			return nil, fmt.Errorf("pay proceeds: %w", err)
		}
	}

	m.reserve = q.ReserveAfter
	return m.commitLocked(ctx, seller, seller, q), nil
}

// commitLocked records a completed trade and publishes its event.
func (m *Market) commitLocked(ctx context.Context, trader, beneficiary domain.Account, q Quote) *domain.Trade {
	m.seq++
	t := &domain.Trade{
		TradeID:      idhash.ComputeTradeID(m.address, m.seq),
		Market:       m.address,
		Seq:          m.seq,
		Side:         q.Side,
		Trader:       trader,
		Beneficiary:  beneficiary,
		BaseAmount:   q.In,
		TokenAmount:  q.Out,
		Price:        q.Price,
		SupplyAfter:  q.SupplyAfter,
		ReserveAfter: q.ReserveAfter,
		Timestamp:    m.now(),
	}
	if q.Side == domain.TradeSideSell {
		t.BaseAmount, t.TokenAmount = q.Out, q.In
	}

	m.sink.Publish(ctx, t.Event())
	return t
}

// State returns a consistent snapshot of the market.
func (m *Market) State() domain.MarketState {
	m.mu.Lock()
	defer m.mu.Unlock()

	supply := m.tokens.TotalSupply()
	s := domain.MarketState{
		Address:     m.address,
		RequestID:   m.requestID,
		Name:        m.name,
		Symbol:      m.symbol,
		Issuer:      m.issuer,
		Params:      m.params,
		TotalSupply: supply,
		Reserve:     m.reserve,
		TradeCount:  m.seq,
		CreatedAt:   m.createdAt,
	}
	if p, err := PriceAt(m.params, supply); err == nil {
		s.CurrentPrice = &p
	}
	return s
}

// Reserve returns the base currency held for redemptions.
func (m *Market) Reserve() sdkmath.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reserve
}

// BalanceOf returns the token balance of account.
func (m *Market) BalanceOf(account domain.Account) sdkmath.Int {
	return m.tokens.BalanceOf(account)
}

// Holders returns non-zero token balances, largest first, when the token ledger can list them.
func (m *Market) Holders() []ledger.Holding {
	lister, ok := m.tokens.(interface{ Holders() []ledger.Holding })
	if !ok {
		return nil
	}
	return lister.Holders()
}
