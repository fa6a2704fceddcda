// Package issuance turns approved token requests into live bonding-curve markets.
package issuance

import (
	"context"
	"fmt"
	"log"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/market"
	"token-launchpad/internal/registry"
)

// Options configures a Coordinator.
type Options struct {
	Registry  *registry.Registry
	Directory *market.Directory
	Base      market.BaseLedger   // base currency shared by all markets
	Params    domain.MarketParams // applied to every new market
	ProgramID domain.Account      // seed for market address derivation
	Sink      events.Sink         // receives market events; defaults to events.Nop
	Now       func() int64
	Logger    *log.Logger
}

// Coordinator issues markets for approved requests.
type Coordinator struct {
	registry  *registry.Registry
	directory *market.Directory
	base      market.BaseLedger
	params    domain.MarketParams
	programID domain.Account
	sink      events.Sink
	now       func() int64
	logger    *log.Logger
}

// Result describes a completed issuance.
type Result struct {
	Request  domain.TokenRequest
	Market   *market.Market
	Purchase *domain.Trade // nil when no payment was attached
}

// New creates a Coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Registry == nil || opts.Directory == nil || opts.Base == nil {
		return nil, fmt.Errorf("issuance: registry, directory and base ledger are required")
	}
	if err := market.ValidateParams(opts.Params); err != nil {
		return nil, err
	}

	c := &Coordinator{
		registry:  opts.Registry,
		directory: opts.Directory,
		base:      opts.Base,
		params:    opts.Params,
		programID: opts.ProgramID,
		sink:      opts.Sink,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if c.sink == nil {
		c.sink = events.Nop
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c, nil
}

// Issue creates the market for an approved request. Only the request creator may
// call it. A positive payment is spent on an immediate buy for the caller inside
// the same transaction; if that buy fails nothing is issued and the request stays
// approved. Market events are released after request_issued.
func (c *Coordinator) Issue(ctx context.Context, caller domain.Account, id domain.RequestID, payment sdkmath.Int) (*Result, error) {
	if payment.IsNil() {
		payment = sdkmath.ZeroInt()
	}
	if err := domain.CheckAmount(payment); err != nil {
		return nil, err
	}

	held := events.NewDeferred(c.sink)
	res := &Result{}

	req, err := c.registry.Finalize(ctx, caller, id, func(req domain.TokenRequest) (domain.Account, error) {
		addr, _, err := idhash.DeriveMarketAddress(c.programID, req.ID)
		if err != nil {
			return domain.Account{}, fmt.Errorf("derive market address: %w", err)
		}
		// Claim the address before any funds move so the opening buy cannot
		// land in a market that fails to register.
		if err := c.directory.Reserve(addr); err != nil {
			return domain.Account{}, err
		}
		filled := false
		defer func() {
			if !filled {
				c.directory.Release(addr)
			}
		}()

		m, err := market.New(market.Options{
			Address:   addr,
			RequestID: req.ID,
			Name:      req.Name,
			Symbol:    req.Symbol,
			Issuer:    caller,
			Params:    c.params,
			Tokens:    ledger.New(req.Symbol),
			Base:      c.base,
			Sink:      held,
			Now:       c.now,
		})
		if err != nil {
			return domain.Account{}, fmt.Errorf("create market: %w", err)
		}

		if payment.IsPositive() {
			trade, err := m.Buy(ctx, caller, caller, payment)
			if err != nil {
				return domain.Account{}, fmt.Errorf("initial purchase: %w", err)
			}
			res.Purchase = trade
		}

		if err := c.directory.Fill(m); err != nil {
			return domain.Account{}, err
		}
		filled = true
		res.Market = m
		return addr, nil
	})
	if err != nil {
		held.Discard()
		return nil, err
	}

	held.Release(ctx)
	res.Request = req

	c.logger.Printf("issued %s (%s) for request %s at %s", req.Name, req.Symbol, req.ID, res.Market.Address())
	return res, nil
}
