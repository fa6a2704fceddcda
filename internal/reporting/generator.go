package reporting

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/market"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/storage"
	"token-launchpad/internal/verification"
)

// DefaultTopHolders is the number of holders listed per market.
const DefaultTopHolders = 5

// Generator produces reports from live state.
type Generator struct {
	registry   *registry.Registry
	directory  *market.Directory
	trades     storage.TradeStore    // optional
	verifier   verification.Verifier // optional
	topHolders int
	now        func() time.Time // Injectable clock for deterministic output
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	Registry   *registry.Registry
	Directory  *market.Directory
	Trades     storage.TradeStore
	Verifier   verification.Verifier
	TopHolders int
}

// NewGenerator creates a new report generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	top := opts.TopHolders
	if top <= 0 {
		top = DefaultTopHolders
	}
	return &Generator{
		registry:   opts.Registry,
		directory:  opts.Directory,
		trades:     opts.Trades,
		verifier:   opts.Verifier,
		topHolders: top,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	report := &Report{GeneratedAt: g.now()}

	if g.registry != nil {
		set := g.registry.AdminSet()
		report.Threshold = set.Threshold
		for _, a := range set.Admins {
			report.Admins = append(report.Admins, a.String())
		}
		report.Requests = summarizeRequests(g.registry.List(""))
	}

	markets := g.directory.List()
	report.MarketCount = len(markets)

	for _, m := range markets {
		row, err := g.marketRow(ctx, m)
		if err != nil {
			return nil, err
		}
		report.Markets = append(report.Markets, row)
		report.Holders = append(report.Holders, g.holderRows(m)...)
	}

	if g.verifier != nil {
		rec, err := g.verifier.VerifyAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("reconcile markets: %w", err)
		}
		report.Reconciliation = reconciliationRows(rec)
	}

	return report, nil
}

func summarizeRequests(reqs []domain.TokenRequest) RequestSummary {
	s := RequestSummary{Total: len(reqs)}
	for _, r := range reqs {
		switch r.Status {
		case domain.RequestStatusPending:
			s.Pending++
		case domain.RequestStatusApproved:
			s.Approved++
		case domain.RequestStatusIssued:
			s.Issued++
		case domain.RequestStatusRejected:
			s.Rejected++
		}
	}
	return s
}

func (g *Generator) marketRow(ctx context.Context, m *market.Market) (MarketRow, error) {
	state := m.State()
	row := MarketRow{
		Symbol:     state.Symbol,
		Name:       state.Name,
		Address:    state.Address.String(),
		Supply:     domain.FormatUnits(state.TotalSupply),
		MaxSupply:  domain.FormatUnits(state.Params.MaxSupply),
		Reserve:    domain.FormatUnits(state.Reserve),
		Price:      "-",
		Trades:     state.TradeCount,
		Holders:    len(m.Holders()),
		BuyVolume:  "0",
		SellVolume: "0",
	}
	if state.CurrentPrice != nil {
		row.Price = domain.FormatUnits(*state.CurrentPrice)
	}

	if g.trades == nil {
		return row, nil
	}
	trades, err := g.trades.GetByMarket(ctx, state.Address)
	if err != nil {
		return MarketRow{}, fmt.Errorf("load trades for %s: %w", state.Symbol, err)
	}
	buyVol, sellVol := sdkmath.ZeroInt(), sdkmath.ZeroInt()
	for _, t := range trades {
		switch t.Side {
		case domain.TradeSideBuy:
			row.Buys++
			buyVol = buyVol.Add(t.BaseAmount)
		case domain.TradeSideSell:
			row.Sells++
			sellVol = sellVol.Add(t.BaseAmount)
		}
	}
	row.BuyVolume = domain.FormatUnits(buyVol)
	row.SellVolume = domain.FormatUnits(sellVol)
	return row, nil
}

func (g *Generator) holderRows(m *market.Market) []HolderRow {
	holders := m.Holders()
	if len(holders) > g.topHolders {
		holders = holders[:g.topHolders]
	}
	supply := decimal.NewFromBigInt(m.State().TotalSupply.BigInt(), 0)

	rows := make([]HolderRow, 0, len(holders))
	for _, h := range holders {
		var share float64
		if supply.IsPositive() {
			share = decimal.NewFromBigInt(h.Balance.BigInt(), 0).Div(supply).InexactFloat64()
		}
		rows = append(rows, HolderRow{
			Symbol:  m.Symbol(),
			Account: h.Account.String(),
			Balance: domain.FormatUnits(h.Balance),
			Share:   share,
		})
	}
	return rows
}

func reconciliationRows(rep *verification.Report) []ReconciliationRow {
	rows := make([]ReconciliationRow, 0, len(rep.Results))
	for _, r := range rep.Results {
		row := ReconciliationRow{
			Symbol:  r.Symbol,
			Address: r.Market.String(),
			Match:   r.Match,
			Trades:  r.TradesSeen,
		}
		for _, d := range r.Divergences {
			row.Divergences = append(row.Divergences, d.String())
		}
		rows = append(rows, row)
	}
	return rows
}
