package verification

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/market"
	"token-launchpad/internal/storage"
)

// ErrMarketNotFound is returned when no market exists at the address.
var ErrMarketNotFound = errors.New("market not found")

// BaseBalances reads base-currency balances.
type BaseBalances interface {
	BalanceOf(account domain.Account) sdkmath.Int
}

// Reconciler implements Verifier against live markets.
type Reconciler struct {
	directory *market.Directory
	base      BaseBalances
	trades    storage.TradeStore // optional
}

// ReconcilerOptions contains configuration for creating a Reconciler.
type ReconcilerOptions struct {
	Directory *market.Directory
	Base      BaseBalances
	// Trades enables history replay when set.
	Trades storage.TradeStore
}

// NewReconciler creates a new Reconciler.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	return &Reconciler{
		directory: opts.Directory,
		base:      opts.Base,
		trades:    opts.Trades,
	}
}

// VerifyMarket checks that the market's reserve equals its base-currency balance,
// that holder balances sum to total supply, and that the trade history replays to
// the current state.
func (r *Reconciler) VerifyMarket(ctx context.Context, address domain.Account) (*MarketResult, error) {
	m, err := r.directory.Get(address)
	if err != nil {
		if errors.Is(err, market.ErrUnknownMarket) {
			return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, address)
		}
		return nil, err
	}

	state := m.State()
	result := &MarketResult{Market: address, Symbol: state.Symbol}

	if held := r.base.BalanceOf(address); !held.Equal(state.Reserve) {
		result.Divergences = append(result.Divergences, FieldDivergence{
			Field:    "Reserve",
			Expected: held,
			Actual:   state.Reserve,
		})
	}

	if holders := m.Holders(); holders != nil || state.TotalSupply.IsZero() {
		sum := sdkmath.ZeroInt()
		for _, h := range holders {
			sum = sum.Add(h.Balance)
		}
		if !sum.Equal(state.TotalSupply) {
			result.Divergences = append(result.Divergences, FieldDivergence{
				Field:    "TotalSupply",
				Expected: sum,
				Actual:   state.TotalSupply,
			})
		}
	}

	if r.trades != nil {
		history, err := r.trades.GetByMarket(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("load trades for %s: %w", address, err)
		}
		result.TradesSeen = len(history)
		result.Divergences = append(result.Divergences, CompareHistory(state.Params, history, state)...)
	}

	result.Match = len(result.Divergences) == 0
	return result, nil
}

// VerifyAll reconciles every market in the directory.
func (r *Reconciler) VerifyAll(ctx context.Context) (*Report, error) {
	markets := r.directory.List()
	report := &Report{
		TotalMarkets: len(markets),
		Results:      make([]MarketResult, 0, len(markets)),
	}

	for _, m := range markets {
		result, err := r.VerifyMarket(ctx, m.Address())
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, MarketResult{
				Market: m.Address(),
				Symbol: m.Symbol(),
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentMarkets++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedMarkets++
		} else {
			report.DivergentMarkets++
		}
	}

	return report, nil
}

var _ Verifier = (*Reconciler)(nil)
