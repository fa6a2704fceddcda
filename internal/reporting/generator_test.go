package reporting

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/issuance"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/market"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/storage/memory"
	"token-launchpad/internal/verification"
)

func testAccount(b byte) domain.Account {
	var a domain.Account
	a[0] = b
	a[31] = b
	return a
}

var (
	owner   = testAccount(1)
	admin   = testAccount(11)
	creator = testAccount(21)
)

type env struct {
	registry  *registry.Registry
	directory *market.Directory
	base      *ledger.Ledger
	trades    *memory.TradeStore
}

// newEnv issues one market ("Alpha, Inc." / ALP) with an opening purchase,
// rejects one request and leaves one pending.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	trades := memory.NewTradeStore()
	sink := events.NewBus(events.NewTradeRecorder(trades, nil))

	reg, err := registry.New(registry.Options{
		Owner:     owner,
		Admins:    []domain.Account{admin},
		Threshold: 1,
		Sink:      sink,
	})
	require.NoError(t, err)

	base := ledger.New("BASE")
	require.NoError(t, base.Mint(creator, domain.Unit.MulRaw(100)))

	dir := market.NewDirectory()
	coord, err := issuance.New(issuance.Options{
		Registry:  reg,
		Directory: dir,
		Base:      base,
		Params:    market.DefaultParams(),
		ProgramID: testAccount(99),
		Sink:      sink,
	})
	require.NoError(t, err)

	issued, err := reg.Submit(ctx, creator, "Alpha, Inc.", "ALP")
	require.NoError(t, err)
	_, err = reg.Approve(ctx, admin, issued)
	require.NoError(t, err)
	_, err = coord.Issue(ctx, creator, issued, domain.Unit)
	require.NoError(t, err)

	rejected, err := reg.Submit(ctx, creator, "Beta", "BET")
	require.NoError(t, err)
	_, err = reg.Reject(ctx, admin, rejected)
	require.NoError(t, err)

	_, err = reg.Submit(ctx, creator, "Gamma", "GAM")
	require.NoError(t, err)

	return &env{registry: reg, directory: dir, base: base, trades: trades}
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestGenerate(t *testing.T) {
	e := newEnv(t)

	gen := NewGenerator(GeneratorOptions{
		Registry:  e.registry,
		Directory: e.directory,
		Trades:    e.trades,
		Verifier: verification.NewReconciler(verification.ReconcilerOptions{
			Directory: e.directory, Base: e.base, Trades: e.trades,
		}),
	}).WithClock(fixedClock)

	report, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixedClock(), report.GeneratedAt)
	assert.Equal(t, 1, report.MarketCount)
	assert.Equal(t, 1, report.Threshold)
	assert.Equal(t, []string{admin.String()}, report.Admins)
	assert.Equal(t, RequestSummary{Total: 3, Pending: 1, Issued: 1, Rejected: 1}, report.Requests)

	require.Len(t, report.Markets, 1)
	row := report.Markets[0]
	assert.Equal(t, "ALP", row.Symbol)
	assert.Equal(t, "10000", row.Supply) // 1 unit at 0.0001 per token
	assert.Equal(t, "1", row.Reserve)
	assert.Equal(t, "1", row.BuyVolume)
	assert.Equal(t, "0", row.SellVolume)
	assert.Equal(t, int64(1), row.Trades)
	assert.Equal(t, 1, row.Buys)
	assert.Equal(t, 0, row.Sells)
	assert.Equal(t, 1, row.Holders)
	assert.NotEqual(t, "-", row.Price)

	require.Len(t, report.Holders, 1)
	assert.Equal(t, creator.String(), report.Holders[0].Account)
	assert.InDelta(t, 1.0, report.Holders[0].Share, 1e-9)

	require.Len(t, report.Reconciliation, 1)
	assert.True(t, report.Reconciliation[0].Match, report.Reconciliation[0].Divergences)
	assert.Equal(t, 1, report.Reconciliation[0].Trades)
}

func TestGenerate_WithoutOptionalSources(t *testing.T) {
	e := newEnv(t)

	report, err := NewGenerator(GeneratorOptions{Directory: e.directory}).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.MarketCount)
	assert.Zero(t, report.Requests.Total)
	assert.Empty(t, report.Reconciliation)
	assert.Equal(t, 0, report.Markets[0].Buys)
	assert.Equal(t, "0", report.Markets[0].BuyVolume)
}

func TestRenderMarkdown(t *testing.T) {
	e := newEnv(t)
	report, err := NewGenerator(GeneratorOptions{
		Registry:  e.registry,
		Directory: e.directory,
		Trades:    e.trades,
	}).WithClock(fixedClock).Generate(context.Background())
	require.NoError(t, err)

	md := RenderMarkdown(report)

	assert.True(t, strings.HasPrefix(md, "# Launchpad Report\n"))
	assert.Contains(t, md, "Generated: 2026-01-02T03:04:05Z")
	assert.Contains(t, md, "Threshold: 1 of 1")
	assert.Contains(t, md, "| ISSUED | 1 |")
	assert.Contains(t, md, "| PENDING | 1 |")
	assert.Contains(t, md, "| ALP | Alpha, Inc. | 10000 |")
	assert.Contains(t, md, "100.00%")
	assert.NotContains(t, md, "## Reconciliation")
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&Report{GeneratedAt: fixedClock()})

	assert.Contains(t, md, "No markets issued.")
	assert.Contains(t, md, "No holders.")
}

func TestRenderMarkdown_Divergences(t *testing.T) {
	md := RenderMarkdown(&Report{
		GeneratedAt: fixedClock(),
		Reconciliation: []ReconciliationRow{
			{Symbol: "ALP", Address: "addr", Match: true, Trades: 2},
			{Symbol: "BET", Address: "addr2", Match: false, Trades: 1, Divergences: []string{"Reserve: expected 2, got 1"}},
		},
	})

	assert.Contains(t, md, "| ALP | 2 | OK |")
	assert.Contains(t, md, "| BET | 1 | DIVERGED |")
	assert.Contains(t, md, "### BET (`addr2`)")
	assert.Contains(t, md, "- Reserve: expected 2, got 1")
}

func TestRenderCSV(t *testing.T) {
	rows := []MarketRow{
		{Symbol: "ALP", Name: "Alpha, Inc.", Address: "a", Supply: "10", MaxSupply: "100", Reserve: "1", Price: "0.1", Trades: 2, Buys: 2, BuyVolume: "1", SellVolume: "0", Holders: 1},
		{Symbol: "BET", Name: "Beta", Address: "b", Supply: "0", MaxSupply: "100", Reserve: "0", Price: "0.0001", BuyVolume: "0", SellVolume: "0"},
	}

	out, err := RenderCSV(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "symbol", records[0][0])
	assert.Len(t, records[0], 13)
	assert.Equal(t, "Alpha, Inc.", records[1][1])
	assert.Equal(t, "2", records[1][7])
	assert.Equal(t, "BET", records[2][0])
}
