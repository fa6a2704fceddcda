package memory

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

func account(b byte) domain.Account {
	var a domain.Account
	a[0] = b
	a[31] = b
	return a
}

func trade(market domain.Account, seq int64, trader domain.Account, ts int64) *domain.Trade {
	return &domain.Trade{
		Market:       market,
		Seq:          seq,
		Side:         domain.TradeSideBuy,
		Trader:       trader,
		Beneficiary:  trader,
		BaseAmount:   sdkmath.NewInt(100),
		TokenAmount:  sdkmath.NewInt(10),
		Price:        sdkmath.NewInt(10),
		SupplyAfter:  sdkmath.NewInt(10 * seq),
		ReserveAfter: sdkmath.NewInt(100 * seq),
		Timestamp:    ts,
	}
}

func TestTradeStore_InsertAndGetByMarket(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()
	m := account(1)

	for _, seq := range []int64{3, 1, 2} {
		if err := store.Insert(ctx, trade(m, seq, account(9), 1000)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := store.Insert(ctx, trade(account(2), 1, account(9), 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByMarket(ctx, m)
	if err != nil {
		t.Fatalf("GetByMarket failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 trades, got %d", len(got))
	}
	for i, tr := range got {
		if tr.Seq != int64(i+1) {
			t.Errorf("trade %d: got seq %d", i, tr.Seq)
		}
	}
	if !got[2].ReserveAfter.Equal(sdkmath.NewInt(300)) {
		t.Errorf("ReserveAfter mismatch: got %s", got[2].ReserveAfter)
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	tr := trade(account(1), 1, account(2), 1000)
	if err := store.Insert(ctx, tr); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, tr); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_InsertBulkAtomic(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()
	m := account(1)

	batch := []*domain.Trade{
		trade(m, 1, account(2), 1000),
		trade(m, 2, account(2), 2000),
		trade(m, 1, account(3), 3000),
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	got, _ := store.GetByMarket(ctx, m)
	if len(got) != 0 {
		t.Errorf("Expected no trades after failed batch, got %d", len(got))
	}

	if err := store.InsertBulk(ctx, batch[:2]); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	got, _ = store.GetByMarket(ctx, m)
	if len(got) != 2 {
		t.Errorf("Expected 2 trades, got %d", len(got))
	}
}

func TestTradeStore_InvalidInput(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	bad := trade(domain.ZeroAccount, 1, account(2), 0)
	if err := store.Insert(ctx, bad); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero market, got %v", err)
	}
	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil trade, got %v", err)
	}
}

func TestTradeStore_GetByTraderAndTimeRange(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()
	alice, bob := account(10), account(11)
	m1, m2 := account(1), account(2)

	trades := []*domain.Trade{
		trade(m1, 1, alice, 3000),
		trade(m2, 1, alice, 1000),
		trade(m1, 2, bob, 2000),
		trade(m1, 3, alice, 4000),
	}
	if err := store.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTrader(ctx, alice)
	if err != nil {
		t.Fatalf("GetByTrader failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 trades for alice, got %d", len(got))
	}
	if got[0].Timestamp != 1000 || got[2].Timestamp != 4000 {
		t.Errorf("GetByTrader not ordered by timestamp: %d..%d", got[0].Timestamp, got[2].Timestamp)
	}

	ranged, err := store.GetByTimeRange(ctx, m1, 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(ranged) != 2 || ranged[0].Seq != 1 || ranged[1].Seq != 2 {
		t.Errorf("GetByTimeRange: unexpected result of %d trades", len(ranged))
	}
}
