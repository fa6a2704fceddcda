package clickhouse

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/storage"
)

// TradeStore implements storage.TradeStore using ClickHouse.
// Amounts are stored as decimal strings of base units.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `trade_id, market, seq, side, trader, beneficiary,
	base_amount, token_amount, price, supply_after, reserve_after, timestamp_ms`

// Insert adds a new trade. Returns ErrDuplicateKey if (market, seq) exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	return s.InsertBulk(ctx, []*domain.Trade{t})
}

// InsertBulk adds multiple trades. Fails entire batch on duplicate (market, seq).
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	type key struct {
		market domain.Account
		seq    int64
	}
	seen := make(map[key]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.Market.IsZero() || t.Seq <= 0 || !t.Side.IsValid() {
			return storage.ErrInvalidInput
		}
		k := key{t.Market, t.Seq}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce uniqueness.
	for _, t := range trades {
		exists, err := s.exists(ctx, t.Market, t.Seq)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO trades ("+tradeColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		id := t.TradeID
		if id == "" {
			id = idhash.ComputeTradeID(t.Market, t.Seq)
		}
		err = batch.Append(
			id, t.Market.String(), uint64(t.Seq), string(t.Side),
			t.Trader.String(), t.Beneficiary.String(),
			t.BaseAmount.String(), t.TokenAmount.String(), t.Price.String(),
			t.SupplyAfter.String(), t.ReserveAfter.String(), uint64(t.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMarket retrieves all trades for a market, ordered by seq ASC.
func (s *TradeStore) GetByMarket(ctx context.Context, market domain.Account) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE market = ?
		ORDER BY seq ASC
	`

	rows, err := s.conn.Query(ctx, query, market.String())
	if err != nil {
		return nil, fmt.Errorf("query by market: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTrader retrieves all trades placed by an account, ordered by (timestamp, market, seq) ASC.
func (s *TradeStore) GetByTrader(ctx context.Context, trader domain.Account) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE trader = ?
		ORDER BY timestamp_ms ASC, market ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, trader.String())
	if err != nil {
		return nil, fmt.Errorf("query by trader: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTimeRange retrieves trades for a market within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(ctx context.Context, market domain.Account, start, end int64) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE market = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY seq ASC
	`

	rows, err := s.conn.Query(ctx, query, market.String(), uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *TradeStore) exists(ctx context.Context, market domain.Account, seq int64) (bool, error) {
	query := `
		SELECT count(*) FROM trades
		WHERE market = ? AND seq = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, market.String(), uint64(seq)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTrades(rows chRows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var (
			t                                             domain.Trade
			market, side, trader, beneficiary             string
			base, token, price, supplyAfter, reserveAfter string
			seq, timestampMs                              uint64
		)

		err := rows.Scan(
			&t.TradeID, &market, &seq, &side, &trader, &beneficiary,
			&base, &token, &price, &supplyAfter, &reserveAfter, &timestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		if t.Market, err = domain.ParseAccount(market); err != nil {
			return nil, fmt.Errorf("trade %s market: %w", t.TradeID, err)
		}
		if t.Trader, err = domain.ParseAccount(trader); err != nil {
			return nil, fmt.Errorf("trade %s trader: %w", t.TradeID, err)
		}
		if t.Beneficiary, err = domain.ParseAccount(beneficiary); err != nil {
			return nil, fmt.Errorf("trade %s beneficiary: %w", t.TradeID, err)
		}

		amounts := []struct {
			raw string
			dst *sdkmath.Int
		}{
			{base, &t.BaseAmount},
			{token, &t.TokenAmount},
			{price, &t.Price},
			{supplyAfter, &t.SupplyAfter},
			{reserveAfter, &t.ReserveAfter},
		}
		for _, a := range amounts {
			v, ok := sdkmath.NewIntFromString(a.raw)
			if !ok {
				return nil, fmt.Errorf("trade %s: invalid amount %q", t.TradeID, a.raw)
			}
			*a.dst = v
		}

		t.Seq = int64(seq)
		t.Side = domain.TradeSide(side)
		t.Timestamp = int64(timestampMs)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
