package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

type tradeKey struct {
	market domain.Account
	seq    int64
}

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[tradeKey]*domain.Trade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[tradeKey]*domain.Trade),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if (market, seq) exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if !validTrade(t) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := tradeKey{t.Market, t.Seq}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[k] = &copy
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[tradeKey]struct{}, len(trades))
	for _, t := range trades {
		if !validTrade(t) {
			return storage.ErrInvalidInput
		}
		k := tradeKey{t.Market, t.Seq}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, t := range trades {
		copy := *t
		s.data[tradeKey{t.Market, t.Seq}] = &copy
	}
	return nil
}

// GetByMarket retrieves all trades for a market, ordered by seq ASC.
func (s *TradeStore) GetByMarket(_ context.Context, market domain.Account) ([]*domain.Trade, error) {
	result := s.filter(func(t *domain.Trade) bool {
		return t.Market == market
	})
	sortBySeq(result)
	return result, nil
}

// GetByTrader retrieves all trades placed by an account, ordered by (timestamp, market, seq) ASC.
func (s *TradeStore) GetByTrader(_ context.Context, trader domain.Account) ([]*domain.Trade, error) {
	result := s.filter(func(t *domain.Trade) bool {
		return t.Trader == trader
	})
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.Market != b.Market {
			return a.Market.String() < b.Market.String()
		}
		return a.Seq < b.Seq
	})
	return result, nil
}

// GetByTimeRange retrieves trades for a market within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(_ context.Context, market domain.Account, start, end int64) ([]*domain.Trade, error) {
	result := s.filter(func(t *domain.Trade) bool {
		return t.Market == market && t.Timestamp >= start && t.Timestamp <= end
	})
	sortBySeq(result)
	return result, nil
}

func (s *TradeStore) filter(match func(*domain.Trade) bool) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if match(t) {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result
}

func sortBySeq(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].Seq < trades[j].Seq
	})
}

func validTrade(t *domain.Trade) bool {
	return t != nil && !t.Market.IsZero() && t.Seq > 0 && t.Side.IsValid()
}

var _ storage.TradeStore = (*TradeStore)(nil)
