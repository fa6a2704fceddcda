package storage

import (
	"context"

	"token-launchpad/internal/domain"
)

// EventStore provides access to the append-only event_log.
type EventStore interface {
	// Append adds a record. Returns ErrDuplicateKey if seq exists, ErrInvalidInput on a nil
	// record, a non-positive seq or a missing hash.
	Append(ctx context.Context, r *domain.EventRecord) error

	// Last retrieves the record with the highest seq. Returns ErrNotFound if the log is empty.
	Last(ctx context.Context) (*domain.EventRecord, error)

	// GetRange retrieves up to limit records with seq > afterSeq, ordered by seq ASC.
	GetRange(ctx context.Context, afterSeq int64, limit int) ([]*domain.EventRecord, error)

	// GetBySubject retrieves all records for a request ID or market address, ordered by seq ASC.
	GetBySubject(ctx context.Context, subject string) ([]*domain.EventRecord, error)
}

// TradeStore provides access to market trade history.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if (market, seq) exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByMarket retrieves all trades for a market, ordered by seq ASC.
	GetByMarket(ctx context.Context, market domain.Account) ([]*domain.Trade, error)

	// GetByTrader retrieves all trades placed by an account, ordered by (timestamp, market, seq) ASC.
	GetByTrader(ctx context.Context, trader domain.Account) ([]*domain.Trade, error)

	// GetByTimeRange retrieves trades for a market within [start, end] (inclusive), ordered by seq ASC.
	GetByTimeRange(ctx context.Context, market domain.Account, start, end int64) ([]*domain.Trade, error)
}
