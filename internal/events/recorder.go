package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/storage"
)

// Recorder appends every event to an EventStore as a hash-chained record.
// Store failures are logged and counted; they never fail the emitting operation.
type Recorder struct {
	mu       sync.Mutex
	store    storage.EventStore
	logger   *log.Logger
	now      func() int64
	loaded   bool
	seq      int64
	prevHash []byte
	failures int64
}

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	Store  storage.EventStore
	Logger *log.Logger
	Now    func() int64 // milliseconds; defaults to wall clock
}

// NewRecorder creates a Recorder. The chain head is loaded from the store on first use.
func NewRecorder(opts RecorderOptions) *Recorder {
	r := &Recorder{
		store:  opts.Store,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.now == nil {
		r.now = func() int64 { return time.Now().UnixMilli() }
	}
	return r
}

// Publish appends e to the log. The event is already committed when it is
// published, so the write is detached from the caller's cancellation.
func (r *Recorder) Publish(ctx context.Context, e domain.Event) {
	if _, err := r.Record(context.WithoutCancel(ctx), e); err != nil {
		r.logger.Printf("record %s %s: %v", e.Kind, e.Subject, err)
	}
}

// Record appends e and returns the stored record.
func (r *Recorder) Record(ctx context.Context, e domain.Event) (*domain.EventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadHead(ctx); err != nil {
		r.failures++
		return nil, err
	}

	payload, err := EncodePayload(e)
	if err != nil {
		r.failures++
		return nil, err
	}

	seq := r.seq + 1
	rec := &domain.EventRecord{
		Seq:       seq,
		Kind:      e.Kind,
		Subject:   e.Subject,
		Timestamp: e.Timestamp,
		Payload:   payload,
		PrevHash:  r.prevHash,
		Hash:      ChainHash(r.prevHash, seq, payload),
		CreatedAt: r.now(),
	}

	if err := r.store.Append(ctx, rec); err != nil {
		r.failures++
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Another writer appended; reload the head next time.
			r.loaded = false
		}
		return nil, fmt.Errorf("append seq %d: %w", seq, err)
	}

	r.seq = seq
	r.prevHash = rec.Hash
	return rec, nil
}

// Head returns the last recorded seq and hash.
func (r *Recorder) Head(ctx context.Context) (int64, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadHead(ctx); err != nil {
		return 0, nil, err
	}
	return r.seq, append([]byte(nil), r.prevHash...), nil
}

// Failures returns the number of events that could not be recorded.
func (r *Recorder) Failures() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

func (r *Recorder) loadHead(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	last, err := r.store.Last(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		r.seq, r.prevHash = 0, nil
	case err != nil:
		return fmt.Errorf("load chain head: %w", err)
	default:
		r.seq, r.prevHash = last.Seq, last.Hash
	}
	r.loaded = true
	return nil
}

// TradeRecorder stores tokens_purchased and tokens_sold events as trades.
type TradeRecorder struct {
	store  storage.TradeStore
	logger *log.Logger
}

// NewTradeRecorder creates a TradeRecorder.
func NewTradeRecorder(store storage.TradeStore, logger *log.Logger) *TradeRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &TradeRecorder{store: store, logger: logger}
}

// Publish inserts trade events and ignores everything else.
func (t *TradeRecorder) Publish(ctx context.Context, e domain.Event) {
	if e.Kind != domain.EventTokensPurchased && e.Kind != domain.EventTokensSold {
		return
	}

	trade, err := domain.TradeFromEvent(e)
	if err != nil {
		t.logger.Printf("decode trade event: %v", err)
		return
	}
	trade.TradeID = idhash.ComputeTradeID(trade.Market, trade.Seq)

	if err := t.store.Insert(context.WithoutCancel(ctx), trade); err != nil {
		t.logger.Printf("insert trade %s: %v", trade.TradeID, err)
	}
}
