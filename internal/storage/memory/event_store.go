package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.EventRecord // keyed by seq
	last int64
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[int64]*domain.EventRecord),
	}
}

// Append adds a record. Returns ErrDuplicateKey if seq exists.
func (s *EventStore) Append(_ context.Context, r *domain.EventRecord) error {
	if r == nil || r.Seq <= 0 || len(r.Hash) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Seq]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.Seq] = cloneRecord(r)
	if r.Seq > s.last {
		s.last = r.Seq
	}
	return nil
}

// Last retrieves the record with the highest seq. Returns ErrNotFound if empty.
func (s *EventStore) Last(_ context.Context) (*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[s.last]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRecord(r), nil
}

// GetRange retrieves up to limit records with seq > afterSeq, ordered by seq ASC.
// A non-positive limit returns every remaining record.
func (s *EventStore) GetRange(_ context.Context, afterSeq int64, limit int) ([]*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EventRecord
	for seq, r := range s.data {
		if seq > afterSeq {
			result = append(result, cloneRecord(r))
		}
	}

	sortRecords(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetBySubject retrieves all records for a subject, ordered by seq ASC.
func (s *EventStore) GetBySubject(_ context.Context, subject string) ([]*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EventRecord
	for _, r := range s.data {
		if r.Subject == subject {
			result = append(result, cloneRecord(r))
		}
	}

	sortRecords(result)
	return result, nil
}

func sortRecords(records []*domain.EventRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})
}

// cloneRecord copies r including its byte slices.
func cloneRecord(r *domain.EventRecord) *domain.EventRecord {
	c := *r
	c.Payload = append([]byte(nil), r.Payload...)
	c.PrevHash = append([]byte(nil), r.PrevHash...)
	c.Hash = append([]byte(nil), r.Hash...)
	return &c
}

var _ storage.EventStore = (*EventStore)(nil)
