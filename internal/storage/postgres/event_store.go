package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `seq, kind, subject, timestamp, payload, prev_hash, hash, created_at`

// Append adds a record. Returns ErrDuplicateKey if seq exists.
func (s *EventStore) Append(ctx context.Context, r *domain.EventRecord) error {
	if r == nil || r.Seq <= 0 || len(r.Hash) == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO event_log (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	prevHash := r.PrevHash
	if prevHash == nil {
		prevHash = []byte{}
	}

	_, err := s.pool.Exec(ctx, query,
		r.Seq,
		string(r.Kind),
		r.Subject,
		r.Timestamp,
		r.Payload,
		prevHash,
		r.Hash,
		r.CreatedAt,
	)
	return storeError("append event", err)
}

// Last retrieves the record with the highest seq. Returns ErrNotFound if the log is empty.
func (s *EventStore) Last(ctx context.Context) (*domain.EventRecord, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM event_log
		ORDER BY seq DESC
		LIMIT 1
	`

	r, err := scanEvent(s.pool.QueryRow(ctx, query))
	if err != nil {
		return nil, storeError("get last event", err)
	}
	return r, nil
}

// GetRange retrieves up to limit records with seq > afterSeq, ordered by seq ASC.
// A non-positive limit returns every remaining record.
func (s *EventStore) GetRange(ctx context.Context, afterSeq int64, limit int) ([]*domain.EventRecord, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM event_log
		WHERE seq > $1
		ORDER BY seq ASC
	`
	args := []any{afterSeq}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events by range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetBySubject retrieves all records for a request ID or market address, ordered by seq ASC.
func (s *EventStore) GetBySubject(ctx context.Context, subject string) ([]*domain.EventRecord, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM event_log
		WHERE subject = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("get events by subject: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// scanEvent scans a single row into an EventRecord.
func scanEvent(row pgx.Row) (*domain.EventRecord, error) {
	var r domain.EventRecord
	var kind string

	err := row.Scan(
		&r.Seq,
		&kind,
		&r.Subject,
		&r.Timestamp,
		&r.Payload,
		&r.PrevHash,
		&r.Hash,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Kind = domain.EventKind(kind)
	return &r, nil
}

// scanEvents scans multiple rows into a slice of EventRecord.
func scanEvents(rows pgx.Rows) ([]*domain.EventRecord, error) {
	var records []*domain.EventRecord

	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return records, nil
}
