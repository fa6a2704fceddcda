package verification

import (
	"bytes"
	"context"
	"fmt"

	"token-launchpad/internal/events"
	"token-launchpad/internal/storage"
)

// chainPageSize bounds each read from the event store.
const chainPageSize = 1000

// ChainBreak describes the first record at which the audit chain fails to verify.
type ChainBreak struct {
	Seq    int64  // record sequence
	Reason string // what failed
}

// ChainReport is the result of VerifyChain.
type ChainReport struct {
	Records int64       // records checked
	Head    []byte      // hash of the last verified record
	Break   *ChainBreak // nil when the whole chain verifies
}

// Valid reports whether the chain verified end to end.
func (r *ChainReport) Valid() bool {
	return r.Break == nil
}

// VerifyChain walks the event log from seq 1 and checks contiguity, back links,
// hashes and payload decoding. It stops at the first break.
func VerifyChain(ctx context.Context, store storage.EventStore) (*ChainReport, error) {
	report := &ChainReport{}
	var prevHash []byte
	var after int64

	for {
		page, err := store.GetRange(ctx, after, chainPageSize)
		if err != nil {
			return nil, fmt.Errorf("read events after %d: %w", after, err)
		}

		for _, rec := range page {
			want := after + 1
			fail := func(format string, args ...interface{}) (*ChainReport, error) {
				report.Break = &ChainBreak{Seq: rec.Seq, Reason: fmt.Sprintf(format, args...)}
				return report, nil
			}

			if rec.Seq != want {
				return fail("expected seq %d", want)
			}
			if !bytes.Equal(rec.PrevHash, prevHash) {
				return fail("prev hash does not link to seq %d", rec.Seq-1)
			}
			if h := events.ChainHash(prevHash, rec.Seq, rec.Payload); !bytes.Equal(h, rec.Hash) {
				return fail("hash mismatch")
			}
			e, err := events.DecodePayload(rec.Payload)
			if err != nil {
				return fail("payload: %v", err)
			}
			if e.Kind != rec.Kind || e.Subject != rec.Subject {
				return fail("payload %s/%s does not match record %s/%s", e.Kind, e.Subject, rec.Kind, rec.Subject)
			}

			prevHash = rec.Hash
			after = rec.Seq
			report.Records++
			report.Head = rec.Hash
		}

		if len(page) < chainPageSize {
			return report, nil
		}
	}
}
