package events

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"token-launchpad/internal/domain"
)

// encMode uses Core Deterministic Encoding so equal events hash equally.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("events: CBOR encoder initialization failed: " + err.Error())
	}
}

// EncodePayload encodes e as deterministic CBOR.
func EncodePayload(e domain.Event) ([]byte, error) {
	data, err := encMode.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.Kind, err)
	}
	return data, nil
}

// DecodePayload decodes a CBOR payload produced by EncodePayload.
func DecodePayload(payload []byte) (domain.Event, error) {
	var e domain.Event
	if err := cbor.Unmarshal(payload, &e); err != nil {
		return domain.Event{}, fmt.Errorf("decode event payload: %w", err)
	}
	return e, nil
}

// ChainHash computes BLAKE3(prevHash | seq (big-endian uint64) | payload).
func ChainHash(prevHash []byte, seq int64, payload []byte) []byte {
	h := blake3.New()
	h.Write(prevHash)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seq))
	h.Write(buf[:])
	h.Write(payload)
	return h.Sum(nil)
}
