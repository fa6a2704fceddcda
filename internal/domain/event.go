package domain

// EventKind identifies an observable state transition.
type EventKind string

const (
	EventRequestSubmitted EventKind = "request_submitted"
	EventRequestApproved  EventKind = "request_approved"
	EventRequestRejected  EventKind = "request_rejected"
	EventRequestIssued    EventKind = "request_issued"
	EventThresholdChanged EventKind = "threshold_changed"
	EventTokensPurchased  EventKind = "tokens_purchased"
	EventTokensSold       EventKind = "tokens_sold"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Attribute keys shared by event producers and consumers.
const (
	AttrRequestID     = "request_id"
	AttrCreator       = "creator"
	AttrName          = "name"
	AttrSymbol        = "symbol"
	AttrAdmin         = "admin"
	AttrApprovals     = "approvals"
	AttrApproved      = "approved"
	AttrMarket        = "market"
	AttrOldThreshold  = "old_threshold"
	AttrNewThreshold  = "new_threshold"
	AttrAdmins        = "admins"
	AttrSeq           = "seq"
	AttrTrader        = "trader"
	AttrBeneficiary   = "beneficiary"
	AttrBaseAmount    = "base_amount"
	AttrTokenAmount   = "token_amount"
	AttrPrice         = "price"
	AttrSupplyAfter   = "supply_after"
	AttrReserveAfter  = "reserve_after"
	AttrMarketAddress = "market_address"
)

// Attribute is a string key/value pair attached to an event.
type Attribute struct {
	Key   string `cbor:"k" json:"key"`
	Value string `cbor:"v" json:"value"`
}

// Event is an observable state transition, published after it commits.
// Subject is the request ID for registry events and the market address for market events.
type Event struct {
	Kind       EventKind   `cbor:"kind" json:"kind"`
	Subject    string      `cbor:"subject" json:"subject"`
	Timestamp  int64       `cbor:"ts" json:"timestamp"`
	Attributes []Attribute `cbor:"attrs" json:"attributes"`
}

// NewEvent creates an event without attributes.
func NewEvent(kind EventKind, subject string, timestamp int64) Event {
	return Event{Kind: kind, Subject: subject, Timestamp: timestamp}
}

// With returns a copy of e with an attribute appended.
func (e Event) With(key, value string) Event {
	attrs := make([]Attribute, len(e.Attributes), len(e.Attributes)+1)
	copy(attrs, e.Attributes)
	e.Attributes = append(attrs, Attribute{Key: key, Value: value})
	return e
}

// Attr returns the first attribute value stored under key.
func (e Event) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// EventRecord is one entry of the append-only audit log.
// Corresponds to event_log table in PostgreSQL.
type EventRecord struct {
	Seq       int64     // PRIMARY KEY, 1-based, gap-free
	Kind      EventKind // event kind
	Subject   string    // request ID or market address
	Timestamp int64     // event timestamp (ms)
	Payload   []byte    // CBOR-encoded Event
	PrevHash  []byte    // Hash of record Seq-1 (empty for Seq 1)
	Hash      []byte    // BLAKE3(PrevHash | Seq | Payload)
	CreatedAt int64     // record creation timestamp (ms)
}
