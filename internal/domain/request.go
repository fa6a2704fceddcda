package domain

// RequestID is the deterministic key of a token request (hex-encoded SHA-256, 64 characters).
type RequestID string

// String returns the string representation of RequestID.
func (id RequestID) String() string {
	return string(id)
}

// RequestStatus is the lifecycle state of a token request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusIssued   RequestStatus = "ISSUED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// String returns the string representation of RequestStatus.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusIssued, RequestStatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusIssued || s == RequestStatusRejected
}

// TokenRequest is a pending or finalized request to issue a new market.
type TokenRequest struct {
	ID            RequestID     // deterministic key
	Name          string        // token display name
	Symbol        string        // token symbol
	Creator       Account       // requester; the only account allowed to issue
	Nonce         uint64        // registry sequence number mixed into ID
	Approvals     int           // number of distinct admin votes
	Approved      bool          // set once Approvals >= threshold; never cleared while live
	Exists        bool          // false once tombstoned (issued or rejected)
	Status        RequestStatus // PENDING | APPROVED | ISSUED | REJECTED
	Voters        []Account     // admins that voted, in vote order
	MarketAddress *Account      // set on issuance (nullable)
	CreatedAt     int64         // submission timestamp (ms)
	UpdatedAt     int64         // last transition timestamp (ms)
}

// AdminSet is the registry's voting configuration.
type AdminSet struct {
	Admins    []Account // ordered admin list
	Threshold int       // approvals required, 1 <= Threshold <= len(Admins)
}

// Contains reports whether a is an admin.
func (s AdminSet) Contains(a Account) bool {
	for _, admin := range s.Admins {
		if admin == a {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the set.
func (s AdminSet) Clone() AdminSet {
	admins := make([]Account, len(s.Admins))
	copy(admins, s.Admins)
	return AdminSet{Admins: admins, Threshold: s.Threshold}
}
