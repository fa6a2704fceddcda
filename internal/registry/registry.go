// Package registry implements the multi-admin approval workflow that gates market issuance.
package registry

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/idhash"
)

// Subject is the event subject used for admin-set changes.
const Subject = "registry"

// IssueFunc builds the market for an approved request and returns its address.
// It runs inside the registry transaction.
type IssueFunc func(req domain.TokenRequest) (domain.Account, error)

// Options configures a Registry.
type Options struct {
	Owner     domain.Account   // only account allowed to Reconfigure
	Admins    []domain.Account // initial admin list
	Threshold int              // initial approval threshold
	Sink      events.Sink      // defaults to events.Nop
	Now       func() int64     // milliseconds; defaults to wall clock
	Logger    *log.Logger
}

type entry struct {
	req   domain.TokenRequest
	votes map[domain.Account]struct{} // released on tombstone
}

// Registry tracks token requests and admin votes. Every public call holds mu for
// its full duration, so calls are totally ordered and all-or-nothing.
type Registry struct {
	mu       sync.Mutex
	owner    domain.Account
	admins   domain.AdminSet
	members  map[domain.Account]struct{}
	requests map[domain.RequestID]*entry
	order    []domain.RequestID
	nonce    uint64
	sink     events.Sink
	now      func() int64
	logger   *log.Logger
}

// New validates opts and creates a Registry.
func New(opts Options) (*Registry, error) {
	if opts.Owner.IsZero() {
		return nil, fmt.Errorf("%w: null owner", ErrInvalidInput)
	}
	members, err := validateAdmins(opts.Admins, opts.Threshold)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		owner:    opts.Owner,
		admins:   domain.AdminSet{Admins: append([]domain.Account(nil), opts.Admins...), Threshold: opts.Threshold},
		members:  members,
		requests: make(map[domain.RequestID]*entry),
		sink:     opts.Sink,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if r.sink == nil {
		r.sink = events.Nop
	}
	if r.now == nil {
		r.now = func() int64 { return time.Now().UnixMilli() }
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r, nil
}

// Submit records a new pending request and returns its key.
func (r *Registry) Submit(ctx context.Context, creator domain.Account, name, symbol string) (domain.RequestID, error) {
	name, symbol = strings.TrimSpace(name), strings.TrimSpace(symbol)
	switch {
	case creator.IsZero():
		return "", fmt.Errorf("%w: null creator", ErrInvalidInput)
	case name == "" || symbol == "":
		return "", fmt.Errorf("%w: name and symbol are required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	nonce := r.nonce + 1
	id := idhash.ComputeRequestID(name, symbol, creator, nonce)
	if e, exists := r.requests[id]; exists && e.req.Exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateRequest, id)
	}

	now := r.now()
	r.nonce = nonce
	r.requests[id] = &entry{
		req: domain.TokenRequest{
			ID:        id,
			Name:      name,
			Symbol:    symbol,
			Creator:   creator,
			Nonce:     nonce,
			Exists:    true,
			Status:    domain.RequestStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		votes: make(map[domain.Account]struct{}),
	}
	r.order = append(r.order, id)

	r.sink.Publish(ctx, domain.NewEvent(domain.EventRequestSubmitted, string(id), now).
		With(domain.AttrRequestID, string(id)).
		With(domain.AttrCreator, creator.String()).
		With(domain.AttrName, name).
		With(domain.AttrSymbol, symbol))
	return id, nil
}

// Approve records admin's vote. Reaching the threshold sets Approved; votes after
// that are counted without further effect.
func (r *Registry) Approve(ctx context.Context, admin domain.Account, id domain.RequestID) (domain.TokenRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[admin]; !ok {
		return domain.TokenRequest{}, fmt.Errorf("%w: %s", ErrNotAdmin, admin)
	}
	e, err := r.liveLocked(id)
	if err != nil {
		return domain.TokenRequest{}, err
	}
	if _, voted := e.votes[admin]; voted {
		return domain.TokenRequest{}, fmt.Errorf("%w: %s on %s", ErrAlreadyApproved, admin, id)
	}

	now := r.now()
	e.votes[admin] = struct{}{}
	e.req.Voters = append(e.req.Voters, admin)
	e.req.Approvals++
	e.req.UpdatedAt = now
	if !e.req.Approved && e.req.Approvals >= r.admins.Threshold {
		e.req.Approved = true
		e.req.Status = domain.RequestStatusApproved
		r.logger.Printf("request %s approved with %d/%d votes", id, e.req.Approvals, r.admins.Threshold)
	}

	r.sink.Publish(ctx, domain.NewEvent(domain.EventRequestApproved, string(id), now).
		With(domain.AttrRequestID, string(id)).
		With(domain.AttrAdmin, admin.String()).
		With(domain.AttrApprovals, strconv.Itoa(e.req.Approvals)).
		With(domain.AttrApproved, strconv.FormatBool(e.req.Approved)))
	return cloneRequest(e.req), nil
}

// Reject tombstones a request that has not been approved.
func (r *Registry) Reject(ctx context.Context, admin domain.Account, id domain.RequestID) (domain.TokenRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[admin]; !ok {
		return domain.TokenRequest{}, fmt.Errorf("%w: %s", ErrNotAdmin, admin)
	}
	e, err := r.liveLocked(id)
	if err != nil {
		return domain.TokenRequest{}, err
	}
	if e.req.Approved {
		return domain.TokenRequest{}, fmt.Errorf("%w: %s", ErrAlreadyFinalized, id)
	}

	now := r.now()
	r.tombstoneLocked(e, domain.RequestStatusRejected, now)

	r.sink.Publish(ctx, domain.NewEvent(domain.EventRequestRejected, string(id), now).
		With(domain.AttrRequestID, string(id)).
		With(domain.AttrAdmin, admin.String()))
	return cloneRequest(e.req), nil
}

// Reconfigure atomically replaces the admin list and threshold. In-flight requests
// keep their votes and approval state.
func (r *Registry) Reconfigure(ctx context.Context, caller domain.Account, admins []domain.Account, threshold int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	members, err := validateAdmins(admins, threshold)
	if err != nil {
		return err
	}

	old := r.admins.Threshold
	r.admins = domain.AdminSet{Admins: append([]domain.Account(nil), admins...), Threshold: threshold}
	r.members = members
	r.logger.Printf("admin set replaced: %d admins, threshold %d -> %d", len(admins), old, threshold)

	names := make([]string, len(admins))
	for i, a := range admins {
		names[i] = a.String()
	}
	r.sink.Publish(ctx, domain.NewEvent(domain.EventThresholdChanged, Subject, r.now()).
		With(domain.AttrOldThreshold, strconv.Itoa(old)).
		With(domain.AttrNewThreshold, strconv.Itoa(threshold)).
		With(domain.AttrAdmins, strings.Join(names, ",")))
	return nil
}

// Finalize runs issue for an approved request on behalf of its creator and
// tombstones the request as ISSUED if issue succeeds. On failure the request is
// left untouched and issue's error is returned.
func (r *Registry) Finalize(ctx context.Context, caller domain.Account, id domain.RequestID, issue IssueFunc) (domain.TokenRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.requests[id]
	if !exists || !e.req.Exists {
		return domain.TokenRequest{}, fmt.Errorf("%w: %w: %s", ErrNotApproved, ErrUnknownRequest, id)
	}
	if !e.req.Approved {
		return domain.TokenRequest{}, fmt.Errorf("%w: %s has %d/%d approvals", ErrNotApproved, id, e.req.Approvals, r.admins.Threshold)
	}
	if caller != e.req.Creator {
		return domain.TokenRequest{}, fmt.Errorf("%w: %s", ErrNotCreator, caller)
	}

	addr, err := issue(cloneRequest(e.req))
	if err != nil {
		return domain.TokenRequest{}, err
	}

	now := r.now()
	e.req.MarketAddress = &addr
	r.tombstoneLocked(e, domain.RequestStatusIssued, now)

	r.sink.Publish(ctx, domain.NewEvent(domain.EventRequestIssued, string(id), now).
		With(domain.AttrRequestID, string(id)).
		With(domain.AttrMarketAddress, addr.String()).
		With(domain.AttrCreator, e.req.Creator.String()))
	return cloneRequest(e.req), nil
}

// Get returns a request, including tombstoned ones.
func (r *Registry) Get(id domain.RequestID) (domain.TokenRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.requests[id]
	if !exists {
		return domain.TokenRequest{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	return cloneRequest(e.req), nil
}

// List returns requests in submission order. An empty status matches all.
func (r *Registry) List(status domain.RequestStatus) []domain.TokenRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.TokenRequest
	for _, id := range r.order {
		req := r.requests[id].req
		if status == "" || req.Status == status {
			result = append(result, cloneRequest(req))
		}
	}
	return result
}

// AdminSet returns a copy of the current admin configuration.
func (r *Registry) AdminSet() domain.AdminSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admins.Clone()
}

// Owner returns the account allowed to reconfigure the admin set.
func (r *Registry) Owner() domain.Account {
	return r.owner
}

func (r *Registry) liveLocked(id domain.RequestID) (*entry, error) {
	e, exists := r.requests[id]
	if !exists || !e.req.Exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	return e, nil
}

func (r *Registry) tombstoneLocked(e *entry, status domain.RequestStatus, now int64) {
	e.req.Exists = false
	e.req.Status = status
	e.req.UpdatedAt = now
	e.votes = nil
}

// validateAdmins checks a non-empty, duplicate-free list of non-null admins and
// 1 <= threshold <= len(admins).
func validateAdmins(admins []domain.Account, threshold int) (map[domain.Account]struct{}, error) {
	if len(admins) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAdminList)
	}
	members := make(map[domain.Account]struct{}, len(admins))
	for _, a := range admins {
		if a.IsZero() {
			return nil, fmt.Errorf("%w: null account", ErrInvalidAdminList)
		}
		if _, dup := members[a]; dup {
			return nil, fmt.Errorf("%w: duplicate %s", ErrInvalidAdminList, a)
		}
		members[a] = struct{}{}
	}
	if threshold < 1 || threshold > len(admins) {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidThreshold, threshold, len(admins))
	}
	return members, nil
}

func cloneRequest(req domain.TokenRequest) domain.TokenRequest {
	req.Voters = append([]domain.Account(nil), req.Voters...)
	if req.MarketAddress != nil {
		addr := *req.MarketAddress
		req.MarketAddress = &addr
	}
	return req
}
