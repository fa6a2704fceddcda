package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
)

var (
	owner   = testAccount(1)
	admin1  = testAccount(11)
	admin2  = testAccount(12)
	admin3  = testAccount(13)
	creator = testAccount(21)
	other   = testAccount(22)
)

func testAccount(b byte) domain.Account {
	var a domain.Account
	a[0] = b
	a[31] = b
	return a
}

func newRegistry(t *testing.T, threshold int) (*Registry, *events.Collector) {
	t.Helper()
	c := events.NewCollector()
	r, err := New(Options{
		Owner:     owner,
		Admins:    []domain.Account{admin1, admin2, admin3},
		Threshold: threshold,
		Sink:      c,
		Now:       func() int64 { return 500 },
	})
	require.NoError(t, err)
	return r, c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name      string
		owner     domain.Account
		admins    []domain.Account
		threshold int
		wantErr   error
	}{
		{"null owner", domain.ZeroAccount, []domain.Account{admin1}, 1, ErrInvalidInput},
		{"empty admins", owner, nil, 1, ErrInvalidAdminList},
		{"null admin", owner, []domain.Account{admin1, domain.ZeroAccount}, 1, ErrInvalidAdminList},
		{"duplicate admin", owner, []domain.Account{admin1, admin1}, 1, ErrInvalidAdminList},
		{"zero threshold", owner, []domain.Account{admin1}, 0, ErrInvalidThreshold},
		{"threshold above admins", owner, []domain.Account{admin1, admin2}, 3, ErrInvalidThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{Owner: tt.owner, Admins: tt.admins, Threshold: tt.threshold})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	r, c := newRegistry(t, 2)

	id, err := r.Submit(ctx, creator, "Alpha", "ALP")
	require.NoError(t, err)
	assert.Len(t, string(id), 64)

	req, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", req.Name)
	assert.Equal(t, creator, req.Creator)
	assert.Equal(t, 0, req.Approvals)
	assert.False(t, req.Approved)
	assert.True(t, req.Exists)
	assert.Equal(t, domain.RequestStatusPending, req.Status)

	// Identical resubmission gets a fresh key.
	id2, err := r.Submit(ctx, creator, "Alpha", "ALP")
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)

	_, err = r.Submit(ctx, domain.ZeroAccount, "Alpha", "ALP")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = r.Submit(ctx, creator, " ", "ALP")
	assert.ErrorIs(t, err, ErrInvalidInput)

	evs := c.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, domain.EventRequestSubmitted, evs[0].Kind)
	name, _ := evs[0].Attr(domain.AttrName)
	assert.Equal(t, "Alpha", name)
}

func TestApprove_ThresholdAndLateVote(t *testing.T) {
	ctx := context.Background()
	r, c := newRegistry(t, 2)

	id, err := r.Submit(ctx, creator, "Alpha", "ALP")
	require.NoError(t, err)

	req, err := r.Approve(ctx, admin1, id)
	require.NoError(t, err)
	assert.Equal(t, 1, req.Approvals)
	assert.False(t, req.Approved)

	req, err = r.Approve(ctx, admin2, id)
	require.NoError(t, err)
	assert.Equal(t, 2, req.Approvals)
	assert.True(t, req.Approved)
	assert.Equal(t, domain.RequestStatusApproved, req.Status)

	// A new admin voting past the threshold is counted, nothing else changes.
	req, err = r.Approve(ctx, admin3, id)
	require.NoError(t, err)
	assert.Equal(t, 3, req.Approvals)
	assert.True(t, req.Approved)
	assert.Equal(t, domain.RequestStatusApproved, req.Status)
	assert.Equal(t, []domain.Account{admin1, admin2, admin3}, req.Voters)

	_, err = r.Approve(ctx, admin1, id)
	assert.ErrorIs(t, err, ErrAlreadyApproved)

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Approvals)

	last := c.Events()[len(c.Events())-1]
	assert.Equal(t, domain.EventRequestApproved, last.Kind)
	approvals, _ := last.Attr(domain.AttrApprovals)
	assert.Equal(t, "3", approvals)
}

func TestApprove_Errors(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t, 2)

	id, err := r.Submit(ctx, creator, "Alpha", "ALP")
	require.NoError(t, err)

	_, err = r.Approve(ctx, other, id)
	assert.ErrorIs(t, err, ErrNotAdmin)

	_, err = r.Approve(ctx, admin1, domain.RequestID("missing"))
	assert.ErrorIs(t, err, ErrUnknownRequest)

	_, err = r.Reject(ctx, admin1, id)
	require.NoError(t, err)

	_, err = r.Approve(ctx, admin2, id)
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	r, c := newRegistry(t, 2)

	pending, err := r.Submit(ctx, creator, "Alpha", "ALP")
	require.NoError(t, err)
	_, err = r.Approve(ctx, admin1, pending)
	require.NoError(t, err)

	_, err = r.Reject(ctx, other, pending)
	assert.ErrorIs(t, err, ErrNotAdmin)

	req, err := r.Reject(ctx, admin2, pending)
	require.NoError(t, err)
	assert.False(t, req.Exists)
	assert.Equal(t, domain.RequestStatusRejected, req.Status)

	_, err = r.Reject(ctx, admin2, pending)
	assert.ErrorIs(t, err, ErrUnknownRequest)

	approved, err := r.Submit(ctx, creator, "Beta", "BET")
	require.NoError(t, err)
	_, err = r.Approve(ctx, admin1, approved)
	require.NoError(t, err)
	_, err = r.Approve(ctx, admin2, approved)
	require.NoError(t, err)

	_, err = r.Reject(ctx, admin3, approved)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)

	// Tombstoned requests stay readable.
	got, err := r.Get(pending)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, got.Status)

	assert.Contains(t, c.Kinds(), domain.EventRequestRejected)
}

func TestReconfigure(t *testing.T) {
	ctx := context.Background()
	r, c := newRegistry(t, 2)

	id, err := r.Submit(ctx, creator, "Alpha", "ALP")
	require.NoError(t, err)
	_, err = r.Approve(ctx, admin1, id)
	require.NoError(t, err)

	err = r.Reconfigure(ctx, admin1, []domain.Account{admin1}, 1)
	assert.ErrorIs(t, err, ErrNotOwner)

	err = r.Reconfigure(ctx, owner, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidAdminList)
	err = r.Reconfigure(ctx, owner, []domain.Account{admin1, domain.ZeroAccount}, 1)
	assert.ErrorIs(t, err, ErrInvalidAdminList)
	err = r.Reconfigure(ctx, owner, []domain.Account{admin1, admin1}, 1)
	assert.ErrorIs(t, err, ErrInvalidAdminList)
	err = r.Reconfigure(ctx, owner, []domain.Account{admin1}, 2)
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	assert.Equal(t, 2, r.AdminSet().Threshold, "failed reconfigure must not change state")

	newAdmin := testAccount(14)
	require.NoError(t, r.Reconfigure(ctx, owner, []domain.Account{admin1, newAdmin}, 1))

	set := r.AdminSet()
	assert.Equal(t, 1, set.Threshold)
	assert.Equal(t, []domain.Account{admin1, newAdmin}, set.Admins)

	// No retroactive re-evaluation: one vote is now enough but the request was not re-checked.
	req, err := r.Get(id)
	require.NoError(t, err)
	assert.False(t, req.Approved)

	_, err = r.Approve(ctx, admin2, id)
	assert.ErrorIs(t, err, ErrNotAdmin)

	req, err = r.Approve(ctx, newAdmin, id)
	require.NoError(t, err)
	assert.True(t, req.Approved)

	var changed domain.Event
	for _, e := range c.Events() {
		if e.Kind == domain.EventThresholdChanged {
			changed = e
		}
	}
	oldT, _ := changed.Attr(domain.AttrOldThreshold)
	newT, _ := changed.Attr(domain.AttrNewThreshold)
	assert.Equal(t, "2", oldT)
	assert.Equal(t, "1", newT)
	assert.Equal(t, Subject, changed.Subject)
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()
	r, c := newRegistry(t, 1)

	id, err := r.Submit(ctx, creator, "Alpha", "ALP")
	require.NoError(t, err)

	market := testAccount(0xAA)
	issue := func(domain.TokenRequest) (domain.Account, error) { return market, nil }

	_, err = r.Finalize(ctx, creator, id, issue)
	assert.ErrorIs(t, err, ErrNotApproved)

	_, err = r.Approve(ctx, admin1, id)
	require.NoError(t, err)

	_, err = r.Finalize(ctx, admin1, id, issue)
	assert.ErrorIs(t, err, ErrNotCreator)

	boom := errors.New("boom")
	_, err = r.Finalize(ctx, creator, id, func(domain.TokenRequest) (domain.Account, error) {
		return domain.Account{}, boom
	})
	assert.ErrorIs(t, err, boom)

	req, err := r.Get(id)
	require.NoError(t, err)
	assert.True(t, req.Exists, "failed issue must leave the request live")
	assert.True(t, req.Approved)

	req, err = r.Finalize(ctx, creator, id, issue)
	require.NoError(t, err)
	assert.False(t, req.Exists)
	assert.Equal(t, domain.RequestStatusIssued, req.Status)
	require.NotNil(t, req.MarketAddress)
	assert.Equal(t, market, *req.MarketAddress)

	_, err = r.Finalize(ctx, creator, id, issue)
	assert.ErrorIs(t, err, ErrNotApproved)
	assert.ErrorIs(t, err, ErrUnknownRequest)

	_, err = r.Finalize(ctx, creator, domain.RequestID("missing"), issue)
	assert.ErrorIs(t, err, ErrNotApproved)
	assert.ErrorIs(t, err, ErrUnknownRequest)

	kinds := c.Kinds()
	assert.Equal(t, domain.EventRequestIssued, kinds[len(kinds)-1])
}

func TestList(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t, 1)

	a, err := r.Submit(ctx, creator, "A", "A")
	require.NoError(t, err)
	b, err := r.Submit(ctx, creator, "B", "B")
	require.NoError(t, err)
	_, err = r.Submit(ctx, creator, "C", "C")
	require.NoError(t, err)

	_, err = r.Approve(ctx, admin1, b)
	require.NoError(t, err)
	_, err = r.Reject(ctx, admin1, a)
	require.NoError(t, err)

	all := r.List("")
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Name)
	assert.Equal(t, "C", all[2].Name)

	approved := r.List(domain.RequestStatusApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, b, approved[0].ID)

	assert.Len(t, r.List(domain.RequestStatusRejected), 1)
	assert.Len(t, r.List(domain.RequestStatusPending), 1)
	assert.Equal(t, owner, r.Owner())
}
