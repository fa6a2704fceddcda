package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayGuard_Accept(t *testing.T) {
	g := newReplayGuard(time.Minute, 4)
	now := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, g.accept(traderKey.account, "a", now, now))
	assert.ErrorIs(t, g.accept(traderKey.account, "a", now, now.Add(30*time.Second)), errReplayedRequest)

	// Nonces are scoped per account.
	assert.NoError(t, g.accept(creatorKey.account, "a", now, now))

	assert.ErrorIs(t, g.accept(traderKey.account, "b", now.Add(-2*time.Minute), now), errStaleRequest)
	assert.ErrorIs(t, g.accept(traderKey.account, "b", now.Add(2*time.Minute), now), errStaleRequest)
	assert.Equal(t, 2, g.size())
}

func TestReplayGuard_Bounded(t *testing.T) {
	g := newReplayGuard(time.Minute, 2)
	now := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, g.accept(traderKey.account, "a", now, now))
	require.NoError(t, g.accept(traderKey.account, "b", now, now))
	assert.ErrorIs(t, g.accept(traderKey.account, "c", now, now), errReplayCacheFull)

	// Once the first entries leave the window they are pruned to make room.
	later := now.Add(time.Minute + time.Millisecond)
	require.NoError(t, g.accept(traderKey.account, "c", later, later))
	assert.Equal(t, 1, g.size())

	// A pruned nonce is still refused by its stale timestamp.
	assert.ErrorIs(t, g.accept(traderKey.account, "a", now, later), errStaleRequest)
}
