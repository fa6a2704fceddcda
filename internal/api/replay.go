package api

import (
	"errors"
	"sync"
	"time"

	"token-launchpad/internal/domain"
)

// DefaultSignatureWindow is how far X-Timestamp may drift from the server clock.
const DefaultSignatureWindow = 5 * time.Minute

// defaultMaxNonces bounds the number of remembered nonces.
const defaultMaxNonces = 1 << 16

// maxNonceLen bounds X-Nonce.
const maxNonceLen = 128

var (
	errStaleRequest    = errors.New("request timestamp outside signature window")
	errReplayedRequest = errors.New("nonce already used")
	errReplayCacheFull = errors.New("too many signed requests in flight")
)

type nonceKey struct {
	account domain.Account
	nonce   string
}

// replayGuard remembers accepted (account, nonce) pairs until their timestamp
// leaves the signature window. Past that point the timestamp check alone rejects
// a resend, so the entry can go.
type replayGuard struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	seen   map[nonceKey]time.Time // expiry
}

func newReplayGuard(window time.Duration, max int) *replayGuard {
	if window <= 0 {
		window = DefaultSignatureWindow
	}
	if max <= 0 {
		max = defaultMaxNonces
	}
	return &replayGuard{
		window: window,
		max:    max,
		seen:   make(map[nonceKey]time.Time),
	}
}

// accept admits a signed request once per (account, nonce).
func (g *replayGuard) accept(account domain.Account, nonce string, ts, now time.Time) error {
	if ts.Before(now.Add(-g.window)) || ts.After(now.Add(g.window)) {
		return errStaleRequest
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	k := nonceKey{account: account, nonce: nonce}
	if exp, ok := g.seen[k]; ok && !exp.Before(now) {
		return errReplayedRequest
	}
	if len(g.seen) >= g.max {
		g.pruneLocked(now)
		if len(g.seen) >= g.max {
			return errReplayCacheFull
		}
	}
	g.seen[k] = ts.Add(g.window)
	return nil
}

func (g *replayGuard) pruneLocked(now time.Time) {
	for k, exp := range g.seen {
		if exp.Before(now) {
			delete(g.seen, k)
		}
	}
}

func (g *replayGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
