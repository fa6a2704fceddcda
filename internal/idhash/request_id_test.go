package idhash

import (
	"testing"

	"token-launchpad/internal/domain"
)

func TestComputeRequestID(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		symbol  string
		creator domain.Account
		nonce   uint64
		wantLen int // hash length should be 64
	}{
		{
			name:    "first request",
			token:   "Launch Token",
			symbol:  "LNCH",
			creator: testAccount(1),
			nonce:   1,
			wantLen: 64,
		},
		{
			name:    "empty symbol",
			token:   "Nameless",
			symbol:  "",
			creator: testAccount(2),
			nonce:   7,
			wantLen: 64,
		},
		{
			name:    "large nonce",
			token:   "Big",
			symbol:  "BIG",
			creator: testAccount(3),
			nonce:   1 << 62,
			wantLen: 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRequestID(tt.token, tt.symbol, tt.creator, tt.nonce)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeRequestID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeRequestID(tt.token, tt.symbol, tt.creator, tt.nonce)
			if got != got2 {
				t.Errorf("ComputeRequestID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeRequestID_DifferentInputs(t *testing.T) {
	creator := testAccount(1)
	base := ComputeRequestID("Token", "TKN", creator, 1)

	if base == ComputeRequestID("Other", "TKN", creator, 1) {
		t.Error("Different name should produce different hash")
	}
	if base == ComputeRequestID("Token", "OTH", creator, 1) {
		t.Error("Different symbol should produce different hash")
	}
	if base == ComputeRequestID("Token", "TKN", testAccount(2), 1) {
		t.Error("Different creator should produce different hash")
	}

	// Identical submissions are separated by the nonce alone.
	if base == ComputeRequestID("Token", "TKN", creator, 2) {
		t.Error("Different nonce should produce different hash")
	}
}

func testAccount(b byte) domain.Account {
	var a domain.Account
	for i := range a {
		a[i] = b
	}
	return a
}
