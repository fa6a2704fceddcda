package idhash

import (
	"testing"
)

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name    string
		seq     int64
		wantLen int // hash length should be 64
	}{
		{name: "first trade", seq: 1, wantLen: 64},
		{name: "later trade", seq: 98765, wantLen: 64},
	}

	market := testAccount(9)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(market, tt.seq)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeTradeID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeTradeID(market, tt.seq)
			if got != got2 {
				t.Errorf("ComputeTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_DifferentInputs(t *testing.T) {
	base := ComputeTradeID(testAccount(1), 1)

	// Different market should produce different hash
	if base == ComputeTradeID(testAccount(2), 1) {
		t.Error("Different market should produce different hash")
	}

	// Different seq should produce different hash
	if base == ComputeTradeID(testAccount(1), 2) {
		t.Error("Different seq should produce different hash")
	}
}
