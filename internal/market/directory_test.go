package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/ledger"
)

func newDirectoryMarket(t *testing.T, b byte) *Market {
	t.Helper()
	m, err := New(Options{
		Address: testAccount(b),
		Name:    "Token",
		Symbol:  "TKN",
		Issuer:  issuer,
		Params:  DefaultParams(),
		Tokens:  ledger.New("TKN"),
		Base:    ledger.New("BASE"),
	})
	require.NoError(t, err)
	return m
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()

	second, first := newDirectoryMarket(t, 0x20), newDirectoryMarket(t, 0x10)
	require.NoError(t, d.Add(second))
	require.NoError(t, d.Add(first))

	err := d.Add(newDirectoryMarket(t, 0x20))
	assert.ErrorIs(t, err, ErrDuplicateMarket)

	got, err := d.Get(testAccount(0x10))
	require.NoError(t, err)
	assert.Same(t, first, got)

	_, err = d.Get(testAccount(0x30))
	assert.ErrorIs(t, err, ErrUnknownMarket)

	assert.True(t, d.Has(testAccount(0x20)))
	assert.False(t, d.Has(testAccount(0x30)))

	list := d.List()
	require.Len(t, list, 2)
	assert.Same(t, second, list[0], "List keeps creation order")
	assert.Equal(t, 2, d.Len())
}

func TestDirectory_Reservation(t *testing.T) {
	d := NewDirectory()
	addr := testAccount(0x40)

	require.NoError(t, d.Reserve(addr))
	assert.ErrorIs(t, d.Reserve(addr), ErrDuplicateMarket)
	assert.ErrorIs(t, d.Add(newDirectoryMarket(t, 0x40)), ErrDuplicateMarket)

	assert.True(t, d.Has(addr))
	_, err := d.Get(addr)
	assert.ErrorIs(t, err, ErrUnknownMarket, "reserved addresses stay hidden")
	assert.Equal(t, 0, d.Len())

	m := newDirectoryMarket(t, 0x40)
	require.NoError(t, d.Fill(m))
	got, err := d.Get(addr)
	require.NoError(t, err)
	assert.Same(t, m, got)
	assert.Equal(t, 1, d.Len())

	// Fill needs a live reservation.
	assert.ErrorIs(t, d.Fill(newDirectoryMarket(t, 0x50)), ErrUnknownMarket)

	other := testAccount(0x60)
	require.NoError(t, d.Reserve(other))
	d.Release(other)
	assert.False(t, d.Has(other))
	assert.NoError(t, d.Add(newDirectoryMarket(t, 0x60)))
}
