package market

import (
	"fmt"
	"sync"

	"token-launchpad/internal/domain"
)

// Directory indexes live markets by address.
type Directory struct {
	mu      sync.RWMutex
	markets map[domain.Account]*Market
	pending map[domain.Account]struct{} // reserved, not yet filled
	order   []domain.Account            // creation order
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		markets: make(map[domain.Account]*Market),
		pending: make(map[domain.Account]struct{}),
	}
}

// Add registers m. Returns ErrDuplicateMarket if its address is taken or reserved.
func (d *Directory) Add(m *Market) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	addr := m.Address()
	if err := d.claimLocked(addr); err != nil {
		return err
	}
	d.markets[addr] = m
	d.order = append(d.order, addr)
	return nil
}

// Reserve claims addr ahead of creating its market. A reserved address is taken
// for Add and Has but Get and List do not see it until Fill. The holder must
// call Fill or Release.
func (d *Directory) Reserve(addr domain.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.claimLocked(addr); err != nil {
		return err
	}
	d.pending[addr] = struct{}{}
	return nil
}

// Fill publishes m at the address reserved for it.
func (d *Directory) Fill(m *Market) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	addr := m.Address()
	if _, ok := d.pending[addr]; !ok {
		return fmt.Errorf("%w: %s not reserved", ErrUnknownMarket, addr)
	}
	delete(d.pending, addr)
	d.markets[addr] = m
	d.order = append(d.order, addr)
	return nil
}

// Release drops an unfilled reservation.
func (d *Directory) Release(addr domain.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, addr)
}

func (d *Directory) claimLocked(addr domain.Account) error {
	_, exists := d.markets[addr]
	_, reserved := d.pending[addr]
	if exists || reserved {
		return fmt.Errorf("%w: %s", ErrDuplicateMarket, addr)
	}
	return nil
}

// Get returns the market at addr. Returns ErrUnknownMarket if absent.
func (d *Directory) Get(addr domain.Account) (*Market, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, exists := d.markets[addr]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, addr)
	}
	return m, nil
}

// Has reports whether a market is registered at addr.
func (d *Directory) Has(addr domain.Account) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, exists := d.markets[addr]
	_, reserved := d.pending[addr]
	return exists || reserved
}

// List returns all markets in creation order.
func (d *Directory) List() []*Market {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*Market, 0, len(d.order))
	for _, addr := range d.order {
		result = append(result, d.markets[addr])
	}
	return result
}

// Len returns the number of markets.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}
