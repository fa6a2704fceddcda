// Package ledger provides the fungible-token bookkeeping primitive:
// balances, total supply, mint, burn and transfer.
// The same type backs every market token and the shared base currency.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
)

// Ledger errors.
var (
	// ErrInvalidAccount is returned for operations on the null account.
	ErrInvalidAccount = errors.New("ledger: invalid account")

	// ErrInvalidAmount is returned for nil or negative amounts.
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
)

// Holding is one account's balance.
type Holding struct {
	Account domain.Account
	Balance sdkmath.Int
}

// Ledger is an in-memory, goroutine-safe token ledger.
type Ledger struct {
	mu       sync.RWMutex
	symbol   string
	balances map[domain.Account]sdkmath.Int
	supply   sdkmath.Int
}

// New creates an empty ledger.
func New(symbol string) *Ledger {
	return &Ledger{
		symbol:   symbol,
		balances: make(map[domain.Account]sdkmath.Int),
		supply:   sdkmath.ZeroInt(),
	}
}

// Symbol returns the ledger's token symbol.
func (l *Ledger) Symbol() string {
	return l.symbol
}

// Mint creates amount tokens and credits them to to.
// Minting zero is allowed and changes nothing.
func (l *Ledger) Mint(to domain.Account, amount sdkmath.Int) error {
	if to.IsZero() {
		return fmt.Errorf("mint to %s: %w", to, ErrInvalidAccount)
	}
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.setLocked(to, l.balanceLocked(to).Add(amount))
	l.supply = l.supply.Add(amount)
	return nil
}

// Burn destroys amount tokens held by from.
func (l *Ledger) Burn(from domain.Account, amount sdkmath.Int) error {
	if from.IsZero() {
		return fmt.Errorf("burn from %s: %w", from, ErrInvalidAccount)
	}
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balanceLocked(from)
	if bal.LT(amount) {
		return fmt.Errorf("burn %s from %s (balance %s): %w", amount, from, bal, ErrInsufficientBalance)
	}
	l.setLocked(from, bal.Sub(amount))
	l.supply = l.supply.Sub(amount)
	return nil
}

// Transfer moves amount tokens from one account to another.
func (l *Ledger) Transfer(from, to domain.Account, amount sdkmath.Int) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("transfer %s -> %s: %w", from, to, ErrInvalidAccount)
	}
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balanceLocked(from)
	if bal.LT(amount) {
		return fmt.Errorf("transfer %s from %s (balance %s): %w", amount, from, bal, ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}
	l.setLocked(from, bal.Sub(amount))
	l.setLocked(to, l.balanceLocked(to).Add(amount))
	return nil
}

// BalanceOf returns the balance of account.
func (l *Ledger) BalanceOf(account domain.Account) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked(account)
}

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

// Holders returns all non-zero balances, largest first, ties by account bytes.
func (l *Ledger) Holders() []Holding {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Holding, 0, len(l.balances))
	for a, b := range l.balances {
		result = append(result, Holding{Account: a, Balance: b})
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Balance.Equal(result[j].Balance) {
			return result[i].Balance.GT(result[j].Balance)
		}
		return string(result[i].Account[:]) < string(result[j].Account[:])
	})

	return result
}

func (l *Ledger) balanceLocked(a domain.Account) sdkmath.Int {
	if b, ok := l.balances[a]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

// setLocked drops zero balances so Holders only lists live positions.
func (l *Ledger) setLocked(a domain.Account, b sdkmath.Int) {
	if b.IsZero() {
		delete(l.balances, a)
		return
	}
	l.balances[a] = b
}

func checkAmount(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
