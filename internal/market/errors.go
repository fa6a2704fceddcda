package market

import "errors"

// Input validation.
var (
	ErrZeroPayment        = errors.New("market: zero payment")
	ErrZeroAmount         = errors.New("market: zero amount")
	ErrInvalidBeneficiary = errors.New("market: invalid beneficiary")
	ErrInvalidPayer       = errors.New("market: invalid payer")
	ErrInvalidSeller      = errors.New("market: invalid seller")
	ErrInvalidParams      = errors.New("market: invalid parameters")
)

// State consistency.
var (
	ErrSupplyExhausted     = errors.New("market: supply exhausted")
	ErrExceedsMaxSupply    = errors.New("market: exceeds max supply")
	ErrInsufficientFunds   = errors.New("market: insufficient funds")
	ErrInsufficientBalance = errors.New("market: insufficient balance")
	ErrInsufficientReserve = errors.New("market: insufficient reserve")
	ErrDuplicateMarket     = errors.New("market: duplicate market address")
	ErrUnknownMarket       = errors.New("market: unknown market")
)

// ErrInvariantViolation signals internal bookkeeping that no valid call sequence can produce.
var ErrInvariantViolation = errors.New("market: invariant violation")
