package reporting

import "time"

// Report is a point-in-time summary of the launchpad.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	MarketCount int

	// Governance
	Admins    []string
	Threshold int
	Requests  RequestSummary

	// Markets in directory order
	Markets []MarketRow

	// Top holders per market, largest first
	Holders []HolderRow

	// Reconciliation results; empty when no verifier is configured
	Reconciliation []ReconciliationRow
}

// RequestSummary counts requests by status.
type RequestSummary struct {
	Total    int
	Pending  int
	Approved int
	Issued   int
	Rejected int
}

// MarketRow represents one row in the markets table.
// Amounts are whole-unit decimal strings.
type MarketRow struct {
	Symbol     string
	Name       string
	Address    string
	Supply     string
	MaxSupply  string
	Reserve    string
	Price      string // "-" once the supply ceiling is reached
	Trades     int64
	Buys       int
	Sells      int
	BuyVolume  string // base currency paid in
	SellVolume string // base currency paid out
	Holders    int
}

// HolderRow lists one token holder.
type HolderRow struct {
	Symbol  string
	Account string
	Balance string
	Share   float64 // fraction of supply
}

// ReconciliationRow summarises verification of one market.
type ReconciliationRow struct {
	Symbol      string
	Address     string
	Match       bool
	Trades      int
	Divergences []string
}
