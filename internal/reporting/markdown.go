package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Launchpad Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Markets: %d | Requests: %d\n\n", r.MarketCount, r.Requests.Total))

	// Governance
	sb.WriteString("## Governance\n\n")
	sb.WriteString(fmt.Sprintf("Threshold: %d of %d\n\n", r.Threshold, len(r.Admins)))
	for _, a := range r.Admins {
		sb.WriteString(fmt.Sprintf("- `%s`\n", a))
	}
	sb.WriteString("\n")

	sb.WriteString("| Status | Requests |\n")
	sb.WriteString("|--------|----------|\n")
	sb.WriteString(fmt.Sprintf("| PENDING | %d |\n", r.Requests.Pending))
	sb.WriteString(fmt.Sprintf("| APPROVED | %d |\n", r.Requests.Approved))
	sb.WriteString(fmt.Sprintf("| ISSUED | %d |\n", r.Requests.Issued))
	sb.WriteString(fmt.Sprintf("| REJECTED | %d |\n", r.Requests.Rejected))
	sb.WriteString("\n")

	// Markets
	sb.WriteString("## Markets\n\n")
	if len(r.Markets) > 0 {
		sb.WriteString("| Symbol | Name | Supply | Max Supply | Reserve | Price | Trades | Buys | Sells | Holders |\n")
		sb.WriteString("|--------|------|--------|------------|---------|-------|--------|------|-------|---------|\n")
		for _, m := range r.Markets {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %d | %d | %d | %d |\n",
				m.Symbol, escapeCell(m.Name), m.Supply, m.MaxSupply, m.Reserve, m.Price,
				m.Trades, m.Buys, m.Sells, m.Holders))
		}
	} else {
		sb.WriteString("No markets issued.\n")
	}
	sb.WriteString("\n")

	// Holders
	sb.WriteString("## Top Holders\n\n")
	if len(r.Holders) > 0 {
		sb.WriteString("| Symbol | Account | Balance | Share |\n")
		sb.WriteString("|--------|---------|---------|-------|\n")
		for _, h := range r.Holders {
			sb.WriteString(fmt.Sprintf("| %s | `%s` | %s | %.2f%% |\n",
				h.Symbol, h.Account, h.Balance, h.Share*100))
		}
	} else {
		sb.WriteString("No holders.\n")
	}
	sb.WriteString("\n")

	// Reconciliation (only when verification ran)
	if len(r.Reconciliation) > 0 {
		sb.WriteString("## Reconciliation\n\n")
		sb.WriteString("| Symbol | Trades | Status |\n")
		sb.WriteString("|--------|--------|--------|\n")
		var divergent []ReconciliationRow
		for _, rec := range r.Reconciliation {
			status := "OK"
			if !rec.Match {
				status = "DIVERGED"
				divergent = append(divergent, rec)
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", rec.Symbol, rec.Trades, status))
		}
		sb.WriteString("\n")

		for _, rec := range divergent {
			sb.WriteString(fmt.Sprintf("### %s (`%s`)\n\n", rec.Symbol, rec.Address))
			for _, d := range rec.Divergences {
				sb.WriteString(fmt.Sprintf("- %s\n", d))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
