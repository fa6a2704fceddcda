package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// RenderCSV renders market rows as CSV string.
func RenderCSV(markets []MarketRow) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// Header
	header := []string{
		"symbol", "name", "address", "supply", "max_supply", "reserve", "price",
		"trades", "buys", "sells", "buy_volume", "sell_volume", "holders",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	// Rows
	for _, m := range markets {
		row := []string{
			m.Symbol,
			m.Name,
			m.Address,
			m.Supply,
			m.MaxSupply,
			m.Reserve,
			m.Price,
			strconv.FormatInt(m.Trades, 10),
			strconv.Itoa(m.Buys),
			strconv.Itoa(m.Sells),
			m.BuyVolume,
			m.SellVolume,
			strconv.Itoa(m.Holders),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
