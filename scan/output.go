package scan

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// csvHeader is the stable CSV column set. Rows with missing fields leave
// blanks so the header never varies between runs
var csvHeader = []string{
	"fiat",
	"asset",
	"ref_fiat",
	"sell_rate",
	"buy_rate",
	"fx_bid",
	"fx_ask",
	"stablecoin_sell_premium",
	"stablecoin_buy_premium",
	"stablecoin_buy_sell_spread",
	"status",
	"error",
}

// WriteJSON writes the scan rows as a JSON array
func WriteJSON(w io.Writer, rows []Row, pretty bool) error {
	enc := json.NewEncoder(w)

	if pretty {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("unable to encode rows: %w", err)
	}

	return nil
}

// WriteCSV writes the scan rows as CSV with a stable header
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("unable to write header: %w", err)
	}

	for i := range rows {
		if err := cw.Write(csvRecord(&rows[i])); err != nil {
			return fmt.Errorf("unable to write row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

func csvRecord(row *Row) []string {
	var sellPremium, buyPremium, spread string

	if row.Result != nil {
		sellPremium = formatFloat(row.SellPremium)
		buyPremium = formatFloat(row.BuyPremium)
		spread = formatFloat(row.BuySellSpread)
	}

	return []string{
		row.Fiat.String(),
		row.Asset.String(),
		row.RefFiat.String(),
		formatFloatPtr(row.SellRate),
		formatFloatPtr(row.BuyRate),
		formatFloatPtr(row.FXBid),
		formatFloatPtr(row.FXAsk),
		sellPremium,
		buyPremium,
		spread,
		string(row.Status),
		row.Error,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}

	return formatFloat(*v)
}
