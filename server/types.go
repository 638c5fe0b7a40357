package server

import (
	"time"

	"github.com/stablewatch/premiums/compute"
	"github.com/stablewatch/premiums/storage/types"
)

type SourcesResponse struct {
	Results []types.Source `json:"results"`
}

type CurrenciesResponse struct {
	Results []types.Currency `json:"results"`
}

// PremiumResponse carries the computed premium metrics along with the
// input rates they were derived from
type PremiumResponse struct {
	*compute.Result

	Fiat    types.Currency `json:"fiat"`
	Asset   types.Currency `json:"asset"`
	RefFiat types.Currency `json:"ref_fiat"`

	SellRate float64 `json:"sell_rate"`
	BuyRate  float64 `json:"buy_rate"`
	FXBid    float64 `json:"fx_bid"`
	FXAsk    float64 `json:"fx_ask"`

	// AsOf is the effective date of the stalest input rate
	AsOf time.Time `json:"as_of"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
