// Package compute derives premium and spread metrics comparing P2P
// stablecoin quotes against reference FX rates.
//
// All inputs are prices quoted in the same fiat units. The three metrics:
//
//	sell premium (%)    = ((sell_rate / fx_bid) - 1) * 100
//	buy premium (%)     = ((buy_rate  / fx_ask) - 1) * 100
//	buy-sell spread (%) = ((buy_rate - sell_rate) / sell_rate) * 100
//
// The package is pure: no I/O, no shared state, safe for concurrent use.
package compute

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRate is the sentinel all rate validation failures unwrap to
var ErrInvalidRate = errors.New("invalid rate")

// InvalidRateError indicates a rate input that is not a positive finite
// number. It carries the parameter name so callers validating several
// rates in sequence can tell which upstream value was bad
type InvalidRateError struct {
	Name  string
	Value float64
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("%s must be a positive finite number; got %v", e.Name, e.Value)
}

func (e *InvalidRateError) Unwrap() error {
	return ErrInvalidRate
}

// Rate is a validated market rate: a strictly positive, finite price of one
// unit of stablecoin in fiat, or an FX conversion rate between fiats
type Rate float64

// ValidateRate checks that value is a positive finite number, returning it
// as a Rate. NaN, infinities, zero and negative values are rejected with an
// *InvalidRateError naming the offending input
func ValidateRate(name string, value float64) (Rate, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, &InvalidRateError{
			Name:  name,
			Value: value,
		}
	}

	return Rate(value), nil
}

// Premium computes the signed percentage deviation of observed above or
// below reference, ((observed / reference) - 1) * 100. Positive means the
// observed rate exceeds the reference. No rounding is applied here; rounding
// is applied once at the top level to avoid compounding error
func Premium(observed, reference float64) (float64, error) {
	obs, err := ValidateRate("observed_rate", observed)
	if err != nil {
		return 0, err
	}

	ref, err := ValidateRate("reference_rate", reference)
	if err != nil {
		return 0, err
	}

	return (float64(obs)/float64(ref) - 1) * 100, nil
}

// Spread computes the relative premium of the buy price over the sell
// price, ((buy - sell) / sell) * 100. A negative result means the sell
// quote exceeds the buy quote, which is the normal two-sided ordering for
// a market maker's own quotes, not an error
func Spread(buyRate, sellRate float64) (float64, error) {
	buy, err := ValidateRate("buy_rate", buyRate)
	if err != nil {
		return 0, err
	}

	sell, err := ValidateRate("sell_rate", sellRate)
	if err != nil {
		return 0, err
	}

	return (float64(buy) - float64(sell)) / float64(sell) * 100, nil
}

// Input is the full set of rates for a single premium computation
type Input struct {
	// Decimals, when set, rounds the three outputs to this many fractional
	// digits. Nil leaves full precision
	Decimals *int

	SellRate float64 // P2P quote at which a user sells the stablecoin
	BuyRate  float64 // P2P quote at which a user buys the stablecoin
	FXBid    float64 // reference FX bid, compared against the sell quote
	FXAsk    float64 // reference FX ask, compared against the buy quote
}

// Result holds the three computed percentage metrics. It is constructed
// once per computation and never mutated
type Result struct {
	SellPremium   float64 `json:"stablecoin_sell_premium"`
	BuyPremium    float64 `json:"stablecoin_buy_premium"`
	BuySellSpread float64 `json:"stablecoin_buy_sell_spread"`
}

// ComputePremiums validates all four input rates, computes the three
// metrics, and rounds them as a final step if requested.
//
// Each input is validated independently so a single bad value fails with an
// error naming that specific input. Rounding is applied only after all
// three raw values are computed; intermediate rates are never rounded
func ComputePremiums(in Input) (*Result, error) {
	if _, err := ValidateRate("sell_rate", in.SellRate); err != nil {
		return nil, err
	}

	if _, err := ValidateRate("buy_rate", in.BuyRate); err != nil {
		return nil, err
	}

	if _, err := ValidateRate("fx_bid", in.FXBid); err != nil {
		return nil, err
	}

	if _, err := ValidateRate("fx_ask", in.FXAsk); err != nil {
		return nil, err
	}

	sellPremium, err := Premium(in.SellRate, in.FXBid)
	if err != nil {
		return nil, err
	}

	buyPremium, err := Premium(in.BuyRate, in.FXAsk)
	if err != nil {
		return nil, err
	}

	spread, err := Spread(in.BuyRate, in.SellRate)
	if err != nil {
		return nil, err
	}

	if in.Decimals != nil {
		d := *in.Decimals

		sellPremium = roundTo(sellPremium, d)
		buyPremium = roundTo(buyPremium, d)
		spread = roundTo(spread, d)
	}

	return &Result{
		SellPremium:   sellPremium,
		BuyPremium:    buyPremium,
		BuySellSpread: spread,
	}, nil
}

// roundTo rounds v to d fractional digits, half away from zero
func roundTo(v float64, d int) float64 {
	pow := math.Pow(10, float64(d))

	return math.Round(v*pow) / pow
}
