package scan

import (
	"context"

	"github.com/stablewatch/premiums/storage/types"
)

type (
	averagePriceDelegate func(context.Context, types.Currency, types.Currency, types.RateType, int) (float64, error)
	fetchRateDelegate    func(context.Context, types.Currency, types.Currency) (*FXQuote, error)
)

type mockQuoteSource struct {
	averagePriceFn averagePriceDelegate
}

func (m *mockQuoteSource) AveragePrice(
	ctx context.Context,
	fiat types.Currency,
	asset types.Currency,
	side types.RateType,
	minValidAds int,
) (float64, error) {
	if m.averagePriceFn != nil {
		return m.averagePriceFn(ctx, fiat, asset, side, minValidAds)
	}

	return 0, nil
}

type mockFXSource struct {
	fetchRateFn fetchRateDelegate
}

func (m *mockFXSource) FetchRate(
	ctx context.Context,
	base types.Currency,
	ref types.Currency,
) (*FXQuote, error) {
	if m.fetchRateFn != nil {
		return m.fetchRateFn(ctx, base, ref)
	}

	return nil, nil
}
