package eldorado

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stablewatch/premiums/storage/types"
)

// Provider adapts the Eldorado client to the ingest scheduler, fetching BUY
// and SELL quotes for a fixed set of fiat markets from a single pricing
// payload
type Provider struct {
	client *Client
	asset  types.Currency
	fiats  []types.Currency
}

// NewProvider creates a new Eldorado ingest provider
func NewProvider(client *Client, asset types.Currency, fiats ...types.Currency) *Provider {
	return &Provider{
		client: client,
		asset:  asset,
		fiats:  fiats,
	}
}

func (p *Provider) Name() string {
	return fmt.Sprintf("Eldorado (%s)", p.asset)
}

func (p *Provider) Interval() time.Duration {
	return time.Minute * 10
}

func (p *Provider) Fetch(ctx context.Context) ([]*types.ExchangeRate, error) {
	// The endpoint publishes all markets in one payload
	prices, err := p.client.fetchPrices(ctx)
	if err != nil {
		return nil, err
	}

	var (
		fetchTime = time.Now().UTC()

		rates []*types.ExchangeRate
		errs  []error
	)

	for _, fiat := range p.fiats {
		for _, side := range []types.RateType{types.RateTypeBUY, types.RateTypeSELL} {
			price, err := extractPrice(prices, fiat, p.asset, side)
			if err != nil {
				// A missing market must not abort the rest of the batch
				errs = append(errs, err)

				continue
			}

			rates = append(rates, &types.ExchangeRate{
				AsOf:      fetchTime,
				FetchedAt: fetchTime,
				Base:      p.asset,
				Target:    fiat,
				RateType:  side,
				Source:    Source,
				Rate:      price,
			})
		}
	}

	if len(rates) == 0 {
		return nil, errors.Join(errs...)
	}

	return rates, nil
}
