package coinapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stablewatch/premiums/storage/types"
)

// Provider adapts the CoinAPI client to the ingest scheduler, fetching a
// reference rate from one fiat into each configured market. The feed is
// mid-only; premium lookups fall back from bid / ask to the stored mid
type Provider struct {
	client *Client
	ref    types.Currency
	fiats  []types.Currency
}

// NewProvider creates a new CoinAPI ingest provider
func NewProvider(client *Client, ref types.Currency, fiats ...types.Currency) *Provider {
	return &Provider{
		client: client,
		ref:    ref,
		fiats:  fiats,
	}
}

func (p *Provider) Name() string {
	return fmt.Sprintf("CoinAPI (%s)", p.ref)
}

func (p *Provider) Interval() time.Duration {
	return time.Hour // reference rates move slowly
}

func (p *Provider) Fetch(ctx context.Context) ([]*types.ExchangeRate, error) {
	var (
		fetchTime = time.Now().UTC()

		rates []*types.ExchangeRate
		errs  []error
	)

	for _, fiat := range p.fiats {
		rate, err := p.client.ExchangeRate(ctx, p.ref, fiat)
		if err != nil {
			// One pair failing must not abort the rest of the batch
			errs = append(errs, fmt.Errorf("%s/%s: %w", p.ref, fiat, err))

			continue
		}

		rates = append(rates, &types.ExchangeRate{
			AsOf:      fetchTime,
			FetchedAt: fetchTime,
			Base:      p.ref,
			Target:    fiat,
			RateType:  types.RateTypeMID,
			Source:    Source,
			Rate:      rate,
		})
	}

	if len(rates) == 0 {
		return nil, errors.Join(errs...)
	}

	return rates, nil
}
