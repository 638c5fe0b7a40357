package xe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stablewatch/premiums/storage/types"
)

// Provider adapts the XE client to the ingest scheduler, fetching reference
// rates from one fiat into each configured market
type Provider struct {
	client *Client
	ref    types.Currency
	fiats  []types.Currency
}

// NewProvider creates a new XE ingest provider
func NewProvider(client *Client, ref types.Currency, fiats ...types.Currency) *Provider {
	return &Provider{
		client: client,
		ref:    ref,
		fiats:  fiats,
	}
}

func (p *Provider) Name() string {
	return fmt.Sprintf("XE (%s)", p.ref)
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
		quote, err := p.client.FetchRate(ctx, fiat, p.ref)
		if err != nil {
			// One pair failing must not abort the rest of the batch
			errs = append(errs, fmt.Errorf("%s/%s: %w", p.ref, fiat, err))

			continue
		}

		for _, entry := range []struct {
			rateType types.RateType
			rate     float64
		}{
			{types.RateTypeMID, quote.Mid},
			{types.RateTypeBID, quote.Bid},
			{types.RateTypeASK, quote.Ask},
		} {
			rates = append(rates, &types.ExchangeRate{
				AsOf:      fetchTime,
				FetchedAt: fetchTime,
				Base:      p.ref,
				Target:    fiat,
				RateType:  entry.rateType,
				Source:    Source,
				Rate:      entry.rate,
			})
		}
	}

	if len(rates) == 0 {
		return nil, errors.Join(errs...)
	}

	return rates, nil
}
