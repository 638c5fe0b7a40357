package binance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablewatch/premiums/provider/currencies"
	"github.com/stablewatch/premiums/storage/types"
)

func TestProvider_Fetch(t *testing.T) {
	t.Parallel()

	srv := newSearchServer(t, []searchOffer{
		offer("18.30"),
		offer("18.40"),
		offer("18.50"),
	})

	client := NewClient(time.Second*5, WithURL(srv.URL))

	p := NewProvider(client, currencies.USDT, currencies.MXN, currencies.BRL)

	assert.Equal(t, "Binance P2P (USDT)", p.Name())
	assert.Equal(t, time.Minute*10, p.Interval())

	rates, err := p.Fetch(context.Background())
	require.NoError(t, err)

	// BUY and SELL per market
	require.Len(t, rates, 4)

	seen := make(map[types.Currency][]types.RateType)

	for _, rate := range rates {
		assert.Equal(t, currencies.USDT, rate.Base)
		assert.Equal(t, Source, rate.Source)
		assert.InDelta(t, 18.40, rate.Rate, 1e-9)

		seen[rate.Target] = append(seen[rate.Target], rate.RateType)
	}

	assert.ElementsMatch(t, []types.RateType{types.RateTypeBUY, types.RateTypeSELL}, seen[currencies.MXN])
	assert.ElementsMatch(t, []types.RateType{types.RateTypeBUY, types.RateTypeSELL}, seen[currencies.BRL])
}

func TestProvider_Fetch_AllMarketsFail(t *testing.T) {
	t.Parallel()

	// Empty ad book for every market
	srv := newSearchServer(t, nil)

	client := NewClient(time.Second*5, WithURL(srv.URL))

	p := NewProvider(client, currencies.USDT, currencies.MXN)

	rates, err := p.Fetch(context.Background())

	assert.Nil(t, rates)
	assert.ErrorIs(t, err, ErrNoQuotes)
}
