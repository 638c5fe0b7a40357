package xe

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

	srv := newConvertServer(t, []convertFromRow{
		{
			QuoteCurrency: "MXN",
			Mid:           floatPtr(17.12),
			Bid:           floatPtr(17.10),
			Ask:           floatPtr(17.14),
		},
	})

	client := NewClient("account", "key", time.Second*5, WithAPIBaseURL(srv.URL))

	p := NewProvider(client, currencies.USD, currencies.MXN)

	assert.Equal(t, "XE (USD)", p.Name())
	assert.Equal(t, time.Hour, p.Interval())

	rates, err := p.Fetch(context.Background())
	require.NoError(t, err)

	// MID, BID and ASK for the single market
	require.Len(t, rates, 3)

	byType := make(map[types.RateType]float64)

	for _, rate := range rates {
		assert.Equal(t, currencies.USD, rate.Base)
		assert.Equal(t, currencies.MXN, rate.Target)
		assert.Equal(t, Source, rate.Source)

		byType[rate.RateType] = rate.Rate
	}

	assert.InDelta(t, 17.12, byType[types.RateTypeMID], 0)
	assert.InDelta(t, 17.10, byType[types.RateTypeBID], 0)
	assert.InDelta(t, 17.14, byType[types.RateTypeASK], 0)
}

func TestProvider_Fetch_NoRates(t *testing.T) {
	t.Parallel()

	srv := newConvertServer(t, nil)

	client := NewClient("account", "key", time.Second*5, WithAPIBaseURL(srv.URL))

	p := NewProvider(client, currencies.USD, currencies.MXN)

	rates, err := p.Fetch(context.Background())

	assert.Nil(t, rates)
	assert.ErrorIs(t, err, ErrNoRate)
}
