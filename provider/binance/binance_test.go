package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablewatch/premiums/provider/currencies"
	"github.com/stablewatch/premiums/storage/types"
)

// offer builds a well-formed marketplace ad
func offer(price string) searchOffer {
	return searchOffer{
		Adv: searchAdv{
			Price:                price,
			MinSingleTransAmount: "100",
			MaxSingleTransAmount: "5000",
		},
	}
}

// newSearchServer serves the given ads as the marketplace search response
func newSearchServer(t *testing.T, offers []searchOffer) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)

			var req searchRequest

			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotZero(t, req.Rows)

			w.Header().Set("Content-Type", "application/json")

			require.NoError(t, json.NewEncoder(w).Encode(searchResponse{
				Data: offers,
			}))
		}),
	)

	t.Cleanup(srv.Close)

	return srv
}

func TestClient_AveragePrice(t *testing.T) {
	t.Parallel()

	t.Run("trimmed average of the best ads", func(t *testing.T) {
		t.Parallel()

		// Sorted ascending the book is 18.10..18.90; the best 5 are kept
		// and the last 3 of those are averaged: (18.30+18.40+18.50)/3
		offers := []searchOffer{
			offer("18.50"),
			offer("18.10"),
			offer("18.90"),
			offer("18.30"),
			offer("18.20"),
			offer("18.70"),
			offer("18.40"),
		}

		srv := newSearchServer(t, offers)

		c := NewClient(time.Second*5, WithURL(srv.URL))

		avg, err := c.AveragePrice(
			context.Background(),
			currencies.MXN,
			currencies.USDT,
			types.RateTypeBUY,
			0,
		)
		require.NoError(t, err)

		assert.InDelta(t, 18.40, avg, 1e-9)
	})

	t.Run("invalid ads are skipped", func(t *testing.T) {
		t.Parallel()

		offers := []searchOffer{
			offer("18.30"),
			offer("18.40"),
			offer("18.50"),
			offer("0"),     // non-positive price
			offer("cheap"), // unparsable price
			{
				Adv: searchAdv{
					Price:                "10.00", // bait ad
					MinSingleTransAmount: "5000",
					MaxSingleTransAmount: "100", // incoherent limits
				},
			},
		}

		srv := newSearchServer(t, offers)

		c := NewClient(time.Second*5, WithURL(srv.URL))

		avg, err := c.AveragePrice(
			context.Background(),
			currencies.MXN,
			currencies.USDT,
			types.RateTypeBUY,
			0,
		)
		require.NoError(t, err)

		assert.InDelta(t, 18.40, avg, 1e-9)
	})

	t.Run("min valid ads gate", func(t *testing.T) {
		t.Parallel()

		srv := newSearchServer(t, []searchOffer{
			offer("18.30"),
			offer("18.40"),
			offer("18.50"),
		})

		c := NewClient(time.Second*5, WithURL(srv.URL))

		_, err := c.AveragePrice(
			context.Background(),
			currencies.MXN,
			currencies.USDT,
			types.RateTypeBUY,
			5,
		)

		assert.ErrorIs(t, err, ErrNoQuotes)
	})

	t.Run("too few quotes to average", func(t *testing.T) {
		t.Parallel()

		srv := newSearchServer(t, []searchOffer{
			offer("18.30"),
			offer("18.40"),
		})

		c := NewClient(time.Second*5, WithURL(srv.URL))

		_, err := c.AveragePrice(
			context.Background(),
			currencies.MXN,
			currencies.USDT,
			types.RateTypeBUY,
			0,
		)

		assert.ErrorIs(t, err, ErrNoQuotes)
	})

	t.Run("custom sampling", func(t *testing.T) {
		t.Parallel()

		srv := newSearchServer(t, []searchOffer{
			offer("18.10"),
			offer("18.20"),
			offer("18.30"),
			offer("18.40"),
		})

		c := NewClient(
			time.Second*5,
			WithURL(srv.URL),
			WithSampling(10, 2, 2),
		)

		avg, err := c.AveragePrice(
			context.Background(),
			currencies.MXN,
			currencies.USDT,
			types.RateTypeSELL,
			0,
		)
		require.NoError(t, err)

		assert.InDelta(t, 18.15, avg, 1e-9)
	})

	t.Run("transient failures are retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64

		srv := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusBadGateway)

					return
				}

				w.Header().Set("Content-Type", "application/json")

				_ = json.NewEncoder(w).Encode(searchResponse{
					Data: []searchOffer{
						offer("18.30"),
						offer("18.40"),
						offer("18.50"),
					},
				})
			}),
		)
		t.Cleanup(srv.Close)

		c := NewClient(
			time.Second*5,
			WithURL(srv.URL),
			WithRetries(3, time.Millisecond),
		)

		avg, err := c.AveragePrice(
			context.Background(),
			currencies.MXN,
			currencies.USDT,
			types.RateTypeBUY,
			0,
		)
		require.NoError(t, err)

		assert.InDelta(t, 18.40, avg, 1e-9)
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("retries are exhausted", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}),
		)
		t.Cleanup(srv.Close)

		c := NewClient(
			time.Second*5,
			WithURL(srv.URL),
			WithRetries(2, time.Millisecond),
		)

		_, err := c.AveragePrice(
			context.Background(),
			currencies.MXN,
			currencies.USDT,
			types.RateTypeBUY,
			0,
		)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to fetch ads")
	})
}

func TestClient_ValidAdPrice(t *testing.T) {
	t.Parallel()

	testTable := []struct {
		name  string
		offer searchOffer

		expectedPrice float64
		expectedOK    bool
	}{
		{
			name:          "well-formed ad",
			offer:         offer("18.70"),
			expectedPrice: 18.70,
			expectedOK:    true,
		},
		{
			name: "missing limits are tolerated",
			offer: searchOffer{
				Adv: searchAdv{Price: "18.70"},
			},
			expectedPrice: 18.70,
			expectedOK:    true,
		},
		{
			name:  "zero price",
			offer: offer("0"),
		},
		{
			name:  "negative price",
			offer: offer("-1"),
		},
		{
			name:  "unparsable price",
			offer: offer("n/a"),
		},
		{
			name: "negative min limit",
			offer: searchOffer{
				Adv: searchAdv{
					Price:                "18.70",
					MinSingleTransAmount: "-1",
				},
			},
		},
		{
			name: "min above max",
			offer: searchOffer{
				Adv: searchAdv{
					Price:                "18.70",
					MinSingleTransAmount: "5000",
					MaxSingleTransAmount: "100",
				},
			},
		},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			price, ok := validAdPrice(testCase.offer)

			require.Equal(t, testCase.expectedOK, ok, fmt.Sprintf("ad %+v", testCase.offer))
			assert.InDelta(t, testCase.expectedPrice, price, 0)
		})
	}
}
