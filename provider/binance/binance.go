//nolint:tagliatelle // Binance API uses camel case
package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/stablewatch/premiums/storage/types"
)

var Source types.Source = "BinanceP2P"

// ErrNoQuotes indicates the marketplace returned too few usable ads to
// form a trustworthy average
var ErrNoQuotes = errors.New("insufficient P2P data")

const defaultSearchURL = "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search"

// searchRequest is the request body for the Binance P2P search API
type searchRequest struct {
	Asset     types.Currency `json:"asset"`
	Fiat      types.Currency `json:"fiat"`
	TradeType types.RateType `json:"tradeType"`
	Rows      int            `json:"rows"`
	Page      int            `json:"page"`
}

// searchResponse is the response from the Binance P2P search API
type searchResponse struct {
	Data []searchOffer `json:"data"`
}

type searchOffer struct {
	Adv searchAdv `json:"adv"`
}

type searchAdv struct {
	Price                string `json:"price"`
	MinSingleTransAmount string `json:"minSingleTransAmount"`
	MaxSingleTransAmount string `json:"maxSingleTransAmount"`
}

// Client fetches P2P stablecoin quotes from the Binance C2C marketplace
type Client struct {
	client *http.Client
	url    string

	rows         int           // ads requested per query
	takeTop      int           // best ads considered after sorting
	averageLastN int           // among those, how many tail entries to average
	maxRetries   int           // request attempts before giving up
	retrySleep   time.Duration // delay between attempts
}

type ClientOption func(c *Client)

// WithURL overrides the marketplace search endpoint (used in tests)
func WithURL(url string) ClientOption {
	return func(c *Client) {
		c.url = url
	}
}

// WithRetries overrides the request retry policy
func WithRetries(maxRetries int, sleep time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retrySleep = sleep
	}
}

// WithSampling overrides how the average is sampled from the ad book:
// request rows ads, sort ascending by price, keep the best takeTop,
// average the last averageLastN of those
func WithSampling(rows, takeTop, averageLastN int) ClientOption {
	return func(c *Client) {
		c.rows = rows
		c.takeTop = takeTop
		c.averageLastN = averageLastN
	}
}

// NewClient creates a new Binance P2P client
func NewClient(timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		url:          defaultSearchURL,
		rows:         20,
		takeTop:      5,
		averageLastN: 3,
		maxRetries:   3,
		retrySleep:   time.Second * 5,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AveragePrice returns a trimmed average of the best valid ads for the
// given fiat / asset / trade side.
//
// The ad book is sorted ascending by price, the best takeTop ads are kept,
// and the tail averageLastN of those are averaged. This skips the very
// cheapest quotes, which are often bait ads with unusable limits.
//
// minValidAds, when positive, fails the fetch with ErrNoQuotes unless at
// least that many ads survive validation
func (c *Client) AveragePrice(
	ctx context.Context,
	fiat types.Currency,
	asset types.Currency,
	side types.RateType,
	minValidAds int,
) (float64, error) {
	ads, err := c.fetchAds(ctx, fiat, asset, side)
	if err != nil {
		return 0, err
	}

	prices := make([]float64, 0, len(ads))

	for _, ad := range ads {
		price, ok := validAdPrice(ad)
		if !ok {
			continue
		}

		prices = append(prices, price)
	}

	if minValidAds > 0 && len(prices) < minValidAds {
		return 0, fmt.Errorf("%w: %d valid ads, need %d", ErrNoQuotes, len(prices), minValidAds)
	}

	sort.Float64s(prices)

	if len(prices) > c.takeTop {
		prices = prices[:c.takeTop]
	}

	if len(prices) < c.averageLastN {
		return 0, fmt.Errorf("%w: %d usable quotes", ErrNoQuotes, len(prices))
	}

	tail := prices[len(prices)-c.averageLastN:]

	var sum float64
	for _, p := range tail {
		sum += p
	}

	return sum / float64(len(tail)), nil
}

// fetchAds queries the marketplace, retrying transient request failures
func (c *Client) fetchAds(
	ctx context.Context,
	fiat types.Currency,
	asset types.Currency,
	side types.RateType,
) ([]searchOffer, error) {
	body, err := json.Marshal(searchRequest{
		Asset:     asset,
		Fiat:      fiat,
		TradeType: side,
		Rows:      c.rows,
		Page:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to marshal request: %w", err)
	}

	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retrySleep):
			}
		}

		offers, err := c.searchOnce(ctx, body)
		if err != nil {
			lastErr = err

			continue
		}

		return offers, nil
	}

	return nil, fmt.Errorf("unable to fetch ads: %w", lastErr)
}

// searchOnce performs a single search request
func (c *Client) searchOnce(ctx context.Context, body []byte) ([]searchOffer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to create POST request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute POST request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	var apiResp searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("unable to decode response: %w", err)
	}

	return apiResp.Data, nil
}

// validAdPrice extracts the price of an ad that passes basic sanity checks:
// a positive price and coherent min / max trade limits
func validAdPrice(offer searchOffer) (float64, bool) {
	price, ok := parseFloat(offer.Adv.Price)
	if !ok || price <= 0 {
		return 0, false
	}

	var (
		minLimit, hasMin = parseFloat(offer.Adv.MinSingleTransAmount)
		maxLimit, hasMax = parseFloat(offer.Adv.MaxSingleTransAmount)
	)

	if hasMin && minLimit < 0 {
		return 0, false
	}

	if hasMax && maxLimit <= 0 {
		return 0, false
	}

	if hasMin && hasMax && minLimit > maxLimit {
		return 0, false
	}

	return price, true
}

// parseFloat parses a float string into a value
func parseFloat(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}

	return parsed, true
}
