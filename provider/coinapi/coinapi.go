// Package coinapi fetches reference exchange rates from CoinAPI. The feed
// publishes a single rate per pair, so bid and ask are not available;
// fetched rates are stored as mid rates
package coinapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stablewatch/premiums/storage/types"
)

var Source types.Source = "CoinAPI"

// ErrNoRate indicates the vendor returned no usable rate for the pair
var ErrNoRate = errors.New("insufficient FX data")

const defaultBaseURL = "https://rest.coinapi.io"

// exchangeRateResponse is the CoinAPI exchangerate response shape
type exchangeRateResponse struct {
	Rate float64 `json:"rate"`
}

// Client fetches reference rates from the CoinAPI REST endpoint
type Client struct {
	client *http.Client

	baseURL string
	apiKey  string
}

type ClientOption func(c *Client)

// WithBaseURL overrides the CoinAPI base URL (used in tests)
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// NewClient creates a new CoinAPI client
func NewClient(apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsConfigured reports whether an API key is present
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// ExchangeRate fetches the reference rate for converting base into quote
func (c *Client) ExchangeRate(
	ctx context.Context,
	base types.Currency,
	quote types.Currency,
) (float64, error) {
	endpoint := fmt.Sprintf("%s/v1/exchangerate/%s/%s", c.baseURL, base, quote)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("unable to create GET request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CoinAPI-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	var payload exchangeRateResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("unable to decode response: %w", err)
	}

	if payload.Rate <= 0 {
		return 0, fmt.Errorf("%w: unusable rate for %s/%s", ErrNoRate, base, quote)
	}

	return payload.Rate, nil
}
