// Package eldorado fetches P2P stablecoin quotes from an Eldorado-style
// public pricing endpoint. The marketplace publishes a single quote per
// side rather than an ad book, so there is no averaging step
package eldorado

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

var Source types.Source = "Eldorado"

// ErrNoQuote indicates the pricing payload carries no usable quote for the
// requested market and side
var ErrNoQuote = errors.New("quote not found")

const (
	defaultBaseURL = "https://api.eldorado.com"
	pricesPath     = "/prices"
)

// priceEntry is a single quoted price. The endpoint renders prices as
// strings, so the value is parsed leniently
type priceEntry struct {
	Price json.Number `json:"price"`
}

// pricesResponse is the nested pricing payload, keyed as
// side -> asset code -> fiat code -> price
type pricesResponse map[string]map[string]map[string]priceEntry

// Client fetches quotes from the Eldorado pricing endpoint
type Client struct {
	client  *http.Client
	baseURL string
}

type ClientOption func(c *Client)

// WithBaseURL overrides the pricing endpoint base URL (used in tests)
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// NewClient creates a new Eldorado client
func NewClient(timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Quote returns the published quote for the given fiat / asset / trade side
func (c *Client) Quote(
	ctx context.Context,
	fiat types.Currency,
	asset types.Currency,
	side types.RateType,
) (float64, error) {
	prices, err := c.fetchPrices(ctx)
	if err != nil {
		return 0, err
	}

	return extractPrice(prices, fiat, asset, side)
}

// fetchPrices performs a single GET against the pricing endpoint
func (c *Client) fetchPrices(ctx context.Context) (pricesResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+pricesPath,
		http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create GET request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	var prices pricesResponse
	if err = json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return nil, fmt.Errorf("unable to decode response: %w", err)
	}

	return prices, nil
}

// extractPrice digs the quote for one market out of the nested payload
func extractPrice(
	prices pricesResponse,
	fiat types.Currency,
	asset types.Currency,
	side types.RateType,
) (float64, error) {
	assets, ok := prices[side.String()]
	if !ok {
		return 0, fmt.Errorf("%w: no %s side published", ErrNoQuote, side)
	}

	fiats, ok := assets[assetCode(asset)]
	if !ok {
		return 0, fmt.Errorf("%w: no %s quotes published", ErrNoQuote, asset)
	}

	entry, ok := fiats[fiatCode(fiat)]
	if !ok {
		return 0, fmt.Errorf("%w: no %s/%s %s quote", ErrNoQuote, asset, fiat, side)
	}

	price, err := entry.Price.Float64()
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("%w: unusable %s/%s %s price %q", ErrNoQuote, asset, fiat, side, entry.Price)
	}

	return price, nil
}

// fiatCode maps a fiat currency to the provider's key format
func fiatCode(c types.Currency) string {
	return "FIAT-" + c.String()
}

// assetCode maps a stablecoin asset to the provider's key format
func assetCode(c types.Currency) string {
	return "TRON-" + c.String()
}
