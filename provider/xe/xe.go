//nolint:tagliatelle // XE API uses lowercase keys
package xe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/stablewatch/premiums/storage/types"
)

var Source types.Source = "XE"

// ErrNoRate indicates the vendor returned no usable rate for the pair
var ErrNoRate = errors.New("insufficient FX data")

const (
	defaultAPIBaseURL = "https://xecdapi.xe.com"
	defaultWebBaseURL = "https://www.xe.com/currencyconverter/convert/"
)

// Quote is a reference FX quote. Entry-level XE plans return only the mid
// rate; bid and ask are then mapped to the mid for downstream convenience
type Quote struct {
	Mid float64
	Bid float64
	Ask float64
}

// Client fetches reference FX rates from the XE currency data API, falling
// back to scraping the public converter page when no credentials are set
type Client struct {
	client *http.Client

	apiBaseURL string
	webBaseURL string

	accountID string
	apiKey    string
}

type ClientOption func(c *Client)

// WithAPIBaseURL overrides the XE API base URL (used in tests)
func WithAPIBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.apiBaseURL = u
	}
}

// WithWebBaseURL overrides the public converter page URL (used in tests)
func WithWebBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.webBaseURL = u
	}
}

// NewClient creates a new XE client. Empty credentials are valid; the
// client then serves mid-only quotes scraped from the public converter
func NewClient(accountID, apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		apiBaseURL: defaultAPIBaseURL,
		webBaseURL: defaultWebBaseURL,
		accountID:  accountID,
		apiKey:     apiKey,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsConfigured reports whether API credentials are present
func (c *Client) IsConfigured() bool {
	return c.accountID != "" && c.apiKey != ""
}

// FetchRate fetches the reference rate for converting ref into base
// (e.g. base=MXN, ref=USD yields how many MXN one USD buys)
func (c *Client) FetchRate(
	ctx context.Context,
	base types.Currency,
	ref types.Currency,
) (*Quote, error) {
	if !c.IsConfigured() {
		return c.fetchRateFromWeb(ctx, base, ref)
	}

	return c.fetchRateFromAPI(ctx, base, ref)
}

// convertFromResponse is the XE convert_from API response shape
type convertFromResponse struct {
	To []convertFromRow `json:"to"`
}

type convertFromRow struct {
	QuoteCurrency string   `json:"quotecurrency"`
	Mid           *float64 `json:"mid"`
	Bid           *float64 `json:"bid"`
	Ask           *float64 `json:"ask"`
}

// fetchRateFromAPI queries the convert_from endpoint with basic auth
func (c *Client) fetchRateFromAPI(
	ctx context.Context,
	base types.Currency,
	ref types.Currency,
) (*Quote, error) {
	endpoint := fmt.Sprintf(
		"%s/v1/convert_from.json?%s",
		c.apiBaseURL,
		url.Values{
			"from":           {ref.String()},
			"to":             {base.String()},
			"amount":         {"1"},
			"decimal_places": {"6"},
		}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create GET request: %w", err)
	}

	req.SetBasicAuth(c.accountID, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	var payload convertFromResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("unable to decode response: %w", err)
	}

	if len(payload.To) == 0 {
		return nil, fmt.Errorf("%w: empty conversion for %s/%s", ErrNoRate, ref, base)
	}

	row := payload.To[0]
	if row.Mid == nil || *row.Mid <= 0 {
		return nil, fmt.Errorf("%w: missing mid for %s/%s", ErrNoRate, ref, base)
	}

	// Map bid / ask to the mid when the plan does not provide them
	quote := &Quote{
		Mid: *row.Mid,
		Bid: *row.Mid,
		Ask: *row.Mid,
	}

	if row.Bid != nil && *row.Bid > 0 {
		quote.Bid = *row.Bid
	}

	if row.Ask != nil && *row.Ask > 0 {
		quote.Ask = *row.Ask
	}

	return quote, nil
}
