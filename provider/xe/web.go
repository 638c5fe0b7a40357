package xe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stablewatch/premiums/storage/types"
)

// fetchRateFromWeb scrapes the public converter page for the mid rate.
// This is the credential-less fallback; bid and ask map to the mid
func (c *Client) fetchRateFromWeb(
	ctx context.Context,
	base types.Currency,
	ref types.Currency,
) (*Quote, error) {
	endpoint := fmt.Sprintf(
		"%s?%s",
		c.webBaseURL,
		url.Values{
			"Amount": {"1"},
			"From":   {ref.String()},
			"To":     {base.String()},
		}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create GET request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to construct query doc: %w", err)
	}

	// The converted amount is rendered as "17.123456 Mexican Pesos"
	sel := doc.Find(`p[class*="result__BigRate"]`).First()
	if sel.Length() == 0 {
		sel = doc.Find(`[data-testid="conversion-result"]`).First()
	}

	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: rate element not found for %s/%s", ErrNoRate, ref, base)
	}

	mid, err := parseRateText(sel.Text())
	if err != nil {
		return nil, fmt.Errorf("unable to parse rate for %s/%s: %w", ref, base, err)
	}

	return &Quote{
		Mid: mid,
		Bid: mid,
		Ask: mid,
	}, nil
}

// parseRateText extracts the leading decimal number from the rendered
// conversion text, tolerating thousands separators and a trailing
// currency name
func parseRateText(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrNoRate
	}

	fields := strings.Fields(s)

	raw := strings.ReplaceAll(fields[0], ",", "")

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse rate %q: %w", raw, err)
	}

	if v <= 0 {
		return 0, ErrNoRate
	}

	return v, nil
}
