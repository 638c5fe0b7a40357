package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stablewatch/premiums/compute"
	"github.com/stablewatch/premiums/storage/types"
)

const (
	defaultLimit = int32(100)
	maxLimit     = int32(500)
)

var (
	errUnableToFetchRates      = errors.New("unable to fetch rates")
	errUnableToFetchCurrencies = errors.New("unable to fetch currencies")
	errUnableToFetchSources    = errors.New("unable to fetch sources")

	errInvalidLimit    = errors.New("invalid limit")
	errInvalidOffset   = errors.New("invalid offset")
	errInvalidType     = errors.New("invalid type")
	errInvalidDecimals = errors.New("invalid decimals (must be a non-negative integer)")
)

func (s *Server) RatesForPair(w http.ResponseWriter, r *http.Request) {
	var (
		baseParam   = chi.URLParam(r, "base")
		targetParam = chi.URLParam(r, "target")
	)

	// Parse the base currency
	base, err := parseCurrencySymbol(baseParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the target currency
	target, err := parseCurrencySymbol(targetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	s.serveRates(w, r, base, &target)
}

func (s *Server) RatesForBase(w http.ResponseWriter, r *http.Request) {
	// Parse the base currency
	base, err := parseCurrencySymbol(chi.URLParam(r, "base"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	s.serveRates(w, r, base, nil)
}

// serveRates resolves the latest rates for the parsed currency pair, using
// the shared query params (as_of, source, type, pagination)
func (s *Server) serveRates(
	w http.ResponseWriter,
	r *http.Request,
	base types.Currency,
	target *types.Currency,
) {
	var (
		asOfParam   = r.URL.Query().Get("as_of")
		limitParam  = r.URL.Query().Get("limit")
		offsetParam = r.URL.Query().Get("offset")

		sourceParam = r.URL.Query().Get("source")
		typeParam   = r.URL.Query().Get("type")
	)

	// Parse the effective date (defaults to now)
	asOf, err := parseAsOf(asOfParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the pagination settings
	limit, offset, err := parseLimitOffset(limitParam, offsetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the source and rate type (optional)
	source, rateType, err := parseSourceAndType(sourceParam, typeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	q := &types.RateQuery{
		Base:     base,
		Target:   target,
		Source:   source,
		RateType: rateType,
		Limit:    limit,
		Offset:   offset,
	}

	page, err := s.storage.RateAsOf(r.Context(), q, asOf)
	if err != nil {
		s.logger.Debug(
			"unable to fetch rates",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchRates,
		)

		return
	}

	writeJSON(w, http.StatusOK, page)
}

// PremiumsForFiat derives the premium metrics for a fiat market from the
// latest stored P2P quotes and FX rates
func (s *Server) PremiumsForFiat(w http.ResponseWriter, r *http.Request) {
	// Parse the fiat currency
	fiat, err := parseCurrencySymbol(chi.URLParam(r, "fiat"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the effective date (defaults to now)
	asOf, err := parseAsOf(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the rounding precision (optional)
	decimals, err := parseDecimals(r.URL.Query().Get("decimals"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Resolve the four input rates
	var (
		ctx = r.Context()

		buy  = s.lookupRate(ctx, s.asset, fiat, types.RateTypeBUY, asOf)
		sell = s.lookupRate(ctx, s.asset, fiat, types.RateTypeSELL, asOf)
		bid  = s.lookupRateWithFallback(ctx, s.ref, fiat, types.RateTypeBID, asOf)
		ask  = s.lookupRateWithFallback(ctx, s.ref, fiat, types.RateTypeASK, asOf)
	)

	for _, missing := range []struct {
		rate *types.ExchangeRate
		name string
	}{
		{buy, "buy_rate"},
		{sell, "sell_rate"},
		{bid, "fx_bid"},
		{ask, "fx_ask"},
	} {
		if missing.rate == nil {
			writeError(
				w,
				http.StatusConflict,
				fmt.Errorf("insufficient data for %s: no stored %s rate", fiat, missing.name),
			)

			return
		}
	}

	result, err := compute.ComputePremiums(compute.Input{
		SellRate: sell.Rate,
		BuyRate:  buy.Rate,
		FXBid:    bid.Rate,
		FXAsk:    ask.Rate,
		Decimals: decimals,
	})
	if err != nil {
		// The error names the offending input, pointing at the bad source
		writeError(w, http.StatusBadRequest, err)

		return
	}

	writeJSON(w, http.StatusOK, &PremiumResponse{
		Result:   result,
		Fiat:     fiat,
		Asset:    s.asset,
		RefFiat:  s.ref,
		SellRate: sell.Rate,
		BuyRate:  buy.Rate,
		FXBid:    bid.Rate,
		FXAsk:    ask.Rate,
		AsOf:     oldestAsOf(buy, sell, bid, ask),
	})
}

// lookupRate fetches the single latest rate for the pair and type, or nil
func (s *Server) lookupRate(
	ctx context.Context,
	base types.Currency,
	target types.Currency,
	rateType types.RateType,
	asOf time.Time,
) *types.ExchangeRate {
	q := &types.RateQuery{
		Base:     base,
		Target:   &target,
		RateType: &rateType,
		Limit:    1,
	}

	page, err := s.storage.RateAsOf(ctx, q, asOf)
	if err != nil {
		s.logger.Debug(
			"unable to fetch rate",
			"base", base,
			"target", target,
			"type", rateType,
			"err", err,
		)

		return nil
	}

	if page == nil || len(page.Results) == 0 {
		return nil
	}

	return page.Results[0]
}

// lookupRateWithFallback behaves like lookupRate, falling back to the MID
// rate when the requested side is not stored (entry-level FX feeds often
// publish the mid only)
func (s *Server) lookupRateWithFallback(
	ctx context.Context,
	base types.Currency,
	target types.Currency,
	rateType types.RateType,
	asOf time.Time,
) *types.ExchangeRate {
	if rate := s.lookupRate(ctx, base, target, rateType, asOf); rate != nil {
		return rate
	}

	return s.lookupRate(ctx, base, target, types.RateTypeMID, asOf)
}

// oldestAsOf returns the effective date of the stalest input rate
func oldestAsOf(rates ...*types.ExchangeRate) time.Time {
	oldest := rates[0].AsOf

	for _, rate := range rates[1:] {
		if rate.AsOf.Before(oldest) {
			oldest = rate.AsOf
		}
	}

	return oldest
}

func (s *Server) Sources(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListSources(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch sources",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchSources,
		)

		return
	}

	writeJSON(w, http.StatusOK, &SourcesResponse{
		Results: items,
	})
}

func (s *Server) Currencies(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListCurrencies(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch currencies",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchCurrencies,
		)

		return
	}

	writeJSON(w, http.StatusOK, &CurrenciesResponse{
		Results: items,
	})
}

func parseAsOf(asOfRaw string) (time.Time, error) {
	v := strings.TrimSpace(asOfRaw)
	if v == "" {
		return time.Now().UTC(), nil // default is now
	}

	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New("invalid as_of (must be RFC3339 UTC)")
	}

	return t.UTC(), nil
}

func parseLimitOffset(limitRaw, offsetRaw string) (int32, int64, error) {
	limit := defaultLimit

	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 || n > math.MaxInt32 {
			return 0, 0, errInvalidLimit
		}

		limit = int32(n)
	}

	if limit == 0 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	var offset int64

	if v := strings.TrimSpace(offsetRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, errInvalidOffset
		}

		offset = n
	}

	return limit, offset, nil
}

func parseSourceAndType(sourceRaw, typeRaw string) (*types.Source, *types.RateType, error) {
	var src *types.Source

	if v := strings.TrimSpace(sourceRaw); v != "" {
		s := types.Source(v)

		src = &s
	}

	var rt *types.RateType

	if v := strings.TrimSpace(typeRaw); v != "" {
		t := types.RateType(strings.ToUpper(v))

		switch t {
		case types.RateTypeMID,
			types.RateTypeBID,
			types.RateTypeASK,
			types.RateTypeBUY,
			types.RateTypeSELL:
			rt = &t
		default:
			return nil, nil, errInvalidType
		}
	}

	return src, rt, nil
}

// parseDecimals parses the optional rounding precision
func parseDecimals(raw string) (*int, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil // full precision
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, errInvalidDecimals
	}

	return &n, nil
}

// parseCurrencySymbol parses a currency code (3-letter fiat codes, plus
// 4-letter stablecoin tickers like USDT)
func parseCurrencySymbol(v string) (types.Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if len(s) < 3 || len(s) > 5 {
		return "", errors.New("invalid currency (must be 3-5 letters)")
	}

	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", errors.New("invalid currency (must be A-Z)")
		}
	}

	return types.Currency(s), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, &ErrorResponse{
		Error: err.Error(),
	})
}
