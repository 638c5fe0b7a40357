// Package scan runs one-shot premium scans across fiat markets: it fetches
// P2P buy/sell quotes and reference FX rates per market, feeds them through
// the premium engine, and collects one row per market. A failed market
// yields an error row; it never aborts the rest of the batch.
package scan

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/stablewatch/premiums/compute"
	"github.com/stablewatch/premiums/provider/currencies"
	"github.com/stablewatch/premiums/storage/types"
)

// QuoteSource supplies averaged P2P stablecoin quotes
type QuoteSource interface {
	// AveragePrice returns the averaged quote for the given fiat / asset /
	// trade side, or an error when the market has insufficient data
	AveragePrice(
		ctx context.Context,
		fiat types.Currency,
		asset types.Currency,
		side types.RateType,
		minValidAds int,
	) (float64, error)
}

// FXQuote is a reference FX quote supplied by an FXSource
type FXQuote struct {
	Mid float64
	Bid float64
	Ask float64
}

// FXSource supplies reference FX rates
type FXSource interface {
	// FetchRate returns the reference quote for converting ref into base,
	// or an error when the pair is unavailable
	FetchRate(ctx context.Context, base, ref types.Currency) (*FXQuote, error)
}

type Status string

const (
	StatusOK           Status = "ok"
	StatusNoP2PData    Status = "insufficient_p2p_data"
	StatusNoFXData     Status = "insufficient_fx_data"
	StatusComputeError Status = "compute_error"
)

// Row is the scan outcome for a single fiat market. The premium fields are
// flattened into the row when the computation succeeded
type Row struct {
	*compute.Result

	Fiat    types.Currency `json:"fiat"`
	Asset   types.Currency `json:"asset"`
	RefFiat types.Currency `json:"ref_fiat"`

	SellRate *float64 `json:"sell_rate"`
	BuyRate  *float64 `json:"buy_rate"`
	FXBid    *float64 `json:"fx_bid"`
	FXAsk    *float64 `json:"fx_ask"`

	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the row carries an error state
func (r *Row) Failed() bool {
	return r.Status != StatusOK
}

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Scanner runs premium scans against configured quote and FX sources
type Scanner struct {
	quotes QuoteSource
	fx     FXSource
	logger *slog.Logger

	asset       types.Currency
	ref         types.Currency
	decimals    *int
	minValidAds int
}

type Option func(s *Scanner)

// WithLogger specifies the logger for the scanner
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// WithAsset specifies the stablecoin asset to scan. Defaults to USDT
func WithAsset(asset types.Currency) Option {
	return func(s *Scanner) {
		s.asset = asset
	}
}

// WithRefFiat specifies the reference fiat for FX rates. Defaults to USD
func WithRefFiat(ref types.Currency) Option {
	return func(s *Scanner) {
		s.ref = ref
	}
}

// WithDecimals rounds computed outputs to the given number of fractional
// digits. Default is full precision
func WithDecimals(d int) Option {
	return func(s *Scanner) {
		s.decimals = &d
	}
}

// WithMinValidAds requires at least this many valid P2P ads per quote,
// otherwise the market is reported as having insufficient data
func WithMinValidAds(n int) Option {
	return func(s *Scanner) {
		s.minValidAds = n
	}
}

// New creates a new Scanner instance
func New(quotes QuoteSource, fx FXSource, opts ...Option) *Scanner {
	s := &Scanner{
		quotes: quotes,
		fx:     fx,
		logger: noopLogger,
		asset:  currencies.USDT,
		ref:    currencies.USD,
	}

	// Apply the options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run scans the given fiat markets, returning one row per market in input
// order. Markets are scanned sequentially; the three fetches within one
// market run concurrently
func (s *Scanner) Run(ctx context.Context, fiats []types.Currency) []Row {
	rows := make([]Row, 0, len(fiats))

	for _, fiat := range fiats {
		rows = append(rows, s.scanMarket(ctx, fiat))
	}

	return rows
}

// scanMarket fetches the four input rates for one market and computes the
// premium metrics
func (s *Scanner) scanMarket(ctx context.Context, fiat types.Currency) Row {
	row := Row{
		Fiat:    fiat,
		Asset:   s.asset,
		RefFiat: s.ref,
	}

	var (
		buy, sell float64
		fx        *FXQuote

		buyErr, sellErr, fxErr error
	)

	// The three upstream fetches are independent
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		buy, buyErr = s.quotes.AveragePrice(groupCtx, fiat, s.asset, types.RateTypeBUY, s.minValidAds)

		return nil
	})

	group.Go(func() error {
		sell, sellErr = s.quotes.AveragePrice(groupCtx, fiat, s.asset, types.RateTypeSELL, s.minValidAds)

		return nil
	})

	group.Go(func() error {
		fx, fxErr = s.fx.FetchRate(groupCtx, fiat, s.ref)

		return nil
	})

	_ = group.Wait() //nolint:errcheck // fetch errors are kept per-slot

	if buyErr == nil {
		row.BuyRate = &buy
	}

	if sellErr == nil {
		row.SellRate = &sell
	}

	if buyErr != nil || sellErr != nil {
		row.Status = StatusNoP2PData
		row.Error = firstError(buyErr, sellErr).Error()

		s.logger.Debug(
			"insufficient P2P data",
			"fiat", fiat,
			"asset", s.asset,
			"err", row.Error,
		)

		return row
	}

	if fxErr != nil {
		row.Status = StatusNoFXData
		row.Error = fxErr.Error()

		s.logger.Debug(
			"insufficient FX data",
			"fiat", fiat,
			"ref", s.ref,
			"err", row.Error,
		)

		return row
	}

	row.FXBid = &fx.Bid
	row.FXAsk = &fx.Ask

	result, err := compute.ComputePremiums(compute.Input{
		SellRate: sell,
		BuyRate:  buy,
		FXBid:    fx.Bid,
		FXAsk:    fx.Ask,
		Decimals: s.decimals,
	})
	if err != nil {
		row.Status = StatusComputeError
		row.Error = err.Error()

		s.logger.Debug(
			"compute error",
			"fiat", fiat,
			"err", err,
		)

		return row
	}

	row.Result = result
	row.Status = StatusOK

	return row
}

// firstError returns the first non-nil error
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// AnyFailed reports whether any row in the batch carries an error state
func AnyFailed(rows []Row) bool {
	for i := range rows {
		if rows[i].Failed() {
			return true
		}
	}

	return false
}
