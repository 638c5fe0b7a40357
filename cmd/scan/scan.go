package scan

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/stablewatch/premiums/cmd/env"
	"github.com/stablewatch/premiums/provider/binance"
	"github.com/stablewatch/premiums/provider/currencies"
	"github.com/stablewatch/premiums/provider/xe"
	"github.com/stablewatch/premiums/scan"
	"github.com/stablewatch/premiums/storage/types"
)

var errScanIncomplete = errors.New("one or more markets failed to scan")

const (
	outputJSON = "json"
	outputCSV  = "csv"
)

// fiatList is a repeatable flag that also accepts comma-separated values
type fiatList []string

func (f *fiatList) String() string {
	return strings.Join(*f, ",")
}

func (f *fiatList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*f = append(*f, part)
		}
	}

	return nil
}

// scanCfg wraps the scan configuration
type scanCfg struct {
	fiats       fiatList
	asset       string
	refFiat     string
	output      string
	logLevel    string
	decimals    int
	minValidAds int
	timeout     time.Duration
	pretty      bool
}

// NewScanCmd creates the scan subcommand
func NewScanCmd() *ffcli.Command {
	cfg := &scanCfg{}

	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "scan",
		ShortUsage: "scan [flags]",
		LongHelp:   "Fetches P2P quotes and FX rates, then computes stablecoin premiums per fiat market",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *scanCfg) registerFlags(fs *flag.FlagSet) {
	fs.Var(
		&c.fiats,
		"fiats",
		"fiat codes to scan (comma-separated or repeated); defaults to MXN",
	)

	fs.StringVar(
		&c.asset,
		"asset",
		currencies.USDT.String(),
		"the stablecoin asset to scan",
	)

	fs.StringVar(
		&c.refFiat,
		"ref-fiat",
		currencies.USD.String(),
		"the reference fiat for FX rates",
	)

	fs.IntVar(
		&c.decimals,
		"decimals",
		-1,
		"round computed outputs to this many decimals (negative for full precision)",
	)

	fs.IntVar(
		&c.minValidAds,
		"min-valid-ads",
		0,
		"require at least this many valid P2P ads per quote",
	)

	fs.StringVar(
		&c.output,
		"output",
		outputJSON,
		"output format: json or csv",
	)

	fs.BoolVar(
		&c.pretty,
		"pretty",
		false,
		"pretty-print JSON output",
	)

	fs.DurationVar(
		&c.timeout,
		"timeout",
		time.Second*15,
		"per-request timeout for upstream providers",
	)

	fs.StringVar(
		&c.logLevel,
		"log-level",
		slog.LevelInfo.String(),
		"logging level",
	)
}

// xeSource adapts the XE client to the scanner's FX source
type xeSource struct {
	client *xe.Client
}

func (s *xeSource) FetchRate(
	ctx context.Context,
	base types.Currency,
	ref types.Currency,
) (*scan.FXQuote, error) {
	quote, err := s.client.FetchRate(ctx, base, ref)
	if err != nil {
		return nil, err
	}

	return &scan.FXQuote{
		Mid: quote.Mid,
		Bid: quote.Bid,
		Ask: quote.Ask,
	}, nil
}

// exec executes the premium scan
func (c *scanCfg) exec(ctx context.Context, _ []string) error {
	if c.output != outputJSON && c.output != outputCSV {
		return fmt.Errorf("invalid output format %q", c.output)
	}

	logger, err := newLogger(c.logLevel)
	if err != nil {
		return err
	}

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Debug("unable to load .env file")
	}

	var (
		quotes = binance.NewClient(c.timeout)

		fx = xe.NewClient(
			os.Getenv(env.Prefix+env.XEAccountIDSuffix),
			os.Getenv(env.Prefix+env.XEAPIKeySuffix),
			c.timeout,
		)
	)

	opts := []scan.Option{
		scan.WithLogger(logger),
		scan.WithAsset(types.Currency(c.asset)),
		scan.WithRefFiat(types.Currency(c.refFiat)),
		scan.WithMinValidAds(c.minValidAds),
	}

	if c.decimals >= 0 {
		opts = append(opts, scan.WithDecimals(c.decimals))
	}

	scanner := scan.New(quotes, &xeSource{client: fx}, opts...)

	rows := scanner.Run(ctx, parseFiats(c.fiats))

	if c.output == outputCSV {
		if err := scan.WriteCSV(os.Stdout, rows); err != nil {
			return err
		}
	} else {
		if err := scan.WriteJSON(os.Stdout, rows, c.pretty); err != nil {
			return err
		}
	}

	// Signal partial failure through the exit status; the rows themselves
	// carry the per-market error states
	if scan.AnyFailed(rows) {
		return errScanIncomplete
	}

	return nil
}

// parseFiats normalizes the fiat list, deduplicating while preserving
// order. Falls back to MXN when none are given
func parseFiats(raw fiatList) []types.Currency {
	if len(raw) == 0 {
		return []types.Currency{currencies.MXN}
	}

	var (
		seen = make(map[string]struct{}, len(raw))
		out  = make([]types.Currency, 0, len(raw))
	)

	for _, fiat := range raw {
		fiat = strings.ToUpper(fiat)

		if _, ok := seen[fiat]; ok {
			continue
		}

		seen[fiat] = struct{}{}
		out = append(out, types.Currency(fiat))
	}

	return out
}

// newLogger creates a text logger at the given level
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level

	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: lvl,
		}),
	), nil
}
