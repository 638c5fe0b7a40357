package serve

import (
	"os"

	"github.com/stablewatch/premiums/cmd/env"
	"github.com/stablewatch/premiums/ingest"
	"github.com/stablewatch/premiums/provider/binance"
	"github.com/stablewatch/premiums/provider/coinapi"
	"github.com/stablewatch/premiums/provider/eldorado"
	"github.com/stablewatch/premiums/provider/xe"
	"github.com/stablewatch/premiums/storage/types"
)

// defaultProviders returns the default ingestion providers for the
// configured markets
func defaultProviders(c *serveCfg) []ingest.Provider {
	var (
		asset = types.Currency(c.asset)
		ref   = types.Currency(c.refFiat)
		fiats = c.fiatList()

		// P2P stablecoin quotes
		binanceProvider = binance.NewProvider(
			binance.NewClient(c.timeout),
			asset,
			fiats...,
		)

		// Reference FX rates; falls back to the public converter page
		// when no API credentials are set
		xeProvider = xe.NewProvider(
			xe.NewClient(
				os.Getenv(env.Prefix+env.XEAccountIDSuffix),
				os.Getenv(env.Prefix+env.XEAPIKeySuffix),
				c.timeout,
			),
			ref,
			fiats...,
		)
	)

	providers := []ingest.Provider{
		binanceProvider,
		xeProvider,
	}

	// Secondary P2P quote source, only when an endpoint is configured
	if eldoradoURL := os.Getenv(env.Prefix + env.EldoradoURLSuffix); eldoradoURL != "" {
		providers = append(providers, eldorado.NewProvider(
			eldorado.NewClient(c.timeout, eldorado.WithBaseURL(eldoradoURL)),
			asset,
			fiats...,
		))
	}

	// Secondary reference rate source, only when an API key is configured
	if coinAPIClient := coinapi.NewClient(
		os.Getenv(env.Prefix+env.CoinAPIKeySuffix),
		c.timeout,
	); coinAPIClient.IsConfigured() {
		providers = append(providers, coinapi.NewProvider(
			coinAPIClient,
			ref,
			fiats...,
		))
	}

	return providers
}
