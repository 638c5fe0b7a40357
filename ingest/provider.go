package ingest

import (
	"context"
	"time"

	"github.com/stablewatch/premiums/storage/types"
)

// Provider is a single rate provider (P2P marketplace, FX data vendor)
type Provider interface {
	// Name returns the human-readable name of the provider
	Name() string

	// Interval returns the interval at which the provider should be called
	Interval() time.Duration

	// Fetch is the provider's main fetch job, yielding observed rate data points
	Fetch(context.Context) ([]*types.ExchangeRate, error)
}
