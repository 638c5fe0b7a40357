package storage

import (
	"context"
	"time"

	"github.com/stablewatch/premiums/storage/types"
)

// Storage is an abstraction over observed rate data
type Storage interface {
	// SaveExchangeRate saves the given rate data point
	SaveExchangeRate(context.Context, *types.ExchangeRate) error

	// RateAsOf fetches the latest rates matching the query, as of the given
	// time (one result per target / source / rate type bucket)
	RateAsOf(context.Context, *types.RateQuery, time.Time) (*types.Page[*types.ExchangeRate], error)

	// ListSources lists all present rate sources
	ListSources(context.Context) ([]types.Source, error)

	// ListCurrencies lists all currencies present
	ListCurrencies(context.Context) ([]types.Currency, error)
}
