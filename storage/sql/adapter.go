package sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stablewatch/premiums/storage/types"
)

// DB is the subset of the pgx API the adapter uses.
// Satisfied by both *pgx.Conn and *pgxpool.Pool
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Storage is the Postgres-backed rate store
type Storage struct {
	db DB
}

func NewStorage(db DB) *Storage {
	return &Storage{
		db: db,
	}
}

const saveExchangeRateQuery = `
INSERT INTO exchange_rates (base, target, rate, rate_type, source, as_of, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (base, target, source, rate_type, as_of)
DO UPDATE SET rate = EXCLUDED.rate, fetched_at = EXCLUDED.fetched_at
`

func (s *Storage) SaveExchangeRate(
	ctx context.Context,
	rate *types.ExchangeRate,
) error {
	rows, err := s.db.Query(
		ctx,
		saveExchangeRateQuery,
		rate.Base.String(),
		rate.Target.String(),
		rate.Rate,
		rate.RateType.String(),
		rate.Source.String(),
		rate.AsOf.UTC(),
		rate.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("unable to save exchange rate: %w", err)
	}

	rows.Close()

	return rows.Err()
}

const rateAsOfQuery = `
SELECT base, target, rate::float8, rate_type, source, as_of, fetched_at, COUNT(*) OVER () AS total
FROM (
    SELECT DISTINCT ON (target, source, rate_type)
        base, target, rate, rate_type, source, as_of, fetched_at
    FROM exchange_rates
    WHERE base = $1
      AND as_of <= $2
      %s
    ORDER BY target, source, rate_type, as_of DESC, fetched_at DESC
) latest
ORDER BY target, source, rate_type
LIMIT $3 OFFSET $4
`

func (s *Storage) RateAsOf(
	ctx context.Context,
	query *types.RateQuery,
	asOf time.Time,
) (*types.Page[*types.ExchangeRate], error) {
	var (
		filters []string

		args = []any{
			query.Base.String(),
			asOf.UTC(),
			clampLimit(query.Limit),
			query.Offset,
		}
	)

	// Optional filters are appended positionally after the fixed args
	if query.Target != nil {
		args = append(args, query.Target.String())
		filters = append(filters, fmt.Sprintf("AND target = $%d", len(args)))
	}

	if query.Source != nil {
		args = append(args, query.Source.String())
		filters = append(filters, fmt.Sprintf("AND source = $%d", len(args)))
	}

	if query.RateType != nil {
		args = append(args, query.RateType.String())
		filters = append(filters, fmt.Sprintf("AND rate_type = $%d", len(args)))
	}

	q := fmt.Sprintf(rateAsOfQuery, strings.Join(filters, "\n      "))

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch rates: %w", err)
	}
	defer rows.Close()

	var (
		out   []*types.ExchangeRate
		total int64
	)

	for rows.Next() {
		var (
			rate types.ExchangeRate

			base, target, rateType, source string
		)

		if err := rows.Scan(
			&base,
			&target,
			&rate.Rate,
			&rateType,
			&source,
			&rate.AsOf,
			&rate.FetchedAt,
			&total,
		); err != nil {
			return nil, fmt.Errorf("unable to scan rate: %w", err)
		}

		rate.Base = types.Currency(base)
		rate.Target = types.Currency(target)
		rate.RateType = types.RateType(rateType)
		rate.Source = types.Source(source)

		out = append(out, &rate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read rates: %w", err)
	}

	return &types.Page[*types.ExchangeRate]{
		Results: out,
		Total:   total,
	}, nil
}

const listSourcesQuery = `
SELECT DISTINCT source FROM exchange_rates ORDER BY source
`

func (s *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	rows, err := s.db.Query(ctx, listSourcesQuery)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch sources: %w", err)
	}
	defer rows.Close()

	var out []types.Source

	for rows.Next() {
		var source string

		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("unable to scan source: %w", err)
		}

		out = append(out, types.Source(source))
	}

	return out, rows.Err()
}

const listCurrenciesQuery = `
SELECT DISTINCT currency FROM (
    SELECT base AS currency FROM exchange_rates
    UNION
    SELECT target AS currency FROM exchange_rates
) currencies
ORDER BY currency
`

func (s *Storage) ListCurrencies(ctx context.Context) ([]types.Currency, error) {
	rows, err := s.db.Query(ctx, listCurrenciesQuery)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch currencies: %w", err)
	}
	defer rows.Close()

	var out []types.Currency

	for rows.Next() {
		var currency string

		if err := rows.Scan(&currency); err != nil {
			return nil, fmt.Errorf("unable to scan currency: %w", err)
		}

		out = append(out, types.Currency(currency))
	}

	return out, rows.Err()
}

// clampLimit keeps page sizes within sane bounds
func clampLimit(limit int32) int32 {
	const (
		defaultLimit = int32(100)
		maxLimit     = int32(500)
	)

	if limit <= 0 {
		return defaultLimit
	}

	if limit > maxLimit {
		return maxLimit
	}

	return limit
}
