package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stablewatch/premiums/storage/types"
)

const (
	defaultLimit = int32(100)
	maxLimit     = int32(500)
)

// observationKey uniquely identifies a rate observation
type observationKey struct {
	base, target, source, rateType string
	asOf                           int64 // unix nanos
}

// bucket groups observations for latest-rate resolution
type bucket struct {
	target, source, rateType string
}

// Storage is an in-memory rate store, used for local runs and tests
type Storage struct {
	data map[observationKey]types.ExchangeRate

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		data: make(map[observationKey]types.ExchangeRate),
	}
}

func (s *Storage) SaveExchangeRate(_ context.Context, r *types.ExchangeRate) error {
	k := observationKey{
		base:     r.Base.String(),
		target:   r.Target.String(),
		source:   r.Source.String(),
		rateType: r.RateType.String(),
		asOf:     r.AsOf.UTC().UnixNano(),
	}

	elem := *r
	elem.AsOf = elem.AsOf.UTC()
	elem.FetchedAt = elem.FetchedAt.UTC()

	s.mu.Lock()
	s.data[k] = elem // key is unique
	s.mu.Unlock()

	return nil
}

func (s *Storage) RateAsOf(
	_ context.Context,
	query *types.RateQuery,
	asOf time.Time,
) (*types.Page[*types.ExchangeRate], error) {
	cutoff := asOf.UTC()

	s.mu.RLock()

	// Resolve the freshest observation per bucket, up to the cutoff
	latest := make(map[bucket]types.ExchangeRate)

	for _, v := range s.data {
		if !matchesQuery(&v, query) {
			continue
		}

		if v.AsOf.After(cutoff) {
			continue
		}

		b := bucket{
			target:   v.Target.String(),
			source:   v.Source.String(),
			rateType: v.RateType.String(),
		}

		cur, ok := latest[b]
		if !ok ||
			v.AsOf.After(cur.AsOf) ||
			(v.AsOf.Equal(cur.AsOf) && v.FetchedAt.After(cur.FetchedAt)) {
			latest[b] = v
		}
	}

	s.mu.RUnlock()

	out := make([]*types.ExchangeRate, 0, len(latest))
	for _, v := range latest {
		cp := v
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target.String() < out[j].Target.String()
		}

		if out[i].Source != out[j].Source {
			return out[i].Source.String() < out[j].Source.String()
		}

		return out[i].RateType.String() < out[j].RateType.String()
	})

	return paginate(out, query.Limit, query.Offset), nil
}

// matchesQuery checks the observation against the query filters
func matchesQuery(v *types.ExchangeRate, query *types.RateQuery) bool {
	if v.Base != query.Base {
		return false
	}

	if query.Target != nil && v.Target != *query.Target {
		return false
	}

	if query.Source != nil && v.Source != *query.Source {
		return false
	}

	if query.RateType != nil && v.RateType != *query.RateType {
		return false
	}

	return true
}

// paginate clamps the limit and slices out the requested page
func paginate(
	out []*types.ExchangeRate,
	limit int32,
	offset int64,
) *types.Page[*types.ExchangeRate] {
	total := int64(len(out))
	if total == 0 || offset > total {
		return &types.Page[*types.ExchangeRate]{
			Results: nil,
			Total:   total,
		}
	}

	if limit <= 0 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	start := int(offset)

	end := start + int(limit)
	if end > len(out) {
		end = len(out)
	}

	return &types.Page[*types.ExchangeRate]{
		Results: out[start:end],
		Total:   total,
	}
}

func (s *Storage) ListSources(_ context.Context) ([]types.Source, error) {
	s.mu.RLock()

	seen := make(map[string]struct{})

	for k := range s.data {
		seen[k.source] = struct{}{}
	}

	s.mu.RUnlock()

	out := make([]types.Source, 0, len(seen))

	for v := range seen {
		out = append(out, types.Source(v))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}

func (s *Storage) ListCurrencies(_ context.Context) ([]types.Currency, error) {
	s.mu.RLock()

	seen := make(map[string]struct{})

	for k := range s.data {
		seen[k.base] = struct{}{}
		seen[k.target] = struct{}{}
	}

	s.mu.RUnlock()

	out := make([]types.Currency, 0, len(seen))

	for v := range seen {
		out = append(out, types.Currency(v))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}
