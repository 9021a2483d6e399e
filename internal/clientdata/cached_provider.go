package clientdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/rs/zerolog"
)

// cachedMarketCap is the structure stored in the market_caps table
type cachedMarketCap struct {
	MarketCap float64 `json:"market_cap"`
	Provider  string  `json:"provider"`
}

// CachedProvider serves fresh market caps from the cache and forwards misses
// to the wrapped provider. Only found values are stored, so unavailable and
// failed lookups are retried on the next run.
type CachedProvider struct {
	inner domain.MarketCapProvider
	repo  *Repository
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedProvider wraps inner with the market_caps cache
func NewCachedProvider(inner domain.MarketCapProvider, repo *Repository, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = TTLMarketCap
	}
	return &CachedProvider{
		inner: inner,
		repo:  repo,
		ttl:   ttl,
		log:   log.With().Str("component", "market_cap_cache").Logger(),
	}
}

// Name returns the wrapped provider's name
func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// MarketCaps implements domain.MarketCapProvider
func (p *CachedProvider) MarketCaps(ctx context.Context, symbols []string) (map[string]domain.MarketCapRecord, error) {
	out := make(map[string]domain.MarketCapRecord, len(symbols))
	misses := make([]string, 0, len(symbols))

	for _, symbol := range symbols {
		data, err := p.repo.GetIfFresh(TableMarketCaps, symbol)
		if err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Cache read failed")
		}
		if data != nil {
			var cached cachedMarketCap
			// Entries written by another provider count as misses and get overwritten
			if err := json.Unmarshal(data, &cached); err == nil && cached.MarketCap > 0 && cached.Provider == p.inner.Name() {
				out[symbol] = domain.Found(symbol, cached.MarketCap)
				continue
			}
		}
		misses = append(misses, symbol)
	}

	p.log.Debug().
		Int("hits", len(out)).
		Int("misses", len(misses)).
		Msg("Market cap cache lookup")

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := p.inner.MarketCaps(ctx, misses)
	if err != nil {
		return nil, err
	}

	for symbol, rec := range fetched {
		out[symbol] = rec
		if rec.Status != domain.LookupFound {
			continue
		}
		entry := cachedMarketCap{MarketCap: rec.Value, Provider: p.inner.Name()}
		if err := p.repo.Store(TableMarketCaps, symbol, entry, p.ttl); err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache market cap")
		}
	}

	return out, nil
}
