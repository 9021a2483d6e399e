package discovery

import (
	"context"
	"errors"

	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/rs/zerolog"
)

// FallbackSymbols is the placeholder listing callers may opt in to when the
// real listing is unavailable.
var FallbackSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "NFLX"}

type fallbackSource struct {
	inner    domain.TickerSource
	fallback []string
	log      zerolog.Logger
}

// WithFallback wraps src so that a *domain.ListingError is replaced by the
// given symbols. Any other error is returned unchanged.
func WithFallback(src domain.TickerSource, fallback []string, log zerolog.Logger) domain.TickerSource {
	return &fallbackSource{
		inner:    src,
		fallback: append([]string(nil), fallback...),
		log:      log.With().Str("component", "fallback_source").Logger(),
	}
}

func (s *fallbackSource) Name() string {
	return s.inner.Name()
}

func (s *fallbackSource) FetchSymbols(ctx context.Context) ([]string, error) {
	symbols, err := s.inner.FetchSymbols(ctx)
	if err == nil {
		return symbols, nil
	}

	var listingErr *domain.ListingError
	if !errors.As(err, &listingErr) {
		return nil, err
	}

	s.log.Warn().
		Err(err).
		Strs("fallback", s.fallback).
		Msg("Listing unavailable, substituting placeholder symbols")
	return append([]string(nil), s.fallback...), nil
}
