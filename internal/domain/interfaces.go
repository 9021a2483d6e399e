package domain

import "context"

// TickerSource lists candidate ticker symbols from an exchange listing.
// Implementations return a *ListingError when the listing cannot be retrieved or parsed.
type TickerSource interface {
	// FetchSymbols returns the raw symbols in listing order
	FetchSymbols(ctx context.Context) ([]string, error)

	// Name identifies the source in logs and run history
	Name() string
}

// MarketCapProvider looks up market capitalizations for a batch of symbols.
//
// A non-nil error means the whole batch failed. Otherwise the map carries one
// record per symbol the provider could say something about; symbols missing
// from the map are treated as unavailable by the caller.
type MarketCapProvider interface {
	MarketCaps(ctx context.Context, symbols []string) (map[string]MarketCapRecord, error)

	// Name identifies the provider in logs and run history
	Name() string
}
