package di

import (
	"context"
	"fmt"

	"github.com/aristath/nasdaq-universe/internal/clientdata"
	"github.com/aristath/nasdaq-universe/internal/clients/alphavantage"
	"github.com/aristath/nasdaq-universe/internal/clients/fmp"
	"github.com/aristath/nasdaq-universe/internal/clients/listing"
	"github.com/aristath/nasdaq-universe/internal/clients/yahoo"
	"github.com/aristath/nasdaq-universe/internal/config"
	"github.com/aristath/nasdaq-universe/internal/discovery"
	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/aristath/nasdaq-universe/internal/publish"
	"github.com/aristath/nasdaq-universe/internal/universe"
	"github.com/rs/zerolog"
)

// InitializeServices builds the listing source, market-cap provider, store,
// publisher and discoverer
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	source, err := newTickerSource(cfg, container.ClientDataRepo, log)
	if err != nil {
		return err
	}
	container.Source = source

	provider, err := newMarketCapProvider(cfg, log)
	if err != nil {
		return err
	}
	if container.ClientDataRepo != nil {
		provider = clientdata.NewCachedProvider(provider, container.ClientDataRepo, cfg.Storage.CacheTTL, log)
	}
	container.Provider = provider

	container.Store = universe.NewStore(cfg.Universe.OutputPath)

	if cfg.Publish.Enabled() {
		publisher, err := publish.NewS3Publisher(ctx, cfg.Publish, log)
		if err != nil {
			return fmt.Errorf("failed to create publisher: %w", err)
		}
		container.Publisher = publisher
	}

	container.Discoverer = discovery.New(discovery.Config{
		Source:   container.Source,
		Provider: container.Provider,
		Store:    container.Store,
		Options: discovery.Options{
			Threshold:       cfg.Universe.Threshold,
			BatchSize:       cfg.Universe.BatchSize,
			BatchDelay:      cfg.Universe.BatchDelay,
			MaxSymbolLength: cfg.Universe.MaxSymbolLength,
		},
		Log: log,
	})

	return nil
}

// newTickerSource builds the listing client for the configured profile,
// wrapped with the placeholder fallback when it is allowed
func newTickerSource(cfg *config.Config, cacheRepo *clientdata.Repository, log zerolog.Logger) (domain.TickerSource, error) {
	profile, ok := config.Profiles[cfg.Universe.Profile]
	if !ok {
		return nil, fmt.Errorf("unknown listing profile %q", cfg.Universe.Profile)
	}

	listingCfg := listing.Config{
		Name:     cfg.Universe.Profile,
		URL:      cfg.Universe.ListingURL,
		Field:    profile.Field,
		Exchange: profile.Exchange,
		Pattern:  profile.Pattern,
	}
	if cfg.Universe.Profile == config.ProfileFMP {
		listingCfg.APIKey = cfg.FMPAPIKey
	}

	client, err := listing.NewClient(listingCfg, cacheRepo, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing client: %w", err)
	}

	if cfg.Universe.AllowFallback {
		log.Warn().Msg("Placeholder fallback enabled for listing failures")
		return discovery.WithFallback(client, discovery.FallbackSymbols, log), nil
	}
	return client, nil
}

// newMarketCapProvider builds the configured market-cap provider
func newMarketCapProvider(cfg *config.Config, log zerolog.Logger) (domain.MarketCapProvider, error) {
	switch cfg.Universe.Provider {
	case config.ProviderYahoo:
		return yahoo.NewClient(log), nil
	case config.ProviderFMP:
		return fmp.NewClient(cfg.FMPAPIKey, log), nil
	case config.ProviderAlphaVantage:
		return alphavantage.NewClient(cfg.AlphaVantageAPIKey, log), nil
	default:
		return nil, fmt.Errorf("unknown market cap provider %q", cfg.Universe.Provider)
	}
}
