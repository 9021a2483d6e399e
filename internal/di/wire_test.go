package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/nasdaq-universe/internal/clientdata"
	"github.com/aristath/nasdaq-universe/internal/config"
	"github.com/aristath/nasdaq-universe/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	profile := config.Profiles[config.ProfileDatahub]
	return &config.Config{
		Port: 8001,
		Universe: config.UniverseConfig{
			Profile:         config.ProfileDatahub,
			ListingURL:      profile.URL,
			Provider:        config.ProviderYahoo,
			Threshold:       100_000_000,
			BatchSize:       profile.BatchSize,
			BatchDelay:      profile.BatchDelay,
			MaxSymbolLength: 5,
			OutputPath:      filepath.Join(t.TempDir(), "data", "nasdaq_universe.json"),
		},
		Storage:  config.StorageConfig{CacheTTL: 24 * time.Hour},
		Schedule: "0 0 6 * * MON-FRI",
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "universe.db")

	container, jobs, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	// Verify container is fully populated
	assert.NotNil(t, container.DB)
	assert.NotNil(t, container.ClientDataRepo)
	assert.NotNil(t, container.RunRepo)
	assert.NotNil(t, container.Discoverer)
	assert.Nil(t, container.Publisher)
	assert.Equal(t, cfg.Universe.OutputPath, container.Store.Path())
	assert.Equal(t, "datahub", container.Source.Name())
	assert.Equal(t, "yahoo", container.Provider.Name())

	_, cached := container.Provider.(*clientdata.CachedProvider)
	assert.True(t, cached, "provider is cached when storage is enabled")

	// Verify jobs are registered
	assert.NotNil(t, jobs.DiscoverUniverse)
	assert.NotNil(t, jobs.ClientDataCleanup)
	assert.NotNil(t, jobs.CheckDatabase)
	assert.NotNil(t, jobs.WALCheckpoints)

	s := scheduler.New(zerolog.Nop())
	require.NoError(t, ScheduleJobs(s, jobs, cfg))
	assert.Equal(t, 4, s.Jobs())
}

func TestWire_WithoutStorage(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Nil(t, container.DB)
	assert.Nil(t, container.RunRepo)
	assert.NoError(t, container.Close())

	_, cached := container.Provider.(*clientdata.CachedProvider)
	assert.False(t, cached)

	assert.NotNil(t, jobs.DiscoverUniverse)
	assert.Nil(t, jobs.ClientDataCleanup)

	s := scheduler.New(zerolog.Nop())
	require.NoError(t, ScheduleJobs(s, jobs, cfg))
	assert.Equal(t, 1, s.Jobs())
}

func TestScheduleJobs_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule = "every morning"

	_, jobs, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Error(t, ScheduleJobs(scheduler.New(zerolog.Nop()), jobs, cfg))
}

func TestNewMarketCapProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{config.ProviderYahoo, "yahoo", false},
		{config.ProviderFMP, "fmp", false},
		{config.ProviderAlphaVantage, "alphavantage", false},
		{"bloomberg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Universe.Provider = tt.provider
			cfg.FMPAPIKey = "fmp-key"
			cfg.AlphaVantageAPIKey = "av-key"

			provider, err := newMarketCapProvider(cfg, zerolog.Nop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, provider.Name())
		})
	}
}

func TestNewTickerSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Universe.Profile = config.ProfileFMP
	cfg.Universe.ListingURL = config.Profiles[config.ProfileFMP].URL
	cfg.Universe.AllowFallback = true
	cfg.FMPAPIKey = "fmp-key"

	source, err := newTickerSource(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "fmp", source.Name())

	cfg.Universe.Profile = "nasdaqtrader"
	_, err = newTickerSource(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_WithPublisher(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))

	cfg := testConfig(t)
	cfg.Publish = config.PublishConfig{
		Bucket:          "universe",
		Endpoint:        "http://127.0.0.1:9000",
		Region:          "auto",
		Key:             "nasdaq_universe.json",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
	}

	container, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container.Publisher)
	assert.Equal(t, "s3://universe/nasdaq_universe.json", container.Publisher.Target())
}
