package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment can't leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOG_LEVEL", "LOG_PRETTY", "GO_PORT",
		"UNIVERSE_PROFILE", "UNIVERSE_LISTING_URL", "UNIVERSE_PROVIDER",
		"UNIVERSE_THRESHOLD", "UNIVERSE_BATCH_SIZE", "UNIVERSE_BATCH_DELAY",
		"UNIVERSE_MAX_SYMBOL_LEN", "UNIVERSE_OUTPUT_PATH", "UNIVERSE_ALLOW_FALLBACK",
		"UNIVERSE_DB_PATH", "UNIVERSE_CACHE_TTL",
		"UNIVERSE_S3_BUCKET", "UNIVERSE_S3_ENDPOINT", "UNIVERSE_S3_REGION", "UNIVERSE_S3_KEY",
		"UNIVERSE_S3_ACCESS_KEY_ID", "UNIVERSE_S3_SECRET_ACCESS_KEY",
		"FMP_API_KEY", "ALPHAVANTAGE_API_KEY", "UNIVERSE_SCHEDULE", "CRON_SECRET",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 8001, cfg.Port)

	assert.Equal(t, ProfileDatahub, cfg.Universe.Profile)
	assert.Equal(t, Profiles[ProfileDatahub].URL, cfg.Universe.ListingURL)
	assert.Equal(t, ProviderYahoo, cfg.Universe.Provider)
	assert.Equal(t, 100_000_000.0, cfg.Universe.Threshold)
	assert.Equal(t, 50, cfg.Universe.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Universe.BatchDelay)
	assert.Equal(t, 5, cfg.Universe.MaxSymbolLength)
	assert.Equal(t, "data/nasdaq_universe.json", cfg.Universe.OutputPath)
	assert.False(t, cfg.Universe.AllowFallback)

	assert.False(t, cfg.Storage.Enabled())
	assert.Equal(t, 24*time.Hour, cfg.Storage.CacheTTL)
	assert.False(t, cfg.Publish.Enabled())
	assert.Equal(t, "0 0 6 * * MON-FRI", cfg.Schedule)
}

func TestLoad_DumbstockProfile(t *testing.T) {
	clearEnv(t)
	t.Setenv("UNIVERSE_PROFILE", "dumbstock")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://dumbstockapi.com/stock?exchanges=NASDAQ", cfg.Universe.ListingURL)
	assert.Equal(t, 100, cfg.Universe.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Universe.BatchDelay)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("UNIVERSE_LISTING_URL", "http://localhost/listing.json")
	t.Setenv("UNIVERSE_THRESHOLD", "250000000")
	t.Setenv("UNIVERSE_BATCH_SIZE", "25")
	t.Setenv("UNIVERSE_BATCH_DELAY", "250") // bare milliseconds
	t.Setenv("UNIVERSE_CACHE_TTL", "6h")
	t.Setenv("UNIVERSE_DB_PATH", "/tmp/universe.db")
	t.Setenv("UNIVERSE_ALLOW_FALLBACK", "true")
	t.Setenv("LOG_PRETTY", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost/listing.json", cfg.Universe.ListingURL)
	assert.Equal(t, 250_000_000.0, cfg.Universe.Threshold)
	assert.Equal(t, 25, cfg.Universe.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Universe.BatchDelay)
	assert.Equal(t, 6*time.Hour, cfg.Storage.CacheTTL)
	assert.True(t, cfg.Storage.Enabled())
	assert.True(t, cfg.Universe.AllowFallback)
	assert.False(t, cfg.LogPretty)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("UNIVERSE_BATCH_SIZE", "lots")
	t.Setenv("UNIVERSE_BATCH_DELAY", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Universe.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Universe.BatchDelay)
}

func TestLoad_UnknownProfile(t *testing.T) {
	clearEnv(t)
	t.Setenv("UNIVERSE_PROFILE", "nyse")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown listing profile")
}

func TestLoad_ProviderKeyRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("UNIVERSE_PROVIDER", "fmp")

	_, err := Load()
	assert.ErrorContains(t, err, "FMP_API_KEY")

	t.Setenv("FMP_API_KEY", "demo")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderFMP, cfg.Universe.Provider)
}

func validConfig() *Config {
	return &Config{
		Universe: UniverseConfig{
			Profile:         ProfileDatahub,
			ListingURL:      Profiles[ProfileDatahub].URL,
			Provider:        ProviderYahoo,
			Threshold:       100_000_000,
			BatchSize:       50,
			BatchDelay:      500 * time.Millisecond,
			MaxSymbolLength: 5,
			OutputPath:      "data/nasdaq_universe.json",
		},
		Storage: StorageConfig{CacheTTL: time.Hour},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero batch size", func(c *Config) { c.Universe.BatchSize = 0 }, "batch size"},
		{"negative threshold", func(c *Config) { c.Universe.Threshold = -1 }, "threshold"},
		{"zero threshold allowed", func(c *Config) { c.Universe.Threshold = 0 }, ""},
		{"negative delay", func(c *Config) { c.Universe.BatchDelay = -time.Second }, "batch delay"},
		{"zero delay allowed", func(c *Config) { c.Universe.BatchDelay = 0 }, ""},
		{"unknown provider", func(c *Config) { c.Universe.Provider = "bloomberg" }, "unknown market cap provider"},
		{"alphavantage without key", func(c *Config) { c.Universe.Provider = ProviderAlphaVantage }, "ALPHAVANTAGE_API_KEY"},
		{"fmp listing without key", func(c *Config) { c.Universe.Profile = ProfileFMP }, "listing profile"},
		{"empty output path", func(c *Config) { c.Universe.OutputPath = "" }, "output path"},
		{"zero ttl with storage", func(c *Config) {
			c.Storage.DBPath = "x.db"
			c.Storage.CacheTTL = 0
		}, "cache TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
