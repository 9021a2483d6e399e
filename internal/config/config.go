// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Listing profiles
const (
	ProfileDatahub   = "datahub"
	ProfileDumbstock = "dumbstock"
	ProfileFMP       = "fmp"
)

// Market-cap providers
const (
	ProviderYahoo        = "yahoo"
	ProviderFMP          = "fmp"
	ProviderAlphaVantage = "alphavantage"
)

// Config holds application configuration
type Config struct {
	LogLevel  string
	LogPretty bool
	Port      int

	Universe UniverseConfig
	Storage  StorageConfig
	Publish  PublishConfig

	FMPAPIKey          string
	AlphaVantageAPIKey string

	Schedule   string // Cron expression with seconds field
	CronSecret string // Bearer token for the trigger endpoint, empty = open
}

// UniverseConfig controls listing and filtering
type UniverseConfig struct {
	Profile         string
	ListingURL      string
	Provider        string
	Threshold       float64
	BatchSize       int
	BatchDelay      time.Duration
	MaxSymbolLength int
	OutputPath      string
	AllowFallback   bool // Substitute the placeholder list when the listing is unreachable
}

// StorageConfig controls the optional sqlite cache and run history
type StorageConfig struct {
	DBPath   string // Empty disables the cache and history
	CacheTTL time.Duration
}

// Enabled reports whether a database path is configured
func (s StorageConfig) Enabled() bool {
	return s.DBPath != ""
}

// PublishConfig holds the S3/R2 snapshot target
type PublishConfig struct {
	Bucket          string
	Endpoint        string // Custom endpoint for R2 or MinIO, empty = AWS
	Region          string
	Key             string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a bucket is configured
func (p PublishConfig) Enabled() bool {
	return p.Bucket != ""
}

// ListingProfile holds the defaults a listing preset brings
type ListingProfile struct {
	URL        string
	Field      string // Record key holding the ticker
	Exchange   string // Keep only records whose exchange contains this, empty = all
	Pattern    string // Symbol regexp, empty = any
	BatchSize  int
	BatchDelay time.Duration
}

// Profiles maps each listing preset to its defaults
var Profiles = map[string]ListingProfile{
	ProfileDatahub: {
		URL:        "https://pkgstore.datahub.io/core/nasdaq-listings/nasdaq-listed_json/data/a5bc7580d6176d60a1b213bcbc517bc4/nasdaq-listed_json.json",
		Field:      "Symbol",
		BatchSize:  50,
		BatchDelay: 500 * time.Millisecond,
	},
	ProfileDumbstock: {
		URL:        "https://dumbstockapi.com/stock?exchanges=NASDAQ",
		Field:      "ticker",
		BatchSize:  100,
		BatchDelay: 100 * time.Millisecond,
	},
	ProfileFMP: {
		URL:        "https://financialmodelingprep.com/stable/stock-list",
		Field:      "symbol",
		Exchange:   "NASDAQ",
		Pattern:    `^[A-Z]{1,5}$`,
		BatchSize:  100,
		BatchDelay: 100 * time.Millisecond,
	},
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	profileName := strings.ToLower(getEnv("UNIVERSE_PROFILE", ProfileDatahub))
	profile, ok := Profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("unknown listing profile %q", profileName)
	}

	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
		Port:      getEnvAsInt("GO_PORT", 8001),
		Universe: UniverseConfig{
			Profile:         profileName,
			ListingURL:      getEnv("UNIVERSE_LISTING_URL", profile.URL),
			Provider:        strings.ToLower(getEnv("UNIVERSE_PROVIDER", ProviderYahoo)),
			Threshold:       getEnvAsFloat("UNIVERSE_THRESHOLD", 100_000_000),
			BatchSize:       getEnvAsInt("UNIVERSE_BATCH_SIZE", profile.BatchSize),
			BatchDelay:      getEnvAsDuration("UNIVERSE_BATCH_DELAY", profile.BatchDelay),
			MaxSymbolLength: getEnvAsInt("UNIVERSE_MAX_SYMBOL_LEN", 5),
			OutputPath:      getEnv("UNIVERSE_OUTPUT_PATH", "data/nasdaq_universe.json"),
			AllowFallback:   getEnvAsBool("UNIVERSE_ALLOW_FALLBACK", false),
		},
		Storage: StorageConfig{
			DBPath:   getEnv("UNIVERSE_DB_PATH", ""),
			CacheTTL: getEnvAsDuration("UNIVERSE_CACHE_TTL", 24*time.Hour),
		},
		Publish: PublishConfig{
			Bucket:          getEnv("UNIVERSE_S3_BUCKET", ""),
			Endpoint:        getEnv("UNIVERSE_S3_ENDPOINT", ""),
			Region:          getEnv("UNIVERSE_S3_REGION", "auto"),
			Key:             getEnv("UNIVERSE_S3_KEY", "nasdaq_universe.json"),
			AccessKeyID:     getEnv("UNIVERSE_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("UNIVERSE_S3_SECRET_ACCESS_KEY", ""),
		},
		FMPAPIKey:          getEnv("FMP_API_KEY", ""),
		AlphaVantageAPIKey: getEnv("ALPHAVANTAGE_API_KEY", ""),
		Schedule:           getEnv("UNIVERSE_SCHEDULE", "0 0 6 * * MON-FRI"),
		CronSecret:         getEnv("CRON_SECRET", ""),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	u := c.Universe

	if _, ok := Profiles[u.Profile]; !ok {
		return fmt.Errorf("unknown listing profile %q", u.Profile)
	}
	if u.ListingURL == "" {
		return fmt.Errorf("listing URL is required")
	}
	if u.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", u.BatchSize)
	}
	if u.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative, got %v", u.Threshold)
	}
	if u.BatchDelay < 0 {
		return fmt.Errorf("batch delay must not be negative, got %s", u.BatchDelay)
	}
	if u.MaxSymbolLength <= 0 {
		return fmt.Errorf("max symbol length must be positive, got %d", u.MaxSymbolLength)
	}
	if u.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}

	switch u.Provider {
	case ProviderYahoo:
	case ProviderFMP:
		if c.FMPAPIKey == "" {
			return fmt.Errorf("FMP_API_KEY is required for provider %q", u.Provider)
		}
	case ProviderAlphaVantage:
		if c.AlphaVantageAPIKey == "" {
			return fmt.Errorf("ALPHAVANTAGE_API_KEY is required for provider %q", u.Provider)
		}
	default:
		return fmt.Errorf("unknown market cap provider %q", u.Provider)
	}

	// The FMP listing needs a key even when another provider does the lookups
	if u.Profile == ProfileFMP && c.FMPAPIKey == "" {
		return fmt.Errorf("FMP_API_KEY is required for listing profile %q", u.Profile)
	}

	if c.Storage.Enabled() && c.Storage.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.Storage.CacheTTL)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("500ms") or a bare number of milliseconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
