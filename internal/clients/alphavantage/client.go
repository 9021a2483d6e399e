// Package alphavantage reads market capitalizations from the Alpha Vantage
// OVERVIEW endpoint. The free tier allows 25 requests per day, so the client
// counts requests and refuses once the budget is spent.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL     = "https://www.alphavantage.co/query"
	defaultDailyLimit  = 25
	defaultOverviewTTL = 24 * time.Hour
)

// ErrRateLimitExceeded is returned once the daily request budget is spent
// or the API reports throttling.
type ErrRateLimitExceeded struct{}

func (ErrRateLimitExceeded) Error() string {
	return "alphavantage: daily rate limit exceeded"
}

// ErrInvalidAPIKey is returned when the API rejects the key
type ErrInvalidAPIKey struct{}

func (ErrInvalidAPIKey) Error() string {
	return "alphavantage: invalid API key"
}

// ErrSymbolNotFound is returned when the API has no data for a symbol
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("alphavantage: symbol %s not found", e.Symbol)
}

// CompanyOverview is the subset of OVERVIEW fields this client reads
type CompanyOverview struct {
	Symbol               string
	AssetType            string
	Name                 string
	Exchange             string
	Currency             string
	MarketCapitalization int64
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// Client is the Alpha Vantage API client
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	log         zerolog.Logger
	overviewTTL time.Duration

	mu           sync.Mutex
	dailyLimit   int
	requestCount int
	resetAt      time.Time

	cacheMu sync.RWMutex
	cache   map[string]cacheEntry
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:         log.With().Str("client", "alphavantage").Logger(),
		overviewTTL: defaultOverviewTTL,
		dailyLimit:  defaultDailyLimit,
		resetAt:     nextMidnightUTC(),
		cache:       make(map[string]cacheEntry),
	}
}

// Name implements domain.MarketCapProvider
func (c *Client) Name() string {
	return "alphavantage"
}

// GetRemainingRequests returns how many requests are left today
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollOverLocked()
	return c.dailyLimit - c.requestCount
}

// ResetDailyCounter restores the full daily budget
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCount = 0
	c.resetAt = nextMidnightUTC()
}

// checkRateLimit reserves one request from the daily budget
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollOverLocked()
	if c.requestCount >= c.dailyLimit {
		return ErrRateLimitExceeded{}
	}
	c.requestCount++
	return nil
}

func (c *Client) rollOverLocked() {
	if time.Now().After(c.resetAt) {
		c.requestCount = 0
		c.resetAt = nextMidnightUTC()
	}
}

func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

// MarketCaps looks up each symbol with its own OVERVIEW request.
// Once the daily budget runs out the remaining symbols are marked failed.
// An invalid key fails the whole batch.
func (c *Client) MarketCaps(ctx context.Context, symbols []string) (map[string]domain.MarketCapRecord, error) {
	out := make(map[string]domain.MarketCapRecord, len(symbols))

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		overview, err := c.GetCompanyOverview(ctx, symbol)
		switch {
		case err == nil:
			out[symbol] = domain.Found(symbol, float64(overview.MarketCapitalization))
		case errors.As(err, new(ErrInvalidAPIKey)):
			return nil, &domain.ProviderError{Provider: c.Name(), Err: err}
		case errors.As(err, new(ErrSymbolNotFound)):
			out[symbol] = domain.Unavailable(symbol)
		default:
			out[symbol] = domain.Failed(symbol, err)
		}
	}

	return out, nil
}

// GetCompanyOverview fetches OVERVIEW for a symbol, cached in memory
func (c *Client) GetCompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error) {
	params := map[string]string{"symbol": symbol}
	key := buildCacheKey("OVERVIEW", params)

	if cached, ok := c.getFromCache(key); ok {
		if overview, ok := cached.(*CompanyOverview); ok {
			return overview, nil
		}
	}

	body, err := c.doRequest(ctx, "OVERVIEW", params)
	if err != nil {
		return nil, err
	}

	overview, err := parseCompanyOverview(body)
	if err != nil {
		return nil, err
	}
	// An empty object means the symbol is unknown
	if overview.Symbol == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(key, overview, c.overviewTTL)
	return overview, nil
}

func (c *Client) doRequest(ctx context.Context, function string, params map[string]string) ([]byte, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("function", function)
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().
		Str("function", function).
		Str("symbol", params["symbol"]).
		Msg("Making Alpha Vantage request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Alpha Vantage API error: status %d", resp.StatusCode)
	}

	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkAPIError detects error payloads, which Alpha Vantage returns with status 200
func (c *Client) checkAPIError(body []byte) error {
	text := string(body)
	if strings.Contains(text, "Thank you for using Alpha Vantage") {
		return ErrRateLimitExceeded{}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Not an object, let the caller's parser decide
		return nil
	}

	if _, ok := payload["Note"]; ok {
		return ErrRateLimitExceeded{}
	}
	if info, ok := payload["Information"].(string); ok {
		if strings.Contains(strings.ToLower(info), "api key") && !strings.Contains(strings.ToLower(info), "rate limit") {
			return ErrInvalidAPIKey{}
		}
		return ErrRateLimitExceeded{}
	}
	if msg, ok := payload["Error Message"].(string); ok {
		if strings.Contains(strings.ToLower(msg), "apikey") || strings.Contains(strings.ToLower(msg), "api key") {
			return ErrInvalidAPIKey{}
		}
		return fmt.Errorf("Alpha Vantage API error: %s", msg)
	}

	return nil
}

func parseCompanyOverview(body []byte) (*CompanyOverview, error) {
	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse overview: %w", err)
	}

	return &CompanyOverview{
		Symbol:               raw["Symbol"],
		AssetType:            raw["AssetType"],
		Name:                 raw["Name"],
		Exchange:             raw["Exchange"],
		Currency:             raw["Currency"],
		MarketCapitalization: parseInt64(raw["MarketCapitalization"]),
	}, nil
}

// buildCacheKey builds a deterministic key, leaving out the API key
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(function)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}

func (c *Client) getFromCache(key string) (interface{}, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

func (c *Client) setCache(key string, data interface{}, ttl time.Duration) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

// ClearCache drops every cached response
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// parseFloat64 parses Alpha Vantage numeric strings; "None", "-" and junk become 0
func parseFloat64(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	switch s {
	case "", "None", "null", "-":
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseInt64 accepts integers as well as float and exponent forms ("1.5E10")
func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return int64(parseFloat64(s))
}
