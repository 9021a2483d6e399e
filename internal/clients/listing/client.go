// Package listing fetches the set of symbols listed on an exchange from a
// public JSON listing (an array of objects, one per security).
package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aristath/nasdaq-universe/internal/clientdata"
	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/rs/zerolog"
)

// exchangeFields are the record keys checked by the exchange filter
var exchangeFields = []string{"exchangeShortName", "exchange"}

// Config describes one listing endpoint
type Config struct {
	Name     string // Source name, also the cache key
	URL      string
	Field    string // Record key holding the ticker
	Exchange string // Optional exchange filter, matched as a case-insensitive substring
	Pattern  string // Optional symbol regexp
	APIKey   string // Sent as the apikey query parameter when set
}

// Client fetches a listing and extracts its symbols
type Client struct {
	baseURL    string
	name       string
	field      string
	exchange   string
	pattern    *regexp.Regexp
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
	cacheRepo  *clientdata.Repository
}

// NewClient creates a listing client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cfg Config, cacheRepo *clientdata.Repository, log zerolog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("listing URL is required")
	}
	if cfg.Field == "" {
		return nil, fmt.Errorf("listing field is required")
	}

	var pattern *regexp.Regexp
	if cfg.Pattern != "" {
		p, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid symbol pattern %q: %w", cfg.Pattern, err)
		}
		pattern = p
	}

	name := cfg.Name
	if name == "" {
		name = "listing"
	}

	return &Client{
		baseURL:  cfg.URL,
		name:     name,
		field:    cfg.Field,
		exchange: strings.ToUpper(cfg.Exchange),
		pattern:  pattern,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:       log.With().Str("client", "listing").Str("source", name).Logger(),
		cacheRepo: cacheRepo,
	}, nil
}

// Name returns the source name
func (c *Client) Name() string {
	return c.name
}

// FetchSymbols returns the listed symbols in listing order.
// Records without a string ticker are skipped. Any failure to obtain a usable
// listing is reported as a *domain.ListingError.
// If the API fails, returns a stale cached listing if available.
func (c *Client) FetchSymbols(ctx context.Context) ([]string, error) {
	if symbols, ok := c.getFromCache(); ok {
		c.log.Debug().Int("count", len(symbols)).Msg("Listing cache hit")
		return symbols, nil
	}

	symbols, err := c.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if stale, ok := c.getStaleFromCache(); ok {
			c.log.Warn().
				Err(err).
				Int("count", len(stale)).
				Msg("Listing request failed, using stale cached listing")
			return stale, nil
		}
		return nil, &domain.ListingError{Source: c.name, URL: c.redactedURL(), Err: err}
	}

	c.setCache(symbols)
	return symbols, nil
}

func (c *Client) fetch(ctx context.Context) ([]string, error) {
	reqURL, err := c.requestURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("url", c.redactedURL()).Msg("Fetching listing")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var records []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	symbols := c.extract(records)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("listing contained no usable symbols (%d records)", len(records))
	}

	c.log.Info().
		Int("records", len(records)).
		Int("symbols", len(symbols)).
		Msg("Listing fetched")

	return symbols, nil
}

// extract pulls the ticker field out of each record, applying the exchange
// and pattern filters when configured
func (c *Client) extract(records []map[string]interface{}) []string {
	symbols := make([]string, 0, len(records))
	for _, record := range records {
		symbol, ok := record[c.field].(string)
		if !ok {
			continue
		}
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		if c.exchange != "" && !c.onExchange(record) {
			continue
		}
		if c.pattern != nil && !c.pattern.MatchString(symbol) {
			continue
		}
		symbols = append(symbols, symbol)
	}
	return symbols
}

func (c *Client) onExchange(record map[string]interface{}) bool {
	for _, field := range exchangeFields {
		if v, ok := record[field].(string); ok && strings.Contains(strings.ToUpper(v), c.exchange) {
			return true
		}
	}
	return false
}

func (c *Client) requestURL() (string, error) {
	if c.apiKey == "" {
		return c.baseURL, nil
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid listing URL: %w", err)
	}
	q := u.Query()
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redactedURL is the listing URL with any API key removed, safe for logs and errors
func (c *Client) redactedURL() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.name
	}
	q := u.Query()
	if q.Has("apikey") {
		q.Set("apikey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) getFromCache() ([]string, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.GetIfFresh(clientdata.TableListings, c.name)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to get from cache")
		return nil, false
	}
	return decodeCached(data)
}

func (c *Client) getStaleFromCache() ([]string, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.Get(clientdata.TableListings, c.name)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to get stale data from cache")
		return nil, false
	}
	return decodeCached(data)
}

func decodeCached(data json.RawMessage) ([]string, bool) {
	if data == nil {
		return nil, false
	}
	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil || len(symbols) == 0 {
		return nil, false
	}
	return symbols, true
}

func (c *Client) setCache(symbols []string) {
	if c.cacheRepo == nil {
		return
	}
	if err := c.cacheRepo.Store(clientdata.TableListings, c.name, symbols, clientdata.TTLListing); err != nil {
		c.log.Warn().Err(err).Msg("Failed to cache listing")
	}
}
