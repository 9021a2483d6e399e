// Package fmp looks up market capitalizations through the Financial Modeling
// Prep batch quote endpoint.
package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://financialmodelingprep.com"
	// ~55 requests per minute, under the free tier's 60
	minRequestInterval = 1100 * time.Millisecond
)

// Quote is the subset of the FMP quote payload this client reads
type Quote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	MarketCap float64 `json:"marketCap"`
	Exchange  string  `json:"exchange"`
}

// Client is the FMP API client
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	log         zerolog.Logger
	minInterval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a new FMP client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:         log.With().Str("client", "fmp").Logger(),
		minInterval: minRequestInterval,
	}
}

// Name implements domain.MarketCapProvider
func (c *Client) Name() string {
	return "fmp"
}

// MarketCaps fetches quotes for all symbols in one request.
// Symbols missing from the response are left out of the result.
func (c *Client) MarketCaps(ctx context.Context, symbols []string) (map[string]domain.MarketCapRecord, error) {
	out := make(map[string]domain.MarketCapRecord, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	quotes, err := c.GetQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	for _, q := range quotes {
		symbol := strings.ToUpper(q.Symbol)
		out[symbol] = domain.Found(symbol, q.MarketCap)
	}
	return out, nil
}

// GetQuotes calls /api/v3/quote/{A,B,...}
func (c *Client) GetQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	if err := c.waitForSlot(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/api/v3/quote/%s?apikey=%s",
		c.baseURL,
		strings.Join(symbols, ","),
		url.QueryEscape(c.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Int("count", len(symbols)).Msg("Fetching quotes")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{Provider: c.Name(), Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ProviderError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", apiErrorMessage(body)),
		}
	}

	var quotes []Quote
	if err := json.Unmarshal(body, &quotes); err != nil {
		// Errors come back as an object with a 200 status on some plans
		if msg := apiErrorMessage(body); msg != "" {
			return nil, &domain.ProviderError{Provider: c.Name(), Err: fmt.Errorf("API error: %s", msg)}
		}
		return nil, &domain.ProviderError{Provider: c.Name(), Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	return quotes, nil
}

// waitForSlot blocks until minInterval has passed since the previous request
func (c *Client) waitForSlot(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastRequest.IsZero() {
		if wait := c.minInterval - time.Since(c.lastRequest); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	c.lastRequest = time.Now()
	return nil
}

// apiErrorMessage extracts FMP's "Error Message" field, or the raw body
func apiErrorMessage(body []byte) string {
	var apiErr struct {
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.ErrorMessage != "" {
		return apiErr.ErrorMessage
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
