// Package yahoo looks up market capitalizations through the Yahoo Finance
// batch quote endpoint.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client is a Yahoo Finance API client
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// Name implements domain.MarketCapProvider
func (c *Client) Name() string {
	return "yahoo"
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  interface{}              `json:"error"`
	} `json:"quoteResponse"`
}

// toYahooSymbol converts share-class dots to the dash Yahoo uses (BRK.B -> BRK-B)
func toYahooSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}

// MarketCaps fetches the market cap of every symbol in one quote request.
// Symbols absent from the response are reported as unavailable.
func (c *Client) MarketCaps(ctx context.Context, symbols []string) (map[string]domain.MarketCapRecord, error) {
	out := make(map[string]domain.MarketCapRecord, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	// Map Yahoo's spelling back to every caller spelling (BRK.B and BRK-B share BRK-B)
	bySymbol := make(map[string][]string, len(symbols))
	yfSymbols := make([]string, 0, len(symbols))
	for _, s := range symbols {
		yf := toYahooSymbol(s)
		if _, seen := bySymbol[yf]; !seen {
			yfSymbols = append(yfSymbols, yf)
		}
		bySymbol[yf] = append(bySymbol[yf], s)
	}

	quotes, err := c.getQuotes(ctx, yfSymbols)
	if err != nil {
		return nil, err
	}

	for _, quote := range quotes {
		yf := getString(quote, "symbol", "")
		mc := getFloat64(quote, "marketCap")
		for _, symbol := range bySymbol[yf] {
			if mc != nil {
				out[symbol] = domain.Found(symbol, *mc)
			} else {
				out[symbol] = domain.Unavailable(symbol)
			}
		}
	}

	c.log.Debug().
		Int("requested", len(symbols)).
		Int("returned", len(quotes)).
		Msg("Fetched quotes")

	return out, nil
}

// getQuotes fetches quote information for a batch of symbols
func (c *Client) getQuotes(ctx context.Context, symbols []string) ([]map[string]interface{}, error) {
	params := url.Values{}
	params.Add("symbols", strings.Join(symbols, ","))
	params.Add("fields", "symbol,marketCap,quoteType,shortName")

	reqURL := c.baseURL + "/v7/finance/quote?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
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
			Err:        fmt.Errorf("%s", truncate(string(body), 200)),
		}
	}

	var result yahooQuoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &domain.ProviderError{Provider: c.Name(), Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if result.QuoteResponse.Error != nil {
		return nil, &domain.ProviderError{Provider: c.Name(), Err: fmt.Errorf("API error: %v", result.QuoteResponse.Error)}
	}

	return result.QuoteResponse.Result, nil
}

// Helper functions to safely extract values from map

func getFloat64(m map[string]interface{}, key string) *float64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		}
	}
	return nil
}

func getString(m map[string]interface{}, key string, defaultVal string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return defaultVal
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
