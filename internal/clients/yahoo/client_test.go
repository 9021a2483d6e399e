package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := NewClient(zerolog.Nop())
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, "yahoo", client.Name())
}

func TestMarketCaps_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		assert.Equal(t, "AAPL,BRK-B,ZERO,GONE", r.URL.Query().Get("symbols"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quoteResponse":{"result":[
			{"symbol":"AAPL","marketCap":2950000000000},
			{"symbol":"BRK-B","marketCap":880000000000},
			{"symbol":"ZERO","marketCap":0}
		],"error":null}}`))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	caps, err := client.MarketCaps(context.Background(), []string{"AAPL", "BRK.B", "ZERO", "GONE"})
	require.NoError(t, err)

	assert.Equal(t, domain.LookupFound, caps["AAPL"].Status)
	assert.Equal(t, 2.95e12, caps["AAPL"].Value)
	assert.Equal(t, 8.8e11, caps["BRK.B"].Value)
	assert.Equal(t, domain.LookupUnavailable, caps["ZERO"].Status)

	_, present := caps["GONE"]
	assert.False(t, present)
}

func TestMarketCaps_MissingMarketCapField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"ETF1","quoteType":"ETF"}],"error":null}}`))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	caps, err := client.MarketCaps(context.Background(), []string{"ETF1"})
	require.NoError(t, err)
	assert.Equal(t, domain.LookupUnavailable, caps["ETF1"].Status)
}

func TestMarketCaps_SharedYahooSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BRK-B", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"BRK-B","marketCap":880000000000}],"error":null}}`))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	caps, err := client.MarketCaps(context.Background(), []string{"BRK.B", "BRK-B"})
	require.NoError(t, err)
	require.Len(t, caps, 2)
	assert.Equal(t, "BRK.B", caps["BRK.B"].Symbol)
	assert.Equal(t, 8.8e11, caps["BRK.B"].Value)
	assert.Equal(t, "BRK-B", caps["BRK-B"].Symbol)
	assert.Equal(t, 8.8e11, caps["BRK-B"].Value)
}

func TestMarketCaps_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("Too Many Requests"))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	_, err := client.MarketCaps(context.Background(), []string{"AAPL"})
	require.Error(t, err)

	var providerErr *domain.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusTooManyRequests, providerErr.StatusCode)
}

func TestMarketCaps_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[],"error":{"code":"Bad Request"}}}`))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	_, err := client.MarketCaps(context.Background(), []string{"AAPL"})
	assert.ErrorContains(t, err, "API error")
}

func TestMarketCaps_Empty(t *testing.T) {
	client := NewClient(zerolog.Nop())
	client.baseURL = "http://127.0.0.1:1" // never dialled

	caps, err := client.MarketCaps(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, caps)
}

func TestGetFloat64(t *testing.T) {
	m := map[string]interface{}{"f": 1.5, "i": 2, "s": "3", "n": nil}

	assert.Equal(t, 1.5, *getFloat64(m, "f"))
	assert.Equal(t, 2.0, *getFloat64(m, "i"))
	assert.Nil(t, getFloat64(m, "s"))
	assert.Nil(t, getFloat64(m, "n"))
	assert.Nil(t, getFloat64(m, "missing"))
}
