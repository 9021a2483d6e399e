package listing

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/nasdaq-universe/internal/clientdata"
	"github.com/aristath/nasdaq-universe/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveJSON(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, cfg Config, repo *clientdata.Repository) *Client {
	t.Helper()
	client, err := NewClient(cfg, repo, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func setupCache(t *testing.T) *clientdata.Repository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE listings (source TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL)`)
	require.NoError(t, err)
	return clientdata.NewRepository(db)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{Field: "Symbol"}, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "http://x"}, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "http://x", Field: "Symbol", Pattern: "["}, nil, zerolog.Nop())
	assert.ErrorContains(t, err, "invalid symbol pattern")
}

func TestFetchSymbols_Datahub(t *testing.T) {
	server := serveJSON(t, `[
		{"Symbol": "AAPL", "Company Name": "Apple Inc."},
		{"Symbol": "MSFT", "Company Name": "Microsoft Corporation"},
		{"Company Name": "No ticker"},
		{"Symbol": 42},
		{"Symbol": "ZZZZZZ"}
	]`)

	client := newTestClient(t, Config{Name: "datahub", URL: server.URL, Field: "Symbol"}, nil)

	symbols, err := client.FetchSymbols(context.Background())
	require.NoError(t, err)
	// Length filtering happens downstream
	assert.Equal(t, []string{"AAPL", "MSFT", "ZZZZZZ"}, symbols)
	assert.Equal(t, "datahub", client.Name())
}

func TestFetchSymbols_Dumbstock(t *testing.T) {
	server := serveJSON(t, `[{"ticker":"NVDA","name":"NVIDIA"},{"ticker":"AMZN","name":"Amazon"}]`)

	client := newTestClient(t, Config{Name: "dumbstock", URL: server.URL, Field: "ticker"}, nil)

	symbols, err := client.FetchSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "AMZN"}, symbols)
}

func TestFetchSymbols_FMPExchangeAndPattern(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		w.Write([]byte(`[
			{"symbol":"AAPL","exchangeShortName":"NASDAQ"},
			{"symbol":"IBM","exchangeShortName":"NYSE"},
			{"symbol":"BRK.B","exchangeShortName":"NASDAQ"},
			{"symbol":"GOOGL","exchange":"NASDAQ Global Select"},
			{"symbol":"abc","exchangeShortName":"NASDAQ"}
		]`))
	}))
	defer server.Close()

	client := newTestClient(t, Config{
		Name:     "fmp",
		URL:      server.URL + "/stable/stock-list",
		Field:    "symbol",
		Exchange: "nasdaq",
		Pattern:  `^[A-Z]{1,5}$`,
		APIKey:   "secret",
	}, nil)

	symbols, err := client.FetchSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "GOOGL"}, symbols)
	assert.Equal(t, "secret", gotKey)
}

func TestFetchSymbols_HTTPErrorIsListingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	client := newTestClient(t, Config{Name: "datahub", URL: server.URL + "?apikey=secret", Field: "Symbol"}, nil)

	_, err := client.FetchSymbols(context.Background())
	require.Error(t, err)

	var listingErr *domain.ListingError
	require.True(t, errors.As(err, &listingErr))
	assert.Equal(t, "datahub", listingErr.Source)
	assert.Contains(t, err.Error(), "503")
	assert.NotContains(t, err.Error(), "secret")
}

func TestFetchSymbols_MalformedBody(t *testing.T) {
	server := serveJSON(t, `{"data": "not an array"}`)
	client := newTestClient(t, Config{Name: "datahub", URL: server.URL, Field: "Symbol"}, nil)

	_, err := client.FetchSymbols(context.Background())
	var listingErr *domain.ListingError
	assert.True(t, errors.As(err, &listingErr))
}

func TestFetchSymbols_EmptyListing(t *testing.T) {
	server := serveJSON(t, `[]`)
	client := newTestClient(t, Config{Name: "datahub", URL: server.URL, Field: "Symbol"}, nil)

	_, err := client.FetchSymbols(context.Background())
	assert.ErrorContains(t, err, "no usable symbols")
}

func TestFetchSymbols_Unreachable(t *testing.T) {
	server := serveJSON(t, `[]`)
	url := server.URL
	server.Close()

	client := newTestClient(t, Config{Name: "datahub", URL: url, Field: "Symbol"}, nil)

	_, err := client.FetchSymbols(context.Background())
	var listingErr *domain.ListingError
	assert.True(t, errors.As(err, &listingErr))
}

func TestFetchSymbols_CachedListing(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"Symbol":"AAPL"}]`))
	}))
	defer server.Close()

	repo := setupCache(t)
	client := newTestClient(t, Config{Name: "datahub", URL: server.URL, Field: "Symbol"}, repo)

	for i := 0; i < 2; i++ {
		symbols, err := client.FetchSymbols(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL"}, symbols)
	}
	assert.Equal(t, 1, calls)
}

func TestFetchSymbols_StaleCacheOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	repo := setupCache(t)
	require.NoError(t, repo.Store(clientdata.TableListings, "datahub", []string{"MSFT"}, -time.Hour))

	client := newTestClient(t, Config{Name: "datahub", URL: server.URL, Field: "Symbol"}, repo)

	symbols, err := client.FetchSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, symbols)
}
