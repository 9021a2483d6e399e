package testing

import (
	"context"
	"sync"

	"github.com/aristath/nasdaq-universe/internal/domain"
)

// MockTickerSource is an in-memory TickerSource
type MockTickerSource struct {
	mu      sync.RWMutex
	name    string
	symbols []string
	err     error
	calls   int
}

// NewMockTickerSource creates a source returning symbols
func NewMockTickerSource(name string, symbols []string) *MockTickerSource {
	return &MockTickerSource{name: name, symbols: symbols}
}

// SetError makes FetchSymbols fail with err
func (m *MockTickerSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FetchSymbols returns the configured symbols or error
func (m *MockTickerSource) FetchSymbols(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]string(nil), m.symbols...), nil
}

// Name returns the source name
func (m *MockTickerSource) Name() string {
	return m.name
}

// Calls returns how many times FetchSymbols was called
func (m *MockTickerSource) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// MockMarketCapProvider is an in-memory MarketCapProvider.
// Symbols without a cap are left out of the result, which callers treat as unavailable.
type MockMarketCapProvider struct {
	mu      sync.RWMutex
	name    string
	caps    map[string]float64
	failing map[string]error
	batches [][]string
}

// NewMockMarketCapProvider creates a provider answering from caps
func NewMockMarketCapProvider(name string, caps map[string]float64) *MockMarketCapProvider {
	return &MockMarketCapProvider{
		name:    name,
		caps:    caps,
		failing: make(map[string]error),
	}
}

// SetSymbolError makes the lookup for symbol fail with err
func (m *MockMarketCapProvider) SetSymbolError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[symbol] = err
}

// MarketCaps returns a record per known symbol
func (m *MockMarketCapProvider) MarketCaps(ctx context.Context, symbols []string) (map[string]domain.MarketCapRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), symbols...))

	out := make(map[string]domain.MarketCapRecord, len(symbols))
	for _, symbol := range symbols {
		if err, ok := m.failing[symbol]; ok {
			out[symbol] = domain.Failed(symbol, err)
			continue
		}
		if value, ok := m.caps[symbol]; ok {
			if value > 0 {
				out[symbol] = domain.Found(symbol, value)
			} else {
				out[symbol] = domain.Unavailable(symbol)
			}
		}
	}
	return out, nil
}

// Name returns the provider name
func (m *MockMarketCapProvider) Name() string {
	return m.name
}

// Batches returns the symbol batches requested so far
func (m *MockMarketCapProvider) Batches() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]string(nil), m.batches...)
}
