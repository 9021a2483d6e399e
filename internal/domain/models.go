// Package domain provides core domain models and types.
package domain

import "fmt"

// DefaultMarketCapThreshold is the inclusive market capitalization floor (USD) for the universe.
const DefaultMarketCapThreshold = 100_000_000

// DefaultMaxSymbolLength excludes warrants, units and other derivative listings.
const DefaultMaxSymbolLength = 5

// LookupStatus tags the outcome of a single market-cap lookup
type LookupStatus int

const (
	// LookupFound means the provider returned a positive market cap
	LookupFound LookupStatus = iota
	// LookupUnavailable means the provider answered but had no usable figure (absent, zero or negative)
	LookupUnavailable
	// LookupFailed means the lookup itself errored (timeout, malformed response, API error)
	LookupFailed
)

// String returns the status name used in logs and the run history
func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupUnavailable:
		return "unavailable"
	case LookupFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarketCapRecord is the transient association between a ticker and its market cap.
// Value is only meaningful when Status is LookupFound.
type MarketCapRecord struct {
	Err    error
	Symbol string
	Value  float64
	Status LookupStatus
}

// Found builds a record for a usable figure. Zero or negative values degrade to Unavailable.
func Found(symbol string, value float64) MarketCapRecord {
	if value <= 0 {
		return Unavailable(symbol)
	}
	return MarketCapRecord{Symbol: symbol, Value: value, Status: LookupFound}
}

// Unavailable builds a record for a symbol the provider had no figure for
func Unavailable(symbol string) MarketCapRecord {
	return MarketCapRecord{Symbol: symbol, Status: LookupUnavailable}
}

// Failed builds a record for a lookup that errored
func Failed(symbol string, err error) MarketCapRecord {
	return MarketCapRecord{Symbol: symbol, Status: LookupFailed, Err: err}
}

// ExclusionReason explains why a candidate is absent from the universe
type ExclusionReason string

const (
	ReasonInvalidSymbol  ExclusionReason = "invalid_symbol"
	ReasonBelowThreshold ExclusionReason = "below_threshold"
	ReasonUnavailable    ExclusionReason = "unavailable"
	ReasonLookupFailed   ExclusionReason = "lookup_failed"
	ReasonBatchFailed    ExclusionReason = "batch_failed"
)

// Exclusion records one excluded candidate
type Exclusion struct {
	Symbol    string          `json:"symbol" msgpack:"s"`
	Reason    ExclusionReason `json:"reason" msgpack:"r"`
	MarketCap float64         `json:"market_cap,omitempty" msgpack:"c,omitempty"`
	Detail    string          `json:"detail,omitempty" msgpack:"d,omitempty"`
}
