package testing

// NewMarketCapFixtures returns market caps for a handful of NASDAQ symbols.
// SMOL sits below the $100M floor and EDGE sits exactly on it.
func NewMarketCapFixtures() map[string]float64 {
	return map[string]float64{
		"AAPL":  3_400_000_000_000,
		"MSFT":  3_100_000_000_000,
		"NVDA":  2_900_000_000_000,
		"GOOGL": 2_100_000_000_000,
		"AMZN":  1_900_000_000_000,
		"SMOL":  45_000_000,
		"EDGE":  100_000_000,
		"ZERO":  0,
	}
}

// NewListingFixture returns a listing in the datahub shape, including a
// symbol too long to pass the candidate filter
func NewListingFixture() string {
	return `[
		{"Symbol": "AAPL", "Company Name": "Apple Inc."},
		{"Symbol": "MSFT", "Company Name": "Microsoft Corporation"},
		{"Symbol": "SMOL", "Company Name": "Small Cap Holdings"},
		{"Symbol": "EDGE", "Company Name": "Edge Case Corp"},
		{"Symbol": "ZERO", "Company Name": "No Data Inc."},
		{"Symbol": "ABCDEFG", "Company Name": "Long Symbol Trust"},
		{"Symbol": "NVDA", "Company Name": "NVIDIA Corporation"}
	]`
}

// NewSymbolFixtures returns the symbols of NewListingFixture in listing order
func NewSymbolFixtures() []string {
	return []string{"AAPL", "MSFT", "SMOL", "EDGE", "ZERO", "ABCDEFG", "NVDA"}
}
