package clientdata

import "time"

// TTL constants for cached data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLListing   = 24 * time.Hour // Exchange listings change a few times a week at most
	TTLMarketCap = 24 * time.Hour // Default, overridden by UNIVERSE_CACHE_TTL
)
