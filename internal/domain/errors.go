package domain

import "fmt"

// ListingError reports that the candidate listing could not be retrieved
type ListingError struct {
	Err    error
	Source string
	URL    string
}

func (e *ListingError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("listing %s (%s) unavailable: %v", e.Source, e.URL, e.Err)
	}
	return fmt.Sprintf("listing %s unavailable: %v", e.Source, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// ProviderError reports a failed market-cap request for a whole batch
type ProviderError struct {
	Err        error
	Provider   string
	StatusCode int
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
