package discovery

import (
	"strings"

	"github.com/aristath/nasdaq-universe/internal/domain"
)

// Candidates is the listing after the symbol filter
type Candidates struct {
	Symbols  []string           // Accepted symbols in listing order
	Rejected []domain.Exclusion // Symbols dropped by the length filter
	Listed   int                // Raw record count returned by the source
}

// NormalizeCandidates uppercases and trims the raw listing, drops blanks and
// duplicates, and rejects symbols longer than maxLen. Listing order is kept.
func NormalizeCandidates(raw []string, maxLen int) Candidates {
	out := Candidates{
		Symbols: make([]string, 0, len(raw)),
		Listed:  len(raw),
	}
	seen := make(map[string]struct{}, len(raw))

	for _, s := range raw {
		symbol := strings.ToUpper(strings.TrimSpace(s))
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}

		if maxLen > 0 && len(symbol) > maxLen {
			out.Rejected = append(out.Rejected, domain.Exclusion{
				Symbol: symbol,
				Reason: domain.ReasonInvalidSymbol,
			})
			continue
		}
		out.Symbols = append(out.Symbols, symbol)
	}

	return out
}

// Partition splits symbols into consecutive batches of at most size elements.
// A non-positive size yields a single batch.
func Partition(symbols []string, size int) [][]string {
	if len(symbols) == 0 {
		return nil
	}
	if size <= 0 || size >= len(symbols) {
		return [][]string{symbols}
	}

	batches := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		batches = append(batches, symbols[start:end])
	}
	return batches
}
