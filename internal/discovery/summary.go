package discovery

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the market caps of the retained symbols
type Summary struct {
	Count  int     `json:"count" msgpack:"count"`
	Total  float64 `json:"total" msgpack:"total"`
	Mean   float64 `json:"mean" msgpack:"mean"`
	Median float64 `json:"median" msgpack:"median"`
	P10    float64 `json:"p10" msgpack:"p10"`
	P90    float64 `json:"p90" msgpack:"p90"`
	Min    float64 `json:"min" msgpack:"min"`
	Max    float64 `json:"max" msgpack:"max"`
}

// Summarize computes the distribution of the given market caps.
// An empty input returns the zero Summary.
func Summarize(caps []float64) Summary {
	if len(caps) == 0 {
		return Summary{}
	}

	sorted := append([]float64(nil), caps...)
	sort.Float64s(sorted)

	return Summary{
		Count:  len(sorted),
		Total:  floats.Sum(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P10:    stat.Quantile(0.10, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.90, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}
