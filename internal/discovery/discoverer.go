// Package discovery turns an exchange listing into the market-cap filtered universe.
//
// The flow is a single forward pass:
//
//	TickerSource -> FetchCandidates -> FilterByMarketCap (batched) -> Persist
//
// Exclusion reasons are tracked per symbol so that a symbol missing for cap
// reasons and one missing because its lookup failed stay distinguishable,
// even though the persisted universe is a bare list of tickers.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/rs/zerolog"
)

// Options controls the filter pass
type Options struct {
	Threshold       float64       // Inclusive market-cap floor
	BatchSize       int           // Symbols per provider request
	BatchDelay      time.Duration // Politeness delay between batches
	MaxSymbolLength int           // Longer symbols are rejected before lookup
}

// DefaultOptions returns the NASDAQ defaults: $100M floor, batches of 50, 500ms apart
func DefaultOptions() Options {
	return Options{
		Threshold:       domain.DefaultMarketCapThreshold,
		BatchSize:       50,
		BatchDelay:      500 * time.Millisecond,
		MaxSymbolLength: domain.DefaultMaxSymbolLength,
	}
}

// Persister writes the universe
type Persister interface {
	Save(universe []string) error
	Path() string
}

// FilterResult is the outcome of the batched market-cap filter
type FilterResult struct {
	MarketCaps map[string]float64 // Observed caps of retained symbols
	Universe   []string           // Retained symbols in candidate order
	Exclusions []domain.Exclusion // Excluded symbols in candidate order
	Batches    int
	Processed  int
}

// ExclusionCounts tallies exclusions by reason
func (r *FilterResult) ExclusionCounts() map[domain.ExclusionReason]int {
	counts := make(map[domain.ExclusionReason]int)
	for _, e := range r.Exclusions {
		counts[e.Reason]++
	}
	return counts
}

// Report is the result of a full discovery pass
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Source     string
	Provider   string
	Candidates Candidates
	Filter     *FilterResult
	Summary    Summary
}

// Universe returns the retained symbols
func (r *Report) Universe() []string {
	if r.Filter == nil {
		return nil
	}
	return r.Filter.Universe
}

// Exclusions returns every excluded symbol, length-filter rejections first
func (r *Report) Exclusions() []domain.Exclusion {
	out := append([]domain.Exclusion(nil), r.Candidates.Rejected...)
	if r.Filter != nil {
		out = append(out, r.Filter.Exclusions...)
	}
	return out
}

// Discoverer produces the universe from a ticker source and a market-cap provider
type Discoverer struct {
	source   domain.TickerSource
	provider domain.MarketCapProvider
	store    Persister
	pacer    Pacer
	opts     Options
	log      zerolog.Logger
}

// Config holds the discoverer dependencies
type Config struct {
	Source   domain.TickerSource
	Provider domain.MarketCapProvider
	Store    Persister // Optional - Persist fails without it
	Pacer    Pacer     // Optional - defaults to TimerPacer
	Options  Options
	Log      zerolog.Logger
}

// New creates a discoverer
func New(cfg Config) *Discoverer {
	pacer := cfg.Pacer
	if pacer == nil {
		pacer = TimerPacer{}
	}
	return &Discoverer{
		source:   cfg.Source,
		provider: cfg.Provider,
		store:    cfg.Store,
		pacer:    pacer,
		opts:     cfg.Options,
		log:      cfg.Log.With().Str("component", "discoverer").Logger(),
	}
}

// Run discovers the universe without persisting it
func Run(ctx context.Context, source domain.TickerSource, provider domain.MarketCapProvider, opts Options, pacer Pacer, log zerolog.Logger) (*Report, error) {
	return New(Config{
		Source:   source,
		Provider: provider,
		Pacer:    pacer,
		Options:  opts,
		Log:      log,
	}).Discover(ctx)
}

// FetchCandidates queries the listing and applies the symbol length filter.
// Listing failures are returned as-is; no placeholder data is substituted here.
func (d *Discoverer) FetchCandidates(ctx context.Context) (Candidates, error) {
	d.log.Info().Str("source", d.source.Name()).Msg("Fetching listed symbols")

	raw, err := d.source.FetchSymbols(ctx)
	if err != nil {
		return Candidates{}, err
	}

	candidates := NormalizeCandidates(raw, d.opts.MaxSymbolLength)
	d.log.Info().
		Int("listed", candidates.Listed).
		Int("candidates", len(candidates.Symbols)).
		Int("rejected", len(candidates.Rejected)).
		Msg("Found potential tickers")

	return candidates, nil
}

// FilterByMarketCap looks up candidates in consecutive batches and keeps those
// whose market cap is at least threshold. A failed batch excludes its symbols
// and processing continues; only context cancellation aborts the pass.
func (d *Discoverer) FilterByMarketCap(ctx context.Context, candidates []string, threshold float64, batchSize int) (*FilterResult, error) {
	batches := Partition(candidates, batchSize)
	result := &FilterResult{
		MarketCaps: make(map[string]float64),
		Universe:   make([]string, 0),
		Batches:    len(batches),
	}

	d.log.Info().
		Float64("threshold", threshold).
		Int("batch_size", batchSize).
		Int("batches", len(batches)).
		Str("provider", d.provider.Name()).
		Msg("Filtering by market cap")

	for i, batch := range batches {
		records, err := d.provider.MarketCaps(ctx, batch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			d.log.Error().
				Err(err).
				Int("batch", i).
				Int("size", len(batch)).
				Msg("Batch failed, excluding all its symbols")
			for _, symbol := range batch {
				result.Exclusions = append(result.Exclusions, domain.Exclusion{
					Symbol: symbol,
					Reason: domain.ReasonBatchFailed,
					Detail: err.Error(),
				})
			}
		} else {
			d.applyBatch(result, batch, records, threshold)
		}

		result.Processed += len(batch)
		d.log.Info().
			Int("processed", result.Processed).
			Int("total", len(candidates)).
			Int("targets", len(result.Universe)).
			Msg("Batch processed")

		if i < len(batches)-1 && d.opts.BatchDelay > 0 {
			if err := d.pacer.Wait(ctx, d.opts.BatchDelay); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

func (d *Discoverer) applyBatch(result *FilterResult, batch []string, records map[string]domain.MarketCapRecord, threshold float64) {
	for _, symbol := range batch {
		rec, ok := records[symbol]
		if !ok {
			rec = domain.Unavailable(symbol)
		}

		switch rec.Status {
		case domain.LookupFound:
			if rec.Value >= threshold {
				result.Universe = append(result.Universe, symbol)
				result.MarketCaps[symbol] = rec.Value
				continue
			}
			result.Exclusions = append(result.Exclusions, domain.Exclusion{
				Symbol:    symbol,
				Reason:    domain.ReasonBelowThreshold,
				MarketCap: rec.Value,
			})
		case domain.LookupFailed:
			detail := ""
			if rec.Err != nil {
				detail = rec.Err.Error()
			}
			d.log.Debug().Err(rec.Err).Str("symbol", symbol).Msg("Lookup failed")
			result.Exclusions = append(result.Exclusions, domain.Exclusion{
				Symbol: symbol,
				Reason: domain.ReasonLookupFailed,
				Detail: detail,
			})
		default:
			result.Exclusions = append(result.Exclusions, domain.Exclusion{
				Symbol: symbol,
				Reason: domain.ReasonUnavailable,
			})
		}
	}
}

// Persist writes the universe through the configured store
func (d *Discoverer) Persist(universe []string) error {
	if d.store == nil {
		return fmt.Errorf("no universe store configured")
	}
	if err := d.store.Save(universe); err != nil {
		return fmt.Errorf("failed to persist universe: %w", err)
	}
	d.log.Info().
		Int("count", len(universe)).
		Str("path", d.store.Path()).
		Msg("Universe saved")
	return nil
}

// Discover runs FetchCandidates and FilterByMarketCap with the configured options
func (d *Discoverer) Discover(ctx context.Context) (*Report, error) {
	report := &Report{
		StartedAt: time.Now().UTC(),
		Source:    d.source.Name(),
		Provider:  d.provider.Name(),
	}

	candidates, err := d.FetchCandidates(ctx)
	if err != nil {
		return nil, err
	}
	report.Candidates = candidates

	filter, err := d.FilterByMarketCap(ctx, candidates.Symbols, d.opts.Threshold, d.opts.BatchSize)
	if err != nil {
		return nil, err
	}
	report.Filter = filter

	caps := make([]float64, 0, len(filter.Universe))
	for _, symbol := range filter.Universe {
		caps = append(caps, filter.MarketCaps[symbol])
	}
	report.Summary = Summarize(caps)
	report.FinishedAt = time.Now().UTC()

	d.log.Info().
		Int("count", len(filter.Universe)).
		Float64("threshold", d.opts.Threshold).
		Float64("median_market_cap", report.Summary.Median).
		Msg("Total stocks found")

	return report, nil
}
