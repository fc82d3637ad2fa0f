// Package scheduler drives periodic collection cycles: a sequential pass
// over the configured source adapters with inter-source pacing, per-source
// failure isolation, and delegation to the recorder.
package scheduler

import (
	"context"
	"time"

	"github.com/pmtracker/pmtracker/internal/collector"
	"github.com/pmtracker/pmtracker/internal/config"
	"github.com/pmtracker/pmtracker/internal/metrics"
	"github.com/pmtracker/pmtracker/internal/storage"
	"github.com/sirupsen/logrus"
)

// Pacing delay observed between consecutive sources within a cycle
const sourcePacing = 500 * time.Millisecond

// Source pairs an adapter with its name for logging and accounting
type Source struct {
	Name    string
	Fetcher collector.MarketFetcher
}

// BatchRecorder is the recording surface the scheduler needs
type BatchRecorder interface {
	RecordBatch(ctx context.Context, creates []storage.CreateMarket) (int, error)
}

// SourceResult is the outcome of one source within a cycle
type SourceResult struct {
	Source    string
	Collected int
	Recorded  int
	Err       error
}

// Scheduler runs the collection loop
type Scheduler struct {
	cfg      *config.Config
	recorder BatchRecorder
	sources  []Source
	pacing   time.Duration
	log      *logrus.Logger
}

// New creates a new scheduler over the given sources. Sources are processed
// in the order given, one at a time.
func New(cfg *config.Config, rec BatchRecorder, sources []Source, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		recorder: rec,
		sources:  sources,
		pacing:   sourcePacing,
		log:      log,
	}
}

// Run executes collection cycles on a fixed interval until the context is
// cancelled. The first cycle starts immediately; an in-flight cycle is
// allowed to finish before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.CollectionIntervalSec) * time.Second

	s.log.WithFields(logrus.Fields{
		"interval_sec":    s.cfg.CollectionIntervalSec,
		"tracked_markets": s.cfg.TrackedMarkets,
		"sources":         len(s.sources),
	}).Info("Starting scheduler")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.RunCycle(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunCycle(ctx)
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return nil
		}
	}
}

// RunCycle performs one sequential pass over all sources and returns the
// per-source outcomes in source order. A source failure never aborts the
// cycle.
func (s *Scheduler) RunCycle(ctx context.Context) []SourceResult {
	start := time.Now()
	perSource := s.marketsPerSource()

	s.log.WithField("limit_per_source", perSource).Info("Starting collection cycle")

	results := make([]SourceResult, 0, len(s.sources))
	for i, source := range s.sources {
		if i > 0 {
			if !s.pause(ctx) {
				break
			}
		}
		results = append(results, s.collectSource(ctx, source, perSource))
	}

	metrics.RecordCycle(time.Since(start))
	s.log.WithFields(logrus.Fields{
		"duration": time.Since(start).Round(time.Millisecond).String(),
		"sources":  len(results),
	}).Info("Collection cycle completed")

	return results
}

func (s *Scheduler) collectSource(ctx context.Context, source Source, limit int) SourceResult {
	result := SourceResult{Source: source.Name}

	markets, err := source.Fetcher.FetchMarkets(ctx, limit)
	if err != nil {
		result.Err = err
		metrics.RecordSourceOutcome(source.Name, 0, 0, err)
		s.log.WithError(err).WithField("source", source.Name).Error("Failed to fetch markets")
		return result
	}
	result.Collected = len(markets)

	recorded, err := s.recorder.RecordBatch(ctx, markets)
	if err != nil {
		result.Err = err
		s.log.WithError(err).WithField("source", source.Name).Error("Failed to record markets")
		return result
	}
	result.Recorded = recorded

	metrics.RecordSourceOutcome(source.Name, result.Collected, result.Recorded, nil)
	s.log.WithFields(logrus.Fields{
		"source":    source.Name,
		"collected": result.Collected,
		"recorded":  result.Recorded,
	}).Info("Source collection complete")

	return result
}

// marketsPerSource divides the tracked-markets budget evenly across sources.
// Integer division; any remainder is dropped.
func (s *Scheduler) marketsPerSource() int {
	if len(s.sources) == 0 {
		return 0
	}
	return s.cfg.TrackedMarkets / len(s.sources)
}

// pause waits out the inter-source pacing delay. Returns false if the
// context was cancelled while waiting.
func (s *Scheduler) pause(ctx context.Context) bool {
	select {
	case <-time.After(s.pacing):
		return true
	case <-ctx.Done():
		return false
	}
}
