// Package recorder persists normalized market records: an idempotent upsert
// keyed by (source, source_id) followed by a best-effort price snapshot.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/pmtracker/pmtracker/internal/metrics"
	"github.com/pmtracker/pmtracker/internal/storage"
	"github.com/sirupsen/logrus"
)

// Store is the persistence surface the recorder needs
type Store interface {
	UpsertMarket(ctx context.Context, create storage.CreateMarket) (*storage.Market, error)
	InsertSnapshot(ctx context.Context, snapshot *storage.PriceHistory) error
}

// Recorder writes creation records through the store
type Recorder struct {
	store Store
	log   *logrus.Logger
}

// New creates a new recorder
func New(store Store, log *logrus.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record upserts a market and appends a price snapshot for it. The upsert is
// the durable state; a snapshot failure is logged and does not undo it.
func (r *Recorder) Record(ctx context.Context, create storage.CreateMarket) (*storage.Market, error) {
	market, err := r.store.UpsertMarket(ctx, create)
	if err != nil {
		return nil, fmt.Errorf("record market %s/%s: %w", create.Source, create.SourceID, err)
	}

	snapshot := &storage.PriceHistory{
		MarketID:   market.ID,
		YesPrice:   market.YesPrice,
		NoPrice:    market.NoPrice,
		Volume:     market.Volume,
		Volume24h:  market.Volume24h,
		Liquidity:  market.Liquidity,
		RecordedAt: time.Now().UTC().Truncate(time.Minute),
	}
	if err := r.store.InsertSnapshot(ctx, snapshot); err != nil {
		metrics.SnapshotErrors.Inc()
		r.log.WithError(err).WithFields(logrus.Fields{
			"source":    market.Source,
			"source_id": market.SourceID,
		}).Warn("Failed to record price snapshot")
	}

	return market, nil
}

// RecordBatch records each creation record independently and returns the
// number of successes. Per-record failures are logged and skipped; the batch
// call itself never fails because of them.
func (r *Recorder) RecordBatch(ctx context.Context, creates []storage.CreateMarket) (int, error) {
	count := 0
	for _, create := range creates {
		if _, err := r.Record(ctx, create); err != nil {
			metrics.RecordErrors.Inc()
			r.log.WithError(err).WithFields(logrus.Fields{
				"source":    create.Source,
				"source_id": create.SourceID,
			}).Error("Failed to record market")
			continue
		}
		count++
	}
	return count, nil
}
