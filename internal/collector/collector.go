// Package collector defines the contract shared by source adapters: fetch a
// limited batch of markets from one external platform and normalize each
// record into the canonical creation shape.
package collector

import (
	"context"
	"fmt"

	"github.com/pmtracker/pmtracker/internal/storage"
)

// MarketFetcher is implemented by each source adapter
type MarketFetcher interface {
	// FetchMarkets issues one request against the platform and returns the
	// normalized creation records. Records that cannot be normalized are
	// skipped, never returned as errors; a transport failure or non-success
	// response fails the whole call with a *FetchError.
	FetchMarkets(ctx context.Context, limit int) ([]storage.CreateMarket, error)
}

// FetchError reports a failed source fetch. StatusCode is zero for
// transport-level failures.
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s fetch failed with status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s fetch failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
