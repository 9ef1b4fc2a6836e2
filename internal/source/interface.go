// Package source provides the fetchers that acquire candidate new bars: a
// Postgres query over the operational time-series store, or a file dropped by
// an external trading-terminal export.
package source

import (
	"context"
	"time"

	"xau-data/internal/model"
)

// Fetcher retrieves bars recorded after cutoff. An empty result means there
// is simply nothing new and is not an error. Implementations own their
// resource cleanup.
type Fetcher interface {
	FetchSince(ctx context.Context, cutoff time.Time) ([]model.Bar, error)
	Name() string
	Close() error
}
