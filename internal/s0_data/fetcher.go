package s0_data

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
)

// ErrNoHistory is returned when a source has no bars for a symbol in range
var ErrNoHistory = errors.New("no history in range")

// BarFetcher retrieves one symbol's adjusted daily bars, oldest first.
// yahoo.Client, CachedFetcher and StoredFetcher implement it.
type BarFetcher interface {
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error)
}
