package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
)

// StoredFetcher reads histories previously saved by `momo fetch`
type StoredFetcher struct {
	repo contracts.PriceRepository
}

// NewStoredFetcher creates a fetcher backed by the price repository
func NewStoredFetcher(repo contracts.PriceRepository) *StoredFetcher {
	return &StoredFetcher{repo: repo}
}

// FetchDaily implements BarFetcher
func (s *StoredFetcher) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	bars, err := s.repo.GetBars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load stored bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoHistory)
	}
	return bars, nil
}
