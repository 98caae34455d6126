package s0_data

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/logger"
)

// SyncResult is the outcome for one symbol
type SyncResult struct {
	Symbol string
	From   time.Time
	Saved  int
	Err    error
}

// Syncer downloads histories and stores them, resuming after the newest stored date
type Syncer struct {
	fetcher BarFetcher
	repo    contracts.PriceRepository
	workers int
	logger  *logger.Logger
}

// NewSyncer creates a new Syncer instance
func NewSyncer(fetcher BarFetcher, repo contracts.PriceRepository, workers int, log *logger.Logger) *Syncer {
	if workers < 1 {
		workers = 4
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Syncer{fetcher: fetcher, repo: repo, workers: workers, logger: log.WithField("module", "syncer")}
}

// Sync brings every symbol up to date through `to`. Per-symbol failures are
// reported in the results; only cancellation returns an error.
func (s *Syncer) Sync(ctx context.Context, symbols []string, from, to time.Time) ([]SyncResult, error) {
	results := make([]SyncResult, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, symbol := range symbols {
		i, symbol := i, symbol // per-iteration copy (go.mod targets go 1.21)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.syncOne(gctx, symbol, from, to)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	saved, failed := 0, 0
	for _, r := range results {
		saved += r.Saved
		if r.Err != nil {
			failed++
		}
	}
	s.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"saved":   saved,
		"failed":  failed,
	}).Info("Price sync completed")

	return results, nil
}

func (s *Syncer) syncOne(ctx context.Context, symbol string, from, to time.Time) SyncResult {
	res := SyncResult{Symbol: symbol, From: from}

	latest, err := s.repo.LatestDate(ctx, symbol)
	if err != nil {
		res.Err = err
		return res
	}
	if !latest.IsZero() && !latest.Before(from) {
		res.From = latest.AddDate(0, 0, 1)
	}
	if res.From.After(to) {
		return res // already current
	}

	bars, err := s.fetcher.FetchDaily(ctx, symbol, res.From, to)
	if err != nil {
		if errors.Is(err, ErrNoHistory) {
			return res
		}
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Sync fetch failed")
		res.Err = err
		return res
	}

	res.Saved, res.Err = s.repo.SaveBars(ctx, symbol, bars)
	return res
}
