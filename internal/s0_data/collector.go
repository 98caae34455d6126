package s0_data

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/logger"
	"github.com/wonny/etfmomo/pkg/metrics"
)

// CollectorConfig holds collector configuration
type CollectorConfig struct {
	ChunkSize int // symbols per batch; progress is reported after each
	Workers   int // concurrent requests within a batch
}

// Collector downloads histories for a symbol list in chunks.
// A symbol that fails is recorded and skipped; the run continues.
// ⭐ SSOT: S0 retrieval orchestration
type Collector struct {
	fetcher BarFetcher
	cfg     CollectorConfig
	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewCollector creates a new Collector instance
func NewCollector(fetcher BarFetcher, cfg CollectorConfig, reg *metrics.Registry, log *logger.Logger) *Collector {
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 50
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Collector{
		fetcher: fetcher,
		cfg:     cfg,
		metrics: reg,
		logger:  log.WithField("module", "collector"),
	}
}

type fetchOutcome struct {
	bars []contracts.Bar
	err  error
}

// Fetch implements contracts.PriceSource
func (c *Collector) Fetch(ctx context.Context, symbols []string, from, to time.Time, progress contracts.ProgressFunc) (*contracts.FetchResult, error) {
	c.logger.WithFields(map[string]interface{}{
		"symbols":    len(symbols),
		"from":       from.Format("2006-01-02"),
		"to":         to.Format("2006-01-02"),
		"chunk_size": c.cfg.ChunkSize,
	}).Info("Starting price collection")

	result := &contracts.FetchResult{
		Histories: make([]contracts.PriceHistory, 0, len(symbols)),
		Failed:    make([]contracts.FetchFailure, 0),
	}

	done := 0
	for start := 0; start < len(symbols); start += c.cfg.ChunkSize {
		end := start + c.cfg.ChunkSize
		if end > len(symbols) {
			end = len(symbols)
		}
		chunk := symbols[start:end]

		outcomes, err := c.fetchChunk(ctx, chunk, from, to)
		if err != nil {
			return nil, err
		}

		for i, symbol := range chunk {
			o := outcomes[i]
			switch {
			case o.err != nil:
				result.Failed = append(result.Failed, contracts.FetchFailure{Symbol: symbol, Reason: o.err.Error()})
			case len(o.bars) == 0:
				result.Failed = append(result.Failed, contracts.FetchFailure{Symbol: symbol, Reason: ErrNoHistory.Error()})
			default:
				result.Histories = append(result.Histories, contracts.PriceHistory{Symbol: symbol, Bars: o.bars})
			}
		}

		done = end
		if progress != nil {
			progress(contracts.Progress{
				Stage:   contracts.StageData.String(),
				Done:    done,
				Total:   len(symbols),
				Percent: float64(done) / float64(len(symbols)) * 100,
			})
		}
	}

	c.metrics.RecordFetchFailures(len(result.Failed))

	c.logger.WithFields(map[string]interface{}{
		"success": len(result.Histories),
		"failed":  len(result.Failed),
		"total":   len(symbols),
	}).Info("Price collection completed")

	return result, nil
}

// fetchChunk fetches one chunk concurrently. Per-symbol errors are returned in
// the outcomes; only cancellation aborts the chunk.
func (c *Collector) fetchChunk(ctx context.Context, chunk []string, from, to time.Time) ([]fetchOutcome, error) {
	outcomes := make([]fetchOutcome, len(chunk))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for i, symbol := range chunk {
		i, symbol := i, symbol // per-iteration copy (go.mod targets go 1.21)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bars, err := c.fetcher.FetchDaily(gctx, symbol, from, to)
			if err != nil {
				c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to fetch history")
			}
			outcomes[i] = fetchOutcome{bars: bars, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch cancelled: %w", err)
	}
	return outcomes, nil
}
