package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/internal/s0_data"
	"github.com/wonny/etfmomo/pkg/logger"
)

// Syncer stores fresh bars for a symbol list (s0_data.Syncer)
type Syncer interface {
	Sync(ctx context.Context, symbols []string, from, to time.Time) ([]s0_data.SyncResult, error)
}

// PriceSyncJob refreshes price_history for the universe and the benchmark
// ⭐ SSOT: the scheduled price refresh lives in this job only
type PriceSyncJob struct {
	universe   contracts.UniverseSource
	syncer     Syncer
	universeID string
	benchmark  string // synced with the universe when set
	epoch      time.Time
	schedule   string
	logger     *logger.Logger
	now        func() time.Time
}

// NewPriceSyncJob creates a new price sync job
func NewPriceSyncJob(
	universe contracts.UniverseSource,
	syncer Syncer,
	universeID, benchmark string,
	epoch time.Time,
	schedule string,
	log *logger.Logger,
) *PriceSyncJob {
	return &PriceSyncJob{
		universe:   universe,
		syncer:     syncer,
		universeID: universeID,
		benchmark:  benchmark,
		epoch:      epoch,
		schedule:   schedule,
		logger:     log.WithField("job", "price_sync"),
		now:        time.Now,
	}
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Schedule returns the cron schedule
func (j *PriceSyncJob) Schedule() string {
	return j.schedule
}

// Run syncs every symbol. It fails only when no symbol could be synced.
func (j *PriceSyncJob) Run(ctx context.Context) error {
	u, err := j.universe.Load(ctx, j.universeID)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	symbols := append([]string(nil), u.Symbols...)
	if j.benchmark != "" && !u.Contains(j.benchmark) {
		symbols = append(symbols, j.benchmark)
	}

	results, err := j.syncer.Sync(ctx, symbols, j.epoch, j.now())
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	saved, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			j.logger.WithError(r.Err).WithField("symbol", r.Symbol).Warn("Sync failed")
			continue
		}
		saved += r.Saved
	}

	j.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"saved":   saved,
		"failed":  failed,
	}).Info("Price sync completed")

	if len(symbols) > 0 && failed == len(symbols) {
		return fmt.Errorf("sync failed for all %d symbols", failed)
	}
	return nil
}
