package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/internal/report"
	"github.com/wonny/etfmomo/pkg/logger"
)

// Runner executes one ranking run (pipeline.Engine)
type Runner interface {
	Run(ctx context.Context, cfg contracts.RunConfig, progress contracts.ProgressFunc) (*contracts.RankingReport, error)
}

// Publisher receives finished reports (api.ReportStore)
type Publisher interface {
	Put(report *contracts.RankingReport)
}

// RankingJobConfig configures the daily ranking job
type RankingJobConfig struct {
	Schedule  string
	OutputDir string
	Method    contracts.RankingMethod
	Universe  string
	Chart     bool
	Location  *time.Location // market calendar day used as the lookback date
}

// RankingJob ranks the universe after the close and writes the workbook
// ⭐ SSOT: the scheduled ranking lives in this job only
type RankingJob struct {
	runner    Runner
	publisher Publisher
	cfg       RankingJobConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewRankingJob creates a new ranking job. publisher may be nil.
func NewRankingJob(runner Runner, publisher Publisher, cfg RankingJobConfig, log *logger.Logger) *RankingJob {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &RankingJob{
		runner:    runner,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithField("job", "daily_ranking"),
		now:       time.Now,
	}
}

// Name returns the job name
func (j *RankingJob) Name() string {
	return "daily_ranking"
}

// Schedule returns the cron schedule
func (j *RankingJob) Schedule() string {
	return j.cfg.Schedule
}

// Run ranks with today's market date as the lookback
func (j *RankingJob) Run(ctx context.Context) error {
	local := j.now().In(j.cfg.Location)
	lookback := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	j.logger.WithField("lookback", lookback.Format("2006-01-02")).Info("Starting scheduled ranking")

	rep, err := j.runner.Run(ctx, contracts.RunConfig{
		LookbackDate: lookback,
		Method:       j.cfg.Method,
		Universe:     j.cfg.Universe,
	}, nil)
	if err != nil {
		return fmt.Errorf("ranking run: %w", err)
	}

	path, err := report.WriteWorkbook(j.cfg.OutputDir, rep)
	if err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	fields := map[string]interface{}{
		"workbook": path,
		"ranked":   len(rep.All),
		"filtered": len(rep.Filtered),
		"failed":   len(rep.Failed),
	}

	if j.cfg.Chart && len(rep.Filtered) > 0 {
		chartPath, err := report.WriteScoreChart(j.cfg.OutputDir, rep)
		if err != nil {
			// the workbook is already written
			j.logger.WithError(err).Warn("Score chart failed")
		} else {
			fields["chart"] = chartPath
		}
	}

	if j.publisher != nil {
		j.publisher.Put(rep)
	}

	j.logger.WithFields(fields).Info("Scheduled ranking completed")
	return nil
}
