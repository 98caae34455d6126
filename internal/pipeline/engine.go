package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/internal/s0_data"
	"github.com/wonny/etfmomo/internal/s0_data/quality"
	"github.com/wonny/etfmomo/internal/s2_metrics"
	"github.com/wonny/etfmomo/internal/selection"
	"github.com/wonny/etfmomo/pkg/logger"
	"github.com/wonny/etfmomo/pkg/metrics"
)

// Options are fixed for the lifetime of an Engine
type Options struct {
	Epoch       time.Time // first date requested from the price source
	Benchmark   string    // index symbol for beta; empty skips it
	Diagnostics bool
	Thresholds  contracts.FilterThresholds
	ConfigHash  string
}

// Engine runs the ranking pipeline:
// S1 universe → S0 data → S2 metrics → S4 ranker → S3 screener
// ⭐ SSOT: pipeline orchestration lives here only
type Engine struct {
	universe contracts.UniverseSource
	prices   contracts.PriceSource
	ranker   contracts.Ranker
	screener contracts.Screener
	gate     *quality.QualityGate
	opts     Options
	metrics  *metrics.Registry
	logger   *logger.Logger
	now      func() time.Time
}

// NewEngine creates a new Engine. reg may be nil.
func NewEngine(
	universe contracts.UniverseSource,
	prices contracts.PriceSource,
	gate *quality.QualityGate,
	opts Options,
	reg *metrics.Registry,
	log *logger.Logger,
) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Epoch.IsZero() {
		opts.Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.Thresholds == (contracts.FilterThresholds{}) {
		opts.Thresholds = contracts.DefaultFilterThresholds()
	}
	if gate == nil {
		gate = quality.NewQualityGate(quality.DefaultConfig())
	}
	return &Engine{
		universe: universe,
		prices:   prices,
		ranker:   selection.NewRanker(log),
		screener: selection.NewScreener(opts.Thresholds, log),
		gate:     gate,
		opts:     opts,
		metrics:  reg,
		logger:   log,
		now:      time.Now,
	}
}

// Thresholds returns the filter thresholds the engine screens with
func (e *Engine) Thresholds() contracts.FilterThresholds {
	return e.opts.Thresholds
}

// Run executes one ranking. progress may be nil.
func (e *Engine) Run(ctx context.Context, cfg contracts.RunConfig, progress contracts.ProgressFunc) (report *contracts.RankingReport, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	method, _ := contracts.ParseRankingMethod(string(cfg.Method))
	lookback := truncateDay(cfg.LookbackDate)

	report = &contracts.RankingReport{
		RunID:        uuid.New().String(),
		LookbackDate: lookback,
		Method:       method,
		Universe:     cfg.Universe,
		Thresholds:   e.opts.Thresholds,
		Failed:       make([]contracts.FetchFailure, 0),
		Stages:       make([]contracts.PipelineResult, 0, len(contracts.AllStages())),
		ConfigHash:   e.opts.ConfigHash,
	}
	log := e.logger.WithFields(map[string]interface{}{
		"run_id":   report.RunID,
		"lookback": lookback.Format("2006-01-02"),
		"method":   string(method),
		"universe": cfg.Universe,
	})
	log.Info("Starting ranking run")

	startTime := time.Now()
	defer func() {
		passed, ranked := 0, 0
		if report != nil {
			ranked, passed = len(report.All), len(report.Filtered)
		}
		e.metrics.RecordRun(string(method), ranked, passed, err)
		if err != nil {
			log.WithError(err).Error("Ranking run failed")
			return
		}
		log.WithFields(map[string]interface{}{
			"ranked":   ranked,
			"passed":   passed,
			"failed":   len(report.Failed),
			"duration": time.Since(startTime),
		}).Info("Ranking run completed")
	}()

	// S1: Universe
	var universe *contracts.Universe
	err = e.track(report, contracts.StageUniverse, 1, func(r *contracts.PipelineResult) error {
		u, err := e.universe.Load(ctx, cfg.Universe)
		if err != nil {
			return err
		}
		universe = u
		r.OutputCount = u.Count()
		r.Metadata = map[string]interface{}{"source": u.Source}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("S1 failed: %w", err)
	}

	// S0: Data
	var data *contracts.MarketData
	err = e.track(report, contracts.StageData, universe.Count(), func(r *contracts.PipelineResult) error {
		res, err := e.prices.Fetch(ctx, universe.Symbols, e.opts.Epoch, lookback, progress)
		if err != nil {
			return err
		}
		report.Failed = append(report.Failed, res.Failed...)
		if len(res.Histories) == 0 {
			return contracts.ErrNoData
		}

		snap := e.gate.Check(res.Histories, lookback)
		if len(snap.Issues) > 0 {
			log.WithFields(map[string]interface{}{
				"issues":        len(snap.Issues),
				"quality_score": snap.QualityScore,
			}).Warn("Data quality issues")
		}

		data = s0_data.Align(res.Histories)
		data.Benchmark = e.fetchBenchmark(ctx, lookback, log)

		r.OutputCount = len(res.Histories)
		r.Metadata = map[string]interface{}{
			"failed":        len(res.Failed),
			"rows":          data.Close.Len(),
			"quality_score": snap.QualityScore,
			"issues":        len(snap.Issues),
			"benchmark":     data.Benchmark != nil,
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("S0 failed: %w", err)
	}

	// S2: Metrics
	var instruments []contracts.InstrumentMetrics
	_ = e.track(report, contracts.StageMetrics, len(data.Symbols()), func(r *contracts.PipelineResult) error {
		builder := s2_metrics.NewBuilder(s2_metrics.Options{
			DMAWindow:   e.opts.Thresholds.DMAWindow,
			Suffix:      universe.Suffix,
			Diagnostics: e.opts.Diagnostics,
		}, log)
		instruments = builder.Build(data, lookback)
		r.OutputCount = len(instruments)
		return nil
	})

	// S4: Ranker
	var ranked []contracts.RankedResult
	_ = e.track(report, contracts.StageRanker, len(instruments), func(r *contracts.PipelineResult) error {
		ranked = e.ranker.Rank(instruments, method)
		r.OutputCount = len(ranked)
		return nil
	})

	// S3: Screener
	_ = e.track(report, contracts.StageScreener, len(ranked), func(r *contracts.PipelineResult) error {
		report.All, report.Filtered, report.FilterCounts = e.screener.Screen(ranked, method)
		r.OutputCount = len(report.Filtered)
		r.Metadata = map[string]interface{}{"filter_counts": report.FilterCounts}
		return nil
	})

	report.GeneratedAt = e.now()
	return report, nil
}

// fetchBenchmark loads the index series used for beta. Failure only disables beta.
func (e *Engine) fetchBenchmark(ctx context.Context, lookback time.Time, log *logger.Logger) *contracts.PriceSeries {
	if !e.opts.Diagnostics || e.opts.Benchmark == "" {
		return nil
	}
	res, err := e.prices.Fetch(ctx, []string{e.opts.Benchmark}, lookback.AddDate(-1, -1, 0), lookback, nil)
	if err == nil && len(res.Histories) == 0 {
		err = contracts.ErrNoData
	}
	if err != nil {
		log.WithError(err).WithField("benchmark", e.opts.Benchmark).Warn("Benchmark unavailable, beta skipped")
		return nil
	}
	return s0_data.ToSeries(res.Histories[0])
}

// track runs one stage and appends its PipelineResult
func (e *Engine) track(report *contracts.RankingReport, stage contracts.Stage, input int, fn func(r *contracts.PipelineResult) error) error {
	start := time.Now()
	r := contracts.PipelineResult{Stage: stage, InputCount: input}

	err := fn(&r)

	elapsed := time.Since(start)
	r.Duration = elapsed.Milliseconds()
	r.Success = err == nil
	if err != nil {
		r.Error = err.Error()
	}
	report.Stages = append(report.Stages, r)
	e.metrics.ObserveStage(stage.String(), elapsed)

	e.logger.WithFields(map[string]interface{}{
		"stage":    stage.ShortName(),
		"input":    r.InputCount,
		"output":   r.OutputCount,
		"duration": elapsed,
		"success":  r.Success,
	}).Debug("Stage finished")
	return err
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsNoData reports whether a run failed because nothing could be fetched
func IsNoData(err error) bool {
	return errors.Is(err, contracts.ErrNoData)
}
