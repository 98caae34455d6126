package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/etfmomo/internal/external/yahoo"
	"github.com/wonny/etfmomo/internal/pipeline"
	"github.com/wonny/etfmomo/internal/s0_data"
	"github.com/wonny/etfmomo/internal/s0_data/quality"
	"github.com/wonny/etfmomo/internal/s1_universe"
	"github.com/wonny/etfmomo/internal/strategyconfig"
	"github.com/wonny/etfmomo/pkg/config"
	"github.com/wonny/etfmomo/pkg/database"
	"github.com/wonny/etfmomo/pkg/httputil"
	"github.com/wonny/etfmomo/pkg/logger"
	"github.com/wonny/etfmomo/pkg/metrics"
	"github.com/wonny/etfmomo/pkg/redis"
)

const (
	sourceYahoo = "yahoo"
	sourceDB    = "db"

	keyPrefix = "etfmomo"
)

// app holds the shared dependencies of every command
// ⭐ SSOT: component wiring lives here only
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	strategy     *strategyconfig.Config
	strategyHash string
	metrics      *metrics.Registry // nil when METRICS_ENABLED=false
	redis        *redis.Client
	httpClient   *httputil.Client
	db           *database.DB // opened on first use
}

// newApp loads config, logger, strategy, Redis and the rate-limited HTTP client
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	path := strategyFile
	if path == "" {
		path = cfg.StrategyFile
	}
	strat, err := strategyconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	if path == "" {
		// no strategy file: the environment decides retrieval settings
		strat.Data.ChunkSize = cfg.Yahoo.ChunkSize
		strat.Data.Benchmark = cfg.Benchmark
	}
	for _, w := range strategyconfig.Warn(strat) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	hash, err := strategyconfig.Hash(strat)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	var reg *metrics.Registry
	if cfg.MetricsEnabled {
		reg = metrics.New()
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		rc = redis.NewFromClient(nil)
	}

	httpClient := httputil.New(cfg, log)
	if rc.Enabled() {
		limit := int(cfg.Yahoo.RequestsPerSecond)
		if limit < 1 {
			limit = 1
		}
		httpClient.WithLimiter(redis.NewRateLimiter(rc, keyPrefix).Bound(redis.RateLimitConfig{
			Key:    redis.YahooRateLimit.Key,
			Limit:  limit,
			Window: time.Second,
		}))
	} else {
		httpClient.WithRateLimit(cfg.Yahoo.RequestsPerSecond)
	}

	log.WithFields(map[string]interface{}{
		"strategy":      strat.Meta.StrategyID,
		"strategy_hash": hash[:12],
		"redis":         rc.Enabled(),
		"database":      cfg.Database.Enabled(),
	}).Debug("Application initialized")

	return &app{
		cfg:          cfg,
		log:          log,
		strategy:     strat,
		strategyHash: hash,
		metrics:      reg,
		redis:        rc,
		httpClient:   httpClient,
	}, nil
}

// Close releases the database pool and the Redis connection
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// database opens the price store and applies its schema
func (a *app) database(ctx context.Context) (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) cache() *redis.Cache {
	return redis.NewCache(a.redis, keyPrefix)
}

func (a *app) universeLoader() *s1_universe.Loader {
	return s1_universe.NewLoader(s1_universe.NewRegistry(a.cfg), a.httpClient, a.cache(), a.log)
}

// yahooFetcher is the chart client, behind the Redis cache when enabled
func (a *app) yahooFetcher() s0_data.BarFetcher {
	var fetcher s0_data.BarFetcher = yahoo.NewClient(a.httpClient, a.cfg.Yahoo.BaseURL, a.log)
	if a.redis.Enabled() {
		fetcher = s0_data.NewCachedFetcher(fetcher, a.cache(), a.cfg.Redis.CacheTTL, a.metrics, a.log)
	}
	return fetcher
}

func (a *app) barFetcher(ctx context.Context, source string) (s0_data.BarFetcher, error) {
	switch source {
	case sourceYahoo, "":
		return a.yahooFetcher(), nil
	case sourceDB:
		db, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		return s0_data.NewStoredFetcher(s0_data.NewPriceRepository(db.Pool)), nil
	default:
		return nil, fmt.Errorf("unknown source %q (expected %s|%s)", source, sourceYahoo, sourceDB)
	}
}

// engine builds the ranking pipeline over the chosen price source
func (a *app) engine(ctx context.Context, source string, diagnostics bool) (*pipeline.Engine, error) {
	fetcher, err := a.barFetcher(ctx, source)
	if err != nil {
		return nil, err
	}

	collector := s0_data.NewCollector(fetcher, s0_data.CollectorConfig{
		ChunkSize: a.strategy.Data.ChunkSize,
		Workers:   a.strategy.Data.Workers,
	}, a.metrics, a.log)

	return pipeline.NewEngine(
		a.universeLoader(),
		collector,
		quality.NewQualityGate(a.strategy.Quality),
		pipeline.Options{
			Epoch:       a.strategy.Epoch(),
			Benchmark:   a.strategy.Data.Benchmark,
			Diagnostics: diagnostics,
			Thresholds:  a.strategy.Thresholds(),
			ConfigHash:  a.strategyHash,
		},
		a.metrics,
		a.log,
	), nil
}

// syncer stores Yahoo bars in the price store
func (a *app) syncer(ctx context.Context) (*s0_data.Syncer, error) {
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	return s0_data.NewSyncer(a.yahooFetcher(), s0_data.NewPriceRepository(db.Pool), a.strategy.Data.Workers, a.log), nil
}
