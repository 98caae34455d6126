package contracts

import (
	"context"
	"time"
)

// Progress is emitted by the fetcher after each chunk
type Progress struct {
	Stage   string  `json:"stage"`
	Done    int     `json:"done"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// ProgressFunc receives progress events; it may be nil
type ProgressFunc func(Progress)

// UniverseSource resolves a universe id to its symbol list (S1)
// ⭐ SSOT: S1 universe interface
type UniverseSource interface {
	Load(ctx context.Context, id string) (*Universe, error)
}

// PriceSource retrieves daily histories for symbols (S0)
// ⭐ SSOT: S0 retrieval interface
type PriceSource interface {
	Fetch(ctx context.Context, symbols []string, from, to time.Time, progress ProgressFunc) (*FetchResult, error)
}

// MetricsBuilder turns aligned market data into per-instrument metrics (S2)
type MetricsBuilder interface {
	Build(data *MarketData, lookback time.Time) []InstrumentMetrics
}

// Ranker orders instruments by a composite score (S4)
type Ranker interface {
	Rank(metrics []InstrumentMetrics, method RankingMethod) []RankedResult
}

// Screener applies the filter predicates (S3)
type Screener interface {
	Screen(ranked []RankedResult, method RankingMethod) (all []RankedResult, filtered []RankedResult, counts map[string]int)
}
