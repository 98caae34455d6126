package strategyconfig

import (
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/internal/s0_data/quality"
)

// Config is the full ranking strategy definition
type Config struct {
	Meta    Meta           `yaml:"meta" json:"meta"`
	Ranking Ranking        `yaml:"ranking" json:"ranking"`
	Filters Filters        `yaml:"filters" json:"filters"`
	Data    Data           `yaml:"data" json:"data"`
	Quality quality.Config `yaml:"quality" json:"quality"`
}

// Meta identifies the strategy
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Ranking S4: composite score selection
type Ranking struct {
	Method      string `yaml:"method" json:"method"` // sharpe3M | avgSharpe
	Diagnostics bool   `yaml:"diagnostics" json:"diagnostics"`
}

// Filters S3: the four predicates
type Filters struct {
	MinVolumeCr    float64 `yaml:"min_volume_cr" json:"min_volume_cr"`
	DMAWindow      int     `yaml:"dma_window" json:"dma_window"`
	MinReturn12M   float64 `yaml:"min_return_12m" json:"min_return_12m"`
	MinAwayFromATH float64 `yaml:"min_away_from_ath" json:"min_away_from_ath"`
}

// Data S0: retrieval
type Data struct {
	EpochStart string `yaml:"epoch_start" json:"epoch_start"` // YYYY-MM-DD
	ChunkSize  int    `yaml:"chunk_size" json:"chunk_size"`
	Workers    int    `yaml:"workers" json:"workers"`
	Benchmark  string `yaml:"benchmark" json:"benchmark"` // empty disables beta
}

// Default returns the published ETF momentum strategy
func Default() *Config {
	t := contracts.DefaultFilterThresholds()
	return &Config{
		Meta: Meta{
			StrategyID: "etf_momentum",
			Version:    "1.0.0",
			Timezone:   "Asia/Kolkata",
		},
		Ranking: Ranking{
			Method:      string(contracts.MethodAvgSharpe),
			Diagnostics: true,
		},
		Filters: Filters{
			MinVolumeCr:    t.MinVolumeCr,
			DMAWindow:      t.DMAWindow,
			MinReturn12M:   t.MinReturn12M,
			MinAwayFromATH: t.MinAwayFromATH,
		},
		Data: Data{
			EpochStart: "2000-01-01",
			ChunkSize:  50,
			Workers:    4,
			Benchmark:  "^NSEI",
		},
		Quality: quality.DefaultConfig(),
	}
}

// Thresholds converts the filter section for the screener
func (c *Config) Thresholds() contracts.FilterThresholds {
	return contracts.FilterThresholds{
		MinVolumeCr:    c.Filters.MinVolumeCr,
		DMAWindow:      c.Filters.DMAWindow,
		MinReturn12M:   c.Filters.MinReturn12M,
		MinAwayFromATH: c.Filters.MinAwayFromATH,
	}
}

// Method returns the default ranking method
func (c *Config) Method() (contracts.RankingMethod, error) {
	return contracts.ParseRankingMethod(c.Ranking.Method)
}

// Epoch returns the first date requested from the data source
func (c *Config) Epoch() time.Time {
	t, err := time.Parse("2006-01-02", c.Data.EpochStart)
	if err != nil {
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}
