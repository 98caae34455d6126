package contracts

import (
	"fmt"
	"strings"
	"time"
)

// RankingMethod selects the composite score
type RankingMethod string

const (
	MethodSharpe3M  RankingMethod = "sharpe3M"
	MethodAvgSharpe RankingMethod = "avgSharpe"
)

// RankingMethods lists the accepted methods in display order
var RankingMethods = []RankingMethod{MethodSharpe3M, MethodAvgSharpe}

// ParseRankingMethod accepts the method name case-insensitively
func ParseRankingMethod(s string) (RankingMethod, error) {
	for _, m := range RankingMethods {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// FilterChecks holds the outcome of each filter predicate
type FilterChecks struct {
	Liquidity bool `json:"liquidity"`
	Trend     bool `json:"trend"`
	Momentum  bool `json:"momentum"`
	Drawdown  bool `json:"drawdown"`
}

// All reports whether every predicate holds
func (c FilterChecks) All() bool {
	return c.Liquidity && c.Trend && c.Momentum && c.Drawdown
}

// FailedNames lists the predicates that did not hold
func (c FilterChecks) FailedNames() []string {
	var out []string
	if !c.Liquidity {
		out = append(out, "liquidity")
	}
	if !c.Trend {
		out = append(out, "trend")
	}
	if !c.Momentum {
		out = append(out, "momentum")
	}
	if !c.Drawdown {
		out = append(out, "drawdown")
	}
	return out
}

// RankedResult is InstrumentMetrics plus rank and filter outcome
// ⭐ SSOT: S4 → presentation
type RankedResult struct {
	InstrumentMetrics
	Rank           int          `json:"rank"`  // 1 = best
	CompositeScore float64      `json:"score"` // selected composite, non-finite coerced to 0
	Checks         FilterChecks `json:"checks"`
	FinalMomentum  bool         `json:"final_momentum"`
}

// FilterThresholds parameterize the four filter predicates
type FilterThresholds struct {
	MinVolumeCr    float64 `json:"min_volume_cr" yaml:"min_volume_cr"`
	DMAWindow      int     `json:"dma_window" yaml:"dma_window"`
	MinReturn12M   float64 `json:"min_return_12m" yaml:"min_return_12m"`
	MinAwayFromATH float64 `json:"min_away_from_ath" yaml:"min_away_from_ath"`
}

// DefaultFilterThresholds are the published ETF momentum filters
func DefaultFilterThresholds() FilterThresholds {
	return FilterThresholds{
		MinVolumeCr:    1,
		DMAWindow:      200,
		MinReturn12M:   6.5,
		MinAwayFromATH: -25,
	}
}

// Describe renders the filter list shown next to the results
func (t FilterThresholds) Describe() []string {
	return []string{
		fmt.Sprintf("Median 12M volume > %g crore", t.MinVolumeCr),
		fmt.Sprintf("Close above %d-day moving average", t.DMAWindow),
		fmt.Sprintf("12M rate of change > %g%%", t.MinReturn12M),
		fmt.Sprintf("Within %g%% of all-time high", -t.MinAwayFromATH),
	}
}

// RunConfig is the explicit input of one ranking run
type RunConfig struct {
	LookbackDate time.Time     `json:"lookback_date"`
	Method       RankingMethod `json:"method"`
	Universe     string        `json:"universe"`
}

// Validate checks the run configuration
func (c RunConfig) Validate() error {
	if c.LookbackDate.IsZero() {
		return fmt.Errorf("lookback date is required")
	}
	if _, err := ParseRankingMethod(string(c.Method)); err != nil {
		return err
	}
	if c.Universe == "" {
		return fmt.Errorf("%w: empty universe", ErrUnknownUniverse)
	}
	return nil
}

// RankingReport is the full result of a run
type RankingReport struct {
	RunID        string           `json:"run_id"`
	LookbackDate time.Time        `json:"lookback_date"`
	Method       RankingMethod    `json:"method"`
	Universe     string           `json:"universe"`
	Thresholds   FilterThresholds `json:"thresholds"`
	All          []RankedResult   `json:"all"`      // ordered by rank
	Filtered     []RankedResult   `json:"filtered"` // passing subset, by score desc
	Failed       []FetchFailure   `json:"failed"`
	FilterCounts map[string]int   `json:"filter_counts"` // predicate -> instruments failing it
	Stages       []PipelineResult `json:"stages"`
	ConfigHash   string           `json:"config_hash,omitempty"`
	GeneratedAt  time.Time        `json:"generated_at"`
}
