package quality

import (
	"math"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
)

// Issue kinds
const (
	IssueShortHistory = "short_history"
	IssueStale        = "stale"
	IssueNonPositive  = "non_positive"
	IssueGap          = "gap"
)

// Config holds quality gate thresholds
type Config struct {
	MinBars        int `yaml:"min_bars"`         // fewer bars cannot produce a return
	StaleAfter     int `yaml:"stale_after"`      // calendar days between last bar and lookback
	MaxGapDays     int `yaml:"max_gap_days"`     // calendar days between consecutive bars
	MinHorizonDays int `yaml:"min_horizon_days"` // bars expected in the 12M window
}

// DefaultConfig returns the thresholds used by the ranking run
func DefaultConfig() Config {
	return Config{
		MinBars:        2,
		StaleAfter:     7,
		MaxGapDays:     10,
		MinHorizonDays: 200,
	}
}

// Issue is one finding for a symbol
type Issue struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// Snapshot summarizes the quality of one fetch
type Snapshot struct {
	Date         time.Time          `json:"date"`
	TotalSymbols int                `json:"total_symbols"`
	ValidSymbols int                `json:"valid_symbols"`
	Coverage     map[string]float64 `json:"coverage"`
	Issues       []Issue            `json:"issues"`
	QualityScore float64            `json:"quality_score"`
}

// QualityGate inspects fetched histories before they are aligned.
// Findings are informational: degenerate series still flow into the metrics,
// which handle them by producing undefined values.
type QualityGate struct {
	config Config
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check validates the histories as of the lookback date
// ⭐ SSOT: S0 data quality checks
func (g *QualityGate) Check(histories []contracts.PriceHistory, lookback time.Time) *Snapshot {
	snap := &Snapshot{
		Date:         lookback,
		TotalSymbols: len(histories),
		Coverage:     make(map[string]float64),
		Issues:       make([]Issue, 0),
	}
	if len(histories) == 0 {
		return snap
	}

	fresh, longEnough := 0, 0
	yearAgo := lookback.AddDate(-1, 0, 0)

	for _, h := range histories {
		issues := g.inspect(h, lookback)
		if len(issues) == 0 {
			snap.ValidSymbols++
		}
		snap.Issues = append(snap.Issues, issues...)

		if n := len(h.Bars); n > 0 && lookback.Sub(h.Bars[n-1].Date) <= time.Duration(g.config.StaleAfter)*24*time.Hour {
			fresh++
		}
		if countSince(h.Bars, yearAgo) >= g.config.MinHorizonDays {
			longEnough++
		}
	}

	total := float64(len(histories))
	snap.Coverage["fresh"] = float64(fresh) / total
	snap.Coverage["12m_history"] = float64(longEnough) / total
	snap.QualityScore = float64(snap.ValidSymbols) / total
	return snap
}

func (g *QualityGate) inspect(h contracts.PriceHistory, lookback time.Time) []Issue {
	var issues []Issue
	n := len(h.Bars)

	if n < g.config.MinBars {
		issues = append(issues, Issue{Symbol: h.Symbol, Kind: IssueShortHistory})
	}
	if n > 0 && lookback.Sub(h.Bars[n-1].Date) > time.Duration(g.config.StaleAfter)*24*time.Hour {
		issues = append(issues, Issue{Symbol: h.Symbol, Kind: IssueStale, Detail: h.Bars[n-1].Date.Format("2006-01-02")})
	}

	for i, b := range h.Bars {
		if b.Close <= 0 || math.IsNaN(b.Close) {
			issues = append(issues, Issue{Symbol: h.Symbol, Kind: IssueNonPositive, Detail: b.Date.Format("2006-01-02")})
			break
		}
		if i > 0 && b.Date.Sub(h.Bars[i-1].Date) > time.Duration(g.config.MaxGapDays)*24*time.Hour {
			issues = append(issues, Issue{Symbol: h.Symbol, Kind: IssueGap, Detail: h.Bars[i-1].Date.Format("2006-01-02")})
		}
	}
	return issues
}

func countSince(bars []contracts.Bar, from time.Time) int {
	n := 0
	for _, b := range bars {
		if !b.Date.Before(from) {
			n++
		}
	}
	return n
}
