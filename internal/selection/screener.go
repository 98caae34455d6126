package selection

import (
	"math"
	"sort"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/logger"
)

// Screener implements S3: the four momentum filters
// ⭐ SSOT: filter predicates live here only
type Screener struct {
	thresholds contracts.FilterThresholds
	logger     *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(thresholds contracts.FilterThresholds, log *logger.Logger) *Screener {
	if log == nil {
		log = logger.NewNop()
	}
	return &Screener{thresholds: thresholds, logger: log}
}

// Thresholds returns the active filter thresholds
func (s *Screener) Thresholds() contracts.FilterThresholds {
	return s.thresholds
}

// Check evaluates each predicate. Comparisons with an undefined value fail.
func (s *Screener) Check(m *contracts.InstrumentMetrics) contracts.FilterChecks {
	return contracts.FilterChecks{
		Liquidity: m.VolumeCr > s.thresholds.MinVolumeCr,
		Trend:     m.Close > m.DMA200,
		Momentum:  m.Horizon("12M").Return > s.thresholds.MinReturn12M,
		Drawdown:  m.AwayATH > s.thresholds.MinAwayFromATH,
	}
}

// Screen annotates every ranked result with its filter outcome and returns
// the annotated set (rank order unchanged), the passing subset ordered by the
// selected score descending, and per-predicate failure counts.
func (s *Screener) Screen(ranked []contracts.RankedResult, method contracts.RankingMethod) ([]contracts.RankedResult, []contracts.RankedResult, map[string]int) {
	all := make([]contracts.RankedResult, len(ranked))
	counts := map[string]int{"liquidity": 0, "trend": 0, "momentum": 0, "drawdown": 0}
	filtered := make([]contracts.RankedResult, 0)

	for i, r := range ranked {
		r.Checks = s.Check(&r.InstrumentMetrics)
		r.FinalMomentum = r.Checks.All()
		for _, name := range r.Checks.FailedNames() {
			counts[name]++
		}
		all[i] = r
		if r.FinalMomentum {
			filtered = append(filtered, r)
		}
	}

	// ordered by the raw method score, not by the universe-wide rank
	sort.SliceStable(filtered, func(i, j int) bool {
		return scoreKey(filtered[i].Score(method)) > scoreKey(filtered[j].Score(method))
	})

	s.logger.WithFields(map[string]interface{}{
		"total_input":  len(ranked),
		"passed":       len(filtered),
		"filtered_out": len(ranked) - len(filtered),
		"filters":      counts,
	}).Info("Screening completed")

	return all, filtered, counts
}

// scoreKey sorts undefined scores last
func scoreKey(x float64) float64 {
	if math.IsNaN(x) {
		return math.Inf(-1)
	}
	return x
}
