package selection

import (
	"sort"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/internal/s2_metrics"
	"github.com/wonny/etfmomo/pkg/logger"
)

// Ranker implements S4: composite score and universe-wide rank
// ⭐ SSOT: ranking logic lives here only
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(log *logger.Logger) *Ranker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Ranker{logger: log}
}

// Rank orders instruments by the selected score, descending, and assigns ranks 1..N.
// Non-finite scores count as 0. Equal scores keep their input order, so the
// instrument seen first gets the better rank.
func (r *Ranker) Rank(metrics []contracts.InstrumentMetrics, method contracts.RankingMethod) []contracts.RankedResult {
	ranked := make([]contracts.RankedResult, len(metrics))
	for i, m := range metrics {
		ranked[i] = contracts.RankedResult{
			InstrumentMetrics: m,
			CompositeScore:    s2_metrics.FiniteOrZero(m.Score(method)),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	if len(ranked) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"method":    string(method),
			"total":     len(ranked),
			"top_score": ranked[0].CompositeScore,
			"top":       ranked[0].Ticker,
		}).Info("Ranking completed")
	}

	return ranked
}
