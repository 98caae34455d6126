package handlers

import (
	"math"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
)

// HorizonDTO is one horizon; undefined values are null
type HorizonDTO struct {
	ROC        *float64 `json:"roc"`
	Volatility *float64 `json:"vol"`
	Sharpe     *float64 `json:"sharpe"`
}

// DiagnosticsDTO mirrors contracts.Diagnostics with nullable numbers
type DiagnosticsDTO struct {
	Beta            *float64   `json:"beta"`
	Sortino         *float64   `json:"sortino"`
	Calmar          *float64   `json:"calmar"`
	MaxDrawdown     *float64   `json:"max_drawdown"`
	FIP             *float64   `json:"fip"`
	VolatilityRatio *float64   `json:"volatility_ratio"`
	ROC4W           *float64   `json:"roc_4w"`
	MonthlyReturns  []*float64 `json:"monthly_returns"`
}

// ResultDTO is one row of the ranking table
type ResultDTO struct {
	Rank          int                   `json:"rank"`
	Ticker        string                `json:"ticker"`
	Symbol        string                `json:"symbol"`
	Close         *float64              `json:"close"`
	DMA200        *float64              `json:"dma200d"`
	Horizons      map[string]HorizonDTO `json:"horizons"`
	AvgSharpe     *float64              `json:"avg_sharpe"`
	VolumeCr      *float64              `json:"volm_cr"`
	ATH           *float64              `json:"ath"`
	AwayATH       *float64              `json:"away_ath"`
	Score         float64               `json:"score"`
	FailedFilters []string              `json:"failed_filters"`
	FinalMomentum bool                  `json:"final_momentum"`
	Diagnostics   *DiagnosticsDTO       `json:"diagnostics,omitempty"`
}

// ReportDTO is the JSON shape of a RankingReport
type ReportDTO struct {
	RunID        string                     `json:"run_id"`
	LookbackDate string                     `json:"lookback_date"`
	Method       contracts.RankingMethod    `json:"method"`
	Universe     string                     `json:"universe"`
	Thresholds   contracts.FilterThresholds `json:"thresholds"`
	Filters      []string                   `json:"filters"`
	All          []ResultDTO                `json:"all"`
	Filtered     []ResultDTO                `json:"filtered"`
	Failed       []contracts.FetchFailure   `json:"failed"`
	FilterCounts map[string]int             `json:"filter_counts"`
	Stages       []contracts.PipelineResult `json:"stages"`
	ConfigHash   string                     `json:"config_hash,omitempty"`
	GeneratedAt  time.Time                  `json:"generated_at"`
}

// NewReportDTO converts a report; NaN/±Inf become null
func NewReportDTO(r *contracts.RankingReport) ReportDTO {
	failed := r.Failed
	if failed == nil {
		failed = []contracts.FetchFailure{}
	}
	return ReportDTO{
		RunID:        r.RunID,
		LookbackDate: r.LookbackDate.Format(dateLayout),
		Method:       r.Method,
		Universe:     r.Universe,
		Thresholds:   r.Thresholds,
		Filters:      r.Thresholds.Describe(),
		All:          newResultDTOs(r.All),
		Filtered:     newResultDTOs(r.Filtered),
		Failed:       failed,
		FilterCounts: r.FilterCounts,
		Stages:       r.Stages,
		ConfigHash:   r.ConfigHash,
		GeneratedAt:  r.GeneratedAt,
	}
}

func newResultDTOs(results []contracts.RankedResult) []ResultDTO {
	out := make([]ResultDTO, len(results))
	for i := range results {
		out[i] = newResultDTO(&results[i])
	}
	return out
}

func newResultDTO(r *contracts.RankedResult) ResultDTO {
	horizons := make(map[string]HorizonDTO, len(r.Horizons))
	for _, h := range r.Horizons {
		horizons[h.Horizon] = HorizonDTO{
			ROC:        finite(h.Return),
			Volatility: finite(h.Volatility),
			Sharpe:     finite(h.Sharpe),
		}
	}

	failed := r.Checks.FailedNames()
	if failed == nil {
		failed = []string{}
	}

	dto := ResultDTO{
		Rank:          r.Rank,
		Ticker:        r.Ticker,
		Symbol:        r.Symbol,
		Close:         finite(r.Close),
		DMA200:        finite(r.DMA200),
		Horizons:      horizons,
		AvgSharpe:     finite(r.AvgSharpe),
		VolumeCr:      finite(r.VolumeCr),
		ATH:           finite(r.ATH),
		AwayATH:       finite(r.AwayATH),
		Score:         r.CompositeScore,
		FailedFilters: failed,
		FinalMomentum: r.FinalMomentum,
	}

	if d := r.Diagnostics; d != nil {
		monthly := make([]*float64, len(d.MonthlyReturns))
		for i, v := range d.MonthlyReturns {
			monthly[i] = finite(v)
		}
		dto.Diagnostics = &DiagnosticsDTO{
			Beta:            finite(d.Beta),
			Sortino:         finite(d.Sortino),
			Calmar:          finite(d.Calmar),
			MaxDrawdown:     finite(d.MaxDrawdown),
			FIP:             finite(d.FIP),
			VolatilityRatio: finite(d.VolatilityRatio),
			ROC4W:           finite(d.ROC4W),
			MonthlyReturns:  monthly,
		}
	}

	return dto
}

// finite returns nil for values JSON cannot carry
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
