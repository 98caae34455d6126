package contracts

import "math"

// Horizon is a trailing window of N calendar months ending at the lookback date
type Horizon struct {
	Name   string `json:"name"`
	Months int    `json:"months"`
}

// Horizons are the five fixed windows, longest first
var Horizons = []Horizon{
	{Name: "12M", Months: 12},
	{Name: "9M", Months: 9},
	{Name: "6M", Months: 6},
	{Name: "3M", Months: 3},
	{Name: "1M", Months: 1},
}

// ScoredHorizons feed avgSharpe and the output table
var ScoredHorizons = []string{"12M", "9M", "6M", "3M"}

// HorizonMetrics are the per-window statistics for one instrument.
// Undefined values are NaN.
type HorizonMetrics struct {
	Horizon      string  `json:"horizon"`
	Return       float64 `json:"roc"`        // %
	Volatility   float64 `json:"volatility"` // annualized %
	Sharpe       float64 `json:"sharpe"`
	Observations int     `json:"observations"`
}

// Diagnostics are informational statistics; never scored or filtered
type Diagnostics struct {
	Beta            float64   `json:"beta"`
	Sortino         float64   `json:"sortino"`
	Calmar          float64   `json:"calmar"`
	MaxDrawdown     float64   `json:"max_drawdown"`     // 12M, %
	FIP             float64   `json:"fip"`              // up days minus down days, 12M
	VolatilityRatio float64   `json:"volatility_ratio"` // 1M / 12M vol, %
	ROC4W           float64   `json:"roc_4w"`
	MonthlyReturns  []float64 `json:"monthly_returns"` // month-end to month-end, %
}

// InstrumentMetrics is one row of S2 output
// ⭐ SSOT: S2 → S3/S4 per-instrument metrics
type InstrumentMetrics struct {
	Ticker             string           `json:"ticker"`
	Symbol             string           `json:"symbol"`
	Close              float64          `json:"close"`
	DMA200             float64          `json:"dma200d"`
	Horizons           []HorizonMetrics `json:"horizons"`
	AvgSharpe          float64          `json:"avg_sharpe"`
	MedianDollarVolume float64          `json:"median_dollar_volume"`
	VolumeCr           float64          `json:"volm_cr"`
	ATH                float64          `json:"ath"`
	AwayATH            float64          `json:"away_ath"`
	Diagnostics        *Diagnostics     `json:"diagnostics,omitempty"`
}

// Horizon returns the metrics for a named window, or an all-NaN record
func (m *InstrumentMetrics) Horizon(name string) HorizonMetrics {
	for _, h := range m.Horizons {
		if h.Horizon == name {
			return h
		}
	}
	nan := math.NaN()
	return HorizonMetrics{Horizon: name, Return: nan, Volatility: nan, Sharpe: nan}
}

// Score returns the composite score for a ranking method
func (m *InstrumentMetrics) Score(method RankingMethod) float64 {
	switch method {
	case MethodSharpe3M:
		return m.Horizon("3M").Sharpe
	case MethodAvgSharpe:
		return m.AvgSharpe
	default:
		return math.NaN()
	}
}
