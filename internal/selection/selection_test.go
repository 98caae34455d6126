package selection

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/internal/s2_metrics"
	"github.com/wonny/etfmomo/pkg/logger"
)

// metric builds an instrument that passes every filter unless overridden
func metric(ticker string, avgSharpe, sharpe3M float64) contracts.InstrumentMetrics {
	return contracts.InstrumentMetrics{
		Ticker: ticker,
		Close:  110,
		DMA200: 100,
		Horizons: []contracts.HorizonMetrics{
			{Horizon: "12M", Return: 20, Volatility: 10, Sharpe: 2},
			{Horizon: "3M", Return: 5, Volatility: 5, Sharpe: sharpe3M},
		},
		AvgSharpe: avgSharpe,
		VolumeCr:  3,
		ATH:       115,
		AwayATH:   -4.35,
	}
}

func ranks(results []contracts.RankedResult) map[string]int {
	out := make(map[string]int, len(results))
	for _, r := range results {
		out[r.Ticker] = r.Rank
	}
	return out
}

func TestRanker_TieKeepsInputOrder(t *testing.T) {
	r := NewRanker(logger.NewNop())

	got := r.Rank([]contracts.InstrumentMetrics{
		metric("A", 1.5, 0),
		metric("B", 1.5, 0),
		metric("C", 0.8, 0),
	}, contracts.MethodAvgSharpe)

	assert.Equal(t, map[string]int{"A": 1, "B": 2, "C": 3}, ranks(got))
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].Ticker, got[1].Ticker, got[2].Ticker})
}

func TestRanker_TieOrderFollowsInputNotName(t *testing.T) {
	r := NewRanker(nil)

	got := r.Rank([]contracts.InstrumentMetrics{
		metric("Z", 1.0, 0),
		metric("A", 1.0, 0),
	}, contracts.MethodAvgSharpe)

	assert.Equal(t, map[string]int{"Z": 1, "A": 2}, ranks(got))
}

func TestRanker_DistinctRanksAndNonIncreasingScores(t *testing.T) {
	r := NewRanker(logger.NewNop())
	input := []contracts.InstrumentMetrics{
		metric("A", 0.2, 1.1),
		metric("B", 1.9, -0.4),
		metric("C", 0.2, 2.5),
		metric("D", -0.7, 0.3),
		metric("E", 1.9, 0.3),
	}

	for _, method := range contracts.RankingMethods {
		t.Run(string(method), func(t *testing.T) {
			got := r.Rank(input, method)
			require.Len(t, got, len(input))

			seen := make(map[int]bool)
			for i, res := range got {
				assert.Equal(t, i+1, res.Rank)
				assert.False(t, seen[res.Rank])
				seen[res.Rank] = true
				if i > 0 {
					assert.LessOrEqual(t, res.CompositeScore, got[i-1].CompositeScore)
				}
			}
		})
	}
}

func TestRanker_NonFiniteScoresRankAsZero(t *testing.T) {
	r := NewRanker(logger.NewNop())

	got := r.Rank([]contracts.InstrumentMetrics{
		metric("NAN", math.NaN(), math.NaN()),
		metric("POS", 0.4, 0.4),
		metric("INF", math.Inf(1), math.Inf(1)),
		metric("NEG", -0.3, -0.3),
	}, contracts.MethodSharpe3M)

	assert.Equal(t, map[string]int{"POS": 1, "NAN": 2, "INF": 3, "NEG": 4}, ranks(got))
	for _, res := range got {
		assert.False(t, math.IsNaN(res.CompositeScore) || math.IsInf(res.CompositeScore, 0))
	}
}

func TestRanker_ConstantPriceRanksBelowPositive(t *testing.T) {
	r := NewRanker(logger.NewNop())

	// a constant series has zero volatility; its score arrives coerced to 0
	flat := metric("FLAT", 0, 0)
	got := r.Rank([]contracts.InstrumentMetrics{flat, metric("P1", 0.01, 0.01), metric("P2", 2, 2)}, contracts.MethodAvgSharpe)

	assert.Equal(t, 3, ranks(got)["FLAT"])
}

func TestRanker_Idempotent(t *testing.T) {
	r := NewRanker(logger.NewNop())
	input := []contracts.InstrumentMetrics{metric("A", 1, 1), metric("B", 1, 1), metric("C", 2, 0)}

	assert.Equal(t, r.Rank(input, contracts.MethodAvgSharpe), r.Rank(input, contracts.MethodAvgSharpe))
}

func TestRanker_Empty(t *testing.T) {
	assert.Empty(t, NewRanker(logger.NewNop()).Rank(nil, contracts.MethodAvgSharpe))
}

func TestScreener_Check(t *testing.T) {
	s := NewScreener(contracts.DefaultFilterThresholds(), logger.NewNop())

	tests := []struct {
		name   string
		modify func(m *contracts.InstrumentMetrics)
		want   contracts.FilterChecks
	}{
		{
			name:   "all pass",
			modify: func(m *contracts.InstrumentMetrics) {},
			want:   contracts.FilterChecks{Liquidity: true, Trend: true, Momentum: true, Drawdown: true},
		},
		{
			name:   "illiquid",
			modify: func(m *contracts.InstrumentMetrics) { m.VolumeCr = 0.5 },
			want:   contracts.FilterChecks{Liquidity: false, Trend: true, Momentum: true, Drawdown: true},
		},
		{
			name:   "liquidity threshold is strict",
			modify: func(m *contracts.InstrumentMetrics) { m.VolumeCr = 1 },
			want:   contracts.FilterChecks{Liquidity: false, Trend: true, Momentum: true, Drawdown: true},
		},
		{
			name:   "below moving average",
			modify: func(m *contracts.InstrumentMetrics) { m.DMA200 = 120 },
			want:   contracts.FilterChecks{Liquidity: true, Trend: false, Momentum: true, Drawdown: true},
		},
		{
			name:   "undefined moving average",
			modify: func(m *contracts.InstrumentMetrics) { m.DMA200 = math.NaN() },
			want:   contracts.FilterChecks{Liquidity: true, Trend: false, Momentum: true, Drawdown: true},
		},
		{
			name:   "weak momentum",
			modify: func(m *contracts.InstrumentMetrics) { m.Horizons[0].Return = 6.5 },
			want:   contracts.FilterChecks{Liquidity: true, Trend: true, Momentum: false, Drawdown: true},
		},
		{
			name: "deep drawdown despite momentum",
			modify: func(m *contracts.InstrumentMetrics) {
				m.Horizons[0].Return = 7
				m.AwayATH = -30
			},
			want: contracts.FilterChecks{Liquidity: true, Trend: true, Momentum: true, Drawdown: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metric("X", 1, 1)
			tt.modify(&m)
			got := s.Check(&m)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.All(), got.All())
		})
	}
}

func TestScreener_Screen(t *testing.T) {
	r := NewRanker(logger.NewNop())
	s := NewScreener(contracts.DefaultFilterThresholds(), logger.NewNop())

	illiquid := metric("ILLIQUID", 3, 3)
	illiquid.VolumeCr = 0.5
	drawn := metric("DRAWN", 2.5, 2.5)
	drawn.Horizons[0].Return = 7
	drawn.AwayATH = -30

	ranked := r.Rank([]contracts.InstrumentMetrics{
		metric("LOW", 0.5, 0.5),
		illiquid,
		metric("HIGH", 2, 2),
		drawn,
		metric("MID", 1, 1),
	}, contracts.MethodAvgSharpe)

	all, filtered, counts := s.Screen(ranked, contracts.MethodAvgSharpe)

	require.Len(t, all, 5)
	for i, res := range all {
		assert.Equal(t, i+1, res.Rank, "rank order is preserved")
	}

	var names []string
	for _, f := range filtered {
		assert.True(t, f.FinalMomentum)
		names = append(names, f.Ticker)
	}
	assert.Equal(t, []string{"HIGH", "MID", "LOW"}, names)

	for _, res := range all {
		switch res.Ticker {
		case "ILLIQUID", "DRAWN":
			assert.False(t, res.FinalMomentum, res.Ticker)
		}
	}
	assert.Equal(t, 1, counts["liquidity"])
	assert.Equal(t, 1, counts["drawdown"])
	assert.Equal(t, 0, counts["trend"])
}

func TestScreener_FilteredOrderUsesScoreNotRank(t *testing.T) {
	s := NewScreener(contracts.DefaultFilterThresholds(), logger.NewNop())

	// ranks assigned by sharpe3M, filtered view requested by avgSharpe
	a := contracts.RankedResult{InstrumentMetrics: metric("A", 0.5, 3), Rank: 1}
	b := contracts.RankedResult{InstrumentMetrics: metric("B", 1.5, 1), Rank: 2}

	_, filtered, _ := s.Screen([]contracts.RankedResult{a, b}, contracts.MethodAvgSharpe)

	require.Len(t, filtered, 2)
	assert.Equal(t, "B", filtered[0].Ticker)
	assert.Equal(t, "A", filtered[1].Ticker)
}

func TestScreen_RecentListingFailsMomentum(t *testing.T) {
	lookback := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	listed := lookback.AddDate(0, 0, -100)

	var dates []time.Time
	for d := lookback.AddDate(-2, 0, 0); !d.After(lookback); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	symbols := []string{"NEW.NS"}
	closeM := contracts.NewPriceMatrix(dates, symbols)
	highM := contracts.NewPriceMatrix(dates, symbols)
	volM := contracts.NewPriceMatrix(dates, symbols)

	price := 50.0
	for i, d := range dates {
		if d.Before(listed) {
			continue
		}
		if i%4 == 0 {
			price *= 0.997
		} else {
			price *= 1.01
		}
		closeM.Values["NEW.NS"][i] = price
		highM.Values["NEW.NS"][i] = price
		volM.Values["NEW.NS"][i] = 5e7
	}
	data := &contracts.MarketData{Close: closeM, High: highM, DollarVolume: volM}

	metrics := s2_metrics.NewBuilder(s2_metrics.Options{Suffix: ".NS", DMAWindow: 50}, nil).Build(data, lookback)
	ranked := NewRanker(nil).Rank(metrics, contracts.MethodAvgSharpe)
	all, filtered, counts := NewScreener(contracts.DefaultFilterThresholds(), nil).Screen(ranked, contracts.MethodAvgSharpe)

	require.Len(t, all, 1)
	got := all[0]
	assert.True(t, math.IsNaN(got.Horizon("12M").Return))
	assert.True(t, math.IsNaN(got.Horizon("12M").Sharpe))
	assert.Equal(t, got.Horizon("3M").Sharpe, got.AvgSharpe)
	assert.Greater(t, got.AvgSharpe, 0.0)

	assert.True(t, got.Checks.Liquidity)
	assert.True(t, got.Checks.Trend)
	assert.True(t, got.Checks.Drawdown)
	assert.False(t, got.Checks.Momentum)
	assert.False(t, got.FinalMomentum)
	assert.Empty(t, filtered)
	assert.Equal(t, 1, counts["momentum"])
}
