package s2_metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/etfmomo/internal/contracts"
)

var nan = math.NaN()

func TestAbsoluteReturn(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"three points", []float64{100, 110, 121}, 21},
		{"inner gap ignored", []float64{100, nan, 110, 121}, 21},
		{"trailing gap uses last price", []float64{100, 110, nan}, 10},
		{"listed inside window", []float64{nan, 100, 110, 121}, nan},
		{"loss", []float64{200, 150}, -25},
		{"single point", []float64{100}, nan},
		{"empty", nil, nan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AbsoluteReturn(tt.prices)
			if math.IsNaN(tt.want) {
				assert.True(t, math.IsNaN(got), "got %v", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateOfChange(t *testing.T) {
	prices := []float64{100, 105, 110, 121}

	assert.Equal(t, 15.24, RateOfChange(prices, 2))
	assert.Equal(t, 21.0, RateOfChange(prices, 3))
	assert.True(t, math.IsNaN(RateOfChange(prices, 4)))
	assert.True(t, math.IsNaN(RateOfChange(prices, 0)))
}

func TestVolatility(t *testing.T) {
	alternating := []float64{nan, 0.01, -0.01, 0.01, -0.01}
	assert.Equal(t, 15.87, Volatility(alternating))

	assert.Equal(t, 0.0, Volatility([]float64{nan, 0, 0, 0}))
	assert.True(t, math.IsNaN(Volatility([]float64{nan, nan})))
}

func TestMaxDrawdown(t *testing.T) {
	t.Run("no negative returns", func(t *testing.T) {
		assert.Equal(t, 0.0, MaxDrawdown([]float64{nan, 0.01, 0.02, 0, 0.05}))
	})

	t.Run("halving after gain", func(t *testing.T) {
		assert.InDelta(t, -0.5, MaxDrawdown([]float64{0.1, -0.5, 0.2}), 1e-12)
	})

	t.Run("never positive", func(t *testing.T) {
		got := MaxDrawdown([]float64{-0.1, 0.05, -0.2, 0.3, -0.01})
		assert.LessOrEqual(t, got, 0.0)
	})

	t.Run("no data", func(t *testing.T) {
		assert.True(t, math.IsNaN(MaxDrawdown([]float64{nan})))
	})
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 2.5, SharpeRatio(10, 4))
	assert.Equal(t, 0.33, SharpeRatio(1, 3))
	assert.True(t, math.IsInf(SharpeRatio(21, 0), 1))
	assert.True(t, math.IsNaN(SharpeRatio(0, 0)))
	assert.True(t, math.IsNaN(SharpeRatio(nan, 12)))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.12, Round(0.125, 2)) // half to even
	assert.Equal(t, 2.0, Round(2.5, 0))
	assert.Equal(t, 3.0, Round(2.51, 0))
	assert.True(t, math.IsInf(Round(math.Inf(1), 2), 1))
}

func TestMedianVolume(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, nan, 2, 3}))
	assert.True(t, math.IsNaN(Median([]float64{nan})))

	median := MedianVolume([]float64{1.5e7, 2.5e7, nan})
	assert.Equal(t, 2e7, median)
	assert.Equal(t, 2.0, VolumeCrore(median))
	assert.Equal(t, 0.5, VolumeCrore(MedianVolume([]float64{5e6})))
}

func TestTrailingMean(t *testing.T) {
	assert.Equal(t, 2.0, TrailingMean([]float64{nan, 2, 4}, 3))
	assert.Equal(t, 3.0, TrailingMean([]float64{100, 2, 4}, 2))
	assert.True(t, math.IsNaN(TrailingMean([]float64{1, 2, 3}, 4)))
}

func TestFillHelpers(t *testing.T) {
	filled := ForwardFill([]float64{nan, 1, nan, 3, nan})
	assert.True(t, math.IsNaN(filled[0]))
	assert.Equal(t, []float64{1, 1, 3, 3}, filled[1:])

	assert.Equal(t, []float64{0, 1, 0}, ZeroFill([]float64{nan, 1, nan}))
	assert.Equal(t, 3.0, LastDefined([]float64{1, 3, nan}))
	assert.Equal(t, 7.0, MaxDefined([]float64{nan, 7, 2}))
	assert.True(t, math.IsNaN(MaxDefined([]float64{nan})))
}

func TestMeanSkipNaN(t *testing.T) {
	assert.Equal(t, 1.5, MeanSkipNaN([]float64{1, nan, 2}))
	assert.True(t, math.IsNaN(MeanSkipNaN([]float64{nan, nan})))
	assert.True(t, math.IsInf(MeanSkipNaN([]float64{1, math.Inf(1)}), 1))
}

func TestFiniteOrZero(t *testing.T) {
	assert.Equal(t, 0.0, FiniteOrZero(nan))
	assert.Equal(t, 0.0, FiniteOrZero(math.Inf(1)))
	assert.Equal(t, 0.0, FiniteOrZero(math.Inf(-1)))
	assert.Equal(t, -1.25, FiniteOrZero(-1.25))
}

func matrix(t *testing.T, cols map[string][]float64, order ...string) *contracts.PriceMatrix {
	t.Helper()
	n := len(cols[order[0]])
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}
	m := contracts.NewPriceMatrix(dates, order)
	for _, s := range order {
		require.Len(t, cols[s], n)
		copy(m.Values[s], cols[s])
	}
	return m
}

func TestDailyReturns_ForwardFillsGaps(t *testing.T) {
	m := matrix(t, map[string][]float64{"A": {nan, 100, nan, 110}}, "A")
	r := DailyReturns(m).Column("A")

	assert.True(t, math.IsNaN(r[0]))
	assert.True(t, math.IsNaN(r[1]))
	assert.Equal(t, 0.0, r[2])
	assert.InDelta(t, 0.1, r[3], 1e-12)
}

func TestDailyReturns_SubstitutesPositiveInfinity(t *testing.T) {
	m := matrix(t, map[string][]float64{
		"A": {0, 5, 5.5},
		"B": {10, 11, 11},
		"C": {20, 19, 19},
	}, "A", "B", "C")

	r := DailyReturns(m)

	// A divides by zero on day 1 and takes the best finite return that day (B)
	assert.InDelta(t, 0.1, r.Column("A")[1], 1e-12)
	assert.InDelta(t, 0.1, r.Column("A")[2], 1e-12)
	assert.InDelta(t, -0.05, r.Column("C")[1], 1e-12)
	for _, s := range []string{"A", "B", "C"} {
		assert.True(t, math.IsNaN(r.Column(s)[0]), "leading return of %s", s)
	}
}

func TestDailyReturns_SubstitutesNegativeInfinity(t *testing.T) {
	m := matrix(t, map[string][]float64{
		"A": {0, -1, -1},
		"B": {10, 9, 9},
		"C": {10, 12, 12},
	}, "A", "B", "C")

	r := DailyReturns(m)

	assert.InDelta(t, -0.1, r.Column("A")[1], 1e-12)
}

func TestDailyReturns_BackfillsWhenNoFiniteValueOnDate(t *testing.T) {
	m := matrix(t, map[string][]float64{"A": {0, 5, 6}}, "A")

	r := DailyReturns(m).Column("A")

	assert.True(t, math.IsNaN(r[0]))
	assert.InDelta(t, 0.2, r[1], 1e-12)
	assert.InDelta(t, 0.2, r[2], 1e-12)
	for _, v := range r[1:] {
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestDailyReturns_ConstantSeriesHasZeroVolatility(t *testing.T) {
	m := matrix(t, map[string][]float64{"FLAT": {50, 50, 50, 50}}, "FLAT")

	assert.Equal(t, 0.0, Volatility(DailyReturns(m).Column("FLAT")))
}
