package s2_metrics

import (
	"math"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
)

// Beta is cov(instrument, benchmark) / var(benchmark) over the dates on which
// both returns are defined, using sample (n-1) moments, rounded to 2.
func Beta(returns, benchmark []float64) float64 {
	var xs, ys []float64
	for i := range returns {
		if i >= len(benchmark) {
			break
		}
		if isFinite(returns[i]) && isFinite(benchmark[i]) {
			xs = append(xs, returns[i])
			ys = append(ys, benchmark[i])
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	mx, _ := meanFinite(xs)
	my, _ := meanFinite(ys)
	var cov, varY float64
	for i := range xs {
		cov += (xs[i] - mx) * (ys[i] - my)
		varY += (ys[i] - my) * (ys[i] - my)
	}
	n := float64(len(xs) - 1)
	return Round((cov/n)/(varY/n), 2)
}

// Sortino is sqrt(252) * mean / sample std of the negative returns
func Sortino(returns []float64) float64 {
	mean, n := meanFinite(returns)
	if n == 0 {
		return math.NaN()
	}
	var downside []float64
	for _, r := range returns {
		if isFinite(r) && r < 0 {
			downside = append(downside, r)
		}
	}
	return Round(math.Sqrt(TradingDays)*mean/sampleStd(downside), 2)
}

// Calmar is annualized mean return over |max drawdown|
func Calmar(returns []float64) float64 {
	mean, n := meanFinite(returns)
	if n == 0 {
		return math.NaN()
	}
	return Round(mean*TradingDays/math.Abs(MaxDrawdown(returns)), 2)
}

// FIP counts up days minus down days
func FIP(returns []float64) float64 {
	var up, down int
	for _, r := range returns {
		switch {
		case !isFinite(r):
		case r > 0:
			up++
		case r < 0:
			down++
		}
	}
	return float64(up - down)
}

// VolatilityRatio compares short-window to long-window daily volatility, in %
func VolatilityRatio(short, long []float64) float64 {
	return Round(populationStd(short)/populationStd(long)*100, 2)
}

// PeriodCloses keeps the last defined close of each period, as keyed by key
func PeriodCloses(dates []time.Time, closes []float64, key func(time.Time) int) []float64 {
	var out []float64
	prev := math.MinInt
	for i, d := range dates {
		if i >= len(closes) || math.IsNaN(closes[i]) {
			continue
		}
		k := key(d)
		if k == prev && len(out) > 0 {
			out[len(out)-1] = closes[i]
			continue
		}
		out = append(out, closes[i])
		prev = k
	}
	return out
}

func weekKey(t time.Time) int {
	y, w := t.ISOWeek()
	return y*100 + w
}

func monthKey(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// MonthlyReturns are the month-over-month changes of month-end closes, in %
func MonthlyReturns(dates []time.Time, closes []float64) []float64 {
	monthly := PeriodCloses(dates, closes, monthKey)
	if len(monthly) < 2 {
		return nil
	}
	out := make([]float64, 0, len(monthly)-1)
	for i := 1; i < len(monthly); i++ {
		out = append(out, Round((monthly[i]/monthly[i-1]-1)*100, 2))
	}
	return out
}

// diagnostics computes the informational statistics for one instrument.
// close12M and ret12M cover the 12M window; ret1M the 1M window.
func diagnostics(dates []time.Time, close12M, ret12M, ret1M, bench12M []float64) *contracts.Diagnostics {
	d := &contracts.Diagnostics{
		Beta:            math.NaN(),
		Sortino:         Sortino(ret12M),
		Calmar:          Calmar(ret12M),
		MaxDrawdown:     Round(MaxDrawdown(ret12M)*100, 2),
		FIP:             FIP(ret12M),
		VolatilityRatio: VolatilityRatio(ret1M, ret12M),
		ROC4W:           RateOfChange(PeriodCloses(dates, close12M, weekKey), 4),
		MonthlyReturns:  MonthlyReturns(dates, close12M),
	}
	if bench12M != nil {
		d.Beta = Beta(ret12M, bench12M)
	}
	return d
}
