package s2_metrics

import (
	"math"
	"sort"

	"github.com/wonny/etfmomo/internal/contracts"
)

// TradingDays annualizes daily statistics
const TradingDays = 252

// Round rounds half to even at the given number of decimals
func Round(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(x*p) / p
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ForwardFill propagates the last defined value into later gaps.
// Leading gaps stay NaN.
func ForwardFill(values []float64) []float64 {
	out := make([]float64, len(values))
	last := math.NaN()
	for i, v := range values {
		if !math.IsNaN(v) {
			last = v
		}
		out[i] = last
	}
	return out
}

// ZeroFill replaces missing values with 0
func ZeroFill(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			out[i] = v
		}
	}
	return out
}

// percentChange is the elementwise change of a forward-filled column.
// Index 0 and cells before the first observation are NaN; a zero
// predecessor yields ±Inf (or NaN for 0/0).
func percentChange(values []float64) []float64 {
	filled := ForwardFill(values)
	out := make([]float64, len(filled))
	if len(out) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(filled); i++ {
		out[i] = filled[i]/filled[i-1] - 1
	}
	return out
}

// DailyReturns computes per-instrument daily returns over an aligned matrix.
//
// Non-finite returns caused by a zero denominator are rewritten in two passes:
// first the per-date max (for +Inf) and min (for -Inf) of the finite returns
// across all instruments is collected, then each infinite cell takes that value.
// Cells that had no finite value to borrow on their date are backward-filled
// along the date axis from the instrument's next defined return.
func DailyReturns(m *contracts.PriceMatrix) *contracts.PriceMatrix {
	out := contracts.NewPriceMatrix(m.Dates, m.Symbols)
	for _, s := range m.Symbols {
		out.Values[s] = percentChange(m.Values[s])
	}

	n := m.Len()
	rowMax := make([]float64, n)
	rowMin := make([]float64, n)
	for i := 0; i < n; i++ {
		rowMax[i] = math.NaN()
		rowMin[i] = math.NaN()
		for _, s := range m.Symbols {
			v := out.Values[s][i]
			if !isFinite(v) {
				continue
			}
			if math.IsNaN(rowMax[i]) || v > rowMax[i] {
				rowMax[i] = v
			}
			if math.IsNaN(rowMin[i]) || v < rowMin[i] {
				rowMin[i] = v
			}
		}
	}

	for _, s := range m.Symbols {
		col := out.Values[s]
		unresolved := make([]bool, n)
		for i, v := range col {
			switch {
			case math.IsInf(v, 1):
				col[i] = rowMax[i]
			case math.IsInf(v, -1):
				col[i] = rowMin[i]
			default:
				continue
			}
			unresolved[i] = math.IsNaN(col[i])
		}
		next := math.NaN()
		for i := n - 1; i >= 0; i-- {
			if unresolved[i] {
				col[i] = next
				continue
			}
			if !math.IsNaN(col[i]) {
				next = col[i]
			}
		}
	}

	return out
}

// Volatility is the population standard deviation of the finite returns,
// annualized and expressed in percent, rounded to 2 decimals.
func Volatility(returns []float64) float64 {
	sd := populationStd(returns)
	if math.IsNaN(sd) {
		return sd
	}
	return Round(sd*math.Sqrt(TradingDays)*100, 2)
}

func populationStd(values []float64) float64 {
	mean, n := meanFinite(values)
	if n == 0 {
		return math.NaN()
	}
	var ss float64
	for _, v := range values {
		if isFinite(v) {
			d := v - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n))
}

func sampleStd(values []float64) float64 {
	mean, n := meanFinite(values)
	if n < 2 {
		return math.NaN()
	}
	var ss float64
	for _, v := range values {
		if isFinite(v) {
			d := v - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n-1))
}

func meanFinite(values []float64) (float64, int) {
	var sum float64
	n := 0
	for _, v := range values {
		if isFinite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN(), 0
	}
	return sum / float64(n), n
}

// definedBounds returns the first and last defined values and their count
func definedBounds(prices []float64) (first, last float64, n int) {
	first, last = math.NaN(), math.NaN()
	for _, p := range prices {
		if math.IsNaN(p) {
			continue
		}
		if n == 0 {
			first = p
		}
		last = p
		n++
	}
	return first, last, n
}

// AbsoluteReturn is (last/first - 1) * 100 rounded to 2, where first is the
// window's first row. Undefined with fewer than 2 observations or when the
// first row is missing, i.e. the instrument has no price at the window start.
func AbsoluteReturn(prices []float64) float64 {
	_, last, n := definedBounds(prices)
	if n < 2 || math.IsNaN(prices[0]) {
		return math.NaN()
	}
	return Round((last/prices[0]-1)*100, 2)
}

// RateOfChange is (p[-1]/p[-1-n] - 1) * 100 rounded to 2; needs n+1 observations
func RateOfChange(prices []float64, n int) float64 {
	if n < 1 || len(prices) < n+1 {
		return math.NaN()
	}
	return Round((prices[len(prices)-1]/prices[len(prices)-1-n]-1)*100, 2)
}

// MaxDrawdown is the minimum of cumulative wealth over its running peak, minus 1.
// Undefined returns are skipped; the result is always <= 0.
func MaxDrawdown(returns []float64) float64 {
	wealth, peak := 1.0, math.Inf(-1)
	worst := math.NaN()
	for _, r := range returns {
		if !isFinite(r) {
			continue
		}
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		dd := wealth/peak - 1
		if math.IsNaN(worst) || dd < worst {
			worst = dd
		}
	}
	return worst
}

// SharpeRatio is return% / volatility% rounded to 2. A zero volatility
// produces a non-finite value, coerced to 0 only at the scoring step.
func SharpeRatio(returnPct, volatilityPct float64) float64 {
	return Round(returnPct/volatilityPct, 2)
}

// Median of the defined values (NaN if none)
func Median(values []float64) float64 {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return math.NaN()
	}
	sort.Float64s(defined)
	mid := len(defined) / 2
	if len(defined)%2 == 1 {
		return defined[mid]
	}
	return (defined[mid-1] + defined[mid]) / 2
}

// MedianVolume is the median dollar volume rounded to the nearest integer
func MedianVolume(dollarVolume []float64) float64 {
	return Round(Median(dollarVolume), 0)
}

// VolumeCrore scales a median dollar volume to crore units, rounded to 2
func VolumeCrore(medianVolume float64) float64 {
	return Round(medianVolume/1e7, 2)
}

// TrailingMean averages the last window values after zero-filling gaps.
// Undefined when fewer than window rows exist.
func TrailingMean(values []float64, window int) float64 {
	if window < 1 || len(values) < window {
		return math.NaN()
	}
	var sum float64
	for _, v := range ZeroFill(values[len(values)-window:]) {
		sum += v
	}
	return sum / float64(window)
}

// MaxDefined returns the largest defined value (NaN if none)
func MaxDefined(values []float64) float64 {
	out := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || v > out {
			out = v
		}
	}
	return out
}

// LastDefined returns the last defined value (NaN if none)
func LastDefined(values []float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i]
		}
	}
	return math.NaN()
}

// MeanSkipNaN averages the values ignoring NaN; an infinite member
// makes the mean infinite (or NaN for mixed signs)
func MeanSkipNaN(values []float64) float64 {
	var sum float64
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// FiniteOrZero coerces NaN and ±Inf to 0
func FiniteOrZero(x float64) float64 {
	if isFinite(x) {
		return x
	}
	return 0
}
