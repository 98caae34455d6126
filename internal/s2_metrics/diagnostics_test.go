package s2_metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBeta(t *testing.T) {
	bench := []float64{nan, 0.01, -0.02, 0.03, 0.005}
	inst := []float64{nan, 0.02, -0.04, 0.06, 0.01}

	assert.Equal(t, 2.0, Beta(inst, bench))
	assert.True(t, math.IsNaN(Beta([]float64{0.1}, []float64{0.2})))
}

func TestFIP(t *testing.T) {
	assert.Equal(t, 1.0, FIP([]float64{nan, 0.1, -0.1, 0.2, 0}))
	assert.Equal(t, -2.0, FIP([]float64{-0.1, -0.2}))
}

func TestSortinoAndCalmar(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02, 0.01}

	assert.Greater(t, Sortino(returns), 0.0)
	assert.Greater(t, Calmar(returns), 0.0)
	assert.True(t, math.IsNaN(Sortino([]float64{nan})))
}

func TestPeriodClosesAndMonthlyReturns(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC),
	}
	closes := []float64{99, 100, 104, nan, 130}

	assert.Equal(t, []float64{100, 104, 130}, PeriodCloses(dates, closes, monthKey))
	assert.Equal(t, []float64{4, 25}, MonthlyReturns(dates, closes))
	assert.Nil(t, MonthlyReturns(dates[:2], closes[:2]))
}

func TestVolatilityRatio(t *testing.T) {
	short := []float64{0.02, -0.02}
	long := []float64{0.01, -0.01}

	assert.Equal(t, 200.0, VolatilityRatio(short, long))
}
