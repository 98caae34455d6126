package s2_metrics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/logger"
)

// fixture builds calendar-daily data from 2023-01-01 to 2024-06-30
func fixture(t *testing.T) (*contracts.MarketData, time.Time) {
	t.Helper()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	lookback := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	var dates []time.Time
	for d := start; !d.After(lookback); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	symbols := []string{"UP.NS", "FLAT.NS", "SHORT.NS", "SINGLE.NS"}

	closeM := contracts.NewPriceMatrix(dates, symbols)
	highM := contracts.NewPriceMatrix(dates, symbols)
	volM := contracts.NewPriceMatrix(dates, symbols)

	price := 100.0
	n := len(dates)
	for i := range dates {
		if i > 0 {
			if i%2 == 1 {
				price *= 1.003
			} else {
				price *= 0.999
			}
		}
		closeM.Values["UP.NS"][i] = price
		highM.Values["UP.NS"][i] = price * 1.01
		volM.Values["UP.NS"][i] = 2e7

		closeM.Values["FLAT.NS"][i] = 100
		highM.Values["FLAT.NS"][i] = 100
		volM.Values["FLAT.NS"][i] = 5e6

		if i >= n-30 {
			p := 50 + float64(i-(n-30))
			closeM.Values["SHORT.NS"][i] = p
			highM.Values["SHORT.NS"][i] = p
			volM.Values["SHORT.NS"][i] = 3e7
		}
	}
	closeM.Values["SINGLE.NS"][n-1] = 10
	highM.Values["SINGLE.NS"][n-1] = 10
	volM.Values["SINGLE.NS"][n-1] = 1e8

	return &contracts.MarketData{Close: closeM, High: highM, DollarVolume: volM}, lookback
}

func byTicker(t *testing.T, rows []contracts.InstrumentMetrics, ticker string) contracts.InstrumentMetrics {
	t.Helper()
	for _, r := range rows {
		if r.Ticker == ticker {
			return r
		}
	}
	t.Fatalf("ticker %s not found", ticker)
	return contracts.InstrumentMetrics{}
}

func TestBuilder_Build(t *testing.T) {
	data, lookback := fixture(t)
	b := NewBuilder(Options{Suffix: ".NS"}, logger.NewNop())

	rows := b.Build(data, lookback)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"UP", "FLAT", "SHORT", "SINGLE"},
		[]string{rows[0].Ticker, rows[1].Ticker, rows[2].Ticker, rows[3].Ticker})

	t.Run("trending instrument", func(t *testing.T) {
		up := byTicker(t, rows, "UP")
		require.Len(t, up.Horizons, 5)

		h12 := up.Horizon("12M")
		assert.Equal(t, 367, h12.Observations) // 2023-06-30 .. 2024-06-30 inclusive
		assert.Greater(t, h12.Return, 0.0)
		assert.Greater(t, h12.Volatility, 0.0)
		assert.Equal(t, Round(h12.Return/h12.Volatility, 2), h12.Sharpe)

		for _, h := range up.Horizons {
			assert.False(t, math.IsNaN(h.Sharpe), "horizon %s", h.Horizon)
		}
		assert.Greater(t, up.AvgSharpe, 0.0)
		assert.Equal(t, 2.0, up.VolumeCr)
		assert.Greater(t, up.Close, up.DMA200)
		assert.GreaterOrEqual(t, up.ATH, up.Close)
		assert.LessOrEqual(t, up.AwayATH, 0.0)
	})

	t.Run("constant instrument coerces scores to zero", func(t *testing.T) {
		flat := byTicker(t, rows, "FLAT")

		assert.Equal(t, 0.0, flat.Horizon("12M").Return)
		assert.Equal(t, 0.0, flat.Horizon("12M").Volatility)
		assert.True(t, math.IsNaN(flat.Horizon("12M").Sharpe))
		assert.Equal(t, 0.0, flat.Horizon("3M").Sharpe)
		assert.Equal(t, 0.0, flat.AvgSharpe)
		assert.Equal(t, 100.0, flat.DMA200)
		assert.Equal(t, 0.5, flat.VolumeCr)
		assert.Equal(t, 0.0, flat.AwayATH)
	})

	t.Run("short history", func(t *testing.T) {
		short := byTicker(t, rows, "SHORT")

		assert.Equal(t, 30, short.Horizon("12M").Observations)
		assert.Equal(t, 79.0, short.Close)
		// no price at any window start
		for _, h := range short.Horizons {
			assert.True(t, math.IsNaN(h.Return), "%s return %v", h.Horizon, h.Return)
		}
		assert.Equal(t, 0.0, short.AvgSharpe)
		// zero-filled moving average sits well below the close
		assert.Less(t, short.DMA200, short.Close)
		assert.Equal(t, 79.0, short.ATH)
	})

	t.Run("single observation is undefined", func(t *testing.T) {
		single := byTicker(t, rows, "SINGLE")

		for _, h := range single.Horizons {
			assert.Equal(t, 1, h.Observations)
			assert.True(t, math.IsNaN(h.Return))
			assert.True(t, math.IsNaN(h.Volatility))
		}
		assert.Equal(t, 0.0, single.Horizon("3M").Sharpe)
		assert.Equal(t, 0.0, single.AvgSharpe)
		assert.Nil(t, single.Diagnostics)
	})
}

func TestBuilder_IgnoresRowsAfterLookback(t *testing.T) {
	data, lookback := fixture(t)
	b := NewBuilder(Options{Suffix: ".NS"}, nil)

	early := lookback.AddDate(0, -2, 0)
	rows := b.Build(data, early)

	flat := byTicker(t, rows, "FLAT")
	assert.Equal(t, 100.0, flat.Close)
	short := byTicker(t, rows, "SHORT")
	assert.Equal(t, 0, short.Horizon("12M").Observations)
	assert.True(t, math.IsNaN(short.Close))
}

func TestBuilder_Idempotent(t *testing.T) {
	data, lookback := fixture(t)
	b := NewBuilder(Options{Suffix: ".NS"}, logger.NewNop())

	first := fmt.Sprintf("%+v", b.Build(data, lookback))
	second := fmt.Sprintf("%+v", b.Build(data, lookback))
	assert.Equal(t, first, second)
}

func TestBuilder_Diagnostics(t *testing.T) {
	data, lookback := fixture(t)

	// benchmark moves exactly like UP, so beta of UP is 1
	up := data.Close.Column("UP.NS")
	data.Benchmark = &contracts.PriceSeries{
		Symbol: "^NSEI",
		Dates:  data.Close.Dates,
		Values: append([]float64(nil), up...),
	}

	b := NewBuilder(Options{Suffix: ".NS", Diagnostics: true}, logger.NewNop())
	rows := b.Build(data, lookback)

	d := byTicker(t, rows, "UP").Diagnostics
	require.NotNil(t, d)
	assert.Equal(t, 1.0, d.Beta)
	assert.Less(t, d.MaxDrawdown, 0.0)
	assert.InDelta(t, 0.0, d.FIP, 1) // alternating up and down days
	assert.NotEmpty(t, d.MonthlyReturns)
	assert.False(t, math.IsNaN(d.ROC4W))

	flat := byTicker(t, rows, "FLAT").Diagnostics
	require.NotNil(t, flat)
	assert.Equal(t, 0.0, flat.MaxDrawdown)
	assert.Equal(t, 0.0, flat.FIP)
}

// listedFixture has one fund trading for two years and one listed ~100 days before lookback
func listedFixture() (*contracts.MarketData, time.Time) {
	lookback := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	start := lookback.AddDate(-2, 0, 0)
	listed := lookback.AddDate(0, 0, -99)

	var dates []time.Time
	for d := start; !d.After(lookback); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	symbols := []string{"OLD.NS", "NEW.NS"}

	closeM := contracts.NewPriceMatrix(dates, symbols)
	highM := contracts.NewPriceMatrix(dates, symbols)
	volM := contracts.NewPriceMatrix(dates, symbols)

	oldPrice, newPrice := 100.0, 50.0
	for i, d := range dates {
		if i%2 == 1 {
			oldPrice *= 1.002
		} else {
			oldPrice *= 0.9995
		}
		closeM.Values["OLD.NS"][i] = oldPrice
		highM.Values["OLD.NS"][i] = oldPrice
		volM.Values["OLD.NS"][i] = 5e7

		if d.Before(listed) {
			continue
		}
		if i%3 == 0 {
			newPrice *= 0.998
		} else {
			newPrice *= 1.01
		}
		closeM.Values["NEW.NS"][i] = newPrice
		highM.Values["NEW.NS"][i] = newPrice
		volM.Values["NEW.NS"][i] = 5e7
	}

	return &contracts.MarketData{Close: closeM, High: highM, DollarVolume: volM}, lookback
}

func TestBuilder_ListedInsideWindow(t *testing.T) {
	data, lookback := listedFixture()
	rows := NewBuilder(Options{Suffix: ".NS"}, logger.NewNop()).Build(data, lookback)

	fresh := byTicker(t, rows, "NEW")
	for _, name := range []string{"12M", "9M", "6M"} {
		h := fresh.Horizon(name)
		assert.True(t, math.IsNaN(h.Return), "%s return %v", name, h.Return)
		assert.True(t, math.IsNaN(h.Sharpe), "%s sharpe %v", name, h.Sharpe)
		assert.Greater(t, h.Observations, 1)
	}

	h3 := fresh.Horizon("3M")
	require.False(t, math.IsNaN(h3.Return))
	assert.Greater(t, h3.Return, 6.5)
	assert.Greater(t, h3.Sharpe, 0.0)
	assert.Equal(t, h3.Sharpe, fresh.AvgSharpe)

	old := byTicker(t, rows, "OLD")
	for _, h := range old.Horizons {
		assert.False(t, math.IsNaN(h.Return), "%s return", h.Horizon)
	}
}
