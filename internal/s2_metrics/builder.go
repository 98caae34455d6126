package s2_metrics

import (
	"math"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/logger"
)

// Options tune the builder
type Options struct {
	DMAWindow   int    // trailing moving average length, default 200
	Suffix      string // exchange suffix stripped from tickers
	Diagnostics bool   // compute beta, sortino, calmar and friends
}

// Builder turns aligned market data into one InstrumentMetrics per symbol
// ⭐ SSOT: horizon metric computation lives here only
type Builder struct {
	opts   Options
	logger *logger.Logger
}

// NewBuilder creates a new horizon metric builder
func NewBuilder(opts Options, log *logger.Logger) *Builder {
	if opts.DMAWindow <= 0 {
		opts.DMAWindow = contracts.DefaultFilterThresholds().DMAWindow
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{opts: opts, logger: log}
}

// horizonWindow is one horizon's forward-filled prices and daily returns
type horizonWindow struct {
	horizon contracts.Horizon
	prices  *contracts.PriceMatrix
	returns *contracts.PriceMatrix
}

// Build computes metrics for every symbol, in input order.
// Rows after the lookback date are ignored.
func (b *Builder) Build(data *contracts.MarketData, lookback time.Time) []contracts.InstrumentMetrics {
	symbols := data.Symbols()
	b.logger.WithFields(map[string]interface{}{
		"lookback": lookback.Format("2006-01-02"),
		"symbols":  len(symbols),
		"rows":     data.Close.Len(),
	}).Info("Starting horizon metrics")

	history := data.Close.Slice(time.Time{}, lookback)
	filled := contracts.NewPriceMatrix(history.Dates, symbols)
	for _, s := range symbols {
		filled.Values[s] = ForwardFill(history.Values[s])
	}

	windows := make([]horizonWindow, len(contracts.Horizons))
	for i, h := range contracts.Horizons {
		prices := filled.Slice(WindowStart(lookback, h.Months), lookback)
		windows[i] = horizonWindow{horizon: h, prices: prices, returns: DailyReturns(prices)}
	}

	start12M := WindowStart(lookback, 12)
	raw12M := history.Slice(start12M, lookback)
	volume12M := data.DollarVolume.Slice(start12M, lookback)
	highAll := data.High.Slice(time.Time{}, lookback)

	var bench12M []float64
	if b.opts.Diagnostics && data.Benchmark != nil {
		bench12M = alignedReturns(data.Benchmark, windows[0].prices.Dates)
	}

	out := make([]contracts.InstrumentMetrics, 0, len(symbols))
	for _, s := range symbols {
		m := contracts.InstrumentMetrics{
			Ticker:   contracts.StripSuffix(s, b.opts.Suffix),
			Symbol:   s,
			Close:    Round(LastDefined(windows[0].prices.Values[s]), 2),
			DMA200:   Round(TrailingMean(raw12M.Values[s], b.opts.DMAWindow), 2),
			Horizons: make([]contracts.HorizonMetrics, 0, len(windows)),
		}

		for _, w := range windows {
			m.Horizons = append(m.Horizons, horizonMetrics(w, s))
		}

		scored := make([]float64, 0, len(contracts.ScoredHorizons))
		for _, name := range contracts.ScoredHorizons {
			scored = append(scored, m.Horizon(name).Sharpe)
		}
		m.AvgSharpe = FiniteOrZero(Round(MeanSkipNaN(scored), 2))
		for i := range m.Horizons {
			if m.Horizons[i].Horizon == "3M" {
				m.Horizons[i].Sharpe = FiniteOrZero(m.Horizons[i].Sharpe)
			}
		}

		m.MedianDollarVolume = MedianVolume(volume12M.Values[s])
		m.VolumeCr = VolumeCrore(m.MedianDollarVolume)
		m.ATH = Round(MaxDefined(highAll.Values[s]), 2)
		m.AwayATH = Round((m.Close/m.ATH-1)*100, 2)

		if b.opts.Diagnostics {
			m.Diagnostics = diagnostics(
				windows[0].prices.Dates,
				windows[0].prices.Values[s],
				windows[0].returns.Values[s],
				windows[len(windows)-1].returns.Values[s],
				bench12M,
			)
		}

		out = append(out, m)
	}

	b.logger.WithFields(map[string]interface{}{
		"symbols":  len(out),
		"window":   len(windows[0].prices.Dates),
		"lookback": lookback.Format("2006-01-02"),
	}).Info("Horizon metrics completed")

	return out
}

func horizonMetrics(w horizonWindow, symbol string) contracts.HorizonMetrics {
	prices := w.prices.Values[symbol]
	_, _, n := definedBounds(prices)
	hm := contracts.HorizonMetrics{
		Horizon:      w.horizon.Name,
		Return:       math.NaN(),
		Volatility:   math.NaN(),
		Sharpe:       math.NaN(),
		Observations: n,
	}
	if n < 2 {
		return hm
	}
	hm.Return = AbsoluteReturn(prices)
	hm.Volatility = Volatility(w.returns.Values[symbol])
	hm.Sharpe = SharpeRatio(hm.Return, hm.Volatility)
	return hm
}

// alignedReturns maps a benchmark series onto dates, forward-filled, as daily returns
func alignedReturns(series *contracts.PriceSeries, dates []time.Time) []float64 {
	byDate := make(map[string]float64, len(series.Dates))
	for i, d := range series.Dates {
		if i < len(series.Values) {
			byDate[d.Format("2006-01-02")] = series.Values[i]
		}
	}
	aligned := make([]float64, len(dates))
	for i, d := range dates {
		v, ok := byDate[d.Format("2006-01-02")]
		if !ok {
			v = math.NaN()
		}
		aligned[i] = v
	}
	return percentChange(aligned)
}
