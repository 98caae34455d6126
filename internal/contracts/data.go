package contracts

import (
	"math"
	"sort"
	"time"
)

// Bar is one adjusted daily observation for a symbol
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceHistory is one symbol's bars, oldest first, no duplicate dates
type PriceHistory struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// FetchFailure records a symbol whose history could not be retrieved
type FetchFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// FetchResult is what a PriceSource hands to S0 alignment
type FetchResult struct {
	Histories []PriceHistory `json:"histories"` // request order, failed symbols omitted
	Failed    []FetchFailure `json:"failed"`
}

// PriceMatrix holds one value per (date, symbol), aligned on a shared date index.
// Missing cells are NaN and are never filled across symbols.
// ⭐ SSOT: S0 → S2 aligned price/volume hand-off
type PriceMatrix struct {
	Dates   []time.Time          `json:"dates"`
	Symbols []string             `json:"symbols"`
	Values  map[string][]float64 `json:"-"`
}

// NewPriceMatrix allocates a matrix with every cell missing
func NewPriceMatrix(dates []time.Time, symbols []string) *PriceMatrix {
	m := &PriceMatrix{
		Dates:   dates,
		Symbols: symbols,
		Values:  make(map[string][]float64, len(symbols)),
	}
	for _, s := range symbols {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = math.NaN()
		}
		m.Values[s] = col
	}
	return m
}

// Len returns the number of dates (rows)
func (m *PriceMatrix) Len() int {
	return len(m.Dates)
}

// Column returns the raw column for a symbol (nil if absent)
func (m *PriceMatrix) Column(symbol string) []float64 {
	return m.Values[symbol]
}

// RowRange returns the half-open row interval [lo, hi) whose dates fall in [from, to]
func (m *PriceMatrix) RowRange(from, to time.Time) (int, int) {
	lo := sort.Search(len(m.Dates), func(i int) bool { return !m.Dates[i].Before(from) })
	hi := sort.Search(len(m.Dates), func(i int) bool { return m.Dates[i].After(to) })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Slice returns the rows dated within [from, to]. Columns share storage with m.
func (m *PriceMatrix) Slice(from, to time.Time) *PriceMatrix {
	lo, hi := m.RowRange(from, to)
	out := &PriceMatrix{
		Dates:   m.Dates[lo:hi],
		Symbols: m.Symbols,
		Values:  make(map[string][]float64, len(m.Symbols)),
	}
	for _, s := range m.Symbols {
		out.Values[s] = m.Values[s][lo:hi]
	}
	return out
}

// PriceSeries is a single dated series (the benchmark index)
type PriceSeries struct {
	Symbol string      `json:"symbol"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// MarketData bundles the three aligned matrices the metric builder consumes
type MarketData struct {
	Close        *PriceMatrix `json:"close"`
	High         *PriceMatrix `json:"high"`
	DollarVolume *PriceMatrix `json:"dollar_volume"`
	Benchmark    *PriceSeries `json:"benchmark,omitempty"` // optional, beta only
}

// Symbols returns the instrument identifiers in input order
func (d *MarketData) Symbols() []string {
	if d == nil || d.Close == nil {
		return nil
	}
	return d.Close.Symbols
}
