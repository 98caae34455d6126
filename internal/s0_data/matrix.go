package s0_data

import (
	"sort"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
)

// Align outer-joins histories on their trade dates and builds the close, high
// and dollar-volume matrices. Cells a symbol has no bar for stay NaN; nothing
// is filled here. Dollar volume is adjusted close × volume.
// ⭐ SSOT: S0 → S2 alignment
func Align(histories []contracts.PriceHistory) *contracts.MarketData {
	dateSet := make(map[time.Time]struct{})
	symbols := make([]string, 0, len(histories))
	for _, h := range histories {
		symbols = append(symbols, h.Symbol)
		for _, b := range h.Bars {
			dateSet[b.Date] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	row := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		row[d] = i
	}

	data := &contracts.MarketData{
		Close:        contracts.NewPriceMatrix(dates, symbols),
		High:         contracts.NewPriceMatrix(dates, symbols),
		DollarVolume: contracts.NewPriceMatrix(dates, symbols),
	}

	for _, h := range histories {
		closes := data.Close.Values[h.Symbol]
		highs := data.High.Values[h.Symbol]
		dollar := data.DollarVolume.Values[h.Symbol]
		for _, b := range h.Bars {
			i := row[b.Date]
			closes[i] = b.Close
			highs[i] = b.High
			dollar[i] = b.Close * b.Volume
		}
	}

	return data
}

// ToSeries converts a history to a dated close series (the benchmark)
func ToSeries(h contracts.PriceHistory) *contracts.PriceSeries {
	s := &contracts.PriceSeries{
		Symbol: h.Symbol,
		Dates:  make([]time.Time, len(h.Bars)),
		Values: make([]float64, len(h.Bars)),
	}
	for i, b := range h.Bars {
		s.Dates[i] = b.Date
		s.Values[i] = b.Close
	}
	return s
}
