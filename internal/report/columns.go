package report

import (
	"math"

	"github.com/wonny/etfmomo/internal/contracts"
)

// Column is one output table column
type Column struct {
	Header string
	Value  func(r *contracts.RankedResult) interface{}
}

// ⭐ SSOT: output column order shared by the workbook, console and API
var Columns = buildColumns()

func buildColumns() []Column {
	cols := []Column{
		{Header: "Rank", Value: func(r *contracts.RankedResult) interface{} { return r.Rank }},
		{Header: "Ticker", Value: func(r *contracts.RankedResult) interface{} { return r.Ticker }},
		{Header: "Close", Value: func(r *contracts.RankedResult) interface{} { return cell(r.Close) }},
		{Header: "dma200d", Value: func(r *contracts.RankedResult) interface{} { return cell(r.DMA200) }},
	}

	for _, h := range contracts.ScoredHorizons {
		cols = append(cols, Column{Header: "roc" + h, Value: horizonValue(h, func(m contracts.HorizonMetrics) float64 { return m.Return })})
	}
	for _, h := range contracts.ScoredHorizons {
		cols = append(cols, Column{Header: "vol" + h, Value: horizonValue(h, func(m contracts.HorizonMetrics) float64 { return m.Volatility })})
	}
	for _, h := range contracts.ScoredHorizons {
		cols = append(cols, Column{Header: "sharpe" + h, Value: horizonValue(h, func(m contracts.HorizonMetrics) float64 { return m.Sharpe })})
	}

	return append(cols,
		Column{Header: "avgSharpe", Value: func(r *contracts.RankedResult) interface{} { return cell(r.AvgSharpe) }},
		Column{Header: "volm_cr", Value: func(r *contracts.RankedResult) interface{} { return cell(r.VolumeCr) }},
		Column{Header: "ATH", Value: func(r *contracts.RankedResult) interface{} { return cell(r.ATH) }},
		Column{Header: "AWAY_ATH", Value: func(r *contracts.RankedResult) interface{} { return cell(r.AwayATH) }},
		Column{Header: "final_momentum", Value: func(r *contracts.RankedResult) interface{} { return r.FinalMomentum }},
	)
}

func horizonValue(name string, pick func(contracts.HorizonMetrics) float64) func(*contracts.RankedResult) interface{} {
	return func(r *contracts.RankedResult) interface{} {
		return cell(pick(r.Horizon(name)))
	}
}

// Headers returns the column headers in output order
func Headers() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Header
	}
	return out
}

// ColumnIndex returns the 0-based position of a header, -1 if absent
func ColumnIndex(header string) int {
	for i, c := range Columns {
		if c.Header == header {
			return i
		}
	}
	return -1
}

// Row renders one result in column order. Undefined numbers become nil.
func Row(r *contracts.RankedResult) []interface{} {
	out := make([]interface{}, len(Columns))
	for i, c := range Columns {
		out[i] = c.Value(r)
	}
	return out
}

// FailedColumns maps each failed filter to the column it is judged on
func FailedColumns(c contracts.FilterChecks) []string {
	var out []string
	if !c.Liquidity {
		out = append(out, "volm_cr")
	}
	if !c.Trend {
		out = append(out, "Close")
	}
	if !c.Momentum {
		out = append(out, "roc12M")
	}
	if !c.Drawdown {
		out = append(out, "AWAY_ATH")
	}
	return out
}

// cell returns nil for NaN/±Inf so the value renders as a blank cell
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
