package yahoo

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
)

// chartResponse is the v8 chart payload. Missing quotes arrive as null.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// bars converts the payload into adjusted daily bars, oldest first.
// Timestamps are shifted by the exchange offset so each bar carries its local
// trading date (UTC midnight). A repeated date keeps the later row.
func (r *chartResponse) bars() ([]contracts.Bar, error) {
	if e := r.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, ErrSymbolNotFound
		}
		return nil, fmt.Errorf("chart api error %s: %s", e.Code, e.Description)
	}
	if len(r.Chart.Result) == 0 {
		return nil, ErrSymbolNotFound
	}

	res := r.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return []contracts.Bar{}, nil
	}
	q := res.Indicators.Quote[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	byDate := make(map[time.Time]contracts.Bar, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil || *closePx <= 0 {
			continue // holiday or suspended row
		}

		factor := 1.0
		if a := at(adj, i); a != nil && *a > 0 {
			factor = *a / *closePx
		}

		bar := contracts.Bar{
			Date:   tradeDate(ts, res.Meta.GMTOffset),
			Close:  *closePx * factor,
			Open:   valueOr(at(q.Open, i), *closePx) * factor,
			High:   valueOr(at(q.High, i), *closePx) * factor,
			Low:    valueOr(at(q.Low, i), *closePx) * factor,
			Volume: valueOr(at(q.Volume, i), 0),
		}
		byDate[bar.Date] = bar
	}

	bars := make([]contracts.Bar, 0, len(byDate))
	for _, b := range byDate {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func tradeDate(ts, gmtOffset int64) time.Time {
	t := time.Unix(ts+gmtOffset, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func at(xs []*float64, i int) *float64 {
	if i < 0 || i >= len(xs) {
		return nil
	}
	return xs[i]
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
