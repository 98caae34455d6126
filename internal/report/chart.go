package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/wonny/etfmomo/internal/contracts"
)

const (
	chartBarWidth   = 28
	chartBarSpacing = 12
)

// RenderScoreChart renders a PNG bar chart of the filtered composite scores.
// Bars follow the filtered order. Returns raw PNG bytes.
func RenderScoreChart(report *contracts.RankingReport) ([]byte, error) {
	if len(report.Filtered) == 0 {
		return nil, fmt.Errorf("no filtered instruments to plot")
	}

	bars := make([]chart.Value, len(report.Filtered))
	lo, hi := 0.0, 0.0
	for i := range report.Filtered {
		r := &report.Filtered[i]
		v := r.Score(report.Method)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		bars[i] = chart.Value{
			Label: r.Ticker,
			Value: v,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("2563eb"), // blue-600
				StrokeColor: drawing.ColorFromHex("1e40af"),
				StrokeWidth: 1,
			},
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	width := len(bars)*(chartBarWidth+chartBarSpacing) + 120
	if width < 600 {
		width = 600
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("%s %s (%s)", report.Universe, report.Method, report.LookbackDate.Format("2006-01-02")),
		Width:      width,
		Height:     480,
		BarWidth:   chartBarWidth,
		BarSpacing: chartBarSpacing,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.Style{FontSize: 7},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// ChartFileName mirrors the workbook name with a .png extension
func ChartFileName(report *contracts.RankingReport) string {
	return strings.TrimSuffix(FileName(report), ".xlsx") + ".png"
}

// WriteScoreChart renders the chart into dir and returns its path
func WriteScoreChart(dir string, report *contracts.RankingReport) (string, error) {
	png, err := RenderScoreChart(report)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, ChartFileName(report))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}
	return path, nil
}
