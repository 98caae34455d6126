package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/etfmomo/internal/contracts"
)

// Sheet names
const (
	SheetUnfiltered  = "Unfiltered ETF"
	SheetFiltered    = "Filtered ETF"
	SheetDiagnostics = "Diagnostics"
)

const (
	headerFill  = "00008B"
	failingFill = "d6b4fc"
)

// FileName returns the workbook name for a run
// e.g. 2024-06-28_NSEETF_avgSharpe_lookback.xlsx
func FileName(report *contracts.RankingReport) string {
	return fmt.Sprintf("%s_%s_%s_lookback.xlsx",
		report.LookbackDate.Format("2006-01-02"), report.Universe, report.Method)
}

// WriteWorkbook writes the report workbook into dir and returns its path
func WriteWorkbook(dir string, report *contracts.RankingReport) (string, error) {
	f, err := BuildWorkbook(report)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, FileName(report))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

// BuildWorkbook renders the report into an in-memory workbook
func BuildWorkbook(report *contracts.RankingReport) (*excelize.File, error) {
	f := excelize.NewFile()

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SheetUnfiltered); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeUnfiltered(f, st, report.All); err != nil {
		f.Close()
		return nil, fmt.Errorf("unfiltered sheet: %w", err)
	}

	if _, err := f.NewSheet(SheetFiltered); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeFiltered(f, st, report.Filtered); err != nil {
		f.Close()
		return nil, fmt.Errorf("filtered sheet: %w", err)
	}

	if hasDiagnostics(report.All) {
		if _, err := f.NewSheet(SheetDiagnostics); err != nil {
			f.Close()
			return nil, err
		}
		if err := writeDiagnostics(f, st, report.All); err != nil {
			f.Close()
			return nil, fmt.Errorf("diagnostics sheet: %w", err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

type styles struct {
	header  int
	body    int
	failing int
	bold    int
}

func newStyles(f *excelize.File) (*styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	var st styles
	var err error

	if st.header, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: center,
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	}); err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	if st.body, err = f.NewStyle(&excelize.Style{Border: border, Alignment: center}); err != nil {
		return nil, fmt.Errorf("body style: %w", err)
	}

	if st.failing, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: center,
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{failingFill}},
	}); err != nil {
		return nil, fmt.Errorf("failing style: %w", err)
	}

	if st.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, fmt.Errorf("bold style: %w", err)
	}

	return &st, nil
}

// sheetWriter accumulates the widest rendered value per column
type sheetWriter struct {
	f      *excelize.File
	st     *styles
	sheet  string
	widths []int
}

func newSheetWriter(f *excelize.File, st *styles, sheet string, headers []string) (*sheetWriter, error) {
	w := &sheetWriter{f: f, st: st, sheet: sheet, widths: make([]int, len(headers))}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := w.writeRow(1, row, st.header); err != nil {
		return nil, err
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}
	return w, nil
}

func (w *sheetWriter) writeRow(rowNum int, values []interface{}, style int) error {
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(w.sheet, start, &values); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(values), rowNum)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(w.sheet, start, end, style); err != nil {
		return err
	}

	for i, v := range values {
		if i < len(w.widths) {
			if n := utf8.RuneCountInString(display(v)); n > w.widths[i] {
				w.widths[i] = n
			}
		}
	}
	return nil
}

func (w *sheetWriter) styleCell(col, rowNum, style int) error {
	name, err := excelize.CoordinatesToCellName(col+1, rowNum)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(w.sheet, name, name, style)
}

// autoWidth sets each column to its longest value + 2
func (w *sheetWriter) autoWidth() error {
	for i, n := range w.widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(w.sheet, name, name, float64(n+2)); err != nil {
			return err
		}
	}
	return nil
}

func writeUnfiltered(f *excelize.File, st *styles, results []contracts.RankedResult) error {
	w, err := newSheetWriter(f, st, SheetUnfiltered, Headers())
	if err != nil {
		return err
	}

	athCol := ColumnIndex("ATH")
	tickerCol := ColumnIndex("Ticker")

	for i := range results {
		r := &results[i]
		rowNum := i + 2

		row := Row(r)
		row[athCol] = roundATH(r.ATH)
		if err := w.writeRow(rowNum, row, st.body); err != nil {
			return err
		}

		failed := FailedColumns(r.Checks)
		for _, header := range failed {
			if err := w.styleCell(ColumnIndex(header), rowNum, st.failing); err != nil {
				return err
			}
		}
		if len(failed) > 0 {
			if err := w.styleCell(tickerCol, rowNum, st.failing); err != nil {
				return err
			}
		}
	}

	return w.autoWidth()
}

func writeFiltered(f *excelize.File, st *styles, results []contracts.RankedResult) error {
	w, err := newSheetWriter(f, st, SheetFiltered, Headers())
	if err != nil {
		return err
	}

	athCol := ColumnIndex("ATH")
	awayCol := ColumnIndex("AWAY_ATH")

	for i := range results {
		r := &results[i]
		row := Row(r)
		row[athCol] = roundATH(r.ATH)
		row[awayCol] = percent(r.AwayATH)
		if err := w.writeRow(i+2, row, st.body); err != nil {
			return err
		}
	}

	// blank row, then the footer
	summaryRow := len(results) + 3
	footer := []struct {
		row  int
		text string
	}{
		{summaryRow, "Summary"},
		{summaryRow + 1, fmt.Sprintf("Total Filtered ETF:  %d", len(results))},
	}
	for _, line := range footer {
		name, _ := excelize.CoordinatesToCellName(1, line.row)
		if err := f.SetCellValue(SheetFiltered, name, line.text); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetFiltered, name, name, st.bold); err != nil {
			return err
		}
	}

	return w.autoWidth()
}

var diagnosticHeaders = []string{
	"Rank", "Ticker", "beta", "sortino", "calmar", "max_drawdown", "fip",
	"vol_ratio", "roc4W", "roc1M", "vol1M", "sharpe1M",
}

func writeDiagnostics(f *excelize.File, st *styles, results []contracts.RankedResult) error {
	w, err := newSheetWriter(f, st, SheetDiagnostics, diagnosticHeaders)
	if err != nil {
		return err
	}

	rowNum := 2
	for i := range results {
		r := &results[i]
		d := r.Diagnostics
		if d == nil {
			continue
		}
		m1 := r.Horizon("1M")
		row := []interface{}{
			r.Rank, r.Ticker,
			cell(d.Beta), cell(d.Sortino), cell(d.Calmar), cell(d.MaxDrawdown), cell(d.FIP),
			cell(d.VolatilityRatio), cell(d.ROC4W),
			cell(m1.Return), cell(m1.Volatility), cell(m1.Sharpe),
		}
		if err := w.writeRow(rowNum, row, st.body); err != nil {
			return err
		}
		rowNum++
	}

	return w.autoWidth()
}

func hasDiagnostics(results []contracts.RankedResult) bool {
	for i := range results {
		if results[i].Diagnostics != nil {
			return true
		}
	}
	return false
}

func roundATH(v float64) interface{} {
	if c := cell(v); c == nil {
		return nil
	}
	return int64(math.RoundToEven(v))
}

func percent(v float64) interface{} {
	if c := cell(v); c == nil {
		return nil
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// display renders a cell value the way it is measured for column width
func display(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}
