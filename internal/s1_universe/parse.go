package s1_universe

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// symbolColumn is the header naming the ticker column
const symbolColumn = "Symbol"

// ParseCSV reads the Symbol column of a CSV listing, in file order
func ParseCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := indexOf(header, symbolColumn)
	if col < 0 {
		return nil, fmt.Errorf("no %q column in header %v", symbolColumn, header)
	}

	var symbols []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col < len(rec) {
			symbols = append(symbols, rec[col])
		}
	}
	return symbols, nil
}

// ParseHTMLTable reads the Symbol column of the first table that has one
func ParseHTMLTable(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var symbols []string
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		var headers []string
		table.Find("tr").First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})
		col := indexOf(headers, symbolColumn)
		if col < 0 {
			return true
		}

		found = true
		table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if col < cells.Length() {
				symbols = append(symbols, strings.TrimSpace(cells.Eq(col).Text()))
			}
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("no table with a %q column", symbolColumn)
	}
	return symbols, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// normalize trims, uppercases, drops blanks and duplicates, and appends suffix
func normalize(raw []string, suffix string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if suffix != "" && !strings.HasSuffix(s, strings.ToUpper(suffix)) {
			s += suffix
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
