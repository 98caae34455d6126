package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/wonny/etfmomo/internal/contracts"
)

const rule = "═══════════════════════════════════════════════════════════"

// WriteConsole prints both views as aligned text tables.
// limit caps the unfiltered view (0 = all rows).
func WriteConsole(w io.Writer, report *contracts.RankingReport, limit int) error {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s  %s  lookback %s\n", report.Universe, report.Method, report.LookbackDate.Format("2006-01-02"))
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w, "Filters applied:")
	for _, line := range report.Thresholds.Describe() {
		fmt.Fprintf(w, "  - %s\n", line)
	}
	fmt.Fprintln(w)

	all := report.All
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	fmt.Fprintf(w, "%s (%d)\n", SheetUnfiltered, len(report.All))
	if err := writeTable(w, all); err != nil {
		return err
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s (%d)\n", SheetFiltered, len(report.Filtered))
	if err := writeTable(w, report.Filtered); err != nil {
		return err
	}

	if len(report.FilterCounts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failing per filter:")
		for _, name := range []string{"liquidity", "trend", "momentum", "drawdown"} {
			fmt.Fprintf(w, "  %-10s %d\n", name, report.FilterCounts[name])
		}
	}

	if len(report.Failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Failed downloads (%d):\n", len(report.Failed))
		for _, f := range report.Failed {
			fmt.Fprintf(w, "  %s: %s\n", f.Symbol, f.Reason)
		}
	}

	fmt.Fprintf(w, "\nTotal Filtered ETF:  %d\n", len(report.Filtered))
	return nil
}

func writeTable(w io.Writer, results []contracts.RankedResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(Headers(), "\t")+"\t")

	for i := range results {
		row := Row(&results[i])
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = display(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}
