package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/internal/report"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank the universe for a lookback date",
	Long: `Run the full ranking pipeline for one lookback date.

This command:
- loads the universe symbol list
- downloads daily history from the epoch through the lookback date
- computes 12/9/6/3/1M horizon metrics
- ranks by the chosen composite score and applies the four filters
- writes {date}_{universe}_{method}_lookback.xlsx (and a PNG chart with --chart)

Example:
  go run ./cmd/momo rank
  go run ./cmd/momo rank --date 2024-06-28 --method sharpe3M
  go run ./cmd/momo rank --source db --chart --out ./reports`,
	RunE: runRank,
}

var (
	rankDate        string
	rankMethod      string
	rankUniverse    string
	rankSource      string
	rankOut         string
	rankChart       bool
	rankDiagnostics bool
	rankTop         int
	rankNoWorkbook  bool
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVar(&rankDate, "date", "", "lookback date YYYY-MM-DD (default today)")
	rankCmd.Flags().StringVar(&rankMethod, "method", "", "ranking method sharpe3M|avgSharpe (default from strategy)")
	rankCmd.Flags().StringVar(&rankUniverse, "universe", "", "universe id (default UNIVERSE)")
	rankCmd.Flags().StringVar(&rankSource, "source", sourceYahoo, "price source yahoo|db")
	rankCmd.Flags().StringVar(&rankOut, "out", "", "output directory (default OUTPUT_DIR)")
	rankCmd.Flags().BoolVar(&rankChart, "chart", false, "also write a PNG bar chart of filtered scores")
	rankCmd.Flags().BoolVar(&rankDiagnostics, "diagnostics", false, "compute beta, sortino, calmar and the other diagnostics")
	rankCmd.Flags().IntVar(&rankTop, "top", 30, "unfiltered rows printed to the console (0 = all)")
	rankCmd.Flags().BoolVar(&rankNoWorkbook, "no-workbook", false, "print only, skip the xlsx")
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runCfg, err := a.runConfig(rankDate, rankMethod, rankUniverse)
	if err != nil {
		return err
	}

	diagnostics := a.strategy.Ranking.Diagnostics
	if cmd.Flags().Changed("diagnostics") {
		diagnostics = rankDiagnostics
	}

	engine, err := a.engine(ctx, rankSource, diagnostics)
	if err != nil {
		return err
	}

	PrintDoubleSeparator()
	fmt.Printf("  ETF Momentum Ranking\n")
	PrintSeparator()
	PrintKeyValue("Lookback", runCfg.LookbackDate.Format("2006-01-02"), 10)
	PrintKeyValue("Method", string(runCfg.Method), 10)
	PrintKeyValue("Universe", runCfg.Universe, 10)
	PrintKeyValue("Source", rankSource, 10)
	PrintSeparator()

	start := time.Now()
	rep, err := engine.Run(ctx, runCfg, func(p contracts.Progress) {
		PrintProgress(p.Stage, fmt.Sprintf("Downloaded %.0f%%", p.Percent), p.Done, p.Total)
	})
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	fmt.Println()
	if err := report.WriteConsole(os.Stdout, rep, rankTop); err != nil {
		return err
	}

	outDir := rankOut
	if outDir == "" {
		outDir = a.cfg.OutputDir
	}

	if !rankNoWorkbook {
		path, err := report.WriteWorkbook(outDir, rep)
		if err != nil {
			return err
		}
		fmt.Println()
		PrintSuccess("Workbook: " + path)
	}

	if rankChart {
		if len(rep.Filtered) == 0 {
			PrintWarning("No instrument passed the filters, chart skipped")
		} else {
			path, err := report.WriteScoreChart(outDir, rep)
			if err != nil {
				return err
			}
			PrintSuccess("Chart: " + path)
		}
	}

	fmt.Printf("\n✅ Ranking completed in %.2fs\n", time.Since(start).Seconds())
	return nil
}

// runConfig resolves flag values against the strategy and environment defaults
func (a *app) runConfig(date, method, universe string) (contracts.RunConfig, error) {
	cfg := contracts.RunConfig{Universe: strings.ToUpper(universe)}
	if cfg.Universe == "" {
		cfg.Universe = a.cfg.Universe.ID
	}

	if date == "" {
		now := time.Now()
		cfg.LookbackDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return cfg, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", date)
		}
		cfg.LookbackDate = d
	}

	var err error
	if method == "" {
		cfg.Method, err = a.strategy.Method()
	} else {
		cfg.Method, err = contracts.ParseRankingMethod(method)
	}
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}
