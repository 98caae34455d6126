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
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Store daily price history in Postgres",
	Long: `Download daily bars from Yahoo and upsert them into price_history.

Each symbol resumes after its newest stored date, so repeated runs
only download the missing tail. Requires DATABASE_URL.

Example:
  go run ./cmd/momo fetch
  go run ./cmd/momo fetch --universe NSEETF --from 2015-01-01`,
	RunE: runFetch,
}

var (
	fetchUniverse string
	fetchFrom     string
	fetchTo       string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchUniverse, "universe", "", "universe id (default UNIVERSE)")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "first date YYYY-MM-DD (default strategy epoch)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "last date YYYY-MM-DD (default today)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	from := a.strategy.Epoch()
	if fetchFrom != "" {
		if from, err = time.Parse("2006-01-02", fetchFrom); err != nil {
			return fmt.Errorf("invalid --from %q (expected YYYY-MM-DD)", fetchFrom)
		}
	}
	to := time.Now().UTC()
	if fetchTo != "" {
		if to, err = time.Parse("2006-01-02", fetchTo); err != nil {
			return fmt.Errorf("invalid --to %q (expected YYYY-MM-DD)", fetchTo)
		}
	}

	id := strings.ToUpper(fetchUniverse)
	if id == "" {
		id = a.cfg.Universe.ID
	}

	u, err := a.universeLoader().Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	symbols := append([]string(nil), u.Symbols...)
	if b := a.strategy.Data.Benchmark; b != "" && !u.Contains(b) {
		symbols = append(symbols, b)
	}

	syncer, err := a.syncer(ctx)
	if err != nil {
		return err
	}

	PrintDoubleSeparator()
	fmt.Printf("  Price history sync\n")
	PrintSeparator()
	PrintKeyValue("Universe", u.ID, 8)
	PrintKeyValue("Period", from.Format("2006-01-02")+" ~ "+to.Format("2006-01-02"), 8)
	PrintKeyValue("Symbols", fmt.Sprintf("%d", len(symbols)), 8)
	PrintSeparator()

	start := time.Now()
	results, err := syncer.Sync(ctx, symbols, from, to)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	saved, failed := 0, 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			PrintError(fmt.Sprintf("%s: %v", r.Symbol, r.Err))
			continue
		}
		saved += r.Saved
		PrintProgress("S0", fmt.Sprintf("%s: %d bars from %s", r.Symbol, r.Saved, r.From.Format("2006-01-02")), i+1, len(results))
	}

	fmt.Println()
	PrintKeyValue("Saved", fmt.Sprintf("%d bars", saved), 8)
	PrintKeyValue("Failed", fmt.Sprintf("%d symbols", failed), 8)
	fmt.Printf("\n✅ Sync completed in %.2fs\n", time.Since(start).Seconds())
	return nil
}
