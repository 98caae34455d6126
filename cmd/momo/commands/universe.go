package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/etfmomo/internal/s1_universe"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "List the symbols of a universe",
	Long: `Resolve a universe id to its symbol list.

Example:
  go run ./cmd/momo universe
  go run ./cmd/momo universe --universe NSEETF --ids`,
	RunE: runUniverse,
}

var (
	universeID   string
	universeIDs  bool
	universeCols int
)

func init() {
	rootCmd.AddCommand(universeCmd)

	universeCmd.Flags().StringVar(&universeID, "universe", "", "universe id (default UNIVERSE)")
	universeCmd.Flags().BoolVar(&universeIDs, "ids", false, "list the registered universe ids only")
	universeCmd.Flags().IntVar(&universeCols, "columns", 4, "tickers per line")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if universeIDs {
		fmt.Println("Registered universes:")
		PrintList(s1_universe.NewRegistry(a.cfg).IDs())
		return nil
	}

	id := strings.ToUpper(universeID)
	if id == "" {
		id = a.cfg.Universe.ID
	}

	u, err := a.universeLoader().Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	PrintDoubleSeparator()
	fmt.Printf("  Universe %s\n", u.ID)
	PrintSeparator()
	PrintKeyValue("Source", u.Source, 8)
	PrintKeyValue("Suffix", u.Suffix, 8)
	PrintKeyValue("Symbols", fmt.Sprintf("%d", u.Count()), 8)
	PrintSeparator()

	cols := universeCols
	if cols < 1 {
		cols = 1
	}
	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 16
	}
	for start := 0; start < len(u.Symbols); start += cols {
		end := min(start+cols, len(u.Symbols))
		row := make([]string, 0, cols)
		for _, s := range u.Symbols[start:end] {
			row = append(row, u.Ticker(s))
		}
		PrintTableRow(row, widths[:len(row)])
	}

	return nil
}
