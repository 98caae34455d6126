package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/etfmomo/internal/api"
	"github.com/wonny/etfmomo/internal/api/handlers"
	"github.com/wonny/etfmomo/internal/contracts"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the ranking API server",
	Long: `Serve rankings over HTTP.

Endpoints:
  GET  /health               - Health check
  GET  /api/rankings         - Ranking report (?date=&method=&universe=)
  GET  /api/rankings/latest  - Most recent report
  GET  /api/filters          - Active filter thresholds
  GET  /ws/progress          - Download progress stream (WebSocket)
  GET  /metrics              - Prometheus metrics (METRICS_ENABLED=true)

Example:
  go run ./cmd/momo api
  go run ./cmd/momo api --port 8080 --source db`,
	RunE: runAPIServer,
}

var (
	apiPort   string
	apiSource string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT)")
	apiCmd.Flags().StringVar(&apiSource, "source", sourceYahoo, "price source yahoo|db")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	server, err := a.apiServer(ctx, apiSource, api.NewReportStore(0))
	if err != nil {
		return err
	}

	fmt.Printf("✅ API server listening on :%s (Ctrl+C to stop)\n", a.cfg.Port)
	return server.Run(ctx)
}

// apiServer wires the ranking handler, progress hub and router over a shared store
func (a *app) apiServer(ctx context.Context, source string, store *api.ReportStore) (*api.Server, error) {
	engine, err := a.engine(ctx, source, a.strategy.Ranking.Diagnostics)
	if err != nil {
		return nil, err
	}

	method, err := a.strategy.Method()
	if err != nil {
		return nil, err
	}

	hub := api.NewProgressHub(a.log)
	rankings := handlers.NewRankingHandler(
		engine,
		store,
		hub.ProgressFunc(),
		a.strategy.Thresholds(),
		contracts.RunConfig{Method: method, Universe: a.cfg.Universe.ID},
		a.log,
	)

	router := api.NewRouter(rankings, hub, a.metrics, a.log)
	return api.New(a.cfg, a.log, router, hub), nil
}
