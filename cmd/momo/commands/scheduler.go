package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/etfmomo/internal/api"
	"github.com/wonny/etfmomo/internal/scheduler"
	"github.com/wonny/etfmomo/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Start the scheduler or manage its jobs.

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job now
  status  - show job schedule and last results

Example:
  go run ./cmd/momo scheduler start
  go run ./cmd/momo scheduler start --api
  go run ./cmd/momo scheduler run daily_ranking`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Start the scheduler and schedule every registered job.

Registered jobs:
- daily_ranking: RANKING_SCHEDULE (default weekdays 16:30 IST)
- price_sync: SYNC_SCHEDULE (default weekdays 16:00 IST, needs DATABASE_URL)

With --api the ranking API is served from the same process and
scheduled reports are visible at /api/rankings/latest.

Stop with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job schedule and status",
		RunE:  showStatus,
	}
)

var (
	schedulerWithAPI bool
	schedulerSource  string
	schedulerChart   bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)

	schedulerCmd.PersistentFlags().StringVar(&schedulerSource, "source", sourceYahoo, "price source yahoo|db")
	schedulerCmd.PersistentFlags().BoolVar(&schedulerChart, "chart", false, "also write the PNG chart")
	schedulerStartCmd.Flags().BoolVar(&schedulerWithAPI, "api", false, "serve the ranking API alongside the scheduler")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("=== ETF Momentum Scheduler ===")
	fmt.Println()

	store := api.NewReportStore(0)
	sched, err := a.initScheduler(ctx, store)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.GetAllJobs())

	errCh := make(chan error, 1)
	if schedulerWithAPI {
		server, err := a.apiServer(ctx, schedulerSource, store)
		if err != nil {
			sched.Stop()
			return err
		}
		fmt.Printf("\n✅ API server listening on :%s\n", a.cfg.Port)
		go func() { errCh <- server.Run(ctx) }()
	}

	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return err
}

func listJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.initScheduler(ctx, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	PrintList(sched.GetAllJobs())
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.initScheduler(ctx, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunJobSync(ctx, jobName)
	if err != nil {
		return err
	}

	PrintKeyValue("Duration", result.Duration.Round(time.Millisecond).String(), 9)
	PrintKeyValue("Attempts", fmt.Sprintf("%d", result.Attempts), 9)
	if result.Skipped {
		PrintWarning("Previous run still in progress, skipped")
		return nil
	}
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess("Job completed")
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.initScheduler(ctx, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	// entries only get a next run time once cron is running
	sched.Start()
	defer sched.Stop()

	stats := sched.GetJobStats()
	widths := []int{16, 44, 20}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	for _, name := range sched.GetAllJobs() {
		s := stats[name]
		next := "-"
		if s.NextRun != nil && !s.NextRun.IsZero() {
			next = s.NextRun.Format("2006-01-02 15:04 MST")
		}
		PrintTableRow([]string{name, s.Schedule, next}, widths)
	}
	return nil
}

// initScheduler registers the ranking job and, with a database, the price sync job
func (a *app) initScheduler(ctx context.Context, store *api.ReportStore) (*scheduler.Scheduler, error) {
	loc, err := time.LoadLocation(a.strategy.Meta.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	method, err := a.strategy.Method()
	if err != nil {
		return nil, err
	}

	engine, err := a.engine(ctx, schedulerSource, a.strategy.Ranking.Diagnostics)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(a.log, scheduler.WithRetry(2, 5*time.Minute))

	var publisher jobs.Publisher
	if store != nil {
		publisher = store
	}
	ranking := jobs.NewRankingJob(engine, publisher, jobs.RankingJobConfig{
		Schedule:  a.cfg.RankingSchedule,
		OutputDir: a.cfg.OutputDir,
		Method:    method,
		Universe:  a.cfg.Universe.ID,
		Chart:     schedulerChart,
		Location:  loc,
	}, a.log)
	if err := sched.AddJob(ranking); err != nil {
		return nil, err
	}

	if a.cfg.Database.Enabled() {
		syncer, err := a.syncer(ctx)
		if err != nil {
			return nil, err
		}
		sync := jobs.NewPriceSyncJob(
			a.universeLoader(),
			syncer,
			a.cfg.Universe.ID,
			a.strategy.Data.Benchmark,
			a.strategy.Epoch(),
			a.cfg.SyncSchedule,
			a.log,
		)
		if err := sched.AddJob(sync); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
