package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ryu111/stock-health-bot-sub001/internal/scheduler"
	"github.com/ryu111/stock-health-bot-sub001/internal/scheduler/jobs"
	"github.com/ryu111/stock-health-bot-sub001/internal/store"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Scheduled background jobs",
	Long: `Runs the scheduled jobs:

  watchlist_evaluation  - evaluates and ranks $WATCHLIST on $WATCHLIST_SCHEDULE
  evaluation_retention  - purges results older than $RETENTION_DAYS on $PURGE_SCHEDULE

A job whose schedule is empty is not registered.

Example:
  WATCHLIST_SCHEDULE="0 18 * * 1-5" go run ./cmd/healthbot worker start
  go run ./cmd/healthbot worker run watchlist_evaluation`,
}

var (
	workerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler and blocks until Ctrl+C.
In-flight jobs are cancelled and awaited on shutdown.`,
		RunE: runWorkerStart,
	}

	workerRunCmd = &cobra.Command{
		Use:   "run JOB",
		Short: "Run one job now and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE:  runWorkerJob,
	}

	workerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  runWorkerList,
	}
)

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(workerStartCmd)
	workerCmd.AddCommand(workerRunCmd)
	workerCmd.AddCommand(workerListCmd)
}

// newScheduler registers every job that has a schedule
// With force set, unscheduled jobs are registered too so they can be run by hand.
func newScheduler(a *app, force bool) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)
	sched.SetObserver(a.metrics)

	sc := a.cfg.Scheduler

	watchSchedule := sc.WatchlistSchedule
	if watchSchedule == "" && force {
		watchSchedule = "@daily"
	}
	if watchSchedule != "" {
		job := jobs.NewWatchlistJob(a.pipeline, a.provider, a.repo, jobs.WatchlistConfig{
			Schedule:    watchSchedule,
			Symbols:     sc.Watchlist,
			Industry:    sc.Industry,
			Concurrency: sc.FetchConcurrency,
		}, a.log)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	purgeSchedule := sc.PurgeSchedule
	if purgeSchedule == "" && force {
		purgeSchedule = "@daily"
	}
	if purgeSchedule != "" {
		job := jobs.NewRetentionJob(a.repo, purgeSchedule, sc.Retention, a.log)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func runWorkerStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{store: true})
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := newScheduler(a, false)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	if len(sched.GetAllJobs()) == 0 {
		return fmt.Errorf("no job scheduled: set WATCHLIST_SCHEDULE or PURGE_SCHEDULE")
	}

	sched.Start()
	<-ctx.Done()
	sched.Stop()
	return nil
}

func runWorkerJob(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, oneShot(true))
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := newScheduler(a, true)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	if err := sched.RunNow(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s completed\n", args[0])
	return nil
}

func runWorkerList(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background(), oneShot(false))
	if err != nil {
		return err
	}
	defer a.close()

	// listing never runs a job
	a.repo = store.NewMemoryRepository()

	sched, err := newScheduler(a, false)
	if err != nil {
		return err
	}

	stats := sched.GetJobStats()
	tw := newTable(cmd.OutOrStdout(), "Jobs")
	tw.AppendHeader(table.Row{"Job", "Schedule"})
	for _, name := range sched.GetAllJobs() {
		tw.AppendRow(table.Row{name, stats[name].Schedule})
	}
	tw.Render()
	return nil
}
