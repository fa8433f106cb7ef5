package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dl-alexandre/sheetmirror/internal/health"
	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/dl-alexandre/sheetmirror/internal/scheduler"
	syncengine "github.com/dl-alexandre/sheetmirror/internal/sync"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the sheet and mirror changes until interrupted",
	Long: `Run the polling daemon. The first poll seeds the baseline snapshot without
transferring anything; every later poll mirrors the files of rows that changed.

When healthAddr is set, GET /health reports liveness and the history of each job.
When recordsEnabled is set, the records sheet is pushed into the record store on
the same interval.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := currentConfig()
	if err != nil {
		return out.Fail("serve", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx, cfg)
	if err != nil {
		return out.Fail("serve", err)
	}

	jobs := []*scheduler.Scheduler{
		scheduler.New("sync", cfg.PollInterval(), syncJob(engine), logger).RunImmediately(),
	}

	if cfg.RecordsEnabled {
		syncer, store, err := newRecordsSyncer(ctx, cfg)
		if err != nil {
			return out.Fail("serve", err)
		}
		defer store.Close()
		jobs = append(jobs, scheduler.New("records", cfg.PollInterval(), func(ctx context.Context) (string, error) {
			result, err := syncer.Push(ctx)
			if err != nil {
				return "", err
			}
			return result.Summary(), nil
		}, logger).RunImmediately())
	}

	g, gctx := errgroup.WithContext(ctx)
	statuses := make([]health.JobStatus, 0, len(jobs))
	for _, job := range jobs {
		statuses = append(statuses, job)
		g.Go(func() error {
			job.Start(gctx)
			return nil
		})
	}

	if cfg.HealthAddr != "" {
		server := health.New(cfg.HealthAddr, logger, statuses...)
		g.Go(func() error {
			return server.Start(gctx)
		})
	}

	logger.Info("Daemon started",
		logging.F("spreadsheet_id", cfg.SpreadsheetID),
		logging.F("interval", cfg.PollInterval().String()),
		logging.F("health_addr", cfg.HealthAddr),
	)
	if err := g.Wait(); err != nil {
		return out.Fail("serve", err)
	}
	logger.Info("Daemon stopped")
	return nil
}

// syncJob adapts an engine run to a scheduled job
func syncJob(engine *syncengine.Engine) scheduler.Job {
	return func(ctx context.Context) (string, error) {
		result, err := engine.Run(ctx)
		if errors.Is(err, syncengine.ErrRunInProgress) {
			return "", scheduler.ErrSkipped
		}
		if err != nil {
			return "", err
		}
		return result.Summary(), nil
	}
}
