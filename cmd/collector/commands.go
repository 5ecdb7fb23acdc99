package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"listing_collector/internal/api"
	"listing_collector/internal/schedule"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cobra.Command {
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.startCollector(); err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			handler := api.NewHandler(a.supervisor, a.jobs, a.logs, a.plans, cfg.Catalog, logger)
			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           api.NewRouter(handler, a.registry, a.healthChecks(), logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			sched := a.scheduler()
			if withScheduler {
				go func() {
					if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("scheduler error", "error", err)
					}
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting admin api", "addr", cfg.HTTP.Addr, "scheduler", withScheduler)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve http: %w", err)
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http shutdown failed", "error", err)
			}
			a.drainJobs()
			a.drain("scheduled runs", sched.Wait)
			logger.Info("admin api stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withScheduler, "scheduler", false, "also run due plans on the configured interval")
	return cmd
}

func runDueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run-due",
		Short: "Run every plan that is due now and wait for its jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.startCollector(); err != nil {
				return err
			}

			n, err := a.scheduler().RunDue(ctx)
			if err != nil {
				return err
			}
			a.drainJobs()
			logger.Info("due plans finished", "jobs", n)
			return nil
		},
	}
}

func ingestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <snapshot> [job-id]",
		Short: "Load a snapshot file or URL into canonical storage",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			jobID := "manual-" + uuid.NewString()
			if len(args) > 1 {
				jobID = args[1]
			}

			res, err := a.ingest.Ingest(ctx, jobID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", jobID, res.Message)
			return nil
		},
	}
}

func nextRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next-run <plan-id>",
		Short: "Show a plan's schedule and its next due time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			plan, err := a.plans.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get plan: %w", err)
			}
			summary, err := schedule.Summary(*plan)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "plan:     %s\n", plan.ID)
			fmt.Fprintf(out, "schedule: %s\n", summary)

			next, err := schedule.NextRun(*plan, time.Now())
			switch {
			case errors.Is(err, schedule.ErrNoFurtherRuns):
				fmt.Fprintln(out, "next run: none")
			case err != nil:
				return err
			default:
				loc, _ := schedule.Location(*plan)
				fmt.Fprintf(out, "next run: %s (%s)\n", next.In(loc).Format(time.RFC3339), next.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}
