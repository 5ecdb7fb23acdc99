package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"listing_collector/internal/api"
	"listing_collector/internal/collector"
	"listing_collector/internal/config"
	"listing_collector/internal/joblog"
	"listing_collector/internal/metrics"
	"listing_collector/internal/publisher"
	"listing_collector/internal/scheduler"
	"listing_collector/internal/service"
	"listing_collector/internal/source/snapshot"
	"listing_collector/internal/storage/postgres"
	"listing_collector/internal/storage/sqlite"
)

const jobDrainTimeout = 30 * time.Second

// app owns every long-lived dependency of a command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	db     *sqlx.DB
	rabbit *publisher.RabbitMQ
	plans  *postgres.PlanStore
	ingest *service.IngestService

	jobsDB     *sqlite.DB
	redis      *redis.Client
	logs       joblog.Sink
	jobs       *sqlite.JobStore
	supervisor *collector.Supervisor
}

// newApp connects to Postgres and builds the ingestion pipeline.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	logger.Info("connected to database")

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbit, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.rabbit = rabbit
		pub = rabbit
	}

	txManager := postgres.NewTransactionManager(db)
	rawStore := postgres.NewRawListingStore(db)
	a.plans = postgres.NewPlanStore(db, txManager)

	reconciler := service.NewReconciler(
		rawStore,
		postgres.NewListingStore(db),
		postgres.NewDailyStatStore(db),
		postgres.NewPriceChangeStore(db),
		txManager,
		logger,
		cfg.Reconcile,
	)

	loader := snapshot.NewLoader(snapshot.Config{
		Timeout:        cfg.Snapshot.Timeout,
		MaxAttempts:    cfg.Snapshot.Retry.MaxAttempts,
		InitialBackoff: cfg.Snapshot.Retry.InitialBackoff,
		MaxBackoff:     cfg.Snapshot.Retry.MaxBackoff,
	}, logger)

	a.ingest = service.NewIngestService(loader, rawStore, reconciler, txManager, pub, a.metrics, logger, cfg.Reconcile)
	return a, nil
}

// startCollector opens the job database and log sink and builds the supervisor.
func (a *app) startCollector() error {
	jobsDB, err := sqlite.Open(a.cfg.Jobs.Path, a.logger)
	if err != nil {
		return fmt.Errorf("open job database: %w", err)
	}
	a.jobsDB = jobsDB

	switch a.cfg.Logs.Backend {
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Logs.Redis.Addr,
			Password: a.cfg.Logs.Redis.Password,
			DB:       a.cfg.Logs.Redis.DB,
		})
		a.logs = joblog.NewRedisSink(a.redis, a.cfg.Logs.Redis.TTL)
	default:
		sink, err := joblog.NewFileSink(a.cfg.Logs.Dir)
		if err != nil {
			return err
		}
		a.logs = sink
	}

	a.jobs = sqlite.NewJobStore(jobsDB, a.cfg.Jobs.Retention, a.logs, a.logger)
	n, err := a.jobs.FailInterrupted(context.Background(), "collector restarted before the job finished")
	if err != nil {
		return err
	}
	if n > 0 {
		a.logger.Warn("marked interrupted jobs as failed", "count", n)
	}

	worker := &collector.ProcessWorker{
		Command: a.cfg.Collector.Command,
		Args:    a.cfg.Collector.Args,
		Dir:     a.cfg.Collector.Dir,
	}
	restricted := a.cfg.Collector.IsRestricted()
	if restricted {
		a.logger.Warn("restricted environment, collector jobs will be rejected")
	}

	a.supervisor = collector.NewSupervisor(a.jobs, a.logs, worker, a.ingest, a.metrics, a.logger, collector.SupervisorConfig{
		OutputDir:  a.cfg.Collector.OutputDir,
		Restricted: restricted,
	})
	return nil
}

func (a *app) scheduler() *scheduler.Scheduler {
	return scheduler.NewScheduler(a.plans, a.supervisor, a.metrics, a.logger, scheduler.Config{
		Interval: a.cfg.Scheduler.Interval,
		Catalog:  a.cfg.Catalog,
		Defaults: a.cfg.Collector.Defaults,
	})
}

func (a *app) healthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"postgres": a.db.PingContext,
	}
	if a.jobsDB != nil {
		checks["jobs"] = a.jobsDB.PingContext
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

// drainJobs waits for running jobs to finish ingesting, up to jobDrainTimeout.
func (a *app) drainJobs() {
	if a.supervisor == nil {
		return
	}
	a.drain("running jobs", a.supervisor.Wait)
}

func (a *app) drain(what string, wait func()) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(jobDrainTimeout):
		a.logger.Warn("shutdown did not wait for all work", "pending", what)
	}
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.jobsDB != nil {
		_ = a.jobsDB.Close()
	}
	if a.rabbit != nil {
		_ = a.rabbit.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
