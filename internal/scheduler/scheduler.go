package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"listing_collector/internal/config"
	"listing_collector/internal/domain"
	"listing_collector/internal/metrics"
	"listing_collector/internal/schedule"
)

const triggeredBySchedule = "schedule"

// PlanStore is the subset of plan persistence the scheduler needs.
type PlanStore interface {
	DuePlans(ctx context.Context, now time.Time) ([]domain.Plan, error)
	InsertRun(ctx context.Context, run domain.PlanRun) (int64, error)
	FinishRun(ctx context.Context, run domain.PlanRun) error
	UpdateSchedule(ctx context.Context, id string, lastRunAt, nextRunAt *time.Time) error
	Disable(ctx context.Context, id string) error
}

// JobRunner starts collection jobs and waits for them to settle.
type JobRunner interface {
	StartJob(ctx context.Context, params domain.JobParams) (*domain.Job, error)
	Await(ctx context.Context, jobID string) (*domain.Job, error)
}

type Config struct {
	Interval time.Duration
	Catalog  config.CatalogConfig
	Defaults config.JobDefaults
}

type Scheduler struct {
	plans   PlanStore
	jobs    JobRunner
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time

	// runs awaiting their job, across ticks
	pending errgroup.Group
}

func NewScheduler(plans PlanStore, jobs JobRunner, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		plans:   plans,
		jobs:    jobs,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start dispatches due plans immediately and then on every tick until ctx is
// done. Ticks never wait for the jobs they started; their runs are recorded
// in the background and Wait blocks until all of them are.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.cfg.Interval)

	// jobs outlive the loop, so their runs must still be recorded after shutdown
	recordCtx := context.WithoutCancel(ctx)
	s.tick(ctx, recordCtx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, recordCtx)
		}
	}
}

func (s *Scheduler) tick(ctx, recordCtx context.Context) {
	if _, err := s.dispatchDue(ctx, recordCtx); err != nil {
		s.logger.Error("plan run failed", "error", err)
	}
}

// Wait blocks until every dispatched run has been recorded.
func (s *Scheduler) Wait() {
	_ = s.pending.Wait()
}

type dispatched struct {
	plan   domain.Plan
	runID  int64
	jobID  string
	logger *slog.Logger
}

// RunDue starts one job per due plan, reschedules each plan and waits for the
// started jobs to finish so their runs can be recorded. It returns the number
// of jobs started.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	started, err := s.dispatchDue(ctx, ctx)
	s.Wait()
	return started, err
}

func (s *Scheduler) dispatchDue(ctx, recordCtx context.Context) (int, error) {
	now := s.now().UTC()

	plans, err := s.plans.DuePlans(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("load due plans: %w", err)
	}
	if len(plans) == 0 {
		s.logger.Debug("no plans due")
		return 0, nil
	}
	s.logger.Info("running due plans", "count", len(plans))

	started := 0
	for _, p := range plans {
		d := s.dispatch(ctx, p, now)
		if d == nil {
			continue
		}
		started++
		s.pending.Go(func() error {
			s.record(recordCtx, d)
			return nil
		})
	}
	return started, nil
}

func (s *Scheduler) dispatch(ctx context.Context, p domain.Plan, now time.Time) *dispatched {
	logger := s.logger.With("plan_id", p.ID)

	next, err := schedule.NextRun(p, now)
	once := errors.Is(err, schedule.ErrNoFurtherRuns)
	if err != nil && !once {
		logger.Error("cannot compute next run, plan left untouched", "error", err)
		s.metrics.PlanRun("invalid")
		return nil
	}

	cats, unknown := ResolveCategories(p, s.cfg.Catalog.Categories)
	if len(unknown) > 0 {
		logger.Warn("plan references unknown categories", "category_ids", unknown)
	}
	if len(cats) == 0 {
		logger.Warn("plan has no categories, skipping run")
		s.reschedule(ctx, logger, p.ID, nil, next, once)
		s.metrics.PlanRun("skipped")
		return nil
	}

	job, err := s.jobs.StartJob(ctx, s.params(p, cats))
	if job == nil {
		logger.Error("failed to create job", "error", err)
		s.reschedule(ctx, logger, p.ID, nil, next, once)
		s.metrics.PlanRun(string(domain.JobError))
		return nil
	}
	if err != nil {
		logger.Warn("job failed to start", "job_id", job.ID, "error", err)
	}

	runID, err := s.plans.InsertRun(ctx, domain.PlanRun{
		PlanID:    p.ID,
		JobID:     job.ID,
		Status:    string(domain.JobRunning),
		StartedAt: now,
	})
	if err != nil {
		logger.Error("failed to record plan run", "job_id", job.ID, "error", err)
	}

	s.reschedule(ctx, logger, p.ID, &now, next, once)
	logger.Info("plan dispatched", "job_id", job.ID, "categories", len(cats))

	return &dispatched{plan: p, runID: runID, jobID: job.ID, logger: logger.With("job_id", job.ID)}
}

func (s *Scheduler) reschedule(ctx context.Context, logger *slog.Logger, planID string, lastRun *time.Time, next time.Time, once bool) {
	if once {
		if err := s.plans.UpdateSchedule(ctx, planID, lastRun, nil); err != nil {
			logger.Error("failed to update plan schedule", "error", err)
		}
		if err := s.plans.Disable(ctx, planID); err != nil {
			logger.Error("failed to disable one-off plan", "error", err)
		}
		return
	}

	next = next.UTC()
	if err := s.plans.UpdateSchedule(ctx, planID, lastRun, &next); err != nil {
		logger.Error("failed to update plan schedule", "error", err)
		return
	}
	logger.Info("plan rescheduled", "next_run_at", next)
}

func (s *Scheduler) record(ctx context.Context, d *dispatched) {
	job, err := s.jobs.Await(ctx, d.jobID)

	finished := s.now().UTC()
	run := domain.PlanRun{ID: d.runID, PlanID: d.plan.ID, JobID: d.jobID, FinishedAt: &finished}
	if err != nil {
		msg := err.Error()
		run.Status = string(domain.JobError)
		run.ErrorMessage = &msg
	} else {
		run.Status = string(job.Status)
		if msg := runError(job); msg != "" {
			run.ErrorMessage = &msg
		}
		processed := job.Progress.Processed
		run.ListingsCount = &processed
		if job.OutputPath != "" {
			path := job.OutputPath
			run.SnapshotPath = &path
		}
	}
	s.metrics.PlanRun(run.Status)

	if d.runID != 0 {
		if err := s.plans.FinishRun(context.WithoutCancel(ctx), run); err != nil {
			d.logger.Error("failed to finish plan run", "error", err)
		}
	}
	d.logger.Info("plan run finished", "status", run.Status)
}

func runError(job *domain.Job) string {
	if job.ErrorMessage != "" {
		return job.ErrorMessage
	}
	if job.SyncStatus == domain.SyncError {
		return "sync: " + job.SyncMessage
	}
	return ""
}

func (s *Scheduler) params(p domain.Plan, cats []domain.Category) domain.JobParams {
	d := s.cfg.Defaults
	params := domain.JobParams{
		PageLimit:       orDefault(p.MaxPages, d.PageLimit),
		ListingLimit:    orDefault(p.MaxListings, d.ListingLimit),
		DelayMs:         orDefault(p.PageDelayMs, d.DelayMs),
		DetailDelayMs:   orDefault(p.DetailDelayMs, d.DetailDelayMs),
		CategoryDelayMs: p.IntervalMinutes * int(time.Minute/time.Millisecond),
		Headless:        p.Headless,
		UserAgent:       p.UserAgent,
		TriggeredBy:     triggeredBySchedule,
		PlanID:          p.ID,
	}
	if params.UserAgent == "" {
		params.UserAgent = d.UserAgent
	}
	for _, c := range cats {
		params.CategoryURLs = append(params.CategoryURLs, s.cfg.Catalog.CategoryURL(c))
		params.Selections = append(params.Selections, domain.Selection{CategoryID: c.ID, Label: c.Name})
	}
	return params
}

// ResolveCategories expands a plan's strategy against the catalog. "all"
// yields the catalog in its own order minus exclusions; "custom" yields the
// include list in plan order. Included ids missing from the catalog are
// returned separately.
func ResolveCategories(p domain.Plan, catalog []domain.Category) ([]domain.Category, []string) {
	excluded := make(map[string]struct{}, len(p.ExcludeCategoryIDs))
	for _, id := range p.ExcludeCategoryIDs {
		excluded[id] = struct{}{}
	}

	var out []domain.Category
	if p.CategoryStrategy != domain.StrategyCustom {
		for _, c := range catalog {
			if _, skip := excluded[c.ID]; !skip {
				out = append(out, c)
			}
		}
		return out, nil
	}

	byID := make(map[string]domain.Category, len(catalog))
	for _, c := range catalog {
		byID[c.ID] = c
	}

	var unknown []string
	seen := make(map[string]struct{}, len(p.IncludeCategoryIDs))
	for _, id := range p.IncludeCategoryIDs {
		if _, skip := excluded[id]; skip {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		c, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, c)
	}
	return out, unknown
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
