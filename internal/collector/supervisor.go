package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"listing_collector/internal/domain"
	"listing_collector/internal/joblog"
	"listing_collector/internal/metrics"
	"listing_collector/internal/progress"
)

type JobStore interface {
	Create(ctx context.Context, params domain.JobParams) (*domain.Job, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, id string, patch domain.JobPatch) (*domain.Job, error)
	UpdateSync(ctx context.Context, id string, status domain.SyncStatus, message string) error
}

// Ingester loads a finished job's snapshot into canonical storage.
type Ingester interface {
	Ingest(ctx context.Context, jobID, snapshotPath string) (*domain.SyncResult, error)
}

type SupervisorConfig struct {
	OutputDir string
	// Restricted forbids spawning workers, as on serverless hosts.
	Restricted bool
}

type Supervisor struct {
	store    JobStore
	logs     joblog.Sink
	worker   Worker
	ingester Ingester
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      SupervisorConfig
	now      func() time.Time

	wg   sync.WaitGroup
	mu   sync.Mutex
	done map[string]chan struct{}
}

// NewSupervisor wires a supervisor. ingester and m may be nil.
func NewSupervisor(
	store JobStore,
	logs joblog.Sink,
	worker Worker,
	ingester Ingester,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg SupervisorConfig,
) *Supervisor {
	return &Supervisor{
		store:    store,
		logs:     logs,
		worker:   worker,
		ingester: ingester,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		done:     make(map[string]chan struct{}),
	}
}

// StartJob creates a job and spawns its worker without waiting for it.
// The returned job is non-nil whenever it was created, even if the spawn
// failed; the error then explains why the job is already in error.
func (s *Supervisor) StartJob(ctx context.Context, params domain.JobParams) (*domain.Job, error) {
	job, err := s.store.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.metrics.JobStarted(params.TriggeredBy)

	logger := s.logger.With("job_id", job.ID)
	logger.Info("job created", "categories", len(params.CategoryURLs), "triggered_by", params.TriggeredBy)

	if s.cfg.Restricted {
		s.appendLog(ctx, job.ID, ErrSpawnRejected.Error())
		return s.fail(ctx, job, ErrSpawnRejected)
	}

	run, err := s.worker.Start(ctx, Config{JobID: job.ID, Params: params, OutputDir: s.cfg.OutputDir})
	if err != nil {
		s.appendLog(ctx, job.ID, "process error: "+err.Error())
		return s.fail(ctx, job, fmt.Errorf("spawn collector: %w", err))
	}
	s.metrics.ProcessStarted()

	started := s.now().UTC()
	running := domain.JobRunning
	updated, err := s.store.Update(ctx, job.ID, domain.JobPatch{Status: &running, StartedAt: &started})
	if err != nil {
		logger.Error("failed to mark job running", "error", err)
	} else {
		job = updated
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.done[job.ID] = done
	s.mu.Unlock()

	s.wg.Add(1)
	go func(jobID string) {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.done, jobID)
			s.mu.Unlock()
			close(done)
		}()
		s.supervise(jobID, run, logger)
	}(job.ID)

	return job, nil
}

// Wait blocks until every started job and its ingestion have finished.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Await blocks until the job's worker has exited and its ingestion finished,
// then returns the stored job.
func (s *Supervisor) Await(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	done, ok := s.done[jobID]
	s.mu.Unlock()

	if ok {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.store.Get(ctx, jobID)
}

func (s *Supervisor) fail(ctx context.Context, job *domain.Job, cause error) (*domain.Job, error) {
	failed, err := s.finish(ctx, job.ID, domain.JobError, cause.Error())
	if err != nil {
		return job, errors.Join(cause, err)
	}
	return failed, cause
}

func (s *Supervisor) finish(ctx context.Context, jobID string, status domain.JobStatus, message string) (*domain.Job, error) {
	finished := s.now().UTC()
	patch := domain.JobPatch{Status: &status, FinishedAt: &finished}
	if message != "" {
		patch.ErrorMessage = &message
	}
	job, err := s.store.Update(ctx, jobID, patch)
	if err != nil {
		return nil, fmt.Errorf("finish job: %w", err)
	}
	s.metrics.JobFinished(string(status))
	return job, nil
}

// supervise consumes one run to completion. It outlives the request that
// started the job, so it works on a background context.
func (s *Supervisor) supervise(jobID string, run Run, logger *slog.Logger) {
	ctx := context.Background()
	var outputPath string
	var exit *Exit

	for ev := range run.Events() {
		if ev.Exit != nil {
			exit = ev.Exit
			continue
		}

		if ev.Stream == Stderr {
			s.metrics.OutputLine(false)
			s.appendLog(ctx, jobID, ev.Line)
			continue
		}

		line := progress.Parse(ev.Line)
		s.metrics.OutputLine(line.IsEvent())
		if !line.IsEvent() {
			s.appendLog(ctx, jobID, line.Text)
			continue
		}

		patch := domain.JobPatch{Progress: &domain.Progress{
			Phase:     line.Event.Phase,
			Processed: line.Event.Processed,
			Total:     line.Event.Total,
			Percent:   line.Event.Percent,
			Message:   line.Event.Message,
		}}
		if line.Event.OutputPath != "" {
			outputPath = line.Event.OutputPath
			patch.OutputPath = &outputPath
		}
		if _, err := s.store.Update(ctx, jobID, patch); err != nil {
			logger.Warn("failed to record progress", "error", err)
		}
	}
	s.metrics.ProcessExited()

	if exit == nil {
		exit = &Exit{Code: -1, Err: errors.New("collector output closed without exit status")}
	}

	status, message := outcome(exit, outputPath)
	s.appendLog(ctx, jobID, fmt.Sprintf("collector finished: %s", firstNonEmpty(message, string(status))))
	if _, err := s.finish(ctx, jobID, status, message); err != nil {
		logger.Error("failed to finish job", "error", err)
		return
	}
	logger.Info("job finished", "status", status, "exit_code", exit.Code, "output_path", outputPath)

	if status != domain.JobSuccess || s.ingester == nil {
		return
	}
	s.ingest(ctx, jobID, outputPath, logger)
}

func outcome(exit *Exit, outputPath string) (domain.JobStatus, string) {
	switch {
	case exit.Err != nil:
		return domain.JobError, exit.Err.Error()
	case exit.Code != 0:
		return domain.JobError, (&ExitError{Code: exit.Code}).Error()
	case outputPath == "":
		return domain.JobError, ErrSnapshotNotFound.Error()
	default:
		return domain.JobSuccess, ""
	}
}

func (s *Supervisor) ingest(ctx context.Context, jobID, outputPath string, logger *slog.Logger) {
	if err := s.store.UpdateSync(ctx, jobID, domain.SyncPending, ""); err != nil {
		logger.Warn("failed to mark sync pending", "error", err)
	}

	res, err := s.ingester.Ingest(ctx, jobID, outputPath)
	if err != nil {
		logger.Error("snapshot ingestion failed", "error", err)
		if err := s.store.UpdateSync(ctx, jobID, domain.SyncError, err.Error()); err != nil {
			logger.Warn("failed to record sync error", "error", err)
		}
		return
	}

	if err := s.store.UpdateSync(ctx, jobID, res.Status, res.Message); err != nil {
		logger.Warn("failed to record sync result", "error", err)
	}
}

func (s *Supervisor) appendLog(ctx context.Context, jobID, text string) {
	if err := s.logs.Append(ctx, jobID, text); err != nil {
		s.logger.Warn("failed to append job log", "job_id", jobID, "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
