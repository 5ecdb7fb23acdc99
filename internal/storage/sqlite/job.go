package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"listing_collector/internal/domain"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobTerminal = errors.New("job already finished")
)

const (
	DefaultRetention = 50
	DefaultListLimit = 25
)

type jobRow struct {
	ID           string         `db:"id"`
	Status       string         `db:"status"`
	CreatedAt    string         `db:"created_at"`
	StartedAt    sql.NullString `db:"started_at"`
	FinishedAt   sql.NullString `db:"finished_at"`
	Params       string         `db:"params"`
	LogPath      string         `db:"log_path"`
	OutputPath   string         `db:"output_path"`
	Progress     string         `db:"progress"`
	ErrorMessage string         `db:"error_message"`
	SyncStatus   string         `db:"sync_status"`
	SyncMessage  string         `db:"sync_message"`
}

const jobColumns = `id, status, created_at, started_at, finished_at, params, log_path,
	output_path, progress, error_message, sync_status, sync_message`

// JobLogs locates job logs and removes them once their job is trimmed.
type JobLogs interface {
	Path(jobID string) string
	Remove(ctx context.Context, jobID string) error
}

type noLogs struct{}

func (noLogs) Path(string) string                   { return "" }
func (noLogs) Remove(context.Context, string) error { return nil }

type JobStore struct {
	db        *DB
	retention int
	logs      JobLogs
	logger    *slog.Logger
	now       func() time.Time
}

// NewJobStore keeps at most retention finished jobs; queued and running jobs
// are never trimmed. logs may be nil.
func NewJobStore(db *DB, retention int, logs JobLogs, logger *slog.Logger) *JobStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logs == nil {
		logs = noLogs{}
	}
	return &JobStore{db: db, retention: retention, logs: logs, logger: logger, now: time.Now}
}

func (s *JobStore) Create(ctx context.Context, params domain.JobParams) (*domain.Job, error) {
	id := uuid.NewString()
	job := &domain.Job{
		ID:        id,
		Status:    domain.JobQueued,
		CreatedAt: s.now().UTC(),
		Params:    params,
		LogPath:   s.logs.Path(id),
		Progress: domain.Progress{
			Phase:   string(domain.JobQueued),
			Total:   max(1, len(params.CategoryURLs)),
			Message: "queued",
		},
		SyncStatus: domain.SyncIdle,
	}

	row, err := toRow(job)
	if err != nil {
		return nil, err
	}

	var trimmed []string
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO jobs (`+jobColumns+`)
			VALUES (:id, :status, :created_at, :started_at, :finished_at, :params, :log_path,
				:output_path, :progress, :error_message, :sync_status, :sync_message)`, row)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}

		err = tx.SelectContext(ctx, &trimmed, `
			DELETE FROM jobs
			WHERE status NOT IN (?, ?)
				AND seq NOT IN (SELECT seq FROM jobs ORDER BY seq DESC LIMIT ?)
			RETURNING id`, string(domain.JobQueued), string(domain.JobRunning), s.retention)
		if err != nil {
			return fmt.Errorf("trim jobs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range trimmed {
		if err := s.logs.Remove(ctx, id); err != nil {
			s.logger.Warn("failed to remove trimmed job log", "job_id", id, "error", err)
		}
	}

	return job, nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return fromRow(row)
}

// List returns the most recent jobs first.
func (s *JobStore) List(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, s.retention)

	var rows []jobRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+jobColumns+` FROM jobs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for _, row := range rows {
		job, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// Update merges the non-nil fields of patch into the job in one transaction.
// Finished jobs reject further lifecycle changes with ErrJobTerminal.
func (s *JobStore) Update(ctx context.Context, id string, patch domain.JobPatch) (*domain.Job, error) {
	var updated *domain.Job

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var row jobRow
		err := tx.GetContext(ctx, &row, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		job, err := fromRow(row)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrJobTerminal, id, job.Status)
		}

		applyPatch(job, patch)

		next, err := toRow(job)
		if err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `
			UPDATE jobs SET
				status = :status,
				started_at = :started_at,
				finished_at = :finished_at,
				log_path = :log_path,
				output_path = :output_path,
				progress = :progress,
				error_message = :error_message
			WHERE id = :id`, next)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}

		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateSync records downstream ingestion state. It is allowed in any job status.
func (s *JobStore) UpdateSync(ctx context.Context, id string, status domain.SyncStatus, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET sync_status = ?, sync_message = ? WHERE id = ?`,
		string(status), message, id,
	)
	if err != nil {
		return fmt.Errorf("update job sync: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job sync: %w", err)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// FailInterrupted marks jobs left queued or running by a previous process as
// failed so they no longer count as active. It returns how many were marked.
func (s *JobStore) FailInterrupted(ctx context.Context, message string) (int64, error) {
	finished := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, finished_at = ?, error_message = ?
		WHERE status IN (?, ?)`,
		string(domain.JobError), formatTime(&finished), message,
		string(domain.JobQueued), string(domain.JobRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return n, nil
}

func (s *JobStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func applyPatch(job *domain.Job, patch domain.JobPatch) {
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.StartedAt != nil {
		t := patch.StartedAt.UTC()
		job.StartedAt = &t
	}
	if patch.FinishedAt != nil {
		t := patch.FinishedAt.UTC()
		job.FinishedAt = &t
	}
	if patch.LogPath != nil {
		job.LogPath = *patch.LogPath
	}
	if patch.OutputPath != nil {
		job.OutputPath = *patch.OutputPath
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.ErrorMessage != nil {
		job.ErrorMessage = *patch.ErrorMessage
	}
}

func toRow(job *domain.Job) (jobRow, error) {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return jobRow{}, fmt.Errorf("encode job params: %w", err)
	}
	progress, err := json.Marshal(job.Progress)
	if err != nil {
		return jobRow{}, fmt.Errorf("encode job progress: %w", err)
	}

	return jobRow{
		ID:           job.ID,
		Status:       string(job.Status),
		CreatedAt:    job.CreatedAt.Format(time.RFC3339Nano),
		StartedAt:    formatTime(job.StartedAt),
		FinishedAt:   formatTime(job.FinishedAt),
		Params:       string(params),
		LogPath:      job.LogPath,
		OutputPath:   job.OutputPath,
		Progress:     string(progress),
		ErrorMessage: job.ErrorMessage,
		SyncStatus:   string(job.SyncStatus),
		SyncMessage:  job.SyncMessage,
	}, nil
}

func fromRow(row jobRow) (*domain.Job, error) {
	job := &domain.Job{
		ID:           row.ID,
		Status:       domain.JobStatus(row.Status),
		LogPath:      row.LogPath,
		OutputPath:   row.OutputPath,
		ErrorMessage: row.ErrorMessage,
		SyncStatus:   domain.SyncStatus(row.SyncStatus),
		SyncMessage:  row.SyncMessage,
	}

	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, row.CreatedAt); err != nil {
		return nil, fmt.Errorf("decode job %s created_at: %w", row.ID, err)
	}
	if job.StartedAt, err = parseTime(row.StartedAt); err != nil {
		return nil, fmt.Errorf("decode job %s started_at: %w", row.ID, err)
	}
	if job.FinishedAt, err = parseTime(row.FinishedAt); err != nil {
		return nil, fmt.Errorf("decode job %s finished_at: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Params), &job.Params); err != nil {
		return nil, fmt.Errorf("decode job %s params: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Progress), &job.Progress); err != nil {
		return nil, fmt.Errorf("decode job %s progress: %w", row.ID, err)
	}
	return job, nil
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
